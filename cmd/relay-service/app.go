package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"leadrelay/internal/audit"
	"leadrelay/internal/config"
	"leadrelay/internal/constants"
	"leadrelay/internal/crm"
	"leadrelay/internal/downstream"
	"leadrelay/internal/logger"
	"leadrelay/internal/relay"
	"leadrelay/pkg/bootstrap"
	"leadrelay/pkg/circuitbreaker"
	"leadrelay/pkg/health"
	"leadrelay/pkg/metrics"
	"leadrelay/pkg/middleware"
	"leadrelay/pkg/ratelimit"
	"leadrelay/pkg/tracing"
)

type App struct {
	*bootstrap.Base

	service        *relay.Service
	auditPublisher *audit.Publisher
	auditCancel    context.CancelFunc
	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base: bootstrap.NewBase(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.InitBroker(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initService(ctx); err != nil {
		return fmt.Errorf("failed to initialize relay service: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, "relay-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	return nil
}

func (a *App) initService(ctx context.Context) error {
	crmBreaker := a.newBreaker("crm-lookup")
	forwardBreaker := a.newBreaker("downstream-forward")

	crmClient := crm.NewClient(a.Config.CRM, crmBreaker, a.Logger)
	forwarder := downstream.NewForwarder(a.Config.Downstream, forwardBreaker, a.Logger)

	a.service = relay.NewService(a.Config.Relay, crmClient, forwarder, a.Logger)

	if a.Producer != nil {
		a.auditPublisher = audit.NewPublisher(a.Config.Broker.Kafka, a.Producer, a.Logger)
		auditCtx, cancel := context.WithCancel(context.Background())
		a.auditCancel = cancel
		a.auditPublisher.Start(auditCtx)
		a.service.SetAuditor(a.auditPublisher)
		a.Logger.InfowCtx(ctx, "Audit publisher initialized", "topic", a.Config.Broker.Kafka.AuditTopic)
	}

	return nil
}

// newBreaker builds a circuit breaker from config, or returns nil when
// breakers are disabled so outbound clients call straight through.
func (a *App) newBreaker(name string) *circuitbreaker.Wrapper {
	if !a.Config.CircuitBreaker.Enabled {
		return nil
	}

	cfg := circuitbreaker.DefaultConfig(name)
	if a.Config.CircuitBreaker.MaxRequests > 0 {
		cfg.MaxRequests = a.Config.CircuitBreaker.MaxRequests
	}
	if a.Config.CircuitBreaker.Interval > 0 {
		cfg.Interval = a.Config.CircuitBreaker.Interval
	}
	if a.Config.CircuitBreaker.Timeout > 0 {
		cfg.Timeout = a.Config.CircuitBreaker.Timeout
	}
	if a.Config.CircuitBreaker.FailureRatio > 0 && a.Config.CircuitBreaker.MinRequests > 0 {
		ratio := a.Config.CircuitBreaker.FailureRatio
		minRequests := a.Config.CircuitBreaker.MinRequests
		cfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= ratio
		}
	}

	return circuitbreaker.NewWrapper(cfg)
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("relay-service"))
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.Config.RateLimit.Enabled {
		rateLimitConfig := ratelimit.Config{
			RPS:             a.Config.RateLimit.RPS,
			Burst:           a.Config.RateLimit.Burst,
			CleanupInterval: time.Duration(a.Config.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.Config.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.Middleware(rateLimitConfig))
		a.Logger.InfowCtx(context.Background(), "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	handler := relay.NewHandler(a.service, a.Logger)
	handler.RegisterRoutes(router)

	metrics.RegisterRelayMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	if a.Config.RateLimit.Enabled {
		metrics.RegisterRateLimitMetrics()
	}
	if a.auditPublisher != nil {
		metrics.RegisterAuditMetrics()
	}

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewHTTPChecker("crm", a.Config.CRM.BaseURL, constants.DefaultHTTPTimeout))

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
	return nil
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: a.router,
	}
	if a.Config.Server.ReadTimeoutSeconds > 0 {
		a.server.ReadTimeout = a.Config.Server.ReadTimeoutSeconds
	}
	if a.Config.Server.WriteTimeoutSeconds > 0 {
		a.server.WriteTimeout = a.Config.Server.WriteTimeoutSeconds
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "Server listening", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	return a.Shutdown(shutdownCtx, func(ctx context.Context) []error {
		var errs []error

		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}

		if a.auditPublisher != nil {
			a.auditCancel()
			a.auditPublisher.Stop()
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer shutdown error: %w", err))
			}
		}

		return errs
	})
}
