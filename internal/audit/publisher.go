package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadrelay/internal/broker"
	"leadrelay/internal/config"
	"leadrelay/internal/logger"
	"leadrelay/pkg/logging"
	"leadrelay/pkg/metrics"
	"leadrelay/pkg/models"
	"leadrelay/pkg/retry"
)

const (
	sourceName  = "relay-service"
	queueDepth  = 256
	publishWait = 10 * time.Second
)

type event struct {
	info      models.DecisionInfo
	traceID   string
	requestID string
}

// Publisher ships relay decisions to the audit topic off the request
// path. Record never blocks; events are dropped when the queue is full.
type Publisher struct {
	producer broker.Producer
	topic    string
	policy   retry.Policy
	logger   logger.Logger

	queue chan event
	wg    sync.WaitGroup
}

func NewPublisher(cfg config.KafkaConfig, producer broker.Producer, log logger.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    cfg.AuditTopic,
		policy: retry.Policy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			Multiplier:      cfg.Retry.Multiplier,
			MaxElapsedTime:  cfg.Retry.MaxElapsedTime,
		},
		logger: log,
		queue:  make(chan event, queueDepth),
	}
}

// Start launches the publish worker. It drains until ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-p.queue:
				p.publish(ev)
			}
		}
	}()
}

// Stop waits for the worker to exit. Call after cancelling the Start
// context.
func (p *Publisher) Stop() {
	p.wg.Wait()
}

// Record enqueues a decision for publication. Trace identifiers are
// captured from ctx here because the worker runs outside the request.
func (p *Publisher) Record(ctx context.Context, info models.DecisionInfo) {
	ev := event{
		info:      info,
		traceID:   logging.GetTraceID(ctx),
		requestID: logging.GetRequestID(ctx),
	}

	select {
	case p.queue <- ev:
	default:
		metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
		p.logger.Warnw("Audit queue full, decision dropped",
			"lead_id", info.LeadID,
			"stage", info.Stage,
		)
	}
}

func (p *Publisher) publish(ev event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishWait)
	defer cancel()

	info := ev.info
	envelope := models.MessageEnvelope{
		ID:        uuid.New().String(),
		Source:    sourceName,
		Timestamp: time.Now().UTC(),
		Payload: map[string]interface{}{
			"stage":       info.Stage,
			"lead_id":     info.LeadID,
			"status_id":   info.StatusID,
			"status_pass": info.StatusPass,
			"moved_pass":  info.MovedPass,
			"forwarded":   info.Forwarded,
			"decided_at":  info.DecidedAt.UTC().Format(time.RFC3339Nano),
		},
		Metadata: models.Metadata{
			TraceID:   ev.traceID,
			RequestID: ev.requestID,
			Decision:  &info,
		},
	}

	start := time.Now()
	err := retry.RetryWithCallback(ctx, p.policy, func() error {
		return p.producer.Publish(ctx, p.topic, envelope)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues("audit").Inc()
		p.logger.Warnw("Audit publish retry",
			"attempt", attempt,
			"error", err,
			"next_delay", nextDelay,
		)
	})
	metrics.AuditPublishDuration.Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.AuditEventsTotal.WithLabelValues("failed").Inc()
		p.logger.Errorw("Audit publish failed",
			"lead_id", info.LeadID,
			"stage", info.Stage,
			"error", err,
		)
		return
	}

	metrics.AuditEventsTotal.WithLabelValues("published").Inc()
}
