package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"leadrelay/internal/config"
	"leadrelay/internal/constants"
	"leadrelay/internal/logger"
	"leadrelay/pkg/circuitbreaker"
	"leadrelay/pkg/errors"
	"leadrelay/pkg/metrics"
)

// Forwarder posts the minimal pass notification to the downstream webhook.
type Forwarder struct {
	cfg     config.DownstreamConfig
	client  *http.Client
	breaker *circuitbreaker.Wrapper
	logger  logger.Logger
}

func NewForwarder(cfg config.DownstreamConfig, breaker *circuitbreaker.Wrapper, log logger.Logger) *Forwarder {
	timeout := constants.DefaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	return &Forwarder{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		breaker: breaker,
		logger:  log,
	}
}

type notification struct {
	LeadID string `json:"leadId"`
}

// Forward sends {"leadId": id} to the configured endpoint. The body
// carries exactly the identifier, nothing else.
func (f *Forwarder) Forward(ctx context.Context, leadID string) error {
	start := time.Now()

	err := f.post(ctx, leadID)
	if err != nil {
		metrics.ForwardsTotal.WithLabelValues("error").Inc()
		metrics.ObserveForwardDuration(time.Since(start), "error")
		return err
	}

	metrics.ForwardsTotal.WithLabelValues("success").Inc()
	metrics.ObserveForwardDuration(time.Since(start), "success")

	f.logger.InfowCtx(ctx, "Lead forwarded downstream",
		"lead_id", leadID,
	)

	return nil
}

func (f *Forwarder) post(ctx context.Context, leadID string) error {
	payload, err := json.Marshal(notification{LeadID: leadID})
	if err != nil {
		return errors.ErrDownstreamFailure.WithCause(err)
	}

	do := func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("downstream request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, constants.DiagnosticBodyLimit))
		if err != nil {
			return nil, fmt.Errorf("failed to read downstream response: %w", err)
		}

		if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
			return nil, errors.ErrDownstreamFailure.
				WithDetail("status_code", resp.StatusCode).
				WithDetail("body", string(body))
		}

		return nil, nil
	}

	if f.breaker != nil {
		_, err = f.breaker.ExecuteWithContext(ctx, do)
		f.breaker.RecordRequest(err == nil)
	} else {
		_, err = do()
	}

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return errors.ErrDownstreamFailure.
				WithCause(err).
				WithDetail("message", "downstream circuit breaker open")
		}
		if appErr, ok := err.(*errors.Error); ok {
			return appErr
		}
		return errors.ErrDownstreamFailure.WithCause(err)
	}

	return nil
}
