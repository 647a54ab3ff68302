package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"leadrelay/internal/config"
	"leadrelay/internal/constants"
	"leadrelay/internal/logger"
	"leadrelay/pkg/circuitbreaker"
	"leadrelay/pkg/errors"
	"leadrelay/pkg/metrics"
)

// Client resolves lead state from the CRM read API. The identifier is
// passed as an `id` query parameter against the configured base URL.
type Client struct {
	cfg     config.CRMConfig
	client  *http.Client
	breaker *circuitbreaker.Wrapper
	logger  logger.Logger
}

func NewClient(cfg config.CRMConfig, breaker *circuitbreaker.Wrapper, log logger.Logger) *Client {
	timeout := constants.DefaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		breaker: breaker,
		logger:  log,
	}
}

type httpResult struct {
	statusCode int
	body       []byte
}

// Resolve fetches the lead and unwraps one of the two documented CRM
// response envelopes: a bare object carrying `result`, or an array whose
// first element carries `result`.
func (c *Client) Resolve(ctx context.Context, leadID string) (*LeadRecord, error) {
	start := time.Now()

	res, err := c.fetch(ctx, leadID)
	if err != nil {
		metrics.CRMLookupsTotal.WithLabelValues("error").Inc()
		metrics.ObserveCRMLookupDuration(time.Since(start), "error")
		return nil, err
	}

	record, err := parseLeadResponse(res.body)
	if err != nil {
		metrics.CRMLookupsTotal.WithLabelValues("malformed").Inc()
		metrics.ObserveCRMLookupDuration(time.Since(start), "malformed")
		return nil, err
	}

	metrics.CRMLookupsTotal.WithLabelValues("success").Inc()
	metrics.ObserveCRMLookupDuration(time.Since(start), "success")

	c.logger.DebugwCtx(ctx, "Lead resolved",
		"lead_id", record.ID,
		"status_id", record.StatusID,
	)

	return record, nil
}

func (c *Client) fetch(ctx context.Context, leadID string) (*httpResult, error) {
	lookupURL, err := buildLookupURL(c.cfg.BaseURL, leadID)
	if err != nil {
		return nil, errors.ErrUpstreamFailure.WithCause(err)
	}

	do := func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("crm request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read crm response: %w", err)
		}

		if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
			return nil, errors.ErrUpstreamFailure.
				WithDetail("status_code", resp.StatusCode).
				WithDetail("body", errors.Truncate(string(body), constants.DiagnosticBodyLimit))
		}

		return &httpResult{statusCode: resp.StatusCode, body: body}, nil
	}

	var result interface{}
	if c.breaker != nil {
		result, err = c.breaker.ExecuteWithContext(ctx, do)
		c.breaker.RecordRequest(err == nil)
	} else {
		result, err = do()
	}

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, errors.ErrUpstreamFailure.
				WithCause(err).
				WithDetail("message", "crm circuit breaker open")
		}
		if appErr, ok := err.(*errors.Error); ok {
			return nil, appErr
		}
		return nil, errors.ErrUpstreamFailure.WithCause(err)
	}

	return result.(*httpResult), nil
}

func buildLookupURL(baseURL, leadID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid crm base url: %w", err)
	}

	q := u.Query()
	q.Set("id", leadID)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func parseLeadResponse(body []byte) (*LeadRecord, error) {
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, errors.ErrMalformedResponse.
			WithCause(err).
			WithDetail("sample", errors.Truncate(string(body), constants.DiagnosticBodyLimit))
	}

	result, ok := unwrapResult(decoded)
	if !ok {
		return nil, errors.ErrMalformedResponse.
			WithDetail("message", "crm response missing result field").
			WithDetail("sample", errors.Truncate(string(body), constants.DiagnosticBodyLimit))
	}

	id := firstNonEmptyString(result, "ID", "id")
	if id == "" {
		return nil, errors.ErrMalformedResponse.
			WithDetail("message", "crm result missing lead identifier").
			WithDetail("sample", errors.Truncate(string(body), constants.DiagnosticBodyLimit))
	}

	record := &LeadRecord{
		ID:       id,
		StatusID: firstNonEmptyString(result, "STATUS_ID", "STATUS"),
	}

	for _, key := range []string{"MOVED_TIME", "MOVED_TIME_UTC", "MOVED_DATE"} {
		if raw, exists := result[key]; exists && raw != nil {
			record.MovedTimeRaw = raw
			break
		}
	}

	return record, nil
}

// unwrapResult handles both envelope shapes: {"result": {...}} and
// [{"result": {...}}, ...], tried in that order.
func unwrapResult(decoded interface{}) (map[string]interface{}, bool) {
	if obj, ok := decoded.(map[string]interface{}); ok {
		if result, ok := obj["result"].(map[string]interface{}); ok {
			return result, true
		}
		return nil, false
	}

	if arr, ok := decoded.([]interface{}); ok && len(arr) > 0 {
		if obj, ok := arr[0].(map[string]interface{}); ok {
			if result, ok := obj["result"].(map[string]interface{}); ok {
				return result, true
			}
		}
	}

	return nil, false
}

func firstNonEmptyString(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, exists := m[key]; exists {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
