package models

import "time"

// MessageEnvelope wraps a relay decision published to the audit topic.
type MessageEnvelope struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`  // Decision data
	Metadata  Metadata               `json:"metadata"` // Pipeline metadata (trace_id, request_id)
}

type Metadata struct {
	TraceID   string        `json:"trace_id,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	Decision  *DecisionInfo `json:"decision,omitempty"`
}

// DecisionInfo is the auditable outcome of one relay request.
type DecisionInfo struct {
	Stage      string    `json:"stage"`
	LeadID     string    `json:"lead_id,omitempty"`
	StatusID   string    `json:"status_id,omitempty"`
	StatusPass bool      `json:"status_pass"`
	MovedPass  bool      `json:"moved_pass"`
	Forwarded  bool      `json:"forwarded"`
	DecidedAt  time.Time `json:"decided_at"`
}

const (
	StageIdentifierMissing = "identifier_missing"
	StageUpstreamFailure   = "upstream_failure"
	StageMalformedResponse = "malformed_response"
	StageDownstreamFailure = "downstream_failure"
	StageForwarded         = "forwarded"
	StageNotForwarded      = "not_forwarded"
)
