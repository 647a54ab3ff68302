package constants

import "time"

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	// AssumedUTCOffset is applied to CRM timestamps that carry no
	// timezone information. Fixed offset, no DST adjustment.
	AssumedUTCOffset = "-03:00"

	// DefaultRecencyWindow bounds how old a status move may be and
	// still count as recent.
	DefaultRecencyWindow = 60 * time.Second
)

const (
	// DiagnosticBodyLimit caps upstream/downstream response bodies
	// captured into error details.
	DiagnosticBodyLimit = 500
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultAuditTopic = "relay_decisions"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)
