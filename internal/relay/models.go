package relay

import "time"

// ValidationOutcome carries both check results. Both are always computed,
// even when one already fails, so every decision is auditable.
type ValidationOutcome struct {
	LeadID     string
	StatusID   string
	MovedTime  time.Time // zero when the moved-time was absent or unparseable
	StatusPass bool
	MovedPass  bool
}

// Forward reports whether the lead should be relayed downstream.
func (o ValidationOutcome) Forward() bool {
	return o.StatusPass && o.MovedPass
}

// Decision is the terminal result of one pipeline run.
type Decision struct {
	Outcome   ValidationOutcome
	Forwarded bool
	Stage     string
}
