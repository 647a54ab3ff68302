package relay

import (
	"context"
	"time"

	"leadrelay/internal/config"
	"leadrelay/internal/constants"
	"leadrelay/internal/crm"
	"leadrelay/internal/logger"
	"leadrelay/pkg/errors"
	"leadrelay/pkg/logging"
	"leadrelay/pkg/metrics"
	"leadrelay/pkg/models"
	"leadrelay/pkg/tracing"
)

// Resolver fetches authoritative lead state from the CRM.
type Resolver interface {
	Resolve(ctx context.Context, leadID string) (*crm.LeadRecord, error)
}

// Forwarder posts the pass notification downstream.
type Forwarder interface {
	Forward(ctx context.Context, leadID string) error
}

// Auditor records terminal decisions; implementations must not block.
type Auditor interface {
	Record(ctx context.Context, info models.DecisionInfo)
}

// Service composes extraction, resolution, validation and forwarding
// into one decision per inbound notification. Instances share no mutable
// state across requests.
type Service struct {
	resolver  Resolver
	forwarder Forwarder
	auditor   Auditor
	statusSet map[string]struct{}
	window    time.Duration
	logger    logger.Logger

	now func() time.Time
}

func NewService(cfg config.RelayConfig, resolver Resolver, forwarder Forwarder, log logger.Logger) *Service {
	statusSet := make(map[string]struct{}, len(cfg.AcceptedStatuses))
	for _, status := range cfg.AcceptedStatuses {
		statusSet[status] = struct{}{}
	}

	window := constants.DefaultRecencyWindow
	if cfg.RecencyWindowSeconds > 0 {
		window = time.Duration(cfg.RecencyWindowSeconds) * time.Second
	}

	return &Service{
		resolver:  resolver,
		forwarder: forwarder,
		statusSet: statusSet,
		window:    window,
		logger:    log,
		now:       time.Now,
	}
}

// SetAuditor attaches an optional decision audit sink.
func (s *Service) SetAuditor(a Auditor) {
	s.auditor = a
}

// Process runs the full pipeline for one inbound notification. A non-nil
// error marks an early terminal stage; the Decision is only returned for
// completed validations.
func (s *Service) Process(ctx context.Context, payload map[string]interface{}) (*Decision, error) {
	ctx, span := tracing.GetTracer("relay-service").Start(ctx, "relay.process")
	defer span.End()

	start := s.now()

	leadID, err := ExtractLeadID(payload)
	if err != nil {
		s.finish(ctx, start, models.StageIdentifierMissing, nil)
		return nil, err
	}

	ctx = logging.WithLeadID(ctx, leadID)

	record, err := s.resolver.Resolve(ctx, leadID)
	if err != nil {
		stage := models.StageUpstreamFailure
		if errors.IsMalformedResponse(err) {
			stage = models.StageMalformedResponse
		}
		s.finish(ctx, start, stage, &ValidationOutcome{LeadID: leadID})
		return nil, err
	}

	outcome := s.validate(ctx, record)
	metrics.IncValidationDecision(outcome.StatusPass, outcome.MovedPass)

	decision := &Decision{Outcome: outcome}

	if !outcome.Forward() {
		decision.Stage = models.StageNotForwarded
		s.finish(ctx, start, decision.Stage, &outcome)
		s.logger.InfowCtx(ctx, "Lead not forwarded",
			"status_id", outcome.StatusID,
			"status_pass", outcome.StatusPass,
			"moved_pass", outcome.MovedPass,
		)
		return decision, nil
	}

	if err := s.forwarder.Forward(ctx, record.ID); err != nil {
		s.finish(ctx, start, models.StageDownstreamFailure, &outcome)
		return nil, err
	}

	decision.Forwarded = true
	decision.Stage = models.StageForwarded
	s.finish(ctx, start, decision.Stage, &outcome)

	return decision, nil
}

// validate computes both pass conditions. No short-circuiting: a failed
// status check must not hide the recency result.
func (s *Service) validate(ctx context.Context, record *crm.LeadRecord) ValidationOutcome {
	ctx, span := tracing.GetTracer("relay-service").Start(ctx, "relay.validate")
	defer span.End()

	outcome := ValidationOutcome{
		LeadID:   record.ID,
		StatusID: record.StatusID,
	}

	_, outcome.StatusPass = s.statusSet[record.StatusID]

	movedTime, err := NormalizeMovedTime(record.MovedTimeRaw)
	if err != nil {
		metrics.UnparseableTimestampsTotal.Inc()
		s.logger.DebugwCtx(ctx, "Moved time unparseable",
			"moved_time_raw", record.MovedTimeRaw,
		)
		outcome.MovedPass = false
		return outcome
	}

	outcome.MovedTime = movedTime
	outcome.MovedPass = MovedRecently(movedTime, s.now(), s.window)

	return outcome
}

func (s *Service) finish(ctx context.Context, start time.Time, stage string, outcome *ValidationOutcome) {
	metrics.RelayRequestsTotal.WithLabelValues(stage).Inc()
	metrics.ObserveRelayDuration(s.now().Sub(start), stage)

	if s.auditor == nil {
		return
	}

	info := models.DecisionInfo{
		Stage:     stage,
		Forwarded: stage == models.StageForwarded,
		DecidedAt: s.now(),
	}
	if outcome != nil {
		info.LeadID = outcome.LeadID
		info.StatusID = outcome.StatusID
		info.StatusPass = outcome.StatusPass
		info.MovedPass = outcome.MovedPass
	}

	s.auditor.Record(ctx, info)
}
