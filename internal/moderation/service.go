package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"modguard/internal/metrics"
	"modguard/internal/tracing"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AlertSender delivers a short decision summary to the external chat
// channel. Delivery is best-effort: the service logs failures and never
// propagates them to the caller.
type AlertSender interface {
	Send(ctx context.Context, summary string) error
}

// AlertTimeout bounds a single alert delivery so an unreachable channel
// can never stall the admin-decision response path.
const AlertTimeout = 2 * time.Second

// MaxDescriptionLength caps user-supplied report descriptions.
const MaxDescriptionLength = 500

// ValidationError marks a malformed report request (bad category,
// missing field, unsafe evidence URL).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// Service is the moderation engine singleton: it evaluates content
// writes, records reports, and applies admin decisions with audit and
// alerting.
type Service struct {
	engine *Engine
	store  Store
	alerts AlertSender

	// Overridable in tests.
	now   func() time.Time
	newID func() string
}

// NewService creates a Service. alerts may be nil when no alert channel
// is configured.
func NewService(engine *Engine, store Store, alerts AlertSender) *Service {
	return &Service{
		engine: engine,
		store:  store,
		alerts: alerts,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Engine returns the underlying decision engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// EvaluateContent is the entry point content-write handlers call before
// persisting. On an admit-with-report verdict it also persists the draft
// report; on reject the caller must not write the content.
func (s *Service) EvaluateContent(ctx context.Context, p Payload) (Decision, error) {
	ctx, span := tracing.DecisionSpan(ctx, string(p.TargetType), p.TargetID)
	defer span.End()

	decision := s.engine.Decide(p)
	metrics.DecisionsTotal.WithLabelValues(decision.Verdict.String()).Inc()
	for _, issue := range decision.Issues {
		metrics.ScanIssuesTotal.WithLabelValues(string(issue.Category)).Inc()
	}

	if decision.Verdict == VerdictAdmitWithReport {
		created, err := s.store.CreateReport(ctx, *decision.Draft)
		if err != nil {
			tracing.EndWithError(span, err)
			return Decision{}, fmt.Errorf("persist auto report: %w", err)
		}
		decision.Draft = &created
		metrics.ReportsCreatedTotal.WithLabelValues("auto").Inc()

		log.Info().
			Str("report_id", created.ID).
			Str("target_type", string(created.TargetType)).
			Str("target_id", created.TargetID).
			Str("category", created.Category).
			Int("severity", created.Severity).
			Msg("moderation: content admitted with auto report")
	}

	return decision, nil
}

// SubmitReport validates and persists a user-submitted report. The
// caller is responsible for the rate-limit gate.
func (s *Service) SubmitReport(ctx context.Context, reporterID string, targetType TargetType, targetID, category, description string, evidenceURLs []string) (Report, error) {
	rules := s.engine.Rules()

	if !ValidTargetType(targetType) {
		return Report{}, &ValidationError{Reason: "unknown target type"}
	}
	if targetID == "" {
		return Report{}, &ValidationError{Reason: "target_id is required"}
	}
	if !rules.AllowedCategory(category) {
		return Report{}, &ValidationError{Reason: "category not allowed: " + category}
	}

	// Evidence URLs pass through the same validator as content links;
	// the protocol and blocklist checks apply to every URL-accepting
	// input, reports included.
	for i, raw := range evidenceURLs {
		res := ValidateURL(fmt.Sprintf("evidence_urls[%d]", i), raw, rules)
		for _, issue := range res.Issues {
			if issue.Hard {
				return Report{}, &ValidationError{Reason: issue.Field + ": " + issue.Detail}
			}
		}
	}

	description = strings.TrimSpace(description)
	if len(description) > MaxDescriptionLength {
		description = description[:MaxDescriptionLength]
	}

	category = strings.ToLower(category)
	report := Report{
		ReporterID:   reporterID,
		TargetType:   targetType,
		TargetID:     targetID,
		Category:     category,
		Description:  description,
		EvidenceURLs: evidenceURLs,
		Severity:     rules.SeverityFor(category),
	}

	created, err := s.store.CreateReport(ctx, report)
	if err != nil {
		return Report{}, fmt.Errorf("create report: %w", err)
	}
	metrics.ReportsCreatedTotal.WithLabelValues("user").Inc()

	log.Info().
		Str("report_id", created.ID).
		Str("reporter_id", created.ReporterID).
		Str("target_type", string(created.TargetType)).
		Str("target_id", created.TargetID).
		Str("category", created.Category).
		Msg("moderation: report created")

	return created, nil
}

// ApplyDecision applies an admin action to a report: authorization,
// state transition, audit record, and a best-effort alert. The audit
// write happens atomically with the transition; alert delivery runs on a
// detached goroutine and its failure never rolls back the decision.
func (s *Service) ApplyDecision(ctx context.Context, actorID, reportID string, kind ActionKind, reason string) (*Report, error) {
	ctx, span := tracing.AdminActionSpan(ctx, string(kind), reportID)
	defer span.End()

	rules := s.engine.Rules()
	if !rules.IsAdmin(actorID) {
		log.Warn().Str("actor_id", actorID).Str("report_id", reportID).Msg("moderation: decision denied, not an admin")
		return nil, ErrForbidden
	}

	now := s.now()
	action := Action{
		ID:        s.newID(),
		ReportID:  reportID,
		Kind:      kind,
		Reason:    reason,
		ActorID:   actorID,
		CreatedAt: now,
	}
	audit := AuditEntry{
		ID:        s.newID(),
		ActorID:   actorID,
		ReportID:  reportID,
		Action:    kind,
		Reason:    reason,
		Timestamp: now,
	}

	report, err := s.store.ApplyAction(ctx, action, audit)
	if err != nil {
		tracing.EndWithError(span, err)
		return nil, err
	}
	metrics.AdminDecisionsTotal.WithLabelValues(string(kind)).Inc()

	log.Info().
		Str("report_id", report.ID).
		Str("actor_id", actorID).
		Str("action", string(kind)).
		Str("status", string(report.Status)).
		Msg("moderation: decision applied")

	s.dispatchAlert(*report, action)

	return report, nil
}

// dispatchAlert fires the external alert without blocking the caller.
// The summary carries category, severity, and identifiers, never the
// reported content itself.
func (s *Service) dispatchAlert(report Report, action Action) {
	if s.alerts == nil {
		return
	}

	summary := fmt.Sprintf("report %s (%s/%s, severity %d): %s by %s -> %s",
		report.ID, report.Category, report.TargetType, report.Severity,
		action.Kind, action.ActorID, report.Status)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), AlertTimeout)
		defer cancel()

		if err := s.alerts.Send(ctx, summary); err != nil {
			metrics.AlertDeliveriesTotal.WithLabelValues("error").Inc()
			log.Error().Err(err).Str("report_id", report.ID).Msg("moderation: alert delivery failed")
			return
		}
		metrics.AlertDeliveriesTotal.WithLabelValues("ok").Inc()
	}()
}
