package moderation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore is an in-memory Store for service tests.
type stubStore struct {
	mu      sync.Mutex
	reports map[string]*Report
	audits  []AuditEntry
	nextID  int

	createErr error
	applyErr  error
}

func newStubStore() *stubStore {
	return &stubStore{reports: make(map[string]*Report)}
}

func (s *stubStore) CreateReport(_ context.Context, report Report) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return Report{}, s.createErr
	}
	s.nextID++
	if report.ID == "" {
		report.ID = "r" + string(rune('0'+s.nextID))
	}
	report.Status = StatusOpen
	report.CreatedAt = time.Now()
	report.UpdatedAt = report.CreatedAt
	s.reports[report.ID] = &report
	return report, nil
}

func (s *stubStore) GetReport(_ context.Context, id string) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *stubStore) ListReports(_ context.Context, _ ReportFilter) (ReportPage, error) {
	return ReportPage{}, nil
}

func (s *stubStore) ApplyAction(_ context.Context, action Action, audit AuditEntry) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return nil, s.applyErr
	}
	r, ok := s.reports[action.ReportID]
	if !ok {
		return nil, ErrReportNotFound
	}
	if r.Status.Terminal() {
		return nil, ErrReportClosed
	}
	r.Actions = append(r.Actions, action)
	r.Status = StatusAfter(action.Kind)
	r.UpdatedAt = action.CreatedAt
	s.audits = append(s.audits, audit)
	cp := *r
	return &cp, nil
}

func (s *stubStore) ListAuditLog(_ context.Context, _ int) ([]AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEntry(nil), s.audits...), nil
}

// stubAlerts records sent summaries and signals delivery.
type stubAlerts struct {
	mu        sync.Mutex
	summaries []string
	err       error
	delivered chan struct{}
}

func newStubAlerts() *stubAlerts {
	return &stubAlerts{delivered: make(chan struct{}, 8)}
}

func (a *stubAlerts) Send(_ context.Context, summary string) error {
	a.mu.Lock()
	a.summaries = append(a.summaries, summary)
	err := a.err
	a.mu.Unlock()
	a.delivered <- struct{}{}
	return err
}

func (a *stubAlerts) sent() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.summaries...)
}

func newTestService(t *testing.T, opts RuleOptions) (*Service, *stubStore, *stubAlerts) {
	t.Helper()
	store := newStubStore()
	alerts := newStubAlerts()
	svc := NewService(testEngine(opts), store, alerts)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	counter := 0
	svc.newID = func() string {
		counter++
		return "id" + string(rune('0'+counter))
	}
	return svc, store, alerts
}

func TestSubmitReport(t *testing.T) {
	ctx := context.Background()

	t.Run("valid report persists with derived severity", func(t *testing.T) {
		svc, store, _ := newTestService(t, RuleOptions{})
		report, err := svc.SubmitReport(ctx, "user1", TargetPost, "post1", "abuse", "threatening replies", nil)
		require.NoError(t, err)
		assert.Equal(t, "user1", report.ReporterID)
		assert.Equal(t, StatusOpen, report.Status)
		assert.Equal(t, 3, report.Severity)
		assert.Len(t, store.reports, 1)
	})

	t.Run("category is lowercased", func(t *testing.T) {
		svc, _, _ := newTestService(t, RuleOptions{})
		report, err := svc.SubmitReport(ctx, "user1", TargetPost, "post1", "SPAM", "", nil)
		require.NoError(t, err)
		assert.Equal(t, "spam", report.Category)
	})

	t.Run("unknown target type", func(t *testing.T) {
		svc, _, _ := newTestService(t, RuleOptions{})
		_, err := svc.SubmitReport(ctx, "user1", "video", "v1", "spam", "", nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Reason, "target type")
	})

	t.Run("missing target id", func(t *testing.T) {
		svc, _, _ := newTestService(t, RuleOptions{})
		_, err := svc.SubmitReport(ctx, "user1", TargetPost, "", "spam", "", nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("disallowed category", func(t *testing.T) {
		svc, _, _ := newTestService(t, RuleOptions{Categories: []string{"spam"}})
		_, err := svc.SubmitReport(ctx, "user1", TargetPost, "post1", "abuse", "", nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Reason, "category")
	})

	t.Run("unsafe evidence url rejects the report", func(t *testing.T) {
		svc, store, _ := newTestService(t, RuleOptions{})
		_, err := svc.SubmitReport(ctx, "user1", TargetPost, "post1", "spam", "",
			[]string{"https://ok.example/proof", "javascript:alert()"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Reason, "evidence_urls[1]")
		assert.Empty(t, store.reports)
	})

	t.Run("suspicious tld evidence url is accepted", func(t *testing.T) {
		svc, _, _ := newTestService(t, RuleOptions{})
		_, err := svc.SubmitReport(ctx, "user1", TargetPost, "post1", "spam", "",
			[]string{"https://proof.tk/shot"})
		require.NoError(t, err)
	})

	t.Run("long description is truncated", func(t *testing.T) {
		svc, _, _ := newTestService(t, RuleOptions{})
		report, err := svc.SubmitReport(ctx, "user1", TargetPost, "post1", "spam",
			strings.Repeat("x", MaxDescriptionLength+100), nil)
		require.NoError(t, err)
		assert.Len(t, report.Description, MaxDescriptionLength)
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		svc, store, _ := newTestService(t, RuleOptions{})
		store.createErr = errors.New("disk full")
		_, err := svc.SubmitReport(ctx, "user1", TargetPost, "post1", "spam", "", nil)
		assert.ErrorContains(t, err, "disk full")
	})
}

func TestEvaluateContent(t *testing.T) {
	ctx := context.Background()

	t.Run("admit persists nothing", func(t *testing.T) {
		svc, store, _ := newTestService(t, RuleOptions{})
		decision, err := svc.EvaluateContent(ctx, Payload{
			TargetType: TargetProfile,
			TargetID:   "user1",
			Text:       map[string]string{"bio": "clean"},
		})
		require.NoError(t, err)
		assert.Equal(t, VerdictAdmit, decision.Verdict)
		assert.Empty(t, store.reports)
	})

	t.Run("admit with report persists the draft", func(t *testing.T) {
		svc, store, _ := newTestService(t, RuleOptions{ProfanityAction: ProfanityWarn})
		decision, err := svc.EvaluateContent(ctx, Payload{
			TargetType: TargetProfile,
			TargetID:   "user1",
			Text:       map[string]string{"bio": "damn"},
		})
		require.NoError(t, err)
		assert.Equal(t, VerdictAdmitWithReport, decision.Verdict)
		require.NotNil(t, decision.Draft)
		assert.NotEmpty(t, decision.Draft.ID)
		assert.Equal(t, SystemReporter, decision.Draft.ReporterID)
		assert.Len(t, store.reports, 1)
	})

	t.Run("reject persists nothing", func(t *testing.T) {
		svc, store, _ := newTestService(t, RuleOptions{})
		decision, err := svc.EvaluateContent(ctx, Payload{
			URLs: map[string]string{"website": "javascript:alert()"},
		})
		require.NoError(t, err)
		assert.Equal(t, VerdictReject, decision.Verdict)
		assert.Empty(t, store.reports)
	})

	t.Run("draft persistence failure surfaces", func(t *testing.T) {
		svc, store, _ := newTestService(t, RuleOptions{ProfanityAction: ProfanityWarn})
		store.createErr = errors.New("disk full")
		_, err := svc.EvaluateContent(ctx, Payload{
			Text: map[string]string{"bio": "damn"},
		})
		assert.ErrorContains(t, err, "persist auto report")
	})
}

func TestApplyDecision(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, svc *Service) Report {
		t.Helper()
		report, err := svc.SubmitReport(ctx, "user1", TargetPost, "post1", "spam", "", nil)
		require.NoError(t, err)
		return report
	}

	t.Run("non-admin is forbidden", func(t *testing.T) {
		svc, store, _ := newTestService(t, RuleOptions{AdminIDs: []string{"admin1"}})
		report := seed(t, svc)
		_, err := svc.ApplyDecision(ctx, "user1", report.ID, ActionRemove, "")
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Empty(t, store.audits)
	})

	t.Run("admin decision transitions, audits, and alerts", func(t *testing.T) {
		svc, store, alerts := newTestService(t, RuleOptions{AdminIDs: []string{"admin1"}})
		report := seed(t, svc)

		updated, err := svc.ApplyDecision(ctx, "admin1", report.ID, ActionRemove, "spam wave")
		require.NoError(t, err)
		assert.Equal(t, StatusActioned, updated.Status)
		require.Len(t, updated.Actions, 1)
		assert.Equal(t, ActionRemove, updated.Actions[0].Kind)
		assert.Equal(t, "admin1", updated.Actions[0].ActorID)

		require.Len(t, store.audits, 1)
		assert.Equal(t, "admin1", store.audits[0].ActorID)
		assert.Equal(t, ActionRemove, store.audits[0].Action)

		select {
		case <-alerts.delivered:
		case <-time.After(time.Second):
			t.Fatal("alert was never delivered")
		}
		sent := alerts.sent()
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0], report.ID)
		assert.Contains(t, sent[0], "remove")
		assert.Contains(t, sent[0], "actioned")
	})

	t.Run("terminal report rejects further decisions", func(t *testing.T) {
		svc, _, alerts := newTestService(t, RuleOptions{AdminIDs: []string{"admin1"}})
		report := seed(t, svc)

		_, err := svc.ApplyDecision(ctx, "admin1", report.ID, ActionAllow, "")
		require.NoError(t, err)
		<-alerts.delivered

		_, err = svc.ApplyDecision(ctx, "admin1", report.ID, ActionBan, "")
		assert.ErrorIs(t, err, ErrReportClosed)
	})

	t.Run("unknown report", func(t *testing.T) {
		svc, _, _ := newTestService(t, RuleOptions{AdminIDs: []string{"admin1"}})
		_, err := svc.ApplyDecision(ctx, "admin1", "nope", ActionWarn, "")
		assert.ErrorIs(t, err, ErrReportNotFound)
	})

	t.Run("alert failure does not fail the decision", func(t *testing.T) {
		svc, _, alerts := newTestService(t, RuleOptions{AdminIDs: []string{"admin1"}})
		alerts.err = errors.New("webhook down")
		report := seed(t, svc)

		updated, err := svc.ApplyDecision(ctx, "admin1", report.ID, ActionWarn, "")
		require.NoError(t, err)
		assert.Equal(t, StatusReviewed, updated.Status)
		<-alerts.delivered
	})

	t.Run("nil alert channel is fine", func(t *testing.T) {
		store := newStubStore()
		svc := NewService(testEngine(RuleOptions{AdminIDs: []string{"admin1"}}), store, nil)
		report, err := svc.SubmitReport(ctx, "user1", TargetPost, "post1", "spam", "", nil)
		require.NoError(t, err)

		_, err = svc.ApplyDecision(ctx, "admin1", report.ID, ActionWarn, "")
		assert.NoError(t, err)
	})
}
