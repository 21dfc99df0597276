package moderation

import (
	"context"
)

// ReportFilter narrows and pages a report listing. Zero values mean
// "no filter". Cursor is the opaque token from a previous page.
type ReportFilter struct {
	Status     ReportStatus
	Category   string
	TargetType TargetType
	Cursor     string
	Limit      int
}

// ReportPage is one page of reports, newest first. Limit is the
// effective page limit the store applied after defaulting and clamping.
type ReportPage struct {
	Items      []Report
	Limit      int
	HasMore    bool
	NextCursor string
}

// Store defines the persistence interface for reports and the audit
// trail. Implementations must be safe for concurrent use and must
// serialize ApplyAction per report id so that two concurrent decisions
// cannot both commit conflicting terminal transitions.
type Store interface {
	// CreateReport persists a new report. Status is forced to open and
	// CreatedAt/UpdatedAt are set by the store; any caller-supplied
	// values for those fields are ignored.
	CreateReport(ctx context.Context, report Report) (Report, error)

	// GetReport returns the report with its action history, or
	// ErrReportNotFound.
	GetReport(ctx context.Context, id string) (*Report, error)

	// ListReports returns a filtered page ordered by CreatedAt
	// descending with a stable id tiebreak.
	ListReports(ctx context.Context, filter ReportFilter) (ReportPage, error)

	// ApplyAction atomically appends an action, advances the report
	// status, and writes the audit entry. Terminal reports return
	// ErrReportClosed. The returned report reflects the new state.
	ApplyAction(ctx context.Context, action Action, audit AuditEntry) (*Report, error)

	// ListAuditLog returns the most recent audit entries, newest first.
	ListAuditLog(ctx context.Context, limit int) ([]AuditEntry, error)
}
