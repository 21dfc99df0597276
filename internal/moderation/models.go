package moderation

import (
	"errors"
	"time"
)

// IssueCategory classifies a single scan finding.
type IssueCategory string

const (
	IssueProfanity IssueCategory = "profanity"
	IssueUnsafeURL IssueCategory = "unsafe_url"
)

// ScanIssue is one finding produced by the text scanner or URL validator.
// Detail names the matched term or the failed check; it is surfaced to the
// caller so they can self-correct. Redaction, if any, happens at the
// logging boundary, not here.
type ScanIssue struct {
	Field    string        `json:"field"`
	Category IssueCategory `json:"category"`
	Detail   string        `json:"detail"`

	// Blocking is false only for report-only findings (suspicious TLDs).
	Blocking bool `json:"-"`

	// Hard marks security-invariant findings (disallowed protocol,
	// blocklisted domain, strict-mode allowlist miss) that reject the
	// payload regardless of the configured profanity action.
	Hard bool `json:"-"`
}

// ScanResult is the outcome of scanning a single field.
type ScanResult struct {
	OK     bool
	Issues []ScanIssue
}

// TargetType identifies what kind of content a report is about.
type TargetType string

const (
	TargetProfile TargetType = "profile"
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
	TargetLink    TargetType = "link"
)

// ValidTargetType reports whether t is a known target type.
func ValidTargetType(t TargetType) bool {
	switch t {
	case TargetProfile, TargetPost, TargetComment, TargetLink:
		return true
	}
	return false
}

// ReportStatus represents the lifecycle state of a report.
type ReportStatus string

const (
	StatusOpen      ReportStatus = "open"
	StatusReviewed  ReportStatus = "reviewed"
	StatusActioned  ReportStatus = "actioned"
	StatusDismissed ReportStatus = "dismissed"
)

// Terminal reports whether s accepts no further actions.
func (s ReportStatus) Terminal() bool {
	return s == StatusActioned || s == StatusDismissed
}

// SystemReporter is the sentinel reporter identity used for reports the
// decision engine generates itself on warned writes.
const SystemReporter = "system"

// Report is a record of allegedly unsafe content, created either by a
// user or by the decision engine. Status moves only forward through the
// state machine; Severity is derived from Category at creation and never
// changes afterward.
type Report struct {
	ID           string       `json:"id"`
	ReporterID   string       `json:"reporter_id"`
	TargetType   TargetType   `json:"target_type"`
	TargetID     string       `json:"target_id"`
	Category     string       `json:"category"`
	Description  string       `json:"description,omitempty"`
	EvidenceURLs []string     `json:"evidence_urls,omitempty"`
	Status       ReportStatus `json:"status"`
	Severity     int          `json:"severity"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	// Actions is the ordered, append-only decision history. Status is a
	// deterministic function of the most recent entry.
	Actions []Action `json:"actions,omitempty"`
}

// ActionKind is an admin's disposition of a report.
type ActionKind string

const (
	ActionAllow  ActionKind = "allow"
	ActionWarn   ActionKind = "warn"
	ActionRemove ActionKind = "remove"
	ActionBan    ActionKind = "ban"
)

// ParseActionKind validates a raw action string.
func ParseActionKind(s string) (ActionKind, error) {
	switch ActionKind(s) {
	case ActionAllow, ActionWarn, ActionRemove, ActionBan:
		return ActionKind(s), nil
	}
	return "", errors.New("unknown action: " + s)
}

// StatusAfter returns the report status that applying k produces.
func StatusAfter(k ActionKind) ReportStatus {
	switch k {
	case ActionAllow:
		return StatusDismissed
	case ActionWarn:
		return StatusReviewed
	default: // remove, ban
		return StatusActioned
	}
}

// Action is one admin decision applied to a report.
type Action struct {
	ID        string     `json:"id"`
	ReportID  string     `json:"report_id"`
	Kind      ActionKind `json:"action"`
	Reason    string     `json:"reason,omitempty"`
	ActorID   string     `json:"actor_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// AuditEntry is a logged admin decision. Audit writes are synchronous and
// a failed write fails the decision request.
type AuditEntry struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	ReportID  string    `json:"report_id"`
	Action    ActionKind `json:"action"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sentinel errors for the decision and report paths. The HTTP layer maps
// these onto the wire error codes.
var (
	ErrForbidden      = errors.New("actor is not an admin")
	ErrReportNotFound = errors.New("report not found")
	ErrReportClosed   = errors.New("report is in a terminal state")
	ErrRateLimited    = errors.New("rate limit exceeded")
)
