package moderation

import (
	"sort"
	"strings"
)

// Payload is a multi-field content write to be evaluated. Nested fields
// are flattened by the caller using dotted names ("socialLinks.website").
type Payload struct {
	AuthorID   string
	TargetType TargetType
	TargetID   string

	// Text holds free-text fields, URLs holds URL-bearing fields.
	Text map[string]string
	URLs map[string]string
}

// Verdict is the outcome of evaluating a payload.
type Verdict int

const (
	VerdictAdmit Verdict = iota
	VerdictAdmitWithReport
	VerdictReject
)

func (v Verdict) String() string {
	switch v {
	case VerdictAdmitWithReport:
		return "admit_with_report"
	case VerdictReject:
		return "reject"
	}
	return "admit"
}

// Decision is the engine's verdict on a payload. Issues carry the
// per-field findings behind a rejection; Draft is the report to persist
// when content is admitted but flagged for review.
type Decision struct {
	Verdict Verdict
	Issues  []ScanIssue
	Draft   *Report
}

// Engine combines the text scanner and URL validator into an
// admit/reject decision. It reads rule snapshots from a RuleSet and
// performs no I/O; persisting a draft report is the caller's job.
type Engine struct {
	rules *RuleSet
}

// NewEngine creates an Engine reading rules from rs.
func NewEngine(rs *RuleSet) *Engine {
	return &Engine{rules: rs}
}

// Rules returns the active rule snapshot.
func (e *Engine) Rules() *Rules {
	return e.rules.Current()
}

// Decide evaluates a payload. Hard issues (disallowed protocols,
// blocklisted domains, strict-mode allowlist misses) always reject.
// Soft profanity issues reject under ProfanityBlock and admit-with-report
// under ProfanityWarn. Suspicious-TLD findings never reject; they only
// open a report on an otherwise admitted payload.
func (e *Engine) Decide(p Payload) Decision {
	rules := e.rules.Current()
	if !rules.Enabled {
		return Decision{Verdict: VerdictAdmit}
	}

	var hard, profanity, reportOnly []ScanIssue

	for _, field := range sortedKeys(p.Text) {
		res := ScanText(field, p.Text[field], rules)
		profanity = append(profanity, res.Issues...)
	}
	for _, field := range sortedKeys(p.URLs) {
		res := ValidateURL(field, p.URLs[field], rules)
		for _, issue := range res.Issues {
			switch {
			case issue.Hard:
				hard = append(hard, issue)
			case issue.Blocking:
				profanity = append(profanity, issue)
			default:
				reportOnly = append(reportOnly, issue)
			}
		}
	}

	if len(hard) > 0 {
		return Decision{Verdict: VerdictReject, Issues: append(hard, profanity...)}
	}

	if len(profanity) > 0 && rules.ProfanityAction == ProfanityBlock {
		return Decision{Verdict: VerdictReject, Issues: profanity}
	}

	soft := append(append([]ScanIssue(nil), profanity...), reportOnly...)
	if len(soft) == 0 {
		return Decision{Verdict: VerdictAdmit}
	}

	category := "unsafe_link"
	if len(profanity) > 0 {
		category = "profanity"
	}

	return Decision{
		Verdict: VerdictAdmitWithReport,
		Issues:  soft,
		Draft: &Report{
			ReporterID:  SystemReporter,
			TargetType:  p.TargetType,
			TargetID:    p.TargetID,
			Category:    category,
			Severity:    rules.SeverityFor(category),
			Description: describeIssues(soft),
			Status:      StatusOpen,
		},
	}
}

// describeIssues builds a short review summary from findings. It names
// matched terms and failed checks, never the original content.
func describeIssues(issues []ScanIssue) string {
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		parts = append(parts, issue.Field+": "+issue.Detail)
	}
	return "auto-flagged: " + strings.Join(parts, "; ")
}

// sortedKeys keeps issue ordering deterministic across runs.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
