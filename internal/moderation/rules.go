package moderation

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// ProfanityAction selects what a profanity finding does to a write:
// reject it outright, or admit it and open a report for review.
type ProfanityAction int

const (
	ProfanityBlock ProfanityAction = iota
	ProfanityWarn
)

func (a ProfanityAction) String() string {
	if a == ProfanityWarn {
		return "warn"
	}
	return "block"
}

// ParseProfanityAction parses the PROFANITY_ACTION setting. The mode is
// decided once at config load, never re-parsed per request.
func ParseProfanityAction(s string) (ProfanityAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block", "":
		return ProfanityBlock, nil
	case "warn":
		return ProfanityWarn, nil
	}
	return ProfanityBlock, fmt.Errorf("invalid profanity action %q (want block or warn)", s)
}

// RateLimits are the report-submission thresholds per rolling window.
type RateLimits struct {
	PerUserHour uint
	PerUserDay  uint
	PerIPHour   uint
}

// defaultWordList ships with the binary; MODERATION_WORD_LIST extends it.
var defaultWordList = []string{
	"arse", "ass", "bastard", "bitch", "bollocks", "crap",
	"damn", "dick", "piss", "prick", "shit", "slut", "twat",
}

// defaultSeverities ranks report urgency per category, 0 (lowest) to 3.
var defaultSeverities = map[string]int{
	"spam":        1,
	"abuse":       3,
	"unsafe_link": 2,
	"profanity":   1,
	"privacy":     2,
	"other":       0,
}

var (
	defaultCategories     = []string{"spam", "abuse", "unsafe_link", "profanity", "privacy", "other"}
	defaultProtocols      = []string{"http", "https"}
	defaultAllowedDomains = []string{"github.com", "gitlab.com", "youtube.com", "wikipedia.org", "linkedin.com"}
	defaultSuspiciousTLDs = []string{"tk", "ml", "ga", "cf", "gq", "zip", "top"}
)

// RuleOptions is the raw input for building a Rules value, already split
// into lists by the configuration layer.
type RuleOptions struct {
	Enabled         bool
	ExtraWords      []string
	AllowedDomains  []string
	BlockedDomains  []string
	AllowedProtos   []string
	SuspiciousTLDs  []string
	StrictMode      bool
	ProfanityAction ProfanityAction
	AdminIDs        []string
	Categories      []string
	RateLimits      RateLimits
}

// Rules is the immutable, process-wide rule configuration. It is never
// mutated after construction; a reload builds a fresh value and publishes
// it through a RuleSet.
type Rules struct {
	Enabled         bool
	StrictMode      bool
	ProfanityAction ProfanityAction
	RateLimits      RateLimits

	words          map[string]struct{}
	allowDomains   map[string]struct{}
	blockDomains   map[string]struct{}
	protocols      map[string]struct{}
	suspiciousTLDs map[string]struct{}
	admins         map[string]struct{}
	severities     map[string]int
}

// NewRules builds an immutable Rules value from opts, filling unset lists
// with the built-in defaults. ExtraWords extend the default word list.
func NewRules(opts RuleOptions) *Rules {
	r := &Rules{
		Enabled:         opts.Enabled,
		StrictMode:      opts.StrictMode,
		ProfanityAction: opts.ProfanityAction,
		RateLimits:      opts.RateLimits,
		words:           make(map[string]struct{}),
		allowDomains:    make(map[string]struct{}),
		blockDomains:    make(map[string]struct{}),
		protocols:       make(map[string]struct{}),
		suspiciousTLDs:  make(map[string]struct{}),
		admins:          make(map[string]struct{}),
		severities:      make(map[string]int),
	}

	for _, w := range defaultWordList {
		r.words[w] = struct{}{}
	}
	for _, w := range opts.ExtraWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			r.words[w] = struct{}{}
		}
	}

	allowed := opts.AllowedDomains
	if len(allowed) == 0 {
		allowed = defaultAllowedDomains
	}
	for _, d := range allowed {
		if d = normalizeDomain(d); d != "" {
			r.allowDomains[d] = struct{}{}
		}
	}
	for _, d := range opts.BlockedDomains {
		if d = normalizeDomain(d); d != "" {
			r.blockDomains[d] = struct{}{}
		}
	}

	protos := opts.AllowedProtos
	if len(protos) == 0 {
		protos = defaultProtocols
	}
	for _, p := range protos {
		p = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(p), ":"))
		if p != "" {
			r.protocols[p] = struct{}{}
		}
	}

	tlds := opts.SuspiciousTLDs
	if len(tlds) == 0 {
		tlds = defaultSuspiciousTLDs
	}
	for _, t := range tlds {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "."))
		if t != "" {
			r.suspiciousTLDs[t] = struct{}{}
		}
	}

	for _, id := range opts.AdminIDs {
		if id = strings.TrimSpace(id); id != "" {
			r.admins[id] = struct{}{}
		}
	}

	cats := opts.Categories
	if len(cats) == 0 {
		cats = defaultCategories
	}
	for _, c := range cats {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		// Severity defaults to 0 for categories outside the built-in table.
		r.severities[c] = defaultSeverities[c]
	}

	return r
}

func normalizeDomain(d string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "."))
}

// IsAdmin reports whether id is in the admin identity set.
func (r *Rules) IsAdmin(id string) bool {
	_, ok := r.admins[id]
	return ok
}

// AllowedCategory reports whether c is an accepted report category.
func (r *Rules) AllowedCategory(c string) bool {
	_, ok := r.severities[strings.ToLower(c)]
	return ok
}

// SeverityFor returns the severity derived from a report category.
// Unknown categories rank 0.
func (r *Rules) SeverityFor(c string) int {
	return r.severities[strings.ToLower(c)]
}

// List sizes, surfaced by the health endpoint. Never the contents.

func (r *Rules) WordCount() int     { return len(r.words) }
func (r *Rules) AllowlistSize() int { return len(r.allowDomains) }
func (r *Rules) BlocklistSize() int { return len(r.blockDomains) }
func (r *Rules) AdminCount() int    { return len(r.admins) }

func (r *Rules) hasWord(w string) bool {
	_, ok := r.words[w]
	return ok
}

func (r *Rules) protocolAllowed(scheme string) bool {
	_, ok := r.protocols[scheme]
	return ok
}

func (r *Rules) domainBlocked(domain string) bool {
	_, ok := r.blockDomains[domain]
	return ok
}

func (r *Rules) domainAllowlisted(domain string) bool {
	_, ok := r.allowDomains[domain]
	return ok
}

func (r *Rules) tldSuspicious(tld string) bool {
	_, ok := r.suspiciousTLDs[tld]
	return ok
}

// RuleSet publishes the current Rules value. Readers take unsynchronized
// snapshots; a reload swaps in a fresh pointer and never mutates the old
// value in place.
type RuleSet struct {
	current atomic.Pointer[Rules]
}

// NewRuleSet creates a RuleSet holding r.
func NewRuleSet(r *Rules) *RuleSet {
	rs := &RuleSet{}
	rs.current.Store(r)
	return rs
}

// Current returns the active Rules snapshot.
func (rs *RuleSet) Current() *Rules {
	return rs.current.Load()
}

// Replace atomically publishes a new Rules value. In-flight requests keep
// the snapshot they already read.
func (rs *RuleSet) Replace(r *Rules) {
	rs.current.Store(r)
	log.Info().
		Int("words", r.WordCount()).
		Int("allowlist", r.AllowlistSize()).
		Int("blocklist", r.BlocklistSize()).
		Int("admins", r.AdminCount()).
		Bool("strict_mode", r.StrictMode).
		Str("profanity_action", r.ProfanityAction.String()).
		Msg("moderation: rules published")
}
