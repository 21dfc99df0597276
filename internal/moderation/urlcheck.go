package moderation

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ValidateURL validates a single URL-bearing field. Checks run in order
// and short-circuit on the first failure: parse, protocol, blocklist,
// then (strict mode only) allowlist. The protocol and blocklist checks
// are unconditional: they guard against script/data/file injection
// schemes and known-bad hosts regardless of any configurable policy.
// A suspicious TLD yields a non-blocking, report-only issue.
func ValidateURL(field, raw string, rules *Rules) ScanResult {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ScanResult{OK: true}
	}

	reject := func(detail string, hard bool) ScanResult {
		return ScanResult{Issues: []ScanIssue{{
			Field:    field,
			Category: IssueUnsafeURL,
			Detail:   detail,
			Blocking: true,
			Hard:     hard,
		}}}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return reject("unparseable", true)
	}

	scheme := strings.ToLower(u.Scheme)
	if !rules.protocolAllowed(scheme) {
		return reject("protocol not allowed: "+scheme, true)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return reject("unparseable", true)
	}

	if d := matchDomain(host, rules.domainBlocked); d != "" {
		return reject("domain blocked: "+d, true)
	}

	if rules.StrictMode && matchDomain(host, rules.domainAllowlisted) == "" {
		return reject("domain not allowlisted: "+registrableDomain(host), true)
	}

	if tld := lastLabel(host); rules.tldSuspicious(tld) {
		return ScanResult{OK: true, Issues: []ScanIssue{{
			Field:    field,
			Category: IssueUnsafeURL,
			Detail:   "suspicious tld: ." + tld,
			Blocking: false,
		}}}
	}

	return ScanResult{OK: true}
}

// matchDomain checks host and each of its parent domains against in,
// so a listed "example.com" covers "sub.example.com" but never
// "notexample.com". Returns the matching entry, or "".
func matchDomain(host string, in func(string) bool) string {
	for {
		if in(host) {
			return host
		}
		idx := strings.Index(host, ".")
		if idx < 0 {
			return ""
		}
		host = host[idx+1:]
	}
}

// registrableDomain returns the eTLD+1 for host, falling back to the host
// itself for IP literals and hosts under unlisted suffixes.
func registrableDomain(host string) string {
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

func lastLabel(host string) string {
	if idx := strings.LastIndex(host, "."); idx >= 0 {
		return host[idx+1:]
	}
	return host
}
