// Package config reads the environment configuration surface into a
// plain struct. Parsing happens once at startup; rule-relevant settings
// are re-read on SIGHUP to rebuild the active rule snapshot.
package config

import (
	"os"
	"strconv"
	"strings"

	"modguard/internal/moderation"
)

type Config struct {
	Port string

	// Storage
	DBDriver string // "bolt" or "sqlite"
	DBPath   string

	// Rate-limit backend; empty means in-process counters
	RedisAddr string

	// Alert channel; at most one is used, NATS preferred, then webhook,
	// then email
	AlertWebhookURL string
	AlertNATSURL    string
	AlertEmail      string

	// SMTP settings for the email alert channel
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	TracingEnabled bool

	// Feature gates
	ModerationEnabled bool
	ReportsEnabled    bool

	// Policy settings feeding moderation.RuleOptions
	StrictMode        bool
	ProfanityAction   moderation.ProfanityAction
	AdminIDs          []string
	WordList          []string
	WordFile          string
	AllowedDomains    []string
	BlockedDomains    []string
	AllowedProtocols  []string
	SuspiciousTLDs    []string
	CategoryAllowlist []string

	// Report submission limits; zero disables a window
	ReportsMaxPerHour   uint
	ReportsMaxPerDay    uint
	ReportsIPMaxPerHour uint
}

func Parse() Config {
	action, err := moderation.ParseProfanityAction(getString("PROFANITY_ACTION", "block"))
	if err != nil {
		// Unknown values fall back to the restrictive mode.
		action = moderation.ProfanityBlock
	}

	return Config{
		Port: getString("PORT", "8080"),

		DBDriver: getString("DB_DRIVER", "bolt"),
		DBPath:   getString("DB_PATH", "data/modguard.db"),

		RedisAddr: getString("REDIS_ADDR", ""),

		AlertWebhookURL: getString("ALERT_WEBHOOK_URL", ""),
		AlertNATSURL:    getString("ALERT_NATS_URL", ""),
		AlertEmail:      getString("ALERT_EMAIL", ""),

		SMTPHost: getString("SMTP_HOST", ""),
		SMTPPort: int(getUint("SMTP_PORT", 587)),
		SMTPUser: getString("SMTP_USER", ""),
		SMTPPass: getString("SMTP_PASS", ""),
		SMTPFrom: getString("SMTP_FROM", ""),

		TracingEnabled: getBool("TRACING_ENABLED", false),

		ModerationEnabled: getBool("MODERATION_ENABLED", true),
		ReportsEnabled:    getBool("REPORTS_ENABLED", true),

		StrictMode:        getBool("MODERATION_STRICT_MODE", false),
		ProfanityAction:   action,
		AdminIDs:          splitList(getString("ADMIN_IDS", "")),
		WordList:          splitList(getString("MODERATION_WORD_LIST", "")),
		WordFile:          getString("MODERATION_WORD_FILE", ""),
		AllowedDomains:    splitList(getString("URL_ALLOWED_DOMAINS", "")),
		BlockedDomains:    splitList(getString("URL_BLOCKED_DOMAINS", "")),
		AllowedProtocols:  splitList(getString("URL_ALLOWED_PROTOCOLS", "")),
		SuspiciousTLDs:    splitList(getString("URL_SUSPICIOUS_TLDS", "")),
		CategoryAllowlist: splitList(getString("REPORT_CATEGORY_ALLOWLIST", "")),

		ReportsMaxPerHour:   getUint("REPORTS_MAX_PER_HOUR", 5),
		ReportsMaxPerDay:    getUint("REPORTS_MAX_PER_DAY", 20),
		ReportsIPMaxPerHour: getUint("REPORTS_IP_MAX_PER_HOUR", 10),
	}
}

// RuleOptions builds the rule-configuration input from the parsed
// settings.
func (c Config) RuleOptions() moderation.RuleOptions {
	return moderation.RuleOptions{
		Enabled:         c.ModerationEnabled,
		ExtraWords:      c.WordList,
		AllowedDomains:  c.AllowedDomains,
		BlockedDomains:  c.BlockedDomains,
		AllowedProtos:   c.AllowedProtocols,
		SuspiciousTLDs:  c.SuspiciousTLDs,
		StrictMode:      c.StrictMode,
		ProfanityAction: c.ProfanityAction,
		AdminIDs:        c.AdminIDs,
		Categories:      c.CategoryAllowlist,
		RateLimits: moderation.RateLimits{
			PerUserHour: c.ReportsMaxPerHour,
			PerUserDay:  c.ReportsMaxPerDay,
			PerIPHour:   c.ReportsIPMaxPerHour,
		},
	}
}

// splitList splits a comma- or colon-delimited list, trimming whitespace
// and dropping empty entries.
func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	sep := ","
	if !strings.Contains(raw, ",") && strings.Contains(raw, ":") {
		sep = ":"
	}
	var out []string
	for _, item := range strings.Split(raw, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getUint(key string, def uint) uint {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint(n)
		}
	}
	return def
}
