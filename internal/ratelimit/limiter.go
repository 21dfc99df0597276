// Package ratelimit bounds report-submission frequency per identity and
// IP using fixed counting windows. A check-and-increment is a single
// atomic operation per key, and a denied request still counts against
// the window so retries cannot reset the counter.
package ratelimit

import (
	"context"
	"time"

	"modguard/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Window identifies one of the three counting windows.
type Window string

const (
	WindowUserHour Window = "user_hour"
	WindowUserDay  Window = "user_day"
	WindowIPHour   Window = "ip_hour"
)

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	if w == WindowUserDay {
		return 24 * time.Hour
	}
	return time.Hour
}

// Store is the counter backend. Incr atomically bumps the counter for
// key, resetting it first if its window has expired, and returns the
// post-increment count.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (uint, error)
}

// Limits are the per-window thresholds. A zero threshold disables that
// window.
type Limits struct {
	PerUserHour uint
	PerUserDay  uint
	PerIPHour   uint
}

// Limiter enforces the three report-submission windows against a Store.
type Limiter struct {
	store  Store
	limits Limits
}

// New creates a Limiter with the given backend and thresholds.
func New(store Store, limits Limits) *Limiter {
	return &Limiter{store: store, limits: limits}
}

// Allow counts the request against every applicable window and reports
// whether it is within all limits. Every window is incremented before
// any comparison, so a denied request still consumes quota. Store errors
// fail closed: the request is denied rather than let a backend outage
// lift the limits.
func (l *Limiter) Allow(ctx context.Context, userID, ip string) bool {
	type check struct {
		window Window
		key    string
		limit  uint
	}

	checks := make([]check, 0, 3)
	if userID != "" {
		checks = append(checks,
			check{WindowUserHour, "rl:user_hour:" + userID, l.limits.PerUserHour},
			check{WindowUserDay, "rl:user_day:" + userID, l.limits.PerUserDay},
		)
	}
	if ip != "" {
		checks = append(checks, check{WindowIPHour, "rl:ip_hour:" + ip, l.limits.PerIPHour})
	}

	allowed := true
	for _, c := range checks {
		if c.limit == 0 {
			continue
		}
		count, err := l.store.Incr(ctx, c.key, c.window.Duration())
		if err != nil {
			log.Error().Err(err).Str("key", c.key).Msg("ratelimit: counter backend error (failing closed)")
			metrics.RateLimitDenialsTotal.WithLabelValues(string(c.window)).Inc()
			return false
		}
		if count > c.limit {
			metrics.RateLimitDenialsTotal.WithLabelValues(string(c.window)).Inc()
			allowed = false
		}
	}

	return allowed
}
