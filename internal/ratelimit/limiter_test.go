package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// errStore always fails, simulating a counter backend outage.
type errStore struct{}

func (errStore) Incr(context.Context, string, time.Duration) (uint, error) {
	return 0, errors.New("backend down")
}

func newTestLimiter(t *testing.T, limits Limits) (*Limiter, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(time.Minute)
	t.Cleanup(store.Stop)
	return New(store, limits), store
}

func TestAllowWithinLimits(t *testing.T) {
	limiter, _ := newTestLimiter(t, Limits{PerUserHour: 5, PerUserDay: 20, PerIPHour: 10})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(ctx, "user1", "10.0.0.1"), "request %d", i+1)
	}
	assert.False(t, limiter.Allow(ctx, "user1", "10.0.0.1"), "sixth request must be denied")
}

func TestDeniedRequestsStillCount(t *testing.T) {
	limiter, store := newTestLimiter(t, Limits{PerUserHour: 2})
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "user1", ""))
	assert.True(t, limiter.Allow(ctx, "user1", ""))
	assert.False(t, limiter.Allow(ctx, "user1", ""))

	store.mu.Lock()
	count := store.counters["rl:user_hour:user1"].count
	store.mu.Unlock()
	assert.Equal(t, uint(3), count)
}

func TestWindowsAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, Limits{PerUserHour: 1, PerIPHour: 5})
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "user1", "10.0.0.1"))
	assert.False(t, limiter.Allow(ctx, "user1", "10.0.0.1"))

	// A different user behind the same IP still has quota.
	assert.True(t, limiter.Allow(ctx, "user2", "10.0.0.1"))
}

func TestDayWindowOutlastsHourWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	limiter := New(newClockedStore(clock), Limits{PerUserHour: 2, PerUserDay: 3})
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "user1", ""))
	assert.True(t, limiter.Allow(ctx, "user1", ""))
	assert.False(t, limiter.Allow(ctx, "user1", ""))

	// The next hour resets the hour window but the day cap holds.
	clock.Advance(61 * time.Minute)
	assert.False(t, limiter.Allow(ctx, "user1", ""))

	// The next day clears everything.
	clock.Advance(24 * time.Hour)
	assert.True(t, limiter.Allow(ctx, "user1", ""))
}

func TestZeroLimitDisablesWindow(t *testing.T) {
	limiter, _ := newTestLimiter(t, Limits{PerUserHour: 0, PerUserDay: 0, PerIPHour: 0})
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		assert.True(t, limiter.Allow(ctx, "user1", "10.0.0.1"))
	}
}

func TestAnonymousSkipsUserWindows(t *testing.T) {
	limiter, _ := newTestLimiter(t, Limits{PerUserHour: 1, PerIPHour: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(ctx, "", "10.0.0.1"))
	}
	assert.False(t, limiter.Allow(ctx, "", "10.0.0.1"))
}

func TestBackendErrorFailsClosed(t *testing.T) {
	limiter := New(errStore{}, Limits{PerUserHour: 100})
	assert.False(t, limiter.Allow(context.Background(), "user1", "10.0.0.1"))
}

func TestWindowDuration(t *testing.T) {
	assert.Equal(t, time.Hour, WindowUserHour.Duration())
	assert.Equal(t, 24*time.Hour, WindowUserDay.Duration())
	assert.Equal(t, time.Hour, WindowIPHour.Duration())
}
