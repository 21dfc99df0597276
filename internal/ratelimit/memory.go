package ratelimit

import (
	"context"
	"sync"
	"time"
)

// counter is one window's state for one key.
type counter struct {
	count       uint
	windowStart time.Time
	window      time.Duration
}

func (c *counter) expired(now time.Time) bool {
	return now.Sub(c.windowStart) >= c.window
}

// MemoryStore is an in-process counter backend for single-instance
// deployments. A background sweep deletes counters whose window has
// rolled over so the map stays bounded.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter

	now    func() time.Time
	stopCh chan struct{}
}

// NewMemoryStore creates a MemoryStore and starts the sweep goroutine.
// Call Stop() to release it.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	s := &MemoryStore{
		counters: make(map[string]*counter),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	go s.sweep(sweepInterval)
	return s
}

// Stop halts the background sweep goroutine.
func (s *MemoryStore) Stop() {
	close(s.stopCh)
}

// Incr resets the counter if its window has expired, then increments it,
// all under one lock so two concurrent requests can never both observe a
// pre-increment count.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (uint, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || c.expired(now) {
		c = &counter{windowStart: now, window: window}
		s.counters[key] = c
	}
	c.count++
	return c.count, nil
}

func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			now := s.now()
			s.mu.Lock()
			for key, c := range s.counters {
				if c.expired(now) {
					delete(s.counters, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
