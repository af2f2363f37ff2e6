// Package clock provides helpers for time-related operations.
package clock

import (
	"context"
	"sync"
	"time"
)

// SleepWithContext waits for the duration or returns early if the context is canceled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SeedSource hands out escrow seeds derived from wall-clock milliseconds.
// Seeds are strictly increasing per source, so two attempts started within the same
// millisecond (or after the wall clock stepped back) still get distinct seeds.
type SeedSource struct {
	now  func() time.Time
	mu   sync.Mutex
	last int64
}

// NewSeedSource returns a SeedSource backed by time.Now.
func NewSeedSource() *SeedSource {
	return &SeedSource{now: time.Now}
}

// NewSeedSourceWithClock returns a SeedSource backed by the given clock.
func NewSeedSourceWithClock(now func() time.Time) *SeedSource {
	return &SeedSource{now: now}
}

// Next returns the next seed.
func (s *SeedSource) Next() int64 {
	ms := s.now().UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()
	if ms <= s.last {
		ms = s.last + 1
	}
	s.last = ms
	return ms
}
