package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/google/uuid"
)

// RefreshLimiter caps manual refreshes per user over a sliding window.
// Users idle for a full window are dropped on the next sweep.
type RefreshLimiter struct {
	mu        sync.Mutex
	hits      map[uuid.UUID][]time.Time
	limit     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRefreshLimiter allows limit refreshes per user per window.
func NewRefreshLimiter(limit int, window time.Duration) *RefreshLimiter {
	return &RefreshLimiter{
		hits:   make(map[uuid.UUID][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Check records a refresh attempt for userID and reports whether it is allowed.
// Rejected attempts do not count against the window.
func (rl *RefreshLimiter) Check(_ context.Context, userID uuid.UUID) domain.GuardResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	recent := within(rl.hits[userID], cutoff)
	if len(recent) >= rl.limit {
		rl.hits[userID] = recent
		retryIn := recent[0].Add(rl.window).Sub(now).Round(time.Second)
		return domain.GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("at most %d refreshes per %s, retry in %s", rl.limit, rl.window, retryIn),
			Guard:   "refresh_limiter",
		}
	}

	rl.hits[userID] = append(recent, now)
	return domain.GuardResult{Allowed: true}
}

// Len returns the number of users currently tracked.
func (rl *RefreshLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.hits)
}

func (rl *RefreshLimiter) sweep(cutoff time.Time) {
	for id, hits := range rl.hits {
		if len(within(hits, cutoff)) == 0 {
			delete(rl.hits, id)
		}
	}
}

// within drops hits at or before cutoff. hits is ordered oldest first.
func within(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
