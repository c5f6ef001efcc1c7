package security

import (
	"context"
	"sync"
	"time"

	"github.com/AlexIndustrial/latebot/internal/domain"
	"github.com/AlexIndustrial/latebot/pkg/logger"
)

// staleAfterWindows is how many window-lengths a user record may sit idle
// before the janitor drops it.
const staleAfterWindows = 3

// userWindow tracks the recent request instants of a single user.
// Owned exclusively by the RateLimiter map; never handed out.
type userWindow struct {
	timestamps []time.Time
	lastReset  time.Time
	lastSeen   time.Time
}

// RateLimiter admits or denies events per user under a sliding-window
// counting policy. All window state lives behind one mutex; decisions
// never fail with an error.
type RateLimiter struct {
	policy domain.SecurityPolicy

	mu      sync.Mutex
	windows map[int64]*userWindow

	now func() time.Time
	log *logger.Logger
}

// NewRateLimiter creates a rate limiter for the given policy.
// now is injectable for tests; pass nil for the wall clock.
func NewRateLimiter(policy domain.SecurityPolicy, now func() time.Time, log *logger.Logger) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		policy:  policy,
		windows: make(map[int64]*userWindow),
		now:     now,
		log:     log,
	}
}

// Check decides whether an event from the user may proceed.
//
// The window is half-open [now-window, now): a request exactly one window
// old is expired. Denied attempts are not recorded.
func (rl *RateLimiter) Check(userID int64) domain.Decision {
	if !rl.policy.DDoSProtectionEnabled {
		return domain.Pass()
	}
	if rl.policy.IsBlacklisted(userID) {
		return domain.BlockForever()
	}
	if rl.policy.IsWhitelisted(userID) {
		return domain.Pass()
	}

	now := rl.now()
	windowStart := now.Add(-rl.policy.Window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[userID]
	if !ok {
		w = &userWindow{lastReset: now}
		rl.windows[userID] = w
	}
	w.lastSeen = now

	if !w.lastReset.After(windowStart) {
		// The whole window has passed since the last reset: everything expired
		w.timestamps = w.timestamps[:0]
		w.lastReset = now
	} else {
		w.timestamps = pruneExpired(w.timestamps, windowStart)
	}

	if len(w.timestamps) >= rl.policy.RequestLimit {
		retryAfter := rl.policy.Window - now.Sub(w.timestamps[0])
		return domain.Block(retryAfter)
	}

	w.timestamps = append(w.timestamps, now)
	return domain.Pass()
}

// Admit collapses Check to a boolean gate
func (rl *RateLimiter) Admit(userID int64) bool {
	return rl.Check(userID).Allowed
}

// AdmitBlocking behaves like Admit but suspends the caller until the window
// permits a retry instead of returning false. It returns false only for a
// permanent (blacklist) denial or a cancelled context. Interactive event
// paths must use Check/Admit; this variant is for callers whose flow may
// stall, such as the console.
func (rl *RateLimiter) AdmitBlocking(ctx context.Context, userID int64) bool {
	for {
		d := rl.Check(userID)
		if d.Allowed {
			return true
		}
		if d.Permanent {
			return false
		}

		timer := time.NewTimer(d.RetryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// Len returns the number of tracked user records
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Cleanup drops user records that have been idle for several window-lengths.
// Purely a memory bound; correctness does not depend on it.
func (rl *RateLimiter) Cleanup() {
	cutoff := rl.now().Add(-time.Duration(staleAfterWindows) * rl.policy.Window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for id, w := range rl.windows {
		if w.lastSeen.Before(cutoff) {
			delete(rl.windows, id)
		}
	}
}

// StartJanitor runs Cleanup periodically until the context is cancelled
func (rl *RateLimiter) StartJanitor(ctx context.Context) {
	t := time.NewTicker(rl.policy.Window)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				rl.Cleanup()
				if rl.log != nil {
					rl.log.WithField("tracked_users", rl.Len()).Debug("Rate limiter janitor pass")
				}
			}
		}
	}()
}

// pruneExpired removes timestamps at or before windowStart, keeping order
func pruneExpired(timestamps []time.Time, windowStart time.Time) []time.Time {
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	return kept
}
