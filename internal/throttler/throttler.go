// Package throttler tracks per-key cooldowns: an action may pass only when
// at least the configured interval has elapsed since it last passed.
// In-process state is enough here because the egress lease guarantees a
// single consumer per resource.
package throttler

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type Throttler struct {
	interval time.Duration
	clock    clock.Clock

	mu    sync.Mutex
	stamp map[string]time.Time
}

func New(interval time.Duration) *Throttler {
	return &Throttler{
		interval: interval,
		clock:    clock.New(),
		stamp:    make(map[string]time.Time),
	}
}

// MayPass reports whether the action named by (name, tag) is outside its
// cooldown, stamping the current time when it is.
func (t *Throttler) MayPass(name, tag string) bool {
	key := name + "#" + tag
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.stamp[key]; ok && now.Sub(last) <= t.interval {
		return false
	}
	t.stamp[key] = now
	return true
}

// Until returns how long before the action may pass again; zero when it may
// pass now.
func (t *Throttler) Until(name, tag string) time.Duration {
	key := name + "#" + tag
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.stamp[key]
	if !ok {
		return 0
	}
	remaining := t.interval - now.Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}
