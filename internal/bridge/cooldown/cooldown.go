// Package cooldown bounds how often a given game identity may perform actions
// against the external wiki. The table is in-memory and advisory: it limits
// request frequency, not correctness, and losing it on restart is acceptable.
package cooldown

import (
	"sync"
	"time"

	id "wikibridge/pkg/domain"
)

// MinWindow is the enforced floor for the cooldown window. Configured values
// below it are clamped up, mirroring the wiki-facing abuse policy.
const MinWindow = 20 * time.Second

// Tracker records the last request time per game identity.
type Tracker struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[id.GameID]time.Time
}

// New creates a tracker with the given window, clamped to MinWindow.
func New(window time.Duration) *Tracker {
	if window < MinWindow {
		window = MinWindow
	}
	return &Tracker{
		window: window,
		now:    time.Now,
		last:   make(map[id.GameID]time.Time),
	}
}

// OnCooldown reports whether the identity acted within the current window.
func (t *Tracker) OnCooldown(gameID id.GameID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[gameID]
	if !ok {
		return false
	}
	return t.now().Sub(last) < t.window
}

// Remaining returns how long until the identity may act again. Zero when the
// identity is not on cooldown.
func (t *Tracker) Remaining(gameID id.GameID) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[gameID]
	if !ok {
		return 0
	}
	remaining := t.window - t.now().Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Mark records the current time as the identity's last request.
func (t *Tracker) Mark(gameID id.GameID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[gameID] = t.now()
}
