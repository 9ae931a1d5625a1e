// Package cooldown implements the caller-side export gate: a busy flag held
// while an export runs, followed by a short window in which new requests are
// still refused.
package cooldown

import (
	"sync"
	"time"
)

// Gate is safe for concurrent use.
type Gate struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	busy   bool
	until  time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// New creates an open gate with the given post-release window.
func New(window time.Duration, opts ...Option) *Gate {
	if window < 0 {
		window = 0
	}
	g := &Gate{window: window, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TryAcquire closes the gate and reports true if it was open.
func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy || g.now().Before(g.until) {
		return false
	}
	g.busy = true
	return true
}

// Release clears the busy flag and starts the cooldown window. Releasing an
// idle gate does nothing.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.busy {
		return
	}
	g.busy = false
	g.until = g.now().Add(g.window)
}

// Busy reports whether a job holds the gate.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}

// Ready reports whether TryAcquire would succeed now.
func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.busy && !g.now().Before(g.until)
}

// Remaining is the time left in the cooldown window; zero while busy or open.
func (g *Gate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return 0
	}
	return max(g.until.Sub(g.now()), 0)
}
