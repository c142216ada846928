package ingestion

import (
	"sync"
	"sync/atomic"
	"time"
)

// RunGuard admits at most one run at a time.
type RunGuard struct {
	running atomic.Bool

	mu            sync.Mutex
	lastCompleted time.Time
	now           func() time.Time
}

// NewRunGuard creates an idle guard.
func NewRunGuard() *RunGuard {
	return &RunGuard{now: time.Now}
}

// TryStart flips the guard to running. It returns false, changing nothing,
// if a run already holds it.
func (g *RunGuard) TryStart() bool {
	return g.running.CompareAndSwap(false, true)
}

// Release returns the guard to idle. A successful run records its
// completion time.
func (g *RunGuard) Release(succeeded bool) {
	if succeeded {
		g.mu.Lock()
		g.lastCompleted = g.now()
		g.mu.Unlock()
	}
	g.running.Store(false)
}

// Running reports whether a run holds the guard.
func (g *RunGuard) Running() bool {
	return g.running.Load()
}

// LastCompletedAt returns when the last successful run ended, or the zero
// time if none has.
func (g *RunGuard) LastCompletedAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastCompleted
}
