package session

import "sync"

// Gate is a level-triggered flag: Set()/Clear() change its level, and
// any number of goroutines can select on Chan() for the
// next time it becomes set, without polling. This replaces the
// "sleep and recheck a bool" idiom the turn loop would otherwise need
// for the reconnect gate and the per-player setup-ready flags.
type Gate struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewGate constructs a Gate starting in the given level.
func NewGate(open bool) *Gate {
	g := &Gate{ch: make(chan struct{})}
	if open {
		close(g.ch)
	}
	return g
}

// Set raises the gate, waking any current and future waiters until
// the next Clear.
func (g *Gate) Set() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
	default:
		close(g.ch)
	}
}

// Clear lowers the gate. Waiters that already observed the previous
// open channel are unaffected; channels from new Chan() calls block again.
func (g *Gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
		g.ch = make(chan struct{})
	default:
	}
}

// IsSet reports the current level.
func (g *Gate) IsSet() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}

// Chan returns the channel that closes the next time the gate
// becomes set. Callers that need to select alongside a timer or
// ticker should snapshot this once and select on it, rather than
// calling Chan() repeatedly (each Clear() produces a new channel).
func (g *Gate) Chan() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ch
}
