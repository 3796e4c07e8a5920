package session

import (
	"context"
	"sync"
)

// Resolver tracks the current session of one auth-state stream. It holds a
// single subscription from construction until Stop. A stream that never
// emits leaves the resolver initializing; there is no retry.
type Resolver struct {
	mu           sync.RWMutex
	current      *Session
	initializing bool

	ready     chan struct{}
	readyOnce sync.Once
	changes   chan *Session

	unsubscribe func()
	stopOnce    sync.Once
}

func NewResolver(src Source) *Resolver {
	r := &Resolver{
		initializing: true,
		ready:        make(chan struct{}),
		changes:      make(chan *Session, 1),
	}
	r.unsubscribe = src.Subscribe(r.onEvent)
	return r
}

func (r *Resolver) onEvent(s *Session) {
	r.mu.Lock()
	r.current = s
	r.initializing = false
	// Keep only the latest state for slow readers.
	select {
	case <-r.changes:
	default:
	}
	r.changes <- s
	r.mu.Unlock()

	r.readyOnce.Do(func() { close(r.ready) })
}

// Current returns the last resolved session, nil when signed out or still
// initializing.
func (r *Resolver) Current() *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Initializing is true until the first event arrives.
func (r *Resolver) Initializing() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initializing
}

// Wait blocks until the first event or ctx is done.
func (r *Resolver) Wait(ctx context.Context) error {
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Changes delivers state changes, latest wins.
func (r *Resolver) Changes() <-chan *Session {
	return r.changes
}

// Stop releases the subscription. Safe to call more than once.
func (r *Resolver) Stop() {
	r.stopOnce.Do(func() {
		if r.unsubscribe != nil {
			r.unsubscribe()
		}
	})
}
