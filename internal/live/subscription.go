package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var ErrAlreadyStarted = errors.New("subscription already started")

// Filter decides whether a change can affect this subscriber's result set.
type Filter func(Change) bool

// Loader returns the subscriber's current result set.
type Loader func(ctx context.Context) (any, error)

// Subscription is a cancellable live query. Start acquires it, Stop
// releases it; a failed Start releases everything it acquired.
type Subscription struct {
	hub        *Hub
	collection string
	filter     Filter
	load       Loader

	id      uint64
	dirty   chan struct{}
	updates chan any
	cancel  context.CancelFunc
	done    chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

func (h *Hub) NewSubscription(collection string, filter Filter, load Loader) *Subscription {
	return &Subscription{
		hub:        h,
		collection: collection,
		filter:     filter,
		load:       load,
		dirty:      make(chan struct{}, 1),
		updates:    make(chan any, 1),
		done:       make(chan struct{}),
	}
}

// Start registers with the hub and emits the initial snapshot. Changes
// that arrive while the snapshot loads trigger one more reload.
func (s *Subscription) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	if s.stopped {
		s.mu.Unlock()
		return context.Canceled
	}
	s.started = true
	s.id = s.hub.register(s)
	s.mu.Unlock()

	snapshot, err := s.load(ctx)
	if err != nil {
		s.hub.unregister(s.collection, s.id)
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		close(s.done)
		return fmt.Errorf("initial %s snapshot: %w", s.collection, err)
	}
	s.push(snapshot)

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.stopped {
		// Stop ran while the snapshot was loading.
		s.mu.Unlock()
		cancel()
		close(s.done)
		return context.Canceled
	}
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.dirty:
			snapshot, err := s.load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("live reload failed", "collection", s.collection, "error", err)
				continue
			}
			s.push(snapshot)
		}
	}
}

func (s *Subscription) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// push replaces any undelivered snapshot with the newer one.
func (s *Subscription) push(snapshot any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.updates:
	default:
	}
	s.updates <- snapshot
}

// Updates yields snapshots in load order; a slow reader only sees the latest.
func (s *Subscription) Updates() <-chan any {
	return s.updates
}

// Done is closed once the subscription has fully stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Stop unregisters the subscription and waits for its reload loop to exit.
// Safe to call more than once, and before Start.
func (s *Subscription) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	cancel := s.cancel
	s.mu.Unlock()

	if !started {
		close(s.done)
		return
	}
	s.hub.unregister(s.collection, s.id)
	if cancel != nil {
		cancel()
	}
	<-s.done
}
