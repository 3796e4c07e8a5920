package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Session identifies the signed-in principal.
type Session struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
}

// Source is one auth-state stream. Subscribe delivers every state change to
// fn, a nil session meaning signed out, and returns the unsubscribe func.
type Source interface {
	Subscribe(fn func(*Session)) (unsubscribe func())
}

// Broadcaster forwards auth-state changes to other instances.
type Broadcaster interface {
	Broadcast(ctx context.Context, userID uuid.UUID, s *Session) error
}

// Hub fans auth-state changes out to the streams open for each user.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[uint64]func(*Session)
	nextID uint64
	remote Broadcaster
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[uint64]func(*Session))}
}

// SetBroadcaster attaches a cross-instance transport. Call before serving.
func (h *Hub) SetBroadcaster(b Broadcaster) {
	h.remote = b
}

// Publish records a state change for userID locally and on every peer.
func (h *Hub) Publish(ctx context.Context, userID uuid.UUID, s *Session) error {
	h.Deliver(userID, s)
	if h.remote != nil {
		return h.remote.Broadcast(ctx, userID, s)
	}
	return nil
}

// SignedOut is shorthand for publishing an absent session.
func (h *Hub) SignedOut(ctx context.Context, userID uuid.UUID) error {
	return h.Publish(ctx, userID, nil)
}

// Deliver hands a state change to local subscribers only.
func (h *Hub) Deliver(userID uuid.UUID, s *Session) {
	h.mu.RLock()
	fns := make([]func(*Session), 0, len(h.subs[userID]))
	for _, fn := range h.subs[userID] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Subscribers reports how many streams are open for userID.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// subscribe registers fn and hands it initial before any Deliver can reach
// it, so a sign-out racing the subscription is never overwritten.
func (h *Hub) subscribe(userID uuid.UUID, fn func(*Session), initial *Session) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uint64]func(*Session))
	}
	h.subs[userID][id] = fn
	fn(initial)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
		})
	}
}

// Source returns the auth-state stream for one user. The first event is the
// given initial session, delivered on subscribe.
func (h *Hub) Source(userID uuid.UUID, initial *Session) Source {
	return &userSource{hub: h, userID: userID, initial: initial}
}

type userSource struct {
	hub     *Hub
	userID  uuid.UUID
	initial *Session
}

func (s *userSource) Subscribe(fn func(*Session)) func() {
	return s.hub.subscribe(s.userID, fn, s.initial)
}
