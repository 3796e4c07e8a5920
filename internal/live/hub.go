// Package live pushes the current result set of a collection query to
// connected clients whenever a relevant record changes.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/redisbus"
	"github.com/google/uuid"
)

const changeChannel = "stockdesk:changes"

// Change describes which record of which collection was written. It carries
// the addressing needed to decide who must reload, not the record itself.
type Change struct {
	Collection  string     `json:"collection"`
	RecordID    uuid.UUID  `json:"record_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	RecipientID *uuid.UUID `json:"recipient_id,omitempty"`
	TargetRoles []string   `json:"target_roles,omitempty"`
}

// Notifier is what mutation paths call after a successful write.
type Notifier interface {
	Notify(ctx context.Context, c Change)
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]*Subscription
	nextID uint64
	bus    *redisbus.Bus
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]*Subscription)}
}

// Bridge relays changes through Redis so subscribers on every instance see
// writes made on any of them.
func (h *Hub) Bridge(ctx context.Context, bus *redisbus.Bus) {
	h.bus = bus
	bus.Listen(ctx, changeChannel, func(payload []byte) {
		var c Change
		if err := json.Unmarshal(payload, &c); err != nil {
			slog.Warn("dropping malformed change message", "error", err)
			return
		}
		h.deliver(c)
	})
}

func (h *Hub) Notify(ctx context.Context, c Change) {
	h.deliver(c)
	if h.bus != nil {
		if err := h.bus.Publish(ctx, changeChannel, c); err != nil {
			slog.Warn("failed to relay change", "collection", c.Collection, "error", err)
		}
	}
}

func (h *Hub) deliver(c Change) {
	h.mu.RLock()
	targets := make([]*Subscription, 0, len(h.subs[c.Collection]))
	for _, s := range h.subs[c.Collection] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if s.filter(c) {
			s.markDirty()
		}
	}
}

// Active reports the number of started subscriptions on a collection.
func (h *Hub) Active(collection string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[collection])
}

func (h *Hub) register(s *Subscription) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	if h.subs[s.collection] == nil {
		h.subs[s.collection] = make(map[uint64]*Subscription)
	}
	h.subs[s.collection][h.nextID] = s
	return h.nextID
}

func (h *Hub) unregister(collection string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[collection], id)
	if len(h.subs[collection]) == 0 {
		delete(h.subs, collection)
	}
}
