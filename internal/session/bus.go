package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/redisbus"
	"github.com/google/uuid"
)

const authChannel = "stockdesk:auth-state"

type authMessage struct {
	UserID  uuid.UUID `json:"user_id"`
	Session *Session  `json:"session"`
}

// BusBroadcaster carries auth-state changes between instances over Redis.
type BusBroadcaster struct {
	bus *redisbus.Bus
}

// Bridge wires hub to bus in both directions and returns once ctx is done.
func Bridge(ctx context.Context, hub *Hub, bus *redisbus.Bus) {
	hub.SetBroadcaster(&BusBroadcaster{bus: bus})
	bus.Listen(ctx, authChannel, func(payload []byte) {
		var msg authMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			slog.Warn("dropping malformed auth-state message", "error", err)
			return
		}
		hub.Deliver(msg.UserID, msg.Session)
	})
}

func (b *BusBroadcaster) Broadcast(ctx context.Context, userID uuid.UUID, s *Session) error {
	return b.bus.Publish(ctx, authChannel, authMessage{UserID: userID, Session: s})
}
