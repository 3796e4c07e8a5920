// Package modules hosts the per-collection feature modules (products,
// complaints, expenses, notifications) and the contract they share.
package modules

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/events"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Module is one collection exposed over the API.
type Module interface {
	// ID is the collection name; it is also the live stream name.
	ID() string

	// Models returns the GORM model pointers for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts the module under router. The group already
	// requires a token and has the caller's role resolved; elevated gates
	// a single route to admins and owners.
	RegisterRoutes(router fiber.Router, elevated fiber.Handler)
}

// Watcher is a collection that can be streamed live.
type Watcher interface {
	ID() string

	// Watch returns the change filter and snapshot loader for one caller.
	Watch(role access.Role, userID uuid.UUID) (live.Filter, live.Loader)
}

// Watchable is a Module whose collection can be streamed live.
type Watchable interface {
	Module
	Watcher
}

// Gated is implemented by watchers whose stream only admins and owners
// may open.
type Gated interface {
	ElevatedOnly() bool
}

// Emitter announces a committed write to live subscribers and the event log.
type Emitter struct {
	Live   live.Notifier
	Events events.Publisher
}

func (e Emitter) Emit(ctx context.Context, change live.Change, eventType string, actorID uuid.UUID, data any) {
	if e.Live != nil {
		e.Live.Notify(ctx, change)
	}
	if e.Events != nil {
		e.Events.Publish(ctx, events.Event{
			Type:       eventType,
			Collection: change.Collection,
			RecordID:   change.RecordID,
			OwnerID:    change.OwnerID,
			ActorID:    actorID,
			OccurredAt: time.Now().UTC(),
			Data:       data,
		})
	}
}

// OwnerFilter is the live filter for ownership-scoped collections.
func OwnerFilter(role access.Role, userID uuid.UUID) live.Filter {
	policy := access.PolicyFor(role, userID)
	return func(c live.Change) bool {
		return policy.Allows(c.OwnerID)
	}
}

// Principal returns the caller's id and resolved role, or writes a 401.
func Principal(c *fiber.Ctx) (uuid.UUID, access.Role, bool) {
	userID, err := session.GetUserID(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
		return uuid.Nil, "", false
	}
	return userID, session.GetRole(c), true
}

// Fail writes the standard error body.
func Fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}
