// Package events publishes domain changes to Kafka and consumes externally
// produced notifications.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ProductCreated         = "product.created"
	ProductAssigned        = "product.assigned"
	ComplaintCreated       = "complaint.created"
	ComplaintStatusChanged = "complaint.status_changed"
	ExpenseCreated         = "expense.created"
	NotificationCreated    = "notification.created"
	NotificationRead       = "notification.read"
	UserRoleChanged        = "user.role_changed"
)

// Event is one domain change. Data carries the record as the API returns it.
type Event struct {
	Type       string    `json:"type"`
	Collection string    `json:"collection"`
	RecordID   uuid.UUID `json:"record_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

// Publisher is fire-and-log: delivery failures are logged by the
// implementation and never fail the request that caused the event.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Nop drops events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
