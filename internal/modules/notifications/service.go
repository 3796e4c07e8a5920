package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/events"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/validation"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNoAudience           = errors.New("notification needs a recipient or target roles")
)

type Service struct {
	repo Repository
	emit modules.Emitter
	now  func() time.Time
}

func NewService(repo Repository, emit modules.Emitter) *Service {
	return &Service{repo: repo, emit: emit, now: time.Now}
}

// List returns what reaches the caller: notifications addressed to them and
// broadcasts to their role.
func (s *Service) List(ctx context.Context, role access.Role, userID uuid.UUID) (*NotificationListResponse, error) {
	views, err := s.repo.ListFor(ctx, role, userID)
	if err != nil {
		return nil, err
	}

	visible := make([]View, 0, len(views))
	unread := 0
	for _, v := range views {
		if !access.NotificationVisible(role, userID, v.RecipientID, v.TargetRoles) {
			continue
		}
		if !v.Read {
			unread++
		}
		visible = append(visible, v)
	}
	return &NotificationListResponse{Notifications: visible, Total: len(visible), Unread: unread}, nil
}

// MarkRead is idempotent. Notifications that do not reach the caller are
// reported as missing.
func (s *Service) MarkRead(ctx context.Context, role access.Role, userID, id uuid.UUID) error {
	n, err := s.repo.ByID(ctx, id)
	if err != nil {
		return err
	}
	if !access.NotificationVisible(role, userID, n.RecipientID, n.TargetRoles) {
		return ErrNotificationNotFound
	}
	if err := s.repo.MarkRead(ctx, id, userID, s.now().UTC()); err != nil {
		return err
	}

	// Only the reader's own view changed.
	s.emit.Emit(ctx, live.Change{Collection: Collection, RecordID: id, RecipientID: &userID},
		events.NotificationRead, userID, nil)
	return nil
}

// Create sends a notification. senderID is nil for notifications that
// arrive from outside the API.
func (s *Service) Create(ctx context.Context, senderID *uuid.UUID, req CreateNotificationRequest) (*Notification, error) {
	var recipient *uuid.UUID
	if req.RecipientID != "" {
		id, err := uuid.Parse(req.RecipientID)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient: %w", err)
		}
		recipient = &id
	}
	if recipient == nil && len(req.TargetRoles) == 0 {
		return nil, ErrNoAudience
	}

	n := &Notification{
		ID:          uuid.New(),
		RecipientID: recipient,
		TargetRoles: req.TargetRoles,
		SenderID:    senderID,
		Title:       strings.TrimSpace(req.Title),
		Message:     strings.TrimSpace(req.Message),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	var actor uuid.UUID
	if senderID != nil {
		actor = *senderID
	}
	s.emit.Emit(ctx, live.Change{
		Collection:  Collection,
		RecordID:    n.ID,
		RecipientID: n.RecipientID,
		TargetRoles: n.TargetRoles,
	}, events.NotificationCreated, actor, n)
	return n, nil
}

// HandleMessage ingests a notification published to Kafka by another
// system. The payload has the same shape as the create request.
func (s *Service) HandleMessage(ctx context.Context, m kafka.Message) error {
	var req CreateNotificationRequest
	if err := json.Unmarshal(m.Value, &req); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	if err := validation.Struct(req); err != nil {
		return fmt.Errorf("invalid notification: %w", err)
	}
	if _, err := s.Create(ctx, nil, req); err != nil {
		return fmt.Errorf("ingest notification: %w", err)
	}
	return nil
}

func (s *Service) Watch(role access.Role, userID uuid.UUID) (live.Filter, live.Loader) {
	filter := func(c live.Change) bool {
		return access.NotificationVisible(role, userID, c.RecipientID, c.TargetRoles)
	}
	return filter, func(ctx context.Context) (any, error) {
		return s.List(ctx, role, userID)
	}
}
