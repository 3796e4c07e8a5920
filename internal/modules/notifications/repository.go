package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// ListFor returns the notifications addressed to userID directly or to
	// role, with userID's read state.
	ListFor(ctx context.Context, role access.Role, userID uuid.UUID) ([]View, error)
	ByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	// MarkRead stores a receipt; an existing receipt is left untouched.
	MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, n *Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

type viewRow struct {
	Notification
	ReadAt *time.Time
}

func (r *gormRepository) ListFor(ctx context.Context, role access.Role, userID uuid.UUID) ([]View, error) {
	var rows []viewRow
	err := r.db.WithContext(ctx).
		Table("notifications AS n").
		Select("n.*, nr.read_at").
		Joins("LEFT JOIN notification_receipts AS nr ON nr.notification_id = n.id AND nr.user_id = ?", userID).
		Where("n.deleted_at IS NULL").
		Where("n.recipient_id = ? OR ? = ANY(n.target_roles)", userID, string(role)).
		Order("n.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]View, 0, len(rows))
	for _, row := range rows {
		out = append(out, View{Notification: row.Notification, Read: row.ReadAt != nil, ReadAt: row.ReadAt})
	}
	return out, nil
}

func (r *gormRepository) ByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	var n Notification
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read notification: %w", err)
	}
	return &n, nil
}

func (r *gormRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Receipt{NotificationID: id, UserID: userID, ReadAt: at}).Error
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
