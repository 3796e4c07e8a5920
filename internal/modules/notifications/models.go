package notifications

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const Collection = "notifications"

// Notification is addressed to one user, to a list of roles, or both.
type Notification struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RecipientID *uuid.UUID     `gorm:"type:uuid;index" json:"recipient_id,omitempty"`
	TargetRoles pq.StringArray `gorm:"type:text[]" json:"target_roles,omitempty"`
	SenderID    *uuid.UUID     `gorm:"type:uuid" json:"sender_id,omitempty"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Message     string         `gorm:"type:text;not null" json:"message"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Receipt records that one user has read one notification. Read state is
// per reader so a role broadcast is read independently by each recipient.
type Receipt struct {
	NotificationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	ReadAt         time.Time `gorm:"not null"`
}

func (Receipt) TableName() string { return "notification_receipts" }

// View is a notification as one reader sees it.
type View struct {
	Notification
	Read   bool       `json:"read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}

type CreateNotificationRequest struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Message     string   `json:"message" validate:"required,max=5000"`
	RecipientID string   `json:"recipient_id" validate:"omitempty,uuid"`
	TargetRoles []string `json:"target_roles" validate:"omitempty,dive,oneof=user technician admin owner"`
}

type NotificationListResponse struct {
	Notifications []View `json:"notifications"`
	Total         int    `json:"total"`
	Unread        int    `json:"unread"`
}
