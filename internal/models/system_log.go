package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SystemLog is one ERROR+ record kept for the admin to inspect. Collection
// and RecordID locate the document a failed write was about.
type SystemLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Timestamp  time.Time      `gorm:"not null;index" json:"timestamp"`
	Level      string         `gorm:"size:10;not null" json:"level"`
	Message    string         `gorm:"type:text" json:"message"`
	RequestID  string         `gorm:"size:64;index" json:"request_id,omitempty"`
	UserID     *string        `gorm:"size:36;index" json:"user_id,omitempty"`
	Collection string         `gorm:"size:32;index" json:"collection,omitempty"`
	RecordID   string         `gorm:"size:36" json:"record_id,omitempty"`
	Action     string         `gorm:"size:100" json:"action,omitempty"`
	Error      string         `gorm:"type:text" json:"error,omitempty"`
	LatencyMs  int            `json:"latency_ms"`
	Extra      datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"extra"`
}
