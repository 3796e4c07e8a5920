package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is both the credential record and the profile document the role
// resolver reads. One row per signed-up principal.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email          string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password       string         `gorm:"not null" json:"-"`
	Role           string         `gorm:"size:20;default:'user';index" json:"role"`
	DisplayName    string         `gorm:"size:255" json:"display_name,omitempty"`
	PhotoURL       string         `gorm:"type:text" json:"photo_url,omitempty"`
	StateName      string         `gorm:"size:255" json:"state_name"`
	DepartmentName string         `gorm:"size:255" json:"department_name"`
	GoogleUserID   *string        `gorm:"size:255;index" json:"-"`
	AuthProvider   string         `gorm:"size:50;default:'email'" json:"-"`
	SessionVersion int            `gorm:"not null;default:1" json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// Name is what the client shows for this user.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
