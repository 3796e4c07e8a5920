package dto

import (
	"time"

	"github.com/google/uuid"
)

// UpdateProfileRequest is a partial update; nil fields are left untouched.
type UpdateProfileRequest struct {
	DisplayName    *string `json:"display_name" validate:"omitempty,max=255"`
	PhotoURL       *string `json:"photo_url" validate:"omitempty,url"`
	StateName      *string `json:"state_name" validate:"omitempty,max=255"`
	DepartmentName *string `json:"department_name" validate:"omitempty,max=255"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user technician admin owner"`
}

type ProfileResponse struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name,omitempty"`
	PhotoURL       string    `json:"photo_url,omitempty"`
	Role           string    `json:"role"`
	StateName      string    `json:"state_name"`
	DepartmentName string    `json:"department_name"`
	CreatedAt      time.Time `json:"created_at"`
}

type UserListResponse struct {
	Users []ProfileResponse `json:"users"`
	Total int               `json:"total"`
}

type DashboardResponse struct {
	Role            string `json:"role"`
	TotalUsers      int64  `json:"total_users"`
	MonthlySpending string `json:"monthly_spending"`
	TotalProducts   int64  `json:"total_products"`
}
