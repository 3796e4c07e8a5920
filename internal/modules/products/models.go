package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const Collection = "products"

const (
	KindProduct = "product"
	KindBill    = "bill"
	KindChallan = "challan"
)

type Product struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	Price        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"price"`
	SerialNumber string          `gorm:"size:255;index" json:"serial_number"`
	Kind         string          `gorm:"size:20;default:'product'" json:"kind"`
	ImageKey     string          `gorm:"type:text" json:"-"`
	ImageURL     string          `gorm:"type:text" json:"image_url,omitempty"`
	AssignedTo   *uuid.UUID      `gorm:"type:uuid;index" json:"assigned_to"`
	AssignedAt   *time.Time      `json:"assigned_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (p Product) OwnerID() uuid.UUID { return p.UserID }

// CreateProductRequest arrives as JSON or as multipart form fields next to
// an optional "image" file part.
type CreateProductRequest struct {
	Name         string `json:"name" form:"name" validate:"required,max=255"`
	Price        string `json:"price" form:"price" validate:"required"`
	SerialNumber string `json:"serial_number" form:"serial_number" validate:"required,max=255"`
	Kind         string `json:"kind" form:"kind" validate:"omitempty,oneof=product bill challan"`
}

type AssignProductRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type ProductListResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}
