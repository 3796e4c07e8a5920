package complaints

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, c *Complaint) error
	List(ctx context.Context, policy access.Policy) ([]Complaint, error)
	ByID(ctx context.Context, id uuid.UUID) (*Complaint, error)
	// SetStatus moves a complaint from one status to another. It reports
	// ErrStatusConflict when the stored status is no longer from.
	SetStatus(ctx context.Context, id uuid.UUID, from, to string) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, c *Complaint) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("insert complaint: %w", err)
	}
	return nil
}

func (r *gormRepository) List(ctx context.Context, policy access.Policy) ([]Complaint, error) {
	var out []Complaint
	err := r.db.WithContext(ctx).
		Scopes(policy.Scope("user_id")).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return out, nil
}

func (r *gormRepository) ByID(ctx context.Context, id uuid.UUID) (*Complaint, error) {
	var c Complaint
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrComplaintNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read complaint: %w", err)
	}
	return &c, nil
}

func (r *gormRepository) SetStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	res := r.db.WithContext(ctx).Model(&Complaint{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("update complaint status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}
