package products

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, p *Product) error
	List(ctx context.Context, policy access.Policy) ([]Product, error)
	Unassigned(ctx context.Context) ([]Product, error)
	ByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Assign(ctx context.Context, id, assignee uuid.UUID, at time.Time) error
	Count(ctx context.Context, policy access.Policy) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, p *Product) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *gormRepository) List(ctx context.Context, policy access.Policy) ([]Product, error) {
	var out []Product
	err := r.db.WithContext(ctx).
		Scopes(policy.Scope("user_id")).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (r *gormRepository) Unassigned(ctx context.Context) ([]Product, error) {
	var out []Product
	err := r.db.WithContext(ctx).
		Where("assigned_to IS NULL").
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list unassigned products: %w", err)
	}
	return out, nil
}

func (r *gormRepository) ByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read product: %w", err)
	}
	return &p, nil
}

func (r *gormRepository) Assign(ctx context.Context, id, assignee uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).Updates(map[string]interface{}{
		"assigned_to": assignee,
		"assigned_at": at,
	})
	if res.Error != nil {
		return fmt.Errorf("assign product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *gormRepository) Count(ctx context.Context, policy access.Policy) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Product{}).Scopes(policy.Scope("user_id")).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}
