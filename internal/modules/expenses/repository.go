package expenses

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, e *Expense) error
	List(ctx context.Context, policy access.Policy) ([]Expense, error)
	// OwnedBetween returns userID's expenses created in [from, to).
	OwnedBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Expense, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, e *Expense) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (r *gormRepository) List(ctx context.Context, policy access.Policy) ([]Expense, error) {
	var out []Expense
	err := r.db.WithContext(ctx).
		Scopes(policy.Scope("user_id")).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (r *gormRepository) OwnedBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Expense, error) {
	var out []Expense
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list monthly expenses: %w", err)
	}
	return out, nil
}
