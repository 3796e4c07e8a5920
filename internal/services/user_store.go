package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/roles"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/session"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStore reads and writes profile rows. It is also the role resolver's
// backing store.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) RoleOf(ctx context.Context, userID uuid.UUID) (string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "role").Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", roles.ErrProfileNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read role: %w", err)
	}
	return user.Role, nil
}

// SessionVersion is the session ledger's backing read.
func (s *UserStore) SessionVersion(ctx context.Context, userID uuid.UUID) (int, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "session_version").Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, session.ErrUnknownUser
	}
	if err != nil {
		return 0, fmt.Errorf("read session version: %w", err)
	}
	return user.SessionVersion, nil
}

func (s *UserStore) ByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	return &user, nil
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Assignable lists the users a product may be assigned to.
func (s *UserStore) Assignable(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("role IN ?", access.AssignableRoles()).
		Order("display_name ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list assignable users: %w", err)
	}
	return users, nil
}

func (s *UserStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *UserStore) Update(ctx context.Context, userID uuid.UUID, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
