package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/events"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/roles"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/session"
	"github.com/google/uuid"
)

var (
	ErrUnknownRole      = errors.New("unknown role")
	ErrRoleNotGrantable = errors.New("not allowed to grant this role")
	ErrOwnRoleImmutable = errors.New("cannot change your own role")
	ErrNothingToUpdate  = errors.New("no profile fields to update")
)

// UserDirectory is the profile persistence the user service needs.
type UserDirectory interface {
	ByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Assignable(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, userID uuid.UUID, fields map[string]interface{}) error
}

type UserService struct {
	users    UserDirectory
	roles    *roles.Resolver
	sessions *session.Hub
	events   events.Publisher
	changes  live.Notifier
}

func NewUserService(users UserDirectory, resolver *roles.Resolver, sessions *session.Hub,
	publisher events.Publisher, changes live.Notifier) *UserService {
	return &UserService{
		users:    users,
		roles:    resolver,
		sessions: sessions,
		events:   publisher,
		changes:  changes,
	}
}

func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.ByID(ctx, userID)
}

// UpdateProfile applies the non-nil fields of req. The cached role is
// dropped so the next request reads the edited profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *dto.UpdateProfileRequest) (*models.User, error) {
	fields := map[string]interface{}{}
	if req.DisplayName != nil {
		fields["display_name"] = strings.TrimSpace(*req.DisplayName)
	}
	if req.PhotoURL != nil {
		fields["photo_url"] = strings.TrimSpace(*req.PhotoURL)
	}
	if req.StateName != nil {
		fields["state_name"] = strings.TrimSpace(*req.StateName)
	}
	if req.DepartmentName != nil {
		fields["department_name"] = strings.TrimSpace(*req.DepartmentName)
	}
	if len(fields) == 0 {
		return nil, ErrNothingToUpdate
	}

	if err := s.users.Update(ctx, userID, fields); err != nil {
		return nil, err
	}
	s.roles.Invalidate(ctx, userID)

	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.publishSession(ctx, user)
	notifyUsers(ctx, s.changes, userID)
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) Assignable(ctx context.Context) ([]models.User, error) {
	return s.users.Assignable(ctx)
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.users.Count(ctx)
}

// SetRole changes targetID's role on behalf of actor. The actor must be
// allowed to grant the new role, and only an owner may change the role of
// an elevated user.
func (s *UserService) SetRole(ctx context.Context, actorID uuid.UUID, actorRole access.Role, targetID uuid.UUID, roleName string) (*models.User, error) {
	newRole, ok := access.ParseRole(roleName)
	if !ok {
		return nil, ErrUnknownRole
	}
	if actorID == targetID {
		return nil, ErrOwnRoleImmutable
	}
	if !actorRole.CanGrant(newRole) {
		return nil, ErrRoleNotGrantable
	}

	target, err := s.users.ByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	current, _ := access.ParseRole(target.Role)
	if current.IsElevated() && actorRole != access.RoleOwner {
		return nil, ErrRoleNotGrantable
	}
	if current == newRole {
		return target, nil
	}

	if err := s.users.Update(ctx, targetID, map[string]interface{}{"role": string(newRole)}); err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	s.roles.Invalidate(ctx, targetID)
	target.Role = string(newRole)

	slog.Info("role changed", "user_id", targetID.String(), "action", "set_role",
		"from", current.String(), "to", newRole.String(), "actor_id", actorID.String())

	s.events.Publish(ctx, events.Event{
		Type:       events.UserRoleChanged,
		Collection: "users",
		RecordID:   targetID,
		OwnerID:    targetID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Data:       ToUserResponse(target),
	})
	s.publishSession(ctx, target)
	notifyUsers(ctx, s.changes, targetID)
	return target, nil
}

// publishSession tells open streams of the user that their profile changed.
func (s *UserService) publishSession(ctx context.Context, user *models.User) {
	if s.sessions == nil {
		return
	}
	err := s.sessions.Publish(ctx, user.ID, &session.Session{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
	})
	if err != nil {
		slog.Warn("failed to broadcast session update", "user_id", user.ID.String(), "error", err)
	}
}

// ToProfileResponse is the profile view returned by the profile and users
// endpoints.
func ToProfileResponse(user *models.User) dto.ProfileResponse {
	role, _ := access.ParseRole(user.Role)
	return dto.ProfileResponse{
		ID:             user.ID,
		Email:          user.Email,
		DisplayName:    user.DisplayName,
		PhotoURL:       user.PhotoURL,
		Role:           role.String(),
		StateName:      user.StateName,
		DepartmentName: user.DepartmentName,
		CreatedAt:      user.CreatedAt,
	}
}
