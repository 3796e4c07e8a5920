package services

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/live"
	"github.com/google/uuid"
)

// UsersCollection is the live stream behind the Users and Assign screens.
const UsersCollection = "users"

// UsersWatcher streams the assignable users to admins and owners.
type UsersWatcher struct {
	users *UserService
}

func NewUsersWatcher(users *UserService) *UsersWatcher {
	return &UsersWatcher{users: users}
}

func (w *UsersWatcher) ID() string { return UsersCollection }

// ElevatedOnly keeps restricted roles off the stream entirely.
func (w *UsersWatcher) ElevatedOnly() bool { return true }

// Watch sees every profile change. The snapshot is the user and
// technician profiles, the same set the Assign screen offers.
func (w *UsersWatcher) Watch(role access.Role, _ uuid.UUID) (live.Filter, live.Loader) {
	if !role.IsElevated() {
		return func(live.Change) bool { return false }, func(context.Context) (any, error) {
			return dto.UserListResponse{Users: []dto.ProfileResponse{}}, nil
		}
	}
	return func(live.Change) bool { return true }, w.load
}

func (w *UsersWatcher) load(ctx context.Context) (any, error) {
	users, err := w.users.Assignable(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProfileResponse, 0, len(users))
	for i := range users {
		out = append(out, ToProfileResponse(&users[i]))
	}
	return dto.UserListResponse{Users: out, Total: len(out)}, nil
}

func notifyUsers(ctx context.Context, n live.Notifier, userID uuid.UUID) {
	if n == nil {
		return
	}
	n.Notify(ctx, live.Change{Collection: UsersCollection, RecordID: userID, OwnerID: userID})
}
