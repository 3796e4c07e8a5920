package services

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/roles"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextUsers(t *testing.T, sub *live.Subscription) dto.UserListResponse {
	t.Helper()
	select {
	case snapshot := <-sub.Updates():
		list, ok := snapshot.(dto.UserListResponse)
		require.True(t, ok, "unexpected snapshot %T", snapshot)
		return list
	case <-time.After(time.Second):
		t.Fatal("no users snapshot")
		return dto.UserListResponse{}
	}
}

func emails(list dto.UserListResponse) []string {
	out := make([]string, 0, len(list.Users))
	for _, u := range list.Users {
		out = append(out, u.Email)
	}
	return out
}

func TestUsersWatcherFollowsRoleChanges(t *testing.T) {
	ctx := context.Background()
	owner := &models.User{ID: uuid.New(), Email: "owner@example.com", Role: "owner"}
	tech := &models.User{ID: uuid.New(), Email: "tech@example.com", Role: "technician"}
	plain := &models.User{ID: uuid.New(), Email: "plain@example.com", Role: "user"}
	dir := newMemoryDirectory(owner, tech, plain)

	hub := live.NewHub()
	resolver := roles.NewResolver(dir, roles.NewMemoryCache(time.Minute))
	svc := NewUserService(dir, resolver, session.NewHub(), &recordingPublisher{}, hub)
	watcher := NewUsersWatcher(svc)
	assert.Equal(t, "users", watcher.ID())
	assert.True(t, watcher.ElevatedOnly())

	filter, load := watcher.Watch(access.RoleOwner, owner.ID)
	sub := hub.NewSubscription(watcher.ID(), filter, load)
	require.NoError(t, sub.Start(ctx))
	defer sub.Stop()

	first := nextUsers(t, sub)
	assert.ElementsMatch(t, []string{"tech@example.com", "plain@example.com"}, emails(first))
	assert.Equal(t, 2, first.Total)

	_, err := svc.SetRole(ctx, owner.ID, access.RoleOwner, tech.ID, "admin")
	require.NoError(t, err)

	next := nextUsers(t, sub)
	assert.Equal(t, []string{"plain@example.com"}, emails(next), "admins are not assignable")
}

func TestUsersWatcherShutsOutRestrictedRoles(t *testing.T) {
	dir := newMemoryDirectory(&models.User{ID: uuid.New(), Email: "tech@example.com", Role: "technician"})
	svc := NewUserService(dir, roles.NewResolver(dir, roles.NewMemoryCache(time.Minute)), nil, &recordingPublisher{}, nil)

	filter, load := NewUsersWatcher(svc).Watch(access.RoleTechnician, uuid.New())
	assert.False(t, filter(live.Change{Collection: UsersCollection, RecordID: uuid.New()}))

	snapshot, err := load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshot.(dto.UserListResponse).Users)
}
