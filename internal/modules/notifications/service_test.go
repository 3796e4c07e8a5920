package notifications

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu       sync.Mutex
	items    []Notification
	receipts map[[2]uuid.UUID]time.Time
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{receipts: make(map[[2]uuid.UUID]time.Time)}
}

func (r *memoryRepo) Create(_ context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *n)
	return nil
}

func (r *memoryRepo) ListFor(_ context.Context, role access.Role, userID uuid.UUID) ([]View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []View
	for _, n := range r.items {
		if !access.NotificationVisible(role, userID, n.RecipientID, n.TargetRoles) {
			continue
		}
		v := View{Notification: n}
		if at, ok := r.receipts[[2]uuid.UUID{n.ID, userID}]; ok {
			v.Read = true
			v.ReadAt = &at
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *memoryRepo) ByID(_ context.Context, id uuid.UUID) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.ID == id {
			cp := n
			return &cp, nil
		}
	}
	return nil, ErrNotificationNotFound
}

func (r *memoryRepo) MarkRead(_ context.Context, id, userID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]uuid.UUID{id, userID}
	if _, ok := r.receipts[key]; !ok {
		r.receipts[key] = at
	}
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []live.Change
}

func (n *recordingNotifier) Notify(_ context.Context, c live.Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
}

func TestDualAddressing(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo(), modules.Emitter{})
	tech, other := uuid.New(), uuid.New()

	_, err := svc.Create(ctx, nil, CreateNotificationRequest{Title: "direct", Message: "m", RecipientID: tech.String()})
	require.NoError(t, err)
	_, err = svc.Create(ctx, nil, CreateNotificationRequest{Title: "techs", Message: "m", TargetRoles: []string{"technician"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, nil, CreateNotificationRequest{Title: "admins", Message: "m", TargetRoles: []string{"admin"}})
	require.NoError(t, err)

	resp, err := svc.List(ctx, access.RoleTechnician, tech)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 2, resp.Unread)

	resp, err = svc.List(ctx, access.RoleUser, other)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Total)

	resp, err = svc.List(ctx, access.RoleAdmin, other)
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "admins", resp.Notifications[0].Title)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	notifier := &recordingNotifier{}
	svc := NewService(repo, modules.Emitter{Live: notifier})
	user := uuid.New()

	n, err := svc.Create(ctx, nil, CreateNotificationRequest{Title: "t", Message: "m", RecipientID: user.String()})
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, access.RoleUser, user, n.ID))
	first, err := svc.List(ctx, access.RoleUser, user)
	require.NoError(t, err)
	require.True(t, first.Notifications[0].Read)
	readAt := *first.Notifications[0].ReadAt

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	require.NoError(t, svc.MarkRead(ctx, access.RoleUser, user, n.ID))
	second, err := svc.List(ctx, access.RoleUser, user)
	require.NoError(t, err)
	assert.True(t, second.Notifications[0].Read)
	assert.Equal(t, readAt, *second.Notifications[0].ReadAt)
	assert.Equal(t, 0, second.Unread)

	last := notifier.changes[len(notifier.changes)-1]
	require.NotNil(t, last.RecipientID)
	assert.Equal(t, user, *last.RecipientID)
}

func TestMarkReadHidesOtherUsersNotifications(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo(), modules.Emitter{})

	n, err := svc.Create(ctx, nil, CreateNotificationRequest{Title: "t", Message: "m", RecipientID: uuid.NewString()})
	require.NoError(t, err)

	err = svc.MarkRead(ctx, access.RoleOwner, uuid.New(), n.ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestCreateNeedsAudience(t *testing.T) {
	svc := NewService(newMemoryRepo(), modules.Emitter{})

	_, err := svc.Create(context.Background(), nil, CreateNotificationRequest{Title: "t", Message: "m"})
	assert.ErrorIs(t, err, ErrNoAudience)
}

func TestHandleMessage(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, modules.Emitter{})

	err := svc.HandleMessage(context.Background(), kafka.Message{
		Value: []byte(`{"title":"Stock low","message":"Reorder drills","target_roles":["admin","owner"]}`),
	})
	require.NoError(t, err)
	require.Len(t, repo.items, 1)
	assert.Nil(t, repo.items[0].SenderID)
	assert.ElementsMatch(t, []string{"admin", "owner"}, []string(repo.items[0].TargetRoles))

	err = svc.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{"title":"x"}`)})
	assert.Error(t, err)

	err = svc.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{"title":"x","message":"y","target_roles":["root"]}`)})
	assert.Error(t, err)
	assert.Len(t, repo.items, 1)
}

func TestWatchFilter(t *testing.T) {
	svc := NewService(newMemoryRepo(), modules.Emitter{})
	self := uuid.New()
	other := uuid.New()

	filter, _ := svc.Watch(access.RoleTechnician, self)
	assert.True(t, filter(live.Change{RecipientID: &self}))
	assert.False(t, filter(live.Change{RecipientID: &other}))
	assert.True(t, filter(live.Change{TargetRoles: []string{"technician"}}))
	assert.False(t, filter(live.Change{TargetRoles: []string{"admin"}}))
}
