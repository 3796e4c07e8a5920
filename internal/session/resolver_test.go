package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualSource emits only when told to.
type manualSource struct {
	fn           func(*Session)
	unsubscribed int
}

func (m *manualSource) Subscribe(fn func(*Session)) func() {
	m.fn = fn
	return func() { m.unsubscribed++ }
}

func TestResolverInitializingUntilFirstEvent(t *testing.T) {
	src := &manualSource{}
	r := NewResolver(src)
	defer r.Stop()

	assert.True(t, r.Initializing())
	assert.Nil(t, r.Current())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)

	s := &Session{UserID: uuid.New(), Email: "a@example.com"}
	src.fn(s)

	assert.False(t, r.Initializing())
	assert.Equal(t, s, r.Current())
	require.NoError(t, r.Wait(context.Background()))
}

func TestResolverAbsentSessionStillResolves(t *testing.T) {
	src := &manualSource{}
	r := NewResolver(src)
	defer r.Stop()

	src.fn(nil)

	assert.False(t, r.Initializing())
	assert.Nil(t, r.Current())
}

func TestResolverChangesLatestWins(t *testing.T) {
	src := &manualSource{}
	r := NewResolver(src)
	defer r.Stop()

	first := &Session{UserID: uuid.New()}
	src.fn(first)
	src.fn(nil)

	select {
	case got := <-r.Changes():
		assert.Nil(t, got)
	default:
		t.Fatal("expected a pending change")
	}
}

func TestResolverStopIsIdempotent(t *testing.T) {
	src := &manualSource{}
	r := NewResolver(src)

	r.Stop()
	r.Stop()

	assert.Equal(t, 1, src.unsubscribed)
}

func TestHubSourceDeliversInitialThenSignOut(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	initial := &Session{UserID: userID, Email: "tech@example.com"}

	r := NewResolver(hub.Source(userID, initial))
	assert.False(t, r.Initializing())
	assert.Equal(t, initial, r.Current())
	assert.Equal(t, 1, hub.Subscribers(userID))

	require.NoError(t, hub.SignedOut(context.Background(), userID))
	assert.Nil(t, r.Current())

	r.Stop()
	assert.Equal(t, 0, hub.Subscribers(userID))
}

func TestHubSignOutRacingSubscribeIsNeverOverwritten(t *testing.T) {
	for i := 0; i < 200; i++ {
		hub := NewHub()
		userID := uuid.New()
		initial := &Session{UserID: userID}

		var mu sync.Mutex
		var seen []*Session
		record := func(s *Session) {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
		}

		start := make(chan struct{})
		done := make(chan struct{})
		go func() {
			<-start
			hub.Deliver(userID, nil)
			close(done)
		}()
		close(start)
		unsubscribe := hub.Source(userID, initial).Subscribe(record)
		<-done
		unsubscribe()

		mu.Lock()
		require.NotEmpty(t, seen)
		assert.Same(t, initial, seen[0], "initial session must be delivered first")
		if len(seen) > 1 {
			assert.Nil(t, seen[len(seen)-1], "sign-out must be the last state")
		}
		mu.Unlock()
	}
}

func TestHubIsolatesUsers(t *testing.T) {
	hub := NewHub()
	alice := uuid.New()
	bob := uuid.New()

	ra := NewResolver(hub.Source(alice, &Session{UserID: alice}))
	rb := NewResolver(hub.Source(bob, &Session{UserID: bob}))
	defer ra.Stop()
	defer rb.Stop()

	require.NoError(t, hub.SignedOut(context.Background(), alice))

	assert.Nil(t, ra.Current())
	assert.NotNil(t, rb.Current())
}

type recordingBroadcaster struct {
	calls []uuid.UUID
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, userID uuid.UUID, _ *Session) error {
	b.calls = append(b.calls, userID)
	return nil
}

func TestHubPublishForwardsToBroadcaster(t *testing.T) {
	hub := NewHub()
	b := &recordingBroadcaster{}
	hub.SetBroadcaster(b)

	userID := uuid.New()
	require.NoError(t, hub.SignedOut(context.Background(), userID))
	assert.Equal(t, []uuid.UUID{userID}, b.calls)
}
