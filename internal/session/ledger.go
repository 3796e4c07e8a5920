package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ErrUnknownUser is returned by a VersionStore when the user row is gone.
var ErrUnknownUser = errors.New("unknown user")

// VersionStore reads the stored session version of a user. The version is
// bumped every time the user signs out everywhere.
type VersionStore interface {
	SessionVersion(ctx context.Context, userID uuid.UUID) (int, error)
}

// VersionCache holds the latest known session version per user. Advance
// never moves a version backwards.
type VersionCache interface {
	Get(ctx context.Context, userID uuid.UUID) (int, bool)
	Advance(ctx context.Context, userID uuid.UUID, version int)
}

// Ledger decides whether an access token still belongs to a live session.
// A token carries the session version it was issued under; signing out
// advances the version and strands every token issued before.
type Ledger struct {
	store VersionStore
	cache VersionCache
}

func NewLedger(store VersionStore, cache VersionCache) *Ledger {
	return &Ledger{store: store, cache: cache}
}

// Live reports whether version is the user's current session version. A
// deleted user has no live session. Store failures are returned and not
// cached.
func (l *Ledger) Live(ctx context.Context, userID uuid.UUID, version int) (bool, error) {
	if current, ok := l.cache.Get(ctx, userID); ok {
		switch {
		case version == current:
			return true, nil
		case version < current:
			return false, nil
		}
		// Newer than the cache: another instance advanced it.
	}

	current, err := l.store.SessionVersion(ctx, userID)
	if errors.Is(err, ErrUnknownUser) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read session version: %w", err)
	}
	l.cache.Advance(ctx, userID, current)
	return version == current, nil
}

// Advance records a new session version after a sign-out.
func (l *Ledger) Advance(ctx context.Context, userID uuid.UUID, version int) {
	l.cache.Advance(ctx, userID, version)
}

// GetSessionVersion returns the "sv" claim, or 0 when the token predates it.
func GetSessionVersion(c *fiber.Ctx) int {
	claims, err := claimsFrom(c)
	if err != nil {
		return 0
	}
	switch v := claims["sv"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

type versionEntry struct {
	version   int
	expiresAt time.Time
}

// MemoryVersions is a per-process VersionCache.
type MemoryVersions struct {
	mu      sync.Mutex
	entries map[uuid.UUID]versionEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryVersions(ttl time.Duration) *MemoryVersions {
	return &MemoryVersions{
		entries: make(map[uuid.UUID]versionEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryVersions) Get(_ context.Context, userID uuid.UUID) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[userID]
	if !ok || m.now().After(e.expiresAt) {
		return 0, false
	}
	return e.version, true
}

func (m *MemoryVersions) Advance(_ context.Context, userID uuid.UUID, version int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if e, ok := m.entries[userID]; ok && !now.After(e.expiresAt) && e.version > version {
		return
	}
	m.entries[userID] = versionEntry{version: version, expiresAt: now.Add(m.ttl)}
}
