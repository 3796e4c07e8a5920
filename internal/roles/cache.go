package roles

import (
	"context"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/google/uuid"
)

// Cache holds resolved roles keyed by user.
type Cache interface {
	Get(ctx context.Context, userID uuid.UUID) (access.Role, bool)
	Set(ctx context.Context, userID uuid.UUID, role access.Role)
	Delete(ctx context.Context, userID uuid.UUID)
}

type memoryEntry struct {
	role      access.Role
	expiresAt time.Time
}

// MemoryCache is a per-process TTL cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[uuid.UUID]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, userID uuid.UUID) (access.Role, bool) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		return "", false
	}
	return e.role, true
}

func (c *MemoryCache) Set(_ context.Context, userID uuid.UUID, role access.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = memoryEntry{role: role, expiresAt: c.now().Add(c.ttl)}
}

func (c *MemoryCache) Delete(_ context.Context, userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}
