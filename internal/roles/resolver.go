// Package roles resolves a principal's role once and shares the answer with
// every consumer until the profile changes.
package roles

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/google/uuid"
)

// ErrProfileNotFound is returned by a ProfileStore when no profile exists.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileStore reads the stored role string for a user.
type ProfileStore interface {
	RoleOf(ctx context.Context, userID uuid.UUID) (string, error)
}

type Resolver struct {
	store ProfileStore
	cache Cache
}

func NewResolver(store ProfileStore, cache Cache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// Resolve never fails. A missing profile, an unreadable one or an unknown
// role string all resolve to access.DefaultRole.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) access.Role {
	if role, ok := r.cache.Get(ctx, userID); ok {
		return role
	}

	stored, err := r.store.RoleOf(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			r.cache.Set(ctx, userID, access.DefaultRole)
			return access.DefaultRole
		}
		// Not cached: the next request retries the lookup.
		slog.Warn("role lookup failed, using default role", "user_id", userID.String(), "error", err)
		return access.DefaultRole
	}

	role, known := access.ParseRole(stored)
	if !known {
		slog.Warn("unknown role on profile", "user_id", userID.String(), "role", stored)
	}
	r.cache.Set(ctx, userID, role)
	return role
}

// Invalidate drops the cached role so the next Resolve reads the store.
func (r *Resolver) Invalidate(ctx context.Context, userID uuid.UUID) {
	r.cache.Delete(ctx, userID)
}
