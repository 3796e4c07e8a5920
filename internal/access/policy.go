package access

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Owned is implemented by every record that belongs to a single user.
type Owned interface {
	OwnerID() uuid.UUID
}

// Policy is the resolved visibility rule for one principal.
type Policy struct {
	All     bool
	OwnerID uuid.UUID
}

// PolicyFor returns the unrestricted policy for elevated roles and an
// owner filter for everyone else.
func PolicyFor(role Role, selfID uuid.UUID) Policy {
	if role.IsElevated() {
		return Policy{All: true}
	}
	return Policy{OwnerID: selfID}
}

// Allows reports whether a record owned by ownerID is visible.
func (p Policy) Allows(ownerID uuid.UUID) bool {
	return p.All || ownerID == p.OwnerID
}

// Scope returns the gorm equivalent of Allows for the given owner column.
func (p Policy) Scope(column string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.All {
			return db
		}
		return db.Where(column+" = ?", p.OwnerID)
	}
}

// Filter keeps the records the policy allows, preserving order.
func Filter[T Owned](p Policy, records []T) []T {
	if p.All {
		return records
	}
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if p.Allows(rec.OwnerID()) {
			out = append(out, rec)
		}
	}
	return out
}

// Visible applies the role's policy to records fetched for selfID.
func Visible[T Owned](role Role, selfID uuid.UUID, records []T) []T {
	return Filter(PolicyFor(role, selfID), records)
}

// NotificationVisible decides whether a notification reaches a principal.
// A notification is either addressed to one user or broadcast to a list of
// roles; either match is enough, for every role. The mobile app used to split
// these by role (admins and owners saw only broadcasts, everyone else only
// direct messages), so a direct message to an admin was never shown there.
func NotificationVisible(role Role, selfID uuid.UUID, recipientID *uuid.UUID, targetRoles []string) bool {
	if recipientID != nil && *recipientID == selfID {
		return true
	}
	for _, r := range targetRoles {
		if Role(r) == role {
			return true
		}
	}
	return false
}
