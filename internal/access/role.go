// Package access holds the role model and the visibility rules every
// collection handler applies before reading or mutating records.
package access

// Role is the authorization tier stored on a user profile.
type Role string

const (
	RoleUser       Role = "user"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
	RoleOwner      Role = "owner"
)

// DefaultRole applies when a profile is missing or its role cannot be read.
const DefaultRole = RoleUser

var knownRoles = map[Role]bool{
	RoleUser:       true,
	RoleTechnician: true,
	RoleAdmin:      true,
	RoleOwner:      true,
}

// ParseRole maps a stored value onto the closed role set. Unknown values
// resolve to DefaultRole and report false.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	if knownRoles[r] {
		return r, true
	}
	return DefaultRole, false
}

// IsElevated reports whether the role sees every record of every collection.
func (r Role) IsElevated() bool {
	return r == RoleAdmin || r == RoleOwner
}

// Assignable reports whether products may be assigned to holders of this role.
func (r Role) Assignable() bool {
	return r == RoleUser || r == RoleTechnician
}

// CanGrant reports whether r may set another user's role to target.
// Owners grant anything; admins only the non-elevated tiers.
func (r Role) CanGrant(target Role) bool {
	if !knownRoles[target] {
		return false
	}
	switch r {
	case RoleOwner:
		return true
	case RoleAdmin:
		return !target.IsElevated()
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// AssignableRoles lists the roles a product can be assigned to.
func AssignableRoles() []string {
	return []string{string(RoleUser), string(RoleTechnician)}
}
