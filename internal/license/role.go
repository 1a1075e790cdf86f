package license

import (
	"fmt"
	"time"
)

// Role is the closed set of effective user roles.
type Role string

const (
	RoleMember Role = "member"
	RoleVIP    Role = "vip"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleVIP, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// Elevated reports whether the role may act on resources it does not own.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleOwner
}

// ParseRole converts a stored role string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// UserProfile is the stored user document the resolver operates on.
// RoleField is the raw "role" field; it may be empty for regular users
// whose effective role is derived from the VIP flags instead.
type UserProfile struct {
	UID          string     `json:"uid" firestore:"-"`
	Email        string     `json:"email,omitempty" firestore:"email"`
	RoleField    string     `json:"role,omitempty" firestore:"role"`
	IsVIP        bool       `json:"isVIP" firestore:"isVIP"`
	VIPExpiresAt *time.Time `json:"vipExpiresAt,omitempty" firestore:"vipExpiresAt"`
}

// ResolveRole derives the effective role from profile flags. Precedence,
// highest first: owner flag, admin flag, live VIP status, member default.
// A VIP flag with an expiry in the past does not count. A non-empty role
// field outside the known set is an explicit error, not a silent downgrade.
func ResolveRole(p *UserProfile, now time.Time) (Role, error) {
	switch p.RoleField {
	case string(RoleOwner):
		return RoleOwner, nil
	case string(RoleAdmin):
		return RoleAdmin, nil
	case "", string(RoleMember), string(RoleVIP):
		// fall through to the VIP flags
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, p.RoleField)
	}

	if p.IsVIP && (p.VIPExpiresAt == nil || p.VIPExpiresAt.After(now)) {
		return RoleVIP, nil
	}
	return RoleMember, nil
}
