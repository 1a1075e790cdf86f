package license

// UnlimitedDuration is the sentinel duration (in days) for a license that
// never expires.
const UnlimitedDuration = -1

// Unbounded marks a quota with no ceiling.
const Unbounded = -1

// Limits are the per-role issuing ceilings.
type Limits struct {
	// MaxActiveLicenses is the number of concurrently active licenses a
	// principal may hold. Unbounded disables the check.
	MaxActiveLicenses int
	// MaxDurationDays caps requested durations. Zero means no cap.
	MaxDurationDays int
	// AllowUnlimited permits UnlimitedDuration requests.
	AllowUnlimited bool
}

// LimitsFor returns the quota policy for a role.
//
//	member: 2 active, 30 days, no unlimited
//	vip:    5 active, no day cap, unlimited allowed
//	admin:  unbounded, no day cap, unlimited allowed
//	owner:  unbounded, no day cap, unlimited allowed
func LimitsFor(role Role) (Limits, error) {
	switch role {
	case RoleMember:
		return Limits{MaxActiveLicenses: 2, MaxDurationDays: 30}, nil
	case RoleVIP:
		return Limits{MaxActiveLicenses: 5, AllowUnlimited: true}, nil
	case RoleAdmin, RoleOwner:
		return Limits{MaxActiveLicenses: Unbounded, AllowUnlimited: true}, nil
	default:
		return Limits{}, ErrInvalidRole
	}
}
