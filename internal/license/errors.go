package license

import (
	"errors"
	"fmt"
)

// Sentinel errors for the lifecycle engine. The transport layer maps these
// onto HTTP problem responses; they carry no backend detail.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidRole         = errors.New("invalid role")
	ErrMissingFields       = errors.New("missing required fields")
	ErrUnlimitedNotAllowed = errors.New("unlimited duration not allowed")
	ErrLicenseNotFound     = errors.New("license not found")
	ErrCreatorNotFound     = errors.New("license creator not found")
	ErrNoPermission        = errors.New("no permission")
	ErrReasonRequired      = errors.New("revoke reason required")
	ErrAlreadyRevoked      = errors.New("license already revoked")
	ErrNotRevoked          = errors.New("license not revoked")
	ErrLicenseExpired      = errors.New("license expired")
)

// ErrNotFound is the store-level miss returned by LicenseStore and UserStore
// implementations. The engine translates it to the matching domain error.
var ErrNotFound = errors.New("document not found")

// LimitExceededError reports an active-license quota violation together with
// the violated ceiling and the current count.
type LimitExceededError struct {
	Max    int
	Active int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("license limit exceeded: %d active, max %d", e.Active, e.Max)
}

// DurationLimitError reports a duration cap violation.
type DurationLimitError struct {
	MaxDays   int
	Requested int
}

func (e *DurationLimitError) Error() string {
	return fmt.Sprintf("duration limit exceeded: requested %d days, max %d", e.Requested, e.MaxDays)
}

// IDGenerationError signals that the bounded collision-retry loop ran out of
// attempts. Treated as a backend failure, not a caller fault.
type IDGenerationError struct {
	Attempts int
}

func (e *IDGenerationError) Error() string {
	return fmt.Sprintf("could not generate a unique license id after %d attempts", e.Attempts)
}
