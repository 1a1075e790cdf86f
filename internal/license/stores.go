package license

import (
	"context"
	"time"
)

// LicenseStore is the document-store port for license records. Get returns
// ErrNotFound on a miss. Revoke, Restore, and BindUniverse are partial
// updates; implementations must not touch other fields.
type LicenseStore interface {
	Get(ctx context.Context, id string) (*License, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, lic *License) error
	Revoke(ctx context.Context, id string, at time.Time, by, reason string) error
	Restore(ctx context.Context, id string, at time.Time, by string) error
	BindUniverse(ctx context.Context, id string, universeID int64, at time.Time) error
	ListByOwner(ctx context.Context, ownerUID string) ([]*License, error)
	ListByCreator(ctx context.Context, creatorUID string) ([]*License, error)
	ListAll(ctx context.Context) ([]*License, error)
}

// UserStore looks up user profiles. Get returns ErrNotFound on a miss.
type UserStore interface {
	Get(ctx context.Context, uid string) (*UserProfile, error)
}

// AuditStore appends and lists immutable audit events. List returns events
// newest first, at most limit of them.
type AuditStore interface {
	Append(ctx context.Context, ev *AuditEvent) error
	List(ctx context.Context, limit int) ([]*AuditEvent, error)
}

// Clock abstracts time for the engine so expiry arithmetic is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IDSource yields candidate license ids. Candidates are collision-checked
// against the store by the engine before use.
type IDSource interface {
	Next() string
}
