package license

import "time"

// License is a single issued license document. IDs look like RSTUDIO_XXXXX
// and double as the document key. Licenses are never deleted; revocation is
// a soft state reversed only by an owner restore.
type License struct {
	ID        string `json:"licenseId" firestore:"-"`
	OwnerUID  string `json:"ownerUid" firestore:"ownerUid"`
	CreatedBy string `json:"createdBy" firestore:"createdBy"`
	// Role is the creator's role snapshotted at creation time. Revoke
	// permission checks key on this snapshot, not the creator's current
	// role, so the audit trail stays coherent if roles change later.
	Role    Role   `json:"role" firestore:"role"`
	GameID  int64  `json:"gameId" firestore:"gameId"`
	PlaceID int64  `json:"placeId" firestore:"placeId"`
	MapName string `json:"mapName,omitempty" firestore:"mapName"`

	// UniverseID is bound lazily on the first successful verification and
	// immutable afterwards.
	UniverseID *int64     `json:"universeId,omitempty" firestore:"universeId"`
	BoundAt    *time.Time `json:"boundAt,omitempty" firestore:"boundAt"`

	// ExpiresAt nil means the license never expires.
	ExpiresAt *time.Time `json:"expiresAt" firestore:"expiresAt"`

	Revoked       bool       `json:"revoked" firestore:"revoked"`
	RevokedAt     *time.Time `json:"revokedAt,omitempty" firestore:"revokedAt"`
	RevokedBy     string     `json:"revokedBy,omitempty" firestore:"revokedBy"`
	RevokedReason string     `json:"revokedReason,omitempty" firestore:"revokedReason"`

	RestoredAt *time.Time `json:"restoredAt,omitempty" firestore:"restoredAt"`
	RestoredBy string     `json:"restoredBy,omitempty" firestore:"restoredBy"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// Expired reports whether the license is past its expiry at the given time.
// Unlimited licenses never expire.
func (l *License) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// Active reports whether the license counts against its owner's quota:
// not revoked and not expired.
func (l *License) Active(now time.Time) bool {
	return !l.Revoked && !l.Expired(now)
}

// Verification failure reasons returned to game clients. These travel on
// the wire; do not rename.
const (
	ReasonLicenseNotFound  = "LICENSE_NOT_FOUND"
	ReasonRevoked          = "REVOKED"
	ReasonExpired          = "EXPIRED"
	ReasonUniverseMismatch = "UNIVERSE_MISMATCH"
)

// VerifyResult is the outcome of a verification call. Negative outcomes set
// Valid false with a Reason; they are not errors.
type VerifyResult struct {
	Valid      bool       `json:"valid"`
	Reason     string     `json:"reason,omitempty"`
	MapName    string     `json:"mapName,omitempty"`
	GameID     int64      `json:"gameId,omitempty"`
	PlaceID    int64      `json:"placeId,omitempty"`
	UniverseID int64      `json:"universeId,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	Signature  string     `json:"signature,omitempty"`
}

// EventType enumerates audit event kinds.
type EventType string

const (
	EventCreate     EventType = "create"
	EventVerify     EventType = "verify"
	EventRevoke     EventType = "revoke"
	EventUndoRevoke EventType = "undo_revoke"
)

// AuditEvent is one append-only record in the audit trail. Events are never
// mutated after append.
type AuditEvent struct {
	ID         string    `json:"id,omitempty" firestore:"-"`
	Type       EventType `json:"type" firestore:"type"`
	LicenseID  string    `json:"licenseId" firestore:"licenseId"`
	ActorUID   string    `json:"userId,omitempty" firestore:"userId"`
	Role       Role      `json:"role,omitempty" firestore:"role"`
	Valid      bool      `json:"valid" firestore:"valid"`
	Reason     string    `json:"reason,omitempty" firestore:"reason"`
	MapName    string    `json:"mapName,omitempty" firestore:"mapName"`
	GameID     int64     `json:"gameId,omitempty" firestore:"gameId"`
	PlaceID    int64     `json:"placeId,omitempty" firestore:"placeId"`
	UniverseID int64     `json:"universeId,omitempty" firestore:"universeId"`
	Time       time.Time `json:"time" firestore:"time"`
}
