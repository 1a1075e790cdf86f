package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IssueMode selects how creation quotas are scoped.
type IssueMode int

const (
	// ModeSelfService issues a license to the acting user: quota and
	// duration ceilings come from the actor's own role and identity.
	ModeSelfService IssueMode = iota
	// ModeAdminIssue issues a license on behalf of a target owner: the
	// active-license count is scoped to the target owner and the ceilings
	// come from the target owner's resolved role. Admin and owner actors
	// only.
	ModeAdminIssue
)

// Actor is a resolved principal: verified uid plus effective role.
type Actor struct {
	UID  string
	Role Role
}

// CreateInput is the payload for license creation. OwnerUID is only
// meaningful in ModeAdminIssue; DurationDays of UnlimitedDuration requests a
// permanent license, zero is treated the same way.
type CreateInput struct {
	OwnerUID     string
	GameID       int64
	PlaceID      int64
	MapName      string
	DurationDays int
}

// EngineConfig carries the optional engine collaborators. Zero values get
// sensible defaults in NewEngine.
type EngineConfig struct {
	Clock  Clock
	IDs    IDSource
	Signer *Signer
	Logger *slog.Logger
	// RequireRevokeReason enforces a revocation reason of at least
	// minReasonLength characters.
	RequireRevokeReason bool
	// MaxIDAttempts bounds the id collision-retry loop.
	MaxIDAttempts int
}

const (
	defaultMaxIDAttempts = 10
	minReasonLength      = 3
	// DefaultAuditLimit is the audit listing page size when the caller
	// does not ask for one.
	DefaultAuditLimit = 50
	maxAuditLimit     = 500
)

// Engine is the license lifecycle engine. All methods are request-scoped;
// the engine holds no mutable state of its own.
type Engine struct {
	licenses LicenseStore
	users    UserStore
	audit    AuditStore
	clock    Clock
	ids      IDSource
	signer   *Signer
	logger   *slog.Logger

	requireRevokeReason bool
	maxIDAttempts       int
}

// NewEngine wires a lifecycle engine over the given stores.
func NewEngine(licenses LicenseStore, users UserStore, audit AuditStore, cfg EngineConfig) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.IDs == nil {
		cfg.IDs = RandomIDSource{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxIDAttempts <= 0 {
		cfg.MaxIDAttempts = defaultMaxIDAttempts
	}
	return &Engine{
		licenses:            licenses,
		users:               users,
		audit:               audit,
		clock:               cfg.Clock,
		ids:                 cfg.IDs,
		signer:              cfg.Signer,
		logger:              cfg.Logger.With(slog.String("component", "license_engine")),
		requireRevokeReason: cfg.RequireRevokeReason,
		maxIDAttempts:       cfg.MaxIDAttempts,
	}
}

// ResolveActor loads the uid's profile and derives its effective role.
// Returns ErrUserNotFound when the profile is missing.
func (e *Engine) ResolveActor(ctx context.Context, uid string) (Actor, error) {
	profile, err := e.users.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Actor{}, ErrUserNotFound
		}
		return Actor{}, fmt.Errorf("load user profile: %w", err)
	}
	role, err := ResolveRole(profile, e.clock.Now())
	if err != nil {
		return Actor{}, err
	}
	return Actor{UID: uid, Role: role}, nil
}

// Create issues a new license after enforcing quota and duration policy.
// The returned record includes the generated id.
func (e *Engine) Create(ctx context.Context, actor Actor, mode IssueMode, in CreateInput) (*License, error) {
	in.MapName = strings.TrimSpace(in.MapName)
	if in.GameID <= 0 || in.PlaceID <= 0 || in.MapName == "" {
		return nil, ErrMissingFields
	}
	if in.DurationDays < UnlimitedDuration {
		return nil, fmt.Errorf("%w: durationDays", ErrMissingFields)
	}

	ownerUID, quotaRole, err := e.resolveIssueScope(ctx, actor, mode, in)
	if err != nil {
		return nil, err
	}

	limits, err := LimitsFor(quotaRole)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if limits.MaxActiveLicenses != Unbounded {
		active, err := e.countActive(ctx, mode, actor.UID, ownerUID, now)
		if err != nil {
			return nil, err
		}
		if active >= limits.MaxActiveLicenses {
			return nil, &LimitExceededError{Max: limits.MaxActiveLicenses, Active: active}
		}
	}

	if in.DurationDays == UnlimitedDuration {
		if !limits.AllowUnlimited {
			return nil, ErrUnlimitedNotAllowed
		}
	} else if limits.MaxDurationDays > 0 && in.DurationDays > limits.MaxDurationDays {
		return nil, &DurationLimitError{MaxDays: limits.MaxDurationDays, Requested: in.DurationDays}
	}

	id, err := e.uniqueID(ctx)
	if err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if in.DurationDays > 0 {
		t := now.Add(time.Duration(in.DurationDays) * 24 * time.Hour)
		expiresAt = &t
	}

	lic := &License{
		ID:        id,
		OwnerUID:  ownerUID,
		CreatedBy: actor.UID,
		Role:      actor.Role,
		GameID:    in.GameID,
		PlaceID:   in.PlaceID,
		MapName:   in.MapName,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := e.licenses.Create(ctx, lic); err != nil {
		return nil, fmt.Errorf("persist license: %w", err)
	}

	e.appendAudit(ctx, &AuditEvent{
		Type:      EventCreate,
		LicenseID: id,
		ActorUID:  actor.UID,
		Role:      actor.Role,
		Valid:     true,
		MapName:   in.MapName,
		GameID:    in.GameID,
		PlaceID:   in.PlaceID,
		Time:      now,
	})

	e.logger.InfoContext(ctx, "license created",
		slog.String("license_id", id),
		slog.String("created_by", actor.UID),
		slog.String("owner_uid", ownerUID),
		slog.String("role", string(actor.Role)),
		slog.Int("duration_days", in.DurationDays),
		slog.Bool("unlimited", expiresAt == nil),
	)
	return lic, nil
}

// resolveIssueScope decides whose identity the quota count is scoped to and
// whose role supplies the ceilings.
func (e *Engine) resolveIssueScope(ctx context.Context, actor Actor, mode IssueMode, in CreateInput) (string, Role, error) {
	switch mode {
	case ModeSelfService:
		if in.OwnerUID != "" && in.OwnerUID != actor.UID {
			return "", "", ErrNoPermission
		}
		return actor.UID, actor.Role, nil
	case ModeAdminIssue:
		if !actor.Role.Elevated() {
			return "", "", ErrNoPermission
		}
		if in.OwnerUID == "" {
			return "", "", fmt.Errorf("%w: ownerUid", ErrMissingFields)
		}
		owner, err := e.users.Get(ctx, in.OwnerUID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return "", "", ErrUserNotFound
			}
			return "", "", fmt.Errorf("load owner profile: %w", err)
		}
		ownerRole, err := ResolveRole(owner, e.clock.Now())
		if err != nil {
			return "", "", err
		}
		return in.OwnerUID, ownerRole, nil
	default:
		return "", "", fmt.Errorf("unknown issue mode %d", mode)
	}
}

func (e *Engine) countActive(ctx context.Context, mode IssueMode, creatorUID, ownerUID string, now time.Time) (int, error) {
	var (
		all []*License
		err error
	)
	if mode == ModeAdminIssue {
		all, err = e.licenses.ListByOwner(ctx, ownerUID)
	} else {
		all, err = e.licenses.ListByCreator(ctx, creatorUID)
	}
	if err != nil {
		return 0, fmt.Errorf("count active licenses: %w", err)
	}
	active := 0
	for _, l := range all {
		if l.Active(now) {
			active++
		}
	}
	return active, nil
}

func (e *Engine) uniqueID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < e.maxIDAttempts; attempt++ {
		candidate := e.ids.Next()
		exists, err := e.licenses.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check license id: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		e.logger.WarnContext(ctx, "license id collision, retrying",
			slog.String("candidate", candidate),
			slog.Int("attempt", attempt+1),
		)
	}
	return "", &IDGenerationError{Attempts: e.maxIDAttempts}
}

// Verify checks a license for a game server. The universe binds on the
// first successful verification; a bound universe is immutable and any later
// mismatch is a hard negative. Negative outcomes are results, not errors;
// the returned error is non-nil only for store failures.
func (e *Engine) Verify(ctx context.Context, licenseID string, universeID int64) (*VerifyResult, error) {
	now := e.clock.Now()

	lic, err := e.licenses.Get(ctx, licenseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &VerifyResult{Valid: false, Reason: ReasonLicenseNotFound}, nil
		}
		return nil, fmt.Errorf("load license: %w", err)
	}

	if lic.Revoked {
		e.appendAudit(ctx, &AuditEvent{
			Type:       EventVerify,
			LicenseID:  licenseID,
			Valid:      false,
			Reason:     ReasonRevoked,
			UniverseID: universeID,
			Time:       now,
		})
		return &VerifyResult{Valid: false, Reason: ReasonRevoked}, nil
	}

	if lic.Expired(now) {
		e.appendAudit(ctx, &AuditEvent{
			Type:       EventVerify,
			LicenseID:  licenseID,
			Valid:      false,
			Reason:     ReasonExpired,
			UniverseID: universeID,
			Time:       now,
		})
		return &VerifyResult{Valid: false, Reason: ReasonExpired}, nil
	}

	if lic.UniverseID == nil {
		// First verification binds the universe. Concurrent first binds
		// race last-write-wins, which is harmless when both writers carry
		// the same universe; a divergent race resolves to whichever lands
		// last and subsequent verifies enforce it.
		if err := e.licenses.BindUniverse(ctx, licenseID, universeID, now); err != nil {
			return nil, fmt.Errorf("bind universe: %w", err)
		}
		lic.UniverseID = &universeID
		e.logger.InfoContext(ctx, "universe bound",
			slog.String("license_id", licenseID),
			slog.Int64("universe_id", universeID),
		)
	} else if *lic.UniverseID != universeID {
		return &VerifyResult{Valid: false, Reason: ReasonUniverseMismatch}, nil
	}

	e.appendAudit(ctx, &AuditEvent{
		Type:       EventVerify,
		LicenseID:  licenseID,
		ActorUID:   lic.CreatedBy,
		Role:       lic.Role,
		Valid:      true,
		GameID:     lic.GameID,
		PlaceID:    lic.PlaceID,
		UniverseID: universeID,
		Time:       now,
	})

	res := &VerifyResult{
		Valid:      true,
		MapName:    lic.MapName,
		GameID:     lic.GameID,
		PlaceID:    lic.PlaceID,
		UniverseID: *lic.UniverseID,
		ExpiresAt:  lic.ExpiresAt,
	}
	if e.signer != nil {
		res.Signature = e.signer.SignVerification(licenseID, res.GameID, res.PlaceID, res.UniverseID, res.ExpiresAt)
	}
	return res, nil
}

// Revoke soft-deletes a license. Permission matrix: owners revoke anything;
// admins revoke their own plus licenses whose stored role snapshot is member
// or vip; members and vips revoke only their own.
func (e *Engine) Revoke(ctx context.Context, actor Actor, licenseID, reason string) (*License, error) {
	reason = strings.TrimSpace(reason)
	if e.requireRevokeReason && len(reason) < minReasonLength {
		return nil, ErrReasonRequired
	}

	lic, err := e.licenses.Get(ctx, licenseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, fmt.Errorf("load license: %w", err)
	}
	if lic.Revoked {
		return nil, ErrAlreadyRevoked
	}

	// The creator must still exist even though the permission decision
	// keys on the stored snapshot.
	if _, err := e.users.Get(ctx, lic.CreatedBy); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrCreatorNotFound
		}
		return nil, fmt.Errorf("load creator profile: %w", err)
	}

	if !canRevoke(actor, lic) {
		return nil, ErrNoPermission
	}

	now := e.clock.Now()
	if err := e.licenses.Revoke(ctx, licenseID, now, actor.UID, reason); err != nil {
		return nil, fmt.Errorf("revoke license: %w", err)
	}

	e.appendAudit(ctx, &AuditEvent{
		Type:      EventRevoke,
		LicenseID: licenseID,
		ActorUID:  actor.UID,
		Role:      actor.Role,
		Valid:     true,
		Reason:    reason,
		MapName:   lic.MapName,
		Time:      now,
	})

	e.logger.InfoContext(ctx, "license revoked",
		slog.String("license_id", licenseID),
		slog.String("revoked_by", actor.UID),
		slog.String("actor_role", string(actor.Role)),
	)

	lic.Revoked = true
	lic.RevokedAt = &now
	lic.RevokedBy = actor.UID
	lic.RevokedReason = reason
	return lic, nil
}

func canRevoke(actor Actor, lic *License) bool {
	switch actor.Role {
	case RoleOwner:
		return true
	case RoleAdmin:
		if lic.CreatedBy == actor.UID {
			return true
		}
		return lic.Role == RoleMember || lic.Role == RoleVIP
	default:
		return lic.CreatedBy == actor.UID
	}
}

// Restore reverses a revocation. Owner only. Expired licenses are not
// resurrected.
func (e *Engine) Restore(ctx context.Context, actor Actor, licenseID string) (*License, error) {
	if actor.Role != RoleOwner {
		return nil, ErrNoPermission
	}

	lic, err := e.licenses.Get(ctx, licenseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, fmt.Errorf("load license: %w", err)
	}
	if !lic.Revoked {
		return nil, ErrNotRevoked
	}

	now := e.clock.Now()
	if lic.Expired(now) {
		return nil, ErrLicenseExpired
	}

	if err := e.licenses.Restore(ctx, licenseID, now, actor.UID); err != nil {
		return nil, fmt.Errorf("restore license: %w", err)
	}

	e.appendAudit(ctx, &AuditEvent{
		Type:      EventUndoRevoke,
		LicenseID: licenseID,
		ActorUID:  actor.UID,
		Role:      actor.Role,
		Valid:     true,
		Time:      now,
	})

	e.logger.InfoContext(ctx, "license restored",
		slog.String("license_id", licenseID),
		slog.String("restored_by", actor.UID),
	)

	lic.Revoked = false
	lic.RevokedAt = nil
	lic.RevokedBy = ""
	lic.RevokedReason = ""
	lic.RestoredAt = &now
	lic.RestoredBy = actor.UID
	return lic, nil
}

// List returns licenses visible to the actor: everything for admins and the
// owner, otherwise only licenses issued for the actor.
func (e *Engine) List(ctx context.Context, actor Actor) ([]*License, error) {
	if actor.Role.Elevated() {
		return e.licenses.ListAll(ctx)
	}
	return e.licenses.ListByOwner(ctx, actor.UID)
}

// AuditEvents returns recent audit events, newest first. Admin and owner
// only.
func (e *Engine) AuditEvents(ctx context.Context, actor Actor, limit int) ([]*AuditEvent, error) {
	if !actor.Role.Elevated() {
		return nil, ErrNoPermission
	}
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	return e.audit.List(ctx, limit)
}

// appendAudit writes an audit event, logging instead of failing the parent
// operation when the append misses: the primary record is already durable
// and verification must not flap on audit backend trouble.
func (e *Engine) appendAudit(ctx context.Context, ev *AuditEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if err := e.audit.Append(ctx, ev); err != nil {
		e.logger.WarnContext(ctx, "audit append failed",
			slog.String("event_type", string(ev.Type)),
			slog.String("license_id", ev.LicenseID),
			slog.String("error", err.Error()),
		)
	}
}
