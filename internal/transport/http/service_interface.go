package http

import (
	"context"

	"rslab/internal/license"
)

// LicenseService is the transport-facing surface of the lifecycle engine.
// Defined here so handlers can be tested against mocks.
type LicenseService interface {
	Create(ctx context.Context, actor license.Actor, mode license.IssueMode, in license.CreateInput) (*license.License, error)
	Verify(ctx context.Context, licenseID string, universeID int64) (*license.VerifyResult, error)
	Revoke(ctx context.Context, actor license.Actor, licenseID, reason string) (*license.License, error)
	Restore(ctx context.Context, actor license.Actor, licenseID string) (*license.License, error)
	List(ctx context.Context, actor license.Actor) ([]*license.License, error)
	AuditEvents(ctx context.Context, actor license.Actor, limit int) ([]*license.AuditEvent, error)
}
