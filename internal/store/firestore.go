// Package store provides the document-store adapters behind the license
// engine's ports: a Firestore implementation for production and an
// in-memory implementation for tests and local development.
package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rslab/internal/license"
)

// Firestore collection names. They match the documents written by earlier
// deployments, so renaming them is a data migration.
const (
	licensesCollection = "licenses"
	usersCollection    = "users"
	auditCollection    = "connection_logs"
)

// Firestore adapts a Firestore database to the license engine's store
// ports.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore connects to the given project. credentialsFile may be empty
// when ambient credentials (ADC) are available.
func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*Firestore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect firestore: %w", err)
	}
	return &Firestore{client: client}, nil
}

// Close releases the underlying client.
func (f *Firestore) Close() error { return f.client.Close() }

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (f *Firestore) Get(ctx context.Context, id string) (*license.License, error) {
	snap, err := f.client.Collection(licensesCollection).Doc(id).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, license.ErrNotFound
		}
		return nil, fmt.Errorf("get license %s: %w", id, err)
	}
	var lic license.License
	if err := snap.DataTo(&lic); err != nil {
		return nil, fmt.Errorf("decode license %s: %w", id, err)
	}
	lic.ID = snap.Ref.ID
	return &lic, nil
}

func (f *Firestore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := f.client.Collection(licensesCollection).Doc(id).Get(ctx)
	if err != nil {
		if notFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("check license %s: %w", id, err)
	}
	return true, nil
}

func (f *Firestore) Create(ctx context.Context, lic *license.License) error {
	_, err := f.client.Collection(licensesCollection).Doc(lic.ID).Set(ctx, lic)
	if err != nil {
		return fmt.Errorf("create license %s: %w", lic.ID, err)
	}
	return nil
}

func (f *Firestore) Revoke(ctx context.Context, id string, at time.Time, by, reason string) error {
	_, err := f.client.Collection(licensesCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "revoked", Value: true},
		{Path: "revokedAt", Value: at},
		{Path: "revokedBy", Value: by},
		{Path: "revokedReason", Value: reason},
	})
	if err != nil {
		if notFound(err) {
			return license.ErrNotFound
		}
		return fmt.Errorf("revoke license %s: %w", id, err)
	}
	return nil
}

func (f *Firestore) Restore(ctx context.Context, id string, at time.Time, by string) error {
	_, err := f.client.Collection(licensesCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "revoked", Value: false},
		{Path: "revokedAt", Value: nil},
		{Path: "revokedBy", Value: nil},
		{Path: "revokedReason", Value: nil},
		{Path: "restoredAt", Value: at},
		{Path: "restoredBy", Value: by},
	})
	if err != nil {
		if notFound(err) {
			return license.ErrNotFound
		}
		return fmt.Errorf("restore license %s: %w", id, err)
	}
	return nil
}

// BindUniverse is a plain update: the engine tolerates last-write-wins on
// the first-bind race.
func (f *Firestore) BindUniverse(ctx context.Context, id string, universeID int64, at time.Time) error {
	_, err := f.client.Collection(licensesCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "universeId", Value: universeID},
		{Path: "boundAt", Value: at},
	})
	if err != nil {
		if notFound(err) {
			return license.ErrNotFound
		}
		return fmt.Errorf("bind universe on %s: %w", id, err)
	}
	return nil
}

func (f *Firestore) ListByOwner(ctx context.Context, ownerUID string) ([]*license.License, error) {
	return f.queryLicenses(ctx, f.client.Collection(licensesCollection).Where("ownerUid", "==", ownerUID))
}

func (f *Firestore) ListByCreator(ctx context.Context, creatorUID string) ([]*license.License, error) {
	return f.queryLicenses(ctx, f.client.Collection(licensesCollection).Where("createdBy", "==", creatorUID))
}

func (f *Firestore) ListAll(ctx context.Context) ([]*license.License, error) {
	return f.queryLicenses(ctx, f.client.Collection(licensesCollection).Query)
}

func (f *Firestore) queryLicenses(ctx context.Context, q firestore.Query) ([]*license.License, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*license.License
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query licenses: %w", err)
		}
		var lic license.License
		if err := snap.DataTo(&lic); err != nil {
			return nil, fmt.Errorf("decode license %s: %w", snap.Ref.ID, err)
		}
		lic.ID = snap.Ref.ID
		out = append(out, &lic)
	}
	return out, nil
}

// Users adapts the Firestore client to the license.UserStore port.
func (f *Firestore) Users() license.UserStore { return firestoreUsers{f} }

type firestoreUsers struct{ f *Firestore }

func (u firestoreUsers) Get(ctx context.Context, uid string) (*license.UserProfile, error) {
	snap, err := u.f.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, license.ErrNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", uid, err)
	}
	var p license.UserProfile
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", uid, err)
	}
	p.UID = snap.Ref.ID
	return &p, nil
}

func (f *Firestore) Append(ctx context.Context, ev *license.AuditEvent) error {
	_, err := f.client.Collection(auditCollection).Doc(ev.ID).Set(ctx, ev)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (f *Firestore) List(ctx context.Context, limit int) ([]*license.AuditEvent, error) {
	iter := f.client.Collection(auditCollection).
		OrderBy("time", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var out []*license.AuditEvent
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list audit events: %w", err)
		}
		var ev license.AuditEvent
		if err := snap.DataTo(&ev); err != nil {
			return nil, fmt.Errorf("decode audit event %s: %w", snap.Ref.ID, err)
		}
		ev.ID = snap.Ref.ID
		out = append(out, &ev)
	}
	return out, nil
}
