package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rslab/internal/license"
)

func seedLicense(t *testing.T, m *Memory, id, owner string) *license.License {
	t.Helper()
	lic := &license.License{
		ID:        id,
		OwnerUID:  owner,
		CreatedBy: owner,
		Role:      license.RoleMember,
		GameID:    1,
		PlaceID:   2,
		MapName:   "map",
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, m.Create(context.Background(), lic))
	return lic
}

func TestMemoryLicenseCRUD(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Get(ctx, "RSTUDIO_AAAAA")
	assert.ErrorIs(t, err, license.ErrNotFound)

	exists, err := m.Exists(ctx, "RSTUDIO_AAAAA")
	require.NoError(t, err)
	assert.False(t, exists)

	seedLicense(t, m, "RSTUDIO_AAAAA", "u1")

	exists, err = m.Exists(ctx, "RSTUDIO_AAAAA")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := m.Get(ctx, "RSTUDIO_AAAAA")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerUID)

	// Mutating the returned copy must not touch the stored record.
	got.MapName = "tampered"
	again, err := m.Get(ctx, "RSTUDIO_AAAAA")
	require.NoError(t, err)
	assert.Equal(t, "map", again.MapName)
}

func TestMemoryRevokeRestore(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedLicense(t, m, "RSTUDIO_AAAAA", "u1")
	at := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.Revoke(ctx, "RSTUDIO_AAAAA", at, "admin-1", "abuse"))
	got, err := m.Get(ctx, "RSTUDIO_AAAAA")
	require.NoError(t, err)
	assert.True(t, got.Revoked)
	assert.Equal(t, "admin-1", got.RevokedBy)
	assert.Equal(t, "abuse", got.RevokedReason)
	require.NotNil(t, got.RevokedAt)

	later := at.Add(time.Hour)
	require.NoError(t, m.Restore(ctx, "RSTUDIO_AAAAA", later, "owner-1"))
	got, err = m.Get(ctx, "RSTUDIO_AAAAA")
	require.NoError(t, err)
	assert.False(t, got.Revoked)
	assert.Nil(t, got.RevokedAt)
	assert.Empty(t, got.RevokedBy)
	assert.Empty(t, got.RevokedReason)
	assert.Equal(t, "owner-1", got.RestoredBy)

	assert.ErrorIs(t, m.Revoke(ctx, "RSTUDIO_XXXXX", at, "a", "r"), license.ErrNotFound)
	assert.ErrorIs(t, m.Restore(ctx, "RSTUDIO_XXXXX", at, "a"), license.ErrNotFound)
}

func TestMemoryBindUniverse(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedLicense(t, m, "RSTUDIO_AAAAA", "u1")
	at := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.BindUniverse(ctx, "RSTUDIO_AAAAA", 42, at))
	got, err := m.Get(ctx, "RSTUDIO_AAAAA")
	require.NoError(t, err)
	require.NotNil(t, got.UniverseID)
	assert.Equal(t, int64(42), *got.UniverseID)
	require.NotNil(t, got.BoundAt)
	assert.Equal(t, at, *got.BoundAt)

	assert.ErrorIs(t, m.BindUniverse(ctx, "RSTUDIO_XXXXX", 42, at), license.ErrNotFound)
}

func TestMemoryListing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedLicense(t, m, "RSTUDIO_AAAAA", "u1")
	seedLicense(t, m, "RSTUDIO_BBBBB", "u1")
	seedLicense(t, m, "RSTUDIO_CCCCC", "u2")

	byOwner, err := m.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	byCreator, err := m.ListByCreator(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, byCreator, 1)

	all, err := m.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := m.ListByOwner(ctx, "u3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryUsers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	users := m.Users()

	_, err := users.Get(ctx, "u1")
	assert.ErrorIs(t, err, license.ErrNotFound)

	m.PutUser(&license.UserProfile{UID: "u1", RoleField: "admin"})
	p, err := users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "admin", p.RoleField)

	m.DeleteUser("u1")
	_, err = users.Get(ctx, "u1")
	assert.ErrorIs(t, err, license.ErrNotFound)
}

func TestMemoryAuditOrdering(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Append(ctx, &license.AuditEvent{
			ID:        fmt.Sprintf("ev-%d", i),
			Type:      license.EventVerify,
			LicenseID: "RSTUDIO_AAAAA",
		}))
	}

	events, err := m.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "ev-4", events[0].ID)
	assert.Equal(t, "ev-3", events[1].ID)
	assert.Equal(t, "ev-2", events[2].ID)

	all, err := m.List(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
