package store

import (
	"context"
	"sync"
	"time"

	"rslab/internal/license"
)

// Memory is an in-process implementation of the license, user, and audit
// store ports. It backs unit tests and local development; production runs
// on the Firestore adapter.
type Memory struct {
	mu       sync.RWMutex
	licenses map[string]*license.License
	users    map[string]*license.UserProfile
	events   []*license.AuditEvent
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		licenses: make(map[string]*license.License),
		users:    make(map[string]*license.UserProfile),
	}
}

func cloneLicense(l *license.License) *license.License {
	c := *l
	return &c
}

func (m *Memory) Get(ctx context.Context, id string) (*license.License, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.licenses[id]
	if !ok {
		return nil, license.ErrNotFound
	}
	return cloneLicense(l), nil
}

func (m *Memory) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.licenses[id]
	return ok, nil
}

func (m *Memory) Create(ctx context.Context, lic *license.License) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.licenses[lic.ID] = cloneLicense(lic)
	return nil
}

func (m *Memory) Revoke(ctx context.Context, id string, at time.Time, by, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.licenses[id]
	if !ok {
		return license.ErrNotFound
	}
	l.Revoked = true
	l.RevokedAt = &at
	l.RevokedBy = by
	l.RevokedReason = reason
	return nil
}

func (m *Memory) Restore(ctx context.Context, id string, at time.Time, by string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.licenses[id]
	if !ok {
		return license.ErrNotFound
	}
	l.Revoked = false
	l.RevokedAt = nil
	l.RevokedBy = ""
	l.RevokedReason = ""
	l.RestoredAt = &at
	l.RestoredBy = by
	return nil
}

func (m *Memory) BindUniverse(ctx context.Context, id string, universeID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.licenses[id]
	if !ok {
		return license.ErrNotFound
	}
	l.UniverseID = &universeID
	l.BoundAt = &at
	return nil
}

func (m *Memory) ListByOwner(ctx context.Context, ownerUID string) ([]*license.License, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*license.License
	for _, l := range m.licenses {
		if l.OwnerUID == ownerUID {
			out = append(out, cloneLicense(l))
		}
	}
	return out, nil
}

func (m *Memory) ListByCreator(ctx context.Context, creatorUID string) ([]*license.License, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*license.License
	for _, l := range m.licenses {
		if l.CreatedBy == creatorUID {
			out = append(out, cloneLicense(l))
		}
	}
	return out, nil
}

func (m *Memory) ListAll(ctx context.Context) ([]*license.License, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*license.License, 0, len(m.licenses))
	for _, l := range m.licenses {
		out = append(out, cloneLicense(l))
	}
	return out, nil
}

// PutUser seeds or replaces a user profile.
func (m *Memory) PutUser(p *license.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *p
	m.users[p.UID] = &c
}

// DeleteUser removes a profile. Used in tests to simulate a vanished
// creator.
func (m *Memory) DeleteUser(uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, uid)
}

// GetUser implements license.UserStore. The method name differs from the
// license store Get so Memory can satisfy both ports; Users() exposes it
// under the interface.
func (m *Memory) GetUser(ctx context.Context, uid string) (*license.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.users[uid]
	if !ok {
		return nil, license.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (m *Memory) Append(ctx context.Context, ev *license.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *ev
	m.events = append(m.events, &c)
	return nil
}

func (m *Memory) List(ctx context.Context, limit int) ([]*license.AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*license.AuditEvent, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		c := *m.events[i]
		out = append(out, &c)
	}
	return out, nil
}

// Users adapts Memory to the license.UserStore port.
func (m *Memory) Users() license.UserStore { return memoryUsers{m} }

type memoryUsers struct{ m *Memory }

func (u memoryUsers) Get(ctx context.Context, uid string) (*license.UserProfile, error) {
	return u.m.GetUser(ctx, uid)
}
