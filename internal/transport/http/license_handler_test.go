package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rslab/internal/auth"
	"rslab/internal/license"
	"rslab/internal/middleware"
)

// MockLicenseService is a testify mock over the transport-facing service.
type MockLicenseService struct {
	mock.Mock
}

func (m *MockLicenseService) Create(ctx context.Context, actor license.Actor, mode license.IssueMode, in license.CreateInput) (*license.License, error) {
	args := m.Called(ctx, actor, mode, in)
	if lic := args.Get(0); lic != nil {
		return lic.(*license.License), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLicenseService) Verify(ctx context.Context, licenseID string, universeID int64) (*license.VerifyResult, error) {
	args := m.Called(ctx, licenseID, universeID)
	if res := args.Get(0); res != nil {
		return res.(*license.VerifyResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLicenseService) Revoke(ctx context.Context, actor license.Actor, licenseID, reason string) (*license.License, error) {
	args := m.Called(ctx, actor, licenseID, reason)
	if lic := args.Get(0); lic != nil {
		return lic.(*license.License), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLicenseService) Restore(ctx context.Context, actor license.Actor, licenseID string) (*license.License, error) {
	args := m.Called(ctx, actor, licenseID)
	if lic := args.Get(0); lic != nil {
		return lic.(*license.License), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLicenseService) List(ctx context.Context, actor license.Actor) ([]*license.License, error) {
	args := m.Called(ctx, actor)
	if list := args.Get(0); list != nil {
		return list.([]*license.License), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLicenseService) AuditEvents(ctx context.Context, actor license.Actor, limit int) ([]*license.AuditEvent, error) {
	args := m.Called(ctx, actor, limit)
	if events := args.Get(0); events != nil {
		return events.([]*license.AuditEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

// staticResolver maps uids to fixed actors, standing in for the engine's
// profile lookup.
type staticResolver map[string]license.Actor

func (s staticResolver) ResolveActor(ctx context.Context, uid string) (license.Actor, error) {
	actor, ok := s[uid]
	if !ok {
		return license.Actor{}, license.ErrUserNotFound
	}
	return actor, nil
}

var testActors = staticResolver{
	"member-1": {UID: "member-1", Role: license.RoleMember},
	"admin-1":  {UID: "admin-1", Role: license.RoleAdmin},
	"owner-1":  {UID: "owner-1", Role: license.RoleOwner},
}

var testTokens = auth.StaticVerifier{
	"tok-member": "member-1",
	"tok-admin":  "admin-1",
	"tok-owner":  "owner-1",
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter mounts the authenticated license routes behind the real
// auth middleware, the same shape the app wires in production.
func newTestRouter(svc LicenseService) chi.Router {
	logger := testLogger()
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testTokens, testActors, logger))
		r.Mount("/api/licenses", NewLicenseHandler(svc, logger).Routes())
		r.Get("/api/logs", NewAuditHandler(svc, logger).List)
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLicenseHandlerCreate(t *testing.T) {
	payload := map[string]interface{}{
		"gameId": 111, "placeId": 222, "mapName": "Test Map", "duration": 30,
	}

	t.Run("success", func(t *testing.T) {
		svc := new(MockLicenseService)
		exp := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
		svc.On("Create", mock.Anything,
			license.Actor{UID: "member-1", Role: license.RoleMember},
			license.ModeSelfService,
			license.CreateInput{GameID: 111, PlaceID: 222, MapName: "Test Map", DurationDays: 30},
		).Return(&license.License{
			ID:        "RSTUDIO_ABC12",
			OwnerUID:  "member-1",
			CreatedBy: "member-1",
			Role:      license.RoleMember,
			GameID:    111,
			PlaceID:   222,
			MapName:   "Test Map",
			ExpiresAt: &exp,
		}, nil)

		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/licenses", "tok-member", payload)

		assert.Equal(t, http.StatusCreated, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		lic := body["license"].(map[string]interface{})
		assert.Equal(t, "RSTUDIO_ABC12", lic["licenseId"])
		svc.AssertExpectations(t)
	})

	t.Run("missing auth", func(t *testing.T) {
		svc := new(MockLicenseService)
		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/licenses", "", payload)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		svc.AssertNotCalled(t, "Create")
	})

	t.Run("invalid json", func(t *testing.T) {
		svc := new(MockLicenseService)
		req := httptest.NewRequest(http.MethodPost, "/api/licenses", bytes.NewBufferString("{broken"))
		req.Header.Set("Authorization", "Bearer tok-member")
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation failure", func(t *testing.T) {
		svc := new(MockLicenseService)
		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/licenses", "tok-member",
			map[string]interface{}{"gameId": 0, "placeId": 222, "mapName": "m", "duration": 1})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "MISSING_FIELDS", body["code"])
		svc.AssertNotCalled(t, "Create")
	})

	t.Run("quota exceeded maps to 403 with extensions", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &license.LimitExceededError{Max: 2, Active: 2})

		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/licenses", "tok-member", payload)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "LICENSE_LIMIT", body["code"])
		assert.Equal(t, float64(2), body["max"])
		assert.Equal(t, float64(2), body["active"])
	})
}

func TestLicenseHandlerIssue(t *testing.T) {
	svc := new(MockLicenseService)
	svc.On("Create", mock.Anything,
		license.Actor{UID: "admin-1", Role: license.RoleAdmin},
		license.ModeAdminIssue,
		mock.Anything,
	).Return(&license.License{ID: "RSTUDIO_ABC12", OwnerUID: "member-1"}, nil)

	rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/licenses/issue", "tok-admin",
		map[string]interface{}{"ownerUid": "member-1", "gameId": 1, "placeId": 2, "mapName": "m", "duration": -1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestLicenseHandlerList(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("List", mock.Anything, license.Actor{UID: "owner-1", Role: license.RoleOwner}).
			Return([]*license.License{{ID: "RSTUDIO_ABC12"}}, nil)

		rec := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/licenses", "tok-owner", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Len(t, body["licenses"], 1)
	})

	t.Run("empty list is a json array", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("List", mock.Anything, mock.Anything).Return(nil, nil)

		rec := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/licenses", "tok-member", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"licenses":[]`)
	})
}

func TestLicenseHandlerRevoke(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("Revoke", mock.Anything,
			license.Actor{UID: "member-1", Role: license.RoleMember},
			"RSTUDIO_ABC12", "no longer needed",
		).Return(&license.License{ID: "RSTUDIO_ABC12", Revoked: true}, nil)

		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/licenses/RSTUDIO_ABC12/revoke",
			"tok-member", map[string]interface{}{"reason": "no longer needed"})

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		lic := body["license"].(map[string]interface{})
		assert.Equal(t, true, lic["revoked"])
	})

	t.Run("already revoked conflicts", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("Revoke", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, license.ErrAlreadyRevoked)

		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/licenses/RSTUDIO_ABC12/revoke",
			"tok-member", map[string]interface{}{"reason": "again"})

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "ALREADY_REVOKED", decodeBody(t, rec)["code"])
	})

	t.Run("no permission", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("Revoke", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, license.ErrNoPermission)

		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/licenses/RSTUDIO_ABC12/revoke",
			"tok-member", map[string]interface{}{"reason": "not mine"})

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "NO_PERMISSION", decodeBody(t, rec)["code"])
	})
}

func TestLicenseHandlerRestore(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("Restore", mock.Anything,
			license.Actor{UID: "owner-1", Role: license.RoleOwner},
			"RSTUDIO_ABC12",
		).Return(&license.License{ID: "RSTUDIO_ABC12"}, nil)

		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/licenses/RSTUDIO_ABC12/restore",
			"tok-owner", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("expired conflict", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("Restore", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, license.ErrLicenseExpired)

		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/licenses/RSTUDIO_ABC12/restore",
			"tok-owner", nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "LICENSE_EXPIRED", decodeBody(t, rec)["code"])
	})
}

func TestAuditHandlerList(t *testing.T) {
	t.Run("success with limit", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("AuditEvents", mock.Anything,
			license.Actor{UID: "admin-1", Role: license.RoleAdmin}, 5,
		).Return([]*license.AuditEvent{{ID: "ev-1", Type: license.EventVerify}}, nil)

		rec := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/logs?limit=5", "tok-admin", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Len(t, body["logs"], 1)
	})

	t.Run("default limit when absent", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("AuditEvents", mock.Anything, mock.Anything, license.DefaultAuditLimit).
			Return([]*license.AuditEvent{}, nil)

		rec := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/logs", "tok-admin", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("forbidden for members", func(t *testing.T) {
		svc := new(MockLicenseService)
		svc.On("AuditEvents", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, license.ErrNoPermission)

		rec := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/logs", "tok-member", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
