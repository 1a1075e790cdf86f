package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rslab/internal/license"
)

func TestFromLicenseError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"limit", &license.LimitExceededError{Max: 2, Active: 2}, http.StatusForbidden, CodeLicenseLimit},
		{"duration", &license.DurationLimitError{MaxDays: 30, Requested: 31}, http.StatusForbidden, CodeDurationLimit},
		{"no unlimited", license.ErrUnlimitedNotAllowed, http.StatusForbidden, CodeNoUnlimited},
		{"missing fields", license.ErrMissingFields, http.StatusBadRequest, CodeMissingFields},
		{"wrapped missing fields", fmt.Errorf("%w: ownerUid", license.ErrMissingFields), http.StatusBadRequest, CodeMissingFields},
		{"invalid role", license.ErrInvalidRole, http.StatusForbidden, CodeInvalidRole},
		{"user not found", license.ErrUserNotFound, http.StatusForbidden, CodeUserNotFound},
		{"creator not found", license.ErrCreatorNotFound, http.StatusForbidden, CodeCreatorNotFound},
		{"license not found", license.ErrLicenseNotFound, http.StatusNotFound, CodeLicenseNotFound},
		{"no permission", license.ErrNoPermission, http.StatusForbidden, CodeNoPermission},
		{"reason required", license.ErrReasonRequired, http.StatusBadRequest, CodeReasonRequired},
		{"already revoked", license.ErrAlreadyRevoked, http.StatusConflict, CodeAlreadyRevoked},
		{"not revoked", license.ErrNotRevoked, http.StatusConflict, CodeNotRevoked},
		{"expired", license.ErrLicenseExpired, http.StatusConflict, CodeLicenseExpired},
		{"unknown collapses to 500", fmt.Errorf("firestore unavailable"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pd := FromLicenseError(tt.err, "/api/licenses")
			assert.Equal(t, tt.wantStatus, pd.Status)
			assert.Equal(t, tt.wantCode, pd.Extensions["code"])
			assert.Equal(t, "/api/licenses", pd.Instance)
		})
	}
}

func TestFromLicenseErrorLimitExtensions(t *testing.T) {
	pd := FromLicenseError(&license.LimitExceededError{Max: 5, Active: 5}, "/api/licenses")
	assert.Equal(t, 5, pd.Extensions["max"])
	assert.Equal(t, 5, pd.Extensions["active"])

	pd = FromLicenseError(&license.DurationLimitError{MaxDays: 30, Requested: 90}, "/api/licenses")
	assert.Equal(t, 30, pd.Extensions["maxDays"])
}

func TestFromLicenseErrorHidesBackendDetail(t *testing.T) {
	pd := FromLicenseError(fmt.Errorf("rpc error: connection refused 10.0.0.3:443"), "/api/licenses")
	assert.NotContains(t, pd.Detail, "10.0.0.3")
	assert.NotContains(t, pd.Detail, "rpc error")
}

func TestProblemDetailsMarshalFlattensExtensions(t *testing.T) {
	pd := NewProblemDetails(http.StatusForbidden, "/errors/license-limit", "License Limit Exceeded",
		"too many", "/api/licenses").
		WithExtension("code", "LICENSE_LIMIT").
		WithExtension("max", 2)

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "LICENSE_LIMIT", body["code"])
	assert.Equal(t, float64(2), body["max"])
	assert.Equal(t, float64(http.StatusForbidden), body["status"])
	assert.Equal(t, "/errors/license-limit", body["type"])
	assert.NotContains(t, body, "Extensions")
}
