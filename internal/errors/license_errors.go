package errors

import (
	stderrors "errors"
	"net/http"

	"rslab/internal/license"
)

// Error codes carried in the "code" extension. Wire-stable: the admin UI
// and game clients switch on them.
const (
	CodeMissingFields     = "MISSING_FIELDS"
	CodeInvalidRole       = "INVALID_ROLE"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeCreatorNotFound   = "CREATOR_NOT_FOUND"
	CodeLicenseNotFound   = "LICENSE_NOT_FOUND"
	CodeLicenseLimit      = "LICENSE_LIMIT"
	CodeDurationLimit     = "DURATION_LIMIT"
	CodeNoUnlimited       = "NO_UNLIMITED"
	CodeNoPermission      = "NO_PERMISSION"
	CodeReasonRequired    = "REASON_REQUIRED"
	CodeAlreadyRevoked    = "ALREADY_REVOKED"
	CodeNotRevoked        = "NOT_REVOKED"
	CodeLicenseExpired    = "LICENSE_EXPIRED"
	CodeInternal          = "SERVER_ERROR"
)

// FromLicenseError maps a lifecycle engine error onto an RFC 7807 problem.
// Policy violations carry the violated limit as extensions; store failures
// collapse to a generic 500 with no backend detail.
func FromLicenseError(err error, instance string) *ProblemDetails {
	var (
		limitErr    *license.LimitExceededError
		durationErr *license.DurationLimitError
	)
	switch {
	case stderrors.As(err, &limitErr):
		return NewProblemDetails(http.StatusForbidden, "/errors/license-limit", "License Limit Exceeded",
			limitErr.Error(), instance).
			WithExtension("code", CodeLicenseLimit).
			WithExtension("max", limitErr.Max).
			WithExtension("active", limitErr.Active)
	case stderrors.As(err, &durationErr):
		return NewProblemDetails(http.StatusForbidden, "/errors/duration-limit", "Duration Limit Exceeded",
			durationErr.Error(), instance).
			WithExtension("code", CodeDurationLimit).
			WithExtension("maxDays", durationErr.MaxDays)
	case stderrors.Is(err, license.ErrUnlimitedNotAllowed):
		return NewProblemDetails(http.StatusForbidden, "/errors/no-unlimited", "Unlimited Duration Not Allowed",
			"This role may not request an unlimited license.", instance).
			WithExtension("code", CodeNoUnlimited)
	case stderrors.Is(err, license.ErrMissingFields):
		return NewProblemDetails(http.StatusBadRequest, "/errors/missing-fields", "Missing Fields",
			err.Error(), instance).
			WithExtension("code", CodeMissingFields)
	case stderrors.Is(err, license.ErrInvalidRole):
		return NewProblemDetails(http.StatusForbidden, "/errors/invalid-role", "Invalid Role",
			err.Error(), instance).
			WithExtension("code", CodeInvalidRole)
	case stderrors.Is(err, license.ErrUserNotFound):
		return NewProblemDetails(http.StatusForbidden, "/errors/user-not-found", "User Not Registered",
			"No profile exists for this user.", instance).
			WithExtension("code", CodeUserNotFound)
	case stderrors.Is(err, license.ErrCreatorNotFound):
		return NewProblemDetails(http.StatusForbidden, "/errors/creator-not-found", "Creator Not Found",
			"The license creator's profile no longer exists.", instance).
			WithExtension("code", CodeCreatorNotFound)
	case stderrors.Is(err, license.ErrLicenseNotFound):
		return NewProblemDetails(http.StatusNotFound, "/errors/license-not-found", "License Not Found",
			"No license with this id.", instance).
			WithExtension("code", CodeLicenseNotFound)
	case stderrors.Is(err, license.ErrNoPermission):
		return NewProblemDetails(http.StatusForbidden, "/errors/no-permission", "No Permission",
			"You are not allowed to perform this operation.", instance).
			WithExtension("code", CodeNoPermission)
	case stderrors.Is(err, license.ErrReasonRequired):
		return NewProblemDetails(http.StatusBadRequest, "/errors/reason-required", "Reason Required",
			"A revocation reason of at least 3 characters is required.", instance).
			WithExtension("code", CodeReasonRequired)
	case stderrors.Is(err, license.ErrAlreadyRevoked):
		return NewProblemDetails(http.StatusConflict, "/errors/already-revoked", "License Already Revoked",
			"This license is already revoked.", instance).
			WithExtension("code", CodeAlreadyRevoked)
	case stderrors.Is(err, license.ErrNotRevoked):
		return NewProblemDetails(http.StatusConflict, "/errors/not-revoked", "License Not Revoked",
			"Only revoked licenses can be restored.", instance).
			WithExtension("code", CodeNotRevoked)
	case stderrors.Is(err, license.ErrLicenseExpired):
		return NewProblemDetails(http.StatusConflict, "/errors/license-expired", "License Expired",
			"Expired licenses are not restored.", instance).
			WithExtension("code", CodeLicenseExpired)
	default:
		return NewProblemDetails(http.StatusInternalServerError, "/errors/internal", "Internal Server Error",
			"The operation could not be completed.", instance).
			WithExtension("code", CodeInternal)
	}
}
