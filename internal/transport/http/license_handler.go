// Package http contains the chi HTTP handlers for the license service.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apierrors "rslab/internal/errors"
	"rslab/internal/license"
	"rslab/internal/middleware"
)

var validate = validator.New()

// LicenseHandler serves the authenticated license management endpoints.
type LicenseHandler struct {
	service LicenseService
	logger  *slog.Logger
}

// NewLicenseHandler creates a license handler.
func NewLicenseHandler(service LicenseService, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "license")),
	}
}

// CreateLicenseRequest is the creation payload. The duration field uses -1
// for an unlimited license and 0 as its legacy alias.
type CreateLicenseRequest struct {
	OwnerUID     string `json:"ownerUid,omitempty"`
	GameID       int64  `json:"gameId" validate:"required,gt=0"`
	PlaceID      int64  `json:"placeId" validate:"required,gt=0"`
	MapName      string `json:"mapName" validate:"required"`
	DurationDays int    `json:"duration" validate:"gte=-1"`
}

// RevokeLicenseRequest carries the revocation reason.
type RevokeLicenseRequest struct {
	Reason string `json:"reason"`
}

// LicenseResponse wraps a single license record.
type LicenseResponse struct {
	Success bool             `json:"success"`
	License *license.License `json:"license"`
}

// LicenseListResponse wraps a license listing.
type LicenseListResponse struct {
	Success  bool               `json:"success"`
	Licenses []*license.License `json:"licenses"`
}

// Routes returns the authenticated license router.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Post("/issue", h.Issue)
	r.Get("/", h.List)
	r.Post("/{licenseID}/revoke", h.Revoke)
	r.Post("/{licenseID}/restore", h.Restore)
	return r
}

// Create handles POST /api/licenses (self-service mode).
func (h *LicenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, license.ModeSelfService)
}

// Issue handles POST /api/licenses/issue (admin-issuing mode).
func (h *LicenseHandler) Issue(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, license.ModeAdminIssue)
}

func (h *LicenseHandler) create(w http.ResponseWriter, r *http.Request, mode license.IssueMode) {
	ctx := r.Context()
	tracer := otel.Tracer("license-handler")
	ctx, span := tracer.Start(ctx, "license_handler.create",
		trace.WithAttributes(
			attribute.String("http.route", r.URL.Path),
			attribute.Bool("admin_issue", mode == license.ModeAdminIssue),
		),
	)
	defer span.End()
	start := time.Now()

	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		render.Render(w, r, apierrors.NewProblemDetails(http.StatusUnauthorized,
			"/errors/unauthorized", "Unauthorized", "No authenticated actor.", r.URL.Path))
		return
	}

	var req CreateLicenseRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apierrors.NewProblemDetails(http.StatusBadRequest,
			"/errors/invalid-request", "Invalid Request", err.Error(), r.URL.Path))
		return
	}
	if err := validate.Struct(&req); err != nil {
		render.Render(w, r, apierrors.NewProblemDetails(http.StatusBadRequest,
			"/errors/missing-fields", "Missing Fields", err.Error(), r.URL.Path).
			WithExtension("code", apierrors.CodeMissingFields))
		return
	}

	lic, err := h.service.Create(ctx, actor, mode, license.CreateInput{
		OwnerUID:     req.OwnerUID,
		GameID:       req.GameID,
		PlaceID:      req.PlaceID,
		MapName:      req.MapName,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		span.RecordError(err)
		h.logger.WarnContext(ctx, "license creation rejected",
			slog.String("actor", actor.UID),
			slog.String("role", string(actor.Role)),
			slog.String("error", err.Error()),
		)
		render.Render(w, r, apierrors.FromLicenseError(err, r.URL.Path))
		return
	}

	span.SetAttributes(attribute.String("license.id", lic.ID))
	h.logger.InfoContext(ctx, "license creation completed",
		slog.String("license_id", lic.ID),
		slog.Duration("latency", time.Since(start)),
	)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, &LicenseResponse{Success: true, License: lic})
}

// List handles GET /api/licenses.
func (h *LicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		render.Render(w, r, apierrors.NewProblemDetails(http.StatusUnauthorized,
			"/errors/unauthorized", "Unauthorized", "No authenticated actor.", r.URL.Path))
		return
	}

	licenses, err := h.service.List(ctx, actor)
	if err != nil {
		render.Render(w, r, apierrors.FromLicenseError(err, r.URL.Path))
		return
	}
	if licenses == nil {
		licenses = []*license.License{}
	}
	render.JSON(w, r, &LicenseListResponse{Success: true, Licenses: licenses})
}

// Revoke handles POST /api/licenses/{licenseID}/revoke.
func (h *LicenseHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		render.Render(w, r, apierrors.NewProblemDetails(http.StatusUnauthorized,
			"/errors/unauthorized", "Unauthorized", "No authenticated actor.", r.URL.Path))
		return
	}
	licenseID := chi.URLParam(r, "licenseID")

	var req RevokeLicenseRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apierrors.NewProblemDetails(http.StatusBadRequest,
			"/errors/invalid-request", "Invalid Request", err.Error(), r.URL.Path))
		return
	}

	lic, err := h.service.Revoke(ctx, actor, licenseID, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "license revocation rejected",
			slog.String("license_id", licenseID),
			slog.String("actor", actor.UID),
			slog.String("error", err.Error()),
		)
		render.Render(w, r, apierrors.FromLicenseError(err, r.URL.Path))
		return
	}
	render.JSON(w, r, &LicenseResponse{Success: true, License: lic})
}

// Restore handles POST /api/licenses/{licenseID}/restore.
func (h *LicenseHandler) Restore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		render.Render(w, r, apierrors.NewProblemDetails(http.StatusUnauthorized,
			"/errors/unauthorized", "Unauthorized", "No authenticated actor.", r.URL.Path))
		return
	}
	licenseID := chi.URLParam(r, "licenseID")

	lic, err := h.service.Restore(ctx, actor, licenseID)
	if err != nil {
		h.logger.WarnContext(ctx, "license restore rejected",
			slog.String("license_id", licenseID),
			slog.String("actor", actor.UID),
			slog.String("error", err.Error()),
		)
		render.Render(w, r, apierrors.FromLicenseError(err, r.URL.Path))
		return
	}
	render.JSON(w, r, &LicenseResponse{Success: true, License: lic})
}
