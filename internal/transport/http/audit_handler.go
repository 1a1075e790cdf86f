package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	apierrors "rslab/internal/errors"
	"rslab/internal/license"
	"rslab/internal/middleware"
)

// AuditHandler serves the audit trail to admins and the owner.
type AuditHandler struct {
	service LicenseService
	logger  *slog.Logger
}

// NewAuditHandler creates an audit handler.
func NewAuditHandler(service LicenseService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "audit")),
	}
}

// AuditListResponse wraps an audit event listing.
type AuditListResponse struct {
	Success bool                  `json:"success"`
	Logs    []*license.AuditEvent `json:"logs"`
}

// List handles GET /api/logs?limit=N, newest first.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		render.Render(w, r, apierrors.NewProblemDetails(http.StatusUnauthorized,
			"/errors/unauthorized", "Unauthorized", "No authenticated actor.", r.URL.Path))
		return
	}

	limit := license.DefaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := h.service.AuditEvents(ctx, actor, limit)
	if err != nil {
		render.Render(w, r, apierrors.FromLicenseError(err, r.URL.Path))
		return
	}
	if events == nil {
		events = []*license.AuditEvent{}
	}
	render.JSON(w, r, &AuditListResponse{Success: true, Logs: events})
}
