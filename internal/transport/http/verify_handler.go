package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"rslab/internal/license"
)

// verifyOutcomes counts verification results by outcome for alerting on
// abuse or client drift.
var verifyOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rslab_license_verifications_total",
		Help: "License verification outcomes.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(verifyOutcomes)
}

// VerifyHandler serves the public game-server verification endpoint. The
// response contract is fixed: HTTP 200 with {valid:false, reason} for every
// negative outcome except malformed input.
type VerifyHandler struct {
	service LicenseService
	logger  *slog.Logger
}

// NewVerifyHandler creates a verify handler.
func NewVerifyHandler(service LicenseService, logger *slog.Logger) *VerifyHandler {
	return &VerifyHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "verify")),
	}
}

// Verify handles GET /api/verify-license?licenseId=...&universeId=...
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("verify-handler")
	ctx, span := tracer.Start(ctx, "verify_handler.verify")
	defer span.End()

	licenseID := strings.TrimSpace(r.URL.Query().Get("licenseId"))
	universeRaw := strings.TrimSpace(r.URL.Query().Get("universeId"))
	if licenseID == "" || universeRaw == "" {
		verifyOutcomes.WithLabelValues("missing_params").Inc()
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &license.VerifyResult{Valid: false, Reason: "MISSING_PARAMS"})
		return
	}
	universeID, err := strconv.ParseInt(universeRaw, 10, 64)
	if err != nil || universeID <= 0 {
		verifyOutcomes.WithLabelValues("missing_params").Inc()
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, &license.VerifyResult{Valid: false, Reason: "MISSING_PARAMS"})
		return
	}

	span.SetAttributes(
		attribute.String("license.id", licenseID),
		attribute.Int64("universe.id", universeID),
	)

	result, err := h.service.Verify(ctx, licenseID, universeID)
	if err != nil {
		span.RecordError(err)
		verifyOutcomes.WithLabelValues("server_error").Inc()
		h.logger.ErrorContext(ctx, "verification failed",
			slog.String("license_id", licenseID),
			slog.String("error", err.Error()),
		)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, &license.VerifyResult{Valid: false, Reason: "SERVER_ERROR"})
		return
	}

	outcome := "valid"
	if !result.Valid {
		outcome = strings.ToLower(result.Reason)
	}
	verifyOutcomes.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.Bool("license.valid", result.Valid))

	h.logger.InfoContext(ctx, "verification completed",
		slog.String("license_id", licenseID),
		slog.Int64("universe_id", universeID),
		slog.Bool("valid", result.Valid),
		slog.String("reason", result.Reason),
	)
	render.JSON(w, r, result)
}
