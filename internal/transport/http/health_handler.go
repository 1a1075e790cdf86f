package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CopyrightText is returned by the meta endpoint so game clients can update
// the attribution string without a client release.
const CopyrightText = "© rstudiolab.online"

// HealthHandler serves the public health and metadata endpoints.
type HealthHandler struct {
	version string
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// Health handles GET /api/health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"ok":      true,
		"status":  "online",
		"version": h.version,
		"time":    time.Now().UnixMilli(),
	})
}

// Meta handles GET /api/meta?type=copyright|health.
func (h *HealthHandler) Meta(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("type") {
	case "copyright":
		// Clients must not cache this; it changes server-side.
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		render.JSON(w, r, map[string]interface{}{
			"success":   true,
			"text":      CopyrightText,
			"timestamp": time.Now().UnixMilli(),
		})
	case "health":
		render.JSON(w, r, map[string]interface{}{"success": true, "status": "ok"})
	default:
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]interface{}{"error": "INVALID_META_TYPE"})
	}
}

// Metrics returns the Prometheus scrape handler.
func Metrics() http.Handler {
	return promhttp.Handler()
}
