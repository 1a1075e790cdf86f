package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"rslab/internal/assets"
	apierrors "rslab/internal/errors"
	"rslab/internal/middleware"
)

// DownloadHandler streams the licensed plugin build to authenticated users.
type DownloadHandler struct {
	storage  assets.Storage
	filename string
	logger   *slog.Logger
}

// NewDownloadHandler creates a download handler. filename is the name sent
// in the Content-Disposition header.
func NewDownloadHandler(storage assets.Storage, filename string, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{
		storage:  storage,
		filename: filename,
		logger:   logger.With(slog.String("handler", "download")),
	}
}

// Download handles GET /api/download.
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		render.Render(w, r, apierrors.NewProblemDetails(http.StatusUnauthorized,
			"/errors/unauthorized", "Unauthorized", "No authenticated actor.", r.URL.Path))
		return
	}

	body, size, contentType, err := h.storage.FetchPlugin(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "plugin fetch failed",
			slog.String("actor", actor.UID),
			slog.String("error", err.Error()),
		)
		render.Render(w, r, apierrors.NewProblemDetails(http.StatusInternalServerError,
			"/errors/internal", "Internal Server Error", "Plugin download unavailable.", r.URL.Path))
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.filename))
	if size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	}
	if _, err := io.Copy(w, body); err != nil {
		// Headers are gone; nothing to send. Most commonly the client
		// cancelled mid-stream.
		h.logger.WarnContext(ctx, "plugin stream interrupted",
			slog.String("actor", actor.UID),
			slog.String("error", err.Error()),
		)
	}
}
