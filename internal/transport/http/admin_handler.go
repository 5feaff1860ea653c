package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	adminservice "coolmath-pro/backend/internal/admin/service"
	apierrors "coolmath-pro/backend/internal/errors"
)

// AdminHandler serves the operational stats endpoint.
type AdminHandler struct {
	svc    *adminservice.StatsService
	logger *slog.Logger
}

// Routes returns the /admin subrouter.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/stats", h.Stats)
	return r
}

// Stats returns the current device and revenue counts.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("admin stats", "error", err)
		render.Render(w, r, apierrors.ErrInternalServer)
		return
	}
	render.JSON(w, r, stats)
}
