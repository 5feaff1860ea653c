package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves the liveness endpoint. db may be nil, in which case
// only process liveness is reported.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler returns a HealthHandler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz reports ok when the process is up and the database answers a ping.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}
