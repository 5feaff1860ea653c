package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	deviceservice "coolmath-pro/backend/internal/device/service"
	apierrors "coolmath-pro/backend/internal/errors"
	"coolmath-pro/backend/internal/telemetry"
)

// deviceIDHeader carries the raw device identifier on device-scoped requests.
const deviceIDHeader = "Device-ID"

// ActivationHandler serves the entitlement status check.
type ActivationHandler struct {
	svc     *deviceservice.ActivationService
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// CheckActivation resolves the entitlement of the device named in the
// Device-ID header. A device with no row is reported as unregistered, not an
// error.
func (h *ActivationHandler) CheckActivation(w http.ResponseWriter, r *http.Request) {
	rawID := r.Header.Get(deviceIDHeader)
	if rawID == "" {
		render.Render(w, r, apierrors.BadRequest("MISSING_DEVICE_ID", "Device-ID header is required"))
		return
	}

	status, err := h.svc.CheckActivation(r.Context(), rawID)
	if err != nil {
		h.logger.Error("check activation", "error", err)
		render.Render(w, r, apierrors.ErrInternalServer)
		return
	}

	h.metrics.RecordActivationCheck(r.Context(), string(status.Status))
	render.JSON(w, r, status)
}
