package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "coolmath-pro/backend/internal/errors"
	paymentservice "coolmath-pro/backend/internal/payment/service"
)

// signatureHeader is the provider's signature header on webhook POSTs.
const signatureHeader = "X-Razorpay-Signature"

// maxWebhookBody caps webhook payload size at 1 MiB.
const maxWebhookBody = 1 << 20

// WebhookHandler receives payment provider webhooks. Delivery metrics are
// recorded by the service, per audit outcome.
type WebhookHandler struct {
	svc    *paymentservice.WebhookService
	logger *slog.Logger
}

// Razorpay handles one webhook delivery. The body is passed to the service as
// raw bytes so the signature is verified over exactly what was received.
// Signature mismatches are acknowledged with a generic failed status and no
// detail; only storage or decoding faults return a 5xx so the provider
// retries.
func (h *WebhookHandler) Razorpay(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		render.Render(w, r, apierrors.ErrInvalidRequest)
		return
	}

	ack, err := h.svc.HandleRazorpay(r.Context(), body, r.Header.Get(signatureHeader))
	if err != nil {
		if errors.Is(err, paymentservice.ErrInvalidSignature) {
			render.JSON(w, r, paymentservice.Ack{Status: paymentservice.AckFailed})
			return
		}
		h.logger.Error("webhook processing failed", "error", err)
		render.Render(w, r, apierrors.ErrInternalServer)
		return
	}

	render.JSON(w, r, ack)
}
