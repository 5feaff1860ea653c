// Package http wires the chi router serving the public API.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	adminservice "coolmath-pro/backend/internal/admin/service"
	authservice "coolmath-pro/backend/internal/auth/service"
	deviceservice "coolmath-pro/backend/internal/device/service"
	paymentservice "coolmath-pro/backend/internal/payment/service"
	"coolmath-pro/backend/internal/telemetry"
)

// Deps carries the services the router exposes.
type Deps struct {
	Activation *deviceservice.ActivationService
	Auth       *authservice.AuthService
	Webhook    *paymentservice.WebhookService
	Stats      *adminservice.StatsService
	Health     *HealthHandler

	Logger  *slog.Logger
	Metrics *telemetry.Metrics

	// DevOTP exposes the reset code in the request-reset response. Never
	// enabled in production (config validation rejects it).
	DevOTP bool
}

// NewRouter builds the API router. All application routes live under /api;
// the root path answers with a short liveness banner.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]string{"message": "CoolMath Pro Backend LIVE"})
	})

	activation := &ActivationHandler{svc: d.Activation, logger: logger, metrics: d.Metrics}
	auth := &AuthHandler{svc: d.Auth, logger: logger, metrics: d.Metrics, devOTP: d.DevOTP}
	webhook := &WebhookHandler{svc: d.Webhook, logger: logger}
	admin := &AdminHandler{svc: d.Stats, logger: logger}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/healthz", d.Health.Healthz)
		r.Get("/check-activation", activation.CheckActivation)
		r.Mount("/auth", auth.Routes())
		r.Post("/webhook/razorpay", webhook.Razorpay)
		r.Mount("/admin", admin.Routes())
	})

	return r
}

// requestLogger logs one line per request with method, path, status and
// duration, tagged with the request id.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
