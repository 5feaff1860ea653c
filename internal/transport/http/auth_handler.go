package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"coolmath-pro/backend/internal/auth/resetstore"
	authservice "coolmath-pro/backend/internal/auth/service"
	apierrors "coolmath-pro/backend/internal/errors"
	"coolmath-pro/backend/internal/telemetry"
)

// AuthHandler serves register-or-login, password reset and session lookup.
type AuthHandler struct {
	svc     *authservice.AuthService
	logger  *slog.Logger
	metrics *telemetry.Metrics
	devOTP  bool
}

// Routes returns the /auth subrouter.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register-or-login", h.RegisterOrLogin)
	r.Post("/request-reset", h.RequestReset)
	r.Post("/reset-password", h.ResetPassword)
	r.Get("/me", h.Me)
	return r
}

// tokenResponse is the register-or-login response body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	IsNewUser   bool   `json:"is_new_user"`
}

// RegisterOrLogin reads OAuth2-style form credentials (username, password) and
// the Device-ID header, then registers or logs in against that device.
func (h *AuthHandler) RegisterOrLogin(w http.ResponseWriter, r *http.Request) {
	rawID := r.Header.Get(deviceIDHeader)
	if rawID == "" {
		render.Render(w, r, apierrors.BadRequest("MISSING_DEVICE_ID", "Device-ID header is required"))
		return
	}
	if err := r.ParseForm(); err != nil {
		render.Render(w, r, apierrors.ErrInvalidRequest)
		return
	}
	email := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		render.Render(w, r, apierrors.BadRequest("MISSING_CREDENTIALS", "username and password are required"))
		return
	}

	res, err := h.svc.RegisterOrLogin(r.Context(), rawID, email, password)
	if err != nil {
		h.renderAuthError(w, r, err)
		return
	}

	h.metrics.RecordLogin(r.Context(), res.IsNewUser)
	render.JSON(w, r, tokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   "bearer",
		IsNewUser:   res.IsNewUser,
	})
}

type requestResetRequest struct {
	Email string `json:"email"`
}

// RequestReset generates a reset code for the account owning the email and
// dispatches delivery. In dev OTP mode the code is echoed in the response.
func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apierrors.ErrInvalidRequest)
		return
	}
	if req.Email == "" {
		render.Render(w, r, apierrors.BadRequest("MISSING_EMAIL", "email is required"))
		return
	}

	code, err := h.svc.RequestReset(r.Context(), req.Email)
	if err != nil {
		h.renderAuthError(w, r, err)
		return
	}

	h.metrics.RecordResetRequest(r.Context())
	resp := map[string]string{"message": "OTP sent"}
	if h.devOTP {
		resp["dev_otp"] = code
	}
	render.JSON(w, r, resp)
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

// ResetPassword consumes a pending reset code and overwrites the password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apierrors.ErrInvalidRequest)
		return
	}
	if req.Email == "" || req.OTP == "" || req.NewPassword == "" {
		render.Render(w, r, apierrors.BadRequest("MISSING_FIELDS", "email, otp and new_password are required"))
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		h.renderAuthError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"message": "Password reset successful"})
}

// Me returns the identity behind a bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		render.Render(w, r, apierrors.Unauthorized("Invalid token format"))
		return
	}
	id, err := h.svc.Authenticate(r.Context(), token)
	if err != nil {
		h.renderAuthError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"email": id.Email})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, prefix) || len(auth) == len(prefix) {
		return "", false
	}
	return auth[len(prefix):], true
}

// renderAuthError maps service sentinels onto HTTP statuses. Unknown errors
// are logged and hidden behind a 500.
func (h *AuthHandler) renderAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authservice.ErrDeviceNotActivated):
		render.Render(w, r, apierrors.NotFound("DEVICE_NOT_ACTIVATED", "Device not activated. Complete purchase or trial first."))
	case errors.Is(err, authservice.ErrEmailNotFound):
		render.Render(w, r, apierrors.NotFound("EMAIL_NOT_FOUND", "Email not found"))
	case errors.Is(err, authservice.ErrInvalidCredentials),
		errors.Is(err, authservice.ErrNotAuthorized):
		render.Render(w, r, apierrors.Unauthorized("Invalid credentials"))
	case errors.Is(err, authservice.ErrInvalidEmail):
		render.Render(w, r, apierrors.BadRequest("INVALID_EMAIL", "Invalid email format"))
	case errors.Is(err, authservice.ErrPasswordTooShort):
		render.Render(w, r, apierrors.BadRequest("PASSWORD_TOO_SHORT", "Password must be at least 8 characters"))
	case errors.Is(err, resetstore.ErrNoRequest):
		render.Render(w, r, apierrors.BadRequest("NO_RESET_REQUEST", "No reset request found"))
	case errors.Is(err, resetstore.ErrExpired):
		render.Render(w, r, apierrors.BadRequest("OTP_EXPIRED", "Reset code expired"))
	case errors.Is(err, resetstore.ErrInvalidCode):
		render.Render(w, r, apierrors.BadRequest("INVALID_OTP", "Invalid reset code"))
	default:
		h.logger.Error("auth request failed", "error", err)
		render.Render(w, r, apierrors.ErrInternalServer)
	}
}
