package handlers

import (
	"net/http"

	authmw "github.com/victorgomez09/portal/internal/auth/middleware"
	"github.com/victorgomez09/portal/internal/auth/service"
	"github.com/victorgomez09/portal/internal/auth/validation"
	"github.com/victorgomez09/portal/internal/cerr"
	"github.com/victorgomez09/portal/internal/middleware"
)

type AuthHandler struct {
	authService *service.AuthService
	writer      *cerr.Writer
}

func NewAuthHandler(authService *service.AuthService, writer *cerr.Writer) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		writer:      writer,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UserResponse wraps a user for the verify endpoint.
type UserResponse struct {
	User any `json:"user"`
}

// Routes registers the /api/auth endpoints. limiter guards register and login.
func (h *AuthHandler) Routes(mux *http.ServeMux, gate *authmw.Gate, limiter middleware.Middleware) {
	limited := func(f http.HandlerFunc) http.Handler {
		if limiter == nil {
			return f
		}
		return limiter.Middleware(f)
	}

	mux.Handle("POST /api/auth/register", limited(h.Register))
	mux.Handle("POST /api/auth/login", limited(h.Login))
	mux.Handle("POST /api/auth/refresh", limited(h.Refresh))
	mux.Handle("GET /api/auth/verify", gate.Authenticate(http.HandlerFunc(h.Verify)))
	mux.Handle("POST /api/auth/logout", gate.Authenticate(http.HandlerFunc(h.Logout)))
	mux.Handle("PUT /api/auth/password", gate.Authenticate(http.HandlerFunc(h.ChangePassword)))
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := cerr.DecodeJSON(w, r, &req); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	session, err := h.authService.Register(r.Context(), req, middleware.ClientIP(r))
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}

	h.writer.JSON(w, http.StatusCreated, "Registration successful", session)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := cerr.DecodeJSON(w, r, &req); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	if err := validation.New().Required("email", req.Email).Required("password", req.Password).Err(); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password, middleware.ClientIP(r))
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}

	h.writer.JSON(w, http.StatusOK, "Login successful", session)
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, ok := authmw.UserFromContext(r.Context())
	if !ok {
		h.writer.Error(w, r, cerr.Unauthenticated("verify", "Access token required"))
		return
	}

	h.writer.JSON(w, http.StatusOK, "", UserResponse{User: user})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := cerr.DecodeJSON(w, r, &req); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	if err := validation.New().Required("refreshToken", req.RefreshToken).Err(); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	pair, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}

	h.writer.JSON(w, http.StatusOK, "Token refreshed", pair)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, _ := authmw.IdentityFromContext(r.Context())

	if err := h.authService.Logout(r.Context(), id.ID, middleware.ClientIP(r)); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	h.writer.JSON(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, _ := authmw.IdentityFromContext(r.Context())

	var req ChangePasswordRequest
	if err := cerr.DecodeJSON(w, r, &req); err != nil {
		h.writer.Error(w, r, err)
		return
	}

	err := h.authService.ChangePassword(r.Context(), id.ID, req.CurrentPassword, req.NewPassword, middleware.ClientIP(r))
	if err != nil {
		h.writer.Error(w, r, err)
		return
	}

	h.writer.JSON(w, http.StatusOK, "Password changed", nil)
}
