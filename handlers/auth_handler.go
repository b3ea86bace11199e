package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/Blukstak/OxideExpo-sub000/middleware"
	"github.com/Blukstak/OxideExpo-sub000/models"
	"github.com/Blukstak/OxideExpo-sub000/services"
	"github.com/Blukstak/OxideExpo-sub000/services/audit"
	"github.com/Blukstak/OxideExpo-sub000/services/token"
	"github.com/Blukstak/OxideExpo-sub000/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthService is the account and session API behind the auth endpoints
type AuthService interface {
	Register(ctx context.Context, input services.RegisterInput, meta audit.RequestMeta) (*models.User, error)
	Login(ctx context.Context, input services.LoginInput, meta audit.RequestMeta) (*services.TokenPair, *models.User, error)
	Refresh(ctx context.Context, refreshToken string, meta audit.RequestMeta) (*services.TokenPair, error)
	Logout(ctx context.Context, access *token.Claims, refreshToken string, meta audit.RequestMeta) error
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// RefreshRequest is the body of POST /auth/refresh and the optional body of logout
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse is returned by POST /auth/login
type LoginResponse struct {
	*services.TokenPair
	User *models.User `json:"user"`
}

// AuthHandler serves registration, login, refresh, logout and me
type AuthHandler struct {
	auth   AuthService
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger,
	}
}

// HandleRegister handles POST /api/v1/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := utils.DecodeJSON(w, r, &input); err != nil {
		HandleDecodeError(w, err, h.logger)
		return
	}

	user, err := h.auth.Register(r.Context(), input, requestMeta(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, user)
}

// HandleLogin handles POST /api/v1/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := utils.DecodeJSON(w, r, &input); err != nil {
		HandleDecodeError(w, err, h.logger)
		return
	}

	pair, user, err := h.auth.Login(r.Context(), input, requestMeta(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, LoginResponse{TokenPair: pair, User: user})
}

// HandleRefresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var input RefreshRequest
	if err := utils.DecodeJSON(w, r, &input); err != nil {
		HandleDecodeError(w, err, h.logger)
		return
	}
	if input.RefreshToken == "" {
		_ = utils.WriteBadRequest(w, "refresh_token is required", nil)
		return
	}

	pair, err := h.auth.Refresh(r.Context(), input.RefreshToken, requestMeta(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, pair)
}

// HandleLogout handles POST /api/v1/auth/logout. The body is optional.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	var input RefreshRequest
	if err := utils.DecodeJSON(w, r, &input); err != nil && !errors.Is(err, utils.ErrEmptyBody) {
		HandleDecodeError(w, err, h.logger)
		return
	}

	if err := h.auth.Logout(r.Context(), claims, input.RefreshToken, requestMeta(r)); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// HandleMe handles GET /api/v1/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	user, err := h.auth.Me(r.Context(), identity.ID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, user)
}

// requestMeta copies request identifiers for the audit trail.
// RemoteAddr has already been rewritten by chi's RealIP.
func requestMeta(r *http.Request) audit.RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return audit.RequestMeta{
		RequestID: middleware.GetRequestIDFromContext(r.Context()),
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}
