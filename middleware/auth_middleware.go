package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Blukstak/OxideExpo-sub000/internal/observability"
	"github.com/Blukstak/OxideExpo-sub000/models"
	"github.com/Blukstak/OxideExpo-sub000/services/token"
	"github.com/Blukstak/OxideExpo-sub000/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	msgMissingAuthorization = "Missing or invalid authorization"
	msgInvalidToken         = "Invalid or expired token"
)

// TokenVerifier checks a bearer token's signature and lifetime
type TokenVerifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

// RevocationChecker reports whether a token id has been revoked
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RejectionRecorder counts gate rejections by stage and reason
type RejectionRecorder interface {
	RecordAuthRejection(stage, reason string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthRejection(string, string) {}

// AuthMiddleware authenticates bearer tokens and attaches the caller's identity
type AuthMiddleware struct {
	verifier    TokenVerifier
	revocations RevocationChecker
	logger      *zap.Logger
	recorder    RejectionRecorder
	failClosed  bool
}

// AuthOption configures an AuthMiddleware
type AuthOption func(*AuthMiddleware)

// WithFailClosed rejects requests when the revocation registry errors
func WithFailClosed(failClosed bool) AuthOption {
	return func(m *AuthMiddleware) {
		m.failClosed = failClosed
	}
}

// WithRejectionRecorder reports rejections to rec
func WithRejectionRecorder(rec RejectionRecorder) AuthOption {
	return func(m *AuthMiddleware) {
		if rec != nil {
			m.recorder = rec
		}
	}
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier, revocations RevocationChecker, logger *zap.Logger, opts ...AuthOption) *AuthMiddleware {
	m := &AuthMiddleware{
		verifier:    verifier,
		revocations: revocations,
		logger:      logger,
		recorder:    noopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RequireAuth rejects the request with 401 unless it carries a valid,
// unrevoked bearer token whose subject is a UUID.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		raw := extractBearerToken(r)
		if raw == "" {
			m.reject(w, requestID, "missing_token", msgMissingAuthorization)
			return
		}

		claims, err := m.verifier.Verify(raw)
		if err != nil {
			m.logger.Debug("token verification failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			m.reject(w, requestID, "invalid_token", msgInvalidToken)
			return
		}

		revoked, err := m.revocations.IsRevoked(ctx, claims.ID)
		switch {
		case err != nil && m.failClosed:
			m.logger.Warn("revocation registry unavailable, rejecting",
				zap.String("request_id", requestID),
				zap.Error(err))
			m.reject(w, requestID, "registry_unavailable", msgInvalidToken)
			return
		case err != nil:
			m.logger.Warn("revocation registry unavailable, allowing",
				zap.String("request_id", requestID),
				zap.String("jti", claims.ID),
				zap.Error(err))
		case revoked:
			m.reject(w, requestID, "revoked", msgInvalidToken)
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			m.reject(w, requestID, "invalid_subject", msgInvalidToken)
			return
		}

		identity := &models.AuthenticatedIdentity{
			ID:        userID,
			Email:     claims.Email,
			RoleClass: claims.Role,
			TokenID:   claims.ID,
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("user_id", userID.String()))

		ctx = WithClaims(WithIdentity(ctx, identity), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoleClass admits only identities whose coarse role class is listed.
// Must run after RequireAuth.
func (m *AuthMiddleware) RequireRoleClass(classes ...models.RoleClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			identity := GetIdentity(ctx)
			if identity == nil {
				m.logger.Error("identity not found in context",
					zap.String("request_id", requestID))
				m.recorder.RecordAuthRejection(observability.StageRoleClass, "missing_identity")
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			for _, c := range classes {
				if identity.RoleClass == c {
					next.ServeHTTP(w, r)
					return
				}
			}

			m.logger.Debug("role class not permitted",
				zap.String("request_id", requestID),
				zap.String("user_id", identity.ID.String()),
				zap.String("role_class", string(identity.RoleClass)))
			m.recorder.RecordAuthRejection(observability.StageRoleClass, "role_class")
			_ = utils.WriteForbidden(w, "Insufficient permissions")
		})
	}
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, requestID, reason, message string) {
	m.logger.Debug("request rejected",
		zap.String("request_id", requestID),
		zap.String("reason", reason))
	m.recorder.RecordAuthRejection(observability.StageAuthentication, reason)
	_ = utils.WriteUnauthorized(w, message)
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
