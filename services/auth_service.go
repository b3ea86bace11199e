package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Blukstak/OxideExpo-sub000/models"
	"github.com/Blukstak/OxideExpo-sub000/repositories"
	"github.com/Blukstak/OxideExpo-sub000/services/audit"
	"github.com/Blukstak/OxideExpo-sub000/services/token"
	"github.com/Blukstak/OxideExpo-sub000/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs and verifies the credentials handed to clients
type TokenIssuer interface {
	Issue(subject uuid.UUID, email string, role models.RoleClass, ttl time.Duration) (string, time.Time, error)
	IssueRefresh(subject uuid.UUID, email string, role models.RoleClass) (string, time.Time, error)
	VerifyRefresh(tokenString string) (*token.Claims, error)
}

// TokenRevoker is the write side of the revocation registry. Claim must be
// atomic: of any number of concurrent calls for one jti, at most one wins.
type TokenRevoker interface {
	RevokeClaims(ctx context.Context, claims *token.Claims) error
	Claim(ctx context.Context, claims *token.Claims) (bool, error)
}

// AuditLogger records authentication events
type AuditLogger interface {
	LogAuthEvent(action models.AuditAction, email string, user *models.User, meta audit.RequestMeta, details map[string]interface{}) error
}

// RegisterInput is the self-registration payload for job seekers
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72,password"`
}

// LoginInput carries credentials for Login
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair is returned by Login and Refresh
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	ExpiresIn        int64     `json:"expires_in"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// AuthService implements registration, login, logout and refresh rotation
type AuthService struct {
	users       repositories.UserRepository
	txMgr       repositories.TransactionManager
	tokens      TokenIssuer
	revocations TokenRevoker
	audit       AuditLogger
	logger      *zap.Logger
	bcryptCost  int
	now         func() time.Time

	// compared against on unknown emails so both login failures cost one bcrypt
	placeholderHash []byte
}

// NewAuthService creates an AuthService. auditLog may be nil.
func NewAuthService(
	users repositories.UserRepository,
	txMgr repositories.TransactionManager,
	tokens TokenIssuer,
	revocations TokenRevoker,
	auditLog AuditLogger,
	logger *zap.Logger,
	bcryptCost int,
) (*AuthService, error) {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	placeholder, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to build placeholder hash: %w", err)
	}
	return &AuthService{
		users:           users,
		txMgr:           txMgr,
		tokens:          tokens,
		revocations:     revocations,
		audit:           auditLog,
		logger:          logger,
		bcryptCost:      bcryptCost,
		now:             time.Now,
		placeholderHash: placeholder,
	}, nil
}

// Register creates a job-seeker account
func (s *AuthService) Register(ctx context.Context, input RegisterInput, meta audit.RequestMeta) (*models.User, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, validationFailure(err)
	}

	email := models.NormalizeEmail(input.Email)
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, WrapInternal("failed to hash password", err)
	}

	user, err := WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*models.User, error) {
		existing, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil && existing != nil:
			return nil, ErrDuplicateEmail
		case err != nil && !errors.Is(err, repositories.ErrNotFound):
			return nil, NewDomainError(ErrorTypeInternal, "failed to check email", err)
		}

		user := models.NewUser(email, string(hash), models.RoleClassJobSeeker)
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return nil, ErrDuplicateEmail
			}
			return nil, NewDomainError(ErrorTypeInternal, "failed to create user", err)
		}
		return user, nil
	})
	if err != nil {
		if GetErrorType(err) == "" {
			err = NewDomainError(ErrorTypeInternal, "failed to register user", err)
		}
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("request_id", meta.RequestID))
	s.record(models.AuditActionRegister, email, user, meta, map[string]interface{}{
		"role_class": string(user.RoleClass),
	})
	return user, nil
}

// Login checks credentials and issues a token pair. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, input LoginInput, meta audit.RequestMeta) (*TokenPair, *models.User, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, validationFailure(err)
	}

	email := models.NormalizeEmail(input.Email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, NewDomainError(ErrorTypeInternal, "failed to load user", err)
		}
		// equalize timing with the wrong-password path
		_ = bcrypt.CompareHashAndPassword(s.placeholderHash, []byte(input.Password))
		s.record(models.AuditActionLoginFailed, email, nil, meta, map[string]interface{}{"reason": "unknown_email"})
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.record(models.AuditActionLoginFailed, email, user, meta, map[string]interface{}{"reason": "bad_password"})
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID, user.Email, user.RoleClass)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("request_id", meta.RequestID))
	s.record(models.AuditActionLogin, email, user, meta, map[string]interface{}{
		"role_class": string(user.RoleClass),
	})
	return pair, user, nil
}

// Logout revokes the presented access token for the rest of its lifetime.
// A refresh token belonging to the same subject is revoked too; an invalid
// one is ignored.
func (s *AuthService) Logout(ctx context.Context, access *token.Claims, refreshToken string, meta audit.RequestMeta) error {
	if access == nil {
		return ErrInvalidToken
	}

	if err := s.revocations.RevokeClaims(ctx, access); err != nil {
		return NewDomainError(ErrorTypeInternal, "failed to revoke access token", err)
	}

	refreshRevoked := false
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken != "" {
		refresh, err := s.tokens.VerifyRefresh(refreshToken)
		switch {
		case err != nil:
			s.logger.Debug("ignoring invalid refresh token on logout", zap.String("request_id", meta.RequestID))
		case refresh.Subject != access.Subject:
			s.logger.Warn("refresh token subject mismatch on logout",
				zap.String("subject", access.Subject),
				zap.String("request_id", meta.RequestID))
		default:
			if err := s.revocations.RevokeClaims(ctx, refresh); err != nil {
				return NewDomainError(ErrorTypeInternal, "failed to revoke refresh token", err)
			}
			refreshRevoked = true
		}
	}

	var user *models.User
	if id, err := uuid.Parse(access.Subject); err == nil {
		user = &models.User{ID: id, Email: access.Email, RoleClass: access.Role}
	}
	s.record(models.AuditActionLogout, access.Email, user, meta, map[string]interface{}{
		"refresh_revoked": refreshRevoked,
	})
	return nil
}

// Refresh rotates a refresh token. The presented token is claimed in the
// registry, so it yields at most one new pair, which carries the user's
// current role class.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta audit.RequestMeta) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, NewDomainError(ErrorTypeInternal, "failed to load user", err)
	}

	claimed, err := s.revocations.Claim(ctx, claims)
	if err != nil {
		return nil, NewDomainError(ErrorTypeInternal, "failed to claim refresh token", err)
	}
	if !claimed {
		s.logger.Warn("revoked refresh token presented",
			zap.String("subject", claims.Subject),
			zap.String("request_id", meta.RequestID))
		return nil, ErrInvalidToken
	}

	pair, err := s.issuePair(user.ID, user.Email, user.RoleClass)
	if err != nil {
		return nil, err
	}

	s.record(models.AuditActionTokenRefreshed, user.Email, user, meta, nil)
	return pair, nil
}

// Me returns the account behind an authenticated identity
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, NewDomainError(ErrorTypeInternal, "failed to load user", err)
	}
	return user, nil
}

func (s *AuthService) issuePair(id uuid.UUID, email string, role models.RoleClass) (*TokenPair, error) {
	access, expiresAt, err := s.tokens.Issue(id, email, role, 0)
	if err != nil {
		return nil, WrapInternal("failed to issue access token", err)
	}
	refresh, refreshExpiresAt, err := s.tokens.IssueRefresh(id, email, role)
	if err != nil {
		return nil, WrapInternal("failed to issue refresh token", err)
	}

	expiresIn := int64(expiresAt.Sub(s.now()).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresAt:        expiresAt,
		ExpiresIn:        expiresIn,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

func (s *AuthService) record(action models.AuditAction, email string, user *models.User, meta audit.RequestMeta, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogAuthEvent(action, email, user, meta, details); err != nil {
		s.logger.Warn("failed to queue audit event",
			zap.Error(err),
			zap.String("action", string(action)),
			zap.String("request_id", meta.RequestID))
	}
}

func validationFailure(err error) error {
	if fields := utils.GetValidationFields(err); fields != nil {
		domainErr := ErrInvalidInput.WithDetail("fields", fields)
		domainErr.Err = err
		return domainErr
	}
	return NewDomainError(ErrorTypeValidation, "invalid input", err)
}
