// Package token issues and verifies the signed access and refresh tokens
// presented as bearer credentials.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Blukstak/OxideExpo-sub000/config"
	"github.com/Blukstak/OxideExpo-sub000/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// BlacklistPrefix namespaces revocation registry keys
const BlacklistPrefix = "token:blacklist:"

// Type distinguishes access tokens from refresh tokens
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

var (
	// ErrInvalidToken covers bad signatures, malformed payloads and expiry alike
	ErrInvalidToken = errors.New("invalid token")

	// ErrSigning is returned when a token cannot be encoded
	ErrSigning = errors.New("token signing failed")

	// ErrMissingSecret is returned by NewService without a signing secret
	ErrMissingSecret = errors.New("token signing secret is not configured")
)

// Claims is the token payload
type Claims struct {
	Email string           `json:"email"`
	Role  models.RoleClass `json:"role"`
	Type  Type             `json:"typ"`
	jwt.RegisteredClaims
}

// TokenID returns the jti
func (c *Claims) TokenID() string {
	return c.ID
}

// RemainingTTL returns how long the token stays valid after now, never negative
func (c *Claims) RemainingTTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := c.ExpiresAt.Time.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Service signs and verifies HS256 tokens with a shared secret.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration
	now        func() time.Time
}

// Option customizes a Service
type Option func(*Service)

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a token service from explicit configuration
func NewService(cfg config.JWTConfig, opts ...Option) (*Service, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}

	s := &Service{
		secret:     []byte(secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		leeway:     cfg.Leeway,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AccessTTL returns the default access token lifetime
func (s *Service) AccessTTL() time.Duration {
	return s.accessTTL
}

// Issue signs an access token for subject. A non-positive ttl uses the
// configured access lifetime. The returned time is the encoded expiry.
func (s *Service) Issue(subject uuid.UUID, email string, role models.RoleClass, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = s.accessTTL
	}
	return s.sign(TypeAccess, subject, email, role, ttl)
}

// IssueRefresh signs a refresh token with the configured refresh lifetime
func (s *Service) IssueRefresh(subject uuid.UUID, email string, role models.RoleClass) (string, time.Time, error) {
	return s.sign(TypeRefresh, subject, email, role, s.refreshTTL)
}

func (s *Service) sign(typ Type, subject uuid.UUID, email string, role models.RoleClass, ttl time.Duration) (string, time.Time, error) {
	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(ttl)

	claims := Claims{
		Email: email,
		Role:  role,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, expiresAt, nil
}

// Verify validates an access token. Every failure returns ErrInvalidToken.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	return s.verify(tokenString, TypeAccess)
}

// VerifyRefresh validates a refresh token. Access tokens are rejected.
func (s *Service) VerifyRefresh(tokenString string) (*Claims, error) {
	return s.verify(tokenString, TypeRefresh)
}

func (s *Service) verify(tokenString string, want Type) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.NewParser(parserOpts...).ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != want || claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Fingerprint maps a token id to its revocation registry key
func Fingerprint(jti string) string {
	return BlacklistPrefix + jti
}
