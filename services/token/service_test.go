package token

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Blukstak/OxideExpo-sub000/config"
	"github.com/Blukstak/OxideExpo-sub000/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:     "test-secret-that-is-long-enough-32b",
		Issuer:     "empleos-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
}

func newTestService(t *testing.T, now *time.Time) *Service {
	t.Helper()
	svc, err := NewService(testConfig(), WithClock(func() time.Time { return *now }))
	require.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		cfg := testConfig()
		cfg.Secret = "   "
		_, err := NewService(cfg)
		assert.ErrorIs(t, err, ErrMissingSecret)
	})

	t.Run("non-positive ttl", func(t *testing.T) {
		cfg := testConfig()
		cfg.AccessTTL = 0
		_, err := NewService(cfg)
		assert.Error(t, err)
	})
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)
	subject := uuid.New()

	token, expiresAt, err := svc.Issue(subject, "ana@example.com", models.RoleClassJobSeeker, 900*time.Second)
	require.NoError(t, err)
	assert.True(t, now.Add(900*time.Second).Equal(expiresAt))

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, subject.String(), claims.Subject)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, models.RoleClassJobSeeker, claims.Role)
	assert.Equal(t, TypeAccess, claims.Type)
	assert.Equal(t, "empleos-test", claims.Issuer)
	assert.NotEmpty(t, claims.TokenID())
	assert.True(t, expiresAt.Equal(claims.ExpiresAt.Time))
	assert.True(t, now.Equal(claims.IssuedAt.Time))
}

func TestIssue_DefaultTTL(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)

	_, expiresAt, err := svc.Issue(uuid.New(), "a@example.com", models.RoleClassAdmin, 0)
	require.NoError(t, err)
	assert.True(t, now.Add(15*time.Minute).Equal(expiresAt))
	assert.Equal(t, 15*time.Minute, svc.AccessTTL())
}

func TestIssue_UniqueTokenIDs(t *testing.T) {
	now := time.Now()
	svc := newTestService(t, &now)
	subject := uuid.New()

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		token, _, err := svc.Issue(subject, "a@example.com", models.RoleClassJobSeeker, time.Minute)
		require.NoError(t, err)
		claims, err := svc.Verify(token)
		require.NoError(t, err)
		_, dup := seen[claims.ID]
		require.False(t, dup, "duplicate jti %s", claims.ID)
		seen[claims.ID] = struct{}{}
	}
}

func TestVerify_Expired(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)

	token, expiresAt, err := svc.Issue(uuid.New(), "a@example.com", models.RoleClassJobSeeker, time.Minute)
	require.NoError(t, err)

	now = expiresAt.Add(-time.Second)
	_, err = svc.Verify(token)
	require.NoError(t, err)

	for _, at := range []time.Time{expiresAt, expiresAt.Add(time.Second), expiresAt.Add(24 * time.Hour)} {
		now = at
		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "at %s", at)
	}
}

func TestVerify_RejectsForgedTokens(t *testing.T) {
	now := time.Now()
	svc := newTestService(t, &now)
	subject := uuid.New()

	valid, _, err := svc.Issue(subject, "a@example.com", models.RoleClassAdmin, time.Minute)
	require.NoError(t, err)

	foreignCfg := testConfig()
	foreignCfg.Secret = "another-secret-entirely-0123456789"
	foreign, err := NewService(foreignCfg)
	require.NoError(t, err)
	wrongSecret, _, err := foreign.Issue(subject, "a@example.com", models.RoleClassAdmin, time.Minute)
	require.NoError(t, err)

	otherIssuerCfg := testConfig()
	otherIssuerCfg.Issuer = "someone-else"
	otherIssuer, err := NewService(otherIssuerCfg)
	require.NoError(t, err)
	wrongIssuer, _, err := otherIssuer.Issue(subject, "a@example.com", models.RoleClassAdmin, time.Minute)
	require.NoError(t, err)

	baseClaims := Claims{
		Email: "a@example.com",
		Role:  models.RoleClassAdmin,
		Type:  TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "empleos-test",
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			ID:        uuid.NewString(),
		},
	}
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, baseClaims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, baseClaims).SignedString([]byte(testConfig().Secret))
	require.NoError(t, err)

	noExpiry := baseClaims
	noExpiry.ExpiresAt = nil
	withoutExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, noExpiry).SignedString([]byte(testConfig().Secret))
	require.NoError(t, err)

	noJTI := baseClaims
	noJTI.ID = ""
	withoutJTI, err := jwt.NewWithClaims(jwt.SigningMethodHS256, noJTI).SignedString([]byte(testConfig().Secret))
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	tamperedSig := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := map[string]string{
		"empty":            "",
		"garbage":          "not-a-jwt",
		"two segments":     parts[0] + "." + parts[1],
		"tampered sig":     tamperedSig,
		"wrong secret":     wrongSecret,
		"wrong issuer":     wrongIssuer,
		"alg none":         noneAlg,
		"alg HS512":        hs512,
		"missing exp":      withoutExp,
		"missing jti":      withoutJTI,
		"swapped payloads": parts[0] + "." + strings.Split(wrongSecret, ".")[1] + "." + parts[2],
	}

	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			claims, err := svc.Verify(tok)
			assert.Nil(t, claims)
			assert.Equal(t, ErrInvalidToken, err)
		})
	}
}

func TestRefreshTokens_AreNotInterchangeable(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)
	subject := uuid.New()

	refresh, expiresAt, err := svc.IssueRefresh(subject, "a@example.com", models.RoleClassOMILMember)
	require.NoError(t, err)
	assert.True(t, now.Add(24*time.Hour).Equal(expiresAt))

	access, _, err := svc.Issue(subject, "a@example.com", models.RoleClassOMILMember, 0)
	require.NoError(t, err)

	_, err = svc.Verify(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.VerifyRefresh(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := svc.VerifyRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, TypeRefresh, claims.Type)
	assert.Equal(t, subject.String(), claims.Subject)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "token:blacklist:abc-123", Fingerprint("abc-123"))
	assert.Equal(t, Fingerprint("x"), Fingerprint("x"))
	assert.NotEqual(t, Fingerprint("x"), Fingerprint("y"))
}

func TestClaims_RemainingTTL(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(90 * time.Second))}}

	assert.Equal(t, 90*time.Second, claims.RemainingTTL(now))
	assert.Equal(t, time.Duration(0), claims.RemainingTTL(now.Add(time.Hour)))
	assert.Equal(t, time.Duration(0), (&Claims{}).RemainingTTL(now))
}

func TestVerify_Concurrent(t *testing.T) {
	now := time.Now()
	svc := newTestService(t, &now)
	token, _, err := svc.Issue(uuid.New(), "a@example.com", models.RoleClassJobSeeker, time.Minute)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Verify(token)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
