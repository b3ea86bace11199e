package middleware

import (
	"context"

	"github.com/Blukstak/OxideExpo-sub000/models"
	"github.com/Blukstak/OxideExpo-sub000/services/token"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Context key type to avoid collisions
type contextKey string

const (
	// IdentityKey is the context key for the authenticated identity
	IdentityKey contextKey = "identity"

	// ClaimsKey is the context key for the verified access token claims
	ClaimsKey contextKey = "claims"

	// AdminContextKey is the context key for a resolved admin membership
	AdminContextKey contextKey = "admin_context"

	// OMILContextKey is the context key for a resolved OMIL membership
	OMILContextKey contextKey = "omil_context"

	// CompanyContextKey is the context key for a resolved company membership
	CompanyContextKey contextKey = "company_context"
)

// GetRequestIDFromContext returns the id set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// WithIdentity attaches the authenticated identity
func WithIdentity(ctx context.Context, identity *models.AuthenticatedIdentity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentity returns the authenticated identity, or nil when the
// authentication gate has not run
func GetIdentity(ctx context.Context) *models.AuthenticatedIdentity {
	identity, _ := ctx.Value(IdentityKey).(*models.AuthenticatedIdentity)
	return identity
}

// WithClaims attaches the verified access token claims
func WithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims returns the verified access token claims
func GetClaims(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(ClaimsKey).(*token.Claims)
	return claims
}

// WithAdminContext attaches a resolved admin membership
func WithAdminContext(ctx context.Context, ac *models.AdminContext) context.Context {
	return context.WithValue(ctx, AdminContextKey, ac)
}

// GetAdminContext returns the admin membership resolved for this request
func GetAdminContext(ctx context.Context) *models.AdminContext {
	ac, _ := ctx.Value(AdminContextKey).(*models.AdminContext)
	return ac
}

// WithOMILContext attaches a resolved OMIL membership
func WithOMILContext(ctx context.Context, oc *models.OMILContext) context.Context {
	return context.WithValue(ctx, OMILContextKey, oc)
}

// GetOMILContext returns the OMIL membership resolved for this request
func GetOMILContext(ctx context.Context) *models.OMILContext {
	oc, _ := ctx.Value(OMILContextKey).(*models.OMILContext)
	return oc
}

// WithCompanyContext attaches a resolved company membership
func WithCompanyContext(ctx context.Context, cc *models.CompanyContext) context.Context {
	return context.WithValue(ctx, CompanyContextKey, cc)
}

// GetCompanyContext returns the company membership resolved for this request
func GetCompanyContext(ctx context.Context) *models.CompanyContext {
	cc, _ := ctx.Value(CompanyContextKey).(*models.CompanyContext)
	return cc
}
