package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Blukstak/OxideExpo-sub000/internal/observability"
	"github.com/Blukstak/OxideExpo-sub000/models"
	"github.com/Blukstak/OxideExpo-sub000/repositories"
	"github.com/Blukstak/OxideExpo-sub000/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminLookup reads an admin membership by user
type AdminLookup interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Admin, error)
}

// OMILLookup reads an OMIL membership and its office by user
type OMILLookup interface {
	GetMembershipByUserID(ctx context.Context, userID uuid.UUID) (*models.OMILMembership, error)
}

// CompanyLookup reads a company membership and its company by user
type CompanyLookup interface {
	GetMembershipByUserID(ctx context.Context, userID uuid.UUID) (*models.CompanyMembership, error)
}

// RoleMiddleware resolves role-specific context for authenticated requests.
// It holds no per-request state.
type RoleMiddleware struct {
	admins    AdminLookup
	omils     OMILLookup
	companies CompanyLookup
	logger    *zap.Logger
	recorder  RejectionRecorder
}

// NewRoleMiddleware creates a new RoleMiddleware. rec may be nil.
func NewRoleMiddleware(admins AdminLookup, omils OMILLookup, companies CompanyLookup, logger *zap.Logger, rec RejectionRecorder) *RoleMiddleware {
	if rec == nil {
		rec = noopRecorder{}
	}
	return &RoleMiddleware{
		admins:    admins,
		omils:     omils,
		companies: companies,
		logger:    logger,
		recorder:  rec,
	}
}

// outcome of one membership check
type decision int

const (
	allow decision = iota
	denyForbidden
	failInternal
)

// gate runs the shared identity/lookup/deny skeleton. resolve returns the
// derived context on success, or a decision and reason on failure.
func (m *RoleMiddleware) gate(stage string, resolve func(ctx context.Context, identity *models.AuthenticatedIdentity) (context.Context, decision, string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			identity := GetIdentity(ctx)
			if identity == nil {
				m.logger.Error("identity not found in context",
					zap.String("request_id", requestID),
					zap.String("stage", stage))
				m.recorder.RecordAuthRejection(stage, "missing_identity")
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			derived, d, reason, err := resolve(ctx, identity)
			switch d {
			case allow:
				next.ServeHTTP(w, r.WithContext(derived))
			case denyForbidden:
				m.logger.Debug("role check denied",
					zap.String("request_id", requestID),
					zap.String("user_id", identity.ID.String()),
					zap.String("stage", stage),
					zap.String("reason", reason))
				m.recorder.RecordAuthRejection(stage, reason)
				_ = utils.WriteForbidden(w, "Insufficient permissions")
			default:
				m.logger.Error("membership lookup failed",
					zap.String("request_id", requestID),
					zap.String("user_id", identity.ID.String()),
					zap.String("stage", stage),
					zap.Error(err))
				m.recorder.RecordAuthRejection(stage, reason)
				_ = utils.WriteInternalServerError(w, "")
			}
		})
	}
}

func lookupFailure(err error) (decision, string) {
	if errors.Is(err, repositories.ErrNotFound) {
		return denyForbidden, "no_membership"
	}
	return failInternal, "store_error"
}

// RequireAdmin admits active administrators whose role is min or above
func (m *RoleMiddleware) RequireAdmin(min models.AdminRole) func(http.Handler) http.Handler {
	return m.gate(observability.StageAdmin, func(ctx context.Context, identity *models.AuthenticatedIdentity) (context.Context, decision, string, error) {
		admin, err := m.admins.GetByUserID(ctx, identity.ID)
		if err != nil {
			d, reason := lookupFailure(err)
			return nil, d, reason, err
		}
		if !admin.IsActive {
			return nil, denyForbidden, "membership_inactive", nil
		}
		if !admin.Role.AtLeast(min) {
			return nil, denyForbidden, "insufficient_role", nil
		}
		return WithAdminContext(ctx, &models.AdminContext{Identity: *identity, Admin: *admin}), allow, "", nil
	})
}

// RequireOMIL admits active staff of an active OMIL whose role is min or above
func (m *RoleMiddleware) RequireOMIL(min models.OMILRole) func(http.Handler) http.Handler {
	return m.gate(observability.StageOMIL, func(ctx context.Context, identity *models.AuthenticatedIdentity) (context.Context, decision, string, error) {
		ms, err := m.omils.GetMembershipByUserID(ctx, identity.ID)
		if err != nil {
			d, reason := lookupFailure(err)
			return nil, d, reason, err
		}
		if !ms.Member.IsActive {
			return nil, denyForbidden, "membership_inactive", nil
		}
		if !ms.OMIL.IsActive() {
			return nil, denyForbidden, "org_inactive", nil
		}
		if !ms.Member.Role.AtLeast(min) {
			return nil, denyForbidden, "insufficient_role", nil
		}
		return WithOMILContext(ctx, &models.OMILContext{Identity: *identity, Member: ms.Member, OMIL: ms.OMIL}), allow, "", nil
	})
}

// RequireCompany admits active members of an active company whose role is min or above
func (m *RoleMiddleware) RequireCompany(min models.CompanyRole) func(http.Handler) http.Handler {
	return m.gate(observability.StageCompany, func(ctx context.Context, identity *models.AuthenticatedIdentity) (context.Context, decision, string, error) {
		ms, err := m.companies.GetMembershipByUserID(ctx, identity.ID)
		if err != nil {
			d, reason := lookupFailure(err)
			return nil, d, reason, err
		}
		if !ms.Member.IsActive {
			return nil, denyForbidden, "membership_inactive", nil
		}
		if !ms.Company.IsActive() {
			return nil, denyForbidden, "org_inactive", nil
		}
		if !ms.Member.Role.AtLeast(min) {
			return nil, denyForbidden, "insufficient_role", nil
		}
		return WithCompanyContext(ctx, &models.CompanyContext{Identity: *identity, Member: ms.Member, Company: ms.Company}), allow, "", nil
	})
}

// RequireAnyAdmin admits every active administrator
func (m *RoleMiddleware) RequireAnyAdmin() func(http.Handler) http.Handler {
	return m.RequireAdmin(models.AdminRoleAdmin)
}

// RequireSuperAdmin admits super administrators only
func (m *RoleMiddleware) RequireSuperAdmin() func(http.Handler) http.Handler {
	return m.RequireAdmin(models.AdminRoleSuperAdmin)
}

// RequireOMILMember admits every active OMIL staff member
func (m *RoleMiddleware) RequireOMILMember() func(http.Handler) http.Handler {
	return m.RequireOMIL(models.OMILRoleMember)
}

// RequireOMILCoordinator admits coordinators and directors
func (m *RoleMiddleware) RequireOMILCoordinator() func(http.Handler) http.Handler {
	return m.RequireOMIL(models.OMILRoleCoordinator)
}

// RequireOMILDirector admits directors only
func (m *RoleMiddleware) RequireOMILDirector() func(http.Handler) http.Handler {
	return m.RequireOMIL(models.OMILRoleDirector)
}
