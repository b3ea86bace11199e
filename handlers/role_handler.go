package handlers

import (
	"net/http"

	"github.com/Blukstak/OxideExpo-sub000/middleware"
	"github.com/Blukstak/OxideExpo-sub000/utils"
	"go.uber.org/zap"
)

// RoleHandler echoes the membership context resolved by the role gates
type RoleHandler struct {
	logger *zap.Logger
}

// NewRoleHandler creates a new RoleHandler
func NewRoleHandler(logger *zap.Logger) *RoleHandler {
	return &RoleHandler{logger: logger}
}

// HandleAdminMe handles GET /api/v1/admin/me
func (h *RoleHandler) HandleAdminMe(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAdminContext(r.Context())
	if ac == nil {
		h.missingContext(w, r, "admin")
		return
	}
	_ = utils.WriteOK(w, ac)
}

// HandleOMILMe handles GET /api/v1/omil/me
func (h *RoleHandler) HandleOMILMe(w http.ResponseWriter, r *http.Request) {
	oc := middleware.GetOMILContext(r.Context())
	if oc == nil {
		h.missingContext(w, r, "omil")
		return
	}
	_ = utils.WriteOK(w, oc)
}

// HandleCompanyMe handles GET /api/v1/company/me
func (h *RoleHandler) HandleCompanyMe(w http.ResponseWriter, r *http.Request) {
	cc := middleware.GetCompanyContext(r.Context())
	if cc == nil {
		h.missingContext(w, r, "company")
		return
	}
	_ = utils.WriteOK(w, cc)
}

// missingContext means the route was mounted without its gate
func (h *RoleHandler) missingContext(w http.ResponseWriter, r *http.Request, gate string) {
	h.logger.Error("role context missing",
		zap.String("gate", gate),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
	_ = utils.WriteInternalServerError(w, "")
}
