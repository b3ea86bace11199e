package handlers

import (
	"context"
	"net/http"

	"github.com/Blukstak/OxideExpo-sub000/middleware"
	"github.com/Blukstak/OxideExpo-sub000/services/storage"
	"github.com/Blukstak/OxideExpo-sub000/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Presigner issues direct-to-bucket upload URLs
type Presigner interface {
	PresignUpload(ctx context.Context, ownerID uuid.UUID, req storage.UploadRequest) (*storage.Upload, error)
}

// UploadRequest is the body of the upload endpoints
type UploadRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required"`
	Size        int64  `json:"size" validate:"required,gt=0"`
}

// UploadHandler presigns CV and logo uploads
type UploadHandler struct {
	presigner Presigner
	logger    *zap.Logger
}

// NewUploadHandler creates an UploadHandler. A nil presigner answers 503.
func NewUploadHandler(presigner Presigner, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		presigner: presigner,
		logger:    logger,
	}
}

// HandleCV handles POST /api/v1/uploads/cv. The CV is owned by the caller.
func (h *UploadHandler) HandleCV(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}
	h.presign(w, r, storage.KindCV, identity.ID)
}

// HandleLogo handles POST /api/v1/uploads/logo. The logo is owned by the
// caller's company, resolved by the company gate.
func (h *UploadHandler) HandleLogo(w http.ResponseWriter, r *http.Request) {
	cc := middleware.GetCompanyContext(r.Context())
	if cc == nil {
		h.logger.Error("company context missing on logo upload",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
		_ = utils.WriteInternalServerError(w, "")
		return
	}
	h.presign(w, r, storage.KindLogo, cc.Company.ID)
}

func (h *UploadHandler) presign(w http.ResponseWriter, r *http.Request, kind storage.Kind, owner uuid.UUID) {
	if h.presigner == nil {
		_ = utils.WriteServiceUnavailable(w, "Uploads are not configured")
		return
	}

	var input UploadRequest
	if err := utils.DecodeJSON(w, r, &input); err != nil {
		HandleDecodeError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(input); err != nil {
		h.writeValidationError(w, err)
		return
	}

	upload, err := h.presigner.PresignUpload(r.Context(), owner, storage.UploadRequest{
		Kind:        kind,
		Filename:    input.Filename,
		ContentType: input.ContentType,
		Size:        input.Size,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, upload)
}

func (h *UploadHandler) writeValidationError(w http.ResponseWriter, err error) {
	fields := utils.GetValidationFields(err)
	if fields == nil {
		HandleDecodeError(w, err, h.logger)
		return
	}
	details := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	_ = utils.WriteBadRequest(w, "Validation failed", details)
}
