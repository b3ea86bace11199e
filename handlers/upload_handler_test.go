package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Blukstak/OxideExpo-sub000/middleware"
	"github.com/Blukstak/OxideExpo-sub000/models"
	"github.com/Blukstak/OxideExpo-sub000/services"
	"github.com/Blukstak/OxideExpo-sub000/services/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockPresigner struct {
	mock.Mock
}

func (m *MockPresigner) PresignUpload(ctx context.Context, ownerID uuid.UUID, req storage.UploadRequest) (*storage.Upload, error) {
	args := m.Called(ctx, ownerID, req)
	if u := args.Get(0); u != nil {
		return u.(*storage.Upload), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestUploadHandler_CV(t *testing.T) {
	userID := uuid.New()
	withIdentity := func(r *http.Request) *http.Request {
		return r.WithContext(middleware.WithIdentity(r.Context(), &models.AuthenticatedIdentity{
			ID:        userID,
			RoleClass: models.RoleClassJobSeeker,
		}))
	}

	t.Run("presigns for the caller", func(t *testing.T) {
		presigner := new(MockPresigner)
		h := NewUploadHandler(presigner, zap.NewNop())

		presigner.On("PresignUpload", mock.Anything, userID, storage.UploadRequest{
			Kind:        storage.KindCV,
			Filename:    "cv.pdf",
			ContentType: "application/pdf",
			Size:        2048,
		}).Return(&storage.Upload{
			Key:       "cv/" + userID.String() + "/2024/03/07/x.pdf",
			URL:       "http://127.0.0.1:9000/uploads/cv/x.pdf?X-Amz-Signature=abc",
			Method:    http.MethodPut,
			ExpiresAt: time.Now().Add(15 * time.Minute),
		}, nil)

		w := httptest.NewRecorder()
		h.HandleCV(w, withIdentity(jsonRequest(http.MethodPost, "/api/v1/uploads/cv",
			`{"filename":"cv.pdf","content_type":"application/pdf","size":2048}`)))

		require.Equal(t, http.StatusCreated, w.Code)
		var response struct {
			Data storage.Upload `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, http.MethodPut, response.Data.Method)
		assert.Contains(t, response.Data.Key, userID.String())
		presigner.AssertExpectations(t)
	})

	t.Run("validation", func(t *testing.T) {
		presigner := new(MockPresigner)
		h := NewUploadHandler(presigner, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleCV(w, withIdentity(jsonRequest(http.MethodPost, "/", `{"filename":"cv.pdf"}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := decodeError(t, w)
		assert.Contains(t, response.Details, "content_type")
		assert.Contains(t, response.Details, "size")
		presigner.AssertNotCalled(t, "PresignUpload", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unsupported type", func(t *testing.T) {
		presigner := new(MockPresigner)
		h := NewUploadHandler(presigner, zap.NewNop())
		presigner.On("PresignUpload", mock.Anything, userID, mock.Anything).
			Return(nil, services.ErrUnsupportedUpload.WithDetail("content_type", "image/gif"))

		w := httptest.NewRecorder()
		h.HandleCV(w, withIdentity(jsonRequest(http.MethodPost, "/",
			`{"filename":"cv.gif","content_type":"image/gif","size":10}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "image/gif", decodeError(t, w).Details["content_type"])
	})

	t.Run("store failure", func(t *testing.T) {
		presigner := new(MockPresigner)
		h := NewUploadHandler(presigner, zap.NewNop())
		presigner.On("PresignUpload", mock.Anything, userID, mock.Anything).
			Return(nil, services.WrapExternal("failed to presign upload", errors.New("signer")))

		w := httptest.NewRecorder()
		h.HandleCV(w, withIdentity(jsonRequest(http.MethodPost, "/",
			`{"filename":"cv.pdf","content_type":"application/pdf","size":10}`)))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("not configured", func(t *testing.T) {
		h := NewUploadHandler(nil, zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleCV(w, withIdentity(jsonRequest(http.MethodPost, "/", `{}`)))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("no identity", func(t *testing.T) {
		h := NewUploadHandler(new(MockPresigner), zap.NewNop())

		w := httptest.NewRecorder()
		h.HandleCV(w, jsonRequest(http.MethodPost, "/", `{}`))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUploadHandler_LogoOwnedByCompany(t *testing.T) {
	companyID := uuid.New()
	presigner := new(MockPresigner)
	h := NewUploadHandler(presigner, zap.NewNop())

	presigner.On("PresignUpload", mock.Anything, companyID, mock.MatchedBy(func(req storage.UploadRequest) bool {
		return req.Kind == storage.KindLogo
	})).Return(&storage.Upload{Key: "logo/" + companyID.String() + "/x.png", Method: http.MethodPut}, nil)

	r := jsonRequest(http.MethodPost, "/api/v1/uploads/logo", `{"filename":"logo.png","content_type":"image/png","size":512}`)
	r = r.WithContext(middleware.WithCompanyContext(r.Context(), &models.CompanyContext{
		Company: models.Company{ID: companyID, Status: models.CompanyStatusActive},
	}))

	w := httptest.NewRecorder()
	h.HandleLogo(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	presigner.AssertExpectations(t)

	w = httptest.NewRecorder()
	h.HandleLogo(w, jsonRequest(http.MethodPost, "/api/v1/uploads/logo", `{}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
