package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "resource not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name:    "error with wrapped error",
			err:     &DomainError{Type: ErrorTypeNotFound, Message: "user not found", Err: errors.New("db error")},
			wantMsg: "not_found: user not found (db error)",
		},
		{
			name:    "error without wrapped error",
			err:     &DomainError{Type: ErrorTypeValidation, Message: "invalid input"},
			wantMsg: "validation: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_UnwrapAndIs(t *testing.T) {
	baseErr := errors.New("connection refused")
	wrapped := WrapInternal("lookup failed", baseErr)

	assert.ErrorIs(t, wrapped, baseErr)
	assert.ErrorIs(t, wrapped, ErrInternal)
	assert.False(t, errors.Is(wrapped, ErrForbidden))

	outer := fmt.Errorf("login: %w", ErrInvalidCredentials)
	assert.ErrorIs(t, outer, ErrInvalidToken, "same type matches")
	assert.True(t, IsUnauthorizedError(outer))
}

func TestDomainError_WithDetailDoesNotMutateSentinel(t *testing.T) {
	withDetail := ErrRateLimitExceeded.WithDetail("retry_after", 3)

	assert.Equal(t, 3, withDetail.Details["retry_after"])
	assert.Empty(t, ErrRateLimitExceeded.Details)
	assert.ErrorIs(t, withDetail, ErrRateLimitExceeded)
}

func TestTypeCheckers(t *testing.T) {
	checkers := map[ErrorType]func(error) bool{
		ErrorTypeNotFound:     IsNotFoundError,
		ErrorTypeValidation:   IsValidationError,
		ErrorTypeUnauthorized: IsUnauthorizedError,
		ErrorTypeForbidden:    IsForbiddenError,
		ErrorTypeRateLimit:    IsRateLimitError,
		ErrorTypeConflict:     IsConflictError,
		ErrorTypeInternal:     IsInternalError,
		ErrorTypeExternal:     IsExternalError,
	}

	for errType := range checkers {
		t.Run(string(errType), func(t *testing.T) {
			err := NewDomainError(errType, "x", nil)
			for otherType, check := range checkers {
				assert.Equal(t, otherType == errType, check(err), "checker %s", otherType)
			}
			assert.Equal(t, errType, GetErrorType(err))
		})
	}

	plain := errors.New("plain")
	for _, check := range checkers {
		assert.False(t, check(plain))
	}
	assert.Equal(t, ErrorType(""), GetErrorType(plain))
	assert.Nil(t, GetErrorDetails(plain))
}

func TestSentinelTypes(t *testing.T) {
	tests := []struct {
		err  *DomainError
		want ErrorType
	}{
		{ErrUserNotFound, ErrorTypeNotFound},
		{ErrInvalidInput, ErrorTypeValidation},
		{ErrUnsupportedUpload, ErrorTypeValidation},
		{ErrInvalidCredentials, ErrorTypeUnauthorized},
		{ErrInvalidToken, ErrorTypeUnauthorized},
		{ErrForbidden, ErrorTypeForbidden},
		{ErrRateLimitExceeded, ErrorTypeRateLimit},
		{ErrDuplicateEmail, ErrorTypeConflict},
		{ErrInternal, ErrorTypeInternal},
		{ErrDatabaseError, ErrorTypeInternal},
		{ErrRegistryError, ErrorTypeInternal},
		{ErrStorageError, ErrorTypeExternal},
	}

	for _, tt := range tests {
		require.NotNil(t, tt.err)
		assert.Equal(t, tt.want, tt.err.Type, tt.err.Message)
		assert.NotEmpty(t, tt.err.Message)
	}
}

func TestWrapExternal(t *testing.T) {
	err := WrapExternal("presign failed", errors.New("no credentials"))
	assert.True(t, IsExternalError(err))
	assert.Contains(t, err.Error(), "no credentials")
}
