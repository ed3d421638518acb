package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_IsMatchesOnCode(t *testing.T) {
	err := NewDatasetNotFoundError("ds-1")
	wrapped := fmt.Errorf("import: %w", err)

	assert.True(t, Is(wrapped, ErrDatasetNotFound))
	assert.False(t, Is(wrapped, ErrBestResponseNotFound))
	assert.Contains(t, err.Error(), "DATASET_NOT_FOUND")
	assert.Contains(t, err.Error(), "ds-1")
}

func TestStandardError_UnwrapsCause(t *testing.T) {
	cause := New("connection refused")
	err := NewDatabaseConnectionFailedError(cause)

	assert.True(t, Is(err, cause))
	assert.True(t, err.Retryable)
}

func TestNewInvalidItemNameError(t *testing.T) {
	withCause := NewInvalidItemNameError("abc.json", New("bad hex"))
	assert.Contains(t, withCause.Details, "bad hex")
	assert.True(t, Is(withCause, ErrInvalidItemName))

	bare := NewInvalidItemNameError("abc", nil)
	assert.Equal(t, `name: "abc"`, bare.Details)
}

func TestNormalize(t *testing.T) {
	std := NewValidationError("host is required")
	assert.Same(t, std, Normalize(fmt.Errorf("wrapped: %w", std)))

	plain := Normalize(New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
	assert.False(t, plain.Retryable)
}

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeDatabaseConnectionFailed, 3},
		{ErrCodeDocumentReadFailed, 3},
		{ErrCodeDocumentUpdateFailed, 3},
		{ErrCodeDatasetLookupFailed, 3},
		{ErrCodeItemUploadFailed, 3},
		{ErrCodeItemLookupFailed, 3},
		{ErrCodeAnnotationListFailed, 3},
		{ErrCodeTimeout, 2},
		{ErrCodeDatasetNotFound, 0},
		{ErrCodeBestResponseNotFound, 0},
		{ErrCodeInvalidItemName, 0},
		{ErrCodeDocumentMalformed, 0},
		{ErrCodeValidationFailed, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetRetryCount(tt.code))
			assert.Equal(t, tt.want > 0, IsRetryableErrorCode(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	retryable := ConvertToBPMNError(NewItemUploadFailedError("ds-1", New("502")))
	assert.Equal(t, "ITEM_UPLOAD_FAILED", retryable.Code)
	assert.Equal(t, 3, retryable.Retries)
	assert.True(t, retryable.Retryable)

	recovered := ConvertToBPMNError(NewBestResponseNotFoundError("item-1"))
	assert.Equal(t, 0, recovered.Retries)

	vars := recovered.ToErrorVariables()
	assert.Equal(t, "BEST_RESPONSE_NOT_FOUND", vars["errorCode"])
	assert.Equal(t, "BEST_RESPONSE_NOT_FOUND", vars["originalErrorCode"])
	assert.Contains(t, vars["errorDetails"], "item-1")
	require.Contains(t, vars, "timestamp")
}

func TestConvertToBPMNError_NonRetryableOverridesCode(t *testing.T) {
	err := NewTimeoutError("upload", New("deadline"))
	err.Retryable = false
	assert.Equal(t, 0, ConvertToBPMNError(err).Retries)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CONFIGURATION", GetErrorCategory(ErrCodeConfigurationInvalid))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDocumentReadFailed))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDatabaseConnectionFailed))
	assert.Equal(t, "DATASET_STORE", GetErrorCategory(ErrCodeItemUploadFailed))
	assert.Equal(t, "DATASET_STORE", GetErrorCategory(ErrCodeAnnotationListFailed))
	assert.Equal(t, "EXPORT", GetErrorCategory(ErrCodeBestResponseNotFound))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInputParsingFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
