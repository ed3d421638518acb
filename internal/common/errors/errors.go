package errors

import (
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeConfigurationInvalid ErrorCode = "CONFIGURATION_INVALID"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDocumentReadFailed       ErrorCode = "DOCUMENT_READ_FAILED"
	ErrCodeDocumentMalformed        ErrorCode = "DOCUMENT_MALFORMED"
	ErrCodeDocumentUpdateFailed     ErrorCode = "DOCUMENT_UPDATE_FAILED"

	ErrCodeDatasetNotFound      ErrorCode = "DATASET_NOT_FOUND"
	ErrCodeDatasetLookupFailed  ErrorCode = "DATASET_LOOKUP_FAILED"
	ErrCodeItemUploadFailed     ErrorCode = "ITEM_UPLOAD_FAILED"
	ErrCodeItemLookupFailed     ErrorCode = "ITEM_LOOKUP_FAILED"
	ErrCodePromptItemInvalid    ErrorCode = "PROMPT_ITEM_INVALID"
	ErrCodeAnnotationListFailed ErrorCode = "ANNOTATION_LIST_FAILED"

	ErrCodeBestResponseNotFound ErrorCode = "BEST_RESPONSE_NOT_FOUND"
	ErrCodeInvalidItemName      ErrorCode = "INVALID_ITEM_NAME"

	ErrCodeInputParsingFailed ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the error value every connector component returns for
// conditions a caller may want to branch on. Two StandardErrors match under
// errors.Is when their codes are equal.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrConfigurationInvalid = &StandardError{Code: ErrCodeConfigurationInvalid, Message: "Invalid configuration"}
	ErrDatasetNotFound      = &StandardError{Code: ErrCodeDatasetNotFound, Message: "Dataset not found"}
	ErrBestResponseNotFound = &StandardError{Code: ErrCodeBestResponseNotFound, Message: "No best response found"}
	ErrDocumentMalformed    = &StandardError{Code: ErrCodeDocumentMalformed, Message: "Malformed source document"}
	ErrInvalidItemName      = &StandardError{Code: ErrCodeInvalidItemName, Message: "Item name does not encode a document id"}
)

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewConfigurationError(details string) *StandardError {
	return newError(ErrCodeConfigurationInvalid, "Invalid configuration", details, false, nil)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true, err)
}

func NewDocumentReadFailedError(collection string, err error) *StandardError {
	return newError(ErrCodeDocumentReadFailed, "Failed to read documents",
		fmt.Sprintf("collection: %s: %v", collection, err), true, err)
}

func NewDocumentMalformedError(details string) *StandardError {
	return newError(ErrCodeDocumentMalformed, "Malformed source document", details, false, nil)
}

func NewDocumentUpdateFailedError(documentID string, err error) *StandardError {
	return newError(ErrCodeDocumentUpdateFailed, "Failed to update document",
		fmt.Sprintf("documentId: %s: %v", documentID, err), true, err)
}

func NewDatasetNotFoundError(datasetID string) *StandardError {
	return newError(ErrCodeDatasetNotFound, "Dataset not found",
		fmt.Sprintf("datasetId: %s", datasetID), false, nil)
}

func NewDatasetLookupFailedError(datasetID string, err error) *StandardError {
	return newError(ErrCodeDatasetLookupFailed, "Failed to get dataset",
		fmt.Sprintf("datasetId: %s: %v", datasetID, err), true, err)
}

func NewItemUploadFailedError(datasetID string, err error) *StandardError {
	return newError(ErrCodeItemUploadFailed, "Failed to upload items",
		fmt.Sprintf("datasetId: %s: %v", datasetID, err), true, err)
}

func NewItemLookupFailedError(itemID string, err error) *StandardError {
	return newError(ErrCodeItemLookupFailed, "Failed to get item",
		fmt.Sprintf("itemId: %s: %v", itemID, err), true, err)
}

func NewPromptItemInvalidError(itemID, details string) *StandardError {
	return newError(ErrCodePromptItemInvalid, "Item is not a valid prompt item",
		fmt.Sprintf("itemId: %s: %s", itemID, details), false, nil)
}

func NewAnnotationListFailedError(itemID string, err error) *StandardError {
	return newError(ErrCodeAnnotationListFailed, "Failed to list annotations",
		fmt.Sprintf("itemId: %s: %v", itemID, err), true, err)
}

func NewBestResponseNotFoundError(itemID string) *StandardError {
	return newError(ErrCodeBestResponseNotFound, "No best response found",
		fmt.Sprintf("itemId: %s", itemID), false, nil)
}

func NewInvalidItemNameError(name string, err error) *StandardError {
	details := fmt.Sprintf("name: %q", name)
	if err != nil {
		details = fmt.Sprintf("%s: %v", details, err)
	}
	return newError(ErrCodeInvalidItemName, "Item name does not encode a document id", details, false, err)
}

func NewInputParsingError(err error) *StandardError {
	return newError(ErrCodeInputParsingFailed, "Failed to parse job variables", err.Error(), false, err)
}

func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Input validation failed", details, false, nil)
}

func NewTimeoutError(operation string, err error) *StandardError {
	return newError(ErrCodeTimeout, "Operation timed out",
		fmt.Sprintf("%s: %v", operation, err), true, err)
}

// Normalize converts any error into a StandardError, keeping existing ones.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// GetRetryCount is the number of Zeebe retries granted per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDocumentReadFailed,
		ErrCodeDocumentUpdateFailed,
		ErrCodeDatasetLookupFailed,
		ErrCodeItemUploadFailed,
		ErrCodeItemLookupFailed,
		ErrCodeAnnotationListFailed:
		return 3

	case ErrCodeTimeout:
		return 2

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for metrics labels.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CONFIGURATION"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "DOCUMENT"):
		return "DATABASE"
	case strings.Contains(codeStr, "DATASET") || strings.Contains(codeStr, "ITEM") ||
		strings.Contains(codeStr, "ANNOTATION"):
		return "DATASET_STORE"
	case strings.Contains(codeStr, "BEST_RESPONSE"):
		return "EXPORT"
	case strings.Contains(codeStr, "INPUT") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
