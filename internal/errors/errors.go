// Package errors provides custom error types for the complytrail API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrPermissionDenied   = &AppError{Code: "PERMISSION_DENIED", Message: "You do not have permission to perform this action", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User & organization errors.
var (
	ErrUserNotFound         = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail       = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
	ErrOrganizationNotFound = &AppError{Code: "ORGANIZATION_NOT_FOUND", Message: "Organization not found", StatusCode: http.StatusNotFound}
)

// Audit trail errors.
var (
	ErrInvalidRange  = &AppError{Code: "INVALID_RANGE", Message: "Start date must not be after end date", StatusCode: http.StatusBadRequest}
	ErrInvalidCursor = &AppError{Code: "INVALID_CURSOR", Message: "Pagination cursor is malformed", StatusCode: http.StatusBadRequest}
)

// Restore errors.
var (
	ErrRestoreInProgress     = &AppError{Code: "RESTORE_IN_PROGRESS", Message: "Another restore is already running for this organization", StatusCode: http.StatusConflict}
	ErrStalePreview          = &AppError{Code: "STALE_PREVIEW", Message: "Data changed since the preview; please re-preview before restoring", StatusCode: http.StatusConflict}
	ErrPartialApplyFailure   = &AppError{Code: "PARTIAL_APPLY_FAILURE", Message: "A reversal step failed; the restore was rolled back", StatusCode: http.StatusInternalServerError}
	ErrRestoreTargetNotFound = &AppError{Code: "NOT_FOUND", Message: "No audit history exists for the restore target", StatusCode: http.StatusNotFound}
	ErrReasonRequired        = &AppError{Code: "REASON_REQUIRED", Message: "A reason is required for every restore request", StatusCode: http.StatusBadRequest}
)

// Compliance entity errors.
var (
	ErrAssessmentNotFound  = &AppError{Code: "ASSESSMENT_NOT_FOUND", Message: "Assessment not found", StatusCode: http.StatusNotFound}
	ErrRequirementNotFound = &AppError{Code: "REQUIREMENT_NOT_FOUND", Message: "Requirement not found", StatusCode: http.StatusNotFound}
	ErrDocumentNotFound    = &AppError{Code: "DOCUMENT_NOT_FOUND", Message: "Document not found", StatusCode: http.StatusNotFound}
)
