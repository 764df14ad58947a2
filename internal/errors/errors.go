package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/zsiec/smpte/pkg/timecode"
)

// ErrorType represents the type of error.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeInternal    ErrorType = "INTERNAL_ERROR"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"
	ErrorTypeRateLimit   ErrorType = "RATE_LIMIT"
	ErrorTypeServiceDown ErrorType = "SERVICE_DOWN"
	ErrorTypeTooLarge    ErrorType = "TOO_LARGE"
)

// Error codes attached to timecode failures.
const (
	CodeInvalidFormat     = "INVALID_FORMAT"
	CodeFrameRateMismatch = "FRAME_RATE_MISMATCH"
	CodeInvalidRate       = "INVALID_RATE"
	CodeBufferTooSmall    = "BUFFER_TOO_SMALL"
	CodeUnknownPreset     = "UNKNOWN_PRESET"
)

// AppError represents an application error with additional context.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Err        error                  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCode adds an error code.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// New creates a new AppError.
func New(errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error.
func Wrap(err error, errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *AppError {
	return New(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// WrapInternalError wraps an error as internal server error.
func WrapInternalError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeInternal, message, http.StatusInternalServerError)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(message string) *AppError {
	return New(ErrorTypeTimeout, message, http.StatusRequestTimeout)
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(message string) *AppError {
	return New(ErrorTypeRateLimit, message, http.StatusTooManyRequests)
}

// NewServiceDownError creates a service down error.
func NewServiceDownError(service string) *AppError {
	return New(ErrorTypeServiceDown, fmt.Sprintf("%s service is currently unavailable", service), http.StatusServiceUnavailable)
}

// NewTooLargeError creates a payload too large error.
func NewTooLargeError(message string) *AppError {
	return New(ErrorTypeTooLarge, message, http.StatusRequestEntityTooLarge)
}

// FromTimecode converts an error returned by package timecode into an
// AppError carrying a stable code. Other errors become internal errors.
func FromTimecode(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := GetAppError(err); ok {
		return appErr
	}

	switch {
	case stderrors.Is(err, timecode.ErrInvalidFormat):
		return Wrap(err, ErrorTypeValidation, err.Error(), http.StatusBadRequest).WithCode(CodeInvalidFormat)
	case stderrors.Is(err, timecode.ErrFrameRateMismatch):
		return Wrap(err, ErrorTypeValidation, err.Error(), http.StatusBadRequest).WithCode(CodeFrameRateMismatch)
	case stderrors.Is(err, timecode.ErrInvalidRate):
		return Wrap(err, ErrorTypeValidation, err.Error(), http.StatusBadRequest).WithCode(CodeInvalidRate)
	case stderrors.Is(err, timecode.ErrBufferTooSmall):
		return Wrap(err, ErrorTypeInternal, err.Error(), http.StatusInternalServerError).WithCode(CodeBufferTooSmall)
	}
	return WrapInternalError(err, "An unexpected error occurred")
}

// Code returns the error code carried by err, or "" when it has none.
func Code(err error) string {
	if appErr, ok := GetAppError(err); ok {
		return appErr.Code
	}
	if err != nil {
		return FromTimecode(err).Code
	}
	return ""
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	_, ok := GetAppError(err)
	return ok
}

// GetAppError extracts AppError from an error chain.
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
