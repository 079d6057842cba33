// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Filesystem errors
	ErrPathNotFound = &Error{Code: "PATH_NOT_FOUND", Message: "path not found"}

	// Sidecar errors
	ErrSidecarInvalid = &Error{Code: "SIDECAR_INVALID", Message: "sidecar record unreadable or malformed"}
	ErrSidecarExists  = &Error{Code: "SIDECAR_EXISTS", Message: "sidecar record already exists"}

	// Store errors
	ErrUploadFailed     = &Error{Code: "UPLOAD_FAILED", Message: "upload failed"}
	ErrDigestMismatch   = &Error{Code: "DIGEST_MISMATCH", Message: "digest mismatch"}
	ErrStoreUnavailable = &Error{Code: "STORE_UNAVAILABLE", Message: "remote store unavailable"}
	ErrObjectNotFound   = &Error{Code: "OBJECT_NOT_FOUND", Message: "remote object not found"}

	// Report errors
	ErrReportInvalid = &Error{Code: "REPORT_INVALID", Message: "verification report row malformed"}

	// Run errors
	ErrPartialFailure = &Error{Code: "PARTIAL_FAILURE", Message: "one or more files failed"}

	// Notifier errors
	ErrNotifierFailed = &Error{Code: "NOTIFIER_FAILED", Message: "notifier failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
