// Package domainerrors carries the failure taxonomy for the account
// lifecycle engine. Business failures are returned as *DomainError values
// carrying a Code so callers (handlers, tests) can branch without string
// matching. Configuration faults get their own code because they signal an
// operator problem, not a caller problem.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure class.
type Code string

const (
	CodeBadRequest           Code = "bad_request"
	CodeValidation           Code = "validation"
	CodeNotFound             Code = "not_found"
	CodeConflict             Code = "conflict"
	CodeAlreadyVerified      Code = "already_verified"
	CodeAttemptsExceeded     Code = "attempts_exceeded"
	CodeExpired              Code = "expired"
	CodeInvalidOtp           Code = "invalid_otp"
	CodeInvalidCredentials   Code = "invalid_credentials"
	CodePermissionDenied     Code = "permission_denied"
	CodeNoSuchRole           Code = "no_such_role"
	CodeDisabled             Code = "account_disabled"
	CodeConfigurationMissing Code = "configuration_missing"
	CodeUnauthorized         Code = "unauthorized"
	CodeInvariantViolation   Code = "invariant_violation"
	CodeInternal             Code = "internal"
)

// DomainError is an error with a classification code and an optional cause.
type DomainError struct {
	Code    Code
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.cause }

// New builds a DomainError with no underlying cause.
func New(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err yields
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability
// (dErrors.Is(err, dErrors.CodeNotFound)).
func Is(err error, code Code) bool { return HasCode(err, code) }

// MessageOf extracts the classified message from err, falling back to the
// full error text for unclassified errors.
func MessageOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a failure class to an HTTP status. Handlers use this so
// the mapping lives in exactly one place.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyVerified:
		return http.StatusConflict
	case CodeAttemptsExceeded:
		return http.StatusTooManyRequests
	case CodeExpired, CodeInvalidOtp:
		return http.StatusUnprocessableEntity
	case CodeInvalidCredentials, CodeUnauthorized:
		return http.StatusUnauthorized
	case CodePermissionDenied, CodeNoSuchRole, CodeDisabled:
		return http.StatusForbidden
	case CodeConfigurationMissing, CodeInvariantViolation, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
