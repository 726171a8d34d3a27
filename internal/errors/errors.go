// Package errors provides standardized domain errors with codes for the Patchouli API.
//
// Usage:
//
//	// In services - return typed errors
//	if invite.Redeemed() {
//	    return errors.InviteAlreadyUsed("invite code already used")
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrNotRegistered) {
//	    ...
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeInviteExpired:
//	        ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeValidation    Code = "VALIDATION"
	CodeConflict      Code = "CONFLICT"
	CodeInternal      Code = "INTERNAL"

	// OAuth bridge codes.
	CodeInvalidState            Code = "INVALID_STATE"
	CodeProviderError           Code = "PROVIDER_ERROR"
	CodeNotRegistered           Code = "NOT_REGISTERED"
	CodeRegistrationNeedsInvite Code = "REGISTRATION_REQUIRES_INVITE"

	// Invite ledger codes.
	CodeInviteNotFound    Code = "INVITE_NOT_FOUND"
	CodeInviteExpired     Code = "INVITE_EXPIRED"
	CodeInviteAlreadyUsed Code = "INVITE_ALREADY_USED"

	// Session token codes.
	CodeTokenExpired      Code = "TOKEN_EXPIRED"
	CodeTokenBadSignature Code = "TOKEN_BAD_SIGNATURE"
	CodeTokenMalformed    Code = "TOKEN_MALFORMED"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeInviteNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized, CodeTokenExpired, CodeTokenBadSignature, CodeTokenMalformed:
		return http.StatusUnauthorized
	case CodeForbidden, CodeNotRegistered, CodeRegistrationNeedsInvite:
		return http.StatusForbidden
	case CodeValidation, CodeInvalidState, CodeInviteExpired, CodeInviteAlreadyUsed:
		return http.StatusBadRequest
	case CodeProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound      = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrUnauthorized  = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden     = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation    = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict      = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal      = &Error{Code: CodeInternal, Message: "internal error"}

	ErrInvalidState            = &Error{Code: CodeInvalidState, Message: "invalid or expired state"}
	ErrProviderError           = &Error{Code: CodeProviderError, Message: "identity provider error"}
	ErrNotRegistered           = &Error{Code: CodeNotRegistered, Message: "not registered"}
	ErrRegistrationNeedsInvite = &Error{Code: CodeRegistrationNeedsInvite, Message: "registration requires an invite"}

	ErrInviteNotFound    = &Error{Code: CodeInviteNotFound, Message: "invite not found"}
	ErrInviteExpired     = &Error{Code: CodeInviteExpired, Message: "invite expired"}
	ErrInviteAlreadyUsed = &Error{Code: CodeInviteAlreadyUsed, Message: "invite already used"}

	ErrTokenExpired      = &Error{Code: CodeTokenExpired, Message: "token expired"}
	ErrTokenBadSignature = &Error{Code: CodeTokenBadSignature, Message: "token signature invalid"}
	ErrTokenMalformed    = &Error{Code: CodeTokenMalformed, Message: "token malformed"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Forbiddenf creates a forbidden error with formatted message.
func Forbiddenf(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// InvalidState creates an invalid state error.
func InvalidState(msg string) *Error {
	return &Error{Code: CodeInvalidState, Message: msg}
}

// ProviderError creates an identity provider error.
func ProviderError(msg string) *Error {
	return &Error{Code: CodeProviderError, Message: msg}
}

// NotRegistered creates a not registered error.
func NotRegistered(msg string) *Error {
	return &Error{Code: CodeNotRegistered, Message: msg}
}

// RegistrationNeedsInvite creates a registration requires invite error.
func RegistrationNeedsInvite(msg string) *Error {
	return &Error{Code: CodeRegistrationNeedsInvite, Message: msg}
}

// InviteNotFound creates an invite not found error.
func InviteNotFound(msg string) *Error {
	return &Error{Code: CodeInviteNotFound, Message: msg}
}

// InviteExpired creates an invite expired error.
func InviteExpired(msg string) *Error {
	return &Error{Code: CodeInviteExpired, Message: msg}
}

// InviteAlreadyUsed creates an invite already used error.
func InviteAlreadyUsed(msg string) *Error {
	return &Error{Code: CodeInviteAlreadyUsed, Message: msg}
}

// TokenExpired creates a token expired error.
func TokenExpired(msg string) *Error {
	return &Error{Code: CodeTokenExpired, Message: msg}
}

// TokenBadSignature creates a token signature error.
func TokenBadSignature(msg string) *Error {
	return &Error{Code: CodeTokenBadSignature, Message: msg}
}

// TokenMalformed creates a token malformed error.
func TokenMalformed(msg string) *Error {
	return &Error{Code: CodeTokenMalformed, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
