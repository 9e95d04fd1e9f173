// Package errors provides standardized error handling for the Proof of Vibes service.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code for the Proof of Vibes service.
type ErrorCode string

const (
	// Validation errors
	POV_VALIDATION  ErrorCode = "POV_VALIDATION"  // Malformed or missing required input
	POV_BAD_REQUEST ErrorCode = "POV_BAD_REQUEST" // Bad request (method, body shape)

	// Authentication/Authorization errors (admin endpoint only)
	POV_AUTHN ErrorCode = "POV_AUTHN" // Authentication failed
	POV_AUTHZ ErrorCode = "POV_AUTHZ" // Authorization failed

	// Resource errors
	POV_NOT_FOUND ErrorCode = "POV_NOT_FOUND" // Unknown id or claim token
	POV_CONFLICT  ErrorCode = "POV_CONFLICT"  // Already-claimed collectible or duplicate token

	// Server errors
	POV_INTERNAL    ErrorCode = "POV_INTERNAL"    // Internal server error
	POV_UNAVAILABLE ErrorCode = "POV_UNAVAILABLE" // Service unavailable
)

// Error represents a standardized error response.
type Error struct {
	Code          ErrorCode   `json:"code"`
	Message       string      `json:"message"`
	CorrelationID string      `json:"correlationId"`
	Details       interface{} `json:"details,omitempty"`
	HTTPStatus    int         `json:"-"`
}

// New creates a new Error with the specified code and message.
func New(code ErrorCode, message string, correlationID string) *Error {
	return &Error{
		Code:          code,
		Message:       message,
		CorrelationID: correlationID,
		HTTPStatus:    httpStatusCodeForCode(code),
	}
}

// NewWithDetails creates a new Error with the specified code, message, and details.
func NewWithDetails(code ErrorCode, message string, correlationID string, details interface{}) *Error {
	return &Error{
		Code:          code,
		Message:       message,
		CorrelationID: correlationID,
		Details:       details,
		HTTPStatus:    httpStatusCodeForCode(code),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// httpStatusCodeForCode maps error codes to HTTP status codes.
// Claiming an already-claimed collectible maps to 409 so callers can tell it
// apart from a validation failure.
func httpStatusCodeForCode(code ErrorCode) int {
	switch code {
	case POV_VALIDATION, POV_BAD_REQUEST:
		return http.StatusBadRequest
	case POV_AUTHN:
		return http.StatusUnauthorized
	case POV_AUTHZ:
		return http.StatusForbidden
	case POV_NOT_FOUND:
		return http.StatusNotFound
	case POV_CONFLICT:
		return http.StatusConflict
	case POV_UNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
