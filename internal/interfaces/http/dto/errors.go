package dto

import (
	"net/http"
	"strings"

	"github.com/supplychain/procurement/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is used when request fields fail binding rules
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Authorization error codes
const (
	// ErrCodeForbidden is used when the viewer lacks permission for an action
	ErrCodeForbidden = "ERR_FORBIDDEN"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Workflow error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeRemoteRejected is used when the order server refused a valid submission
	ErrCodeRemoteRejected = "ERR_REMOTE_REJECTED"
	// ErrCodeSubmissionInFlight is used when another submission for the order is running
	ErrCodeSubmissionInFlight = "ERR_SUBMISSION_IN_FLIGHT"
	// ErrCodeStaleOrder is used when the order must be refreshed before retrying
	ErrCodeStaleOrder = "ERR_STALE_ORDER"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 422 Unprocessable Entity
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeValidationRequired: http.StatusUnprocessableEntity,

	// Malformed input -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeForbidden: http.StatusForbidden,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Workflow errors -> 409 Conflict, the caller should refresh and retry
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeRemoteRejected:     http.StatusConflict,
	ErrCodeSubmissionInFlight: http.StatusConflict,
	ErrCodeStaleOrder:         http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// KindHTTPStatus maps domain error kinds to HTTP status codes
var KindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:      http.StatusUnprocessableEntity,
	shared.KindPermission:      http.StatusForbidden,
	shared.KindRemoteRejection: http.StatusConflict,
}

// GetHTTPStatusForError returns the status for a domain error kind, falling back to the normalized code
func GetHTTPStatusForError(code string, kind shared.ErrorKind) int {
	if status, ok := KindHTTPStatus[kind]; ok {
		return status
	}
	return GetHTTPStatus(code)
}

// DomainErrorCodeMapping maps domain error codes to standardized codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:           ErrCodeNotFound,
	"ALREADY_EXISTS":              ErrCodeAlreadyExists,
	shared.CodeInvalidInput:       ErrCodeInvalidInput,
	shared.CodeInvalidState:       ErrCodeInvalidState,
	shared.CodePermissionDenied:   ErrCodeForbidden,
	shared.CodeRemoteRejected:     ErrCodeRemoteRejected,
	shared.CodeConcurrentMod:      ErrCodeConcurrencyConflict,
	shared.CodeSubmissionInFlight: ErrCodeSubmissionInFlight,
	shared.CodeStaleOrder:         ErrCodeStaleOrder,
	"VALIDATION_ERROR":            ErrCodeValidation,
	"BAD_REQUEST":                 ErrCodeBadRequest,
	"INTERNAL_ERROR":              ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized format.
// Codes without a mapping get the ERR_ prefix, e.g. REASON_TOO_SHORT -> ERR_REASON_TOO_SHORT.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	if code == "" {
		return ErrCodeUnknown
	}
	if strings.HasPrefix(code, "ERR_") {
		return code
	}
	return "ERR_" + code
}
