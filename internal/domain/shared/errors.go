package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error by how the caller is expected to recover
type ErrorKind string

const (
	// KindValidation errors are detected locally and block any gateway call
	KindValidation ErrorKind = "validation"
	// KindPermission errors mean the viewer is not allowed to perform the action
	KindPermission ErrorKind = "permission"
	// KindRemoteRejection errors mean the authoritative server refused a valid request
	KindRemoteRejection ErrorKind = "remote_rejection"
)

// String returns the string representation of the kind
func (k ErrorKind) String() string {
	return string(k)
}

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped sentinels compare equal
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a locally detectable validation error
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindValidation}
}

// NewValidationErrorf creates a validation error with a formatted message
func NewValidationErrorf(code, format string, args ...any) *DomainError {
	return NewValidationError(code, fmt.Sprintf(format, args...))
}

// NewPermissionError creates an error for an action outside the viewer's allowed set
func NewPermissionError(message string) *DomainError {
	return &DomainError{Code: CodePermissionDenied, Message: message, Kind: KindPermission}
}

// NewRemoteRejection creates an error for a request refused by the authoritative server
func NewRemoteRejection(code, message string) *DomainError {
	if code == "" {
		code = CodeRemoteRejected
	}
	return &DomainError{Code: code, Message: message, Kind: KindRemoteRejection}
}

// KindOf returns the kind of the first DomainError in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}

// IsKind reports whether err carries a DomainError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// CodeOf returns the code of the first DomainError in err's chain, or "" if none
func CodeOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// Error codes used across the procurement domain
const (
	CodeNoChange             = "NO_CHANGE"
	CodeMissingField         = "MISSING_FIELD"
	CodeReasonTooShort       = "REASON_TOO_SHORT"
	CodeInvalidQuantity      = "INVALID_QUANTITY"
	CodeInvalidPrice         = "INVALID_PRICE"
	CodeUnitMismatch         = "UNIT_MISMATCH"
	CodeInvalidAmendmentType = "INVALID_AMENDMENT_TYPE"
	CodeMultipleChanges      = "MULTIPLE_CHANGES"
	CodeAmendmentPending     = "AMENDMENT_PENDING"
	CodeInvalidPolicy        = "INVALID_POLICY"
	CodeDuplicatePick        = "DUPLICATE_PICK"
	CodeAllocationComplete   = "ALLOCATION_COMPLETE"
	CodeBatchUnavailable     = "BATCH_UNAVAILABLE"
	CodePermissionDenied     = "PERMISSION_DENIED"
	CodeRemoteRejected       = "REMOTE_REJECTED"
	CodeConcurrentMod        = "CONCURRENT_MODIFICATION"
	CodeSubmissionInFlight   = "SUBMISSION_IN_FLIGHT"
	CodeStaleOrder           = "STALE_ORDER"
	CodeInvalidState         = "INVALID_STATE"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeNotFound             = "NOT_FOUND"
)

// Common domain errors
var (
	ErrNotFound           = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists      = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput       = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState       = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrSubmissionInFlight = NewDomainError(CodeSubmissionInFlight, "A submission for this order is already in progress")
	ErrStaleOrder         = NewDomainError(CodeStaleOrder, "Order state is stale; refresh the order before retrying")
)
