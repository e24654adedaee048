package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainErrorType represents the category of a graph engine failure
type DomainErrorType string

const (
	// DomainValidationError indicates a parameter that could not be coerced
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainNotFoundError indicates that resolution found nothing to graph
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainBusinessRuleError indicates a pairing or selection rule violation
	DomainBusinessRuleError DomainErrorType = "BUSINESS_RULE_ERROR"

	// DomainAuthorizationError indicates the principal may not see the graph
	DomainAuthorizationError DomainErrorType = "AUTHORIZATION_ERROR"

	// DomainUnavailableError indicates a backend failed at call time
	DomainUnavailableError DomainErrorType = "UNAVAILABLE"

	// DomainCapabilityError indicates a soft denial: the target cannot
	// produce this graph until something is switched on
	DomainCapabilityError DomainErrorType = "CAPABILITY_ERROR"
)

// Error codes, one per graph failure kind.
const (
	CodeInvalidParameter     = "INVALID_PARAMETER"
	CodeNoTargetsAvailable   = "NO_TARGETS_AVAILABLE"
	CodeTargetNotFound       = "TARGET_NOT_FOUND"
	CodeNoCommonVlan         = "NO_COMMON_VLAN"
	CodeUnservable           = "UNSERVABLE"
	CodeBackendUnavailable   = "BACKEND_UNAVAILABLE"
	CodeAuthorizationDenied  = "AUTHORIZATION_DENIED"
	CodeCapabilityNotEnabled = "CAPABILITY_NOT_ENABLED"
)

// DomainError represents a typed graph engine failure
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		StatusCode: domainErrorTypeToStatusCode(errorType),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

// WithRetryable sets whether the error is retryable
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// Is matches on Type and Code so sentinels compare equal to fresh instances.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

func domainErrorTypeToStatusCode(errorType DomainErrorType) int {
	switch errorType {
	case DomainValidationError:
		return http.StatusBadRequest
	case DomainNotFoundError:
		return http.StatusNotFound
	case DomainBusinessRuleError:
		return http.StatusUnprocessableEntity
	case DomainAuthorizationError:
		return http.StatusForbidden
	case DomainUnavailableError:
		return http.StatusServiceUnavailable
	case DomainCapabilityError:
		return http.StatusSeeOther
	default:
		return http.StatusInternalServerError
	}
}

// GetDomainError extracts a DomainError from an error chain
func GetDomainError(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return nil
}

// Sentinels for errors.Is. Never mutate these; use the constructors below.
var (
	ErrInvalidParameter     = NewDomainError(DomainValidationError, CodeInvalidParameter, "invalid parameter")
	ErrNoTargetsAvailable   = NewDomainError(DomainNotFoundError, CodeNoTargetsAvailable, "no targets available")
	ErrTargetNotFound       = NewDomainError(DomainNotFoundError, CodeTargetNotFound, "target not found")
	ErrNoCommonVlan         = NewDomainError(DomainBusinessRuleError, CodeNoCommonVlan, "no common vlan")
	ErrUnservable           = NewDomainError(DomainNotFoundError, CodeUnservable, "unservable")
	ErrBackendUnavailable   = NewDomainError(DomainUnavailableError, CodeBackendUnavailable, "backend unavailable")
	ErrAuthorizationDenied  = NewDomainError(DomainAuthorizationError, CodeAuthorizationDenied, "authorization denied")
	ErrCapabilityNotEnabled = NewDomainError(DomainCapabilityError, CodeCapabilityNotEnabled, "capability not enabled")
)

// NewInvalidParameter reports a parameter value outside its enumeration.
func NewInvalidParameter(param, value string) *DomainError {
	return NewDomainError(DomainValidationError, CodeInvalidParameter,
		fmt.Sprintf("invalid value for %s", param)).
		WithDetail("parameter", param).
		WithDetail("value", value)
}

// NewNoTargetsAvailable reports an empty eligible set for a listing kind.
func NewNoTargetsAvailable(kind string) *DomainError {
	return NewDomainError(DomainNotFoundError, CodeNoTargetsAvailable,
		fmt.Sprintf("no %s available to graph", kind)).
		WithDetail("kind", kind)
}

// NewTargetNotFound reports a missing or unrenderable entity.
func NewTargetNotFound(kind, id string) *DomainError {
	return NewDomainError(DomainNotFoundError, CodeTargetNotFound,
		fmt.Sprintf("no such %s", kind)).
		WithDetail("kind", kind).
		WithDetail("id", id)
}

// NewNoCommonVlan reports a peer pair whose customers share no VLAN.
func NewNoCommonVlan(message string) *DomainError {
	if message == "" {
		message = "the selected customers have no interfaces on a common VLAN"
	}
	return NewDomainError(DomainBusinessRuleError, CodeNoCommonVlan, message)
}

// NewUnservable reports a request no configured backend can serve.
func NewUnservable(kind, category, protocol string) *DomainError {
	return NewDomainError(DomainNotFoundError, CodeUnservable,
		fmt.Sprintf("no backend available to process %s graphs", kind)).
		WithDetail("kind", kind).
		WithDetail("category", category).
		WithDetail("protocol", protocol)
}

// NewBackendUnavailable reports a capable backend that failed at call time.
func NewBackendUnavailable(backend string, cause error) *DomainError {
	return NewDomainError(DomainUnavailableError, CodeBackendUnavailable,
		fmt.Sprintf("graph backend %s is unavailable", backend)).
		WithDetail("backend", backend).
		WithCause(cause).
		WithRetryable(true)
}

// NewAuthorizationDenied reports a hard denial. The reason is user facing.
func NewAuthorizationDenied(reason string) *DomainError {
	return NewDomainError(DomainAuthorizationError, CodeAuthorizationDenied, reason)
}

// NewCapabilityNotEnabled reports a soft denial. The reason is user facing.
func NewCapabilityNotEnabled(reason string) *DomainError {
	return NewDomainError(DomainCapabilityError, CodeCapabilityNotEnabled, reason)
}
