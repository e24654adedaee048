package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType classifies failures raised around the graph engine rather than
// by it.
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeInternal     ErrorType = "INTERNAL"
	ErrorTypeRateLimit    ErrorType = "RATE_LIMIT"
	ErrorTypeUnavailable  ErrorType = "UNAVAILABLE"
)

// AppError is a transport level failure: a rejected token, an exhausted
// rate limit, a privileged view or an unexpected internal fault.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Type) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause records the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// stack renders the caller's stack, skipping the error constructors.
func stack(skip int) string {
	pcs := make([]uintptr, 32)
	pcs = pcs[:runtime.Callers(skip, pcs)]
	frames := runtime.CallersFrames(pcs)

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			return b.String()
		}
	}
}

func newAppError(t ErrorType, status int, message string) *AppError {
	return &AppError{Type: t, Message: message, HTTPStatus: status}
}

// NewValidationError rejects a malformed request
func NewValidationError(message string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message)
}

// NewUnauthorizedError rejects a bad bearer token
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return newAppError(ErrorTypeUnauthorized, http.StatusUnauthorized, message)
}

// NewForbiddenError rejects a principal from an administrative view
func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return newAppError(ErrorTypeForbidden, http.StatusForbidden, message)
}

// NewInternalError reports an unexpected fault. It carries the stack of its
// caller for debug responses.
func NewInternalError(message string) *AppError {
	err := newAppError(ErrorTypeInternal, http.StatusInternalServerError, message)
	err.StackTrace = stack(3)
	return err
}

// NewRateLimitError rejects a client over its request budget
func NewRateLimitError(limit int, window string) *AppError {
	return newAppError(ErrorTypeRateLimit, http.StatusTooManyRequests,
		fmt.Sprintf("rate limit exceeded: %d requests per %s", limit, window))
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// Wrap adds context to an infrastructure error. Domain errors pass through
// untouched so their status and details survive; anything else becomes an
// internal error.
func Wrap(err error, message string) error {
	switch {
	case err == nil:
		return nil
	case GetDomainError(err) != nil:
		return err
	}
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = message + ": " + appErr.Message
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}
