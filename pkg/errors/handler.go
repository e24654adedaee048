package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// DetailLocation is the DomainError detail holding the redirect target of a
// soft denial.
const DetailLocation = "location"

// ErrorResponse represents the API error response format
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Notice    bool                   `json:"notice,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ErrorHandler handles errors and sends appropriate HTTP responses
type ErrorHandler struct {
	logger        *zap.Logger
	debug         bool
	defaultStatus int
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{
		logger:        logger,
		debug:         debug,
		defaultStatus: http.StatusInternalServerError,
	}
}

// Handle processes an error and sends an HTTP response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	requestID := middleware.GetReqID(r.Context())

	if de := GetDomainError(err); de != nil {
		h.handleDomain(w, r, de, requestID)
		return
	}

	if appErr := GetAppError(err); appErr != nil {
		h.handleApp(w, r, appErr, requestID)
		return
	}

	status := h.defaultStatus
	response := ErrorResponse{
		Error:     true,
		Type:      string(ErrorTypeInternal),
		Message:   "An internal error occurred",
		RequestID: requestID,
	}
	h.logger.Error("Unhandled error",
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", requestID),
		zap.Int("status", status),
	)
	if h.debug {
		response.Message = err.Error()
	}
	h.sendJSON(w, status, response)
}

func (h *ErrorHandler) handleApp(w http.ResponseWriter, r *http.Request, appErr *AppError, requestID string) {
	status := appErr.HTTPStatus
	if status == 0 {
		status = h.defaultStatus
	}

	details := appErr.Details
	if h.debug && appErr.StackTrace != "" {
		details = make(map[string]interface{}, len(appErr.Details)+1)
		for k, v := range appErr.Details {
			details[k] = v
		}
		details["stack_trace"] = appErr.StackTrace
	}

	h.log(r, status, appErr.Message,
		zap.String("error_type", string(appErr.Type)),
		zap.NamedError("cause", appErr.Cause),
	)
	h.sendJSON(w, status, ErrorResponse{
		Error:     true,
		Type:      string(appErr.Type),
		Message:   appErr.Message,
		Details:   details,
		RequestID: requestID,
	})
}

func (h *ErrorHandler) handleDomain(w http.ResponseWriter, r *http.Request, de *DomainError, requestID string) {
	status := de.StatusCode
	if status == 0 {
		status = h.defaultStatus
	}

	details := make(map[string]interface{}, len(de.Details))
	for k, v := range de.Details {
		details[k] = v
	}
	// ids of hidden targets never leave the process
	if de.Type == DomainAuthorizationError {
		details = nil
	}

	response := ErrorResponse{
		Error:     de.Type != DomainCapabilityError,
		Notice:    de.Type == DomainCapabilityError,
		Type:      string(de.Type),
		Message:   de.Message,
		Code:      de.Code,
		Details:   details,
		RequestID: requestID,
	}

	if de.Type == DomainCapabilityError {
		if loc, ok := de.Details[DetailLocation].(string); ok && loc != "" {
			w.Header().Set("Location", loc)
		} else {
			status = http.StatusConflict
		}
	}
	if de.Retryable {
		w.Header().Set("Retry-After", "30")
	}

	h.log(r, status, de.Message,
		zap.String("error_type", string(de.Type)),
		zap.String("error_code", de.Code),
		zap.Any("details", de.Details),
		zap.NamedError("cause", de.Cause),
	)
	h.sendJSON(w, status, response)
}

// HandleStatus sends an error response with a specific status code
func (h *ErrorHandler) HandleStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	response := ErrorResponse{
		Error:     true,
		Type:      statusToErrorType(status),
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	}
	h.log(r, status, message)
	h.sendJSON(w, status, response)
}

func (h *ErrorHandler) log(r *http.Request, status int, msg string, extra ...zap.Field) {
	fields := append([]zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}, extra...)

	switch {
	case status >= 500:
		h.logger.Error(msg, fields...)
	case status >= 400:
		h.logger.Warn(msg, fields...)
	default:
		h.logger.Info(msg, fields...)
	}
}

func (h *ErrorHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode error response",
			zap.Error(err),
			zap.Any("data", data),
		)
	}
}

func statusToErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(ErrorTypeValidation)
	case http.StatusUnauthorized:
		return string(ErrorTypeUnauthorized)
	case http.StatusForbidden:
		return string(ErrorTypeForbidden)
	case http.StatusNotFound:
		return string(ErrorTypeNotFound)
	case http.StatusTooManyRequests:
		return string(ErrorTypeRateLimit)
	case http.StatusServiceUnavailable:
		return string(ErrorTypeUnavailable)
	default:
		return string(ErrorTypeInternal)
	}
}

// Middleware returns an HTTP middleware that turns panics into 500 responses
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
