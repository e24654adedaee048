package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDomainError_IsMatchesSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel *DomainError
	}{
		{"target not found", NewTargetNotFound("customer", "7"), ErrTargetNotFound},
		{"no targets", NewNoTargetsAvailable("trunk"), ErrNoTargetsAvailable},
		{"no common vlan", NewNoCommonVlan(""), ErrNoCommonVlan},
		{"unservable", NewUnservable("vlan", "bits", "all"), ErrUnservable},
		{"backend unavailable", NewBackendUnavailable("mrtg", errors.New("dial tcp")), ErrBackendUnavailable},
		{"denied", NewAuthorizationDenied("not your customer"), ErrAuthorizationDenied},
		{"capability", NewCapabilityNotEnabled("ping disabled"), ErrCapabilityNotEnabled},
		{"invalid parameter", NewInvalidParameter("period", "decade"), ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("rendering: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestDomainError_DenialAndNotFoundAreDistinct(t *testing.T) {
	err := NewAuthorizationDenied("denied")

	assert.ErrorIs(t, err, ErrAuthorizationDenied)
	assert.NotErrorIs(t, err, ErrTargetNotFound)
	assert.NotErrorIs(t, err, ErrCapabilityNotEnabled)
}

func TestNewBackendUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")

	err := NewBackendUnavailable("sflow", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable)
	assert.Equal(t, http.StatusServiceUnavailable, err.StatusCode)
}

func TestErrorHandler_Handle(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectLocation string
	}{
		{
			name:           "denied maps to forbidden",
			err:            NewAuthorizationDenied("You are not authorised to view this member's graphs."),
			expectedStatus: http.StatusForbidden,
			expectedCode:   CodeAuthorizationDenied,
		},
		{
			name:           "unservable maps to not found",
			err:            NewUnservable("vlan", "bits", "ipv4"),
			expectedStatus: http.StatusNotFound,
			expectedCode:   CodeUnservable,
		},
		{
			name:           "backend failure maps to unavailable",
			err:            NewBackendUnavailable("mrtg", errors.New("timeout")),
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   CodeBackendUnavailable,
		},
		{
			name: "capability redirect carries location",
			err: NewCapabilityNotEnabled("IPv6 ping is not enabled").
				WithDetail(DetailLocation, "/api/v1/statistics/member/3"),
			expectedStatus: http.StatusSeeOther,
			expectedCode:   CodeCapabilityNotEnabled,
			expectLocation: "/api/v1/statistics/member/3",
		},
		{
			name:           "capability without location is a conflict",
			err:            NewCapabilityNotEnabled("IPv6 ping is not enabled"),
			expectedStatus: http.StatusConflict,
			expectedCode:   CodeCapabilityNotEnabled,
		},
		{
			name:           "app error keeps its status",
			err:            NewUnauthorizedError("Token has expired"),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "plain error is internal",
			err:            errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			h := NewErrorHandler(zap.NewNop(), false)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/statistics/graph/customer/3", nil)
			rec := httptest.NewRecorder()

			// Act
			h.Handle(rec, req, tt.err)

			// Assert
			assert.Equal(t, tt.expectedStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedCode, body.Code)
			assert.Equal(t, tt.expectLocation, rec.Header().Get("Location"))
		})
	}
}

func TestErrorHandler_DenialHidesDetails(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	err := NewAuthorizationDenied("You are not authorised to view this member's graphs.").
		WithCause(NewTargetNotFound("customer", "99"))
	h.Handle(rec, req, err)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "99")
}
