package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ixp-grapher/application/ports"
	"ixp-grapher/application/queries"
	querybus "ixp-grapher/application/queries/bus"
	"ixp-grapher/application/services"
	domainservices "ixp-grapher/domain/services"
	"ixp-grapher/infrastructure/backends"
	"ixp-grapher/infrastructure/cache"
	"ixp-grapher/infrastructure/session"
	"ixp-grapher/pkg/auth"
	pkgerrors "ixp-grapher/pkg/errors"
	"ixp-grapher/pkg/observability"
	"ixp-grapher/tests/fixtures"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "router-test-secret"

type routerDeps struct {
	limiter auth.RateLimiter
}

func newTestRouter(t *testing.T, deps routerDeps) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewCollector("test")

	repo := fixtures.NewExchangeBuilder().Repository()
	order := []domainservices.BackendID{domainservices.BackendDummy}
	renders := cache.NewRenderCache(nil, nil, metrics, logger)
	dispatcher := services.NewDispatcher(domainservices.NewCapabilityMatrix(order, nil),
		[]ports.Backend{backends.NewDummy()}, renders, metrics, logger)
	resolver := services.NewTargetResolver(repo, fixtures.Trunks(), logger)
	graphs := services.NewGraphService(resolver, domainservices.NewAuthorizationGate(), dispatcher, logger)

	qb := querybus.NewQueryBus(querybus.MetricsMiddleware(metrics))
	require.NoError(t, queries.Register(qb, graphs, repo, logger))

	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: testSecret})
	require.NoError(t, err)

	return NewRouter(
		qb,
		services.NewCacheAdmin(renders, nil, logger),
		session.NewManager(time.Hour),
		validator,
		deps.limiter,
		metrics,
		pkgerrors.NewErrorHandler(logger, false),
		nil,
		Options{
			EnableMetrics:     true,
			DefaultPeriod:     "day",
			SessionCookie:     "grapher_session",
			RequestsPerMinute: 60,
		},
		logger,
	).Setup()
}

func token(t *testing.T, userID string, customerID, privilege int) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID:     userID,
		CustomerID: customerID,
		Privilege:  privilege,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func do(t *testing.T, h http.Handler, method, path, bearer string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_GraphRequests(t *testing.T) {
	router := newTestRouter(t, routerDeps{})
	memberX := token(t, "x-user", fixtures.CustomerX, 1)

	tests := []struct {
		name         string
		path         string
		bearer       string
		wantStatus   int
		wantType     string
		wantLocation string
	}{
		{
			name:       "public overall graph",
			path:       BasePath + "/graph/ixp",
			wantStatus: http.StatusOK,
			wantType:   "image/png",
		},
		{
			name:       "member sees own aggregate",
			path:       BasePath + "/graph/customer/1?category=bits&period=week",
			bearer:     memberX,
			wantStatus: http.StatusOK,
			wantType:   "image/png",
		},
		{
			name:       "anonymous may not see a member",
			path:       BasePath + "/graph/customer/1",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "hidden interface looks like a denial",
			path:       BasePath + "/graph/vi/9999",
			bearer:     memberX,
			wantStatus: http.StatusForbidden,
		},
		{
			name:         "latency without pings redirects to the member",
			path:         BasePath + "/graph/latency/11?protocol=ipv6",
			bearer:       memberX,
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/api/v1/statistics/member/1",
		},
		{
			name:       "anonymous peer pair with a disabled protocol is a plain denial",
			path:       BasePath + "/graph/p2p/22?protocol=ipv6",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "anonymous peer pair without a shared vlan is a plain denial",
			path:       BasePath + "/graph/p2p/21?dst=11",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "strict mode rejects unknown values",
			path:       BasePath + "/graph/ixp?period=fortnight&strict=1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown values are coerced by default",
			path:       BasePath + "/graph/ixp?period=fortnight",
			wantStatus: http.StatusOK,
			wantType:   "image/png",
		},
		{
			name:       "unknown kind",
			path:       BasePath + "/graph/spaceship/1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad token",
			path:       BasePath + "/graph/ixp",
			bearer:     "Bearer not-a-jwt",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, tt.path, tt.bearer)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))
				assert.Equal(t, string(domainservices.BackendDummy), rec.Header().Get("X-Graph-Backend"))
			}
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			}
		})
	}
}

func TestRouter_DenialCarriesNoIdentifiers(t *testing.T) {
	router := newTestRouter(t, routerDeps{})

	rec := do(t, router, http.MethodGet, BasePath+"/graph/customer/2", token(t, "x-user", fixtures.CustomerX, 1))

	require.Equal(t, http.StatusForbidden, rec.Code)
	var body pkgerrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Details)
}

func TestRouter_ListingFallsBack(t *testing.T) {
	router := newTestRouter(t, routerDeps{})

	rec := do(t, router, http.MethodGet, BasePath+"/vlan/999?protocol=ipv4", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body queries.ListTargetsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "10", body.Target.ID)
	assert.True(t, strings.HasPrefix(body.Graph.Href, queries.GraphBasePath+"/vlan/10?"))
}

func TestRouter_SwitchConfigurationIsSticky(t *testing.T) {
	// Arrange
	router := newTestRouter(t, routerDeps{})
	admin := token(t, "admin", 0, 3)

	// Act
	first := do(t, router, http.MethodGet, BasePath+"/switch-configuration?speed=10000", admin)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	cookies := first.Result().Cookies()
	require.Len(t, cookies, 1)
	second := do(t, router, http.MethodGet, BasePath+"/switch-configuration", admin, cookies[0])

	// Assert
	require.Equal(t, http.StatusOK, second.Code)
	var body queries.SwitchConfigurationResult
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, 10000, body.Summary.Speed)
	assert.Len(t, body.Ports, 2)
	assert.Empty(t, second.Result().Cookies(), "known sessions are not reissued")
}

func TestRouter_CacheInvalidate(t *testing.T) {
	router := newTestRouter(t, routerDeps{})

	tests := []struct {
		name       string
		bearer     string
		wantStatus int
	}{
		{name: "superuser", bearer: token(t, "admin", 0, 3), wantStatus: http.StatusNoContent},
		{name: "customer user", bearer: token(t, "x-user", fixtures.CustomerX, 2), wantStatus: http.StatusForbidden},
		{name: "anonymous", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, BasePath+"/cache/invalidate", tt.bearer)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRouter_RateLimit(t *testing.T) {
	router := newTestRouter(t, routerDeps{limiter: auth.NewTokenBucketLimiter(1, time.Hour)})

	first := do(t, router, http.MethodGet, BasePath+"/overall", "")
	second := do(t, router, http.MethodGet, BasePath+"/overall", "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	router := newTestRouter(t, routerDeps{})
	do(t, router, http.MethodGet, BasePath+"/overall", "")

	health := do(t, router, http.MethodGet, "/health", "")
	ready := do(t, router, http.MethodGet, "/ready", "")
	metrics := do(t, router, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, health.Code)
	assert.Equal(t, http.StatusOK, ready.Code)
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "test_queries_total")
}

func TestRouter_TrafficReports(t *testing.T) {
	router := newTestRouter(t, routerDeps{})
	admin := token(t, "admin", 0, 3)

	tests := []struct {
		name       string
		path       string
		bearer     string
		wantStatus int
		wantKey    string
	}{
		{name: "utilisation for a superuser", path: BasePath + "/utilisation?vlan=20", bearer: admin, wantStatus: http.StatusOK, wantKey: "ports"},
		{name: "utilisation for a member", path: BasePath + "/utilisation", bearer: token(t, "x-user", fixtures.CustomerX, 1), wantStatus: http.StatusForbidden},
		{name: "utilisation strict metric", path: BasePath + "/utilisation?metric=p95&strict=1", bearer: admin, wantStatus: http.StatusBadRequest},
		{name: "league table is public", path: BasePath + "/league-table?day=" + fixtures.TrafficDay, wantStatus: http.StatusOK, wantKey: "rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, tt.path, tt.bearer)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantKey != "" {
				var body map[string]json.RawMessage
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Contains(t, body, tt.wantKey)
			}
		})
	}
}
