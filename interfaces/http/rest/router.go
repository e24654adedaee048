package rest

import (
	"context"
	"net/http"
	"time"

	querybus "ixp-grapher/application/queries/bus"
	"ixp-grapher/application/services"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	"ixp-grapher/infrastructure/session"
	"ixp-grapher/interfaces/http/rest/handlers"
	"ixp-grapher/interfaces/http/rest/middleware"
	"ixp-grapher/pkg/auth"
	pkgerrors "ixp-grapher/pkg/errors"
	"ixp-grapher/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BasePath prefixes every statistics route.
const BasePath = "/api/v1/statistics"

// ReadinessCheck reports whether the service can answer requests.
type ReadinessCheck func(ctx context.Context) error

// Options are the router settings taken from configuration.
type Options struct {
	AllowedOrigins    []string
	EnableCORS        bool
	EnableMetrics     bool
	StrictParameters  bool
	DefaultPeriod     vo.Period
	RequestTimeout    time.Duration
	SessionCookie     string
	SecureCookies     bool
	RequestsPerMinute int
}

// Router creates and configures the HTTP router
type Router struct {
	queryBus  *querybus.QueryBus
	cache     *services.CacheAdmin
	sessions  *session.Manager
	validator *auth.JWTValidator
	limiter   auth.RateLimiter
	metrics   *observability.Collector
	errs      *pkgerrors.ErrorHandler
	ready     ReadinessCheck
	opts      Options
	logger    *zap.Logger
}

// NewRouter creates a new router instance. validator, limiter, metrics and
// ready may be nil.
func NewRouter(
	queryBus *querybus.QueryBus,
	cache *services.CacheAdmin,
	sessions *session.Manager,
	validator *auth.JWTValidator,
	limiter auth.RateLimiter,
	metrics *observability.Collector,
	errs *pkgerrors.ErrorHandler,
	ready ReadinessCheck,
	opts Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		queryBus:  queryBus,
		cache:     cache,
		sessions:  sessions,
		validator: validator,
		limiter:   limiter,
		metrics:   metrics,
		errs:      errs,
		ready:     ready,
		opts:      opts,
		logger:    logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errs.Middleware)
	router.Use(middleware.Logger(rt.logger, rt.metrics))

	if rt.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-Graph-Backend", "Location"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.EnableMetrics && rt.metrics != nil {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	graphs := handlers.NewGraphHandler(rt.queryBus, rt.opts.StrictParameters, rt.opts.DefaultPeriod, rt.errs, rt.logger)
	stats := handlers.NewStatisticsHandler(rt.queryBus, rt.opts.StrictParameters, rt.errs, rt.logger)
	cache := handlers.NewCacheHandler(rt.cache, rt.errs, rt.logger)

	router.Route(BasePath, func(r chi.Router) {
		if rt.opts.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(rt.opts.RequestTimeout))
		}
		r.Use(middleware.Principal(rt.validator, rt.errs, rt.logger))
		if rt.limiter != nil {
			r.Use(middleware.RateLimit(rt.limiter, rt.opts.RequestsPerMinute, rt.errs, rt.logger))
		}

		r.Get("/graph/{kind}", graphs.RenderGraph)
		r.Get("/graph/{kind}/{id}", graphs.RenderGraph)

		r.Get("/overall", stats.Listing(targets.KindOverall))
		for path, kind := range map[string]targets.Kind{
			"/infrastructure": targets.KindInfrastructure,
			"/vlan":           targets.KindVlan,
			"/switch":         targets.KindSwitch,
			"/trunk":          targets.KindTrunk,
		} {
			r.Get(path, stats.Listing(kind))
			r.Get(path+"/{id}", stats.Listing(kind))
		}

		r.Get("/members", stats.Members)
		r.Get("/member", stats.Member)
		r.Get("/member/{id}", stats.Member)
		r.Get("/member-drilldown/{type}/{id}", stats.MemberDrilldown)
		r.Get("/latency", stats.Latency)
		r.Get("/latency/{vliID}", stats.Latency)
		r.Get("/latency/{vliID}/{protocol}", stats.Latency)
		r.Get("/p2p", stats.PeerToPeer)
		r.Get("/p2p/{customerID}", stats.PeerToPeer)
		r.Get("/core-bundle/{id}", stats.CoreBundle)
		r.Get("/utilisation", stats.Utilisation)
		r.Get("/league-table", stats.LeagueTable)

		r.With(middleware.Session(rt.sessions, rt.opts.SessionCookie, rt.opts.SecureCookies)).
			Get("/switch-configuration", stats.SwitchConfiguration)

		r.Post("/cache/invalidate", cache.Invalidate)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports whether the exchange inventory is loaded
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if rt.ready != nil {
		if err := rt.ready(req.Context()); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			rt.errs.HandleStatus(w, req, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
