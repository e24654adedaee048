package di

import (
	"context"
	"fmt"
	"time"

	"ixp-grapher/application/ports"
	"ixp-grapher/application/queries"
	querybus "ixp-grapher/application/queries/bus"
	"ixp-grapher/application/services"
	vo "ixp-grapher/domain/core/valueobjects"
	domainservices "ixp-grapher/domain/services"
	"ixp-grapher/infrastructure/backends"
	"ixp-grapher/infrastructure/cache"
	"ixp-grapher/infrastructure/config"
	"ixp-grapher/infrastructure/messaging/eventbridge"
	"ixp-grapher/infrastructure/persistence/dynamodb"
	"ixp-grapher/infrastructure/persistence/memory"
	"ixp-grapher/infrastructure/session"
	"ixp-grapher/interfaces/http/rest"
	"ixp-grapher/pkg/auth"
	pkgerrors "ixp-grapher/pkg/errors"
	"ixp-grapher/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// MetricsNamespace prefixes every exported Prometheus series.
const MetricsNamespace = "ixp_grapher"

const slowQueryThreshold = 2 * time.Second

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zcfg.Level = level
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("environment", cfg.Environment)), nil
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(MetricsNamespace)
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWS.Region),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideRenderStore returns the shared DynamoDB store, or nil when the
// shared cache is disabled.
func ProvideRenderStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.RenderStore {
	if !cfg.Features.EnableSharedCache {
		return nil
	}
	logger.Info("Shared render cache enabled", zap.String("table", cfg.AWS.RenderTable))
	return dynamodb.NewRenderStore(client, cfg.AWS.RenderTable, logger)
}

// ProvideInvalidationPublisher returns the EventBridge publisher, or nil
// when invalidations stay local.
func ProvideInvalidationPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.InvalidationPublisher {
	if !cfg.Features.PublishInvalidations {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.AWS.EventBusName, logger)
}

// ProvideExchangeRepository loads the inventory snapshot
func ProvideExchangeRepository(cfg *config.Config, logger *zap.Logger) (*memory.ExchangeRepository, error) {
	snap, err := memory.LoadSnapshot(cfg.Inventory.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("Exchange inventory loaded",
		zap.String("path", cfg.Inventory.Path),
		zap.Int("infrastructures", len(snap.Infrastructures)),
		zap.Int("customers", len(snap.Customers)))
	return memory.NewExchangeRepository(snap), nil
}

// ProvideTrunks exposes the configured trunks
func ProvideTrunks(cfg *config.Config) *memory.StaticTrunks {
	return memory.NewStaticTrunks(cfg.Grapher.Trunks)
}

// ProvideBackendRegistry builds the enabled backends
func ProvideBackendRegistry(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (*backends.Registry, error) {
	return backends.NewRegistry(cfg.Grapher, metrics, logger)
}

// ProvideRenderCache creates the render cache with the configured TTLs
func ProvideRenderCache(cfg *config.Config, store ports.RenderStore, metrics *observability.Collector, logger *zap.Logger) *cache.RenderCache {
	ttl := cache.TTLPolicy{
		vo.PeriodDay:   cfg.Cache.Day,
		vo.PeriodWeek:  cfg.Cache.Week,
		vo.PeriodMonth: cfg.Cache.Month,
		vo.PeriodYear:  cfg.Cache.Year,
	}
	return cache.NewRenderCache(ttl, store, metrics, logger)
}

// ProvideGraphService wires resolver, gate and dispatcher
func ProvideGraphService(
	exchange *memory.ExchangeRepository,
	trunks *memory.StaticTrunks,
	registry *backends.Registry,
	renders *cache.RenderCache,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.GraphService {
	matrix := domainservices.NewCapabilityMatrix(registry.Order, nil)
	dispatcher := services.NewDispatcher(matrix, registry.Backends, renders, metrics, logger)
	resolver := services.NewTargetResolver(exchange, trunks, logger)
	return services.NewGraphService(resolver, domainservices.NewAuthorizationGate(), dispatcher, logger)
}

// ProvideCacheAdmin creates the cache admin service
func ProvideCacheAdmin(renders *cache.RenderCache, publisher ports.InvalidationPublisher, logger *zap.Logger) *services.CacheAdmin {
	return services.NewCacheAdmin(renders, publisher, logger)
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	graphs *services.GraphService,
	exchange *memory.ExchangeRepository,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	qb := querybus.NewQueryBus(
		querybus.MetricsMiddleware(metrics),
		querybus.LoggingMiddleware(logger, slowQueryThreshold),
	)
	if err := queries.Register(qb, graphs, exchange, logger); err != nil {
		return nil, fmt.Errorf("failed to register queries: %w", err)
	}
	return qb, nil
}

// ProvideSessionManager creates the sticky filter sessions
func ProvideSessionManager(cfg *config.Config) *session.Manager {
	return session.NewManager(cfg.Session.TTL)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *auth.TokenBucketLimiter {
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		return nil
	}
	return auth.NewPerMinuteLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
}

// ProvideRouter assembles the HTTP router. Without a JWT secret every
// caller is anonymous.
func ProvideRouter(
	cfg *config.Config,
	qb *querybus.QueryBus,
	admin *services.CacheAdmin,
	sessions *session.Manager,
	limiter *auth.TokenBucketLimiter,
	exchange *memory.ExchangeRepository,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*rest.Router, error) {
	var validator *auth.JWTValidator
	if cfg.Auth.JWTSecret != "" {
		v, err := auth.NewJWTValidator(auth.JWTConfig{
			SecretKey: cfg.Auth.JWTSecret,
			Issuer:    cfg.Auth.JWTIssuer,
			Audience:  cfg.Auth.JWTAudience,
		})
		if err != nil {
			return nil, err
		}
		validator = v
	} else {
		logger.Warn("No JWT secret configured, all requests are anonymous")
	}

	var rl auth.RateLimiter
	if limiter != nil {
		rl = limiter
	}

	return rest.NewRouter(
		qb,
		admin,
		sessions,
		validator,
		rl,
		metrics,
		pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment()),
		inventoryReady(exchange, cfg.Inventory.Path),
		rest.Options{
			AllowedOrigins:    cfg.Server.AllowedOrigins,
			EnableCORS:        cfg.Features.EnableCORS,
			EnableMetrics:     cfg.Features.EnableMetrics,
			StrictParameters:  cfg.Features.StrictParameters,
			DefaultPeriod:     vo.Period(cfg.Grapher.DefaultPeriod),
			RequestTimeout:    cfg.Server.RequestTimeout,
			SessionCookie:     cfg.Session.CookieName,
			SecureCookies:     cfg.IsProduction(),
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		},
		logger,
	), nil
}

func inventoryReady(exchange *memory.ExchangeRepository, path string) rest.ReadinessCheck {
	return func(ctx context.Context) error {
		infras, err := exchange.Infrastructures(ctx)
		if err != nil {
			return err
		}
		if len(infras) == 0 {
			return fmt.Errorf("no infrastructures loaded from %s", path)
		}
		return nil
	}
}
