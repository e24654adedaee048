//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"ixp-grapher/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideRenderStore,
	ProvideInvalidationPublisher,
	ProvideExchangeRepository,
	ProvideTrunks,
	ProvideBackendRegistry,
	ProvideRenderCache,
	ProvideGraphService,
	ProvideCacheAdmin,
	ProvideQueryBus,
	ProvideSessionManager,
	ProvideRateLimiter,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
