package services

import (
	"context"

	"ixp-grapher/application/ports"
	vo "ixp-grapher/domain/core/valueobjects"
	pkgerrors "ixp-grapher/pkg/errors"

	"go.uber.org/zap"
)

// CacheAdmin clears the render cache and tells other instances to do the
// same.
type CacheAdmin struct {
	cache     ports.RenderCache
	publisher ports.InvalidationPublisher
	logger    *zap.Logger
}

// NewCacheAdmin creates the admin service. publisher may be nil.
func NewCacheAdmin(cache ports.RenderCache, publisher ports.InvalidationPublisher, logger *zap.Logger) *CacheAdmin {
	return &CacheAdmin{
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

// Invalidate is the superuser action behind the admin endpoint.
func (a *CacheAdmin) Invalidate(ctx context.Context, principal vo.Principal, reason string) error {
	if !principal.IsSuperUser() {
		return pkgerrors.NewForbiddenError("only administrators may clear the graph cache")
	}
	if reason == "" {
		reason = "manual"
	}
	return a.InvalidateAll(ctx, reason, true)
}

// InvalidateAll clears the local cache and, when publish is set and a
// publisher is configured, announces the invalidation. A failed
// announcement is logged; the local invalidation still counts.
func (a *CacheAdmin) InvalidateAll(ctx context.Context, reason string, publish bool) error {
	if err := a.cache.Invalidate(ctx); err != nil {
		return pkgerrors.Wrap(err, "failed to invalidate render cache")
	}
	a.logger.Info("Graph cache cleared", zap.String("reason", reason))

	if !publish || a.publisher == nil {
		return nil
	}
	if err := a.publisher.PublishInvalidation(ctx, reason); err != nil {
		a.logger.Warn("Failed to publish cache invalidation",
			zap.String("reason", reason),
			zap.Error(err))
	}
	return nil
}
