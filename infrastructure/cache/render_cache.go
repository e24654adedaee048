// Package cache provides the render cache that sits in front of the graph
// backends.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ixp-grapher/application/ports"
	vo "ixp-grapher/domain/core/valueobjects"
	"ixp-grapher/pkg/observability"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TTLPolicy maps a period to how long its artifacts stay fresh.
type TTLPolicy map[vo.Period]time.Duration

// DefaultTTLPolicy refreshes short periods more often than long ones.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		vo.PeriodDay:   5 * time.Minute,
		vo.PeriodWeek:  30 * time.Minute,
		vo.PeriodMonth: 2 * time.Hour,
		vo.PeriodYear:  12 * time.Hour,
	}
}

// For returns the TTL of period, falling back to the day TTL.
func (p TTLPolicy) For(period vo.Period) time.Duration {
	if ttl, ok := p[period]; ok && ttl > 0 {
		return ttl
	}
	if ttl, ok := p[vo.PeriodDay]; ok && ttl > 0 {
		return ttl
	}
	return 5 * time.Minute
}

// RenderCache dedupes concurrent renders of one fingerprint and keeps the
// result for a period dependent TTL. An optional shared store lets several
// instances reuse each other's renders.
type RenderCache struct {
	local   *gocache.Cache
	store   ports.RenderStore
	group   singleflight.Group
	ttl     TTLPolicy
	metrics *observability.Collector
	logger  *zap.Logger

	// generation is bumped by Invalidate; renders started under an older
	// generation are returned to their callers but never stored
	generation atomic.Uint64

	// mu orders local writes against Invalidate
	mu sync.Mutex
}

var _ ports.RenderCache = (*RenderCache)(nil)

// NewRenderCache creates a render cache. store and metrics may be nil.
func NewRenderCache(ttl TTLPolicy, store ports.RenderStore, metrics *observability.Collector, logger *zap.Logger) *RenderCache {
	if ttl == nil {
		ttl = DefaultTTLPolicy()
	}
	return &RenderCache{
		local:   gocache.New(ttl.For(vo.PeriodDay), 10*time.Minute),
		store:   store,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

// GetOrRender returns the cached artifact for fingerprint or runs render
// once for every concurrent caller. A caller whose ctx ends stops waiting;
// the render itself carries on and is cached for the next caller.
func (c *RenderCache) GetOrRender(ctx context.Context, fingerprint string, period vo.Period, render ports.RenderFunc) (*ports.Artifact, error) {
	if v, ok := c.local.Get(fingerprint); ok {
		c.metrics.CacheHit()
		return v.(*ports.Artifact), nil
	}

	gen := c.generation.Load()
	key := fmt.Sprintf("%d/%s", gen, fingerprint)
	detached := context.WithoutCancel(ctx)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.fill(detached, gen, fingerprint, period, render)
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.metrics.CacheShared()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ports.Artifact), nil
	case <-ctx.Done():
		c.logger.Debug("Caller left before render finished", zap.String("fingerprint", fingerprint))
		return nil, ctx.Err()
	}
}

func (c *RenderCache) fill(ctx context.Context, gen uint64, fingerprint string, period vo.Period, render ports.RenderFunc) (artifact *ports.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Render panicked", zap.String("fingerprint", fingerprint), zap.Any("panic", r))
			artifact, err = nil, fmt.Errorf("render panicked: %v", r)
		}
	}()

	ttl := c.ttl.For(period)

	if c.store != nil {
		shared, found, err := c.store.Get(ctx, fingerprint)
		switch {
		case err != nil:
			c.metrics.CacheStoreError("get")
			c.logger.Warn("Shared render store read failed", zap.String("fingerprint", fingerprint), zap.Error(err))
		case found && shared != nil:
			c.metrics.CacheHit()
			c.storeLocal(gen, fingerprint, shared, ttl)
			return shared, nil
		}
	}

	c.metrics.CacheMiss()
	artifact, err = render(ctx)
	if err != nil {
		return nil, err
	}

	if !c.storeLocal(gen, fingerprint, artifact, ttl) {
		c.logger.Debug("Discarding render from before invalidation", zap.String("fingerprint", fingerprint))
		return artifact, nil
	}

	if c.store != nil {
		if err := c.store.Put(ctx, fingerprint, artifact, ttl); err != nil {
			c.metrics.CacheStoreError("put")
			c.logger.Warn("Shared render store write failed", zap.String("fingerprint", fingerprint), zap.Error(err))
		}
	}
	return artifact, nil
}

// storeLocal caches artifact unless an invalidation happened since gen.
func (c *RenderCache) storeLocal(gen uint64, fingerprint string, artifact *ports.Artifact, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation.Load() != gen {
		return false
	}
	c.local.Set(fingerprint, artifact, ttl)
	return true
}

// Invalidate drops every cached artifact. Renders in flight finish for
// their callers but are not stored.
func (c *RenderCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.generation.Add(1)
	c.local.Flush()
	c.mu.Unlock()
	c.metrics.CacheInvalidated()

	if c.store != nil {
		if err := c.store.Clear(ctx); err != nil {
			c.metrics.CacheStoreError("clear")
			c.logger.Warn("Shared render store clear failed", zap.Error(err))
		}
	}

	c.logger.Info("Render cache invalidated", zap.Uint64("generation", c.generation.Load()))
	return nil
}

// Len returns the number of locally cached artifacts.
func (c *RenderCache) Len() int {
	return c.local.ItemCount()
}
