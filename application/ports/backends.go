package ports

import (
	"context"
	"time"

	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	"ixp-grapher/domain/services"
)

// Artifact is a rendered graph.
type Artifact struct {
	Data        []byte             `json:"data"`
	ContentType string             `json:"content_type"`
	Backend     services.BackendID `json:"backend"`
	RenderedAt  time.Time          `json:"rendered_at"`
}

// BackendQuery is a graph request bound for one backend.
type BackendQuery struct {
	Target targets.GraphTarget
	Params vo.GraphParams
}

// Backend is a measurement store that can render graphs.
type Backend interface {
	// ID returns the backend identifier used in the capability matrix
	ID() services.BackendID

	// Supports is the backend's own capability test
	Supports(target targets.GraphTarget, category vo.Category, protocol vo.Protocol) bool

	// Render produces the artifact. Implementations must not retry.
	Render(ctx context.Context, query BackendQuery) (*Artifact, error)
}

// RenderFunc produces an artifact on a cache miss.
type RenderFunc func(ctx context.Context) (*Artifact, error)

// RenderCache dedupes and caches renders by fingerprint.
type RenderCache interface {
	// GetOrRender returns the cached artifact or runs render once for all
	// concurrent callers of the same fingerprint
	GetOrRender(ctx context.Context, fingerprint string, period vo.Period, render RenderFunc) (*Artifact, error)

	// Invalidate drops every cached artifact
	Invalidate(ctx context.Context) error
}

// RenderStore is a shared, cross-instance artifact store.
type RenderStore interface {
	// Get returns the stored artifact; found is false on a miss
	Get(ctx context.Context, fingerprint string) (artifact *Artifact, found bool, err error)

	// Put stores an artifact until ttl elapses
	Put(ctx context.Context, fingerprint string, artifact *Artifact, ttl time.Duration) error

	// Clear removes every stored artifact
	Clear(ctx context.Context) error
}

// InvalidationPublisher tells other instances to drop their caches.
type InvalidationPublisher interface {
	PublishInvalidation(ctx context.Context, reason string) error
}
