package services

import (
	"context"
	"fmt"
	"time"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/core/targets"
	domainservices "ixp-grapher/domain/services"
	pkgerrors "ixp-grapher/pkg/errors"
	"ixp-grapher/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxAttempts is the primary backend plus at most one fallback.
const maxAttempts = 2

// Dispatcher routes graph requests to the backends able to serve them.
type Dispatcher struct {
	matrix   *domainservices.CapabilityMatrix
	backends map[domainservices.BackendID]ports.Backend
	cache    ports.RenderCache
	metrics  *observability.Collector
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher. cache and metrics may be nil.
func NewDispatcher(
	matrix *domainservices.CapabilityMatrix,
	backends []ports.Backend,
	cache ports.RenderCache,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Dispatcher {
	registered := make(map[domainservices.BackendID]ports.Backend, len(backends))
	for _, b := range backends {
		registered[b.ID()] = b
	}
	return &Dispatcher{
		matrix:   matrix,
		backends: registered,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// Candidates returns, in preference order, the registered backends that the
// matrix allows and that accept the request themselves.
func (d *Dispatcher) Candidates(req targets.GraphRequest) []ports.Backend {
	var out []ports.Backend
	for _, id := range d.matrix.CapableBackends(req.Target, req.Params.Category, req.Params.Protocol) {
		b, ok := d.backends[id]
		if !ok {
			continue
		}
		if b.Supports(req.Target, req.Params.Category, req.Params.Protocol) {
			out = append(out, b)
		}
	}
	return out
}

// Servable reports whether any backend can serve the request.
func (d *Dispatcher) Servable(req targets.GraphRequest) bool {
	return len(d.Candidates(req)) > 0
}

// Dispatch renders the request through the cache. The fingerprint names the
// primary backend so equal requests share one cache entry whichever backend
// ends up serving them.
func (d *Dispatcher) Dispatch(ctx context.Context, req targets.GraphRequest) (*ports.Artifact, error) {
	candidates := d.Candidates(req)
	if len(candidates) == 0 {
		return nil, pkgerrors.NewUnservable(
			string(req.Target.Kind()), string(req.Params.Category), string(req.Params.Protocol))
	}

	render := func(ctx context.Context) (*ports.Artifact, error) {
		return d.render(ctx, req, candidates)
	}
	if d.cache == nil {
		return render(ctx)
	}

	fingerprint := req.Fingerprint(string(candidates[0].ID()))
	return d.cache.GetOrRender(ctx, fingerprint, req.Params.Period, render)
}

func (d *Dispatcher) render(ctx context.Context, req targets.GraphRequest, candidates []ports.Backend) (*ports.Artifact, error) {
	query := ports.BackendQuery{Target: req.Target, Params: req.Params}
	attempts := min(maxAttempts, len(candidates))
	kind := string(req.Target.Kind())

	var lastErr error
	var lastID domainservices.BackendID
	for i := 0; i < attempts; i++ {
		b := candidates[i]

		artifact, err := d.renderOne(ctx, b, query)
		if err == nil {
			return artifact, nil
		}

		d.logger.Warn("Graph backend failed",
			zap.String("backend", string(b.ID())),
			zap.String("target", req.Target.Identity()),
			zap.Error(err))

		lastErr, lastID = err, b.ID()
		if i+1 < attempts {
			d.metrics.RecordFallback(string(b.ID()), string(candidates[i+1].ID()))
		}
	}

	d.logger.Error("No graph backend could render request",
		zap.String("kind", kind),
		zap.String("target", req.Target.Identity()),
		zap.Int("attempts", attempts))

	return nil, pkgerrors.NewBackendUnavailable(string(lastID), lastErr)
}

func (d *Dispatcher) renderOne(ctx context.Context, b ports.Backend, query ports.BackendQuery) (artifact *ports.Artifact, err error) {
	ctx, span := observability.Tracer().Start(ctx, "backend.render")
	span.SetAttributes(
		attribute.String("graph.backend", string(b.ID())),
		attribute.String("graph.target", query.Target.Identity()),
	)
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()
	artifact, err = b.Render(ctx, query)
	d.metrics.RecordRender(string(query.Target.Kind()), string(b.ID()), err, time.Since(start))
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		err = fmt.Errorf("backend %s returned no artifact", b.ID())
		return nil, err
	}

	if artifact.Backend == "" {
		artifact.Backend = b.ID()
	}
	if artifact.RenderedAt.IsZero() {
		artifact.RenderedAt = time.Now()
	}
	return artifact, nil
}
