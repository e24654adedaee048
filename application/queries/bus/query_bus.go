package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"ixp-grapher/pkg/observability"

	"go.uber.org/zap"
)

// Query represents a read-only query
type Query interface {
	Validate() error
}

// QueryHandler handles a specific query type
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// Middleware decorates every registered handler
type Middleware func(queryName string, next QueryHandler) QueryHandler

// QueryBus dispatches queries to their handlers
type QueryBus struct {
	handlers   map[reflect.Type]QueryHandler
	middleware []Middleware
	mu         sync.RWMutex
}

// NewQueryBus creates a new query bus. Middleware applies in order, the
// first one outermost.
func NewQueryBus(middleware ...Middleware) *QueryBus {
	return &QueryBus{
		handlers:   make(map[reflect.Type]QueryHandler),
		middleware: middleware,
	}
}

// Register registers a handler for a query type
func (b *QueryBus) Register(queryType Query, handler QueryHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(queryType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for query type %s", t.Name())
	}

	for i := len(b.middleware) - 1; i >= 0; i-- {
		handler = b.middleware[i](t.Name(), handler)
	}
	b.handlers[t] = handler
	return nil
}

// Ask dispatches a query to its handler and returns the result. Validation
// and handler errors are returned unchanged so typed errors keep their
// identity.
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no handler registered for query type %T", query)
	}

	return handler.Handle(ctx, query)
}

// QueryHandlerFunc is an adapter to allow functions to be used as handlers
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

// Handle implements QueryHandler
func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// Typed adapts a handler written against its concrete query type.
func Typed[Q Query, R any](handle func(context.Context, Q) (R, error)) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		q, ok := query.(Q)
		if !ok {
			return nil, fmt.Errorf("invalid query type %T", query)
		}
		return handle(ctx, q)
	})
}

// Ask dispatches query and asserts the result type.
func Ask[R any](ctx context.Context, b *QueryBus, query Query) (R, error) {
	var zero R
	result, err := b.Ask(ctx, query)
	if err != nil {
		return zero, err
	}
	typed, ok := result.(R)
	if !ok {
		return zero, fmt.Errorf("unexpected result type %T for %T", result, query)
	}
	return typed, nil
}

// MetricsMiddleware counts queries by type and outcome
func MetricsMiddleware(metrics *observability.Collector) Middleware {
	return func(queryName string, next QueryHandler) QueryHandler {
		return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
			result, err := next.Handle(ctx, query)
			metrics.RecordQuery(queryName, err)
			return result, err
		})
	}
}

// LoggingMiddleware logs slow or failed queries
func LoggingMiddleware(logger *zap.Logger, slow time.Duration) Middleware {
	return func(queryName string, next QueryHandler) QueryHandler {
		return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
			start := time.Now()
			result, err := next.Handle(ctx, query)
			elapsed := time.Since(start)

			switch {
			case err != nil:
				logger.Debug("Query failed",
					zap.String("query", queryName),
					zap.Duration("duration", elapsed),
					zap.Error(err))
			case elapsed > slow:
				logger.Warn("Slow query",
					zap.String("query", queryName),
					zap.Duration("duration", elapsed))
			}
			return result, err
		})
	}
}
