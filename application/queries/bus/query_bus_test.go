package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"ixp-grapher/pkg/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echoQuery struct {
	Value string
	Bad   bool
}

func (q echoQuery) Validate() error {
	if q.Bad {
		return errInvalid
	}
	return nil
}

type otherQuery struct{}

func (otherQuery) Validate() error { return nil }

var errInvalid = errors.New("invalid echo")

func echo(ctx context.Context, q echoQuery) (string, error) {
	return "echo:" + q.Value, nil
}

func TestQueryBus_AskRoutesByType(t *testing.T) {
	// Arrange
	b := NewQueryBus()
	require.NoError(t, b.Register(echoQuery{}, Typed(echo)))

	// Act
	result, err := Ask[string](context.Background(), b, echoQuery{Value: "hi"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", result)
}

func TestQueryBus_Errors(t *testing.T) {
	handlerErr := errors.New("boom")
	b := NewQueryBus()
	require.NoError(t, b.Register(echoQuery{}, Typed(func(ctx context.Context, q echoQuery) (string, error) {
		return "", handlerErr
	})))

	tests := []struct {
		name  string
		query Query
		want  error
	}{
		{name: "validation error is returned unchanged", query: echoQuery{Bad: true}, want: errInvalid},
		{name: "handler error is returned unchanged", query: echoQuery{}, want: handlerErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Ask(context.Background(), tt.query)
			assert.Same(t, tt.want, err)
		})
	}

	t.Run("unregistered query", func(t *testing.T) {
		_, err := b.Ask(context.Background(), otherQuery{})
		assert.ErrorContains(t, err, "no handler registered")
	})
}

func TestQueryBus_RejectsDuplicateRegistration(t *testing.T) {
	b := NewQueryBus()
	require.NoError(t, b.Register(echoQuery{}, Typed(echo)))

	err := b.Register(echoQuery{}, Typed(echo))

	assert.ErrorContains(t, err, "already registered")
}

func TestAsk_WrongResultType(t *testing.T) {
	b := NewQueryBus()
	require.NoError(t, b.Register(echoQuery{}, Typed(echo)))

	_, err := Ask[int](context.Background(), b, echoQuery{})

	assert.ErrorContains(t, err, "unexpected result type")
}

func TestQueryBus_MiddlewareOrder(t *testing.T) {
	// Arrange
	var calls []string
	tag := func(name string) Middleware {
		return func(queryName string, next QueryHandler) QueryHandler {
			return QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
				calls = append(calls, name+":"+queryName)
				return next.Handle(ctx, q)
			})
		}
	}
	b := NewQueryBus(tag("outer"), tag("inner"))
	require.NoError(t, b.Register(echoQuery{}, Typed(echo)))

	// Act
	_, err := b.Ask(context.Background(), echoQuery{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"outer:echoQuery", "inner:echoQuery"}, calls)
}

func TestMetricsMiddleware_CountsOutcomes(t *testing.T) {
	// Arrange
	metrics := observability.NewCollector("test")
	b := NewQueryBus(MetricsMiddleware(metrics), LoggingMiddleware(zap.NewNop(), time.Second))
	require.NoError(t, b.Register(echoQuery{}, Typed(echo)))

	// Act
	_, _ = b.Ask(context.Background(), echoQuery{})
	_, _ = b.Ask(context.Background(), echoQuery{})

	// Assert
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.Queries.WithLabelValues("echoQuery", "success")))
}
