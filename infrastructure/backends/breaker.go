package backends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ixp-grapher/application/ports"
	"ixp-grapher/pkg/observability"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds configuration for a backend circuit breaker
type BreakerConfig struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold and MinRequests decide when to trip
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the default breaker tuning
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// ErrBreakerOpen is returned without calling the backend while its breaker
// rejects requests.
var ErrBreakerOpen = errors.New("backend circuit open")

// breakerBackend guards a backend with a circuit breaker so a dead store
// fails fast and the dispatcher moves on to its fallback.
type breakerBackend struct {
	ports.Backend
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// WithBreaker wraps b in a circuit breaker. State changes are logged and
// exported as the breaker_state gauge.
func WithBreaker(b ports.Backend, config BreakerConfig, metrics *observability.Collector, logger *zap.Logger) ports.Backend {
	name := string(b.ID())
	metrics.SetBreakerState(name, stateValue(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Backend circuit breaker state changed",
				zap.String("backend", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.SetBreakerState(name, stateValue(to))
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// the backend answered; only its data was missing
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.NotFound() {
				return true
			}
			return errors.Is(err, context.Canceled)
		},
	})

	return &breakerBackend{Backend: b, cb: cb, logger: logger}
}

func (b *breakerBackend) Render(ctx context.Context, query ports.BackendQuery) (*ports.Artifact, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.Backend.Render(ctx, query)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			b.logger.Debug("Backend short-circuited",
				zap.String("backend", string(b.ID())),
				zap.String("state", b.cb.State().String()))
			return nil, fmt.Errorf("%w: %s is %s", ErrBreakerOpen, b.ID(), b.cb.State())
		}
		return nil, err
	}
	artifact, _ := out.(*ports.Artifact)
	return artifact, nil
}

// State returns the breaker state of a wrapped backend, closed for any
// other backend.
func State(b ports.Backend) gobreaker.State {
	if bb, ok := b.(*breakerBackend); ok {
		return bb.cb.State()
	}
	return gobreaker.StateClosed
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

var _ ports.Backend = (*breakerBackend)(nil)
