package backends

import (
	"fmt"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/services"
	"ixp-grapher/infrastructure/config"
	"ixp-grapher/pkg/observability"

	"go.uber.org/zap"
)

// Registry is the static set of enabled backends in preference order.
type Registry struct {
	Order    []services.BackendID
	Backends []ports.Backend
}

// NewRegistry builds every backend named in cfg.Backends, each behind its
// own circuit breaker.
func NewRegistry(cfg config.GrapherConfig, metrics *observability.Collector, logger *zap.Logger) (*Registry, error) {
	breaker := BreakerConfig{
		MaxRequests:      cfg.Breaker.MaxRequests,
		Interval:         cfg.Breaker.Interval,
		Timeout:          cfg.Breaker.Timeout,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		MinRequests:      cfg.Breaker.MinRequests,
	}
	if breaker.MaxRequests == 0 || breaker.Timeout == 0 || breaker.FailureThreshold == 0 {
		breaker = DefaultBreakerConfig()
	}

	reg := &Registry{}
	for _, name := range cfg.Backends {
		b, err := newBackend(name, cfg.Backend(name), logger)
		if err != nil {
			return nil, err
		}
		reg.Order = append(reg.Order, b.ID())
		reg.Backends = append(reg.Backends, WithBreaker(b, breaker, metrics, logger))

		logger.Info("Graph backend enabled",
			zap.String("backend", name),
			zap.Int("preference", len(reg.Order)))
	}
	return reg, nil
}

func newBackend(name string, cfg config.BackendConfig, logger *zap.Logger) (ports.Backend, error) {
	switch services.BackendID(name) {
	case services.BackendMrtg:
		return NewMrtg(cfg.Location, cfg.Timeout, logger)
	case services.BackendSflow:
		return NewSflow(cfg.Location, cfg.Timeout, logger)
	case services.BackendSmokeping:
		return NewSmokeping(cfg.Location, cfg.Timeout, logger)
	case services.BackendDummy:
		return NewDummy(), nil
	default:
		return nil, fmt.Errorf("unknown graph backend %q", name)
	}
}
