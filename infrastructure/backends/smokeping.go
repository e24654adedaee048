package backends

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	"ixp-grapher/domain/services"

	"go.uber.org/zap"
)

// Smokeping serves latency graphs from a Smokeping CGI.
type Smokeping struct {
	fetch *fetcher
	caps  services.Capabilities
}

// NewSmokeping creates the Smokeping backend. location is the CGI URL.
func NewSmokeping(location string, timeout time.Duration, logger *zap.Logger) (*Smokeping, error) {
	f, err := newFetcher(services.BackendSmokeping, location, timeout, logger)
	if err != nil {
		return nil, err
	}
	if f.base == nil {
		return nil, fmt.Errorf("smokeping: location must be a URL, got %q", location)
	}
	return &Smokeping{fetch: f, caps: services.DefaultCapabilities[services.BackendSmokeping]}, nil
}

func (s *Smokeping) ID() services.BackendID { return services.BackendSmokeping }

// Supports requires an address that is pinged over the protocol.
func (s *Smokeping) Supports(target targets.GraphTarget, category vo.Category, protocol vo.Protocol) bool {
	if !s.caps.Allows(target.Kind(), category, protocol) {
		return false
	}
	l, ok := target.(targets.Latency)
	if !ok {
		return false
	}
	return l.ProtocolCanPing(l.Protocol) && smokepingAddress(l) != ""
}

func (s *Smokeping) Render(ctx context.Context, query ports.BackendQuery) (*ports.Artifact, error) {
	l, ok := query.Target.(targets.Latency)
	if !ok {
		return nil, fmt.Errorf("smokeping cannot graph %s targets", query.Target.Kind())
	}

	params := url.Values{
		"displaymode": {"a"},
		"target":      {smokepingTarget(l)},
		"start":       {smokepingStart(query.Params.Period)},
		"end":         {"now"},
	}

	// Smokeping has no series export; raw requests describe the graph
	if query.Params.Type == vo.OutputRawData {
		data, err := json.Marshal(map[string]interface{}{
			"target":    query.Target.Identity(),
			"path":      smokepingTarget(l),
			"address":   smokepingAddress(l),
			"period":    query.Params.Period,
			"image_url": s.fetch.resolve("", params),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode smokeping descriptor: %w", err)
		}
		return &ports.Artifact{Data: data, ContentType: query.Params.Type.ContentType(), Backend: s.ID()}, nil
	}

	data, err := s.fetch.get(ctx, "", params)
	if err != nil {
		return nil, err
	}
	return &ports.Artifact{Data: data, ContentType: query.Params.Type.ContentType(), Backend: s.ID()}, nil
}

// smokepingTarget is the path in the Smokeping target tree.
func smokepingTarget(l targets.Latency) string {
	return fmt.Sprintf("infra_%d.vlan_%d.vlanint_%d_%s",
		l.Vlan.InfrastructureID, l.Vlan.Number, l.Interface.ID, l.Protocol)
}

func smokepingAddress(l targets.Latency) string {
	if l.Protocol == vo.ProtocolIPv6 {
		return l.Interface.IPv6Address
	}
	return l.Interface.IPv4Address
}

func smokepingStart(p vo.Period) string {
	switch p {
	case vo.PeriodWeek:
		return "now-1w"
	case vo.PeriodMonth:
		return "now-1mon"
	case vo.PeriodYear:
		return "now-1y"
	default:
		return "now-1d"
	}
}

var _ ports.Backend = (*Smokeping)(nil)
