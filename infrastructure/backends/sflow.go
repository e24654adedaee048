package backends

import (
	"context"
	"fmt"
	"time"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	"ixp-grapher/domain/services"

	"go.uber.org/zap"
)

// Sflow serves per protocol flow graphs from the sflow graphing service,
// laid out as {target}/{protocol}/{category}/{period}.{png|json}.
type Sflow struct {
	fetch *fetcher
	caps  services.Capabilities
}

// NewSflow creates the sflow backend for the service at location.
func NewSflow(location string, timeout time.Duration, logger *zap.Logger) (*Sflow, error) {
	f, err := newFetcher(services.BackendSflow, location, timeout, logger)
	if err != nil {
		return nil, err
	}
	return &Sflow{fetch: f, caps: services.DefaultCapabilities[services.BackendSflow]}, nil
}

func (s *Sflow) ID() services.BackendID { return services.BackendSflow }

// Supports rejects interfaces that do not run the protocol and pairs that
// do not share a VLAN; no flows are sampled for either.
func (s *Sflow) Supports(target targets.GraphTarget, category vo.Category, protocol vo.Protocol) bool {
	if !s.caps.Allows(target.Kind(), category, protocol) {
		return false
	}
	switch t := target.(type) {
	case targets.VlanInterface:
		return t.ProtocolEnabled(protocol)
	case targets.PeerPair:
		return t.Source.Vlan.ID == t.Destination.Vlan.ID
	}
	return true
}

func (s *Sflow) Render(ctx context.Context, query ports.BackendQuery) (*ports.Artifact, error) {
	stem, err := sflowPath(query.Target)
	if err != nil {
		return nil, err
	}
	p := query.Params
	rel := fmt.Sprintf("%s/%s/%s/%s.%s", stem, p.Protocol, p.Category, p.Period, extension(p.Type))

	data, err := s.fetch.get(ctx, rel, nil)
	if err != nil {
		return nil, err
	}
	return &ports.Artifact{Data: data, ContentType: p.Type.ContentType(), Backend: s.ID()}, nil
}

func sflowPath(target targets.GraphTarget) (string, error) {
	switch t := target.(type) {
	case targets.Overall:
		return "aggregate", nil
	case targets.Infrastructure:
		return fmt.Sprintf("infrastructure/%d", t.Infrastructure.ID), nil
	case targets.Vlan:
		return fmt.Sprintf("vlan/%d", t.Vlan.Number), nil
	case targets.Customer:
		return fmt.Sprintf("member/%d", t.Customer.ID), nil
	case targets.VirtualInterface:
		return fmt.Sprintf("member/%d/vi/%d", t.Owner.ID, t.Interface.ID), nil
	case targets.VlanInterface:
		return fmt.Sprintf("member/%d/vlanint/%d", t.Owner.ID, t.Interface.ID), nil
	case targets.PeerPair:
		return fmt.Sprintf("p2p/%d/%d", t.Source.Interface.ID, t.Destination.Interface.ID), nil
	default:
		return "", fmt.Errorf("sflow cannot graph %s targets", target.Kind())
	}
}

var _ ports.Backend = (*Sflow)(nil)
