package queries

import (
	"context"
	"strconv"
	"strings"

	"ixp-grapher/application/services"
	"ixp-grapher/domain/core/entities"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	pkgerrors "ixp-grapher/pkg/errors"
)

// LatencyQuery asks for the latency view of a VLAN interface. Without an
// interface the principal's own first pingable interface is used.
type LatencyQuery struct {
	VlanInterfaceID string       `json:"vli_id"`
	Protocol        string       `json:"protocol"`
	Principal       vo.Principal `json:"-"`
}

// Validate validates the query
func (q LatencyQuery) Validate() error {
	return nil
}

// LatencyResult is the latency view
type LatencyResult struct {
	Customer      entities.Customer      `json:"customer"`
	VlanInterface entities.VlanInterface `json:"vlan_interface"`
	Vlan          entities.Vlan          `json:"vlan"`
	Address       string                 `json:"address"`
	Protocol      vo.Protocol            `json:"protocol"`
	Periods       []GraphLink            `json:"periods"`
}

// LatencyHandler handles the LatencyQuery
type LatencyHandler struct {
	graphs *services.GraphService
}

// NewLatencyHandler creates a new handler instance
func NewLatencyHandler(graphs *services.GraphService) *LatencyHandler {
	return &LatencyHandler{graphs: graphs}
}

// Handle resolves and authorises the latency target. A protocol that is
// disabled or not pingable yields CapabilityNotEnabled.
func (h *LatencyHandler) Handle(ctx context.Context, query LatencyQuery) (*LatencyResult, error) {
	raw := strings.TrimSpace(query.VlanInterfaceID)
	if raw == "" {
		id, err := h.defaultVlanInterface(ctx, query)
		if err != nil {
			return nil, err
		}
		raw = strconv.Itoa(id)
	}

	req, err := h.graphs.Prepare(ctx, services.GraphInput{
		Kind:        targets.KindLatency,
		RawID:       raw,
		RawProtocol: query.Protocol,
		Principal:   query.Principal,
	})
	if err != nil {
		return nil, err
	}
	latency := req.Target.(targets.Latency)

	return &LatencyResult{
		Customer:      latency.Owner,
		VlanInterface: latency.Interface,
		Vlan:          latency.Vlan,
		Address:       address(latency.Interface, latency.Protocol),
		Protocol:      latency.Protocol,
		Periods:       periodLinks(latency, req.Params),
	}, nil
}

// defaultVlanInterface picks the principal's first interface that answers
// pings over the requested protocol, else their first interface.
func (h *LatencyHandler) defaultVlanInterface(ctx context.Context, query LatencyQuery) (int, error) {
	if query.Principal.CustomerID <= 0 {
		return 0, pkgerrors.NewTargetNotFound("vlan interface", "")
	}
	vlis, err := h.graphs.Resolver().CustomerVlanInterfaces(ctx, query.Principal.CustomerID)
	if err != nil {
		return 0, err
	}
	if len(vlis) == 0 {
		return 0, pkgerrors.NewNoTargetsAvailable("vlan interfaces")
	}

	protocol, ok := vo.ParseProtocol(query.Protocol)
	if !ok || !protocol.IsReal() {
		protocol = vo.ProtocolIPv4
	}
	for _, vli := range vlis {
		if vli.ProtocolEnabled(protocol) && vli.ProtocolCanPing(protocol) {
			return vli.Interface.ID, nil
		}
	}
	return vlis[0].Interface.ID, nil
}
