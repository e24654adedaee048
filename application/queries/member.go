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

// NoticeNoGraphableInterfaces is shown for members without a connected or
// quarantined port.
const NoticeNoGraphableInterfaces = "This customer has no graphable interfaces (i.e. no physical interfaces in quarantine or connected)"

// LatencyBasePath is where latency views are served.
const LatencyBasePath = "/api/v1/statistics/latency"

// MemberQuery asks for a member's graph overview. An empty CustomerID means
// the principal's own customer.
type MemberQuery struct {
	CustomerID string       `json:"customer_id"`
	Category   string       `json:"category"`
	Period     string       `json:"period"`
	Principal  vo.Principal `json:"-"`
}

// Validate validates the query
func (q MemberQuery) Validate() error {
	return nil
}

// LatencyLinkDTO points at a latency view
type LatencyLinkDTO struct {
	Protocol vo.Protocol `json:"protocol"`
	Address  string      `json:"address"`
	Href     string      `json:"href"`
}

// MemberVlanInterfaceDTO is a member's presence on one VLAN
type MemberVlanInterfaceDTO struct {
	Vlan    string           `json:"vlan"`
	Graph   GraphLink        `json:"graph"`
	Latency []LatencyLinkDTO `json:"latency"`
}

// MemberInterfaceDTO is one virtual interface with its ports
type MemberInterfaceDTO struct {
	Name           string                   `json:"name"`
	Graph          GraphLink                `json:"graph"`
	Ports          []GraphLink              `json:"ports"`
	VlanInterfaces []MemberVlanInterfaceDTO `json:"vlan_interfaces"`
}

// MemberResult is a member's graph overview
type MemberResult struct {
	Customer   entities.Customer    `json:"customer"`
	Params     vo.GraphParams       `json:"params"`
	Categories []ChoiceDTO          `json:"categories"`
	Aggregate  GraphLink            `json:"aggregate"`
	Interfaces []MemberInterfaceDTO `json:"interfaces"`
	Notice     string               `json:"notice,omitempty"`
}

// MemberHandler handles the MemberQuery
type MemberHandler struct {
	graphs *services.GraphService
}

// NewMemberHandler creates a new handler instance
func NewMemberHandler(graphs *services.GraphService) *MemberHandler {
	return &MemberHandler{graphs: graphs}
}

// Handle builds the overview. Authorising the customer authorises all of
// its interfaces.
func (h *MemberHandler) Handle(ctx context.Context, query MemberQuery) (*MemberResult, error) {
	req, err := h.graphs.Prepare(ctx, services.GraphInput{
		Kind:        targets.KindCustomer,
		RawID:       query.CustomerID,
		RawCategory: query.Category,
		RawPeriod:   query.Period,
		Principal:   query.Principal,
	})
	if err != nil {
		return nil, err
	}
	customer := req.Target.(targets.Customer).Customer

	interfaces, err := h.graphs.Resolver().CustomerInterfaces(ctx, customer)
	if err != nil {
		return nil, err
	}

	result := &MemberResult{
		Customer:   customer,
		Params:     req.Params,
		Categories: categoryChoices(targets.KindCustomer, query.Principal),
		Aggregate:  NewGraphLink(req.Target, req.Params),
		Interfaces: []MemberInterfaceDTO{},
	}
	if len(interfaces) == 0 {
		result.Notice = NoticeNoGraphableInterfaces
		return result, nil
	}

	vliParams := vo.Normalize(string(req.Params.Category), "", string(req.Params.Period), "",
		targets.NormalizeContext(targets.KindVlanInterface, query.Principal, ""))

	for _, mi := range interfaces {
		dto := MemberInterfaceDTO{
			Name:           mi.Virtual.Interface.Name,
			Graph:          NewGraphLink(mi.Virtual, req.Params),
			Ports:          make([]GraphLink, 0, len(mi.Ports)),
			VlanInterfaces: make([]MemberVlanInterfaceDTO, 0, len(mi.VlanInterfaces)),
		}
		for _, pi := range mi.Ports {
			dto.Ports = append(dto.Ports, NewGraphLink(pi, req.Params))
		}
		for _, vli := range mi.VlanInterfaces {
			dto.VlanInterfaces = append(dto.VlanInterfaces, MemberVlanInterfaceDTO{
				Vlan:    vli.Vlan.Name,
				Graph:   NewGraphLink(vli, vliParams),
				Latency: latencyLinks(vli),
			})
		}
		result.Interfaces = append(result.Interfaces, dto)
	}
	return result, nil
}

// latencyLinks lists the protocols the interface can be pinged over.
func latencyLinks(vli targets.VlanInterface) []LatencyLinkDTO {
	links := []LatencyLinkDTO{}
	for _, p := range vo.RealProtocols {
		if !vli.ProtocolEnabled(p) || !vli.ProtocolCanPing(p) {
			continue
		}
		links = append(links, LatencyLinkDTO{
			Protocol: p,
			Address:  address(vli.Interface, p),
			Href:     LatencyBasePath + "/" + strconv.Itoa(vli.Interface.ID) + "/" + string(p),
		})
	}
	return links
}

func address(vli entities.VlanInterface, p vo.Protocol) string {
	if p == vo.ProtocolIPv6 {
		return vli.IPv6Address
	}
	return vli.IPv4Address
}

// drilldownKinds maps the drilldown types onto target kinds.
var drilldownKinds = map[string]targets.Kind{
	"agg":     targets.KindCustomer,
	"vi":      targets.KindVirtualInterface,
	"pi":      targets.KindPhysicalInterface,
	"vlanint": targets.KindVlanInterface,
}

// MemberDrilldownQuery asks for one member graph over every period
type MemberDrilldownQuery struct {
	Type      string       `json:"type"`
	ID        string       `json:"id"`
	Category  string       `json:"category"`
	Protocol  string       `json:"protocol"`
	Principal vo.Principal `json:"-"`
}

// Validate validates the query
func (q MemberDrilldownQuery) Validate() error {
	if _, ok := drilldownKinds[strings.ToLower(q.Type)]; !ok {
		return pkgerrors.NewTargetNotFound("graph type", q.Type)
	}
	return nil
}

// MemberDrilldownResult is one member graph in all periods
type MemberDrilldownResult struct {
	Customer entities.Customer `json:"customer"`
	Target   TargetDTO         `json:"target"`
	Params   vo.GraphParams    `json:"params"`
	Periods  []GraphLink       `json:"periods"`
}

// MemberDrilldownHandler handles the MemberDrilldownQuery
type MemberDrilldownHandler struct {
	graphs *services.GraphService
}

// NewMemberDrilldownHandler creates a new handler instance
func NewMemberDrilldownHandler(graphs *services.GraphService) *MemberDrilldownHandler {
	return &MemberDrilldownHandler{graphs: graphs}
}

// Handle resolves and authorises the drilldown target
func (h *MemberDrilldownHandler) Handle(ctx context.Context, query MemberDrilldownQuery) (*MemberDrilldownResult, error) {
	kind := drilldownKinds[strings.ToLower(query.Type)]

	req, err := h.graphs.Prepare(ctx, services.GraphInput{
		Kind:        kind,
		RawID:       query.ID,
		RawCategory: query.Category,
		RawProtocol: query.Protocol,
		Principal:   query.Principal,
	})
	if err != nil {
		return nil, err
	}

	customer, _ := ownerOf(req.Target)
	return &MemberDrilldownResult{
		Customer: customer,
		Target:   NewTargetDTO(req.Target),
		Params:   req.Params,
		Periods:  periodLinks(req.Target, req.Params),
	}, nil
}
