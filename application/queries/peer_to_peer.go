package queries

import (
	"context"
	"strconv"
	"strings"

	"ixp-grapher/application/services"
	"ixp-grapher/domain/core/entities"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
)

// PeerToPeerQuery asks for a member's peer to peer view. Zero values pick
// defaults: the principal's customer, the first source interface and every
// peer on its VLAN.
type PeerToPeerQuery struct {
	CustomerID  string       `json:"customer_id"`
	Source      string       `json:"svli"`
	Destination string       `json:"dvli"`
	Category    string       `json:"category"`
	Protocol    string       `json:"protocol"`
	Period      string       `json:"period"`
	Principal   vo.Principal `json:"-"`
}

// Validate validates the query
func (q PeerToPeerQuery) Validate() error {
	return nil
}

// VlanInterfaceOptionDTO is a selectable VLAN interface
type VlanInterfaceOptionDTO struct {
	ID       int    `json:"id"`
	Customer string `json:"customer"`
	Vlan     string `json:"vlan"`
}

// PeerToPeerResult is the peer to peer view. Graphs holds one graph per
// destination when no destination was named, otherwise the pair in every
// period.
type PeerToPeerResult struct {
	Customer            entities.Customer        `json:"customer"`
	Params              vo.GraphParams           `json:"params"`
	Categories          []ChoiceDTO              `json:"categories"`
	Source              VlanInterfaceOptionDTO   `json:"source"`
	Destination         VlanInterfaceOptionDTO   `json:"destination"`
	Sources             []VlanInterfaceOptionDTO `json:"sources"`
	Destinations        []VlanInterfaceOptionDTO `json:"destinations"`
	DestinationExplicit bool                     `json:"destination_explicit"`
	Retargeted          bool                     `json:"retargeted"`
	Graphs              []GraphLink              `json:"graphs"`
}

// PeerToPeerHandler handles the PeerToPeerQuery
type PeerToPeerHandler struct {
	graphs *services.GraphService
}

// NewPeerToPeerHandler creates a new handler instance
func NewPeerToPeerHandler(graphs *services.GraphService) *PeerToPeerHandler {
	return &PeerToPeerHandler{graphs: graphs}
}

// Handle resolves the selection and authorises it once for the pair.
func (h *PeerToPeerHandler) Handle(ctx context.Context, query PeerToPeerQuery) (*PeerToPeerResult, error) {
	params := vo.Normalize(query.Category, query.Protocol, query.Period, string(vo.OutputImage),
		targets.NormalizeContext(targets.KindPeerPair, query.Principal, ""))

	sel, err := h.graphs.PreparePeerPair(ctx, services.PeerPairInput{
		CustomerID:    atoi(query.CustomerID),
		SourceID:      atoi(query.Source),
		DestinationID: atoi(query.Destination),
		Principal:     query.Principal,
	}, params.Protocol)
	if err != nil {
		return nil, err
	}

	result := &PeerToPeerResult{
		Customer:            sel.Pair.Source.Owner,
		Params:              params,
		Categories:          categoryChoices(targets.KindPeerPair, query.Principal),
		Source:              vliOption(sel.Pair.Source),
		Destination:         vliOption(sel.Pair.Destination),
		Sources:             vliOptions(sel.Sources),
		Destinations:        vliOptions(sel.Destinations),
		DestinationExplicit: sel.DestinationExplicit,
		Retargeted:          sel.Retargeted,
	}

	if sel.DestinationExplicit {
		result.Graphs = periodLinks(sel.Pair, params)
		return result, nil
	}

	result.Graphs = make([]GraphLink, 0, len(sel.Destinations))
	for _, dst := range sel.Destinations {
		result.Graphs = append(result.Graphs, NewGraphLink(targets.PeerPair{Source: sel.Pair.Source, Destination: dst}, params))
	}
	return result, nil
}

func vliOption(v targets.VlanInterface) VlanInterfaceOptionDTO {
	return VlanInterfaceOptionDTO{ID: v.Interface.ID, Customer: v.Owner.Name, Vlan: v.Vlan.Name}
}

func vliOptions(vs []targets.VlanInterface) []VlanInterfaceOptionDTO {
	out := make([]VlanInterfaceOptionDTO, 0, len(vs))
	for _, v := range vs {
		out = append(out, vliOption(v))
	}
	return out
}

func atoi(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
