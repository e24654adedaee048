package queries

import (
	"context"

	"ixp-grapher/application/services"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	pkgerrors "ixp-grapher/pkg/errors"
)

// ListTargetsQuery asks for a listing view: the resolved target of a
// listing kind, its eligible siblings and the normalized parameters.
type ListTargetsQuery struct {
	Kind      targets.Kind `json:"kind"`
	ID        string       `json:"id"`
	Category  string       `json:"category"`
	Protocol  string       `json:"protocol"`
	Period    string       `json:"period"`
	Strict    bool         `json:"strict"`
	Principal vo.Principal `json:"-"`
}

// Validate validates the query
func (q ListTargetsQuery) Validate() error {
	switch q.Kind {
	case targets.KindOverall, targets.KindInfrastructure, targets.KindVlan, targets.KindSwitch, targets.KindTrunk:
		return nil
	default:
		return pkgerrors.NewInvalidParameter("kind", string(q.Kind))
	}
}

// ListTargetsResult is one listing view
type ListTargetsResult struct {
	Target     TargetDTO         `json:"target"`
	Options    []services.Option `json:"options"`
	Params     vo.GraphParams    `json:"params"`
	Categories []ChoiceDTO       `json:"categories"`
	Graph      GraphLink         `json:"graph"`
	Periods    []GraphLink       `json:"periods"`
}

// ListTargetsHandler handles the ListTargetsQuery
type ListTargetsHandler struct {
	graphs *services.GraphService
}

// NewListTargetsHandler creates a new handler instance
func NewListTargetsHandler(graphs *services.GraphService) *ListTargetsHandler {
	return &ListTargetsHandler{graphs: graphs}
}

// Handle resolves the listing. A VLAN no backend can graph is reported as
// unservable rather than shown empty.
func (h *ListTargetsHandler) Handle(ctx context.Context, query ListTargetsQuery) (*ListTargetsResult, error) {
	req, err := h.graphs.Prepare(ctx, services.GraphInput{
		Kind:        query.Kind,
		RawID:       query.ID,
		RawCategory: query.Category,
		RawProtocol: query.Protocol,
		RawPeriod:   query.Period,
		Strict:      query.Strict,
		Principal:   query.Principal,
	})
	if err != nil {
		return nil, err
	}

	if query.Kind == targets.KindVlan && !h.graphs.Servable(*req) {
		return nil, pkgerrors.NewUnservable(string(query.Kind), string(req.Params.Category), string(req.Params.Protocol))
	}

	options, err := h.graphs.Resolver().Options(ctx, query.Kind)
	if err != nil {
		return nil, err
	}
	if options == nil {
		options = []services.Option{}
	}

	return &ListTargetsResult{
		Target:     NewTargetDTO(req.Target),
		Options:    options,
		Params:     req.Params,
		Categories: categoryChoices(query.Kind, query.Principal),
		Graph:      NewGraphLink(req.Target, req.Params),
		Periods:    periodLinks(req.Target, req.Params),
	}, nil
}
