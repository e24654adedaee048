package queries

import (
	"context"

	"ixp-grapher/application/ports"
	"ixp-grapher/application/services"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	pkgerrors "ixp-grapher/pkg/errors"
)

// RenderGraphQuery asks for one rendered graph
type RenderGraphQuery struct {
	Kind        string       `json:"kind"`
	ID          string       `json:"id"`
	Destination string       `json:"destination,omitempty"`
	Side        string       `json:"side,omitempty"`
	Category    string       `json:"category"`
	Protocol    string       `json:"protocol"`
	Period      string       `json:"period"`
	Type        string       `json:"type"`
	Strict      bool         `json:"strict"`
	Principal   vo.Principal `json:"-"`

	// DefaultPeriod applies when Period is absent or unknown
	DefaultPeriod vo.Period `json:"-"`
}

// Validate validates the query
func (q RenderGraphQuery) Validate() error {
	if _, ok := targets.ParseKind(q.Kind); !ok {
		return pkgerrors.NewInvalidParameter("kind", q.Kind)
	}
	return nil
}

// RenderGraphResult is the artifact with the request that produced it
type RenderGraphResult struct {
	Artifact *ports.Artifact
	Request  *targets.GraphRequest
}

// RenderGraphHandler handles the RenderGraphQuery
type RenderGraphHandler struct {
	graphs *services.GraphService
}

// NewRenderGraphHandler creates a new handler instance
func NewRenderGraphHandler(graphs *services.GraphService) *RenderGraphHandler {
	return &RenderGraphHandler{graphs: graphs}
}

// Handle runs the engine for the query
func (h *RenderGraphHandler) Handle(ctx context.Context, query RenderGraphQuery) (*RenderGraphResult, error) {
	kind, _ := targets.ParseKind(query.Kind)

	artifact, req, err := h.graphs.Render(ctx, services.GraphInput{
		Kind:          kind,
		RawID:         query.ID,
		Destination:   query.Destination,
		Side:          query.Side,
		RawCategory:   query.Category,
		RawProtocol:   query.Protocol,
		RawPeriod:     query.Period,
		RawType:       query.Type,
		Strict:        query.Strict,
		Principal:     query.Principal,
		DefaultPeriod: query.DefaultPeriod,
	})
	if err != nil {
		return nil, err
	}
	return &RenderGraphResult{Artifact: artifact, Request: req}, nil
}
