package queries

import (
	"context"
	"strconv"

	"ixp-grapher/application/ports"
	"ixp-grapher/application/services"
	"ixp-grapher/domain/core/entities"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	pkgerrors "ixp-grapher/pkg/errors"
)

// CoreBundleQuery asks for the graphs of one side of a core bundle
type CoreBundleQuery struct {
	ID        string       `json:"id"`
	Side      string       `json:"side"`
	Category  string       `json:"category"`
	Principal vo.Principal `json:"-"`
}

// Validate validates the query
func (q CoreBundleQuery) Validate() error {
	return nil
}

// CoreBundleSideDTO links one side of the bundle
type CoreBundleSideDTO struct {
	Side     entities.CoreBundleSide `json:"side"`
	SwitchID int                     `json:"switch_id"`
	Periods  []GraphLink             `json:"periods"`
}

// CoreBundleResult is the core bundle view. Sides only lists the ends the
// principal may see.
type CoreBundleResult struct {
	Bundle     entities.CoreBundle `json:"bundle"`
	Params     vo.GraphParams      `json:"params"`
	Categories []ChoiceDTO         `json:"categories"`
	Sides      []CoreBundleSideDTO `json:"sides"`
	Bundles    []services.Option   `json:"bundles"`
}

// CoreBundleHandler handles the CoreBundleQuery
type CoreBundleHandler struct {
	graphs *services.GraphService
	repo   ports.CoreBundleReader
}

// NewCoreBundleHandler creates a new handler instance
func NewCoreBundleHandler(graphs *services.GraphService, repo ports.CoreBundleReader) *CoreBundleHandler {
	return &CoreBundleHandler{graphs: graphs, repo: repo}
}

// Handle authorises the requested side and adds the opposite side when the
// principal may see it too.
func (h *CoreBundleHandler) Handle(ctx context.Context, query CoreBundleQuery) (*CoreBundleResult, error) {
	req, err := h.graphs.Prepare(ctx, services.GraphInput{
		Kind:        targets.KindCoreBundle,
		RawID:       query.ID,
		Side:        query.Side,
		RawCategory: query.Category,
		Principal:   query.Principal,
	})
	if err != nil {
		return nil, err
	}
	requested := req.Target.(targets.CoreBundleSide)

	result := &CoreBundleResult{
		Bundle:     requested.Bundle,
		Params:     req.Params,
		Categories: categoryChoices(targets.KindCoreBundle, query.Principal),
		Sides:      []CoreBundleSideDTO{sideDTO(requested, req.Params)},
	}

	other := targets.CoreBundleSide{Bundle: requested.Bundle, Side: opposite(requested.Side)}
	if h.graphs.Authorize(query.Principal, other) == nil {
		result.Sides = append(result.Sides, sideDTO(other, req.Params))
	}

	if query.Principal.IsSuperUser() {
		if result.Bundles, err = h.activeBundles(ctx); err != nil {
			return nil, err
		}
	} else {
		result.Bundles = []services.Option{}
	}
	return result, nil
}

func (h *CoreBundleHandler) activeBundles(ctx context.Context) ([]services.Option, error) {
	bundles, err := h.repo.CoreBundles(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list core bundles")
	}
	opts := []services.Option{}
	for _, b := range bundles {
		if !b.Enabled {
			continue
		}
		opts = append(opts, services.Option{ID: strconv.Itoa(b.ID), Name: b.Description})
	}
	return opts, nil
}

func sideDTO(t targets.CoreBundleSide, params vo.GraphParams) CoreBundleSideDTO {
	return CoreBundleSideDTO{
		Side:     t.Side,
		SwitchID: t.Bundle.End(t.Side).SwitchID,
		Periods:  periodLinks(t, params),
	}
}

func opposite(side entities.CoreBundleSide) entities.CoreBundleSide {
	if side == entities.SideB {
		return entities.SideA
	}
	return entities.SideB
}
