package queries

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"ixp-grapher/application/ports"
	"ixp-grapher/application/services"
	"ixp-grapher/domain/core/entities"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	domainservices "ixp-grapher/domain/services"
	pkgerrors "ixp-grapher/pkg/errors"

	"go.uber.org/zap"
)

// MembersQuery asks for every member's graph on one infrastructure or VLAN
type MembersQuery struct {
	Infrastructure string       `json:"infra"`
	Vlan           string       `json:"vlan"`
	Category       string       `json:"category"`
	Protocol       string       `json:"protocol"`
	Period         string       `json:"period"`
	Principal      vo.Principal `json:"-"`
}

// Validate validates the query
func (q MembersQuery) Validate() error {
	return nil
}

// MembersResult lists member graphs. Graphs is empty when neither an
// infrastructure nor a VLAN was selected.
type MembersResult struct {
	Infrastructure  *entities.Infrastructure `json:"infrastructure,omitempty"`
	Vlan            *entities.Vlan           `json:"vlan,omitempty"`
	Params          vo.GraphParams           `json:"params"`
	Graphs          []GraphLink              `json:"graphs"`
	Infrastructures []services.Option        `json:"infrastructures"`
	Vlans           []services.Option        `json:"vlans"`
}

// MembersHandler handles the MembersQuery
type MembersHandler struct {
	graphs *services.GraphService
	repo   ports.ExchangeRepository
	logger *zap.Logger
}

// NewMembersHandler creates a new handler instance
func NewMembersHandler(graphs *services.GraphService, repo ports.ExchangeRepository, logger *zap.Logger) *MembersHandler {
	return &MembersHandler{graphs: graphs, repo: repo, logger: logger}
}

// Handle lists the member graphs. Only principals authorised for every
// customer may list them.
func (h *MembersHandler) Handle(ctx context.Context, query MembersQuery) (*MembersResult, error) {
	if !h.graphs.AuthorizedForAllCustomers(query.Principal) {
		h.logger.Info("Member listing refused",
			zap.String("user_id", query.Principal.UserID),
			zap.String("cause", "not_authorized"))
		return nil, pkgerrors.NewAuthorizationDenied(domainservices.ReasonCustomer)
	}

	result := &MembersResult{Graphs: []GraphLink{}}
	var err error
	if result.Infrastructures, err = h.infrastructureOptions(ctx); err != nil {
		return nil, err
	}
	if result.Vlans, err = h.publicVlanOptions(ctx); err != nil {
		return nil, err
	}

	resolver := h.graphs.Resolver()

	switch {
	case strings.TrimSpace(query.Infrastructure) != "":
		params := h.params(query, targets.KindVirtualInterface)
		params.Protocol = vo.ProtocolAll
		result.Params = params

		infra, err := h.infrastructure(ctx, query.Infrastructure)
		if err != nil {
			return nil, err
		}
		if infra == nil {
			// unknown infrastructure: every member's aggregate instead
			links, err := h.customerLinks(ctx, params)
			if err != nil {
				return nil, err
			}
			result.Graphs = links
			return result, nil
		}

		result.Infrastructure = infra
		vis, err := resolver.InfrastructureMembers(ctx, infra.ID)
		if err != nil {
			return nil, err
		}
		for _, vi := range vis {
			result.Graphs = append(result.Graphs, NewGraphLink(vi, params))
		}

	case strings.TrimSpace(query.Vlan) != "":
		params := h.params(query, targets.KindVlanInterface)
		result.Params = params

		id, _ := strconv.Atoi(strings.TrimSpace(query.Vlan))
		vlan, err := h.repo.Vlan(ctx, id)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to load vlan")
		}
		if vlan == nil {
			return result, nil
		}

		result.Vlan = vlan
		vlis, err := resolver.VlanMembers(ctx, vlan.ID)
		if err != nil {
			return nil, err
		}
		for _, vli := range vlis {
			result.Graphs = append(result.Graphs, NewGraphLink(vli, params))
		}

	default:
		result.Params = h.params(query, targets.KindCustomer)
	}

	return result, nil
}

func (h *MembersHandler) params(query MembersQuery, kind targets.Kind) vo.GraphParams {
	return vo.Normalize(query.Category, query.Protocol, query.Period, string(vo.OutputImage),
		targets.NormalizeContext(kind, query.Principal, ""))
}

func (h *MembersHandler) infrastructure(ctx context.Context, raw string) (*entities.Infrastructure, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, nil
	}
	infra, err := h.repo.Infrastructure(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load infrastructure")
	}
	return infra, nil
}

func (h *MembersHandler) customerLinks(ctx context.Context, params vo.GraphParams) ([]GraphLink, error) {
	customers, err := h.repo.Customers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list customers")
	}
	links := []GraphLink{}
	for _, c := range customers {
		interfaces, err := h.graphs.Resolver().CustomerInterfaces(ctx, c)
		if err != nil {
			return nil, err
		}
		if len(interfaces) == 0 {
			continue
		}
		links = append(links, NewGraphLink(targets.Customer{Customer: c}, params))
	}
	return links, nil
}

func (h *MembersHandler) infrastructureOptions(ctx context.Context) ([]services.Option, error) {
	infras, err := h.repo.Infrastructures(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list infrastructures")
	}
	opts := make([]services.Option, 0, len(infras))
	for _, i := range infras {
		opts = append(opts, services.Option{ID: strconv.Itoa(i.ID), Name: i.Name})
	}
	return opts, nil
}

// publicVlanOptions lists the non-private VLANs by number.
func (h *MembersHandler) publicVlanOptions(ctx context.Context) ([]services.Option, error) {
	vlans, err := h.repo.Vlans(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list vlans")
	}
	sort.SliceStable(vlans, func(i, j int) bool { return vlans[i].Number < vlans[j].Number })

	opts := make([]services.Option, 0, len(vlans))
	for _, v := range vlans {
		if v.Private {
			continue
		}
		opts = append(opts, services.Option{ID: strconv.Itoa(v.ID), Name: v.Name})
	}
	return opts, nil
}
