package queries

import (
	"context"
	"sort"
	"strconv"

	"ixp-grapher/application/ports"
	"ixp-grapher/application/services"
	"ixp-grapher/domain/core/entities"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	pkgerrors "ixp-grapher/pkg/errors"
)

// SwitchConfigurationQuery asks for the port configuration overview. A nil
// filter means the parameter was absent and the session value applies.
type SwitchConfigurationQuery struct {
	Switch         *string            `json:"switch,omitempty"`
	Infrastructure *string            `json:"infra,omitempty"`
	Speed          *string            `json:"speed,omitempty"`
	Session        ports.SessionStore `json:"-"`
	Principal      vo.Principal       `json:"-"`
}

// Validate validates the query
func (q SwitchConfigurationQuery) Validate() error {
	return nil
}

// SwitchPortDTO is one customer port
type SwitchPortDTO struct {
	Switch   string    `json:"switch"`
	Port     string    `json:"port"`
	Speed    int       `json:"speed"`
	Status   string    `json:"status"`
	Customer string    `json:"customer"`
	Graph    GraphLink `json:"graph"`
}

// SwitchConfigurationSummary describes the active filters
type SwitchConfigurationSummary struct {
	Switch         string `json:"switch,omitempty"`
	Infrastructure string `json:"infrastructure,omitempty"`
	Speed          int    `json:"speed,omitempty"`
	Ports          int    `json:"ports"`
}

// SwitchConfigurationResult lists customer ports under the active filters
type SwitchConfigurationResult struct {
	Summary         SwitchConfigurationSummary `json:"summary"`
	Switches        []services.Option          `json:"switches"`
	Infrastructures []services.Option          `json:"infrastructures"`
	Speeds          []int                      `json:"speeds"`
	Ports           []SwitchPortDTO            `json:"ports"`
}

// SwitchConfigurationHandler handles the SwitchConfigurationQuery
type SwitchConfigurationHandler struct {
	graphs *services.GraphService
	repo   ports.ExchangeRepository
}

// NewSwitchConfigurationHandler creates a new handler instance
func NewSwitchConfigurationHandler(graphs *services.GraphService, repo ports.ExchangeRepository) *SwitchConfigurationHandler {
	return &SwitchConfigurationHandler{graphs: graphs, repo: repo}
}

// Handle resolves the sticky filters and lists the matching ports.
func (h *SwitchConfigurationHandler) Handle(ctx context.Context, query SwitchConfigurationQuery) (*SwitchConfigurationResult, error) {
	if !query.Principal.IsSuperUser() {
		return nil, pkgerrors.NewForbiddenError("switch configuration is restricted to administrators")
	}

	filters, err := h.graphs.Resolver().ResolveSwitchConfigurationFilters(ctx, services.SwitchConfigurationInput{
		Switch:         query.Switch,
		Infrastructure: query.Infrastructure,
		Speed:          query.Speed,
	}, query.Session)
	if err != nil {
		return nil, err
	}

	switches, err := h.repo.Switches(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list switches")
	}
	infras, err := h.repo.Infrastructures(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list infrastructures")
	}
	customers, err := h.repo.Customers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list customers")
	}
	owners := make(map[int]entities.Customer, len(customers))
	for _, c := range customers {
		owners[c.ID] = c
	}

	result := &SwitchConfigurationResult{
		Switches:        make([]services.Option, 0, len(switches)),
		Infrastructures: make([]services.Option, 0, len(infras)),
		Speeds:          filters.Speeds,
		Ports:           []SwitchPortDTO{},
	}
	if result.Speeds == nil {
		result.Speeds = []int{}
	}
	for _, i := range infras {
		result.Infrastructures = append(result.Infrastructures, services.Option{ID: strconv.Itoa(i.ID), Name: i.Name})
	}

	params := vo.Normalize("", "", "", "", targets.NormalizeContext(targets.KindPhysicalInterface, query.Principal, ""))

	for _, sw := range switches {
		if !sw.Active {
			continue
		}
		if filters.Infrastructure != nil && sw.InfrastructureID != filters.Infrastructure.ID {
			continue
		}
		result.Switches = append(result.Switches, services.Option{ID: strconv.Itoa(sw.ID), Name: sw.Name})
		if filters.Switch != nil && sw.ID != filters.Switch.ID {
			continue
		}

		pis, err := h.repo.PhysicalInterfacesForSwitch(ctx, sw.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to list switch ports")
		}
		for _, pi := range pis {
			if filters.Speed > 0 && pi.Speed != filters.Speed {
				continue
			}
			port, ok, err := h.port(ctx, sw, pi, owners, params)
			if err != nil {
				return nil, err
			}
			if ok {
				result.Ports = append(result.Ports, port)
			}
		}
	}

	sort.SliceStable(result.Ports, func(i, j int) bool {
		if result.Ports[i].Switch != result.Ports[j].Switch {
			return result.Ports[i].Switch < result.Ports[j].Switch
		}
		return result.Ports[i].Port < result.Ports[j].Port
	})

	result.Summary = SwitchConfigurationSummary{Speed: filters.Speed, Ports: len(result.Ports)}
	if filters.Switch != nil {
		result.Summary.Switch = filters.Switch.Name
	}
	if filters.Infrastructure != nil {
		result.Summary.Infrastructure = filters.Infrastructure.Name
	}
	return result, nil
}

// port builds the row for pi; ok is false for ports without an owner.
func (h *SwitchConfigurationHandler) port(
	ctx context.Context,
	sw entities.Switch,
	pi entities.PhysicalInterface,
	owners map[int]entities.Customer,
	params vo.GraphParams,
) (SwitchPortDTO, bool, error) {
	vi, err := h.repo.VirtualInterface(ctx, pi.VirtualInterfaceID)
	if err != nil {
		return SwitchPortDTO{}, false, pkgerrors.Wrap(err, "failed to load virtual interface")
	}
	if vi == nil {
		return SwitchPortDTO{}, false, nil
	}
	owner, ok := owners[vi.CustomerID]
	if !ok {
		return SwitchPortDTO{}, false, nil
	}

	target := targets.PhysicalInterface{Interface: pi, Virtual: *vi, Owner: owner}
	return SwitchPortDTO{
		Switch:   sw.Name,
		Port:     pi.PortName,
		Speed:    pi.Speed,
		Status:   string(pi.Status),
		Customer: owner.Name,
		Graph:    NewGraphLink(target, params),
	}, true, nil
}
