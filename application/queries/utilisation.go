package queries

import (
	"context"
	"errors"
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

// UtilisationQuery asks for the daily port utilisation report
type UtilisationQuery struct {
	Metric    string       `json:"metric"`
	Day       string       `json:"day"`
	Vlan      string       `json:"vlan"`
	Category  string       `json:"category"`
	Period    string       `json:"period"`
	Strict    bool         `json:"strict"`
	Principal vo.Principal `json:"-"`
}

// Validate validates the query
func (q UtilisationQuery) Validate() error {
	return nil
}

// PortUtilisationDTO is one port of the utilisation report. Utilisation is
// the busier direction as a percentage of the port speed, set only for rate
// metrics on bits.
type PortUtilisationDTO struct {
	CustomerID   int       `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Switch       string    `json:"switch"`
	Port         string    `json:"port"`
	Speed        int       `json:"speed"`
	In           int64     `json:"in"`
	Out          int64     `json:"out"`
	Utilisation  float64   `json:"utilisation,omitempty"`
	Graph        GraphLink `json:"graph"`
}

// UtilisationResult is the utilisation view. Day is empty when no summaries
// exist yet.
type UtilisationResult struct {
	Metric     vo.TrafficMetric     `json:"metric"`
	Metrics    []ChoiceDTO          `json:"metrics"`
	Day        string               `json:"day,omitempty"`
	Days       []string             `json:"days"`
	Params     vo.GraphParams       `json:"params"`
	Categories []ChoiceDTO          `json:"categories"`
	Vlan       *entities.Vlan       `json:"vlan,omitempty"`
	Vlans      []services.Option    `json:"vlans"`
	Ports      []PortUtilisationDTO `json:"ports"`
}

// UtilisationHandler handles the UtilisationQuery
type UtilisationHandler struct {
	graphs *services.GraphService
	repo   ports.ExchangeRepository
	logger *zap.Logger
}

// NewUtilisationHandler creates a new handler instance
func NewUtilisationHandler(graphs *services.GraphService, repo ports.ExchangeRepository, logger *zap.Logger) *UtilisationHandler {
	return &UtilisationHandler{graphs: graphs, repo: repo, logger: logger}
}

// Handle builds the report. It covers every member's ports, so only
// principals authorised for all customers may see it.
func (h *UtilisationHandler) Handle(ctx context.Context, query UtilisationQuery) (*UtilisationResult, error) {
	if !h.graphs.AuthorizedForAllCustomers(query.Principal) {
		h.logger.Info("Utilisation report refused",
			zap.String("user_id", query.Principal.UserID),
			zap.String("cause", "not_authorized"))
		return nil, pkgerrors.NewAuthorizationDenied(domainservices.ReasonCustomer)
	}

	metric, err := parseMetric(query.Metric, vo.MetricMax, query.Strict)
	if err != nil {
		return nil, err
	}
	if query.Strict {
		if err := vo.ValidateStrict(query.Category, "", query.Period, ""); err != nil {
			return nil, err
		}
	}

	params := vo.Normalize(query.Category, "", query.Period, "",
		targets.NormalizeContext(targets.KindPhysicalInterface, query.Principal, vo.PeriodMonth))

	result := &UtilisationResult{
		Metric:     metric,
		Metrics:    metricChoices(),
		Params:     params,
		Categories: categoryChoices(targets.KindPhysicalInterface, query.Principal),
		Ports:      []PortUtilisationDTO{},
	}

	if result.Vlans, err = publicVlansByNumber(ctx, h.repo); err != nil {
		return nil, err
	}
	if result.Vlan, err = h.vlanFilter(ctx, query.Vlan, query.Strict); err != nil {
		return nil, err
	}

	if result.Days, err = h.repo.PortTrafficDays(ctx); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list traffic days")
	}
	if result.Days == nil {
		result.Days = []string{}
	}
	if len(result.Days) == 0 {
		return result, nil
	}
	result.Day = result.Days[0]
	requested := strings.TrimSpace(query.Day)
	for _, d := range result.Days {
		if d == requested {
			result.Day = d
			break
		}
	}

	if result.Ports, err = h.ports(ctx, result.Day, metric, params, result.Vlan); err != nil {
		return nil, err
	}
	return result, nil
}

// vlanFilter returns the public VLAN named by raw, or nil for no filter.
func (h *UtilisationHandler) vlanFilter(ctx context.Context, raw string, strict bool) (*entities.Vlan, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(raw)
	var vlan *entities.Vlan
	if err == nil {
		if vlan, err = h.repo.Vlan(ctx, id); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to load vlan")
		}
	}
	if vlan == nil || !vlan.PubliclyGraphable() {
		if strict {
			return nil, pkgerrors.NewInvalidParameter("vlan", raw)
		}
		return nil, nil
	}
	return vlan, nil
}

func (h *UtilisationHandler) ports(
	ctx context.Context,
	day string,
	metric vo.TrafficMetric,
	params vo.GraphParams,
	vlan *entities.Vlan,
) ([]PortUtilisationDTO, error) {
	summaries, err := h.repo.PortTraffic(ctx, day, params.Category)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load port traffic")
	}

	resolver := h.graphs.Resolver()
	switchNames := map[int]string{}
	linkParams := vo.GraphParams{Category: params.Category, Protocol: vo.ProtocolAll, Period: params.Period, Type: vo.OutputImage}

	out := []PortUtilisationDTO{}
	for _, s := range summaries {
		t, err := resolver.Resolve(ctx, services.ResolveInput{
			Kind:  targets.KindPhysicalInterface,
			RawID: strconv.Itoa(s.PhysicalInterfaceID),
		})
		if errors.Is(err, pkgerrors.ErrTargetNotFound) {
			h.logger.Debug("Skipping traffic of unknown port", zap.Int("physical_interface_id", s.PhysicalInterfaceID))
			continue
		}
		if err != nil {
			return nil, err
		}
		port := t.(targets.PhysicalInterface)

		if vlan != nil {
			on, err := h.onVlan(ctx, port.Virtual.ID, vlan.ID)
			if err != nil {
				return nil, err
			}
			if !on {
				continue
			}
		}

		name, ok := switchNames[port.Interface.SwitchID]
		if !ok {
			sw, err := h.repo.Switch(ctx, port.Interface.SwitchID)
			if err != nil {
				return nil, pkgerrors.Wrap(err, "failed to load switch")
			}
			if sw != nil {
				name = sw.Name
			}
			switchNames[port.Interface.SwitchID] = name
		}

		in, outValue := s.Periods[params.Period].Pick(metric)
		row := PortUtilisationDTO{
			CustomerID:   port.Owner.ID,
			CustomerName: port.Owner.Name,
			Switch:       name,
			Port:         port.Interface.PortName,
			Speed:        port.Interface.Speed,
			In:           in,
			Out:          outValue,
			Graph:        NewGraphLink(port, linkParams),
		}
		if metric.IsRate() && params.Category == vo.CategoryBits && port.Interface.Speed > 0 {
			// speed is in Mbit/s
			row.Utilisation = float64(max(in, outValue)) * 100 / (float64(port.Interface.Speed) * 1e6)
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Utilisation != out[j].Utilisation {
			return out[i].Utilisation > out[j].Utilisation
		}
		if a, b := max(out[i].In, out[i].Out), max(out[j].In, out[j].Out); a != b {
			return a > b
		}
		return out[i].CustomerName < out[j].CustomerName
	})
	return out, nil
}

func (h *UtilisationHandler) onVlan(ctx context.Context, virtualInterfaceID, vlanID int) (bool, error) {
	vlis, err := h.repo.VlanInterfacesForVirtual(ctx, virtualInterfaceID)
	if err != nil {
		return false, pkgerrors.Wrap(err, "failed to list vlan interfaces")
	}
	for _, vli := range vlis {
		if vli.VlanID == vlanID {
			return true, nil
		}
	}
	return false, nil
}

// parseMetric falls back to def unless strict is set and raw is unknown.
func parseMetric(raw string, def vo.TrafficMetric, strict bool) (vo.TrafficMetric, error) {
	m, ok := vo.ParseTrafficMetric(raw)
	if ok {
		return m, nil
	}
	if strict && strings.TrimSpace(raw) != "" {
		return "", pkgerrors.NewInvalidParameter("metric", raw)
	}
	return def, nil
}

func metricChoices() []ChoiceDTO {
	out := make([]ChoiceDTO, 0, len(vo.TrafficMetrics))
	for _, m := range vo.TrafficMetrics {
		out = append(out, ChoiceDTO{Value: string(m), Description: m.Description()})
	}
	return out
}

// publicVlansByNumber lists the publicly graphable VLANs by number.
func publicVlansByNumber(ctx context.Context, repo ports.VlanReader) ([]services.Option, error) {
	vlans, err := repo.Vlans(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list vlans")
	}
	sort.SliceStable(vlans, func(i, j int) bool { return vlans[i].Number < vlans[j].Number })

	opts := []services.Option{}
	for _, v := range vlans {
		if v.PubliclyGraphable() {
			opts = append(opts, services.Option{ID: strconv.Itoa(v.ID), Name: v.Name})
		}
	}
	return opts, nil
}
