package services

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/core/entities"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	pkgerrors "ixp-grapher/pkg/errors"

	"go.uber.org/zap"
)

// ResolveInput is a loosely typed target reference.
type ResolveInput struct {
	Kind  targets.Kind
	RawID string

	// Destination is the destination VLAN interface of a peer pair
	Destination string

	// Side is the core bundle side, a or b
	Side string

	// Protocol is the already normalized protocol, used by latency targets
	Protocol vo.Protocol

	Principal vo.Principal
}

// Option is one entry of a listing selector.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TargetResolver turns target references into GraphTargets that exist and
// are renderable.
type TargetResolver struct {
	repo   ports.ExchangeRepository
	trunks ports.TrunkReader
	logger *zap.Logger
}

// NewTargetResolver creates a resolver
func NewTargetResolver(repo ports.ExchangeRepository, trunks ports.TrunkReader, logger *zap.Logger) *TargetResolver {
	return &TargetResolver{
		repo:   repo,
		trunks: trunks,
		logger: logger,
	}
}

// Resolve maps the input to a concrete target. Listing kinds fall back to
// the first eligible entry; entity kinds fail with TargetNotFound.
func (r *TargetResolver) Resolve(ctx context.Context, in ResolveInput) (targets.GraphTarget, error) {
	switch in.Kind {
	case targets.KindOverall:
		return targets.Overall{}, nil
	case targets.KindInfrastructure:
		return r.resolveInfrastructure(ctx, in.RawID)
	case targets.KindVlan:
		return r.resolveVlan(ctx, in.RawID, in.Principal)
	case targets.KindSwitch:
		return r.resolveSwitch(ctx, in.RawID)
	case targets.KindTrunk:
		return r.resolveTrunk(ctx, in.RawID)
	case targets.KindCustomer:
		return r.resolveCustomer(ctx, in.RawID, in.Principal)
	case targets.KindVirtualInterface:
		return r.resolveVirtualInterface(ctx, in.RawID)
	case targets.KindPhysicalInterface:
		return r.resolvePhysicalInterface(ctx, in.RawID)
	case targets.KindVlanInterface:
		return r.resolveVlanInterface(ctx, in.RawID)
	case targets.KindCoreBundle:
		return r.resolveCoreBundle(ctx, in.RawID, in.Side)
	case targets.KindPeerPair:
		return r.resolvePeerPair(ctx, in)
	case targets.KindLatency:
		return r.resolveLatency(ctx, in.RawID, in.Protocol)
	default:
		return nil, pkgerrors.NewTargetNotFound(string(in.Kind), in.RawID)
	}
}

// Options lists the eligible set of a listing kind in natural order.
func (r *TargetResolver) Options(ctx context.Context, kind targets.Kind) ([]Option, error) {
	var opts []Option
	switch kind {
	case targets.KindInfrastructure:
		infras, err := r.eligibleInfrastructures(ctx)
		if err != nil {
			return nil, err
		}
		for _, i := range infras {
			opts = append(opts, Option{ID: strconv.Itoa(i.ID), Name: i.Name})
		}
	case targets.KindVlan:
		vlans, err := r.eligibleVlans(ctx)
		if err != nil {
			return nil, err
		}
		for _, v := range vlans {
			opts = append(opts, Option{ID: strconv.Itoa(v.ID), Name: v.Name})
		}
	case targets.KindSwitch:
		switches, err := r.eligibleSwitches(ctx)
		if err != nil {
			return nil, err
		}
		for _, s := range switches {
			opts = append(opts, Option{ID: strconv.Itoa(s.ID), Name: s.Name})
		}
	case targets.KindTrunk:
		trunks, err := r.trunks.Trunks(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to load trunks")
		}
		for _, t := range trunks {
			opts = append(opts, Option{ID: t.Name, Name: targets.Trunk{Trunk: t}.Title()})
		}
	}
	return opts, nil
}

func (r *TargetResolver) eligibleInfrastructures(ctx context.Context) ([]entities.Infrastructure, error) {
	infras, err := r.repo.Infrastructures(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list infrastructures")
	}
	sort.SliceStable(infras, func(i, j int) bool { return infras[i].Name < infras[j].Name })
	return infras, nil
}

func (r *TargetResolver) resolveInfrastructure(ctx context.Context, raw string) (targets.GraphTarget, error) {
	infras, err := r.eligibleInfrastructures(ctx)
	if err != nil {
		return nil, err
	}
	if len(infras) == 0 {
		return nil, pkgerrors.NewNoTargetsAvailable("infrastructures")
	}
	if id, ok := parseID(raw); ok {
		for _, i := range infras {
			if i.ID == id {
				return targets.Infrastructure{Infrastructure: i}, nil
			}
		}
	}
	return targets.Infrastructure{Infrastructure: infras[0]}, nil
}

// eligibleVlans are the publicly graphable peering VLANs, whoever asks.
func (r *TargetResolver) eligibleVlans(ctx context.Context) ([]entities.Vlan, error) {
	all, err := r.repo.Vlans(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list vlans")
	}
	vlans := make([]entities.Vlan, 0, len(all))
	for _, v := range all {
		if v.PubliclyGraphable() {
			vlans = append(vlans, v)
		}
	}
	sort.SliceStable(vlans, func(i, j int) bool { return vlans[i].Name < vlans[j].Name })
	return vlans, nil
}

// resolveVlan falls back to the first eligible VLAN. Superusers may also
// name a VLAN outside that set explicitly.
func (r *TargetResolver) resolveVlan(ctx context.Context, raw string, principal vo.Principal) (targets.GraphTarget, error) {
	id, explicit := parseID(raw)
	if explicit && principal.IsSuperUser() {
		v, err := r.repo.Vlan(ctx, id)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to load vlan")
		}
		if v != nil {
			return targets.Vlan{Vlan: *v}, nil
		}
	}

	vlans, err := r.eligibleVlans(ctx)
	if err != nil {
		return nil, err
	}
	if len(vlans) == 0 {
		return nil, pkgerrors.NewNoTargetsAvailable("vlans")
	}
	if explicit {
		for _, v := range vlans {
			if v.ID == id {
				return targets.Vlan{Vlan: v}, nil
			}
		}
	}
	return targets.Vlan{Vlan: vlans[0]}, nil
}

func (r *TargetResolver) eligibleSwitches(ctx context.Context) ([]entities.Switch, error) {
	all, err := r.repo.Switches(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list switches")
	}
	switches := make([]entities.Switch, 0, len(all))
	for _, s := range all {
		if s.Active {
			switches = append(switches, s)
		}
	}
	sort.SliceStable(switches, func(i, j int) bool { return switches[i].Name < switches[j].Name })
	return switches, nil
}

func (r *TargetResolver) resolveSwitch(ctx context.Context, raw string) (targets.GraphTarget, error) {
	switches, err := r.eligibleSwitches(ctx)
	if err != nil {
		return nil, err
	}
	if len(switches) == 0 {
		return nil, pkgerrors.NewNoTargetsAvailable("switches")
	}
	if id, ok := parseID(raw); ok {
		for _, s := range switches {
			if s.ID == id {
				return targets.Switch{Switch: s}, nil
			}
		}
	}
	return targets.Switch{Switch: switches[0]}, nil
}

func (r *TargetResolver) resolveTrunk(ctx context.Context, raw string) (targets.GraphTarget, error) {
	trunks, err := r.trunks.Trunks(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load trunks")
	}
	if len(trunks) == 0 {
		return nil, pkgerrors.NewNoTargetsAvailable("trunks")
	}
	name := strings.TrimSpace(raw)
	for _, t := range trunks {
		if t.Name == name {
			return targets.Trunk{Trunk: t}, nil
		}
	}
	return targets.Trunk{Trunk: trunks[0]}, nil
}

func (r *TargetResolver) resolveCustomer(ctx context.Context, raw string, principal vo.Principal) (targets.GraphTarget, error) {
	id, ok := parseID(raw)
	if !ok && strings.TrimSpace(raw) == "" && principal.CustomerID > 0 {
		id, ok = principal.CustomerID, true
	}
	if !ok {
		return nil, pkgerrors.NewTargetNotFound("customer", raw)
	}
	c, err := r.customer(ctx, id)
	if err != nil {
		return nil, err
	}
	return targets.Customer{Customer: *c}, nil
}

func (r *TargetResolver) resolveVirtualInterface(ctx context.Context, raw string) (targets.GraphTarget, error) {
	id, ok := parseID(raw)
	if !ok {
		return nil, pkgerrors.NewTargetNotFound("virtual interface", raw)
	}
	vi, err := r.repo.VirtualInterface(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load virtual interface")
	}
	if vi == nil {
		return nil, pkgerrors.NewTargetNotFound("virtual interface", raw)
	}
	owner, err := r.customer(ctx, vi.CustomerID)
	if err != nil {
		return nil, err
	}
	return targets.VirtualInterface{Interface: *vi, Owner: *owner}, nil
}

func (r *TargetResolver) resolvePhysicalInterface(ctx context.Context, raw string) (targets.GraphTarget, error) {
	id, ok := parseID(raw)
	if !ok {
		return nil, pkgerrors.NewTargetNotFound("physical interface", raw)
	}
	pi, err := r.repo.PhysicalInterface(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load physical interface")
	}
	if pi == nil {
		return nil, pkgerrors.NewTargetNotFound("physical interface", raw)
	}
	vi, err := r.repo.VirtualInterface(ctx, pi.VirtualInterfaceID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load virtual interface")
	}
	if vi == nil {
		return nil, pkgerrors.NewTargetNotFound("physical interface", raw)
	}
	owner, err := r.customer(ctx, vi.CustomerID)
	if err != nil {
		return nil, err
	}
	return targets.PhysicalInterface{Interface: *pi, Virtual: *vi, Owner: *owner}, nil
}

func (r *TargetResolver) resolveVlanInterface(ctx context.Context, raw string) (targets.GraphTarget, error) {
	id, ok := parseID(raw)
	if !ok {
		return nil, pkgerrors.NewTargetNotFound("vlan interface", raw)
	}
	return r.vlanInterface(ctx, id)
}

// vlanInterface loads a VLAN interface with its VLAN and owner.
func (r *TargetResolver) vlanInterface(ctx context.Context, id int) (targets.VlanInterface, error) {
	vli, err := r.repo.VlanInterface(ctx, id)
	if err != nil {
		return targets.VlanInterface{}, pkgerrors.Wrap(err, "failed to load vlan interface")
	}
	if vli == nil {
		return targets.VlanInterface{}, pkgerrors.NewTargetNotFound("vlan interface", strconv.Itoa(id))
	}
	return r.completeVlanInterface(ctx, *vli, nil)
}

// completeVlanInterface attaches VLAN and owner. owners may be nil.
func (r *TargetResolver) completeVlanInterface(ctx context.Context, vli entities.VlanInterface, owners map[int]entities.Customer) (targets.VlanInterface, error) {
	notFound := pkgerrors.NewTargetNotFound("vlan interface", strconv.Itoa(vli.ID))

	vlan, err := r.repo.Vlan(ctx, vli.VlanID)
	if err != nil {
		return targets.VlanInterface{}, pkgerrors.Wrap(err, "failed to load vlan")
	}
	if vlan == nil {
		return targets.VlanInterface{}, notFound
	}
	vi, err := r.repo.VirtualInterface(ctx, vli.VirtualInterfaceID)
	if err != nil {
		return targets.VlanInterface{}, pkgerrors.Wrap(err, "failed to load virtual interface")
	}
	if vi == nil {
		return targets.VlanInterface{}, notFound
	}
	if owner, ok := owners[vi.CustomerID]; ok {
		return targets.VlanInterface{Interface: vli, Vlan: *vlan, Owner: owner}, nil
	}
	owner, err := r.customer(ctx, vi.CustomerID)
	if err != nil {
		return targets.VlanInterface{}, err
	}
	return targets.VlanInterface{Interface: vli, Vlan: *vlan, Owner: *owner}, nil
}

func (r *TargetResolver) resolveCoreBundle(ctx context.Context, raw, side string) (targets.GraphTarget, error) {
	id, ok := parseID(raw)
	if !ok {
		return nil, pkgerrors.NewTargetNotFound("core bundle", raw)
	}
	cb, err := r.repo.CoreBundle(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load core bundle")
	}
	if cb == nil || !cb.Enabled {
		return nil, pkgerrors.NewTargetNotFound("core bundle", raw)
	}
	return targets.CoreBundleSide{Bundle: *cb, Side: entities.ParseCoreBundleSide(side)}, nil
}

func (r *TargetResolver) resolveLatency(ctx context.Context, raw string, protocol vo.Protocol) (targets.GraphTarget, error) {
	id, ok := parseID(raw)
	if !ok {
		return nil, pkgerrors.NewTargetNotFound("vlan interface", raw)
	}
	vli, err := r.vlanInterface(ctx, id)
	if err != nil {
		return nil, err
	}
	if !protocol.IsReal() {
		protocol = vo.ProtocolIPv4
	}
	return targets.Latency{VlanInterface: vli, Protocol: protocol}, nil
}

func (r *TargetResolver) customer(ctx context.Context, id int) (*entities.Customer, error) {
	c, err := r.repo.Customer(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load customer")
	}
	if c == nil {
		return nil, pkgerrors.NewTargetNotFound("customer", strconv.Itoa(id))
	}
	return c, nil
}

func parseID(raw string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
