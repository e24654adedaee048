package services

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"ixp-grapher/domain/core/entities"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	pkgerrors "ixp-grapher/pkg/errors"

	"go.uber.org/zap"
)

// PeerPairInput selects a peer pair from a member's point of view. Zero ids
// mean "pick the default".
type PeerPairInput struct {
	CustomerID    int
	SourceID      int
	DestinationID int
	Principal     vo.Principal
}

// PeerPairSelection is a resolved pair plus the selector contents that
// produced it.
type PeerPairSelection struct {
	Pair targets.PeerPair

	// Sources are the source customer's VLAN interfaces on VLANs the
	// destination customer is also present on
	Sources []targets.VlanInterface

	// Destinations are the other members' VLAN interfaces on the source VLAN
	Destinations []targets.VlanInterface

	// DestinationExplicit is set when the caller named the destination
	DestinationExplicit bool

	// Retargeted is set when the named destination was swapped for the same
	// customer's interface on the source VLAN
	Retargeted bool
}

// ResolvePeerPair picks a source and destination VLAN interface on a common
// VLAN.
func (r *TargetResolver) ResolvePeerPair(ctx context.Context, in PeerPairInput) (*PeerPairSelection, error) {
	customerID := in.CustomerID
	if customerID <= 0 {
		customerID = in.Principal.CustomerID
	}
	if customerID <= 0 {
		return nil, pkgerrors.NewTargetNotFound("customer", "")
	}
	source, err := r.customer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	owners, err := r.customerIndex(ctx)
	if err != nil {
		return nil, err
	}

	sources, err := r.customerVlanInterfaces(ctx, source.ID, owners)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, pkgerrors.NewNoTargetsAvailable("vlan interfaces for " + source.Name)
	}

	src := sources[0]
	for _, s := range sources {
		if s.Interface.ID == in.SourceID {
			src = s
			break
		}
	}

	destinations, err := r.peersOnVlan(ctx, src, owners)
	if err != nil {
		return nil, err
	}

	sel := &PeerPairSelection{Destinations: destinations}

	var dst targets.VlanInterface
	if in.DestinationID > 0 {
		sel.DestinationExplicit = true
		dst, sel.Retargeted, err = r.explicitDestination(ctx, src, destinations, in.DestinationID, owners)
		if err != nil {
			return nil, err
		}
	} else {
		if len(destinations) == 0 {
			return nil, pkgerrors.NewNoTargetsAvailable("peers on " + src.Vlan.Name)
		}
		dst = destinations[0]
	}

	dstInterfaces, err := r.customerVlanInterfaces(ctx, dst.Owner.ID, owners)
	if err != nil {
		return nil, err
	}
	onVlan := make(map[int]bool, len(dstInterfaces))
	for _, d := range dstInterfaces {
		onVlan[d.Interface.VlanID] = true
	}
	for _, s := range sources {
		if onVlan[s.Interface.VlanID] {
			sel.Sources = append(sel.Sources, s)
		}
	}

	sel.Pair = targets.PeerPair{Source: src, Destination: dst}

	r.logger.Debug("Resolved peer pair",
		zap.String("source", src.Identity()),
		zap.String("destination", dst.Identity()),
		zap.Bool("retargeted", sel.Retargeted))

	return sel, nil
}

// explicitDestination honours a named destination, retargeting it onto the
// source VLAN when the same customer is present there.
func (r *TargetResolver) explicitDestination(
	ctx context.Context,
	src targets.VlanInterface,
	destinations []targets.VlanInterface,
	destinationID int,
	owners map[int]entities.Customer,
) (targets.VlanInterface, bool, error) {
	for _, d := range destinations {
		if d.Interface.ID == destinationID {
			return d, false, nil
		}
	}

	named, err := r.repo.VlanInterface(ctx, destinationID)
	if err != nil {
		return targets.VlanInterface{}, false, pkgerrors.Wrap(err, "failed to load vlan interface")
	}
	if named == nil {
		return targets.VlanInterface{}, false, pkgerrors.NewTargetNotFound("vlan interface", strconv.Itoa(destinationID))
	}
	dst, err := r.completeVlanInterface(ctx, *named, owners)
	if err != nil {
		return targets.VlanInterface{}, false, err
	}
	if dst.Owner.ID == src.Owner.ID {
		return targets.VlanInterface{}, false, pkgerrors.NewNoCommonVlan("source and destination belong to the same member")
	}

	candidates, err := r.customerVlanInterfaces(ctx, dst.Owner.ID, owners)
	if err != nil {
		return targets.VlanInterface{}, false, err
	}
	for _, c := range candidates {
		if c.Interface.VlanID == src.Interface.VlanID {
			return c, true, nil
		}
	}

	return targets.VlanInterface{}, false, pkgerrors.NewNoCommonVlan(
		dst.Owner.Name + " is not present on " + src.Vlan.Name)
}

// customerVlanInterfaces lists a customer's VLAN interfaces ordered by VLAN
// number then id.
func (r *TargetResolver) customerVlanInterfaces(ctx context.Context, customerID int, owners map[int]entities.Customer) ([]targets.VlanInterface, error) {
	vis, err := r.repo.VirtualInterfacesForCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list virtual interfaces")
	}

	var out []targets.VlanInterface
	for _, vi := range vis {
		vlis, err := r.repo.VlanInterfacesForVirtual(ctx, vi.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to list vlan interfaces")
		}
		for _, vli := range vlis {
			t, err := r.completeVlanInterface(ctx, vli, owners)
			if err != nil {
				if errors.Is(err, pkgerrors.ErrTargetNotFound) {
					continue
				}
				return nil, err
			}
			out = append(out, t)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Vlan.Number != out[j].Vlan.Number {
			return out[i].Vlan.Number < out[j].Vlan.Number
		}
		return out[i].Interface.ID < out[j].Interface.ID
	})
	return out, nil
}

// peersOnVlan lists other members' VLAN interfaces on the source's VLAN,
// ordered by member name then id.
func (r *TargetResolver) peersOnVlan(ctx context.Context, src targets.VlanInterface, owners map[int]entities.Customer) ([]targets.VlanInterface, error) {
	vlis, err := r.repo.VlanInterfacesForVlan(ctx, src.Interface.VlanID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list vlan interfaces")
	}

	var out []targets.VlanInterface
	for _, vli := range vlis {
		if vli.ID == src.Interface.ID {
			continue
		}
		t, err := r.completeVlanInterface(ctx, vli, owners)
		if err != nil {
			if errors.Is(err, pkgerrors.ErrTargetNotFound) {
				continue
			}
			return nil, err
		}
		if t.Owner.ID == src.Owner.ID {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Owner.Name != out[j].Owner.Name {
			return out[i].Owner.Name < out[j].Owner.Name
		}
		return out[i].Interface.ID < out[j].Interface.ID
	})
	return out, nil
}

func (r *TargetResolver) customerIndex(ctx context.Context) (map[int]entities.Customer, error) {
	customers, err := r.repo.Customers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list customers")
	}
	index := make(map[int]entities.Customer, len(customers))
	for _, c := range customers {
		index[c.ID] = c
	}
	return index, nil
}

// resolvePeerPair resolves the graph form of a peer pair: the source is the
// named VLAN interface and the destination follows the selection rules.
func (r *TargetResolver) resolvePeerPair(ctx context.Context, in ResolveInput) (targets.GraphTarget, error) {
	srcID, ok := parseID(in.RawID)
	if !ok {
		return nil, pkgerrors.NewTargetNotFound("vlan interface", in.RawID)
	}
	src, err := r.vlanInterface(ctx, srcID)
	if err != nil {
		return nil, err
	}
	dstID, _ := parseID(in.Destination)

	sel, err := r.ResolvePeerPair(ctx, PeerPairInput{
		CustomerID:    src.Owner.ID,
		SourceID:      src.Interface.ID,
		DestinationID: dstID,
		Principal:     in.Principal,
	})
	if err != nil {
		return nil, err
	}
	return sel.Pair, nil
}

// CheckPeerPairProtocol rejects a protocol the source has not enabled on a
// public VLAN.
func CheckPeerPairProtocol(pair targets.PeerPair, protocol vo.Protocol) error {
	if !protocol.IsReal() || pair.Source.Vlan.Private {
		return nil
	}
	if !pair.Source.ProtocolEnabled(protocol) {
		return pkgerrors.NewCapabilityNotEnabled(protocol.Description() + " is not enabled on this interface").
			WithDetail("customer_id", pair.Source.Owner.ID)
	}
	return nil
}
