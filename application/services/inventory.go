package services

import (
	"context"
	"errors"
	"sort"

	"ixp-grapher/domain/core/entities"
	"ixp-grapher/domain/core/targets"
	pkgerrors "ixp-grapher/pkg/errors"
)

// MemberInterface is one of a customer's virtual interfaces with its
// graphable ports and VLAN presences.
type MemberInterface struct {
	Virtual        targets.VirtualInterface
	Ports          []targets.PhysicalInterface
	VlanInterfaces []targets.VlanInterface
}

// CustomerVlanInterfaces lists a customer's VLAN interfaces ordered by VLAN
// number.
func (r *TargetResolver) CustomerVlanInterfaces(ctx context.Context, customerID int) ([]targets.VlanInterface, error) {
	owners, err := r.customerIndex(ctx)
	if err != nil {
		return nil, err
	}
	return r.customerVlanInterfaces(ctx, customerID, owners)
}

// CustomerInterfaces lists the graphable virtual interfaces of a customer.
// A virtual interface is graphable when at least one of its ports is
// connected or in quarantine.
func (r *TargetResolver) CustomerInterfaces(ctx context.Context, customer entities.Customer) ([]MemberInterface, error) {
	vis, err := r.repo.VirtualInterfacesForCustomer(ctx, customer.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list virtual interfaces")
	}

	owners := map[int]entities.Customer{customer.ID: customer}
	var out []MemberInterface
	for _, vi := range vis {
		ports, err := r.graphablePorts(ctx, vi)
		if err != nil {
			return nil, err
		}
		if len(ports) == 0 {
			continue
		}

		mi := MemberInterface{Virtual: targets.VirtualInterface{Interface: vi, Owner: customer}}
		for _, pi := range ports {
			mi.Ports = append(mi.Ports, targets.PhysicalInterface{Interface: pi, Virtual: vi, Owner: customer})
		}

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
			mi.VlanInterfaces = append(mi.VlanInterfaces, t)
		}
		sort.SliceStable(mi.VlanInterfaces, func(i, j int) bool {
			return mi.VlanInterfaces[i].Vlan.Number < mi.VlanInterfaces[j].Vlan.Number
		})

		out = append(out, mi)
	}
	return out, nil
}

// InfrastructureMembers lists every virtual interface with a graphable port
// on a switch of the infrastructure, ordered by member name.
func (r *TargetResolver) InfrastructureMembers(ctx context.Context, infraID int) ([]targets.VirtualInterface, error) {
	switches, err := r.repo.Switches(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list switches")
	}
	onInfra := make(map[int]bool)
	for _, s := range switches {
		if s.InfrastructureID == infraID {
			onInfra[s.ID] = true
		}
	}

	customers, err := r.repo.Customers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list customers")
	}

	var out []targets.VirtualInterface
	for _, c := range customers {
		vis, err := r.repo.VirtualInterfacesForCustomer(ctx, c.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to list virtual interfaces")
		}
		for _, vi := range vis {
			ports, err := r.graphablePorts(ctx, vi)
			if err != nil {
				return nil, err
			}
			for _, pi := range ports {
				if onInfra[pi.SwitchID] {
					out = append(out, targets.VirtualInterface{Interface: vi, Owner: c})
					break
				}
			}
		}
	}
	return out, nil
}

// VlanMembers lists the graphable VLAN interfaces on a VLAN ordered by
// member name.
func (r *TargetResolver) VlanMembers(ctx context.Context, vlanID int) ([]targets.VlanInterface, error) {
	owners, err := r.customerIndex(ctx)
	if err != nil {
		return nil, err
	}
	vlis, err := r.repo.VlanInterfacesForVlan(ctx, vlanID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list vlan interfaces")
	}

	var out []targets.VlanInterface
	for _, vli := range vlis {
		vi, err := r.repo.VirtualInterface(ctx, vli.VirtualInterfaceID)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to load virtual interface")
		}
		if vi == nil {
			continue
		}
		ports, err := r.graphablePorts(ctx, *vi)
		if err != nil {
			return nil, err
		}
		if len(ports) == 0 {
			continue
		}
		t, err := r.completeVlanInterface(ctx, vli, owners)
		if err != nil {
			if errors.Is(err, pkgerrors.ErrTargetNotFound) {
				continue
			}
			return nil, err
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

func (r *TargetResolver) graphablePorts(ctx context.Context, vi entities.VirtualInterface) ([]entities.PhysicalInterface, error) {
	pis, err := r.repo.PhysicalInterfacesForVirtual(ctx, vi.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list physical interfaces")
	}
	var out []entities.PhysicalInterface
	for _, pi := range pis {
		if pi.Graphable() {
			out = append(out, pi)
		}
	}
	return out, nil
}
