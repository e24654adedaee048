package ports

import (
	"context"

	"ixp-grapher/domain/core/entities"
	vo "ixp-grapher/domain/core/valueobjects"
)

// The readers below are read-only lookups into the exchange's entity store.
// Single-entity lookups return a nil entity and a nil error when no such
// entity exists; errors are reserved for store failures.

// InfrastructureReader reads infrastructures
type InfrastructureReader interface {
	// Infrastructures lists every infrastructure ordered by name
	Infrastructures(ctx context.Context) ([]entities.Infrastructure, error)

	// Infrastructure retrieves an infrastructure by id
	Infrastructure(ctx context.Context, id int) (*entities.Infrastructure, error)
}

// VlanReader reads VLANs
type VlanReader interface {
	// Vlans lists every VLAN ordered by name
	Vlans(ctx context.Context) ([]entities.Vlan, error)

	// Vlan retrieves a VLAN by id
	Vlan(ctx context.Context, id int) (*entities.Vlan, error)
}

// SwitchReader reads switches
type SwitchReader interface {
	// Switches lists every switch, active or not, ordered by name
	Switches(ctx context.Context) ([]entities.Switch, error)

	// Switch retrieves a switch by id
	Switch(ctx context.Context, id int) (*entities.Switch, error)
}

// CustomerReader reads customers
type CustomerReader interface {
	// Customers lists every customer ordered by name
	Customers(ctx context.Context) ([]entities.Customer, error)

	// Customer retrieves a customer by id
	Customer(ctx context.Context, id int) (*entities.Customer, error)
}

// InterfaceReader reads the three interface levels
type InterfaceReader interface {
	VirtualInterface(ctx context.Context, id int) (*entities.VirtualInterface, error)

	// VirtualInterfacesForCustomer lists a customer's virtual interfaces by id
	VirtualInterfacesForCustomer(ctx context.Context, customerID int) ([]entities.VirtualInterface, error)

	PhysicalInterface(ctx context.Context, id int) (*entities.PhysicalInterface, error)

	// PhysicalInterfacesForVirtual lists the ports of a virtual interface by id
	PhysicalInterfacesForVirtual(ctx context.Context, virtualInterfaceID int) ([]entities.PhysicalInterface, error)

	// PhysicalInterfacesForSwitch lists the ports of a switch by id
	PhysicalInterfacesForSwitch(ctx context.Context, switchID int) ([]entities.PhysicalInterface, error)

	VlanInterface(ctx context.Context, id int) (*entities.VlanInterface, error)

	// VlanInterfacesForVirtual lists the VLAN interfaces of a virtual interface by id
	VlanInterfacesForVirtual(ctx context.Context, virtualInterfaceID int) ([]entities.VlanInterface, error)

	// VlanInterfacesForVlan lists every VLAN interface on a VLAN by id
	VlanInterfacesForVlan(ctx context.Context, vlanID int) ([]entities.VlanInterface, error)
}

// CoreBundleReader reads core bundles
type CoreBundleReader interface {
	// CoreBundles lists every core bundle by id
	CoreBundles(ctx context.Context) ([]entities.CoreBundle, error)

	// CoreBundle retrieves a core bundle by id
	CoreBundle(ctx context.Context, id int) (*entities.CoreBundle, error)
}

// TrafficReader reads the daily traffic summaries
type TrafficReader interface {
	// PortTrafficDays lists the days with port summaries, newest first
	PortTrafficDays(ctx context.Context) ([]string, error)

	// PortTraffic lists one day's port summaries for a category
	PortTraffic(ctx context.Context, day string, category vo.Category) ([]entities.PortTraffic, error)

	// MemberTraffic lists one day's customer summaries for a category
	MemberTraffic(ctx context.Context, day string, category vo.Category) ([]entities.MemberTraffic, error)
}

// ExchangeRepository is the full read surface the engine needs.
type ExchangeRepository interface {
	InfrastructureReader
	VlanReader
	SwitchReader
	CustomerReader
	InterfaceReader
	CoreBundleReader
	TrafficReader
}

// TrunkReader returns the configured trunks in configured order.
type TrunkReader interface {
	Trunks(ctx context.Context) ([]entities.Trunk, error)
}

// SessionStore keeps per-client sticky selections.
type SessionStore interface {
	Get(key string) (string, bool)
	Put(key, value string)
	Remove(key string)
}
