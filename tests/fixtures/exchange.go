package fixtures

import (
	"ixp-grapher/domain/core/entities"
	vo "ixp-grapher/domain/core/valueobjects"
	"ixp-grapher/infrastructure/persistence/memory"
)

// Well known ids of the default exchange.
const (
	InfraPrimary = 1
	InfraBackup  = 2

	VlanPeering  = 10
	VlanPeering2 = 20
	VlanPrivate  = 30

	SwitchCore     = 1
	SwitchEdge     = 2
	SwitchRetired  = 3
	CustomerX      = 1
	CustomerY      = 2
	CustomerZ      = 3
	CustomerNoVlan = 4

	// VLAN interfaces
	VliX10 = 11
	VliY20 = 21
	VliY10 = 22
	VliZ10 = 31

	CoreBundleExchange = 1
	CoreBundleDisabled = 2
	CoreBundleCustomer = 3
)

// ExchangeBuilder builds exchange inventories for tests. The default is a
// small two-VLAN exchange with three peering members.
type ExchangeBuilder struct {
	snap memory.Snapshot
}

func NewExchangeBuilder() *ExchangeBuilder {
	return &ExchangeBuilder{snap: memory.Snapshot{
		Infrastructures: []entities.Infrastructure{
			{ID: InfraPrimary, Name: "Primary LAN", Shortname: "lan1", IsPrimary: true},
			{ID: InfraBackup, Name: "Secondary LAN", Shortname: "lan2"},
		},
		Vlans: []entities.Vlan{
			{ID: VlanPeering2, Name: "Peering LAN 2", Number: 20, InfrastructureID: InfraBackup, PeeringMatrix: true, PeeringManager: true},
			{ID: VlanPeering, Name: "Peering LAN", Number: 10, InfrastructureID: InfraPrimary, PeeringMatrix: true, PeeringManager: true},
			{ID: VlanPrivate, Name: "Private Interconnect", Number: 30, InfrastructureID: InfraPrimary, Private: true},
		},
		Switches: []entities.Switch{
			{ID: SwitchCore, Name: "swi1-core", InfrastructureID: InfraPrimary, Active: true},
			{ID: SwitchEdge, Name: "swi2-edge", InfrastructureID: InfraBackup, Active: true},
			{ID: SwitchRetired, Name: "swi0-retired", InfrastructureID: InfraPrimary, Active: false},
		},
		Customers: []entities.Customer{
			{ID: CustomerX, Name: "X Networks", Shortname: "xnet", Type: entities.CustomerTypeFull},
			{ID: CustomerY, Name: "Y Telecom", Shortname: "ytel", Type: entities.CustomerTypeFull},
			{ID: CustomerZ, Name: "Z Hosting", Shortname: "zhost", Type: entities.CustomerTypeFull},
			{ID: CustomerNoVlan, Name: "Associate Co", Shortname: "assoc", Type: entities.CustomerTypeAssociate},
		},
		VirtualInterfaces: []entities.VirtualInterface{
			{ID: 100, CustomerID: CustomerX, Name: "ae100"},
			{ID: 200, CustomerID: CustomerY, Name: "ae200"},
			{ID: 201, CustomerID: CustomerY, Name: "ae201"},
			{ID: 300, CustomerID: CustomerZ, Name: "ae300"},
		},
		PhysicalInterfaces: []entities.PhysicalInterface{
			{ID: 1000, VirtualInterfaceID: 100, SwitchID: SwitchCore, PortName: "xe-0/0/1", Speed: 10000, Status: entities.PhysicalInterfaceConnected},
			{ID: 2000, VirtualInterfaceID: 200, SwitchID: SwitchEdge, PortName: "et-0/0/1", Speed: 100000, Status: entities.PhysicalInterfaceConnected},
			{ID: 2010, VirtualInterfaceID: 201, SwitchID: SwitchCore, PortName: "xe-0/0/2", Speed: 10000, Status: entities.PhysicalInterfaceConnected},
			{ID: 3000, VirtualInterfaceID: 300, SwitchID: SwitchCore, PortName: "ge-0/0/3", Speed: 1000, Status: entities.PhysicalInterfaceQuarantine},
		},
		VlanInterfaces: []entities.VlanInterface{
			{ID: VliX10, VirtualInterfaceID: 100, VlanID: VlanPeering, IPv4Address: "192.0.2.11", IPv6Address: "2001:db8::11",
				IPv4Enabled: true, IPv6Enabled: true, IPv4CanPing: true},
			{ID: VliY20, VirtualInterfaceID: 200, VlanID: VlanPeering2, IPv4Address: "198.51.100.21",
				IPv4Enabled: true, IPv4CanPing: true},
			{ID: VliY10, VirtualInterfaceID: 201, VlanID: VlanPeering, IPv4Address: "192.0.2.22",
				IPv4Enabled: true, IPv4CanPing: true},
			{ID: VliZ10, VirtualInterfaceID: 300, VlanID: VlanPeering, IPv4Address: "192.0.2.31", IPv6Address: "2001:db8::31",
				IPv4Enabled: true, IPv6Enabled: true, IPv4CanPing: true, IPv6CanPing: true},
		},
		CoreBundles: []entities.CoreBundle{
			{ID: CoreBundleExchange, Description: "swi1 - swi2", Type: "l2-lag", Enabled: true,
				SideA: entities.CoreBundleEnd{SwitchID: SwitchCore}, SideB: entities.CoreBundleEnd{SwitchID: SwitchEdge}},
			{ID: CoreBundleDisabled, Description: "swi1 - swi0", Type: "l2-lag", Enabled: false,
				SideA: entities.CoreBundleEnd{SwitchID: SwitchCore}, SideB: entities.CoreBundleEnd{SwitchID: SwitchRetired}},
			{ID: CoreBundleCustomer, Description: "X backhaul", Type: "l3-lag", Enabled: true,
				SideA: entities.CoreBundleEnd{SwitchID: SwitchCore},
				SideB: entities.CoreBundleEnd{SwitchID: SwitchEdge, OwnerCustomerID: CustomerX}},
		},
		PortTraffic:   portTraffic(),
		MemberTraffic: memberTraffic(),
	}}
}

// WithoutVlanInterface drops a VLAN interface
func (b *ExchangeBuilder) WithoutVlanInterface(id int) *ExchangeBuilder {
	var kept []entities.VlanInterface
	for _, v := range b.snap.VlanInterfaces {
		if v.ID != id {
			kept = append(kept, v)
		}
	}
	b.snap.VlanInterfaces = kept
	return b
}

func (b *ExchangeBuilder) WithVlanInterface(v entities.VlanInterface) *ExchangeBuilder {
	b.snap.VlanInterfaces = append(b.snap.VlanInterfaces, v)
	return b
}

func (b *ExchangeBuilder) WithVirtualInterface(v entities.VirtualInterface) *ExchangeBuilder {
	b.snap.VirtualInterfaces = append(b.snap.VirtualInterfaces, v)
	return b
}

func (b *ExchangeBuilder) WithVlan(v entities.Vlan) *ExchangeBuilder {
	b.snap.Vlans = append(b.snap.Vlans, v)
	return b
}

func (b *ExchangeBuilder) WithCustomer(c entities.Customer) *ExchangeBuilder {
	b.snap.Customers = append(b.snap.Customers, c)
	return b
}

// WithoutSwitches removes every switch
func (b *ExchangeBuilder) WithoutSwitches() *ExchangeBuilder {
	b.snap.Switches = nil
	return b
}

// WithoutTraffic removes every daily traffic summary
func (b *ExchangeBuilder) WithoutTraffic() *ExchangeBuilder {
	b.snap.PortTraffic = nil
	b.snap.MemberTraffic = nil
	return b
}

// WithoutVlans removes every VLAN
func (b *ExchangeBuilder) WithoutVlans() *ExchangeBuilder {
	b.snap.Vlans = nil
	return b
}

func (b *ExchangeBuilder) Build() memory.Snapshot {
	return b.snap
}

func (b *ExchangeBuilder) Repository() *memory.ExchangeRepository {
	return memory.NewExchangeRepository(b.snap)
}

// Trunks returns the default trunk configuration.
func Trunks() *memory.StaticTrunks {
	return memory.NewStaticTrunks([]entities.Trunk{
		{Name: "core-ab", Title: "Core A to B"},
		{Name: "core-bc", Title: "Core B to C"},
	})
}

// Principals
var (
	Anonymous = vo.Anonymous()
	Superuser = vo.Principal{UserID: "admin", Privilege: vo.PrivilegeSuperUser}
)

// Member returns a customer user of customerID.
func Member(customerID int) vo.Principal {
	return vo.Principal{UserID: "member-user", CustomerID: customerID, Privilege: vo.PrivilegeCustUser}
}
