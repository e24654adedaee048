package entities

import "strings"

// Infrastructure is a switching fabric of the exchange.
type Infrastructure struct {
	ID        int    `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	Shortname string `yaml:"shortname" json:"shortname"`
	IsPrimary bool   `yaml:"primary" json:"is_primary"`
}

// Vlan is a layer 2 segment members peer on.
type Vlan struct {
	ID               int    `yaml:"id" json:"id"`
	Name             string `yaml:"name" json:"name"`
	Number           int    `yaml:"number" json:"number"`
	InfrastructureID int    `yaml:"infrastructure" json:"infrastructure_id"`
	Private          bool   `yaml:"private" json:"private"`
	PeeringMatrix    bool   `yaml:"peering_matrix" json:"peering_matrix"`
	PeeringManager   bool   `yaml:"peering_manager" json:"peering_manager"`
}

// PubliclyGraphable reports whether anyone may list and view the VLAN's
// aggregate graphs.
func (v Vlan) PubliclyGraphable() bool {
	return !v.Private && v.PeeringMatrix && v.PeeringManager
}

// Switch is a switch of an infrastructure.
type Switch struct {
	ID               int    `yaml:"id" json:"id"`
	Name             string `yaml:"name" json:"name"`
	InfrastructureID int    `yaml:"infrastructure" json:"infrastructure_id"`
	Active           bool   `yaml:"active" json:"active"`
}

// CustomerType classifies the membership of a customer.
type CustomerType string

const (
	CustomerTypeFull      CustomerType = "full"
	CustomerTypeAssociate CustomerType = "associate"
	CustomerTypeProbono   CustomerType = "probono"
	CustomerTypeInternal  CustomerType = "internal"
)

// Customer is an exchange member.
type Customer struct {
	ID        int          `yaml:"id" json:"id"`
	Name      string       `yaml:"name" json:"name"`
	Shortname string       `yaml:"shortname" json:"shortname"`
	Type      CustomerType `yaml:"type" json:"type"`
}

// IsAssociate reports whether the customer has no ports of its own.
func (c Customer) IsAssociate() bool {
	return c.Type == CustomerTypeAssociate
}

// VirtualInterface is a (possibly aggregated) customer port.
type VirtualInterface struct {
	ID         int    `yaml:"id" json:"id"`
	CustomerID int    `yaml:"customer" json:"customer_id"`
	Name       string `yaml:"name" json:"name"`
}

// PhysicalInterfaceStatus is the operational state of a port.
type PhysicalInterfaceStatus string

const (
	PhysicalInterfaceConnected     PhysicalInterfaceStatus = "connected"
	PhysicalInterfaceQuarantine    PhysicalInterfaceStatus = "quarantine"
	PhysicalInterfaceDisabled      PhysicalInterfaceStatus = "disabled"
	PhysicalInterfaceNotConnected  PhysicalInterfaceStatus = "notconnected"
	PhysicalInterfaceAwaitingXConn PhysicalInterfaceStatus = "awaitingxconnect"
)

// PhysicalInterface is a switch port belonging to a virtual interface.
type PhysicalInterface struct {
	ID                 int                     `yaml:"id" json:"id"`
	VirtualInterfaceID int                     `yaml:"virtual_interface" json:"virtual_interface_id"`
	SwitchID           int                     `yaml:"switch" json:"switch_id"`
	PortName           string                  `yaml:"port" json:"port"`
	Speed              int                     `yaml:"speed" json:"speed"`
	Status             PhysicalInterfaceStatus `yaml:"status" json:"status"`
}

// Graphable reports whether the port carries traffic worth graphing.
func (p PhysicalInterface) Graphable() bool {
	return p.Status == PhysicalInterfaceConnected || p.Status == PhysicalInterfaceQuarantine
}

// VlanInterface is a virtual interface's presence on one VLAN.
type VlanInterface struct {
	ID                 int    `yaml:"id" json:"id"`
	VirtualInterfaceID int    `yaml:"virtual_interface" json:"virtual_interface_id"`
	VlanID             int    `yaml:"vlan" json:"vlan_id"`
	IPv4Address        string `yaml:"ipv4_address" json:"ipv4_address,omitempty"`
	IPv6Address        string `yaml:"ipv6_address" json:"ipv6_address,omitempty"`
	IPv4Enabled        bool   `yaml:"ipv4_enabled" json:"ipv4_enabled"`
	IPv6Enabled        bool   `yaml:"ipv6_enabled" json:"ipv6_enabled"`
	IPv4CanPing        bool   `yaml:"ipv4_canping" json:"ipv4_canping"`
	IPv6CanPing        bool   `yaml:"ipv6_canping" json:"ipv6_canping"`
}

// CoreBundleSide names one end of a core bundle.
type CoreBundleSide string

const (
	SideA CoreBundleSide = "a"
	SideB CoreBundleSide = "b"
)

// ParseCoreBundleSide defaults anything but "b" to side a. Case and
// surrounding space are ignored.
func ParseCoreBundleSide(raw string) CoreBundleSide {
	if CoreBundleSide(strings.ToLower(strings.TrimSpace(raw))) == SideB {
		return SideB
	}
	return SideA
}

// CoreBundleEnd describes the switch and owner of one side of a bundle.
// OwnerCustomerID is zero when the side belongs to the exchange itself.
type CoreBundleEnd struct {
	SwitchID        int `yaml:"switch" json:"switch_id"`
	OwnerCustomerID int `yaml:"owner" json:"owner_customer_id,omitempty"`
}

// CoreBundle is a set of links between two switches.
type CoreBundle struct {
	ID          int           `yaml:"id" json:"id"`
	Description string        `yaml:"description" json:"description"`
	Type        string        `yaml:"type" json:"type"`
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	SideA       CoreBundleEnd `yaml:"side_a" json:"side_a"`
	SideB       CoreBundleEnd `yaml:"side_b" json:"side_b"`
}

// End returns the requested side of the bundle.
func (b CoreBundle) End(side CoreBundleSide) CoreBundleEnd {
	if side == SideB {
		return b.SideB
	}
	return b.SideA
}

// Trunk is a configured inter-switch link graphed by name.
type Trunk struct {
	Name  string `mapstructure:"name" yaml:"name" json:"name"`
	Title string `mapstructure:"title" yaml:"title" json:"title"`
}
