// Package targets defines the closed set of things a graph can describe.
package targets

import (
	"fmt"
	"strings"

	"ixp-grapher/domain/core/entities"
	vo "ixp-grapher/domain/core/valueobjects"
)

// Kind identifies a GraphTarget variant.
type Kind string

const (
	KindOverall           Kind = "ixp"
	KindInfrastructure    Kind = "infrastructure"
	KindVlan              Kind = "vlan"
	KindSwitch            Kind = "switch"
	KindTrunk             Kind = "trunk"
	KindCustomer          Kind = "customer"
	KindVirtualInterface  Kind = "vi"
	KindPhysicalInterface Kind = "pi"
	KindVlanInterface     Kind = "vlanint"
	KindCoreBundle        Kind = "corebundle"
	KindPeerPair          Kind = "p2p"
	KindLatency           Kind = "latency"
)

// AllKinds lists every variant.
var AllKinds = []Kind{
	KindOverall, KindInfrastructure, KindVlan, KindSwitch, KindTrunk,
	KindCustomer, KindVirtualInterface, KindPhysicalInterface, KindVlanInterface,
	KindCoreBundle, KindPeerPair, KindLatency,
}

var kindAliases = map[string]Kind{
	"overall":           KindOverall,
	"agg":               KindCustomer,
	"member":            KindCustomer,
	"virtualinterface":  KindVirtualInterface,
	"physicalinterface": KindPhysicalInterface,
	"vlaninterface":     KindVlanInterface,
	"core-bundle":       KindCoreBundle,
	"peer-to-peer":      KindPeerPair,
	"peerpair":          KindPeerPair,
}

// ParseKind matches raw against the kinds and their aliases.
func ParseKind(raw string) (Kind, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, k := range AllKinds {
		if string(k) == s {
			return k, true
		}
	}
	k, ok := kindAliases[s]
	return k, ok
}

// RequiresRealProtocol reports whether the kind's backends only keep per
// protocol series.
func (k Kind) RequiresRealProtocol() bool {
	switch k {
	case KindVlan, KindVlanInterface, KindPeerPair, KindLatency:
		return true
	default:
		return false
	}
}

// CustomerOwned reports whether the existence of a target of this kind is
// itself private to its owner.
func (k Kind) CustomerOwned() bool {
	switch k {
	case KindCustomer, KindVirtualInterface, KindPhysicalInterface,
		KindVlanInterface, KindPeerPair, KindLatency:
		return true
	default:
		return false
	}
}

// AllowedCategories returns the categories a principal may request for the
// kind. Customer port views offer errors, discards and broadcasts to
// superusers only.
func AllowedCategories(k Kind, superuser bool) []vo.Category {
	switch k {
	case KindCustomer, KindVirtualInterface, KindPhysicalInterface, KindCoreBundle:
		if superuser {
			return vo.AllCategories
		}
	}
	return vo.BitsPacketsCategories
}

// NormalizeContext builds the normalizer rules for a kind and principal.
func NormalizeContext(k Kind, principal vo.Principal, defaultPeriod vo.Period) vo.NormalizeContext {
	return vo.NormalizeContext{
		RequiresRealProtocol: k.RequiresRealProtocol(),
		DefaultPeriod:        defaultPeriod,
		AllowedCategories:    AllowedCategories(k, principal.IsSuperUser()),
	}
}

// GraphTarget is a resolved, renderable graph subject. The set of
// implementations is closed; switch on the concrete type.
type GraphTarget interface {
	Kind() Kind
	// Identity is stable across processes and used in cache fingerprints.
	Identity() string
	// Title is a human readable name for listings and logs.
	Title() string
	isGraphTarget()
}

// Overall is the whole exchange.
type Overall struct{}

func (Overall) Kind() Kind       { return KindOverall }
func (Overall) Identity() string { return string(KindOverall) }
func (Overall) Title() string    { return "IXP Overall" }
func (Overall) isGraphTarget()   {}

// Infrastructure is one switching fabric.
type Infrastructure struct {
	Infrastructure entities.Infrastructure
}

func (t Infrastructure) Kind() Kind { return KindInfrastructure }
func (t Infrastructure) Identity() string {
	return fmt.Sprintf("%s:%d", KindInfrastructure, t.Infrastructure.ID)
}
func (t Infrastructure) Title() string { return t.Infrastructure.Name }
func (Infrastructure) isGraphTarget()  {}

// Vlan is one VLAN.
type Vlan struct {
	Vlan entities.Vlan
}

func (t Vlan) Kind() Kind       { return KindVlan }
func (t Vlan) Identity() string { return fmt.Sprintf("%s:%d", KindVlan, t.Vlan.ID) }
func (t Vlan) Title() string    { return t.Vlan.Name }
func (Vlan) isGraphTarget()     {}

// Switch is one active switch.
type Switch struct {
	Switch entities.Switch
}

func (t Switch) Kind() Kind       { return KindSwitch }
func (t Switch) Identity() string { return fmt.Sprintf("%s:%d", KindSwitch, t.Switch.ID) }
func (t Switch) Title() string    { return t.Switch.Name }
func (Switch) isGraphTarget()     {}

// Trunk is one configured trunk.
type Trunk struct {
	Trunk entities.Trunk
}

func (t Trunk) Kind() Kind       { return KindTrunk }
func (t Trunk) Identity() string { return fmt.Sprintf("%s:%s", KindTrunk, t.Trunk.Name) }
func (t Trunk) Title() string {
	if t.Trunk.Title != "" {
		return t.Trunk.Title
	}
	return t.Trunk.Name
}
func (Trunk) isGraphTarget() {}

// Customer is the aggregate of a member's ports.
type Customer struct {
	Customer entities.Customer
}

func (t Customer) Kind() Kind       { return KindCustomer }
func (t Customer) Identity() string { return fmt.Sprintf("%s:%d", KindCustomer, t.Customer.ID) }
func (t Customer) Title() string    { return t.Customer.Name }
func (Customer) isGraphTarget()     {}

// VirtualInterface is one member port or LAG.
type VirtualInterface struct {
	Interface entities.VirtualInterface
	Owner     entities.Customer
}

func (t VirtualInterface) Kind() Kind { return KindVirtualInterface }
func (t VirtualInterface) Identity() string {
	return fmt.Sprintf("%s:%d", KindVirtualInterface, t.Interface.ID)
}
func (t VirtualInterface) Title() string {
	return fmt.Sprintf("%s :: %s", t.Owner.Name, t.Interface.Name)
}
func (VirtualInterface) isGraphTarget() {}

// PhysicalInterface is one switch port of a member.
type PhysicalInterface struct {
	Interface entities.PhysicalInterface
	Virtual   entities.VirtualInterface
	Owner     entities.Customer
}

func (t PhysicalInterface) Kind() Kind { return KindPhysicalInterface }
func (t PhysicalInterface) Identity() string {
	return fmt.Sprintf("%s:%d", KindPhysicalInterface, t.Interface.ID)
}
func (t PhysicalInterface) Title() string {
	return fmt.Sprintf("%s :: %s", t.Owner.Name, t.Interface.PortName)
}
func (PhysicalInterface) isGraphTarget() {}

// VlanInterface is a member's presence on one VLAN.
type VlanInterface struct {
	Interface entities.VlanInterface
	Vlan      entities.Vlan
	Owner     entities.Customer
}

func (t VlanInterface) Kind() Kind { return KindVlanInterface }
func (t VlanInterface) Identity() string {
	return fmt.Sprintf("%s:%d", KindVlanInterface, t.Interface.ID)
}
func (t VlanInterface) Title() string {
	return fmt.Sprintf("%s :: %s", t.Owner.Name, t.Vlan.Name)
}
func (VlanInterface) isGraphTarget() {}

// ProtocolEnabled reports whether p is configured on the interface.
func (t VlanInterface) ProtocolEnabled(p vo.Protocol) bool {
	switch p {
	case vo.ProtocolIPv4:
		return t.Interface.IPv4Enabled
	case vo.ProtocolIPv6:
		return t.Interface.IPv6Enabled
	default:
		return false
	}
}

// ProtocolCanPing reports whether the interface answers pings over p.
func (t VlanInterface) ProtocolCanPing(p vo.Protocol) bool {
	switch p {
	case vo.ProtocolIPv4:
		return t.Interface.IPv4CanPing
	case vo.ProtocolIPv6:
		return t.Interface.IPv6CanPing
	default:
		return false
	}
}

// CoreBundleSide is one side of an active core bundle.
type CoreBundleSide struct {
	Bundle entities.CoreBundle
	Side   entities.CoreBundleSide
}

func (t CoreBundleSide) Kind() Kind { return KindCoreBundle }
func (t CoreBundleSide) Identity() string {
	return fmt.Sprintf("%s:%d:%s", KindCoreBundle, t.Bundle.ID, t.Side)
}
func (t CoreBundleSide) Title() string {
	return fmt.Sprintf("%s (side %s)", t.Bundle.Description, strings.ToUpper(string(t.Side)))
}
func (CoreBundleSide) isGraphTarget() {}

// Owner returns the customer owning this side, zero when the exchange does.
func (t CoreBundleSide) Owner() int {
	return t.Bundle.End(t.Side).OwnerCustomerID
}

// PeerPair is traffic from Source towards Destination over a shared VLAN.
type PeerPair struct {
	Source      VlanInterface
	Destination VlanInterface
}

func (t PeerPair) Kind() Kind { return KindPeerPair }
func (t PeerPair) Identity() string {
	return fmt.Sprintf("%s:%d:%d", KindPeerPair, t.Source.Interface.ID, t.Destination.Interface.ID)
}
func (t PeerPair) Title() string {
	return fmt.Sprintf("%s to %s on %s", t.Source.Owner.Name, t.Destination.Owner.Name, t.Source.Vlan.Name)
}
func (PeerPair) isGraphTarget() {}

// Latency is the ping round trip to a VLAN interface over one protocol.
type Latency struct {
	VlanInterface
	Protocol vo.Protocol
}

func (t Latency) Kind() Kind { return KindLatency }
func (t Latency) Identity() string {
	return fmt.Sprintf("%s:%d:%s", KindLatency, t.Interface.ID, t.Protocol)
}
func (t Latency) Title() string {
	return fmt.Sprintf("%s :: %s latency", t.VlanInterface.Title(), t.Protocol.Description())
}
func (Latency) isGraphTarget() {}

// OwnerCustomerIDs returns the customers whose visibility governs the
// target, nil for public and exchange-owned targets.
func OwnerCustomerIDs(t GraphTarget) []int {
	switch v := t.(type) {
	case Customer:
		return []int{v.Customer.ID}
	case VirtualInterface:
		return []int{v.Owner.ID}
	case PhysicalInterface:
		return []int{v.Owner.ID}
	case VlanInterface:
		return []int{v.Owner.ID}
	case Latency:
		return []int{v.Owner.ID}
	case PeerPair:
		return []int{v.Source.Owner.ID, v.Destination.Owner.ID}
	case CoreBundleSide:
		if id := v.Owner(); id > 0 {
			return []int{id}
		}
	}
	return nil
}
