package services

import (
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
)

// BackendID names a measurement backend.
type BackendID string

const (
	BackendMrtg      BackendID = "mrtg"
	BackendSflow     BackendID = "sflow"
	BackendSmokeping BackendID = "smokeping"
	BackendDummy     BackendID = "dummy"
)

// CapabilityRule grants a backend a set of kinds for the listed categories
// and protocols. A nil Categories slice matches any category.
type CapabilityRule struct {
	Kinds      []targets.Kind
	Categories []vo.Category
	Protocols  []vo.Protocol
}

func (r CapabilityRule) matches(kind targets.Kind, category vo.Category, protocol vo.Protocol) bool {
	if !containsKind(r.Kinds, kind) || !containsProtocol(r.Protocols, protocol) {
		return false
	}
	return r.Categories == nil || containsCategory(r.Categories, category)
}

// Capabilities is the row of the matrix for one backend.
type Capabilities []CapabilityRule

// Allows reports whether any rule covers the triple.
func (c Capabilities) Allows(kind targets.Kind, category vo.Category, protocol vo.Protocol) bool {
	for _, rule := range c {
		if rule.matches(kind, category, protocol) {
			return true
		}
	}
	return false
}

var allProtocols = []vo.Protocol{vo.ProtocolAll, vo.ProtocolIPv4, vo.ProtocolIPv6}

// DefaultCapabilities is what each built-in backend can graph. mrtg keeps
// only protocol aggregates, sflow only per protocol series, smokeping only
// latency.
var DefaultCapabilities = map[BackendID]Capabilities{
	BackendMrtg: {
		{
			Kinds:      []targets.Kind{targets.KindOverall, targets.KindInfrastructure, targets.KindSwitch, targets.KindTrunk},
			Categories: vo.BitsPacketsCategories,
			Protocols:  []vo.Protocol{vo.ProtocolAll},
		},
		{
			Kinds:      []targets.Kind{targets.KindCustomer, targets.KindVirtualInterface, targets.KindPhysicalInterface, targets.KindCoreBundle},
			Categories: vo.AllCategories,
			Protocols:  []vo.Protocol{vo.ProtocolAll},
		},
	},
	BackendSflow: {
		{
			Kinds: []targets.Kind{
				targets.KindOverall, targets.KindInfrastructure, targets.KindVlan,
				targets.KindCustomer, targets.KindVirtualInterface, targets.KindVlanInterface,
				targets.KindPeerPair,
			},
			Categories: vo.BitsPacketsCategories,
			Protocols:  vo.RealProtocols,
		},
	},
	BackendSmokeping: {
		{
			Kinds:     []targets.Kind{targets.KindLatency},
			Protocols: vo.RealProtocols,
		},
	},
	BackendDummy: {
		{
			Kinds:     targets.AllKinds,
			Protocols: allProtocols,
		},
	},
}

// CapabilityMatrix answers which configured backends can serve a request,
// in preference order.
type CapabilityMatrix struct {
	order []BackendID
	table map[BackendID]Capabilities
}

// NewCapabilityMatrix builds a matrix over the backends in order. Backends
// missing from table serve nothing.
func NewCapabilityMatrix(order []BackendID, table map[BackendID]Capabilities) *CapabilityMatrix {
	if table == nil {
		table = DefaultCapabilities
	}
	return &CapabilityMatrix{
		order: append([]BackendID(nil), order...),
		table: table,
	}
}

// CapableBackends returns the backends able to graph the target with the
// given category and protocol, first preference first. Empty means
// unservable.
func (m *CapabilityMatrix) CapableBackends(target targets.GraphTarget, category vo.Category, protocol vo.Protocol) []BackendID {
	var out []BackendID
	for _, id := range m.order {
		if m.table[id].Allows(target.Kind(), category, protocol) {
			out = append(out, id)
		}
	}
	return out
}

// Order returns the configured preference order.
func (m *CapabilityMatrix) Order() []BackendID {
	return append([]BackendID(nil), m.order...)
}

func containsKind(set []targets.Kind, k targets.Kind) bool {
	for _, c := range set {
		if c == k {
			return true
		}
	}
	return false
}

func containsProtocol(set []vo.Protocol, p vo.Protocol) bool {
	for _, c := range set {
		if c == p {
			return true
		}
	}
	return false
}

func containsCategory(set []vo.Category, cat vo.Category) bool {
	for _, c := range set {
		if c == cat {
			return true
		}
	}
	return false
}
