// Package memory holds the exchange inventory in memory, loaded from a YAML
// snapshot.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/core/entities"
	vo "ixp-grapher/domain/core/valueobjects"

	"gopkg.in/yaml.v3"
)

// Snapshot is the full exchange inventory.
type Snapshot struct {
	Infrastructures    []entities.Infrastructure    `yaml:"infrastructures"`
	Vlans              []entities.Vlan              `yaml:"vlans"`
	Switches           []entities.Switch            `yaml:"switches"`
	Customers          []entities.Customer          `yaml:"customers"`
	VirtualInterfaces  []entities.VirtualInterface  `yaml:"virtual_interfaces"`
	PhysicalInterfaces []entities.PhysicalInterface `yaml:"physical_interfaces"`
	VlanInterfaces     []entities.VlanInterface     `yaml:"vlan_interfaces"`
	CoreBundles        []entities.CoreBundle        `yaml:"core_bundles"`
	PortTraffic        []entities.PortTraffic       `yaml:"port_traffic"`
	MemberTraffic      []entities.MemberTraffic     `yaml:"member_traffic"`
}

// LoadSnapshot reads a YAML inventory file.
func LoadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("failed to read inventory %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("failed to parse inventory %s: %w", path, err)
	}
	return snap, nil
}

// ExchangeRepository serves ports.ExchangeRepository from a snapshot that
// can be swapped atomically.
type ExchangeRepository struct {
	mu  sync.RWMutex
	idx *index
}

var _ ports.ExchangeRepository = (*ExchangeRepository)(nil)

type index struct {
	snap Snapshot

	infrastructures    map[int]entities.Infrastructure
	vlans              map[int]entities.Vlan
	switches           map[int]entities.Switch
	customers          map[int]entities.Customer
	virtualInterfaces  map[int]entities.VirtualInterface
	physicalInterfaces map[int]entities.PhysicalInterface
	vlanInterfaces     map[int]entities.VlanInterface
	coreBundles        map[int]entities.CoreBundle
	trafficDays        []string
}

// NewExchangeRepository creates a repository over snap.
func NewExchangeRepository(snap Snapshot) *ExchangeRepository {
	return &ExchangeRepository{idx: buildIndex(snap)}
}

// Replace swaps in a new snapshot.
func (r *ExchangeRepository) Replace(snap Snapshot) {
	idx := buildIndex(snap)
	r.mu.Lock()
	r.idx = idx
	r.mu.Unlock()
}

func (r *ExchangeRepository) current() *index {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idx
}

func buildIndex(snap Snapshot) *index {
	idx := &index{
		snap:               snap,
		infrastructures:    byID(snap.Infrastructures, func(v entities.Infrastructure) int { return v.ID }),
		vlans:              byID(snap.Vlans, func(v entities.Vlan) int { return v.ID }),
		switches:           byID(snap.Switches, func(v entities.Switch) int { return v.ID }),
		customers:          byID(snap.Customers, func(v entities.Customer) int { return v.ID }),
		virtualInterfaces:  byID(snap.VirtualInterfaces, func(v entities.VirtualInterface) int { return v.ID }),
		physicalInterfaces: byID(snap.PhysicalInterfaces, func(v entities.PhysicalInterface) int { return v.ID }),
		vlanInterfaces:     byID(snap.VlanInterfaces, func(v entities.VlanInterface) int { return v.ID }),
		coreBundles:        byID(snap.CoreBundles, func(v entities.CoreBundle) int { return v.ID }),
	}

	seen := make(map[string]bool)
	for _, t := range snap.PortTraffic {
		if !seen[t.Day] {
			seen[t.Day] = true
			idx.trafficDays = append(idx.trafficDays, t.Day)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(idx.trafficDays)))
	return idx
}

func byID[T any](items []T, id func(T) int) map[int]T {
	m := make(map[int]T, len(items))
	for _, item := range items {
		m[id(item)] = item
	}
	return m
}

func lookup[T any](m map[int]T, id int) *T {
	v, ok := m[id]
	if !ok {
		return nil
	}
	return &v
}

func filter[T any](items []T, keep func(T) bool) []T {
	var out []T
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func (r *ExchangeRepository) Infrastructures(ctx context.Context) ([]entities.Infrastructure, error) {
	out := append([]entities.Infrastructure(nil), r.current().snap.Infrastructures...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ExchangeRepository) Infrastructure(ctx context.Context, id int) (*entities.Infrastructure, error) {
	return lookup(r.current().infrastructures, id), nil
}

func (r *ExchangeRepository) Vlans(ctx context.Context) ([]entities.Vlan, error) {
	out := append([]entities.Vlan(nil), r.current().snap.Vlans...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ExchangeRepository) Vlan(ctx context.Context, id int) (*entities.Vlan, error) {
	return lookup(r.current().vlans, id), nil
}

func (r *ExchangeRepository) Switches(ctx context.Context) ([]entities.Switch, error) {
	out := append([]entities.Switch(nil), r.current().snap.Switches...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ExchangeRepository) Switch(ctx context.Context, id int) (*entities.Switch, error) {
	return lookup(r.current().switches, id), nil
}

func (r *ExchangeRepository) Customers(ctx context.Context) ([]entities.Customer, error) {
	out := append([]entities.Customer(nil), r.current().snap.Customers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ExchangeRepository) Customer(ctx context.Context, id int) (*entities.Customer, error) {
	return lookup(r.current().customers, id), nil
}

func (r *ExchangeRepository) VirtualInterface(ctx context.Context, id int) (*entities.VirtualInterface, error) {
	return lookup(r.current().virtualInterfaces, id), nil
}

func (r *ExchangeRepository) VirtualInterfacesForCustomer(ctx context.Context, customerID int) ([]entities.VirtualInterface, error) {
	out := filter(r.current().snap.VirtualInterfaces, func(v entities.VirtualInterface) bool { return v.CustomerID == customerID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ExchangeRepository) PhysicalInterface(ctx context.Context, id int) (*entities.PhysicalInterface, error) {
	return lookup(r.current().physicalInterfaces, id), nil
}

func (r *ExchangeRepository) PhysicalInterfacesForVirtual(ctx context.Context, virtualInterfaceID int) ([]entities.PhysicalInterface, error) {
	out := filter(r.current().snap.PhysicalInterfaces, func(p entities.PhysicalInterface) bool {
		return p.VirtualInterfaceID == virtualInterfaceID
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ExchangeRepository) PhysicalInterfacesForSwitch(ctx context.Context, switchID int) ([]entities.PhysicalInterface, error) {
	out := filter(r.current().snap.PhysicalInterfaces, func(p entities.PhysicalInterface) bool { return p.SwitchID == switchID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ExchangeRepository) VlanInterface(ctx context.Context, id int) (*entities.VlanInterface, error) {
	return lookup(r.current().vlanInterfaces, id), nil
}

func (r *ExchangeRepository) VlanInterfacesForVirtual(ctx context.Context, virtualInterfaceID int) ([]entities.VlanInterface, error) {
	out := filter(r.current().snap.VlanInterfaces, func(v entities.VlanInterface) bool {
		return v.VirtualInterfaceID == virtualInterfaceID
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ExchangeRepository) VlanInterfacesForVlan(ctx context.Context, vlanID int) ([]entities.VlanInterface, error) {
	out := filter(r.current().snap.VlanInterfaces, func(v entities.VlanInterface) bool { return v.VlanID == vlanID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ExchangeRepository) CoreBundles(ctx context.Context) ([]entities.CoreBundle, error) {
	out := append([]entities.CoreBundle(nil), r.current().snap.CoreBundles...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ExchangeRepository) CoreBundle(ctx context.Context, id int) (*entities.CoreBundle, error) {
	return lookup(r.current().coreBundles, id), nil
}

// StaticTrunks serves a fixed trunk list.
type StaticTrunks struct {
	mu     sync.RWMutex
	trunks []entities.Trunk
}

var _ ports.TrunkReader = (*StaticTrunks)(nil)

// NewStaticTrunks creates a trunk reader in configured order.
func NewStaticTrunks(trunks []entities.Trunk) *StaticTrunks {
	return &StaticTrunks{trunks: append([]entities.Trunk(nil), trunks...)}
}

func (s *StaticTrunks) Trunks(ctx context.Context) ([]entities.Trunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Trunk(nil), s.trunks...), nil
}

// Replace swaps the configured trunks.
func (s *StaticTrunks) Replace(trunks []entities.Trunk) {
	s.mu.Lock()
	s.trunks = append([]entities.Trunk(nil), trunks...)
	s.mu.Unlock()
}

func (r *ExchangeRepository) PortTrafficDays(ctx context.Context) ([]string, error) {
	return append([]string(nil), r.current().trafficDays...), nil
}

func (r *ExchangeRepository) PortTraffic(ctx context.Context, day string, category vo.Category) ([]entities.PortTraffic, error) {
	return filter(r.current().snap.PortTraffic, func(t entities.PortTraffic) bool {
		return t.Day == day && t.Category == category
	}), nil
}

func (r *ExchangeRepository) MemberTraffic(ctx context.Context, day string, category vo.Category) ([]entities.MemberTraffic, error) {
	return filter(r.current().snap.MemberTraffic, func(t entities.MemberTraffic) bool {
		return t.Day == day && t.Category == category
	}), nil
}
