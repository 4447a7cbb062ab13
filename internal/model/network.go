package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDuplicateName   = errors.New("duplicate component name")
	ErrUnknownBus      = errors.New("unknown bus")
	ErrSeriesLength    = errors.New("series length does not match snapshots")
	ErrNoSnapshots     = errors.New("snapshots not set")
	ErrSnapshotsFixed  = errors.New("snapshots cannot change once time-varying components exist")
	ErrFrozen          = errors.New("network is frozen")
	ErrCarrierMismatch = errors.New("line connects buses of different carriers")
)

// Kind names a component table. The values double as labels in errors and exports.
type Kind string

const (
	KindBus       Kind = "Bus"
	KindLine      Kind = "Line"
	KindGenerator Kind = "Generator"
	KindLoad      Kind = "Load"
	KindLink      Kind = "Link"
	KindStore     Kind = "Store"
)

// Network is a topology container indexed by a snapshot set.
//
// Components are added once, in order, and looked up by name within their kind.
// The optimizer freezes the network before solving and attaches Results to it;
// after that every Add* call fails with ErrFrozen.
type Network struct {
	Name string

	snapshots []time.Time

	buses      []Bus
	lines      []Line
	generators []Generator
	loads      []Load
	links      []Link
	stores     []Store

	index map[Kind]map[string]int

	frozen  bool
	results *Results
}

func NewNetwork(name string) *Network {
	return &Network{
		Name:  name,
		index: map[Kind]map[string]int{},
	}
}

// SetSnapshots fixes the time index. It must be non-empty and strictly increasing.
func (n *Network) SetSnapshots(index []time.Time) error {
	if n.frozen {
		return ErrFrozen
	}
	if len(n.generators) > 0 || len(n.loads) > 0 {
		return ErrSnapshotsFixed
	}
	if len(index) == 0 {
		return fmt.Errorf("%w: empty index", ErrNoSnapshots)
	}
	for i := 1; i < len(index); i++ {
		if !index[i].After(index[i-1]) {
			return fmt.Errorf("snapshot %d (%s) is not after snapshot %d (%s)",
				i, index[i].Format(time.RFC3339), i-1, index[i-1].Format(time.RFC3339))
		}
	}
	n.snapshots = append([]time.Time(nil), index...)
	return nil
}

func (n *Network) Snapshots() []time.Time { return append([]time.Time(nil), n.snapshots...) }

func (n *Network) NumSnapshots() int { return len(n.snapshots) }

func (n *Network) Buses() []Bus            { return append([]Bus(nil), n.buses...) }
func (n *Network) Lines() []Line           { return append([]Line(nil), n.lines...) }
func (n *Network) Generators() []Generator { return append([]Generator(nil), n.generators...) }
func (n *Network) Loads() []Load           { return append([]Load(nil), n.loads...) }
func (n *Network) Links() []Link           { return append([]Link(nil), n.links...) }
func (n *Network) Stores() []Store         { return append([]Store(nil), n.stores...) }

func (n *Network) Bus(name string) (Bus, bool) {
	i, ok := n.lookup(KindBus, name)
	if !ok {
		return Bus{}, false
	}
	return n.buses[i], true
}

func (n *Network) Generator(name string) (Generator, bool) {
	i, ok := n.lookup(KindGenerator, name)
	if !ok {
		return Generator{}, false
	}
	return n.generators[i], true
}

func (n *Network) Load(name string) (Load, bool) {
	i, ok := n.lookup(KindLoad, name)
	if !ok {
		return Load{}, false
	}
	return n.loads[i], true
}

func (n *Network) Link(name string) (Link, bool) {
	i, ok := n.lookup(KindLink, name)
	if !ok {
		return Link{}, false
	}
	return n.links[i], true
}

func (n *Network) Store(name string) (Store, bool) {
	i, ok := n.lookup(KindStore, name)
	if !ok {
		return Store{}, false
	}
	return n.stores[i], true
}

// Has reports whether a component of the given kind and name exists.
func (n *Network) Has(kind Kind, name string) bool {
	_, ok := n.lookup(kind, name)
	return ok
}

func (n *Network) AddBus(b Bus) error {
	if err := n.precheck(KindBus, b.Name); err != nil {
		return err
	}
	if b.Carrier == "" {
		b.Carrier = CarrierAC
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("bus %q: %w", b.Name, err)
	}
	n.buses = append(n.buses, b)
	n.register(KindBus, b.Name, len(n.buses)-1)
	return nil
}

func (n *Network) AddLine(l Line) error {
	if err := n.precheck(KindLine, l.Name); err != nil {
		return err
	}
	if l.NumParallel == 0 {
		l.NumParallel = 1
	}
	if err := l.Validate(); err != nil {
		return fmt.Errorf("line %q: %w", l.Name, err)
	}
	b0, err := n.requireBus(KindLine, l.Name, l.Bus0)
	if err != nil {
		return err
	}
	b1, err := n.requireBus(KindLine, l.Name, l.Bus1)
	if err != nil {
		return err
	}
	if b0.Carrier != b1.Carrier {
		return fmt.Errorf("line %q: %w (%s=%s, %s=%s)", l.Name, ErrCarrierMismatch, b0.Name, b0.Carrier, b1.Name, b1.Carrier)
	}
	n.lines = append(n.lines, l)
	n.register(KindLine, l.Name, len(n.lines)-1)
	return nil
}

func (n *Network) AddGenerator(g Generator) error {
	if err := n.precheck(KindGenerator, g.Name); err != nil {
		return err
	}
	if g.Efficiency == 0 {
		g.Efficiency = 1
	}
	if g.PMaxPU != nil {
		if err := n.checkSeries(KindGenerator, g.Name, "p_max_pu", g.PMaxPU); err != nil {
			return err
		}
		g.PMaxPU = g.PMaxPU.Clone()
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("generator %q: %w", g.Name, err)
	}
	if _, err := n.requireBus(KindGenerator, g.Name, g.Bus); err != nil {
		return err
	}
	n.generators = append(n.generators, g)
	n.register(KindGenerator, g.Name, len(n.generators)-1)
	return nil
}

func (n *Network) AddLoad(l Load) error {
	if err := n.precheck(KindLoad, l.Name); err != nil {
		return err
	}
	if err := n.checkSeries(KindLoad, l.Name, "p_set", l.PSet); err != nil {
		return err
	}
	l.PSet = l.PSet.Clone()
	if err := l.Validate(); err != nil {
		return fmt.Errorf("load %q: %w", l.Name, err)
	}
	if _, err := n.requireBus(KindLoad, l.Name, l.Bus); err != nil {
		return err
	}
	n.loads = append(n.loads, l)
	n.register(KindLoad, l.Name, len(n.loads)-1)
	return nil
}

func (n *Network) AddLink(l Link) error {
	if err := n.precheck(KindLink, l.Name); err != nil {
		return err
	}
	if l.Efficiency == 0 {
		l.Efficiency = 1
	}
	if err := l.Validate(); err != nil {
		return fmt.Errorf("link %q: %w", l.Name, err)
	}
	if _, err := n.requireBus(KindLink, l.Name, l.Bus0); err != nil {
		return err
	}
	if _, err := n.requireBus(KindLink, l.Name, l.Bus1); err != nil {
		return err
	}
	n.links = append(n.links, l)
	n.register(KindLink, l.Name, len(n.links)-1)
	return nil
}

func (n *Network) AddStore(s Store) error {
	if err := n.precheck(KindStore, s.Name); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("store %q: %w", s.Name, err)
	}
	if _, err := n.requireBus(KindStore, s.Name, s.Bus); err != nil {
		return err
	}
	n.stores = append(n.stores, s)
	n.register(KindStore, s.Name, len(n.stores)-1)
	return nil
}

// Freeze marks the topology as final. It is idempotent.
func (n *Network) Freeze() { n.frozen = true }

func (n *Network) Frozen() bool { return n.frozen }

// SetResults attaches solved tables to a frozen network. Results can only be attached once.
func (n *Network) SetResults(r *Results) error {
	if !n.frozen {
		return errors.New("results can only be attached to a frozen network")
	}
	if n.results != nil {
		return errors.New("results already attached")
	}
	if r == nil {
		return errors.New("results are nil")
	}
	if err := r.validate(n); err != nil {
		return err
	}
	n.results = r
	return nil
}

// Results returns the solved tables, or false if the network has not been solved.
func (n *Network) Results() (*Results, bool) {
	return n.results, n.results != nil
}

func (n *Network) precheck(kind Kind, name string) error {
	if n.frozen {
		return ErrFrozen
	}
	if name == "" {
		return fmt.Errorf("%s name is required", kind)
	}
	if n.Has(kind, name) {
		return fmt.Errorf("%s %q: %w", kind, name, ErrDuplicateName)
	}
	return nil
}

func (n *Network) requireBus(kind Kind, name, bus string) (Bus, error) {
	b, ok := n.Bus(bus)
	if !ok {
		return Bus{}, fmt.Errorf("%s %q references bus %q: %w", kind, name, bus, ErrUnknownBus)
	}
	return b, nil
}

func (n *Network) checkSeries(kind Kind, name, attr string, s Series) error {
	if len(n.snapshots) == 0 {
		return fmt.Errorf("%s %q %s: %w", kind, name, attr, ErrNoSnapshots)
	}
	if len(s) != len(n.snapshots) {
		return fmt.Errorf("%s %q %s has %d values for %d snapshots: %w", kind, name, attr, len(s), len(n.snapshots), ErrSeriesLength)
	}
	return nil
}

func (n *Network) lookup(kind Kind, name string) (int, bool) {
	m := n.index[kind]
	if m == nil {
		return 0, false
	}
	i, ok := m[name]
	return i, ok
}

func (n *Network) register(kind Kind, name string, i int) {
	if n.index == nil {
		n.index = map[Kind]map[string]int{}
	}
	if n.index[kind] == nil {
		n.index[kind] = map[string]int{}
	}
	n.index[kind][name] = i
}
