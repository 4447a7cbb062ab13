package model

import "fmt"

// Results holds the solved per-snapshot tables of a network, keyed by component name.
//
// Sign conventions:
// - GeneratorP: MW injected at the generator's bus, >= 0
// - LineP0: MW leaving Bus0 towards Bus1 (negative = flow from Bus1 to Bus0)
// - LinkP0: MW withdrawn at Bus0, >= 0
// - LinkP1: MW at Bus1, = -Efficiency*P0 (negative = delivered)
// - StoreE: stored energy level in MWh at the end of the snapshot
// - StoreP: MW, positive = discharging into the bus, negative = charging
type Results struct {
	Objective float64

	GeneratorP map[string]Series
	LineP0     map[string]Series
	LinkP0     map[string]Series
	LinkP1     map[string]Series
	StoreE     map[string]Series
	StoreP     map[string]Series
}

func NewResults() *Results {
	return &Results{
		GeneratorP: map[string]Series{},
		LineP0:     map[string]Series{},
		LinkP0:     map[string]Series{},
		LinkP1:     map[string]Series{},
		StoreE:     map[string]Series{},
		StoreP:     map[string]Series{},
	}
}

func (r *Results) validate(n *Network) error {
	want := len(n.snapshots)
	check := func(table string, m map[string]Series, names []string) error {
		for _, name := range names {
			s, ok := m[name]
			if !ok {
				return fmt.Errorf("results: %s missing %q", table, name)
			}
			if len(s) != want {
				return fmt.Errorf("results: %s[%q] has %d values for %d snapshots: %w", table, name, len(s), want, ErrSeriesLength)
			}
		}
		return nil
	}
	var gens, lines, links, stores []string
	for _, g := range n.generators {
		gens = append(gens, g.Name)
	}
	for _, l := range n.lines {
		lines = append(lines, l.Name)
	}
	for _, l := range n.links {
		links = append(links, l.Name)
	}
	for _, s := range n.stores {
		stores = append(stores, s.Name)
	}
	if err := check("generators_t.p", r.GeneratorP, gens); err != nil {
		return err
	}
	if err := check("lines_t.p0", r.LineP0, lines); err != nil {
		return err
	}
	if err := check("links_t.p0", r.LinkP0, links); err != nil {
		return err
	}
	if err := check("links_t.p1", r.LinkP1, links); err != nil {
		return err
	}
	if err := check("stores_t.e", r.StoreE, stores); err != nil {
		return err
	}
	return check("stores_t.p", r.StoreP, stores)
}
