package optimize

import (
	"errors"
	"fmt"
	"math"

	"hydrogen-bypass/internal/model"
)

// ErrImbalance is returned by CheckBalance when a solved network violates a constraint.
var ErrImbalance = errors.New("solution violates network constraints")

// CheckBalance verifies a solved network: nodal balance at every bus and
// snapshot, capacity bounds, and store level continuity, all within tol.
func CheckBalance(n *model.Network, tol float64) error {
	r, ok := n.Results()
	if !ok {
		return fmt.Errorf("%w: network %q has no results", ErrImbalance, n.Name)
	}
	T := n.NumSnapshots()
	net := map[string]model.Series{}
	add := func(bus string, t int, v float64) {
		s, ok := net[bus]
		if !ok {
			s = make(model.Series, T)
			net[bus] = s
		}
		s[t] += v
	}

	for _, g := range n.Generators() {
		p := r.GeneratorP[g.Name]
		for t := 0; t < T; t++ {
			if p[t] < -tol || p[t] > g.Available(t)+tol {
				return fmt.Errorf("%w: generator %q at %d: %g outside [0, %g]", ErrImbalance, g.Name, t, p[t], g.Available(t))
			}
			add(g.Bus, t, p[t])
		}
	}
	for _, l := range n.Loads() {
		for t := 0; t < T; t++ {
			add(l.Bus, t, -l.PSet[t])
		}
	}
	for _, l := range n.Lines() {
		f := r.LineP0[l.Name]
		for t := 0; t < T; t++ {
			if math.Abs(f[t]) > l.SNom+tol {
				return fmt.Errorf("%w: line %q at %d: |%g| exceeds %g", ErrImbalance, l.Name, t, f[t], l.SNom)
			}
			add(l.Bus0, t, -f[t])
			add(l.Bus1, t, f[t])
		}
	}
	for _, l := range n.Links() {
		p0, p1 := r.LinkP0[l.Name], r.LinkP1[l.Name]
		for t := 0; t < T; t++ {
			if p0[t] < -tol || p0[t] > l.PNom+tol {
				return fmt.Errorf("%w: link %q at %d: %g outside [0, %g]", ErrImbalance, l.Name, t, p0[t], l.PNom)
			}
			add(l.Bus0, t, -p0[t])
			add(l.Bus1, t, -p1[t])
		}
	}
	for _, s := range n.Stores() {
		e, p := r.StoreE[s.Name], r.StoreP[s.Name]
		for t := 0; t < T; t++ {
			if e[t] < -tol || e[t] > s.ENom+tol {
				return fmt.Errorf("%w: store %q at %d: level %g outside [0, %g]", ErrImbalance, s.Name, t, e[t], s.ENom)
			}
			prev := s.EInitial
			switch {
			case t > 0:
				prev = e[t-1]
			case s.ECyclic:
				prev = e[T-1]
			}
			if math.Abs(e[t]-prev+p[t]) > tol {
				return fmt.Errorf("%w: store %q at %d: level %g does not follow %g with %g MW", ErrImbalance, s.Name, t, e[t], prev, p[t])
			}
			add(s.Bus, t, p[t])
		}
	}

	for _, b := range n.Buses() {
		s := net[b.Name]
		for t := 0; t < T && s != nil; t++ {
			if math.Abs(s[t]) > tol {
				return fmt.Errorf("%w: bus %q at %d: net injection %g", ErrImbalance, b.Name, t, s[t])
			}
		}
	}
	return nil
}
