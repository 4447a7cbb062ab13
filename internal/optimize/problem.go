package optimize

import (
	"fmt"
	"math"

	"hydrogen-bypass/internal/model"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Problem is the dispatch LP of a network in standard form:
//
//	minimize  cᵀx  subject to  A x = b,  x >= 0
//
// Structural columns come first, grouped by component and then by snapshot;
// each upper bound is a row with its own slack column, appended last.
// Line flows are shifted by s_nom so they are non-negative: x = flow + s_nom.
// Store level bounds that no dispatch can reach are left out.
type Problem struct {
	C []float64
	A *mat.Dense
	B []float64

	ColNames []string
	RowNames []string

	// Structural counts, used to split solutions back into component tables.
	NumStructural int

	// Slack holds, per row, the slack column of an upper-bound row and -1
	// for equality rows.
	Slack []int

	snapshots int
	gens      []model.Generator
	lines     []model.Line
	links     []model.Link
	stores    []model.Store

	genCol   []int // first column of each generator
	lineCol  []int
	linkCol  []int
	storeCol []int // level block; discharge and charge blocks follow at +T and +2T
	// floating marks cyclic stores whose level bound was dropped; their
	// levels are shifted down to a zero minimum when reading results.
	floating []bool
}

type row struct {
	name    string
	entries map[int]float64
	rhs     float64
	slack   int
}

// Formulate builds the LP for n. Rows without any variable are dropped when
// their right-hand side is zero and prove infeasibility otherwise.
func Formulate(n *model.Network) (*Problem, error) {
	T := n.NumSnapshots()
	if T == 0 {
		return nil, fmt.Errorf("%w: %v", ErrSolver, model.ErrNoSnapshots)
	}
	p := &Problem{
		snapshots: T,
		gens:      n.Generators(),
		lines:     n.Lines(),
		links:     n.Links(),
		stores:    n.Stores(),
	}

	addCol := func(name string, cost float64) int {
		p.ColNames = append(p.ColNames, name)
		p.C = append(p.C, cost)
		return len(p.C) - 1
	}
	for _, g := range p.gens {
		p.genCol = append(p.genCol, len(p.C))
		for t := 0; t < T; t++ {
			addCol(fmt.Sprintf("p[%s,%d]", g.Name, t), g.MarginalCost)
		}
	}
	for _, l := range p.lines {
		p.lineCol = append(p.lineCol, len(p.C))
		for t := 0; t < T; t++ {
			addCol(fmt.Sprintf("f[%s,%d]", l.Name, t), 0)
		}
	}
	for _, l := range p.links {
		p.linkCol = append(p.linkCol, len(p.C))
		for t := 0; t < T; t++ {
			addCol(fmt.Sprintf("p0[%s,%d]", l.Name, t), l.MarginalCost)
		}
	}
	for _, s := range p.stores {
		p.storeCol = append(p.storeCol, len(p.C))
		for t := 0; t < T; t++ {
			addCol(fmt.Sprintf("e[%s,%d]", s.Name, t), 0)
		}
		for t := 0; t < T; t++ {
			addCol(fmt.Sprintf("dis[%s,%d]", s.Name, t), 0)
		}
		for t := 0; t < T; t++ {
			addCol(fmt.Sprintf("ch[%s,%d]", s.Name, t), 0)
		}
	}
	p.NumStructural = len(p.C)

	loadAt := map[string]model.Series{}
	for _, l := range n.Loads() {
		if prev, ok := loadAt[l.Bus]; ok {
			sum := prev.Clone()
			for t := range sum {
				sum[t] += l.PSet[t]
			}
			loadAt[l.Bus] = sum
		} else {
			loadAt[l.Bus] = l.PSet
		}
	}

	var rows []row
	for t := 0; t < T; t++ {
		for _, b := range n.Buses() {
			r := row{name: fmt.Sprintf("balance[%s,%d]", b.Name, t), entries: map[int]float64{}, slack: -1}
			if ld, ok := loadAt[b.Name]; ok {
				r.rhs = ld[t]
			}
			for i, g := range p.gens {
				if g.Bus == b.Name {
					r.entries[p.genCol[i]+t] += 1
				}
			}
			for i, l := range p.lines {
				// flow = x - s_nom leaves bus0 and arrives at bus1.
				if l.Bus0 == b.Name {
					r.entries[p.lineCol[i]+t] -= 1
					r.rhs -= l.SNom
				}
				if l.Bus1 == b.Name {
					r.entries[p.lineCol[i]+t] += 1
					r.rhs += l.SNom
				}
			}
			for i, l := range p.links {
				if l.Bus0 == b.Name {
					r.entries[p.linkCol[i]+t] -= 1
				}
				if l.Bus1 == b.Name {
					r.entries[p.linkCol[i]+t] += l.Efficiency
				}
			}
			for i, s := range p.stores {
				if s.Bus == b.Name {
					r.entries[p.storeCol[i]+T+t] += 1
					r.entries[p.storeCol[i]+2*T+t] -= 1
				}
			}
			rows = append(rows, r)
		}
		for i, s := range p.stores {
			// e_t - e_{t-1} + discharge - charge = 0
			e := p.storeCol[i]
			r := row{name: fmt.Sprintf("level[%s,%d]", s.Name, t), entries: map[int]float64{}, slack: -1}
			r.entries[e+t] += 1
			switch {
			case t > 0:
				r.entries[e+t-1] -= 1
			case s.ECyclic:
				r.entries[e+T-1] -= 1
			default:
				r.rhs = s.EInitial
			}
			r.entries[e+T+t] += 1
			r.entries[e+2*T+t] -= 1
			rows = append(rows, r)
		}
	}

	type bound struct {
		col   int
		upper float64
	}
	var bounds []bound
	for i, g := range p.gens {
		for t := 0; t < T; t++ {
			bounds = append(bounds, bound{p.genCol[i] + t, g.Available(t)})
		}
	}
	for i, l := range p.lines {
		for t := 0; t < T; t++ {
			bounds = append(bounds, bound{p.lineCol[i] + t, 2 * l.SNom})
		}
	}
	for i, l := range p.links {
		for t := 0; t < T; t++ {
			bounds = append(bounds, bound{p.linkCol[i] + t, l.PNom})
		}
	}
	p.floating = make([]bool, len(p.stores))
	for i, s := range p.stores {
		if levelBoundInactive(n, s) {
			p.floating[i] = s.ECyclic
			continue
		}
		for t := 0; t < T; t++ {
			bounds = append(bounds, bound{p.storeCol[i] + t, s.ENom})
		}
	}
	for _, bd := range bounds {
		slack := addCol("s["+p.ColNames[bd.col]+"]", 0)
		rows = append(rows, row{
			name:    "ub[" + p.ColNames[bd.col] + "]",
			entries: map[int]float64{bd.col: 1, slack: 1},
			rhs:     bd.upper,
			slack:   slack,
		})
	}

	kept := rows[:0]
	for _, r := range rows {
		empty := true
		for _, v := range r.entries {
			if v != 0 {
				empty = false
				break
			}
		}
		if !empty {
			kept = append(kept, r)
			continue
		}
		if math.Abs(r.rhs) > 0 {
			return nil, fmt.Errorf("%w: %s requires %g MW but nothing is connected", ErrInfeasible, r.name, r.rhs)
		}
	}

	m, cols := len(kept), len(p.C)
	if m == 0 {
		return nil, fmt.Errorf("%w: network has no constraints", ErrSolver)
	}
	p.A = mat.NewDense(m, cols, nil)
	p.B = make([]float64, m)
	p.RowNames = make([]string, m)
	p.Slack = make([]int, m)
	for i, r := range kept {
		for j, v := range r.entries {
			p.A.Set(i, j, v)
		}
		p.B[i] = r.rhs
		p.RowNames[i] = r.name
		p.Slack[i] = r.slack
	}
	return p, nil
}

// levelBoundInactive reports whether s can never fill up: the most its bus
// can push into it over the horizon fits in e_nom. Stores sharing a bus are
// always bounded.
func levelBoundInactive(n *model.Network, s model.Store) bool {
	T := n.NumSnapshots()
	shared := 0
	for _, o := range n.Stores() {
		if o.Bus == s.Bus {
			shared++
		}
	}
	if shared > 1 {
		return false
	}

	var inflow float64
	for _, g := range n.Generators() {
		if g.Bus != s.Bus {
			continue
		}
		var peak float64
		for t := 0; t < T; t++ {
			peak = math.Max(peak, g.Available(t))
		}
		inflow += peak
	}
	for _, l := range n.Lines() {
		if l.Bus0 == s.Bus || l.Bus1 == s.Bus {
			inflow += l.SNom
		}
	}
	for _, l := range n.Links() {
		if l.Bus1 == s.Bus {
			inflow += l.PNom * l.Efficiency
		}
	}
	for _, l := range n.Loads() {
		if l.Bus != s.Bus {
			continue
		}
		var feed float64
		for _, v := range l.PSet {
			feed = math.Max(feed, -v)
		}
		inflow += feed
	}

	reach := inflow * float64(T)
	if !s.ECyclic {
		reach += s.EInitial
	}
	return reach <= s.ENom
}

// Dims returns the number of rows and columns of A.
func (p *Problem) Dims() (int, int) { return p.A.Dims() }

// Results converts a solution vector into the network's result tables.
func (p *Problem) Results(x []float64) (*model.Results, error) {
	if len(x) != len(p.C) {
		return nil, fmt.Errorf("%w: solution has %d values for %d columns", ErrSolver, len(x), len(p.C))
	}
	T := p.snapshots
	r := model.NewResults()
	block := func(start int) model.Series {
		s := make(model.Series, T)
		for t := 0; t < T; t++ {
			s[t] = clean(x[start+t])
		}
		return s
	}
	for i, g := range p.gens {
		r.GeneratorP[g.Name] = block(p.genCol[i])
		for _, v := range r.GeneratorP[g.Name] {
			r.Objective += g.MarginalCost * v
		}
	}
	for i, l := range p.lines {
		flow := block(p.lineCol[i])
		for t := range flow {
			flow[t] = clean(flow[t] - l.SNom)
		}
		r.LineP0[l.Name] = flow
	}
	for i, l := range p.links {
		p0 := block(p.linkCol[i])
		p1 := make(model.Series, T)
		for t := range p0 {
			p1[t] = clean(-l.Efficiency * p0[t])
			r.Objective += l.MarginalCost * p0[t]
		}
		r.LinkP0[l.Name] = p0
		r.LinkP1[l.Name] = p1
	}
	for i, s := range p.stores {
		e := block(p.storeCol[i])
		dis := block(p.storeCol[i] + T)
		ch := block(p.storeCol[i] + 2*T)
		net := make(model.Series, T)
		for t := range net {
			net[t] = clean(dis[t] - ch[t])
		}
		if i < len(p.floating) && p.floating[i] {
			low := floats.Min(e)
			for t := range e {
				e[t] = clean(e[t] - low)
			}
		}
		r.StoreE[s.Name] = e
		r.StoreP[s.Name] = net
	}
	return r, nil
}

// clean snaps solver noise around zero.
func clean(v float64) float64 {
	if math.Abs(v) < 1e-9 {
		return 0
	}
	return v
}
