// Package report turns solved networks into display frames, charts and text summaries.
package report

import (
	"errors"
	"fmt"
	"time"

	"hydrogen-bypass/internal/model"
	"hydrogen-bypass/internal/scenario"
)

var ErrNotSolved = errors.New("network is not solved")

// Frame is a column table over snapshots. Values[i] holds column Columns[i].
type Frame struct {
	Index   []time.Time
	Columns []string
	Values  [][]float64
	// Line is an overlay series drawn on top of the bars.
	LineName string
	Line     []float64
}

func (f Frame) Len() int { return len(f.Index) }

func (f Frame) Column(name string) ([]float64, bool) {
	for i, c := range f.Columns {
		if c == name {
			return f.Values[i], true
		}
	}
	return nil, false
}

func (f *Frame) add(name string, values []float64) {
	f.Columns = append(f.Columns, name)
	f.Values = append(f.Values, values)
}

// DispatchFrame lists power supplied to the electrical side as positive and
// power drawn from it as negative: Gas, fuel cell, Offwind, electrolysis.
// The overlay line is demand.
func DispatchFrame(n *model.Network) (Frame, error) {
	r, ok := n.Results()
	if !ok {
		return Frame{}, fmt.Errorf("%w: %q", ErrNotSolved, n.Name)
	}
	T := n.NumSnapshots()
	f := Frame{Index: n.Snapshots(), LineName: "demand"}

	if p, ok := r.GeneratorP[scenario.GasGenerator]; ok {
		f.add(scenario.GasGenerator, append([]float64(nil), p...))
	}
	if p1, ok := r.LinkP1[scenario.FuelCellLink]; ok {
		f.add(scenario.FuelCellLink, negate(p1))
	}
	if p, ok := r.GeneratorP[scenario.WindGenerator]; ok {
		f.add(scenario.WindGenerator, append([]float64(nil), p...))
	}
	if p0, ok := r.LinkP0[scenario.ElectrolysisLink]; ok {
		f.add(scenario.ElectrolysisLink, negate(p0))
	}
	// Any other generators follow the reference ones.
	for _, g := range n.Generators() {
		if g.Name == scenario.GasGenerator || g.Name == scenario.WindGenerator {
			continue
		}
		f.add(g.Name, append([]float64(nil), r.GeneratorP[g.Name]...))
	}

	f.Line = make([]float64, T)
	for _, l := range n.Loads() {
		for t := 0; t < T; t++ {
			f.Line[t] += l.PSet[t]
		}
	}
	return f, nil
}

// StorageFrame has one bar column, the net charge of the hydrogen loop
// (electrolyzer output into the store minus fuel cell input from it), and the
// store level as overlay line.
func StorageFrame(n *model.Network) (Frame, error) {
	r, ok := n.Results()
	if !ok {
		return Frame{}, fmt.Errorf("%w: %q", ErrNotSolved, n.Name)
	}
	e, ok := r.StoreE[scenario.HydrogenStore]
	if !ok {
		return Frame{}, fmt.Errorf("network %q has no %q store", n.Name, scenario.HydrogenStore)
	}
	T := n.NumSnapshots()
	fc := r.LinkP0[scenario.FuelCellLink]
	el := r.LinkP1[scenario.ElectrolysisLink]
	charge := make([]float64, T)
	for t := 0; t < T; t++ {
		var in, out float64
		if el != nil {
			in = -el[t]
		}
		if fc != nil {
			out = fc[t]
		}
		charge[t] = in - out
	}
	f := Frame{Index: n.Snapshots(), LineName: "storage level"}
	f.add("net storage charge", charge)
	f.Line = append([]float64(nil), e...)
	return f, nil
}

func negate(s model.Series) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = -v + 0
	}
	return out
}
