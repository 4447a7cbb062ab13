// Package analysis derives scenario-level statistics from solved networks.
package analysis

import (
	"errors"
	"math"
	"sort"
	"time"

	"hydrogen-bypass/internal/model"
	"hydrogen-bypass/internal/scenario"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary is a scenario-level digest of a solved network.
// Energy in MWh assumes hourly snapshots; cost in EUR.
type Summary struct {
	Network   string
	Snapshots int
	Start     time.Time
	End       time.Time

	Objective float64

	DemandMWh       float64
	EnergyByCarrier map[string]float64

	WindAvailableMWh   float64
	WindMWh            float64
	CurtailedMWh       float64
	CurtailmentShare   float64
	WindCapacityFactor float64

	GasMWh    float64
	GasShare  float64
	GasMeanMW float64
	GasStdMW  float64
	GasP05MW  float64
	GasP95MW  float64

	ElectrolyzerMWh  float64
	FuelCellMWh      float64
	ConversionLoss   float64
	StoreMaxMWh      float64
	StoreFinalMWh    float64
	ChargingHours    int
	DischargingHours int
}

var ErrNotSolved = errors.New("network has no results")

// Summarize computes a Summary for a solved reference network.
func Summarize(n *model.Network) (Summary, error) {
	r, ok := n.Results()
	if !ok {
		return Summary{}, ErrNotSolved
	}
	T := n.NumSnapshots()
	s := Summary{
		Network:         n.Name,
		Snapshots:       T,
		Objective:       r.Objective,
		EnergyByCarrier: map[string]float64{},
	}
	if snaps := n.Snapshots(); T > 0 {
		s.Start, s.End = snaps[0], snaps[T-1]
	}

	for _, l := range n.Loads() {
		s.DemandMWh += floats.Sum(l.PSet)
	}
	for _, g := range n.Generators() {
		s.EnergyByCarrier[string(g.Carrier)] += floats.Sum(r.GeneratorP[g.Name])
	}
	for _, l := range n.Links() {
		// Electricity-side energy: input for the electrolyzer, output for the fuel cell.
		switch l.Name {
		case scenario.FuelCellLink:
			s.EnergyByCarrier[string(l.Carrier)] += -floats.Sum(r.LinkP1[l.Name])
		default:
			s.EnergyByCarrier[string(l.Carrier)] += floats.Sum(r.LinkP0[l.Name])
		}
	}

	if wind, ok := n.Generator(scenario.WindGenerator); ok {
		p := r.GeneratorP[wind.Name]
		s.WindMWh = floats.Sum(p)
		for t := 0; t < T; t++ {
			s.WindAvailableMWh += wind.Available(t)
		}
		s.CurtailedMWh = math.Max(0, s.WindAvailableMWh-s.WindMWh)
		if s.WindAvailableMWh > 0 {
			s.CurtailmentShare = s.CurtailedMWh / s.WindAvailableMWh
		}
		if wind.PNom > 0 && T > 0 {
			s.WindCapacityFactor = s.WindMWh / (wind.PNom * float64(T))
		}
	}

	if gas, ok := r.GeneratorP[scenario.GasGenerator]; ok && len(gas) > 0 {
		s.GasMWh = floats.Sum(gas)
		if s.DemandMWh > 0 {
			s.GasShare = s.GasMWh / s.DemandMWh
		}
		s.GasMeanMW = stat.Mean(gas, nil)
		if len(gas) > 1 {
			s.GasStdMW = stat.StdDev(gas, nil)
		}
		sorted := append([]float64(nil), gas...)
		sort.Float64s(sorted)
		s.GasP05MW = stat.Quantile(0.05, stat.LinInterp, sorted, nil)
		s.GasP95MW = stat.Quantile(0.95, stat.LinInterp, sorted, nil)
	}

	if p0, ok := r.LinkP0[scenario.ElectrolysisLink]; ok {
		s.ElectrolyzerMWh = floats.Sum(p0)
	}
	if p1, ok := r.LinkP1[scenario.FuelCellLink]; ok {
		s.FuelCellMWh = -floats.Sum(p1)
	}
	if e, ok := r.StoreE[scenario.HydrogenStore]; ok && len(e) > 0 {
		s.StoreMaxMWh = floats.Max(e)
		s.StoreFinalMWh = e[len(e)-1]
	}
	// Includes energy still held as hydrogen at the end of the horizon.
	if s.ElectrolyzerMWh > 0 {
		s.ConversionLoss = s.ElectrolyzerMWh - s.FuelCellMWh
	}
	for _, v := range r.StoreP[scenario.HydrogenStore] {
		switch model.ActionFromStoreP(v) {
		case model.ActionCharging:
			s.ChargingHours++
		case model.ActionDischarging:
			s.DischargingHours++
		}
	}
	return s, nil
}
