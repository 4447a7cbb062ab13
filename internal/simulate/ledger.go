package simulate

import (
	"errors"
	"time"

	"hydrogen-bypass/internal/model"
	"hydrogen-bypass/internal/optimize"
	"hydrogen-bypass/internal/scenario"
)

// LedgerRow is one snapshot of a solved run.
// Power in MW, energy in MWh, cost in EUR.
type LedgerRow struct {
	Index     int
	Timestamp time.Time

	DemandMW        float64
	WindAvailableMW float64
	WindMW          float64
	CurtailedMW     float64
	GasMW           float64
	LineFlowMW      float64

	// ElectrolyzerMW is electricity drawn from Bus 1; FuelCellMW is electricity delivered to Bus 2.
	ElectrolyzerMW float64
	FuelCellMW     float64
	StorePowerMW   float64
	StoreLevelMWh  float64
	Action         model.Action

	Cost    float64
	CumCost float64
}

type Result struct {
	RunID    string
	Scenario Scenario
	Solver   string
	Status   optimize.Status

	Network *model.Network
	Ledger  []LedgerRow

	Objective float64
	TotalCost float64

	StartedAt time.Time
	Duration  time.Duration
}

// BuildLedger flattens a solved reference network into per-snapshot rows.
// Components missing from the network (e.g. the bypass in a baseline run) read as zero.
func BuildLedger(n *model.Network) ([]LedgerRow, error) {
	r, ok := n.Results()
	if !ok {
		return nil, errors.New("network has no results")
	}
	at := func(m map[string]model.Series, name string, t int) float64 {
		if s, ok := m[name]; ok && t < len(s) {
			return s[t]
		}
		return 0
	}

	var demand model.Series
	if l, ok := n.Load(scenario.DemandLoad); ok {
		demand = l.PSet
	}
	wind, hasWind := n.Generator(scenario.WindGenerator)
	gens := n.Generators()
	links := n.Links()

	snaps := n.Snapshots()
	ledger := make([]LedgerRow, 0, len(snaps))
	cum := 0.0
	for t, ts := range snaps {
		cost := 0.0
		for _, g := range gens {
			cost += g.MarginalCost * at(r.GeneratorP, g.Name, t)
		}
		for _, l := range links {
			cost += l.MarginalCost * at(r.LinkP0, l.Name, t)
		}
		cum += cost

		row := LedgerRow{
			Index:     t,
			Timestamp: ts,

			WindMW:     at(r.GeneratorP, scenario.WindGenerator, t),
			GasMW:      at(r.GeneratorP, scenario.GasGenerator, t),
			LineFlowMW: at(r.LineP0, scenario.LineName, t),

			ElectrolyzerMW: at(r.LinkP0, scenario.ElectrolysisLink, t),
			FuelCellMW:     -at(r.LinkP1, scenario.FuelCellLink, t),
			StorePowerMW:   at(r.StoreP, scenario.HydrogenStore, t),
			StoreLevelMWh:  at(r.StoreE, scenario.HydrogenStore, t),

			Cost:    cost,
			CumCost: cum,
		}
		if t < len(demand) {
			row.DemandMW = demand[t]
		}
		if hasWind {
			row.WindAvailableMW = wind.Available(t)
			row.CurtailedMW = row.WindAvailableMW - row.WindMW
			if row.CurtailedMW < 1e-9 {
				row.CurtailedMW = 0
			}
		}
		row.Action = model.ActionFromStoreP(row.StorePowerMW)
		ledger = append(ledger, row)
	}
	return ledger, nil
}
