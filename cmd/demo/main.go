package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"hydrogen-bypass/internal/analysis"
	"hydrogen-bypass/internal/report"
	"hydrogen-bypass/internal/simulate"
)

// Demo:
// - Load the bundled wind and demand series
// - Build the two-bus network with and without the hydrogen bypass
// - Optimize both and print the first snapshots of each ledger
func main() {
	dataDir := flag.String("data-dir", "timeseries_data", "Directory with wind_resource.csv and demand.csv")
	n := flag.Int("n", 12, "Number of snapshots to print")
	outCSV := flag.String("out", "", "Optional path to write the bypass ledger CSV (e.g. out/ledger-bypass.csv)")
	flag.Parse()

	engine := simulate.New()
	baseline, bypass, err := engine.Compare(context.Background(), simulate.DefaultRunSpec(simulate.ScenarioBypass, *dataDir))
	if err != nil {
		panic(err)
	}

	for _, res := range []*simulate.Result{baseline, bypass} {
		fmt.Printf("Scenario=%s network=%s solver=%s status=%s\n", res.Scenario, res.Network.Name, res.Solver, res.Status)
		for i := 0; i < min(*n, len(res.Ledger)); i++ {
			r := res.Ledger[i]
			fmt.Printf(
				"%s demand=%7.1f  wind=%7.1f/%7.1f  gas=%7.1f  line=%7.1f  el=%6.1f  fc=%6.1f  h2=%9.1f  %-11s  cum=%10.2f\n",
				r.Timestamp.Format("2006-01-02 15:04"),
				r.DemandMW,
				r.WindMW,
				r.WindAvailableMW,
				r.GasMW,
				r.LineFlowMW,
				r.ElectrolyzerMW,
				r.FuelCellMW,
				r.StoreLevelMWh,
				string(r.Action),
				r.CumCost,
			)
		}
		fmt.Println()
	}

	base, err := analysis.Summarize(baseline.Network)
	if err != nil {
		panic(err)
	}
	h2, err := analysis.Summarize(bypass.Network)
	if err != nil {
		panic(err)
	}
	if err := report.WriteSummary(os.Stdout, base, h2); err != nil {
		panic(err)
	}

	if *outCSV != "" {
		if err := simulate.WriteLedgerCSV(*outCSV, bypass.Ledger); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}

	fmt.Printf("\nDone. Baseline=%.2f EUR  Bypass=%.2f EUR\n", baseline.Objective, bypass.Objective)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
