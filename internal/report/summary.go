package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"hydrogen-bypass/internal/analysis"
)

// WriteSummary prints a plain-text digest of one or more scenario summaries.
// A comparison block is appended when exactly a baseline and a bypass are given.
func WriteSummary(w io.Writer, summaries ...analysis.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range summaries {
		fmt.Fprintf(tw, "== %s ==\n", s.Network)
		fmt.Fprintf(tw, "snapshots\t%d\t(%s .. %s)\n", s.Snapshots, s.Start.Format("2006-01-02 15:04"), s.End.Format("2006-01-02 15:04"))
		fmt.Fprintf(tw, "objective\t%.2f\tEUR\n", s.Objective)
		fmt.Fprintf(tw, "demand\t%.2f\tMWh\n", s.DemandMWh)

		carriers := make([]string, 0, len(s.EnergyByCarrier))
		for c := range s.EnergyByCarrier {
			carriers = append(carriers, c)
		}
		sort.Strings(carriers)
		for _, c := range carriers {
			fmt.Fprintf(tw, "energy %s\t%.2f\tMWh\n", c, s.EnergyByCarrier[c])
		}

		fmt.Fprintf(tw, "wind curtailed\t%.2f\tMWh (%.1f%%)\n", s.CurtailedMWh, 100*s.CurtailmentShare)
		fmt.Fprintf(tw, "wind capacity factor\t%.3f\t\n", s.WindCapacityFactor)
		fmt.Fprintf(tw, "gas share\t%.1f\t%%\n", 100*s.GasShare)
		fmt.Fprintf(tw, "gas dispatch mean/std\t%.2f / %.2f\tMW\n", s.GasMeanMW, s.GasStdMW)
		fmt.Fprintf(tw, "gas dispatch p05/p95\t%.2f / %.2f\tMW\n", s.GasP05MW, s.GasP95MW)
		if s.ElectrolyzerMWh > 0 || s.StoreMaxMWh > 0 {
			fmt.Fprintf(tw, "electrolyzer input\t%.2f\tMWh\n", s.ElectrolyzerMWh)
			fmt.Fprintf(tw, "fuel cell output\t%.2f\tMWh\n", s.FuelCellMWh)
			fmt.Fprintf(tw, "conversion loss\t%.2f\tMWh\n", s.ConversionLoss)
			fmt.Fprintf(tw, "store max/final\t%.2f / %.2f\tMWh\n", s.StoreMaxMWh, s.StoreFinalMWh)
			fmt.Fprintf(tw, "charging/discharging\t%d / %d\th\n", s.ChargingHours, s.DischargingHours)
		}
		fmt.Fprintln(tw)
	}
	if len(summaries) == 2 && summaries[1].ElectrolyzerMWh > 0 && summaries[0].ElectrolyzerMWh == 0 {
		c := analysis.Compare(summaries[0], summaries[1])
		fmt.Fprintln(tw, "== comparison ==")
		fmt.Fprintf(tw, "savings\t%.2f\tEUR (%.2f%%)\n", c.SavingsEUR, c.SavingsPct)
		fmt.Fprintf(tw, "gas reduction\t%.2f\tMWh\n", c.GasReductionMWh)
		fmt.Fprintf(tw, "curtailment reduction\t%.2f\tMWh\n", c.CurtailmentDelta)
	}
	return tw.Flush()
}

func WriteSummaryFile(path string, summaries ...analysis.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteSummary(f, summaries...); err != nil {
		return err
	}
	return f.Close()
}
