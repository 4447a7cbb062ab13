package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"hydrogen-bypass/internal/analysis"
	"hydrogen-bypass/internal/config"
	"hydrogen-bypass/internal/export"
	"hydrogen-bypass/internal/optimize"
	"hydrogen-bypass/internal/report"
	"hydrogen-bypass/internal/simulate"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "baseline", "pre-bypass":
		cmdScenario(simulate.ScenarioBaseline, os.Args[2:])
	case "bypass":
		cmdScenario(simulate.ScenarioBypass, os.Args[2:])
	case "run":
		cmdRun(os.Args[2:])
	case "solvers":
		cmdSolvers()
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli baseline [--data-dir timeseries_data] [--out .] [--solver simplex] [--rows N] [--verify]")
	fmt.Println("  cli bypass   [--bypass-file examples/bypass/reference.yaml] [same flags as baseline]")
	fmt.Println("  cli run --config examples/config.yaml")
	fmt.Println("  cli solvers")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - baseline simulates the two-bus network without the hydrogen bypass")
	fmt.Println("  - bypass adds electrolysis, hydrogen storage and fuel cell on a third bus")
	fmt.Println("  - outputs: dispatch charts (PNG), summary.txt and ledger-<scenario>.csv")
}

// cmdScenario simulates one scenario with the reference parameters, optionally
// starting from a config file.
func cmdScenario(sc simulate.Scenario, args []string) {
	fs := flag.NewFlagSet(string(sc), flag.ExitOnError)
	cfgPath := fs.String("config", "", "Optional: YAML config to start from")
	dataDir := fs.String("data-dir", "", "Directory with wind_resource.csv and demand.csv")
	outDir := fs.String("out", "", "Output directory for charts, summary and ledger")
	solver := fs.String("solver", "", "LP solver (see `cli solvers`)")
	rows := fs.Int("rows", 0, "Optional: limit to first N snapshots (0=all)")
	verify := fs.Bool("verify", false, "Check the solution against the network constraints")
	bypassFile := fs.String("bypass-file", "", "Optional: bypass preset YAML (bypass scenario only)")
	noCharts := fs.Bool("no-charts", false, "Skip PNG charts")
	_ = fs.Parse(args)

	cfg := config.Default()
	cfg.Output.Charts = true
	cfg.Output.Summary = true
	cfg.Output.Ledger = true
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}
	cfg.Scenarios = []string{string(sc)}

	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *solver != "" {
		cfg.Solver.Name = *solver
	}
	if *rows > 0 {
		cfg.Data.Rows = *rows
	}
	if *verify && cfg.Solver.VerifyTol == 0 {
		cfg.Solver.VerifyTol = 1e-4
	}
	if *noCharts {
		cfg.Output.Charts = false
	}
	if *bypassFile != "" {
		if sc != simulate.ScenarioBypass {
			panic(fmt.Errorf("--bypass-file only applies to the bypass scenario"))
		}
		b, err := config.LoadBypassFile(*bypassFile)
		if err != nil {
			panic(err)
		}
		cfg.Bypass = config.MergeBypass(cfg.Bypass, b)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	mustRun(cfg)
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	mustRun(cfg)
}

func cmdSolvers() {
	fmt.Printf("%-10s %-10s\n", "solver", "available")
	for _, name := range optimize.Names() {
		s, err := optimize.Lookup(name)
		if err != nil {
			panic(err)
		}
		available := true
		if a, ok := s.(interface{ Available() bool }); ok {
			available = a.Available()
		}
		fmt.Printf("%-10s %-10v\n", name, available)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	sinks, err := export.FromConfig(ctx, cfg.Export)
	if err != nil {
		return err
	}
	defer export.CloseAll(sinks)

	out := cfg.OutputDir()
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}

	// Solve everything before writing so a failed scenario leaves no output.
	engine := simulate.New()
	var results []*simulate.Result
	var summaries []analysis.Summary
	for _, name := range cfg.Scenarios {
		sc, err := simulate.ParseScenario(name)
		if err != nil {
			return err
		}
		res, err := engine.Run(ctx, cfg.RunSpec(sc))
		if err != nil {
			return err
		}
		s, err := analysis.Summarize(res.Network)
		if err != nil {
			return err
		}
		results = append(results, res)
		summaries = append(summaries, s)
	}

	if cfg.Output.Charts {
		var charts []report.Chart
		for _, res := range results {
			c, err := report.RenderCharts(res.Network, out)
			if err != nil {
				return err
			}
			charts = append(charts, c...)
		}
		paths, err := report.SaveCharts(charts)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", strings.Join(paths, ", "))
	}
	for _, res := range results {
		if cfg.Output.Ledger {
			path := filepath.Join(out, fmt.Sprintf("ledger-%s.csv", res.Scenario))
			if err := simulate.WriteLedgerCSV(path, res.Ledger); err != nil {
				return err
			}
			fmt.Printf("Wrote %d rows to %s\n", len(res.Ledger), path)
		}
		if err := export.ExportAll(ctx, sinks, res); err != nil {
			return err
		}
		fmt.Printf("%s: run=%s status=%s objective=%.2f EUR (%d snapshots, %s)\n",
			res.Scenario, res.RunID, res.Status, res.Objective, len(res.Ledger), res.Duration.Round(time.Millisecond))
	}

	if cfg.Output.Summary {
		path := filepath.Join(out, report.SummaryFile)
		if err := report.WriteSummaryFile(path, summaries...); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}
	if len(summaries) == 2 {
		cmp := analysis.Compare(summaries[0], summaries[1])
		fmt.Printf("Savings=%.2f EUR (%.1f%%) Gas reduction=%.1f MWh\n", cmp.SavingsEUR, cmp.SavingsPct, cmp.GasReductionMWh)
	}
	return nil
}

// mustRun runs cfg until done or interrupted and panics on failure.
func mustRun(cfg *config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}
