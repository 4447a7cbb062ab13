// Package simulate runs a scenario end to end: load inputs, build the
// network, optimize, verify and produce a per-snapshot ledger.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"hydrogen-bypass/internal/data"
	"hydrogen-bypass/internal/metrics"
	"hydrogen-bypass/internal/model"
	"hydrogen-bypass/internal/optimize"
	"hydrogen-bypass/internal/scenario"

	"github.com/google/uuid"
)

// Scenario selects which network a run builds.
type Scenario string

const (
	ScenarioBaseline Scenario = "baseline"
	ScenarioBypass   Scenario = "bypass"
)

func ParseScenario(s string) (Scenario, error) {
	switch Scenario(s) {
	case ScenarioBaseline, "pre-bypass":
		return ScenarioBaseline, nil
	case ScenarioBypass:
		return ScenarioBypass, nil
	default:
		return "", fmt.Errorf("unknown scenario %q (want baseline or bypass)", s)
	}
}

var (
	// ErrDataLoad wraps failures reading the input series.
	ErrDataLoad = errors.New("data load failed")
	// ErrBuild wraps invalid network parameters or inputs.
	ErrBuild = errors.New("network build failed")
)

// RunSpec describes one run. Wind and Demand, when set, take precedence over the files.
type RunSpec struct {
	Scenario Scenario

	WindFile     string
	WindColumn   string
	DemandFile   string
	DemandColumn string
	Wind         *data.Series
	Demand       *data.Series
	// Rows limits the inputs to their first n rows when > 0.
	Rows int
	// MaxSnapshots rejects longer inputs, after Rows is applied, when > 0.
	MaxSnapshots int

	Baseline scenario.BaselineParams
	Bypass   scenario.BypassParams

	Solver string
	// VerifyTol enables a post-solve balance check when > 0.
	VerifyTol float64
}

// DefaultRunSpec reads the reference inputs from dataDir with the default parameters.
func DefaultRunSpec(sc Scenario, dataDir string) RunSpec {
	return RunSpec{
		Scenario:     sc,
		WindFile:     filepath.Join(dataDir, "wind_resource.csv"),
		WindColumn:   "windlocation",
		DemandFile:   filepath.Join(dataDir, "demand.csv"),
		DemandColumn: "city",
		Baseline:     scenario.DefaultBaselineParams(),
		Bypass:       scenario.DefaultBypassParams(),
		Solver:       "simplex",
	}
}

func (s RunSpec) Validate() error {
	if _, err := ParseScenario(string(s.Scenario)); err != nil {
		return err
	}
	if s.Wind == nil && s.WindFile == "" {
		return errors.New("wind input is required")
	}
	if s.Demand == nil && s.DemandFile == "" {
		return errors.New("demand input is required")
	}
	if s.Rows < 0 {
		return errors.New("rows must be >= 0")
	}
	if s.MaxSnapshots < 0 {
		return errors.New("max snapshots must be >= 0")
	}
	if s.VerifyTol < 0 {
		return errors.New("verify tolerance must be >= 0")
	}
	return nil
}

type Engine struct {
	newID func() string
}

func New() *Engine { return &Engine{newID: uuid.NewString} }

// Run executes one scenario. On failure the returned error wraps the cause and
// the status is reported through optimize.StatusFromError.
func (e *Engine) Run(ctx context.Context, spec RunSpec) (*Result, error) {
	res, err := e.run(ctx, spec)
	status := optimize.StatusFromError(err)
	if err != nil && !errors.Is(err, optimize.ErrInfeasible) && !errors.Is(err, optimize.ErrSolver) {
		status = "error"
	}
	metrics.RunsTotal.WithLabelValues(string(status)).Inc()
	return res, err
}

func (e *Engine) run(ctx context.Context, spec RunSpec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}
	if spec.Solver == "" {
		spec.Solver = "simplex"
	}
	started := time.Now()

	wind, demand, err := loadInputs(spec)
	if err != nil {
		return nil, err
	}

	var n *model.Network
	switch spec.Scenario {
	case ScenarioBypass:
		n, err = scenario.BuildBypass(wind, demand, spec.Baseline, spec.Bypass)
	default:
		n, err = scenario.BuildBaseline(wind, demand, spec.Baseline)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s network: %w", ErrBuild, spec.Scenario, err)
	}

	status, err := optimize.Optimize(ctx, n, spec.Solver)
	if err != nil {
		return nil, fmt.Errorf("optimize %s network: %w", spec.Scenario, err)
	}
	if spec.VerifyTol > 0 {
		if err := optimize.CheckBalance(n, spec.VerifyTol); err != nil {
			return nil, fmt.Errorf("verify %s network: %w", spec.Scenario, err)
		}
	}

	ledger, err := BuildLedger(n)
	if err != nil {
		return nil, err
	}
	r, _ := n.Results()
	res := &Result{
		RunID:     e.newID(),
		Scenario:  spec.Scenario,
		Solver:    spec.Solver,
		Status:    status,
		Network:   n,
		Ledger:    ledger,
		Objective: r.Objective,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	if len(ledger) > 0 {
		res.TotalCost = ledger[len(ledger)-1].CumCost
	}
	log.Printf("[Simulate] run %s (%s): %d snapshots, objective=%.2f EUR", res.RunID, spec.Scenario, len(ledger), res.Objective)
	return res, nil
}

// Compare runs the baseline and bypass scenarios on the same inputs.
func (e *Engine) Compare(ctx context.Context, spec RunSpec) (baseline, bypass *Result, err error) {
	b := spec
	b.Scenario = ScenarioBaseline
	baseline, err = e.Run(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	h := spec
	h.Scenario = ScenarioBypass
	bypass, err = e.Run(ctx, h)
	if err != nil {
		return nil, nil, err
	}
	return baseline, bypass, nil
}

func loadInputs(spec RunSpec) (data.Series, data.Series, error) {
	var wind, demand data.Series
	if spec.Wind != nil {
		wind = *spec.Wind
	} else {
		s, err := data.LoadSeries(spec.WindFile, spec.WindColumn)
		if err != nil {
			return data.Series{}, data.Series{}, fmt.Errorf("%w: wind: %w", ErrDataLoad, err)
		}
		wind = s
	}
	if spec.Demand != nil {
		demand = *spec.Demand
	} else {
		s, err := data.LoadSeries(spec.DemandFile, spec.DemandColumn)
		if err != nil {
			return data.Series{}, data.Series{}, fmt.Errorf("%w: demand: %w", ErrDataLoad, err)
		}
		demand = s
	}
	if spec.Rows > 0 {
		wind = wind.Head(spec.Rows)
		demand = demand.Head(spec.Rows)
	}
	if limit := spec.MaxSnapshots; limit > 0 && (wind.Len() > limit || demand.Len() > limit) {
		return data.Series{}, data.Series{}, fmt.Errorf("%w: %d wind and %d demand rows exceed the limit of %d snapshots",
			ErrBuild, wind.Len(), demand.Len(), limit)
	}
	return wind, demand, nil
}
