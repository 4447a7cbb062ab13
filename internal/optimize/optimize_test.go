package optimize

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"hydrogen-bypass/internal/data"
	"hydrogen-bypass/internal/metrics"
	"hydrogen-bypass/internal/model"
	"hydrogen-bypass/internal/scenario"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceInputs(t *testing.T) (data.Series, data.Series) {
	t.Helper()
	wind, err := data.LoadSeriesCSV("../../timeseries_data/wind_resource.csv", "windlocation")
	require.NoError(t, err)
	demand, err := data.LoadSeriesCSV("../../timeseries_data/demand.csv", "city")
	require.NoError(t, err)
	return wind, demand
}

func hourly(name string, values ...float64) data.Series {
	start := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	s := data.Series{Name: name, Values: values}
	for i := range values {
		s.Index = append(s.Index, start.Add(time.Duration(i)*time.Hour))
	}
	return s
}

func TestOptimizeBaselineObjective(t *testing.T) {
	wind, demand := referenceInputs(t)
	n, err := scenario.BuildBaseline(wind, demand, scenario.DefaultBaselineParams())
	require.NoError(t, err)

	status, err := Optimize(context.Background(), n, "simplex")
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, status)

	r, ok := n.Results()
	require.True(t, ok)
	assert.InEpsilon(t, 188070.0, r.Objective, 1e-3)
	require.NoError(t, CheckBalance(n, 1e-4))

	// Wind is cheapest, so the line carries wind up to its rating.
	line := r.LineP0[scenario.LineName]
	for i, f := range line {
		assert.LessOrEqual(t, f, 400.0+1e-6, "snapshot %d", i)
	}
}

func TestOptimizeBypassObjective(t *testing.T) {
	wind, demand := referenceInputs(t)
	n, err := scenario.BuildBypass(wind, demand, scenario.DefaultBaselineParams(), scenario.DefaultBypassParams())
	require.NoError(t, err)

	status, err := Optimize(context.Background(), n, "gonum")
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, status)

	r, _ := n.Results()
	assert.InEpsilon(t, 144673.8, r.Objective, 1e-3)
	require.NoError(t, CheckBalance(n, 1e-4))

	el := r.LinkP0[scenario.ElectrolysisLink]
	fc := r.LinkP0[scenario.FuelCellLink]
	var produced, used float64
	for i := range el {
		produced += 0.7 * el[i]
		used += fc[i]
	}
	e := r.StoreE[scenario.HydrogenStore]
	// Whatever hydrogen is produced is either re-electrified or left in the store.
	assert.InDelta(t, produced-used, e[len(e)-1], 1e-4)
}

func TestBypassNeverCostsMore(t *testing.T) {
	wind, demand := referenceInputs(t)
	base, err := scenario.BuildBaseline(wind, demand, scenario.DefaultBaselineParams())
	require.NoError(t, err)
	bypass, err := scenario.BuildBypass(wind, demand, scenario.DefaultBaselineParams(), scenario.DefaultBypassParams())
	require.NoError(t, err)

	_, err = Optimize(context.Background(), base, "simplex")
	require.NoError(t, err)
	_, err = Optimize(context.Background(), bypass, "simplex")
	require.NoError(t, err)
	rb, _ := base.Results()
	rh, _ := bypass.Results()
	assert.LessOrEqual(t, rh.Objective, rb.Objective+1e-6)
}

func TestOptimizeSmallNetworkExact(t *testing.T) {
	n, err := scenario.BuildBaseline(hourly("w", 10, 20), hourly("d", -100, -300), scenario.DefaultBaselineParams())
	require.NoError(t, err)
	status, err := Optimize(context.Background(), n, "simplex")
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, status)

	r, _ := n.Results()
	assert.InDelta(t, 14950.0, r.Objective, 1e-6)
	assert.InDeltaSlice(t, []float64{10, 20}, r.GeneratorP[scenario.WindGenerator], 1e-6)
	assert.InDeltaSlice(t, []float64{90, 280}, r.GeneratorP[scenario.GasGenerator], 1e-6)
}

func TestOptimizeInfeasible(t *testing.T) {
	// Demand exceeds gas plus everything the line can carry.
	n, err := scenario.BuildBaseline(hourly("w", 10, 20), hourly("d", -1000, -1000), scenario.DefaultBaselineParams())
	require.NoError(t, err)
	status, err := Optimize(context.Background(), n, "simplex")
	assert.Equal(t, StatusInfeasible, status)
	assert.ErrorIs(t, err, ErrInfeasible)
	_, ok := n.Results()
	assert.False(t, ok)
}

func TestOptimizeIsolatedLoadInfeasible(t *testing.T) {
	n := model.NewNetwork("island")
	require.NoError(t, n.SetSnapshots(hourly("x", 0).Index))
	require.NoError(t, n.AddBus(model.Bus{Name: "a"}))
	require.NoError(t, n.AddLoad(model.Load{Name: "l", Bus: "a", PSet: model.Series{5}}))
	status, err := Optimize(context.Background(), n, "simplex")
	assert.Equal(t, StatusInfeasible, status)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestOptimizeUnknownSolver(t *testing.T) {
	n, err := scenario.BuildBaseline(hourly("w", 10, 20), hourly("d", -100, -300), scenario.DefaultBaselineParams())
	require.NoError(t, err)
	status, err := Optimize(context.Background(), n, "cplex")
	assert.Equal(t, StatusSolverError, status)
	assert.ErrorIs(t, err, ErrSolver)
	assert.ErrorContains(t, err, "simplex")
	assert.False(t, n.Frozen())
}

func TestOptimizeTwiceRejected(t *testing.T) {
	n, err := scenario.BuildBaseline(hourly("w", 10, 20), hourly("d", -100, -300), scenario.DefaultBaselineParams())
	require.NoError(t, err)
	_, err = Optimize(context.Background(), n, "simplex")
	require.NoError(t, err)
	status, err := Optimize(context.Background(), n, "simplex")
	assert.Equal(t, StatusSolverError, status)
	assert.ErrorIs(t, err, ErrAlreadySolved)
}

func TestOptimizeFreezesTopology(t *testing.T) {
	n, err := scenario.BuildBaseline(hourly("w", 10, 20), hourly("d", -100, -300), scenario.DefaultBaselineParams())
	require.NoError(t, err)
	_, err = Optimize(context.Background(), n, "simplex")
	require.NoError(t, err)
	_, err = scenario.AddHydrogenBypass(n, scenario.DefaultBypassParams())
	assert.ErrorIs(t, err, model.ErrFrozen)
}

func TestOptimizeCancelledContext(t *testing.T) {
	n, err := scenario.BuildBaseline(hourly("w", 10, 20), hourly("d", -100, -300), scenario.DefaultBaselineParams())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	status, err := Optimize(ctx, n, "simplex")
	assert.Equal(t, StatusSolverError, status)
	assert.ErrorIs(t, err, ErrSolver)
}

func TestCyclicStoreEndsWhereItStarts(t *testing.T) {
	wind, demand := referenceInputs(t)
	hp := scenario.DefaultBypassParams()
	hp.StoreECyclic = true
	n, err := scenario.BuildBypass(wind, demand, scenario.DefaultBaselineParams(), hp)
	require.NoError(t, err)
	_, err = Optimize(context.Background(), n, "simplex")
	require.NoError(t, err)
	require.NoError(t, CheckBalance(n, 1e-4))
}

func TestCheckBalanceDetectsViolation(t *testing.T) {
	n, err := scenario.BuildBaseline(hourly("w", 10, 20), hourly("d", -100, -300), scenario.DefaultBaselineParams())
	require.NoError(t, err)
	assert.ErrorIs(t, CheckBalance(n, 1e-6), ErrImbalance)

	n.Freeze()
	r := model.NewResults()
	r.GeneratorP[scenario.WindGenerator] = model.Series{10, 20}
	r.GeneratorP[scenario.GasGenerator] = model.Series{0, 0}
	r.LineP0[scenario.LineName] = model.Series{10, 20}
	require.NoError(t, n.SetResults(r))
	assert.ErrorIs(t, CheckBalance(n, 1e-6), ErrImbalance)
}

func TestLookupSolvers(t *testing.T) {
	s, err := Lookup(" Simplex ")
	require.NoError(t, err)
	assert.Equal(t, "simplex", s.Name())
	assert.Contains(t, Names(), "glpk")
	_, err = Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownSolver)
}

func TestFormulateDimensions(t *testing.T) {
	n, err := scenario.BuildBaseline(hourly("w", 10, 20), hourly("d", -100, -300), scenario.DefaultBaselineParams())
	require.NoError(t, err)
	p, err := Formulate(n)
	require.NoError(t, err)
	// 2 gens + 1 line per snapshot, each with an upper-bound slack.
	assert.Equal(t, 6, p.NumStructural)
	rows, cols := p.Dims()
	assert.Equal(t, 2*2+6, rows)
	assert.Equal(t, 12, cols)
	assert.Equal(t, "p[Offwind,0]", p.ColNames[0])
}

func TestWriteMPS(t *testing.T) {
	n, err := scenario.BuildBaseline(hourly("w", 10), hourly("d", -100), scenario.DefaultBaselineParams())
	require.NoError(t, err)
	p, err := Formulate(n)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteMPS(&buf, p))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "NAME dispatch\nROWS\n N obj\n"))
	assert.Contains(t, out, " c1 obj 5\n")
	assert.Contains(t, out, " c2 obj 40\n")
	assert.Contains(t, out, "RHS")
	assert.True(t, strings.HasSuffix(out, "ENDATA\n"))
}

func TestParseGLPKSolution(t *testing.T) {
	in := `c Problem:    dispatch
c Status:     OPTIMAL
s bas 4 3 f f 14950
i 1 b 14950 0
j 1 b 10 0
j 2 b 90 0
j 3 l 0 5
e o f
`
	sol, err := ParseGLPKSolution(strings.NewReader(in), 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 90, 0}, sol.X)
	assert.Equal(t, 14950.0, sol.Objective)

	_, err = ParseGLPKSolution(strings.NewReader("s bas 4 3 n f 0\n"), 3)
	assert.ErrorIs(t, err, ErrInfeasible)

	_, err = ParseGLPKSolution(strings.NewReader("s bas 4 3 f u 0\n"), 3)
	assert.ErrorIs(t, err, ErrSolver)

	_, err = ParseGLPKSolution(strings.NewReader("j 9 b 1 0\ns bas 1 1 f f 0\n"), 3)
	assert.ErrorIs(t, err, ErrSolver)

	_, err = ParseGLPKSolution(strings.NewReader(""), 3)
	assert.ErrorIs(t, err, ErrSolver)
}

func TestGLPKMissingBinary(t *testing.T) {
	s := NewGLPKSolver("/nonexistent/glpsol")
	assert.False(t, s.Available())
	n, err := scenario.BuildBaseline(hourly("w", 10), hourly("d", -100), scenario.DefaultBaselineParams())
	require.NoError(t, err)
	p, err := Formulate(n)
	require.NoError(t, err)
	_, err = s.Solve(context.Background(), p)
	assert.ErrorIs(t, err, ErrSolver)
}

func TestGLPKMatchesSimplex(t *testing.T) {
	if !NewGLPKSolver("").Available() {
		t.Skip("glpsol not installed")
	}
	wind, demand := referenceInputs(t)
	n, err := scenario.BuildBypass(wind, demand, scenario.DefaultBaselineParams(), scenario.DefaultBypassParams())
	require.NoError(t, err)
	status, err := Optimize(context.Background(), n, "glpk")
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, status)
	r, _ := n.Results()
	assert.InEpsilon(t, 144673.8, r.Objective, 1e-3)
}

// dayProfiles returns T hourly wind readings and demand between 200 and
// 425 MW, which gas alone can serve.
func dayProfiles(T int) (data.Series, data.Series) {
	wind := make([]float64, T)
	demand := make([]float64, T)
	for t := 0; t < T; t++ {
		wind[t] = float64(100 + (t*37)%300)
		demand[t] = -float64(200 + (t*7%10)*25)
	}
	return hourly("w", wind...), hourly("d", demand...)
}

func TestCyclicStoreLongHorizon(t *testing.T) {
	if testing.Short() {
		t.Skip("long horizon solve")
	}
	wind, demand := dayProfiles(48)
	hp := scenario.DefaultBypassParams()
	hp.StoreECyclic = true
	n, err := scenario.BuildBypass(wind, demand, scenario.DefaultBaselineParams(), hp)
	require.NoError(t, err)

	status, err := Optimize(context.Background(), n, "simplex")
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, status)
	require.NoError(t, CheckBalance(n, 1e-4))

	r, _ := n.Results()
	level := r.StoreE[scenario.HydrogenStore]
	require.Len(t, level, 48)
	low := level[0]
	for _, v := range level {
		low = math.Min(low, v)
	}
	assert.InDelta(t, 0.0, low, 1e-9)
}

func TestCyclicStoreWithBindingCapacity(t *testing.T) {
	wind, demand := referenceInputs(t)
	hp := scenario.DefaultBypassParams()
	hp.StoreECyclic = true
	hp.StoreENom = 300
	n, err := scenario.BuildBypass(wind, demand, scenario.DefaultBaselineParams(), hp)
	require.NoError(t, err)

	_, err = Optimize(context.Background(), n, "simplex")
	require.NoError(t, err)
	require.NoError(t, CheckBalance(n, 1e-4))
	r, _ := n.Results()
	for i, v := range r.StoreE[scenario.HydrogenStore] {
		assert.LessOrEqual(t, v, 300.0+1e-6, "snapshot %d", i)
	}
}

func TestFormulateDropsUnreachableLevelBound(t *testing.T) {
	hasLevelBound := func(p *Problem) bool {
		for _, name := range p.RowNames {
			if strings.HasPrefix(name, "ub[e[") {
				return true
			}
		}
		return false
	}
	wind, demand := hourly("w", 10, 20), hourly("d", -100, -300)

	n, err := scenario.BuildBypass(wind, demand, scenario.DefaultBaselineParams(), scenario.DefaultBypassParams())
	require.NoError(t, err)
	p, err := Formulate(n)
	require.NoError(t, err)
	assert.False(t, hasLevelBound(p))

	// 2 snapshots of 350 MWh electrolysis output overflow 500 MWh.
	hp := scenario.DefaultBypassParams()
	hp.StoreENom = 500
	n, err = scenario.BuildBypass(wind, demand, scenario.DefaultBaselineParams(), hp)
	require.NoError(t, err)
	p, err = Formulate(n)
	require.NoError(t, err)
	assert.True(t, hasLevelBound(p))

	rows, _ := p.Dims()
	require.Len(t, p.Slack, rows)
	for i, name := range p.RowNames {
		if strings.HasPrefix(name, "ub[") {
			assert.GreaterOrEqual(t, p.Slack[i], p.NumStructural, name)
		} else {
			assert.Equal(t, -1, p.Slack[i], name)
		}
	}
}

func TestSimplexRowLimit(t *testing.T) {
	n, err := scenario.BuildBaseline(hourly("w", 10, 20), hourly("d", -100, -300), scenario.DefaultBaselineParams())
	require.NoError(t, err)
	p, err := Formulate(n)
	require.NoError(t, err)

	_, err = (&SimplexSolver{Tol: 1e-9, MaxRows: 5}).Solve(context.Background(), p)
	assert.ErrorIs(t, err, ErrSolver)
	assert.ErrorContains(t, err, "glpk")

	sol, err := NewSimplexSolver().Solve(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 14950.0, sol.Objective, 1e-6)
	assert.Len(t, sol.X, len(p.C))
}

func TestOptimizeMetricsLabelRegisteredSolvers(t *testing.T) {
	build := func() *model.Network {
		n, err := scenario.BuildBaseline(hourly("w", 10), hourly("d", -100), scenario.DefaultBaselineParams())
		require.NoError(t, err)
		return n
	}
	unknown := metrics.OptimizeTotal.WithLabelValues("unknown", string(StatusSolverError))

	_, err := Optimize(context.Background(), build(), "cplex")
	require.Error(t, err)
	series := testutil.CollectAndCount(metrics.OptimizeTotal)
	before := testutil.ToFloat64(unknown)

	_, err = Optimize(context.Background(), build(), "no-such-solver")
	require.Error(t, err)
	assert.Equal(t, series, testutil.CollectAndCount(metrics.OptimizeTotal))
	assert.Equal(t, before+1, testutil.ToFloat64(unknown))
}
