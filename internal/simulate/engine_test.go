package simulate

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hydrogen-bypass/internal/data"
	"hydrogen-bypass/internal/model"
	"hydrogen-bypass/internal/optimize"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dataDir = "../../timeseries_data"

func hourly(name string, values ...float64) *data.Series {
	start := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	s := data.Series{Name: name, Values: values}
	for i := range values {
		s.Index = append(s.Index, start.Add(time.Duration(i)*time.Hour))
	}
	return &s
}

func TestRunBaseline(t *testing.T) {
	res, err := New().Run(context.Background(), DefaultRunSpec(ScenarioBaseline, dataDir))
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Equal(t, optimize.StatusOptimal, res.Status)
	assert.Equal(t, "simplex", res.Solver)
	assert.Len(t, res.Ledger, 24)
	assert.InEpsilon(t, 188070.0, res.Objective, 1e-3)
	assert.InDelta(t, res.Objective, res.TotalCost, 1e-6)

	for _, row := range res.Ledger {
		assert.Equal(t, model.ActionIdle, row.Action)
		assert.Zero(t, row.ElectrolyzerMW)
		assert.InDelta(t, row.DemandMW, row.GasMW+row.LineFlowMW, 1e-4)
		assert.GreaterOrEqual(t, row.CurtailedMW, 0.0)
	}
}

func TestRunBypassLedger(t *testing.T) {
	spec := DefaultRunSpec(ScenarioBypass, dataDir)
	spec.VerifyTol = 1e-4
	res, err := New().Run(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, "bypass", res.Network.Name)
	assert.InEpsilon(t, 144673.8, res.Objective, 1e-3)

	var charging bool
	for _, row := range res.Ledger {
		// Bus 2: gas + line + fuel cell = demand
		assert.InDelta(t, row.DemandMW, row.GasMW+row.LineFlowMW+row.FuelCellMW, 1e-4, "row %d", row.Index)
		if row.Action == model.ActionCharging {
			charging = true
			assert.Less(t, row.StorePowerMW, 0.0)
		}
	}
	assert.True(t, charging, "surplus wind should be stored")
}

func TestRunDistinctIDs(t *testing.T) {
	e := New()
	spec := RunSpec{Scenario: ScenarioBaseline, Wind: hourly("w", 10, 20), Demand: hourly("d", -100, -300)}
	spec.Baseline = DefaultRunSpec(ScenarioBaseline, "").Baseline
	a, err := e.Run(context.Background(), spec)
	require.NoError(t, err)
	b, err := e.Run(context.Background(), spec)
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.InDelta(t, 14950.0, a.Objective, 1e-6)
}

func TestRunRowsLimit(t *testing.T) {
	spec := DefaultRunSpec(ScenarioBaseline, dataDir)
	spec.Rows = 6
	res, err := New().Run(context.Background(), spec)
	require.NoError(t, err)
	assert.Len(t, res.Ledger, 6)
}

func TestRunMaxSnapshots(t *testing.T) {
	spec := DefaultRunSpec(ScenarioBaseline, dataDir)
	spec.MaxSnapshots = 12
	_, err := New().Run(context.Background(), spec)
	assert.ErrorIs(t, err, ErrBuild)
	assert.ErrorContains(t, err, "limit of 12")

	spec.Rows = 12
	res, err := New().Run(context.Background(), spec)
	require.NoError(t, err)
	assert.Len(t, res.Ledger, 12)
}

func TestRunErrors(t *testing.T) {
	e := New()

	_, err := e.Run(context.Background(), RunSpec{Scenario: "nope"})
	assert.ErrorIs(t, err, ErrBuild)

	spec := DefaultRunSpec(ScenarioBaseline, "does-not-exist")
	_, err = e.Run(context.Background(), spec)
	assert.ErrorIs(t, err, ErrDataLoad)

	spec = DefaultRunSpec(ScenarioBaseline, "")
	spec.Wind = hourly("w", 10, 20)
	spec.Demand = hourly("d", -1000, -1000)
	_, err = e.Run(context.Background(), spec)
	assert.ErrorIs(t, err, optimize.ErrInfeasible)
	assert.Equal(t, optimize.StatusInfeasible, optimize.StatusFromError(err))

	spec.Demand = hourly("d", -100, -300)
	spec.Solver = "cplex"
	_, err = e.Run(context.Background(), spec)
	assert.ErrorIs(t, err, optimize.ErrSolver)
}

func TestCompare(t *testing.T) {
	base, bypass, err := New().Compare(context.Background(), DefaultRunSpec(ScenarioBypass, dataDir))
	require.NoError(t, err)
	assert.Equal(t, ScenarioBaseline, base.Scenario)
	assert.Equal(t, ScenarioBypass, bypass.Scenario)
	assert.Less(t, bypass.Objective, base.Objective)
}

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario("pre-bypass")
	require.NoError(t, err)
	assert.Equal(t, ScenarioBaseline, s)
	_, err = ParseScenario("hydrogen")
	assert.Error(t, err)
}

func TestWriteLedgerCSV(t *testing.T) {
	spec := DefaultRunSpec(ScenarioBypass, dataDir)
	spec.Rows = 4
	res, err := New().Run(context.Background(), spec)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, WriteLedgerCSV(path, res.Ledger))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, ledgerHeader, records[0])
	assert.Equal(t, "0", records[1][0])
	assert.Equal(t, "2005-01-01T00:00:00Z", records[1][1])
	assert.Equal(t, fmtFloat(res.Ledger[3].CumCost), records[4][14])
}
