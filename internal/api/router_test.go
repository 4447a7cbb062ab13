package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hydrogen-bypass/internal/api/handlers"
	"hydrogen-bypass/internal/api/models"
	"hydrogen-bypass/internal/data"
	"hydrogen-bypass/internal/simulate"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	runs := data.NewCache[*simulate.Result](time.Hour, 0)
	t.Cleanup(runs.Stop)
	return NewRouter(Options{
		DataDir:     "../../timeseries_data",
		PresetDir:   "../../examples/bypass",
		Runs:        runs,
		CORSOrigins: []string{"http://localhost:5173"},
	})
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorDetail {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func inline(values ...float64) []models.SeriesPoint {
	start := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.SeriesPoint, len(values))
	for i, v := range values {
		out[i] = models.SeriesPoint{
			Timestamp: start.Add(time.Duration(i) * time.Hour).Format("2006-01-02 15:04:05"),
			Value:     v,
		}
	}
	return out
}

func TestHealth(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRunScenarioAndFetchLedger(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/scenarios/run", models.ScenarioRunRequest{
		Scenario: "baseline",
		ScenarioConfig: models.ScenarioConfig{
			Options: models.RunOptions{LimitRows: 24, VerifyTol: 1e-4},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var run models.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "baseline", run.Scenario)
	assert.Equal(t, "pre-bypass", run.Network)
	assert.Equal(t, "optimal", run.Status)
	assert.Equal(t, 24, run.Summary.Snapshots)
	assert.Greater(t, run.Summary.ObjectiveEUR, 0.0)
	assert.Empty(t, run.Ledger)

	w = do(t, r, http.MethodGet, "/api/v1/scenarios/runs/"+run.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var again models.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
	assert.Equal(t, run.ID, again.ID)
	assert.InDelta(t, run.Summary.ObjectiveEUR, again.Summary.ObjectiveEUR, 1e-9)

	w = do(t, r, http.MethodGet, "/api/v1/scenarios/runs/"+run.ID+"/ledger", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ledger struct {
		ID     string             `json:"id"`
		Ledger []models.LedgerRow `json:"ledger"`
		Count  int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ledger))
	assert.Equal(t, 24, ledger.Count)
	assert.Len(t, ledger.Ledger, 24)
	assert.Equal(t, "IDLE", ledger.Ledger[0].Action)
	assert.InDelta(t, run.Summary.ObjectiveEUR, ledger.Ledger[23].CumCost, 1e-3)

	w = do(t, r, http.MethodGet, "/api/v1/scenarios/runs/"+run.ID+"/ledger?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 25)
	assert.True(t, strings.HasPrefix(lines[0], "index,timestamp,"))

	w = do(t, r, http.MethodGet, "/api/v1/scenarios/runs/"+run.ID+"/ledger?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunScenarioInlineSeries(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodPost, "/api/v1/scenarios/run", models.ScenarioRunRequest{
		Scenario: "baseline",
		ScenarioConfig: models.ScenarioConfig{
			DataSource: models.DataSourceConfig{
				Wind:   inline(10, 20),
				Demand: inline(-100, -300),
			},
			Options: models.RunOptions{IncludeLedger: true},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var run models.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.InDelta(t, 14950, run.Summary.ObjectiveEUR, 1e-6)
	require.Len(t, run.Ledger, 2)
	assert.InDelta(t, 90, run.Ledger[0].GasMW, 1e-6)
	assert.InDelta(t, 280, run.Ledger[1].GasMW, 1e-6)
}

func TestRunScenarioZeroWindCost(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodPost, "/api/v1/scenarios/run", map[string]interface{}{
		"scenario": "baseline",
		"network":  map[string]interface{}{"wind_marginal_cost": 0},
		"data_source": models.DataSourceConfig{
			Wind:   inline(10, 20),
			Demand: inline(-100, -300),
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var run models.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	// Only the 370 MWh of gas at 40 EUR/MWh remain.
	assert.InDelta(t, 14800, run.Summary.ObjectiveEUR, 1e-6)
}

func TestRunScenarioInfeasible(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodPost, "/api/v1/scenarios/run", models.ScenarioRunRequest{
		Scenario: "baseline",
		ScenarioConfig: models.ScenarioConfig{
			DataSource: models.DataSourceConfig{
				Wind:   inline(10, 20),
				Demand: inline(-1000, -1000),
			},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	detail := decodeError(t, w)
	assert.Equal(t, "INFEASIBLE", detail.Code)
	assert.Equal(t, "infeasible", detail.Details["status"])
}

func TestRunScenarioRejectsBadRequests(t *testing.T) {
	r := newTestRouter(t)
	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"malformed", "not an object", http.StatusBadRequest, "INVALID_REQUEST"},
		{"missing scenario", map[string]string{}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown scenario", models.ScenarioRunRequest{Scenario: "tidal"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{
			"unknown solver",
			models.ScenarioRunRequest{Scenario: "bypass", ScenarioConfig: models.ScenarioConfig{Solver: "cplex"}},
			http.StatusBadRequest, "INVALID_REQUEST",
		},
		{
			"path outside data dir",
			models.ScenarioRunRequest{Scenario: "baseline", ScenarioConfig: models.ScenarioConfig{
				DataSource: models.DataSourceConfig{WindFile: "../go.mod"},
			}},
			http.StatusBadRequest, "INVALID_REQUEST",
		},
		{
			"missing data file",
			models.ScenarioRunRequest{Scenario: "baseline", ScenarioConfig: models.ScenarioConfig{
				DataSource: models.DataSourceConfig{WindFile: "nope.csv"},
			}},
			http.StatusBadRequest, "DATA_LOAD_ERROR",
		},
		{
			"unknown preset",
			models.ScenarioRunRequest{Scenario: "bypass", ScenarioConfig: models.ScenarioConfig{BypassPreset: "nope"}},
			http.StatusNotFound, "NOT_FOUND",
		},
		{
			"bad efficiency",
			models.ScenarioRunRequest{Scenario: "bypass", ScenarioConfig: models.ScenarioConfig{
				Bypass: models.BypassConfig{FuelCellEfficiency: 1.5},
			}},
			http.StatusBadRequest, "INVALID_CONFIG",
		},
		{
			"negative rows",
			models.ScenarioRunRequest{Scenario: "baseline", ScenarioConfig: models.ScenarioConfig{
				Options: models.RunOptions{LimitRows: -1},
			}},
			http.StatusBadRequest, "INVALID_REQUEST",
		},
		{
			"rows above limit",
			models.ScenarioRunRequest{Scenario: "baseline", ScenarioConfig: models.ScenarioConfig{
				Options: models.RunOptions{LimitRows: handlers.MaxSnapshots + 1},
			}},
			http.StatusBadRequest, "INVALID_REQUEST",
		},
		{
			"inline series above limit",
			models.ScenarioRunRequest{Scenario: "bypass", ScenarioConfig: models.ScenarioConfig{
				DataSource: models.DataSourceConfig{Demand: inline(make([]float64, handlers.MaxSnapshots+1)...)},
			}},
			http.StatusBadRequest, "INVALID_REQUEST",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/v1/scenarios/run", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestCompareScenarios(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/scenarios/compare", models.CompareRequest{
		ScenarioConfig: models.ScenarioConfig{
			BypassPreset: "reference",
			Options:      models.RunOptions{LimitRows: 48},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.CompareResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "baseline", resp.Baseline.Scenario)
	assert.Equal(t, "bypass", resp.Bypass.Scenario)
	assert.NotEqual(t, resp.Baseline.ID, resp.Bypass.ID)
	assert.LessOrEqual(t, resp.Bypass.Summary.ObjectiveEUR, resp.Baseline.Summary.ObjectiveEUR+1e-6)
	assert.InDelta(t, resp.Baseline.Summary.ObjectiveEUR-resp.Bypass.Summary.ObjectiveEUR, resp.SavingsEUR, 1e-6)

	require.Len(t, resp.Rankings, 2)
	assert.Equal(t, 1, resp.Rankings[0].Rank)
	assert.LessOrEqual(t, resp.Rankings[0].ObjectiveEUR, resp.Rankings[1].ObjectiveEUR)
	for _, rk := range resp.Rankings {
		assert.Contains(t, []string{resp.Baseline.ID, resp.Bypass.ID}, rk.RunID)
	}

	// Both runs are retrievable afterwards.
	for _, id := range []string{resp.Baseline.ID, resp.Bypass.ID} {
		assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/v1/scenarios/runs/"+id, nil).Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/api/v1/scenarios/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)

	w = do(t, r, http.MethodGet, "/api/v1/scenarios/runs/missing/ledger", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPresets(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/api/v1/presets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Presets []models.PresetInfo `json:"presets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Presets, 3)
	assert.Equal(t, "cyclic-store", resp.Presets[0].Name)
	assert.Equal(t, "reference", resp.Presets[1].ID)
	assert.Equal(t, 500.0, resp.Presets[1].Specs.FuelCellPNom)
	assert.Equal(t, 0.7, resp.Presets[1].Specs.ElectrolyzerEfficiency)
}

func TestListSolvers(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/api/v1/solvers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Solvers []models.SolverInfo `json:"solvers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	byName := map[string]bool{}
	for _, s := range resp.Solvers {
		byName[s.Name] = s.Available
	}
	assert.True(t, byName["simplex"])
	assert.Contains(t, byName, "glpk")
}

func TestListDatasets(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/api/v1/datasets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Datasets []models.DatasetInfo `json:"datasets"`
		Count    int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "demand.csv", resp.Datasets[0].File)
	assert.Equal(t, []string{"city"}, resp.Datasets[0].Columns)
	assert.Equal(t, "wind_resource.csv", resp.Datasets[1].File)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodGet, "/health", nil)
	w := do(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hydrogen_bypass_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/scenarios/run", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)
}
