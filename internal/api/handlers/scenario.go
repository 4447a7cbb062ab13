package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"hydrogen-bypass/internal/analysis"
	"hydrogen-bypass/internal/api/models"
	"hydrogen-bypass/internal/config"
	"hydrogen-bypass/internal/data"
	"hydrogen-bypass/internal/export"
	"hydrogen-bypass/internal/optimize"
	"hydrogen-bypass/internal/simulate"

	"github.com/gin-gonic/gin"
)

// MaxSnapshots caps the horizon of a single API run.
const MaxSnapshots = 96

// ScenarioHandler runs baseline and bypass scenarios and keeps finished runs
// in a TTL cache for ledger retrieval
type ScenarioHandler struct {
	engine    *simulate.Engine
	runs      *data.Cache[*simulate.Result]
	dataDir   string
	presetDir string
	sinks     []export.Sink
}

// NewScenarioHandler creates a new scenario handler. Every finished run is
// also sent to sinks; export failures are logged and do not fail the request.
func NewScenarioHandler(engine *simulate.Engine, runs *data.Cache[*simulate.Result], dataDir, presetDir string, sinks []export.Sink) *ScenarioHandler {
	if engine == nil {
		engine = simulate.New()
	}
	return &ScenarioHandler{
		engine:    engine,
		runs:      runs,
		dataDir:   dataDir,
		presetDir: presetDir,
		sinks:     sinks,
	}
}

// RunScenario handles POST /api/v1/scenarios/run
func (h *ScenarioHandler) RunScenario(c *gin.Context) {
	var req models.ScenarioRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	sc, err := simulate.ParseScenario(strings.TrimSpace(req.Scenario))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	spec, err := h.buildSpec(sc, req.ScenarioConfig)
	if err != nil {
		respondRunError(c, err)
		return
	}

	log.Printf("[API] running %s scenario (solver=%s, rows=%d)", sc, spec.Solver, spec.Rows)
	res, err := h.engine.Run(c.Request.Context(), spec)
	if err != nil {
		log.Printf("[API] %s run failed: %v", sc, err)
		respondRunError(c, err)
		return
	}
	h.finish(c.Request.Context(), res)

	resp, err := buildRunResponse(res, req.Options.IncludeLedger)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CompareScenarios handles POST /api/v1/scenarios/compare
func (h *ScenarioHandler) CompareScenarios(c *gin.Context) {
	var req models.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	spec, err := h.buildSpec(simulate.ScenarioBaseline, req.ScenarioConfig)
	if err != nil {
		respondRunError(c, err)
		return
	}

	baseline, bypass, err := h.engine.Compare(c.Request.Context(), spec)
	if err != nil {
		log.Printf("[API] compare failed: %v", err)
		respondRunError(c, err)
		return
	}
	h.finish(c.Request.Context(), baseline)
	h.finish(c.Request.Context(), bypass)

	baseSummary, err := analysis.Summarize(baseline.Network)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}
	bypassSummary, err := analysis.Summarize(bypass.Network)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}

	cmp := analysis.Compare(baseSummary, bypassSummary)
	ids := map[string]string{
		cmp.Baseline.Network: baseline.RunID,
		cmp.Bypass.Network:   bypass.RunID,
	}
	rankings := []models.Ranking{}
	for _, r := range analysis.RankByCost([]analysis.Summary{cmp.Baseline, cmp.Bypass}) {
		rankings = append(rankings, models.Ranking{
			Rank:         r.Rank,
			RunID:        ids[r.Network],
			Network:      r.Network,
			ObjectiveEUR: r.Objective,
		})
	}

	c.JSON(http.StatusOK, models.CompareResponse{
		Baseline:                newRunResponse(baseline, baseSummary, req.Options.IncludeLedger),
		Bypass:                  newRunResponse(bypass, bypassSummary, req.Options.IncludeLedger),
		SavingsEUR:              cmp.SavingsEUR,
		SavingsPct:              cmp.SavingsPct,
		GasReductionMWh:         cmp.GasReductionMWh,
		CurtailmentReductionMWh: cmp.CurtailmentDelta,
		Rankings:                rankings,
	})
}

// GetRun handles GET /api/v1/scenarios/runs/:id
func (h *ScenarioHandler) GetRun(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}
	resp, err := buildRunResponse(res, c.Query("include_ledger") == "true")
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetLedger handles GET /api/v1/scenarios/runs/:id/ledger.
// ?format=csv returns the same CSV the CLI writes.
func (h *ScenarioHandler) GetLedger(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}

	switch strings.ToLower(c.DefaultQuery("format", "json")) {
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=ledger-%s.csv", res.RunID))
		c.Status(http.StatusOK)
		if err := simulate.WriteLedger(c.Writer, res.Ledger); err != nil {
			log.Printf("[API] write ledger %s: %v", res.RunID, err)
		}
	case "json":
		c.JSON(http.StatusOK, gin.H{
			"id":     res.RunID,
			"ledger": toLedgerRows(res.Ledger),
			"count":  len(res.Ledger),
		})
	default:
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "format must be json or csv", nil)
	}
}

func (h *ScenarioHandler) lookup(c *gin.Context) (*simulate.Result, bool) {
	id := c.Param("id")
	res, ok := h.runs.Get(id)
	if !ok {
		respondError(c, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("run %q not found or expired", id), nil)
		return nil, false
	}
	return res, true
}

func (h *ScenarioHandler) finish(ctx context.Context, res *simulate.Result) {
	h.runs.Set(res.RunID, res)
	if len(h.sinks) == 0 {
		return
	}
	if err := export.ExportAll(ctx, h.sinks, res); err != nil {
		log.Printf("[API] export run %s: %v", res.RunID, err)
	}
}

// buildSpec turns a request into a run description. Files are resolved
// inside the data directory only.
func (h *ScenarioHandler) buildSpec(sc simulate.Scenario, req models.ScenarioConfig) (simulate.RunSpec, error) {
	spec := simulate.DefaultRunSpec(sc, h.dataDir)

	if name := strings.TrimSpace(req.Solver); name != "" {
		if _, err := optimize.Lookup(name); err != nil {
			return spec, invalidRequest(err)
		}
		spec.Solver = name
	}

	if err := h.applyDataSource(&spec, req.DataSource); err != nil {
		return spec, err
	}

	network := config.MergeNetwork(config.NetworkFromParams(spec.Baseline), config.NetworkConfig{
		LineSNom:         req.Network.LineSNom,
		GasPNom:          req.Network.GasPNom,
		GasMarginalCost:  req.Network.GasMarginalCost,
		GasEfficiency:    req.Network.GasEfficiency,
		WindMarginalCost: req.Network.WindMarginalCost,
		DemandShape: config.DemandShapeConfig{
			SplitIndex: req.Network.DemandShape.SplitIndex,
			Before:     req.Network.DemandShape.Before,
			After:      req.Network.DemandShape.After,
		},
	})
	spec.Baseline = network.ToParams()

	bypass := config.BypassFromParams(spec.Bypass)
	if name := strings.TrimSpace(req.BypassPreset); name != "" {
		preset, found, err := config.FindPreset(h.presetDir, name)
		if err != nil {
			return spec, fmt.Errorf("load presets: %w", err)
		}
		if !found {
			return spec, &requestError{
				status: http.StatusNotFound,
				code:   "NOT_FOUND",
				err:    fmt.Errorf("bypass preset %q not found", name),
			}
		}
		bypass = config.MergeBypass(bypass, preset.Bypass)
	}
	bypass = config.MergeBypass(bypass, config.BypassConfig{
		StoreENom:              req.Bypass.StoreENom,
		StoreEInitial:          req.Bypass.StoreEInitial,
		StoreECyclic:           req.Bypass.StoreECyclic,
		ElectrolyzerPNom:       req.Bypass.ElectrolyzerPNom,
		ElectrolyzerEfficiency: req.Bypass.ElectrolyzerEfficiency,
		FuelCellPNom:           req.Bypass.FuelCellPNom,
		FuelCellEfficiency:     req.Bypass.FuelCellEfficiency,
	})
	if err := bypass.Validate(); err != nil {
		return spec, &requestError{
			status: http.StatusBadRequest,
			code:   "INVALID_CONFIG",
			err:    fmt.Errorf("bypass config invalid: %w", err),
		}
	}
	spec.Bypass = bypass.ToParams()

	if req.Options.LimitRows < 0 {
		return spec, invalidRequest(errors.New("limit_rows must be >= 0"))
	}
	if req.Options.LimitRows > MaxSnapshots {
		return spec, invalidRequest(fmt.Errorf("limit_rows must be <= %d", MaxSnapshots))
	}
	if req.Options.VerifyTol < 0 {
		return spec, invalidRequest(errors.New("verify_tol must be >= 0"))
	}
	spec.Rows = req.Options.LimitRows
	spec.MaxSnapshots = MaxSnapshots
	spec.VerifyTol = req.Options.VerifyTol
	return spec, nil
}

func (h *ScenarioHandler) applyDataSource(spec *simulate.RunSpec, ds models.DataSourceConfig) error {
	if ds.WindFile != "" {
		path, err := h.dataFile(ds.WindFile)
		if err != nil {
			return err
		}
		spec.WindFile = path
	}
	if ds.WindColumn != "" {
		spec.WindColumn = ds.WindColumn
	}
	if ds.DemandFile != "" {
		path, err := h.dataFile(ds.DemandFile)
		if err != nil {
			return err
		}
		spec.DemandFile = path
	}
	if ds.DemandColumn != "" {
		spec.DemandColumn = ds.DemandColumn
	}

	if len(ds.Wind) > MaxSnapshots || len(ds.Demand) > MaxSnapshots {
		return invalidRequest(fmt.Errorf("inline series are limited to %d points", MaxSnapshots))
	}
	if len(ds.Wind) > 0 {
		s, err := seriesFromPoints("wind", ds.Wind)
		if err != nil {
			return invalidRequest(err)
		}
		spec.Wind = &s
	}
	if len(ds.Demand) > 0 {
		s, err := seriesFromPoints("demand", ds.Demand)
		if err != nil {
			return invalidRequest(err)
		}
		spec.Demand = &s
	}
	return nil
}

// dataFile rejects anything but a plain file name in the data directory
func (h *ScenarioHandler) dataFile(name string) (string, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", invalidRequest(fmt.Errorf("invalid data file %q", name))
	}
	return filepath.Join(h.dataDir, name), nil
}

func seriesFromPoints(name string, points []models.SeriesPoint) (data.Series, error) {
	timestamps := make([]string, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		timestamps[i] = p.Timestamp
		values[i] = p.Value
	}
	return data.FromPoints(name, timestamps, values)
}

func buildRunResponse(res *simulate.Result, includeLedger bool) (*models.RunResponse, error) {
	s, err := analysis.Summarize(res.Network)
	if err != nil {
		return nil, err
	}
	resp := newRunResponse(res, s, includeLedger)
	return &resp, nil
}

func newRunResponse(res *simulate.Result, s analysis.Summary, includeLedger bool) models.RunResponse {
	resp := models.RunResponse{
		ID:       res.RunID,
		Scenario: string(res.Scenario),
		Network:  s.Network,
		Solver:   res.Solver,
		Status:   string(res.Status),
		Summary: models.RunSummary{
			ObjectiveEUR:       s.Objective,
			Snapshots:          s.Snapshots,
			Window:             models.TimeWindow{Start: s.Start, End: s.End},
			DemandMWh:          s.DemandMWh,
			EnergyByCarrier:    s.EnergyByCarrier,
			WindMWh:            s.WindMWh,
			CurtailedMWh:       s.CurtailedMWh,
			CurtailmentShare:   s.CurtailmentShare,
			WindCapacityFactor: s.WindCapacityFactor,
			GasMWh:             s.GasMWh,
			GasShare:           s.GasShare,
			GasP05MW:           s.GasP05MW,
			GasP95MW:           s.GasP95MW,
			ElectrolyzerMWh:    s.ElectrolyzerMWh,
			FuelCellMWh:        s.FuelCellMWh,
			StoreMaxMWh:        s.StoreMaxMWh,
			StoreFinalMWh:      s.StoreFinalMWh,
			ChargingHours:      s.ChargingHours,
			DischargingHours:   s.DischargingHours,
			DurationMS:         res.Duration.Milliseconds(),
		},
	}
	if includeLedger {
		resp.Ledger = toLedgerRows(res.Ledger)
	}
	return resp
}

func toLedgerRows(ledger []simulate.LedgerRow) []models.LedgerRow {
	rows := make([]models.LedgerRow, len(ledger))
	for i, r := range ledger {
		rows[i] = models.LedgerRow{
			Index:           r.Index,
			Timestamp:       r.Timestamp.UTC().Truncate(time.Second),
			DemandMW:        r.DemandMW,
			WindAvailableMW: r.WindAvailableMW,
			WindMW:          r.WindMW,
			CurtailedMW:     r.CurtailedMW,
			GasMW:           r.GasMW,
			LineFlowMW:      r.LineFlowMW,
			ElectrolyzerMW:  r.ElectrolyzerMW,
			FuelCellMW:      r.FuelCellMW,
			StorePowerMW:    r.StorePowerMW,
			StoreLevelMWh:   r.StoreLevelMWh,
			Action:          string(r.Action),
			Cost:            r.Cost,
			CumCost:         r.CumCost,
		}
	}
	return rows
}
