package models

import "time"

// RunResponse represents the response from a scenario run
type RunResponse struct {
	ID       string      `json:"id"`
	Scenario string      `json:"scenario"`
	Network  string      `json:"network"`
	Solver   string      `json:"solver"`
	Status   string      `json:"status"`
	Summary  RunSummary  `json:"summary"`
	Ledger   []LedgerRow `json:"ledger,omitempty"`
}

// RunSummary contains aggregated run results
type RunSummary struct {
	ObjectiveEUR    float64            `json:"objective_eur"`
	Snapshots       int                `json:"snapshots"`
	Window          TimeWindow         `json:"window"`
	DemandMWh       float64            `json:"demand_mwh"`
	EnergyByCarrier map[string]float64 `json:"energy_by_carrier"`

	WindMWh            float64 `json:"wind_mwh"`
	CurtailedMWh       float64 `json:"curtailed_mwh"`
	CurtailmentShare   float64 `json:"curtailment_share"`
	WindCapacityFactor float64 `json:"wind_capacity_factor"`

	GasMWh   float64 `json:"gas_mwh"`
	GasShare float64 `json:"gas_share"`
	GasP05MW float64 `json:"gas_p05_mw"`
	GasP95MW float64 `json:"gas_p95_mw"`

	ElectrolyzerMWh  float64 `json:"electrolyzer_mwh,omitempty"`
	FuelCellMWh      float64 `json:"fuel_cell_mwh,omitempty"`
	StoreMaxMWh      float64 `json:"store_max_mwh,omitempty"`
	StoreFinalMWh    float64 `json:"store_final_mwh,omitempty"`
	ChargingHours    int     `json:"charging_hours,omitempty"`
	DischargingHours int     `json:"discharging_hours,omitempty"`

	DurationMS int64 `json:"duration_ms"`
}

// TimeWindow represents a time range
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LedgerRow represents one snapshot in the run ledger
type LedgerRow struct {
	Index           int       `json:"index"`
	Timestamp       time.Time `json:"timestamp"`
	DemandMW        float64   `json:"demand_mw"`
	WindAvailableMW float64   `json:"wind_available_mw"`
	WindMW          float64   `json:"wind_mw"`
	CurtailedMW     float64   `json:"curtailed_mw"`
	GasMW           float64   `json:"gas_mw"`
	LineFlowMW      float64   `json:"line_flow_mw"`
	ElectrolyzerMW  float64   `json:"electrolyzer_mw"`
	FuelCellMW      float64   `json:"fuel_cell_mw"`
	StorePowerMW    float64   `json:"store_power_mw"`
	StoreLevelMWh   float64   `json:"store_level_mwh"`
	Action          string    `json:"action"` // "CHARGING", "DISCHARGING", "IDLE"
	Cost            float64   `json:"cost"`
	CumCost         float64   `json:"cum_cost"`
}

// CompareResponse represents the response from a baseline/bypass comparison
type CompareResponse struct {
	Baseline RunResponse `json:"baseline"`
	Bypass   RunResponse `json:"bypass"`

	SavingsEUR              float64 `json:"savings_eur"`
	SavingsPct              float64 `json:"savings_pct"`
	GasReductionMWh         float64 `json:"gas_reduction_mwh"`
	CurtailmentReductionMWh float64 `json:"curtailment_reduction_mwh"`

	Rankings []Ranking `json:"rankings"`
}

// Ranking represents one ranked scenario
type Ranking struct {
	Rank         int     `json:"rank"`
	RunID        string  `json:"run_id"`
	Network      string  `json:"network"`
	ObjectiveEUR float64 `json:"objective_eur"`
}

// SolverInfo describes a registered solver
type SolverInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// PresetInfo represents information about a bypass preset
type PresetInfo struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	File  string      `json:"file"`
	Specs PresetSpecs `json:"specs"`
}

// PresetSpecs contains the headline bypass parameters
type PresetSpecs struct {
	StoreENom              float64 `json:"store_e_nom"`
	ElectrolyzerPNom       float64 `json:"electrolyzer_p_nom"`
	ElectrolyzerEfficiency float64 `json:"electrolyzer_efficiency"`
	FuelCellPNom           float64 `json:"fuel_cell_p_nom"`
	FuelCellEfficiency     float64 `json:"fuel_cell_efficiency"`
}

// DatasetInfo represents a time-series file available to runs
type DatasetInfo struct {
	File    string    `json:"file"`
	Columns []string  `json:"columns"`
	Rows    int       `json:"rows"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
