package models

// ScenarioRunRequest represents the request body for running one scenario
type ScenarioRunRequest struct {
	Scenario string `json:"scenario" binding:"required"` // "baseline" or "bypass"
	ScenarioConfig
}

// CompareRequest runs baseline and bypass on the same inputs
type CompareRequest struct {
	ScenarioConfig
}

// ScenarioConfig is shared by run and compare requests
type ScenarioConfig struct {
	Solver       string           `json:"solver,omitempty"` // default: simplex
	DataSource   DataSourceConfig `json:"data_source,omitempty"`
	Network      NetworkConfig    `json:"network,omitempty"`
	BypassPreset string           `json:"bypass_preset,omitempty"` // preset name from GET /presets
	Bypass       BypassConfig     `json:"bypass,omitempty"`        // overrides the preset
	Options      RunOptions       `json:"options,omitempty"`
}

// DataSourceConfig selects the input series: files in the server's data
// directory, or inline points. Inline points take precedence.
type DataSourceConfig struct {
	WindFile     string        `json:"wind_file,omitempty"`
	WindColumn   string        `json:"wind_column,omitempty"`
	DemandFile   string        `json:"demand_file,omitempty"`
	DemandColumn string        `json:"demand_column,omitempty"`
	Wind         []SeriesPoint `json:"wind,omitempty"`
	Demand       []SeriesPoint `json:"demand,omitempty"`
}

// SeriesPoint is one inline time-series value
type SeriesPoint struct {
	Timestamp string  `json:"timestamp" binding:"required"`
	Value     float64 `json:"value"`
}

// NetworkConfig overrides baseline parameters; zero values keep the defaults
// except for the marginal costs, which apply whenever present
type NetworkConfig struct {
	LineSNom         float64           `json:"line_s_nom,omitempty"`
	GasPNom          float64           `json:"gas_p_nom,omitempty"`
	GasMarginalCost  *float64          `json:"gas_marginal_cost,omitempty"`
	GasEfficiency    float64           `json:"gas_efficiency,omitempty"`
	WindMarginalCost *float64          `json:"wind_marginal_cost,omitempty"`
	DemandShape      DemandShapeConfig `json:"demand_shape,omitempty"`
}

type DemandShapeConfig struct {
	SplitIndex int     `json:"split_index"`
	Before     float64 `json:"before"`
	After      float64 `json:"after"`
}

// BypassConfig overrides bypass parameters; zero values keep the preset or defaults
type BypassConfig struct {
	StoreENom              float64 `json:"store_e_nom,omitempty"`
	StoreEInitial          float64 `json:"store_e_initial,omitempty"`
	StoreECyclic           bool    `json:"store_e_cyclic,omitempty"`
	ElectrolyzerPNom       float64 `json:"electrolyzer_p_nom,omitempty"`
	ElectrolyzerEfficiency float64 `json:"electrolyzer_efficiency,omitempty"`
	FuelCellPNom           float64 `json:"fuel_cell_p_nom,omitempty"`
	FuelCellEfficiency     float64 `json:"fuel_cell_efficiency,omitempty"`
}

// RunOptions contains optional run parameters
type RunOptions struct {
	LimitRows     int     `json:"limit_rows,omitempty"`     // 0 = all
	IncludeLedger bool    `json:"include_ledger,omitempty"` // default: false
	VerifyTol     float64 `json:"verify_tol,omitempty"`     // 0 = no balance check
}
