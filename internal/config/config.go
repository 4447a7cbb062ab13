package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hydrogen-bypass/internal/scenario"
	"hydrogen-bypass/internal/simulate"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Scenarios to run, in order. Defaults to baseline then bypass.
	Scenarios []string `yaml:"scenarios"`

	Data    DataConfig    `yaml:"data"`
	Network NetworkConfig `yaml:"network"`

	// Optional: load bypass parameters from a separate YAML (e.g. examples/bypass/*.yaml).
	// If both BypassFile and Bypass are provided, Bypass overrides BypassFile.
	BypassFile string       `yaml:"bypass_file"`
	Bypass     BypassConfig `yaml:"bypass"`

	Solver SolverConfig `yaml:"solver"`
	Output OutputConfig `yaml:"output"`
	Export ExportConfig `yaml:"export"`

	// dir is the directory of the loaded file; relative data and output paths resolve against it.
	dir string
}

type DataConfig struct {
	Dir          string `yaml:"dir"`
	WindFile     string `yaml:"wind_file"`
	WindColumn   string `yaml:"wind_column"`
	DemandFile   string `yaml:"demand_file"`
	DemandColumn string `yaml:"demand_column"`
	Rows         int    `yaml:"rows"`
}

type NetworkConfig struct {
	Name string `yaml:"name"`

	Bus1X float64 `yaml:"bus1_x"`
	Bus1Y float64 `yaml:"bus1_y"`
	Bus2X float64 `yaml:"bus2_x"`
	Bus2Y float64 `yaml:"bus2_y"`
	VNom  float64 `yaml:"v_nom"`

	LineSNom        float64 `yaml:"line_s_nom"`
	LineType        string  `yaml:"line_type"`
	LineLength      float64 `yaml:"line_length"`
	LineNumParallel int     `yaml:"line_num_parallel"`

	// Marginal costs are pointers so that an explicit 0 overrides the default.
	WindMarginalCost *float64 `yaml:"wind_marginal_cost"`

	GasPNom         float64  `yaml:"gas_p_nom"`
	GasMarginalCost *float64 `yaml:"gas_marginal_cost"`
	GasEfficiency   float64  `yaml:"gas_efficiency"`

	DemandShape DemandShapeConfig `yaml:"demand_shape"`
}

type DemandShapeConfig struct {
	SplitIndex int     `yaml:"split_index"`
	Before     float64 `yaml:"before"`
	After      float64 `yaml:"after"`
}

type BypassConfig struct {
	Name string `yaml:"name"`

	BusX float64 `yaml:"bus_x"`
	BusY float64 `yaml:"bus_y"`

	StoreENom     float64 `yaml:"store_e_nom"`
	StoreEInitial float64 `yaml:"store_e_initial"`
	StoreECyclic  bool    `yaml:"store_e_cyclic"`

	ElectrolyzerPNom       float64 `yaml:"electrolyzer_p_nom"`
	ElectrolyzerEfficiency float64 `yaml:"electrolyzer_efficiency"`
	FuelCellPNom           float64 `yaml:"fuel_cell_p_nom"`
	FuelCellEfficiency     float64 `yaml:"fuel_cell_efficiency"`
}

type SolverConfig struct {
	Name      string  `yaml:"name"`
	VerifyTol float64 `yaml:"verify_tol"`
}

type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Charts  bool   `yaml:"charts"`
	Summary bool   `yaml:"summary"`
	Ledger  bool   `yaml:"ledger"`
}

type ExportConfig struct {
	Influx InfluxConfig `yaml:"influx"`
	Kafka  KafkaConfig  `yaml:"kafka"`
}

type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Load reads path, applies defaults and environment overrides, and validates.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	c.ApplyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not apply defaults or validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.dir = filepath.Dir(path)
	// If bypass_file is set, load it and merge in any explicit overrides from c.Bypass.
	if c.BypassFile != "" {
		loaded, err := LoadBypassFile(resolve(c.dir, c.BypassFile))
		if err != nil {
			return nil, err
		}
		c.Bypass = MergeBypass(loaded, c.Bypass)
	}
	return &c, nil
}

// Default is the reference configuration: both scenarios on the bundled inputs.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills every zero field with the reference value.
func (c *Config) ApplyDefaults() {
	if len(c.Scenarios) == 0 {
		c.Scenarios = []string{string(simulate.ScenarioBaseline), string(simulate.ScenarioBypass)}
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "timeseries_data"
	}
	if c.Data.WindFile == "" {
		c.Data.WindFile = "wind_resource.csv"
	}
	if c.Data.WindColumn == "" {
		c.Data.WindColumn = "windlocation"
	}
	if c.Data.DemandFile == "" {
		c.Data.DemandFile = "demand.csv"
	}
	if c.Data.DemandColumn == "" {
		c.Data.DemandColumn = "city"
	}
	c.Network = MergeNetwork(NetworkFromParams(scenario.DefaultBaselineParams()), c.Network)
	c.Bypass = MergeBypass(BypassFromParams(scenario.DefaultBypassParams()), c.Bypass)
	if c.Solver.Name == "" {
		c.Solver.Name = "simplex"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Export.Influx.Org == "" {
		c.Export.Influx.Org = "hydrogen-bypass"
	}
	if c.Export.Influx.Bucket == "" {
		c.Export.Influx.Bucket = "dispatch"
	}
	if c.Export.Kafka.Topic == "" {
		c.Export.Kafka.Topic = "run-summary"
	}
}

// ApplyEnv overrides deployment values from the environment.
func (c *Config) ApplyEnv() {
	c.Solver.Name = getEnv("SOLVER", c.Solver.Name)
	c.Data.Dir = getEnv("DATA_DIR", c.Data.Dir)
	c.Export.Influx.URL = getEnv("INFLUX_URL", c.Export.Influx.URL)
	c.Export.Influx.Token = getEnv("INFLUX_TOKEN", c.Export.Influx.Token)
	c.Export.Influx.Org = getEnv("INFLUX_ORG", c.Export.Influx.Org)
	c.Export.Influx.Bucket = getEnv("INFLUX_BUCKET", c.Export.Influx.Bucket)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Export.Kafka.Brokers = splitList(brokers)
	}
	c.Export.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Export.Kafka.Topic)
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if len(c.Scenarios) == 0 {
		return errors.New("scenarios must not be empty")
	}
	for _, s := range c.Scenarios {
		if _, err := simulate.ParseScenario(s); err != nil {
			return fmt.Errorf("scenarios: %w", err)
		}
	}
	if c.Data.Rows < 0 {
		return errors.New("data.rows must be >= 0")
	}
	if c.Solver.Name == "" {
		return errors.New("solver.name is required")
	}
	if c.Solver.VerifyTol < 0 {
		return errors.New("solver.verify_tol must be >= 0")
	}
	if err := c.Bypass.Validate(); err != nil {
		return fmt.Errorf("bypass config invalid: %w", err)
	}
	if c.Network.LineSNom <= 0 {
		return errors.New("network.line_s_nom must be > 0")
	}
	if c.Network.GasPNom < 0 {
		return errors.New("network.gas_p_nom must be >= 0")
	}
	if e := c.Network.GasEfficiency; e <= 0 || e > 1 {
		return errors.New("network.gas_efficiency must be in (0,1]")
	}
	if c.Export.Influx.Enabled && c.Export.Influx.URL == "" {
		return errors.New("export.influx.url is required when influx export is enabled")
	}
	if c.Export.Kafka.Enabled && len(c.Export.Kafka.Brokers) == 0 {
		return errors.New("export.kafka.brokers is required when kafka export is enabled")
	}
	return nil
}

// Validate checks the bypass parameters by the same rules the network applies.
func (b BypassConfig) Validate() error {
	if b.StoreENom < 0 {
		return errors.New("store_e_nom must be >= 0")
	}
	if b.StoreEInitial < 0 || b.StoreEInitial > b.StoreENom {
		return errors.New("store_e_initial must be in [0, store_e_nom]")
	}
	if b.ElectrolyzerPNom < 0 || b.FuelCellPNom < 0 {
		return errors.New("link capacities must be >= 0")
	}
	for name, e := range map[string]float64{
		"electrolyzer_efficiency": b.ElectrolyzerEfficiency,
		"fuel_cell_efficiency":    b.FuelCellEfficiency,
	} {
		if e <= 0 || e > 1 {
			return fmt.Errorf("%s must be in (0,1], got %g", name, e)
		}
	}
	return nil
}

// RunSpec builds the run description for one scenario.
func (c *Config) RunSpec(sc simulate.Scenario) simulate.RunSpec {
	dir := c.DataDir()
	return simulate.RunSpec{
		Scenario:     sc,
		WindFile:     filepath.Join(dir, c.Data.WindFile),
		WindColumn:   c.Data.WindColumn,
		DemandFile:   filepath.Join(dir, c.Data.DemandFile),
		DemandColumn: c.Data.DemandColumn,
		Rows:         c.Data.Rows,
		Baseline:     c.Network.ToParams(),
		Bypass:       c.Bypass.ToParams(),
		Solver:       c.Solver.Name,
		VerifyTol:    c.Solver.VerifyTol,
	}
}

// DataDir resolves data.dir against the config file directory, falling back to the cwd.
func (c *Config) DataDir() string { return resolve(c.dir, c.Data.Dir) }

// OutputDir resolves output.dir against the config file directory. The directory may not exist yet.
func (c *Config) OutputDir() string {
	if c.dir == "" || filepath.IsAbs(c.Output.Dir) {
		return c.Output.Dir
	}
	return filepath.Join(c.dir, c.Output.Dir)
}

func (n NetworkConfig) ToParams() scenario.BaselineParams {
	return scenario.BaselineParams{
		Name:             n.Name,
		Bus1X:            n.Bus1X,
		Bus1Y:            n.Bus1Y,
		Bus2X:            n.Bus2X,
		Bus2Y:            n.Bus2Y,
		VNom:             n.VNom,
		LineSNom:         n.LineSNom,
		LineType:         n.LineType,
		LineLength:       n.LineLength,
		LineNumParallel:  n.LineNumParallel,
		WindMarginalCost: deref(n.WindMarginalCost),
		WindEfficiency:   1,
		GasPNom:          n.GasPNom,
		GasMarginalCost:  deref(n.GasMarginalCost),
		GasEfficiency:    n.GasEfficiency,
		Shape: scenario.DemandShape{
			SplitIndex: n.DemandShape.SplitIndex,
			Before:     n.DemandShape.Before,
			After:      n.DemandShape.After,
		},
	}
}

func NetworkFromParams(p scenario.BaselineParams) NetworkConfig {
	return NetworkConfig{
		Name:             p.Name,
		Bus1X:            p.Bus1X,
		Bus1Y:            p.Bus1Y,
		Bus2X:            p.Bus2X,
		Bus2Y:            p.Bus2Y,
		VNom:             p.VNom,
		LineSNom:         p.LineSNom,
		LineType:         p.LineType,
		LineLength:       p.LineLength,
		LineNumParallel:  p.LineNumParallel,
		WindMarginalCost: Float(p.WindMarginalCost),
		GasPNom:          p.GasPNom,
		GasMarginalCost:  Float(p.GasMarginalCost),
		GasEfficiency:    p.GasEfficiency,
	}
}

func (b BypassConfig) ToParams() scenario.BypassParams {
	return scenario.BypassParams{
		BusX:                   b.BusX,
		BusY:                   b.BusY,
		StoreENom:              b.StoreENom,
		StoreEInitial:          b.StoreEInitial,
		StoreECyclic:           b.StoreECyclic,
		ElectrolyzerPNom:       b.ElectrolyzerPNom,
		ElectrolyzerEfficiency: b.ElectrolyzerEfficiency,
		FuelCellPNom:           b.FuelCellPNom,
		FuelCellEfficiency:     b.FuelCellEfficiency,
	}
}

func BypassFromParams(p scenario.BypassParams) BypassConfig {
	return BypassConfig{
		BusX:                   p.BusX,
		BusY:                   p.BusY,
		StoreENom:              p.StoreENom,
		StoreEInitial:          p.StoreEInitial,
		StoreECyclic:           p.StoreECyclic,
		ElectrolyzerPNom:       p.ElectrolyzerPNom,
		ElectrolyzerEfficiency: p.ElectrolyzerEfficiency,
		FuelCellPNom:           p.FuelCellPNom,
		FuelCellEfficiency:     p.FuelCellEfficiency,
	}
}

type bypassFileWrapper struct {
	Bypass BypassConfig `yaml:"bypass"`
}

// LoadBypassFile reads a bypass preset (a YAML document with a top-level bypass key).
func LoadBypassFile(path string) (BypassConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BypassConfig{}, err
	}
	var w bypassFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return BypassConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return w.Bypass, nil
}

// MergeBypass overlays non-zero fields from override onto base.
// This is used when loading a bypass file and then applying overrides from the request.
func MergeBypass(base, override BypassConfig) BypassConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.BusX != 0 {
		out.BusX = override.BusX
	}
	if override.BusY != 0 {
		out.BusY = override.BusY
	}
	if override.StoreENom != 0 {
		out.StoreENom = override.StoreENom
	}
	if override.StoreEInitial != 0 {
		out.StoreEInitial = override.StoreEInitial
	}
	// A cyclic store cannot be switched back off by an override.
	if override.StoreECyclic {
		out.StoreECyclic = true
	}
	if override.ElectrolyzerPNom != 0 {
		out.ElectrolyzerPNom = override.ElectrolyzerPNom
	}
	if override.ElectrolyzerEfficiency != 0 {
		out.ElectrolyzerEfficiency = override.ElectrolyzerEfficiency
	}
	if override.FuelCellPNom != 0 {
		out.FuelCellPNom = override.FuelCellPNom
	}
	if override.FuelCellEfficiency != 0 {
		out.FuelCellEfficiency = override.FuelCellEfficiency
	}
	return out
}

// MergeNetwork overlays non-zero fields from override onto base. Marginal
// costs are taken whenever they are set, including 0.
func MergeNetwork(base, override NetworkConfig) NetworkConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.Bus1X != 0 {
		out.Bus1X = override.Bus1X
	}
	if override.Bus1Y != 0 {
		out.Bus1Y = override.Bus1Y
	}
	if override.Bus2X != 0 {
		out.Bus2X = override.Bus2X
	}
	if override.Bus2Y != 0 {
		out.Bus2Y = override.Bus2Y
	}
	if override.VNom != 0 {
		out.VNom = override.VNom
	}
	if override.LineSNom != 0 {
		out.LineSNom = override.LineSNom
	}
	if override.LineType != "" {
		out.LineType = override.LineType
	}
	if override.LineLength != 0 {
		out.LineLength = override.LineLength
	}
	if override.LineNumParallel != 0 {
		out.LineNumParallel = override.LineNumParallel
	}
	if override.WindMarginalCost != nil {
		out.WindMarginalCost = override.WindMarginalCost
	}
	if override.GasPNom != 0 {
		out.GasPNom = override.GasPNom
	}
	if override.GasMarginalCost != nil {
		out.GasMarginalCost = override.GasMarginalCost
	}
	if override.GasEfficiency != 0 {
		out.GasEfficiency = override.GasEfficiency
	}
	if override.DemandShape != (DemandShapeConfig{}) {
		out.DemandShape = override.DemandShape
	}
	return out
}

// resolve prefers interpreting relative paths as relative to the config file directory,
// but falls back to the provided path (relative to cwd) if that doesn't exist.
func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || dir == "" {
		return p
	}
	cand := filepath.Join(dir, p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
