package scenario

import (
	"errors"
	"fmt"
	"log"
	"math"

	"hydrogen-bypass/internal/data"
	"hydrogen-bypass/internal/model"
)

// Component names of the reference topology. They are stable identifiers used
// by reporting, exports and the API.
const (
	Bus1             = "Bus 1"
	Bus2             = "Bus 2"
	BusHydrogen      = "hydrogen"
	LineName         = "Line1-2"
	WindGenerator    = "Offwind"
	GasGenerator     = "Gas"
	DemandLoad       = "electricity demand"
	HydrogenStore    = "hydrogen storage"
	ElectrolysisLink = "electrolysis"
	FuelCellLink     = "fuel cell"
)

var (
	ErrCapacityCalibration = errors.New("wind capacity cannot be calibrated")
	ErrDemandSign          = errors.New("demand series mixes consumption and withdrawal signs")
)

// BaselineParams are the literals of the two-bus reference network.
// Units: MW, MVA, km, EUR/MWh.
type BaselineParams struct {
	Name string

	Bus1X, Bus1Y float64
	Bus2X, Bus2Y float64
	VNom         float64

	LineSNom        float64
	LineType        string
	LineLength      float64
	LineNumParallel int

	WindMarginalCost float64
	WindEfficiency   float64

	GasPNom         float64
	GasMarginalCost float64
	GasEfficiency   float64

	Shape DemandShape
}

func DefaultBaselineParams() BaselineParams {
	return BaselineParams{
		Name:  "pre-bypass",
		Bus1X: 9.11321,
		Bus1Y: 52.543853,
		Bus2X: 9.522576,
		Bus2Y: 52.360409,
		VNom:  220,

		LineSNom:        400,
		LineType:        "Al/St 240/40 2-bundle 220.0",
		LineLength:      43.379,
		LineNumParallel: 1,

		WindMarginalCost: 5,
		WindEfficiency:   1,

		GasPNom:         460,
		GasMarginalCost: 40,
		GasEfficiency:   0.58,
	}
}

// BypassParams configure the power-to-gas-to-power loop. Electrolyzer and fuel
// cell capacities are independent inputs.
type BypassParams struct {
	BusX, BusY float64

	StoreENom     float64
	StoreEInitial float64
	StoreECyclic  bool

	ElectrolyzerPNom       float64
	ElectrolyzerEfficiency float64

	FuelCellPNom       float64
	FuelCellEfficiency float64
}

func DefaultBypassParams() BypassParams {
	return BypassParams{
		BusX: 9.21321,
		BusY: 52.743853,

		StoreENom: 1e6,

		ElectrolyzerPNom:       500,
		ElectrolyzerEfficiency: 0.7,

		FuelCellPNom:       500,
		FuelCellEfficiency: 0.5,
	}
}

// WindAvailability normalizes a raw wind resource series by its maximum.
// It returns the calibrated capacity (the maximum) and factors in [0,1].
// Negative resource readings are treated as zero availability.
func WindAvailability(wind []float64) (float64, model.Series, error) {
	if len(wind) == 0 {
		return 0, nil, fmt.Errorf("%w: wind series is empty", ErrCapacityCalibration)
	}
	peak, at := model.Series(wind).Max()
	if math.IsNaN(peak) || math.IsInf(peak, 0) || peak <= 0 {
		return 0, nil, fmt.Errorf("%w: maximum wind value is %g (row %d)", ErrCapacityCalibration, peak, at)
	}
	pu := make(model.Series, len(wind))
	for i, v := range wind {
		switch {
		case math.IsNaN(v):
			return 0, nil, fmt.Errorf("%w: wind value at row %d is NaN", ErrCapacityCalibration, i)
		case v <= 0:
			pu[i] = 0
		default:
			pu[i] = v / peak
		}
	}
	pu[at] = 1
	return peak, pu, nil
}

// DemandToConsumption converts a demand series to positive consumption.
// Series stored in the withdrawal convention (all values <= 0) are negated.
// A series with both strictly positive and strictly negative values is rejected.
func DemandToConsumption(demand []float64) (model.Series, error) {
	var pos, neg int
	for _, v := range demand {
		if v > 0 {
			pos++
		} else if v < 0 {
			neg++
		}
	}
	if pos > 0 && neg > 0 {
		return nil, fmt.Errorf("%w: %d positive and %d negative values", ErrDemandSign, pos, neg)
	}
	out := make(model.Series, len(demand))
	for i, v := range demand {
		if neg > 0 {
			v = -v
		}
		out[i] = v + 0 // -0 becomes 0
	}
	return out, nil
}

// BuildBaseline creates the two-bus network: wind on Bus 1, gas and demand on Bus 2,
// one line between them. Wind capacity is calibrated to the maximum of the wind series.
func BuildBaseline(wind, demand data.Series, p BaselineParams) (*model.Network, error) {
	if err := wind.CheckIndex(); err != nil {
		return nil, fmt.Errorf("wind: %w", err)
	}
	if err := demand.CheckIndex(); err != nil {
		return nil, fmt.Errorf("demand: %w", err)
	}
	if err := data.Align(wind, demand); err != nil {
		return nil, err
	}
	pNom, pu, err := WindAvailability(wind.Values)
	if err != nil {
		return nil, err
	}
	load, err := DemandToConsumption(demand.Values)
	if err != nil {
		return nil, err
	}
	load, err = p.Shape.Apply(load)
	if err != nil {
		return nil, err
	}

	name := p.Name
	if name == "" {
		name = "pre-bypass"
	}
	n := model.NewNetwork(name)
	if err := n.SetSnapshots(wind.Index); err != nil {
		return nil, err
	}

	if err := n.AddBus(model.Bus{Name: Bus1, X: p.Bus1X, Y: p.Bus1Y, VNom: p.VNom, Carrier: model.CarrierAC}); err != nil {
		return nil, err
	}
	if err := n.AddBus(model.Bus{Name: Bus2, X: p.Bus2X, Y: p.Bus2Y, VNom: p.VNom, Carrier: model.CarrierAC}); err != nil {
		return nil, err
	}
	if err := n.AddLine(model.Line{
		Name:        LineName,
		Bus0:        Bus1,
		Bus1:        Bus2,
		SNom:        p.LineSNom,
		Type:        p.LineType,
		Length:      p.LineLength,
		NumParallel: p.LineNumParallel,
	}); err != nil {
		return nil, err
	}
	if err := n.AddGenerator(model.Generator{
		Name:         WindGenerator,
		Bus:          Bus1,
		Carrier:      model.CarrierOffwind,
		Efficiency:   p.WindEfficiency,
		MarginalCost: p.WindMarginalCost,
		PNom:         pNom,
		PMaxPU:       pu,
	}); err != nil {
		return nil, err
	}
	if err := n.AddGenerator(model.Generator{
		Name:         GasGenerator,
		Bus:          Bus2,
		Carrier:      model.CarrierGas,
		Efficiency:   p.GasEfficiency,
		MarginalCost: p.GasMarginalCost,
		PNom:         p.GasPNom,
	}); err != nil {
		return nil, err
	}
	if err := n.AddLoad(model.Load{Name: DemandLoad, Bus: Bus2, PSet: load}); err != nil {
		return nil, err
	}

	log.Printf("[Scenario] built %q: %d snapshots, wind p_nom=%.2f MW, demand total=%.2f MWh",
		n.Name, n.NumSnapshots(), pNom, load.Sum())
	return n, nil
}

// AddHydrogenBypass adds the hydrogen bus, store, electrolyzer and fuel cell to n
// and returns n. The network is unchanged when an error is returned.
func AddHydrogenBypass(n *model.Network, p BypassParams) (*model.Network, error) {
	if n == nil {
		return nil, errors.New("network is nil")
	}
	for _, c := range []struct {
		kind model.Kind
		name string
	}{
		{model.KindBus, BusHydrogen},
		{model.KindStore, HydrogenStore},
		{model.KindLink, ElectrolysisLink},
		{model.KindLink, FuelCellLink},
	} {
		if n.Has(c.kind, c.name) {
			return nil, fmt.Errorf("hydrogen bypass: %s %q: %w", c.kind, c.name, model.ErrDuplicateName)
		}
	}
	for _, bus := range []string{Bus1, Bus2} {
		if !n.Has(model.KindBus, bus) {
			return nil, fmt.Errorf("hydrogen bypass needs bus %q: %w", bus, model.ErrUnknownBus)
		}
	}
	if n.Frozen() {
		return nil, model.ErrFrozen
	}

	store := model.Store{
		Name:     HydrogenStore,
		Bus:      BusHydrogen,
		Carrier:  model.CarrierHydrogenStorage,
		ENom:     p.StoreENom,
		EInitial: p.StoreEInitial,
		ECyclic:  p.StoreECyclic,
	}
	electrolysis := model.Link{
		Name:       ElectrolysisLink,
		Bus0:       Bus1,
		Bus1:       BusHydrogen,
		Carrier:    model.CarrierElectrolyzer,
		PNom:       p.ElectrolyzerPNom,
		Efficiency: p.ElectrolyzerEfficiency,
	}
	fuelCell := model.Link{
		Name:       FuelCellLink,
		Bus0:       BusHydrogen,
		Bus1:       Bus2,
		Carrier:    model.CarrierFuelCell,
		PNom:       p.FuelCellPNom,
		Efficiency: p.FuelCellEfficiency,
	}
	// Validate everything up front so a bad parameter cannot leave a half-built bypass.
	if err := store.Validate(); err != nil {
		return nil, fmt.Errorf("hydrogen bypass store: %w", err)
	}
	for _, l := range []model.Link{electrolysis, fuelCell} {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("hydrogen bypass link %q: %w", l.Name, err)
		}
	}

	if err := n.AddBus(model.Bus{Name: BusHydrogen, X: p.BusX, Y: p.BusY, Carrier: model.CarrierHydrogen}); err != nil {
		return nil, err
	}
	if err := n.AddStore(store); err != nil {
		return nil, err
	}
	if err := n.AddLink(electrolysis); err != nil {
		return nil, err
	}
	if err := n.AddLink(fuelCell); err != nil {
		return nil, err
	}
	log.Printf("[Scenario] added hydrogen bypass to %q: electrolyzer %.0f MW (eff %.2f), fuel cell %.0f MW (eff %.2f), store %.0f MWh",
		n.Name, p.ElectrolyzerPNom, p.ElectrolyzerEfficiency, p.FuelCellPNom, p.FuelCellEfficiency, p.StoreENom)
	return n, nil
}

// BuildBypass builds the baseline network and applies the hydrogen bypass to it.
func BuildBypass(wind, demand data.Series, bp BaselineParams, hp BypassParams) (*model.Network, error) {
	if bp.Name == "" || bp.Name == DefaultBaselineParams().Name {
		bp.Name = "bypass"
	}
	n, err := BuildBaseline(wind, demand, bp)
	if err != nil {
		return nil, err
	}
	return AddHydrogenBypass(n, hp)
}
