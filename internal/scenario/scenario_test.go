package scenario

import (
	"testing"
	"time"

	"hydrogen-bypass/internal/data"
	"hydrogen-bypass/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(name string, values ...float64) data.Series {
	start := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	s := data.Series{Name: name, Values: values}
	for i := range values {
		s.Index = append(s.Index, start.Add(time.Duration(i)*time.Hour))
	}
	return s
}

func referenceInputs(t *testing.T) (data.Series, data.Series) {
	t.Helper()
	wind, err := data.LoadSeriesCSV("../../timeseries_data/wind_resource.csv", "windlocation")
	require.NoError(t, err)
	demand, err := data.LoadSeriesCSV("../../timeseries_data/demand.csv", "city")
	require.NoError(t, err)
	return wind, demand
}

func TestBuildBaselineTopology(t *testing.T) {
	wind, demand := referenceInputs(t)
	n, err := BuildBaseline(wind, demand, DefaultBaselineParams())
	require.NoError(t, err)

	assert.Equal(t, wind.Len(), n.NumSnapshots())
	assert.Equal(t, wind.Index, n.Snapshots())
	assert.Len(t, n.Buses(), 2)
	assert.Len(t, n.Lines(), 1)
	assert.Len(t, n.Generators(), 2)
	assert.Len(t, n.Loads(), 1)
	assert.Empty(t, n.Links())
	assert.Empty(t, n.Stores())

	line := n.Lines()[0]
	assert.Equal(t, 400.0, line.SNom)
	assert.Equal(t, "Al/St 240/40 2-bundle 220.0", line.Type)

	gas, ok := n.Generator(GasGenerator)
	require.True(t, ok)
	assert.Equal(t, Bus2, gas.Bus)
	assert.Equal(t, 460.0, gas.PNom)
	assert.Equal(t, 0.58, gas.Efficiency)
}

func TestWindCalibratedFromData(t *testing.T) {
	wind, demand := referenceInputs(t)
	n, err := BuildBaseline(wind, demand, DefaultBaselineParams())
	require.NoError(t, err)

	g, ok := n.Generator(WindGenerator)
	require.True(t, ok)
	assert.Equal(t, 1447.2, g.PNom)
	require.Len(t, g.PMaxPU, n.NumSnapshots())
	for i, v := range g.PMaxPU {
		assert.GreaterOrEqual(t, v, 0.0, "snapshot %d", i)
		assert.LessOrEqual(t, v, 1.0, "snapshot %d", i)
	}
	_, at := model.Series(wind.Values).Max()
	assert.Equal(t, 3, at)
	assert.Equal(t, 1.0, g.PMaxPU[at])
}

func TestDemandNegatedFromWithdrawalConvention(t *testing.T) {
	n, err := BuildBaseline(series("windlocation", 10, 20), series("city", -50, -100), DefaultBaselineParams())
	require.NoError(t, err)
	l, ok := n.Load(DemandLoad)
	require.True(t, ok)
	assert.Equal(t, model.Series{50, 100}, l.PSet)

	// Already positive consumption is left alone.
	n, err = BuildBaseline(series("windlocation", 10, 20), series("city", 50, 100), DefaultBaselineParams())
	require.NoError(t, err)
	l, _ = n.Load(DemandLoad)
	assert.Equal(t, model.Series{50, 100}, l.PSet)
}

func TestDemandMixedSignsRejected(t *testing.T) {
	_, err := BuildBaseline(series("w", 10, 20), series("d", -50, 100), DefaultBaselineParams())
	assert.ErrorIs(t, err, ErrDemandSign)
}

func TestCapacityCalibrationFailsFast(t *testing.T) {
	_, err := BuildBaseline(series("w", 0, 0), series("d", -1, -1), DefaultBaselineParams())
	assert.ErrorIs(t, err, ErrCapacityCalibration)
	assert.ErrorContains(t, err, "maximum wind value is 0")

	_, err = BuildBaseline(series("w", -3, -1), series("d", -1, -1), DefaultBaselineParams())
	assert.ErrorIs(t, err, ErrCapacityCalibration)

	_, _, err = WindAvailability(nil)
	assert.ErrorIs(t, err, ErrCapacityCalibration)

	_, err = BuildBaseline(series("w"), series("d"), DefaultBaselineParams())
	assert.ErrorIs(t, err, data.ErrEmptySeries)
}

func TestNegativeWindClampsToZero(t *testing.T) {
	pNom, pu, err := WindAvailability([]float64{-5, 10, 5})
	require.NoError(t, err)
	assert.Equal(t, 10.0, pNom)
	assert.Equal(t, model.Series{0, 1, 0.5}, pu)
}

func TestMisalignedInputsRejected(t *testing.T) {
	wind := series("w", 1, 2, 3)
	demand := series("d", -1, -2, -3)
	demand.Index[0] = demand.Index[0].Add(-time.Hour)
	_, err := BuildBaseline(wind, demand, DefaultBaselineParams())
	assert.Error(t, err)

	_, err = BuildBaseline(wind, series("d", -1, -2), DefaultBaselineParams())
	assert.ErrorIs(t, err, data.ErrIndexMismatch)

	gappy := series("w", 1, 2, 3)
	gappy.Index[2] = gappy.Index[2].Add(time.Hour)
	_, err = BuildBaseline(gappy, gappy, DefaultBaselineParams())
	assert.ErrorIs(t, err, data.ErrIndexGap)
}

func TestAddHydrogenBypassShape(t *testing.T) {
	wind, demand := referenceInputs(t)
	n, err := BuildBaseline(wind, demand, DefaultBaselineParams())
	require.NoError(t, err)

	buses, stores, links := len(n.Buses()), len(n.Stores()), len(n.Links())
	out, err := AddHydrogenBypass(n, DefaultBypassParams())
	require.NoError(t, err)
	assert.Same(t, n, out)
	assert.Equal(t, buses+1, len(n.Buses()))
	assert.Equal(t, stores+1, len(n.Stores()))
	assert.Equal(t, links+2, len(n.Links()))

	h2, ok := n.Bus(BusHydrogen)
	require.True(t, ok)
	assert.Equal(t, model.CarrierHydrogen, h2.Carrier)
	assert.Zero(t, h2.VNom)

	el, _ := n.Link(ElectrolysisLink)
	assert.Equal(t, Bus1, el.Bus0)
	assert.Equal(t, BusHydrogen, el.Bus1)
	assert.Equal(t, 0.7, el.Efficiency)
	fc, _ := n.Link(FuelCellLink)
	assert.Equal(t, BusHydrogen, fc.Bus0)
	assert.Equal(t, Bus2, fc.Bus1)
	assert.Equal(t, 0.5, fc.Efficiency)
	st, _ := n.Store(HydrogenStore)
	assert.Equal(t, 1e6, st.ENom)
}

func TestAddHydrogenBypassTwiceFails(t *testing.T) {
	wind, demand := referenceInputs(t)
	n, err := BuildBypass(wind, demand, DefaultBaselineParams(), DefaultBypassParams())
	require.NoError(t, err)
	assert.Equal(t, "bypass", n.Name)

	before := len(n.Buses()) + len(n.Stores()) + len(n.Links())
	_, err = AddHydrogenBypass(n, DefaultBypassParams())
	assert.ErrorIs(t, err, model.ErrDuplicateName)
	assert.Equal(t, before, len(n.Buses())+len(n.Stores())+len(n.Links()))
}

func TestAddHydrogenBypassIndependentCapacities(t *testing.T) {
	wind, demand := referenceInputs(t)
	hp := DefaultBypassParams()
	hp.ElectrolyzerPNom = 300
	hp.FuelCellPNom = 120
	n, err := BuildBypass(wind, demand, DefaultBaselineParams(), hp)
	require.NoError(t, err)
	el, _ := n.Link(ElectrolysisLink)
	fc, _ := n.Link(FuelCellLink)
	assert.Equal(t, 300.0, el.PNom)
	assert.Equal(t, 120.0, fc.PNom)
}

func TestAddHydrogenBypassInvalidParamsLeaveNetworkUntouched(t *testing.T) {
	wind, demand := referenceInputs(t)
	n, err := BuildBaseline(wind, demand, DefaultBaselineParams())
	require.NoError(t, err)

	hp := DefaultBypassParams()
	hp.FuelCellEfficiency = 1.5
	_, err = AddHydrogenBypass(n, hp)
	assert.Error(t, err)
	assert.False(t, n.Has(model.KindBus, BusHydrogen))
	assert.Empty(t, n.Links())

	_, err = AddHydrogenBypass(model.NewNetwork("empty"), DefaultBypassParams())
	assert.ErrorIs(t, err, model.ErrUnknownBus)
}

func TestDemandShape(t *testing.T) {
	shaped, err := DemandShape{SplitIndex: 2, Before: -50, After: 100}.Apply(model.Series{100, 200, 300})
	require.NoError(t, err)
	assert.Equal(t, model.Series{50, 150, 400}, shaped)

	_, err = DemandShape{SplitIndex: 1, Before: -500}.Apply(model.Series{100, 200})
	assert.ErrorContains(t, err, "negative")

	_, err = DemandShape{SplitIndex: 5, After: 1}.Apply(model.Series{1})
	assert.Error(t, err)

	same, err := DemandShape{}.Apply(model.Series{1, 2})
	require.NoError(t, err)
	assert.Equal(t, model.Series{1, 2}, same)
}

func TestBaselineAppliesDemandShape(t *testing.T) {
	p := DefaultBaselineParams()
	p.Shape = DemandShape{SplitIndex: 1, Before: -10, After: 10}
	n, err := BuildBaseline(series("w", 1, 2), series("d", -50, -100), p)
	require.NoError(t, err)
	l, _ := n.Load(DemandLoad)
	assert.Equal(t, model.Series{40, 110}, l.PSet)
}
