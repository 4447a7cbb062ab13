package model

import (
	"errors"
	"fmt"
	"math"
)

// Carrier is the energy form a bus or component handles.
type Carrier string

const (
	CarrierAC              Carrier = "AC"
	CarrierHydrogen        Carrier = "hydrogen"
	CarrierOffwind         Carrier = "Offwind"
	CarrierGas             Carrier = "Gas"
	CarrierElectrolyzer    Carrier = "electrolyzer"
	CarrierFuelCell        Carrier = "fuel cell"
	CarrierHydrogenStorage Carrier = "hydrogen storage"
)

// Series is a per-snapshot value vector aligned with Network.Snapshots.
type Series []float64

func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	return append(Series(nil), s...)
}

// Max returns the largest value and its index, or (NaN, -1) for an empty series.
func (s Series) Max() (float64, int) {
	if len(s) == 0 {
		return math.NaN(), -1
	}
	best, at := s[0], 0
	for i, v := range s[1:] {
		if v > best {
			best, at = v, i+1
		}
	}
	return best, at
}

func (s Series) Sum() float64 {
	total := 0.0
	for _, v := range s {
		total += v
	}
	return total
}

// Bus is a network node. VNom is in kV; zero means the bus has no voltage level
// (carrier-only buses such as hydrogen).
type Bus struct {
	Name    string
	X       float64
	Y       float64
	VNom    float64
	Carrier Carrier
}

func (b Bus) Validate() error {
	if b.VNom < 0 {
		return errors.New("v_nom must be >= 0")
	}
	if !finite(b.X) || !finite(b.Y) {
		return errors.New("coordinates must be finite")
	}
	return nil
}

// Line is an electrical edge between two buses of the same carrier.
// Units:
// - SNom: MVA
// - Length: km
type Line struct {
	Name        string
	Bus0        string
	Bus1        string
	SNom        float64
	Type        string
	Length      float64
	NumParallel int
}

func (l Line) Validate() error {
	if l.Bus0 == l.Bus1 {
		return errors.New("bus0 and bus1 must differ")
	}
	if l.SNom <= 0 || !finite(l.SNom) {
		return errors.New("s_nom must be > 0")
	}
	if l.Length < 0 {
		return errors.New("length must be >= 0")
	}
	if l.NumParallel < 1 {
		return errors.New("num_parallel must be >= 1")
	}
	return nil
}

// Generator injects power at one bus.
// Units:
// - PNom: MW
// - MarginalCost: EUR/MWh
// - PMaxPU: availability factor per snapshot, 0..1 (nil = always 1)
type Generator struct {
	Name         string
	Bus          string
	Carrier      Carrier
	Efficiency   float64
	MarginalCost float64
	PNom         float64
	PMaxPU       Series
}

func (g Generator) Validate() error {
	if g.PNom < 0 || !finite(g.PNom) {
		return errors.New("p_nom must be >= 0")
	}
	if g.Efficiency <= 0 || g.Efficiency > 1 {
		return errors.New("efficiency must be in (0, 1]")
	}
	if !finite(g.MarginalCost) {
		return errors.New("marginal_cost must be finite")
	}
	for i, v := range g.PMaxPU {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("p_max_pu[%d]=%g must be in [0, 1]", i, v)
		}
	}
	return nil
}

// Available returns the dispatchable capacity in MW at snapshot t.
func (g Generator) Available(t int) float64 {
	if g.PMaxPU == nil {
		return g.PNom
	}
	return g.PNom * g.PMaxPU[t]
}

// Load withdraws PSet MW at its bus. Positive = consumption.
type Load struct {
	Name string
	Bus  string
	PSet Series
}

func (l Load) Validate() error {
	for i, v := range l.PSet {
		if !finite(v) {
			return fmt.Errorf("p_set[%d]=%g must be finite", i, v)
		}
	}
	return nil
}

// Link converts power from Bus0 to Bus1. P0 is withdrawn at Bus0 and
// Efficiency*P0 is delivered at Bus1. Flow is one-directional: 0 <= P0 <= PNom.
type Link struct {
	Name         string
	Bus0         string
	Bus1         string
	Carrier      Carrier
	PNom         float64
	Efficiency   float64
	MarginalCost float64
}

func (l Link) Validate() error {
	if l.Bus0 == l.Bus1 {
		return errors.New("bus0 and bus1 must differ")
	}
	if l.PNom < 0 || !finite(l.PNom) {
		return errors.New("p_nom must be >= 0")
	}
	if l.Efficiency <= 0 || l.Efficiency > 1 {
		return errors.New("efficiency must be in (0, 1]")
	}
	if !finite(l.MarginalCost) {
		return errors.New("marginal_cost must be finite")
	}
	return nil
}

// Store is a lossless energy accumulator on one bus.
// Units:
// - ENom, EInitial: MWh
//
// When ECyclic is set the level before the first snapshot equals the level at
// the last one and EInitial is ignored.
type Store struct {
	Name     string
	Bus      string
	Carrier  Carrier
	ENom     float64
	EInitial float64
	ECyclic  bool
}

func (s Store) Validate() error {
	if s.ENom < 0 || !finite(s.ENom) {
		return errors.New("e_nom must be >= 0")
	}
	if s.EInitial < 0 || s.EInitial > s.ENom {
		return errors.New("e_initial must be within [0, e_nom]")
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
