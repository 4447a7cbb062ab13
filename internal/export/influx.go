// Package export ships run results to external systems: per-snapshot points to
// InfluxDB and run summaries to Kafka.
package export

import (
	"context"
	"errors"
	"fmt"
	"log"

	"hydrogen-bypass/internal/config"
	"hydrogen-bypass/internal/model"
	"hydrogen-bypass/internal/scenario"
	"hydrogen-bypass/internal/simulate"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Sink receives finished runs.
type Sink interface {
	Export(ctx context.Context, res *simulate.Result) error
	Close() error
}

// PointWriter is the subset of the blocking InfluxDB write API the sink needs.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes the ledger of each run as points.
type InfluxSink struct {
	client influxdb2.Client
	writer PointWriter
}

// NewInfluxSink connects to InfluxDB and verifies it is reachable.
func NewInfluxSink(ctx context.Context, cfg config.InfluxConfig) (*InfluxSink, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	if _, err := client.Health(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB at %s: %w", cfg.URL, err)
	}
	log.Printf("[Export] influx connected: %s (org=%s bucket=%s)", cfg.URL, cfg.Org, cfg.Bucket)
	return &InfluxSink{client: client, writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket)}, nil
}

// NewInfluxSinkWithWriter wraps an existing writer; Close is a no-op.
func NewInfluxSinkWithWriter(w PointWriter) *InfluxSink {
	return &InfluxSink{writer: w}
}

func (s *InfluxSink) Export(ctx context.Context, res *simulate.Result) error {
	points, err := Points(res)
	if err != nil {
		return err
	}
	if err := s.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("influx write run %s: %w", res.RunID, err)
	}
	log.Printf("[Export] influx: wrote %d points for run %s", len(points), res.RunID)
	return nil
}

func (s *InfluxSink) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

// Points converts a run's ledger into points.
//
//	dispatch,run_id,scenario,component p_mw
//	storage,run_id,scenario,component   e_mwh,p_mw
func Points(res *simulate.Result) ([]*write.Point, error) {
	if res == nil || res.Network == nil {
		return nil, errors.New("result has no network")
	}
	n := res.Network
	type column struct {
		name  string
		value func(r simulate.LedgerRow) float64
	}
	cols := []column{
		{scenario.WindGenerator, func(r simulate.LedgerRow) float64 { return r.WindMW }},
		{scenario.GasGenerator, func(r simulate.LedgerRow) float64 { return r.GasMW }},
		{scenario.LineName, func(r simulate.LedgerRow) float64 { return r.LineFlowMW }},
		{scenario.DemandLoad, func(r simulate.LedgerRow) float64 { return r.DemandMW }},
	}
	if n.Has(model.KindLink, scenario.ElectrolysisLink) {
		cols = append(cols, column{scenario.ElectrolysisLink, func(r simulate.LedgerRow) float64 { return -r.ElectrolyzerMW }})
	}
	if n.Has(model.KindLink, scenario.FuelCellLink) {
		cols = append(cols, column{scenario.FuelCellLink, func(r simulate.LedgerRow) float64 { return r.FuelCellMW }})
	}
	hasStore := n.Has(model.KindStore, scenario.HydrogenStore)

	points := make([]*write.Point, 0, len(res.Ledger)*(len(cols)+1))
	for _, row := range res.Ledger {
		for _, c := range cols {
			points = append(points, write.NewPoint(
				"dispatch",
				map[string]string{
					"run_id":    res.RunID,
					"scenario":  string(res.Scenario),
					"component": c.name,
				},
				map[string]interface{}{
					"p_mw": c.value(row),
				},
				row.Timestamp,
			))
		}
		if hasStore {
			points = append(points, write.NewPoint(
				"storage",
				map[string]string{
					"run_id":    res.RunID,
					"scenario":  string(res.Scenario),
					"component": scenario.HydrogenStore,
				},
				map[string]interface{}{
					"e_mwh": row.StoreLevelMWh,
					"p_mw":  row.StorePowerMW,
				},
				row.Timestamp,
			))
		}
	}
	return points, nil
}
