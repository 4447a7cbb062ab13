package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"hydrogen-bypass/internal/analysis"
	"hydrogen-bypass/internal/config"
	"hydrogen-bypass/internal/simulate"

	"github.com/Shopify/sarama"
)

// RunSummaryEvent is the JSON message published once per finished run.
type RunSummaryEvent struct {
	RunID    string `json:"run_id"`
	Network  string `json:"network"`
	Scenario string `json:"scenario"`
	Solver   string `json:"solver"`
	Status   string `json:"status"`

	Snapshots int       `json:"snapshots"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`

	ObjectiveEUR    float64 `json:"objective_eur"`
	DemandMWh       float64 `json:"demand_mwh"`
	WindMWh         float64 `json:"wind_mwh"`
	GasMWh          float64 `json:"gas_mwh"`
	CurtailedMWh    float64 `json:"curtailed_mwh"`
	ElectrolyzerMWh float64 `json:"electrolyzer_mwh"`
	FuelCellMWh     float64 `json:"fuel_cell_mwh"`

	DurationMS  int64     `json:"duration_ms"`
	PublishedAt time.Time `json:"published_at"`
}

func NewRunSummaryEvent(res *simulate.Result) (RunSummaryEvent, error) {
	s, err := analysis.Summarize(res.Network)
	if err != nil {
		return RunSummaryEvent{}, err
	}
	return RunSummaryEvent{
		RunID:           res.RunID,
		Network:         s.Network,
		Scenario:        string(res.Scenario),
		Solver:          res.Solver,
		Status:          string(res.Status),
		Snapshots:       s.Snapshots,
		Start:           s.Start,
		End:             s.End,
		ObjectiveEUR:    s.Objective,
		DemandMWh:       s.DemandMWh,
		WindMWh:         s.WindMWh,
		GasMWh:          s.GasMWh,
		CurtailedMWh:    s.CurtailedMWh,
		ElectrolyzerMWh: s.ElectrolyzerMWh,
		FuelCellMWh:     s.FuelCellMWh,
		DurationMS:      res.Duration.Milliseconds(),
		PublishedAt:     time.Now().UTC(),
	}, nil
}

// KafkaPublisher publishes a RunSummaryEvent per run, keyed by run ID.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 0

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	log.Printf("[Export] kafka connected: %v (topic=%s)", cfg.Brokers, cfg.Topic)
	return NewKafkaPublisherWithProducer(producer, cfg.Topic), nil
}

func NewKafkaPublisherWithProducer(p sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic}
}

func (p *KafkaPublisher) Export(ctx context.Context, res *simulate.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev, err := NewRunSummaryEvent(res)
	if err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(res.RunID),
		Value: sarama.ByteEncoder(body),
	})
	if err != nil {
		return fmt.Errorf("kafka publish run %s: %w", res.RunID, err)
	}
	log.Printf("[Export] kafka: run %s -> %s[%d]@%d", res.RunID, p.topic, partition, offset)
	return nil
}

func (p *KafkaPublisher) Close() error { return p.producer.Close() }

// FromConfig opens every enabled sink. Sinks opened before a failure are closed.
func FromConfig(ctx context.Context, cfg config.ExportConfig) ([]Sink, error) {
	var sinks []Sink
	if cfg.Influx.Enabled {
		s, err := NewInfluxSink(ctx, cfg.Influx)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Kafka.Enabled {
		p, err := NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			CloseAll(sinks)
			return nil, err
		}
		sinks = append(sinks, p)
	}
	return sinks, nil
}

// ExportAll sends res to every sink and returns the first error.
func ExportAll(ctx context.Context, sinks []Sink, res *simulate.Result) error {
	for _, s := range sinks {
		if err := s.Export(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

func CloseAll(sinks []Sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Printf("[Export] close: %v", err)
		}
	}
}
