package data

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadSeriesJSON reads a records-oriented JSON table:
//
//	[{"timestamp": "2015-01-01 00:00:00", "windlocation": 1200.5}, ...]
//
// column selects the value field; empty means "value".
func LoadSeriesJSON(path, column string) (Series, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Series{}, err
	}
	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		return Series{}, fmt.Errorf("%s: %w", path, err)
	}
	if column == "" {
		column = "value"
	}
	s := Series{Name: column}
	for i, rec := range records {
		rawTS, ok := rec["timestamp"].(string)
		if !ok {
			return Series{}, fmt.Errorf("%s record %d: missing timestamp", path, i)
		}
		ts, err := ParseTimestamp(rawTS)
		if err != nil {
			return Series{}, fmt.Errorf("%s record %d: %w", path, i, err)
		}
		v, ok := rec[column].(float64)
		if !ok {
			return Series{}, fmt.Errorf("%s record %d: %q: %w", path, i, column, ErrNoColumn)
		}
		s.Index = append(s.Index, ts)
		s.Values = append(s.Values, v)
	}
	if len(s.Values) == 0 {
		return Series{}, fmt.Errorf("%s: %w", path, ErrEmptySeries)
	}
	return s, nil
}

// FromPoints builds a series from parallel timestamp strings and values,
// the shape used by inline API payloads.
func FromPoints(name string, timestamps []string, values []float64) (Series, error) {
	if len(timestamps) != len(values) {
		return Series{}, fmt.Errorf("%q: %d timestamps for %d values", name, len(timestamps), len(values))
	}
	if len(values) == 0 {
		return Series{}, fmt.Errorf("%q: %w", name, ErrEmptySeries)
	}
	s := Series{Name: name, Values: append([]float64(nil), values...)}
	for i, raw := range timestamps {
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return Series{}, fmt.Errorf("%q point %d: %w", name, i, err)
		}
		s.Index = append(s.Index, ts)
	}
	return s, nil
}
