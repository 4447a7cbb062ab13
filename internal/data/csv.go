package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptySeries   = errors.New("series is empty")
	ErrIndexOrder    = errors.New("index is not strictly increasing")
	ErrIndexGap      = errors.New("index has gaps")
	ErrIndexMismatch = errors.New("series indexes differ")
	ErrNoColumn      = errors.New("column not found")
)

// timestampLayouts are tried in order when parsing the index column.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Series is one named column of a time-indexed table.
type Series struct {
	Name   string
	Index  []time.Time
	Values []float64
}

func (s Series) Len() int { return len(s.Values) }

// Head returns the first n rows (n <= 0 or n >= Len returns s unchanged).
func (s Series) Head(n int) Series {
	if n <= 0 || n >= len(s.Values) {
		return s
	}
	return Series{Name: s.Name, Index: s.Index[:n], Values: s.Values[:n]}
}

// Step returns the spacing of the index, or 0 for fewer than two rows.
func (s Series) Step() time.Duration {
	if len(s.Index) < 2 {
		return 0
	}
	return s.Index[1].Sub(s.Index[0])
}

// CheckIndex verifies the index is non-empty, strictly increasing and uniformly spaced.
func (s Series) CheckIndex() error {
	if len(s.Values) == 0 {
		return fmt.Errorf("%q: %w", s.Name, ErrEmptySeries)
	}
	if len(s.Index) != len(s.Values) {
		return fmt.Errorf("%q: %d timestamps for %d values", s.Name, len(s.Index), len(s.Values))
	}
	step := s.Step()
	for i := 1; i < len(s.Index); i++ {
		d := s.Index[i].Sub(s.Index[i-1])
		if d <= 0 {
			return fmt.Errorf("%q row %d (%s): %w", s.Name, i, s.Index[i].Format(time.RFC3339), ErrIndexOrder)
		}
		if d != step {
			return fmt.Errorf("%q row %d (%s): step %s, expected %s: %w", s.Name, i, s.Index[i].Format(time.RFC3339), d, step, ErrIndexGap)
		}
	}
	return nil
}

// Align checks that a and b share an identical index.
func Align(a, b Series) error {
	if len(a.Index) != len(b.Index) {
		return fmt.Errorf("%q has %d rows, %q has %d: %w", a.Name, len(a.Index), b.Name, len(b.Index), ErrIndexMismatch)
	}
	for i := range a.Index {
		if !a.Index[i].Equal(b.Index[i]) {
			return fmt.Errorf("row %d: %q at %s, %q at %s: %w",
				i, a.Name, a.Index[i].Format(time.RFC3339), b.Name, b.Index[i].Format(time.RFC3339), ErrIndexMismatch)
		}
	}
	return nil
}

// LoadSeries reads a series from a .csv or .json file.
func LoadSeries(path, column string) (Series, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadSeriesJSON(path, column)
	default:
		return LoadSeriesCSV(path, column)
	}
}

func LoadSeriesCSV(path, column string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return Series{}, err
	}
	defer f.Close()
	s, err := ReadSeriesCSV(f, column)
	if err != nil {
		return Series{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadSeriesCSV parses a table whose first column is a timestamp index and
// returns the named value column. An empty column name selects the first value column.
func ReadSeriesCSV(r io.Reader, column string) (Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Series{}, ErrEmptySeries
		}
		return Series{}, err
	}
	if len(header) < 2 {
		return Series{}, fmt.Errorf("expected an index column and at least one value column, got %d columns", len(header))
	}
	col := 1
	if column != "" {
		col = -1
		for i, h := range header[1:] {
			if strings.TrimSpace(h) == column {
				col = i + 1
				break
			}
		}
		if col < 0 {
			return Series{}, fmt.Errorf("%q (have %s): %w", column, strings.Join(header[1:], ", "), ErrNoColumn)
		}
	}

	s := Series{Name: strings.TrimSpace(header[col])}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Series{}, err
		}
		line++
		if len(rec) <= col {
			return Series{}, fmt.Errorf("line %d: expected at least %d fields, got %d", line, col+1, len(rec))
		}
		ts, err := ParseTimestamp(rec[0])
		if err != nil {
			return Series{}, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
		if err != nil {
			return Series{}, fmt.Errorf("line %d column %q: %w", line, s.Name, err)
		}
		s.Index = append(s.Index, ts)
		s.Values = append(s.Values, v)
	}
	if len(s.Values) == 0 {
		return Series{}, fmt.Errorf("%q: %w", s.Name, ErrEmptySeries)
	}
	return s, nil
}

func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

// WriteSeriesCSV writes one or more series sharing an index. Used for fixtures and exports.
func WriteSeriesCSV(w io.Writer, indexName string, cols ...Series) error {
	if len(cols) == 0 {
		return ErrEmptySeries
	}
	for _, c := range cols[1:] {
		if err := Align(cols[0], c); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(w)
	header := []string{indexName}
	for _, c := range cols {
		header = append(header, c.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, ts := range cols[0].Index {
		row := []string{ts.Format("2006-01-02 15:04:05")}
		for _, c := range cols {
			row = append(row, strconv.FormatFloat(c.Values[i], 'f', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
