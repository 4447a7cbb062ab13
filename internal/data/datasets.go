package data

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Dataset describes a time-series CSV file available for scenario runs.
type Dataset struct {
	File    string
	Columns []string
	Rows    int
	Start   time.Time
	End     time.Time
}

// ListDatasets scans dir (non-recursively) for CSV files and summarizes them.
// Files that cannot be parsed are skipped.
func ListDatasets(dir string) ([]Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := []Dataset{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		ds, err := describeCSV(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		ds.File = e.Name()
		out = append(out, ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}

func describeCSV(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return Dataset{}, err
	}
	if len(header) < 2 {
		return Dataset{}, errors.New("no value columns")
	}
	ds := Dataset{Columns: trimAll(header[1:])}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Dataset{}, err
		}
		ts, err := ParseTimestamp(rec[0])
		if err != nil {
			return Dataset{}, err
		}
		if ds.Rows == 0 {
			ds.Start = ts
		}
		ds.End = ts
		ds.Rows++
	}
	return ds, nil
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
