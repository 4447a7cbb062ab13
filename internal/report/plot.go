package report

import (
	"fmt"
	"image/color"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	"hydrogen-bypass/internal/model"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Output file names.
const (
	BaselinePowerFile = "pre-bypass-power.png"
	BypassPowerFile   = "bypass-power.png"
	BypassStorageFile = "bypass-storage.png"
	SummaryFile       = "summary.txt"
)

const (
	chartWidth  = 12 * vg.Inch
	chartHeight = 6 * vg.Inch
)

// Chart is a rendered chart that has not been written yet.
type Chart struct {
	Path string
	img  io.WriterTo
}

// PlotFrame renders f as bars stacked per sign (positive parts upward and
// negative parts downward from zero) with the overlay line on top.
func PlotFrame(f Frame, title, yLabel, path string) error {
	c, err := renderFrame(f, title, yLabel, path)
	if err != nil {
		return err
	}
	_, err = SaveCharts([]Chart{c})
	return err
}

func renderFrame(f Frame, title, yLabel, path string) (Chart, error) {
	if f.Len() == 0 {
		return Chart{}, fmt.Errorf("plot %s: frame is empty", path)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "snapshot"
	p.Y.Label.Text = yLabel
	p.Legend.Top = true

	width := vg.Points(math.Max(2, 600/float64(f.Len())))
	var posBelow, negBelow *plotter.BarChart
	for i, name := range f.Columns {
		pos, neg := splitSigns(f.Values[i])
		c := plotutil.Color(i)
		var thumb plot.Thumbnailer
		if hasNonZero(pos) {
			bar, err := newBar(pos, width, c)
			if err != nil {
				return Chart{}, err
			}
			if posBelow != nil {
				bar.StackOn(posBelow)
			}
			posBelow = bar
			p.Add(bar)
			thumb = bar
		}
		if hasNonZero(neg) {
			bar, err := newBar(neg, width, c)
			if err != nil {
				return Chart{}, err
			}
			if negBelow != nil {
				bar.StackOn(negBelow)
			}
			negBelow = bar
			p.Add(bar)
			thumb = bar
		}
		if thumb != nil {
			p.Legend.Add(name, thumb)
		}
	}

	if len(f.Line) == f.Len() {
		pts := make(plotter.XYs, f.Len())
		for t, v := range f.Line {
			pts[t].X = float64(t)
			pts[t].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return Chart{}, fmt.Errorf("plot %s: %w", path, err)
		}
		line.LineStyle.Color = color.Black
		line.LineStyle.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(f.LineName, line)
	}

	if f.Len() <= 48 {
		labels := make([]string, f.Len())
		for t, ts := range f.Index {
			labels[t] = ts.Format("01-02 15h")
		}
		p.NominalX(labels...)
	}
	p.Add(plotter.NewGrid())

	img, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return Chart{}, fmt.Errorf("plot %s: %w", path, err)
	}
	return Chart{Path: path, img: img}, nil
}

// RenderCharts draws the dispatch chart of n, plus the storage chart when the
// network has the hydrogen store, without writing anything to dir.
func RenderCharts(n *model.Network, dir string) ([]Chart, error) {
	df, err := DispatchFrame(n)
	if err != nil {
		return nil, err
	}
	sf, storageErr := StorageFrame(n)
	hasStore := storageErr == nil

	powerFile := BaselinePowerFile
	if hasStore {
		powerFile = BypassPowerFile
	}
	power, err := renderFrame(df, fmt.Sprintf("Dispatch (%s)", n.Name), "MW", filepath.Join(dir, powerFile))
	if err != nil {
		return nil, err
	}
	charts := []Chart{power}

	if hasStore {
		storage, err := renderFrame(sf, fmt.Sprintf("Hydrogen storage (%s)", n.Name), "MW / MWh", filepath.Join(dir, BypassStorageFile))
		if err != nil {
			return nil, err
		}
		charts = append(charts, storage)
	}
	return charts, nil
}

// SaveCharts writes charts as PNG files. If one fails, the files already
// written by this call are removed.
func SaveCharts(charts []Chart) ([]string, error) {
	var written []string
	for _, c := range charts {
		if err := saveChart(c); err != nil {
			for _, path := range written {
				_ = os.Remove(path)
			}
			return nil, err
		}
		written = append(written, c.Path)
		log.Printf("[Report] wrote %s", c.Path)
	}
	return written, nil
}

func saveChart(c Chart) (err error) {
	f, err := os.Create(c.Path)
	if err != nil {
		return fmt.Errorf("plot %s: %w", c.Path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("plot %s: %w", c.Path, cerr)
		}
	}()
	if _, err := c.img.WriteTo(f); err != nil {
		return fmt.Errorf("plot %s: %w", c.Path, err)
	}
	return nil
}

// WriteCharts renders and writes the charts of n. Nothing is written unless
// every chart renders. It returns the written paths.
func WriteCharts(n *model.Network, dir string) ([]string, error) {
	charts, err := RenderCharts(n, dir)
	if err != nil {
		return nil, err
	}
	return SaveCharts(charts)
}

func newBar(values plotter.Values, width vg.Length, c color.Color) (*plotter.BarChart, error) {
	bar, err := plotter.NewBarChart(values, width)
	if err != nil {
		return nil, err
	}
	bar.Color = c
	bar.LineStyle.Width = 0
	return bar, nil
}

func splitSigns(values []float64) (pos, neg plotter.Values) {
	pos = make(plotter.Values, len(values))
	neg = make(plotter.Values, len(values))
	for i, v := range values {
		if v > 0 {
			pos[i] = v
		} else {
			neg[i] = v
		}
	}
	return pos, neg
}

func hasNonZero(values plotter.Values) bool {
	for _, v := range values {
		if v != 0 {
			return true
		}
	}
	return false
}
