package importance

import (
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

const (
	ChartTitle  = "Feature Importance"
	ChartXLabel = "Features"
	ChartYLabel = "Coefficient Magnitude"
)

// NewBarChart builds the importance chart: one bar per feature in ranking
// order, feature names as x tick labels rotated 90 degrees.
func NewBarChart(ranking []FeatureImportance) (*plot.Plot, error) {
	if len(ranking) == 0 {
		return nil, errors.NewValueError("importance.NewBarChart", "empty ranking")
	}

	values := make(plotter.Values, len(ranking))
	names := make([]string, len(ranking))
	for i, fi := range ranking {
		values[i] = fi.Importance
		names[i] = fi.Feature
	}

	p := plot.New()
	p.Title.Text = ChartTitle
	p.X.Label.Text = ChartXLabel
	p.Y.Label.Text = ChartYLabel

	bars, err := plotter.NewBarChart(values, vg.Points(16))
	if err != nil {
		return nil, errors.Wrap(err, "build bar chart")
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	return p, nil
}

// PlotBar renders ranking to path. The image format follows the file
// extension (.png, .svg, .pdf ...); parent directories are created.
func PlotBar(ranking []FeatureImportance, path string) error {
	p, err := NewBarChart(ranking)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create directory for %s", path)
		}
	}

	// 特徴量が多いときは横幅を広げる
	width := 10 * vg.Inch
	if w := vg.Length(len(ranking)) * 0.4 * vg.Inch; w > width {
		width = w
	}
	if err := p.Save(width, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save feature importance plot to %s", path)
	}
	return nil
}
