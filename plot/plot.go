// Package plot renders model diagnostics as PNG images with gonum/plot.
package plot

import (
	"bytes"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Image size of every rendered plot.
var (
	Width  = 7 * vg.Inch
	Height = 5 * vg.Inch
)

var (
	trainColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	testColor  = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	refColor   = color.RGBA{R: 127, G: 127, B: 127, A: 255}
	alertColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

// render encodes p as PNG.
func render(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create png canvas")
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to render png")
	}
	return buf.Bytes(), nil
}

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X, pts[i].Y = x[i], y[i]
	}
	return pts
}

func scatter(x, y []float64, c color.Color) (*plotter.Scatter, error) {
	s, err := plotter.NewScatter(xys(x, y))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create scatter")
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = vg.Points(2.5)
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	return s, nil
}

func dashedLine(pts plotter.XYs, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create line")
	}
	l.Color = c
	l.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	return l, nil
}

func checkPairs(op string, a, b []float64) error {
	if len(a) == 0 {
		return errors.NewValueError(op, "no points to plot")
	}
	if len(a) != len(b) {
		return errors.NewDimensionError(op, len(a), len(b), 0)
	}
	return nil
}

func minMax(vals ...[]float64) (lo, hi float64) {
	first := true
	for _, v := range vals {
		for _, x := range v {
			if first || x < lo {
				lo = x
			}
			if first || x > hi {
				hi = x
			}
			first = false
		}
	}
	return lo, hi
}
