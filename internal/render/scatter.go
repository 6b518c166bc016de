package render

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ScatterPlot describes one x/y chart.
type ScatterPlot struct {
	Title  string
	XLabel string
	YLabel string
	X, Y   []float64
}

// SavePNG draws the points with a least-squares line and writes a PNG.
func (s ScatterPlot) SavePNG(path string) error {
	if len(s.X) != len(s.Y) {
		return fmt.Errorf("scatter: %d x values but %d y values", len(s.X), len(s.Y))
	}
	if len(s.X) == 0 {
		return fmt.Errorf("scatter: no points")
	}
	p := plot.New()
	p.Title.Text = s.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = s.XLabel
	p.Y.Label.Text = s.YLabel
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(s.X))
	for i := range s.X {
		pts[i].X, pts[i].Y = s.X[i], s.Y[i]
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("scatter: %w", err)
	}
	sc.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 200}
	sc.GlyphStyle.Radius = vg.Points(2.5)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(sc)

	if len(s.X) >= 2 && stat.Variance(s.X, nil) > 0 {
		alpha, beta := stat.LinearRegression(s.X, s.Y, nil, false)
		fit := plotter.NewFunction(func(x float64) float64 { return alpha + beta*x })
		fit.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		fit.Width = vg.Points(1.5)
		p.Add(fit)
		p.Legend.Add(fmt.Sprintf("y = %.2f + %.2fx", alpha, beta), fit)
		p.Legend.Top = true
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
