// Package plot renders cluster assignments and elbow curves as images.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/oho/clusterlab/internal/cluster"
)

var (
	ErrNoPoints     = errors.New("plot: nothing to draw")
	ErrFeatureRange = errors.New("plot: feature index out of range")
)

// Options controls the rendered image.
type Options struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
	// Format is any extension gonum/plot understands: png, svg, pdf, jpg.
	Format string
}

func (o Options) withDefaults() Options {
	if o.Width == 0 {
		o.Width = 6 * vg.Inch
	}
	if o.Height == 0 {
		o.Height = 5 * vg.Inch
	}
	if o.Format == "" {
		o.Format = "png"
	}
	return o
}

// Scatter draws points projected on features x and y, one color per
// cluster label, with centroids marked by crosses.
func Scatter(w io.Writer, points [][]float64, labels []int, centroids [][]float64, x, y int, opts Options) error {
	if len(points) == 0 {
		return ErrNoPoints
	}
	if len(labels) != len(points) {
		return fmt.Errorf("plot: %d labels for %d points", len(labels), len(points))
	}
	dim := len(points[0])
	if x < 0 || y < 0 || x >= dim || y >= dim {
		return fmt.Errorf("%w: x=%d y=%d dim=%d", ErrFeatureRange, x, y, dim)
	}
	opts = opts.withDefaults()

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.Add(plotter.NewGrid())

	groups := make(map[int]plotter.XYs)
	maxLabel := 0
	for i, row := range points {
		l := labels[i]
		groups[l] = append(groups[l], plotter.XY{X: row[x], Y: row[y]})
		if l > maxLabel {
			maxLabel = l
		}
	}
	for l := 0; l <= maxLabel; l++ {
		xys, ok := groups[l]
		if !ok {
			continue
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("cluster %d scatter: %w", l, err)
		}
		s.GlyphStyle.Color = plotutil.Color(l)
		s.GlyphStyle.Shape = plotutil.Shape(l)
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("cluster %d", l), s)
	}

	if len(centroids) > 0 {
		xys := make(plotter.XYs, 0, len(centroids))
		for _, c := range centroids {
			if x < len(c) && y < len(c) {
				xys = append(xys, plotter.XY{X: c[x], Y: c[y]})
			}
		}
		c, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("centroid scatter: %w", err)
		}
		c.GlyphStyle.Color = color.Black
		c.GlyphStyle.Shape = draw.CrossGlyph{}
		c.GlyphStyle.Radius = vg.Points(6)
		p.Add(c)
		p.Legend.Add("centroids", c)
	}

	return write(w, p, opts)
}

// Elbow draws inertia against K, the curve used to pick a cluster count.
func Elbow(w io.Writer, points []cluster.ElbowPoint, opts Options) error {
	if len(points) == 0 {
		return ErrNoPoints
	}
	opts = opts.withDefaults()
	if opts.XLabel == "" {
		opts.XLabel = "k"
	}
	if opts.YLabel == "" {
		opts.YLabel = "inertia"
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: float64(pt.K), Y: pt.Inertia}
	}
	line, dots, err := plotter.NewLinePoints(xys)
	if err != nil {
		return fmt.Errorf("elbow line: %w", err)
	}
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Color = plotutil.Color(0)
	dots.GlyphStyle.Color = plotutil.Color(0)
	p.Add(line, dots)

	return write(w, p, opts)
}

func write(w io.Writer, p *plot.Plot, opts Options) error {
	wt, err := p.WriterTo(opts.Width, opts.Height, opts.Format)
	if err != nil {
		return fmt.Errorf("render %s: %w", opts.Format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", opts.Format, err)
	}
	return nil
}
