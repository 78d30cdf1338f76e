// Package figure renders trajectories to image files with gonum/plot.
package figure

import (
	"bufio"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/holosym/internal/dynamo"
	"github.com/san-kum/holosym/internal/physics"
)

type Options struct {
	// Width and Height are in inches.
	Width, Height float64
	DPI           int
	// Format is "png" or "svg".
	Format string
}

func DefaultOptions() Options {
	return Options{Width: 8, Height: 6, DPI: 150, Format: "png"}
}

// Figure is one rendered plot: a series of (X, Y) pairs drawn as a line.
type Figure struct {
	Name   string
	Title  string
	XLabel string
	YLabel string
	X, Y   []float64
}

// Breathing returns the four standard figures of a breathing run:
// φ(t), χ(t) and the two phase portraits.
func Breathing(traj *dynamo.Trajectory) []Figure {
	phi := traj.Column(physics.Phi)
	phiDot := traj.Column(physics.PhiDot)
	chi := traj.Column(physics.Chi)
	chiDot := traj.Column(physics.ChiDot)

	return []Figure{
		{Name: "phi", Title: "Breathing field φ(t)", XLabel: "t", YLabel: "φ", X: traj.Times, Y: phi},
		{Name: "chi", Title: "Compensator field χ(t)", XLabel: "t", YLabel: "χ", X: traj.Times, Y: chi},
		{Name: "phase_phi", Title: "Phase space: φ vs φ̇", XLabel: "φ", YLabel: "φ̇", X: phi, Y: phiDot},
		{Name: "phase_chi", Title: "Phase space: χ vs χ̇", XLabel: "χ", YLabel: "χ̇", X: chi, Y: chiDot},
	}
}

// Render writes the breathing figures of traj into dir and returns the
// paths written.
func Render(dir string, traj *dynamo.Trajectory, opts Options) ([]string, error) {
	if traj.Len() == 0 {
		return nil, fmt.Errorf("empty trajectory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create directory: %w", err)
	}

	paths := make([]string, 0, 4)
	for _, f := range Breathing(traj) {
		path := filepath.Join(dir, f.Name+"."+opts.Format)
		if err := f.Save(path, opts); err != nil {
			return paths, fmt.Errorf("%s: %w", f.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (f Figure) Plot() (*plot.Plot, error) {
	if len(f.X) != len(f.Y) || len(f.X) == 0 {
		return nil, fmt.Errorf("plot data invalid")
	}
	p := plot.New()
	p.Title.Text = f.Title
	p.X.Label.Text = f.XLabel
	p.Y.Label.Text = f.YLabel
	stylePlot(p)

	pts := make(plotter.XYs, len(f.X))
	for i := range f.X {
		pts[i].X = f.X[i]
		pts[i].Y = f.Y[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(line, plotter.NewGrid())
	return p, nil
}

func (f Figure) Save(path string, opts Options) error {
	p, err := f.Plot()
	if err != nil {
		return err
	}
	w := vg.Length(opts.Width) * vg.Inch
	h := vg.Length(opts.Height) * vg.Inch

	switch opts.Format {
	case "svg":
		return p.Save(w, h, path)
	case "png", "":
		return savePNG(p, w, h, opts.DPI, path)
	}
	return fmt.Errorf("unsupported format: %s", opts.Format)
}

func savePNG(p *plot.Plot, w, h vg.Length, dpi int, filename string) error {
	c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)

	p.X.Label.TextStyle.Font.Size = vg.Points(13)
	p.Y.Label.TextStyle.Font.Size = vg.Points(13)
	p.X.Padding = vg.Points(10)
	p.Y.Padding = vg.Points(10)

	p.X.Tick.Label.Font.Size = vg.Points(10)
	p.Y.Tick.Label.Font.Size = vg.Points(10)

	p.X.Tick.Marker = limitedTicker(8, "%.3g")
	p.Y.Tick.Marker = limitedTicker(8, "%.3g")
}
