package plot

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Floor for |S|^2 in dB. Zero transmission is drawn here instead of -Inf.
const floorDB = -100.0

// Source is the data a plot is drawn from.
type Source interface {
	NumPorts() int
	PortName(i int) string
	Wavelengths() []float64
	MagnitudeDB(out, in int) ([]float64, error)
	PhaseDeg(out, in int) ([]float64, error)
}

type Options struct {
	Output      string // image path; a temp file when empty
	Title       string
	Interactive bool // open the image with the system viewer
	Width       vg.Length
	Height      vg.Length
}

type Option func(*Options)

func WithOutput(path string) Option {
	return func(o *Options) { o.Output = path }
}

func WithTitle(title string) Option {
	return func(o *Options) { o.Title = title }
}

func WithSize(w, h vg.Length) Option {
	return func(o *Options) { o.Width, o.Height = w, h }
}

// openFile is replaced in tests.
var openFile = browser.OpenFile

// Render draws the magnitude and phase of every [out, in] pair against
// wavelength into a PNG and returns its path.
func Render(src Source, ports [][2]int, opts Options) (string, error) {
	if len(ports) == 0 {
		return "", fmt.Errorf("no port pairs to plot")
	}
	if opts.Width == 0 {
		opts.Width = 8 * vg.Inch
	}
	if opts.Height == 0 {
		opts.Height = 7 * vg.Inch
	}

	wl := src.Wavelengths()
	nm := make([]float64, len(wl))
	for i, w := range wl {
		nm[i] = w * 1e9
	}

	mag := gplot.New()
	mag.Title.Text = opts.Title
	mag.X.Label.Text = "Wavelength (nm)"
	mag.Y.Label.Text = "Transmission (dB)"
	mag.Add(plotter.NewGrid())
	mag.Legend.Top = true

	phase := gplot.New()
	phase.X.Label.Text = "Wavelength (nm)"
	phase.Y.Label.Text = "Phase (deg)"
	phase.Add(plotter.NewGrid())

	for k, p := range ports {
		out, in := p[0], p[1]
		n := src.NumPorts()
		if out < 0 || out >= n || in < 0 || in >= n {
			return "", fmt.Errorf("port pair [%d %d] out of range for %d ports", out, in, n)
		}

		db, err := src.MagnitudeDB(out, in)
		if err != nil {
			return "", err
		}
		deg, err := src.PhaseDeg(out, in)
		if err != nil {
			return "", err
		}

		name := fmt.Sprintf("S%d%d %s->%s", out+1, in+1, src.PortName(in), src.PortName(out))

		magLine, err := plotter.NewLine(toXYs(nm, db, floorDB))
		if err != nil {
			return "", fmt.Errorf("magnitude trace %s: %w", name, err)
		}
		magLine.Color = plotutil.Color(k)
		mag.Add(magLine)
		mag.Legend.Add(name, magLine)

		phaseLine, err := plotter.NewLine(toXYs(nm, deg, -180))
		if err != nil {
			return "", fmt.Errorf("phase trace %s: %w", name, err)
		}
		phaseLine.Color = plotutil.Color(k)
		phase.Add(phaseLine)
	}

	img := vgimg.New(opts.Width, opts.Height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      4 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  4 * vg.Millimeter,
	}
	plots := [][]*gplot.Plot{{mag}, {phase}}
	canvases := gplot.Align(plots, tiles, dc)
	for j := range plots {
		plots[j][0].Draw(canvases[j][0])
	}

	path, err := outputPath(opts.Output)
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating plot file: %w", err)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return "", fmt.Errorf("writing plot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing plot file: %w", err)
	}

	if opts.Interactive {
		if err := openFile(path); err != nil {
			return path, fmt.Errorf("opening plot viewer: %w", err)
		}
	}
	return path, nil
}

func outputPath(path string) (string, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("creating plot directory: %w", err)
		}
		return path, nil
	}
	f, err := os.CreateTemp("", "sparams-*.png")
	if err != nil {
		return "", fmt.Errorf("creating temp plot file: %w", err)
	}
	path = f.Name()
	f.Close()
	return path, nil
}

// toXYs clamps values below floor and replaces NaN, which plotter rejects.
func toXYs(x, y []float64, floor float64) plotter.XYs {
	xys := make(plotter.XYs, len(x))
	for i := range x {
		v := y[i]
		switch {
		case math.IsNaN(v):
			v = floor
		case v < floor:
			v = floor
		}
		xys[i].X = x[i]
		xys[i].Y = v
	}
	return xys
}
