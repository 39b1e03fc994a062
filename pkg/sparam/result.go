package sparam

import (
	"fmt"
	"io"
	"math"
	"math/cmplx"

	"github.com/edp1096/toy-opics/pkg/plot"
	"github.com/edp1096/toy-opics/pkg/util"
)

// Result holds the scattering parameters of a network over a frequency grid.
// S is indexed [frequency][output port][input port].
type Result struct {
	Name        string
	Frequencies []float64 // Hz, ascending
	Ports       []string  // external net label of each port
	S           [][][]complex128
	C           float64 // speed of light used to convert to wavelength
}

func New(name string, freqs []float64, ports []string, c float64) *Result {
	s := make([][][]complex128, len(freqs))
	for f := range s {
		s[f] = make([][]complex128, len(ports))
		for i := range s[f] {
			s[f][i] = make([]complex128, len(ports))
		}
	}
	return &Result{
		Name:        name,
		Frequencies: freqs,
		Ports:       ports,
		S:           s,
		C:           c,
	}
}

func (r *Result) NumPorts() int { return len(r.Ports) }

func (r *Result) PortName(i int) string {
	if i < 0 || i >= len(r.Ports) {
		return fmt.Sprintf("port%d", i)
	}
	return r.Ports[i]
}

func (r *Result) checkPorts(out, in int) error {
	n := len(r.Ports)
	if out < 0 || out >= n || in < 0 || in >= n {
		return fmt.Errorf("port pair [%d %d] out of range for %d-port network %s", out, in, n, r.Name)
	}
	return nil
}

// Param returns S[out][in] over the whole grid.
func (r *Result) Param(out, in int) ([]complex128, error) {
	if err := r.checkPorts(out, in); err != nil {
		return nil, err
	}
	values := make([]complex128, len(r.Frequencies))
	for f := range r.Frequencies {
		values[f] = r.S[f][out][in]
	}
	return values, nil
}

// MagnitudeDB returns 10*log10(|S|^2). Zero transmission is -Inf.
func (r *Result) MagnitudeDB(out, in int) ([]float64, error) {
	values, err := r.Param(out, in)
	if err != nil {
		return nil, err
	}
	db := make([]float64, len(values))
	for i, v := range values {
		db[i] = 20 * math.Log10(cmplx.Abs(v))
	}
	return db, nil
}

func (r *Result) PhaseDeg(out, in int) ([]float64, error) {
	values, err := r.Param(out, in)
	if err != nil {
		return nil, err
	}
	phase := make([]float64, len(values))
	for i, v := range values {
		phase[i] = cmplx.Phase(v) * 180.0 / math.Pi
	}
	return phase, nil
}

func (r *Result) Wavelengths() []float64 {
	wl := make([]float64, len(r.Frequencies))
	for i, f := range r.Frequencies {
		wl[i] = r.C / f
	}
	return wl
}

// PlotSParameters renders |S|^2 and phase of the given [out, in] pairs and
// returns the path of the written image.
func (r *Result) PlotSParameters(ports [][2]int, interactive bool, opts ...plot.Option) (string, error) {
	for _, p := range ports {
		if err := r.checkPorts(p[0], p[1]); err != nil {
			return "", err
		}
	}
	o := plot.Options{Title: r.Name, Interactive: interactive}
	for _, opt := range opts {
		opt(&o)
	}
	return plot.Render(r, ports, o)
}

// WriteTable prints one line per frequency point with every requested pair.
func (r *Result) WriteTable(w io.Writer, ports [][2]int) error {
	type column struct {
		name       string
		mag, phase []float64
	}

	columns := make([]column, 0, len(ports))
	for _, p := range ports {
		mag, err := r.MagnitudeDB(p[0], p[1])
		if err != nil {
			return err
		}
		phase, err := r.PhaseDeg(p[0], p[1])
		if err != nil {
			return err
		}
		columns = append(columns, column{
			name:  fmt.Sprintf("S%d%d", p[0]+1, p[1]+1),
			mag:   mag,
			phase: phase,
		})
	}

	fmt.Fprintf(w, "\nS-Parameter Results (%d frequency points):\n", len(r.Frequencies))
	fmt.Fprintln(w, "Wavelength     Frequency       S-Parameters (Magnitude/Phase)")
	fmt.Fprintln(w, "-----------------------------------------------------------------------------")

	wl := r.Wavelengths()
	for i, freq := range r.Frequencies {
		fmt.Fprintf(w, "%s  %s  ", util.FormatWavelength(wl[i]), util.FormatFrequency(freq))
		for _, c := range columns {
			fmt.Fprintf(w, "%s  ", util.FormatSParam(c.name, c.mag[i], c.phase[i]))
		}
		fmt.Fprintln(w)
	}
	return nil
}
