package device

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Waveguide is a straight two-port with a first-order dispersive effective
// index: neff(l) = neff0 - (ng - neff0)*(l - l0)/l0.
type Waveguide struct {
	BaseDevice
	Length  float64 // m
	Neff    float64 // effective index at Lambda0
	Ng      float64 // group index
	Loss    float64 // propagation loss, dB/m
	Lambda0 float64 // m
}

func NewWaveguide(name string, nodeNames []string, c, length, neff, ng, loss, lambda0 float64) *Waveguide {
	return &Waveguide{
		BaseDevice: NewBaseDevice(name, nodeNames, []string{"opt1", "opt2"}, c),
		Length:     length,
		Neff:       neff,
		Ng:         ng,
		Loss:       loss,
		Lambda0:    lambda0,
	}
}

func (w *Waveguide) GetType() string { return KindWaveguide }

func (w *Waveguide) EffectiveIndex(wl float64) float64 {
	return w.Neff - (w.Ng-w.Neff)*(wl-w.Lambda0)/w.Lambda0
}

func (w *Waveguide) SParams(freqs []float64) ([][][]complex128, error) {
	if err := w.checkPorts(2); err != nil {
		return nil, err
	}
	if w.Length < 0 {
		return nil, fmt.Errorf("waveguide %s: negative length %g", w.Name, w.Length)
	}

	amp := lossToAmplitude(w.Loss * w.Length)
	s := newSMatrix(len(freqs), 2)
	for f, freq := range freqs {
		wl, err := w.wavelength(freq)
		if err != nil {
			return nil, err
		}
		phase := 2 * math.Pi * w.EffectiveIndex(wl) * w.Length / wl
		t := complex(amp, 0) * cmplx.Exp(complex(0, -phase))
		s[f][1][0] = t
		s[f][0][1] = t
	}
	return s, nil
}
