package device

import (
	"fmt"
	"math"
)

// GratingCoupler couples the waveguide port opt1 to the fiber port opt2 with a
// Gaussian power spectrum centred on CenterWavelength.
type GratingCoupler struct {
	BaseDevice
	InsertionLoss    float64 // peak loss, dB
	CenterWavelength float64 // m
	Bandwidth        float64 // 3 dB full width, m
	BackReflection   float64 // dB
}

func NewGratingCoupler(name string, nodeNames []string, c, insertionLoss, center, bandwidth, backReflection float64) *GratingCoupler {
	return &GratingCoupler{
		BaseDevice:       NewBaseDevice(name, nodeNames, []string{"opt1", "opt2"}, c),
		InsertionLoss:    insertionLoss,
		CenterWavelength: center,
		Bandwidth:        bandwidth,
		BackReflection:   backReflection,
	}
}

func (g *GratingCoupler) GetType() string { return KindGrating }

// Transmission returns the power transmission at wavelength wl.
func (g *GratingCoupler) Transmission(wl float64) float64 {
	x := (wl - g.CenterWavelength) / g.Bandwidth
	return math.Pow(10, -g.InsertionLoss/10) * math.Exp(-4*math.Ln2*x*x)
}

func (g *GratingCoupler) SParams(freqs []float64) ([][][]complex128, error) {
	if err := g.checkPorts(2); err != nil {
		return nil, err
	}
	if g.Bandwidth <= 0 {
		return nil, fmt.Errorf("grating coupler %s: bandwidth must be positive", g.Name)
	}

	r := complex(dbToAmplitude(g.BackReflection), 0)
	s := newSMatrix(len(freqs), 2)
	for f, freq := range freqs {
		wl, err := g.wavelength(freq)
		if err != nil {
			return nil, err
		}
		t := complex(math.Sqrt(g.Transmission(wl)), 0)
		s[f][1][0], s[f][0][1] = t, t
		s[f][0][0] = r
	}
	return s, nil
}
