package device

import (
	"fmt"
	"math"
)

// Coupler is a four-port directional coupler. opt1/opt2 are on the left,
// opt3/opt4 on the right; opt1->opt3 and opt2->opt4 are the through paths.
type Coupler struct {
	BaseDevice
	Coupling      float64 // power coupling ratio at Lambda0
	CouplingSlope float64 // d(coupling)/d(wavelength), 1/m
	InsertionLoss float64 // dB
	Lambda0       float64 // m
}

func NewCoupler(name string, nodeNames []string, c, coupling, slope, insertionLoss, lambda0 float64) *Coupler {
	return &Coupler{
		BaseDevice:    NewBaseDevice(name, nodeNames, []string{"opt1", "opt2", "opt3", "opt4"}, c),
		Coupling:      coupling,
		CouplingSlope: slope,
		InsertionLoss: insertionLoss,
		Lambda0:       lambda0,
	}
}

func (d *Coupler) GetType() string { return KindCoupler }

// CouplingAt returns the power coupling at wavelength wl, clamped to [0, 1].
func (d *Coupler) CouplingAt(wl float64) float64 {
	k := d.Coupling + d.CouplingSlope*(wl-d.Lambda0)
	return math.Min(1, math.Max(0, k))
}

func (d *Coupler) SParams(freqs []float64) ([][][]complex128, error) {
	if err := d.checkPorts(4); err != nil {
		return nil, err
	}
	if d.Coupling < 0 || d.Coupling > 1 {
		return nil, fmt.Errorf("coupler %s: coupling must be between 0 and 1: %g", d.Name, d.Coupling)
	}

	amp := lossToAmplitude(d.InsertionLoss)
	s := newSMatrix(len(freqs), 4)
	for f, freq := range freqs {
		wl, err := d.wavelength(freq)
		if err != nil {
			return nil, err
		}
		kappa := d.CouplingAt(wl)
		through := complex(amp*math.Sqrt(1-kappa), 0)
		cross := complex(0, -amp*math.Sqrt(kappa))

		s[f][2][0], s[f][0][2] = through, through
		s[f][3][1], s[f][1][3] = through, through
		s[f][3][0], s[f][0][3] = cross, cross
		s[f][2][1], s[f][1][2] = cross, cross
	}
	return s, nil
}
