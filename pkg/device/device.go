package device

import (
	"fmt"
	"math"
)

// Device is a linear optical component described by its scattering matrix.
// Port k of the device is attached to net NodeNames[k].
type Device interface {
	GetName() string
	GetType() string
	GetNodeNames() []string
	GetPortNames() []string
	GetNodes() []int
	SetNodes(nodes []int)
	// SParams evaluates S over freqs, indexed [frequency][out][in].
	SParams(freqs []float64) ([][][]complex128, error)
}

// Kinds understood by the component library.
const (
	KindWaveguide  = "waveguide"
	KindYBranch    = "ybranch"
	KindCoupler    = "coupler"
	KindGrating    = "grating"
	KindTerminator = "terminator"
	KindSubcircuit = "subcircuit"
)

// Reflections at or below this level are treated as exactly zero.
const MinDB = -200.0

type BaseDevice struct {
	Name      string
	Nodes     []int    // global port index of each device port, 1-based
	NodeNames []string // net of each device port
	PortNames []string // model port names, e.g. opt1
	C         float64  // speed of light
}

func NewBaseDevice(name string, nodeNames, portNames []string, c float64) BaseDevice {
	return BaseDevice{
		Name:      name,
		Nodes:     make([]int, len(nodeNames)),
		NodeNames: nodeNames,
		PortNames: portNames,
		C:         c,
	}
}

func (d *BaseDevice) GetName() string { return d.Name }

func (d *BaseDevice) GetNodes() []int { return d.Nodes }

func (d *BaseDevice) GetNodeNames() []string { return d.NodeNames }

func (d *BaseDevice) GetPortNames() []string { return d.PortNames }

func (d *BaseDevice) SetNodes(nodes []int) { d.Nodes = nodes }

func (d *BaseDevice) SetPortNames(names []string) { d.PortNames = names }

func (d *BaseDevice) wavelength(freq float64) (float64, error) {
	if freq <= 0 {
		return 0, fmt.Errorf("device %s: non-positive frequency %g", d.Name, freq)
	}
	return d.C / freq, nil
}

func (d *BaseDevice) checkPorts(n int) error {
	if len(d.NodeNames) != n {
		return fmt.Errorf("device %s: requires exactly %d nets, got %d", d.Name, n, len(d.NodeNames))
	}
	return nil
}

func newSMatrix(nf, n int) [][][]complex128 {
	s := make([][][]complex128, nf)
	for f := range s {
		s[f] = make([][]complex128, n)
		for i := range s[f] {
			s[f][i] = make([]complex128, n)
		}
	}
	return s
}

// dbToAmplitude converts a power level in dB to a field amplitude.
func dbToAmplitude(db float64) float64 {
	if db <= MinDB || math.IsInf(db, -1) {
		return 0
	}
	return math.Pow(10, db/20)
}

// lossToAmplitude converts a positive insertion loss in dB to a field amplitude.
func lossToAmplitude(lossDB float64) float64 {
	return math.Pow(10, -lossDB/20)
}
