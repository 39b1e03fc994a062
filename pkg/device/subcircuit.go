package device

import (
	"fmt"
	"math"

	"github.com/edp1096/toy-opics/pkg/sparam"
)

// Subcircuit reuses the simulated S-parameters of a nested network as one block.
type Subcircuit struct {
	BaseDevice
	Result *sparam.Result
}

func NewSubcircuit(name string, nodeNames []string, result *sparam.Result) *Subcircuit {
	return &Subcircuit{
		BaseDevice: NewBaseDevice(name, nodeNames, result.Ports, result.C),
		Result:     result,
	}
}

func (x *Subcircuit) GetType() string { return KindSubcircuit }

func (x *Subcircuit) SParams(freqs []float64) ([][][]complex128, error) {
	if err := x.checkPorts(x.Result.NumPorts()); err != nil {
		return nil, err
	}
	if len(freqs) != len(x.Result.Frequencies) {
		return nil, fmt.Errorf("subcircuit %s: simulated on %d points, requested %d",
			x.Name, len(x.Result.Frequencies), len(freqs))
	}
	for i, f := range freqs {
		ref := x.Result.Frequencies[i]
		if math.Abs(f-ref) > 1e-9*math.Abs(ref) {
			return nil, fmt.Errorf("subcircuit %s: frequency grid mismatch at point %d (%g != %g)", x.Name, i, f, ref)
		}
	}
	return x.Result.S, nil
}
