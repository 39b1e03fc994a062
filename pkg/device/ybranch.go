package device

import "math"

// YBranch splits opt1 equally into opt2 and opt3.
type YBranch struct {
	BaseDevice
	InsertionLoss float64 // dB, excess loss over the ideal 3 dB split
	Reflection    float64 // dB
}

func NewYBranch(name string, nodeNames []string, c, insertionLoss, reflection float64) *YBranch {
	return &YBranch{
		BaseDevice:    NewBaseDevice(name, nodeNames, []string{"opt1", "opt2", "opt3"}, c),
		InsertionLoss: insertionLoss,
		Reflection:    reflection,
	}
}

func (y *YBranch) GetType() string { return KindYBranch }

func (y *YBranch) SParams(freqs []float64) ([][][]complex128, error) {
	if err := y.checkPorts(3); err != nil {
		return nil, err
	}

	split := complex(lossToAmplitude(y.InsertionLoss)/math.Sqrt2, 0)
	r := complex(dbToAmplitude(y.Reflection), 0)

	s := newSMatrix(len(freqs), 3)
	for f := range freqs {
		s[f][1][0], s[f][0][1] = split, split
		s[f][2][0], s[f][0][2] = split, split
		for i := 0; i < 3; i++ {
			s[f][i][i] = r
		}
	}
	return s, nil
}
