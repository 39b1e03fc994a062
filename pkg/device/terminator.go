package device

type Terminator struct {
	BaseDevice
	Reflection float64 // dB
}

func NewTerminator(name string, nodeNames []string, c, reflection float64) *Terminator {
	return &Terminator{
		BaseDevice: NewBaseDevice(name, nodeNames, []string{"opt1"}, c),
		Reflection: reflection,
	}
}

func (t *Terminator) GetType() string { return KindTerminator }

func (t *Terminator) SParams(freqs []float64) ([][][]complex128, error) {
	if err := t.checkPorts(1); err != nil {
		return nil, err
	}
	r := complex(dbToAmplitude(t.Reflection), 0)
	s := newSMatrix(len(freqs), 1)
	for f := range freqs {
		s[f][0][0] = r
	}
	return s, nil
}
