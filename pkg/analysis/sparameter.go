package analysis

import (
	"context"
	"fmt"

	"github.com/edp1096/toy-opics/internal/logging"
	"github.com/edp1096/toy-opics/pkg/circuit"
	"github.com/edp1096/toy-opics/pkg/sparam"
	"github.com/edp1096/toy-opics/pkg/util"
)

// SParameterAnalysis sweeps a network over a frequency grid. The system is
// factored once per frequency and solved once per external port.
type SParameterAnalysis struct {
	BaseAnalysis
	frequencies []float64
	c           float64
	result      *sparam.Result
}

func NewSParameter(freqs []float64, c float64, opts ...Option) *SParameterAnalysis {
	return &SParameterAnalysis{
		BaseAnalysis: *NewBaseAnalysis(opts...),
		frequencies:  freqs,
		c:            c,
	}
}

func (sa *SParameterAnalysis) Setup(ckt *circuit.Circuit) error {
	if len(sa.frequencies) == 0 {
		return fmt.Errorf("empty frequency grid")
	}
	sa.Circuit = ckt

	if err := ckt.CreateMatrix(); err != nil {
		return fmt.Errorf("matrix setup error: %w", err)
	}
	if err := ckt.Evaluate(sa.frequencies); err != nil {
		return err
	}

	sa.result = sparam.New(ckt.Name(), sa.frequencies, ckt.ExternalNets(), sa.c)
	return nil
}

func (sa *SParameterAnalysis) Execute(ctx context.Context) error {
	if sa.Circuit == nil || sa.result == nil {
		return fmt.Errorf("circuit not set")
	}

	sa.log.Debug(ctx, "sweep started",
		logging.String("circuit", sa.Circuit.Name()),
		logging.Int("points", len(sa.frequencies)),
		logging.Int("ports", sa.result.NumPorts()))

	for f, freq := range sa.frequencies {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sweep of %s interrupted at point %d: %w", sa.Circuit.Name(), f, err)
		}

		if err := sa.Circuit.Stamp(f); err != nil {
			return fmt.Errorf("stamping error at f=%s: %w", util.FormatFrequency(freq), err)
		}
		if err := sa.Circuit.Solve(f, sa.result.S[f]); err != nil {
			return fmt.Errorf("solve error at f=%s: %w", util.FormatFrequency(freq), err)
		}
	}

	sa.log.Debug(ctx, "sweep finished", logging.String("circuit", sa.Circuit.Name()))
	return nil
}

func (sa *SParameterAnalysis) Result() *sparam.Result {
	return sa.result
}
