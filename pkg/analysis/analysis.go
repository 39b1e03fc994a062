package analysis

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/edp1096/toy-opics/internal/consts"
	"github.com/edp1096/toy-opics/internal/logging"
	"github.com/edp1096/toy-opics/pkg/circuit"
	"github.com/edp1096/toy-opics/pkg/netlist"
	"github.com/edp1096/toy-opics/pkg/sparam"
)

type Analysis interface {
	Setup(ckt *circuit.Circuit) error
	Execute(ctx context.Context) error
	Result() *sparam.Result
}

type BaseAnalysis struct {
	Circuit *circuit.Circuit
	log     logging.Logger
}

type Option func(*BaseAnalysis)

func WithLogger(log logging.Logger) Option {
	return func(a *BaseAnalysis) { a.log = log }
}

func NewBaseAnalysis(opts ...Option) *BaseAnalysis {
	ba := &BaseAnalysis{log: logging.Noop()}
	for _, opt := range opts {
		opt(ba)
	}
	return ba
}

// FrequencyGrid builds the ascending sweep described by an analyzer block.
// Wavelength limits are converted with c, so the points are evenly spaced in
// frequency. Missing values fall back to 1500-1600 nm and 1000 points; fewer
// than two points yields the centre frequency alone.
func FrequencyGrid(an netlist.AnalyzerParam, c float64) ([]float64, error) {
	start, stop := an.Start, an.Stop
	unit := an.InputUnit
	if start == 0 && stop == 0 {
		start, stop = consts.DefaultStart, consts.DefaultStop
		unit = "wavelength"
	}
	points := an.Points
	if points == 0 {
		points = consts.DefaultSteps
	}
	if points < 0 {
		return nil, fmt.Errorf("number of points must be positive: %d", points)
	}
	if start <= 0 || stop <= 0 {
		return nil, fmt.Errorf("sweep limits must be positive: start=%g stop=%g", start, stop)
	}

	lo, hi := start, stop
	if lo > hi {
		lo, hi = hi, lo
	}
	if unit != "frequency" {
		lo, hi = c/hi, c/lo
	}

	if points < 2 {
		return []float64{(lo + hi) / 2}, nil
	}
	if lo == hi {
		return nil, fmt.Errorf("empty sweep range for %d points", points)
	}
	return floats.Span(make([]float64, points), lo, hi), nil
}
