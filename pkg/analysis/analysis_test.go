package analysis

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/edp1096/toy-opics/internal/consts"
	"github.com/edp1096/toy-opics/pkg/circuit"
	"github.com/edp1096/toy-opics/pkg/device"
	"github.com/edp1096/toy-opics/pkg/netlist"
)

func TestFrequencyGrid(t *testing.T) {
	tests := []struct {
		name   string
		an     netlist.AnalyzerParam
		points int
		lo, hi float64
	}{
		{
			name:   "defaults",
			an:     netlist.AnalyzerParam{},
			points: consts.DefaultSteps,
			lo:     consts.C / consts.DefaultStop,
			hi:     consts.C / consts.DefaultStart,
		},
		{
			name:   "wavelength",
			an:     netlist.AnalyzerParam{Defined: true, InputUnit: "wavelength", Start: 1500e-9, Stop: 1600e-9, Points: 200},
			points: 200,
			lo:     consts.C / 1600e-9,
			hi:     consts.C / 1500e-9,
		},
		{
			name:   "reversed wavelength",
			an:     netlist.AnalyzerParam{Defined: true, InputUnit: "wavelength", Start: 1600e-9, Stop: 1500e-9, Points: 3},
			points: 3,
			lo:     consts.C / 1600e-9,
			hi:     consts.C / 1500e-9,
		},
		{
			name:   "frequency",
			an:     netlist.AnalyzerParam{Defined: true, InputUnit: "frequency", Start: 190e12, Stop: 200e12, Points: 11},
			points: 11,
			lo:     190e12,
			hi:     200e12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			freqs, err := FrequencyGrid(tt.an, consts.C)
			if err != nil {
				t.Fatal(err)
			}
			if len(freqs) != tt.points {
				t.Fatalf("points = %d, want %d", len(freqs), tt.points)
			}
			if math.Abs(freqs[0]-tt.lo) > 1 || math.Abs(freqs[len(freqs)-1]-tt.hi) > 1 {
				t.Fatalf("range = %g..%g, want %g..%g", freqs[0], freqs[len(freqs)-1], tt.lo, tt.hi)
			}
			step := freqs[1] - freqs[0]
			for i := 1; i < len(freqs); i++ {
				if d := freqs[i] - freqs[i-1]; d <= 0 || math.Abs(d-step) > 1e-6*step {
					t.Fatalf("uneven step at %d: %g vs %g", i, d, step)
				}
			}
		})
	}
}

func TestFrequencyGridSinglePoint(t *testing.T) {
	an := netlist.AnalyzerParam{Defined: true, InputUnit: "wavelength", Start: 1500e-9, Stop: 1600e-9, Points: 1}
	freqs, err := FrequencyGrid(an, consts.C)
	if err != nil {
		t.Fatal(err)
	}
	want := (consts.C/1600e-9 + consts.C/1500e-9) / 2
	if len(freqs) != 1 || math.Abs(freqs[0]-want) > 1 {
		t.Fatalf("freqs = %v, want [%g]", freqs, want)
	}
}

func TestFrequencyGridErrors(t *testing.T) {
	bad := []netlist.AnalyzerParam{
		{Defined: true, Start: -1e-6, Stop: 1e-6, Points: 10},
		{Defined: true, Start: 1550e-9, Stop: 1550e-9, Points: 10},
		{Defined: true, Start: 1500e-9, Stop: 1600e-9, Points: -4},
	}
	for i, an := range bad {
		if _, err := FrequencyGrid(an, consts.C); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func newWaveguideCircuit(t *testing.T) *circuit.Circuit {
	t.Helper()
	ckt := circuit.New("wg")
	ckt.AddDevice(device.NewWaveguide("wg1", []string{"in", "out"}, consts.C, 50e-6, 2.44, 4.2, 300, 1550e-9))
	if err := ckt.AssignPortMaps(context.Background(), []string{"in", "out"}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ckt.Destroy)
	return ckt
}

func TestSParameterSweep(t *testing.T) {
	freqs := []float64{consts.C / 1560e-9, consts.C / 1550e-9, consts.C / 1540e-9}
	ckt := newWaveguideCircuit(t)

	var a Analysis = NewSParameter(freqs, consts.C)
	if err := a.Setup(ckt); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := a.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	res := a.Result()
	if res.Name != "wg" || res.NumPorts() != 2 {
		t.Fatalf("result = %s with %d ports", res.Name, res.NumPorts())
	}
	amp := math.Pow(10, -300*50e-6/20)
	for f := range freqs {
		if got := cmplx.Abs(res.S[f][1][0]); math.Abs(got-amp) > 1e-12 {
			t.Fatalf("f=%d |S21| = %g, want %g", f, got, amp)
		}
	}
}

func TestSParameterCancelled(t *testing.T) {
	freqs := []float64{consts.C / 1560e-9, consts.C / 1550e-9}
	ckt := newWaveguideCircuit(t)

	a := NewSParameter(freqs, consts.C)
	if err := a.Setup(ckt); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Execute(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestExecuteWithoutSetup(t *testing.T) {
	if err := NewSParameter([]float64{1}, consts.C).Execute(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if err := NewSParameter(nil, consts.C).Setup(circuit.New("x")); err == nil {
		t.Fatal("expected error for empty grid")
	}
}
