package sparam

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/edp1096/toy-opics/internal/consts"
)

func twoPort() *Result {
	freqs := []float64{consts.C / 1550e-9, consts.C / 1500e-9}
	r := New("wg", freqs, []string{"a", "b"}, consts.C)
	for f := range freqs {
		r.S[f][1][0] = complex(0, -math.Sqrt(0.5))
		r.S[f][0][1] = complex(0, -math.Sqrt(0.5))
	}
	return r
}

func TestMagnitudeAndPhase(t *testing.T) {
	r := twoPort()

	db, err := r.MagnitudeDB(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(db[0]+3.0103) > 1e-3 {
		t.Fatalf("db = %g, want -3.01", db[0])
	}

	deg, err := r.PhaseDeg(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(deg[0]+90) > 1e-9 {
		t.Fatalf("phase = %g, want -90", deg[0])
	}

	refl, err := r.MagnitudeDB(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(refl[0], -1) {
		t.Fatalf("reflection = %g, want -Inf", refl[0])
	}
}

func TestWavelengths(t *testing.T) {
	wl := twoPort().Wavelengths()
	if math.Abs(wl[0]-1550e-9) > 1e-15 || math.Abs(wl[1]-1500e-9) > 1e-15 {
		t.Fatalf("wavelengths = %v", wl)
	}
}

func TestParamOutOfRange(t *testing.T) {
	r := twoPort()
	if _, err := r.Param(2, 0); err == nil {
		t.Fatal("expected error")
	}
	if _, err := r.PlotSParameters([][2]int{{0, -1}}, false); err == nil {
		t.Fatal("expected error from plot")
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := twoPort().WriteTable(&buf, [][2]int{{1, 0}}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "2 frequency points") {
		t.Fatalf("missing header: %q", out)
	}
	if !strings.Contains(out, "1550.000 nm") || !strings.Contains(out, "S21=  -3.010dB<  -90.0deg") {
		t.Fatalf("missing row: %q", out)
	}
}
