package plot

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
)

type fakeSource struct {
	wl  []float64
	mag []float64
}

func (f fakeSource) NumPorts() int          { return 2 }
func (f fakeSource) PortName(i int) string  { return []string{"in", "out"}[i] }
func (f fakeSource) Wavelengths() []float64 { return f.wl }
func (f fakeSource) MagnitudeDB(out, in int) ([]float64, error) {
	return f.mag, nil
}
func (f fakeSource) PhaseDeg(out, in int) ([]float64, error) {
	return make([]float64, len(f.wl)), nil
}

func newFakeSource() fakeSource {
	return fakeSource{
		wl:  []float64{1500e-9, 1550e-9, 1600e-9},
		mag: []float64{-3, math.Inf(-1), -10},
	}
}

func TestRenderWritesPNG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "plots", "mzi.png")

	path, err := Render(newFakeSource(), [][2]int{{1, 0}}, Options{Output: out, Title: "mzi"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if path != out {
		t.Fatalf("path = %q, want %q", path, out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("output is not a PNG")
	}
}

func TestRenderInteractiveOpensViewer(t *testing.T) {
	var opened string
	orig := openFile
	openFile = func(path string) error {
		opened = path
		return nil
	}
	t.Cleanup(func() { openFile = orig })

	out := filepath.Join(t.TempDir(), "s.png")
	if _, err := Render(newFakeSource(), [][2]int{{1, 0}}, Options{Output: out, Interactive: true}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if opened != out {
		t.Fatalf("viewer opened %q, want %q", opened, out)
	}
}

func TestRenderRejectsBadPairs(t *testing.T) {
	out := filepath.Join(t.TempDir(), "s.png")
	if _, err := Render(newFakeSource(), nil, Options{Output: out}); err == nil {
		t.Fatal("expected error for empty pair list")
	}
	if _, err := Render(newFakeSource(), [][2]int{{2, 0}}, Options{Output: out}); err == nil {
		t.Fatal("expected error for out of range pair")
	}
}

func TestToXYsClampsFloor(t *testing.T) {
	xys := toXYs([]float64{1, 2, 3}, []float64{math.Inf(-1), math.NaN(), -5}, -100)
	want := []float64{-100, -100, -5}
	for i, w := range want {
		if xys[i].Y != w {
			t.Fatalf("xys[%d].Y = %g, want %g", i, xys[i].Y, w)
		}
	}
}
