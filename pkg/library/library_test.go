package library

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/edp1096/toy-opics/internal/consts"
	"github.com/edp1096/toy-opics/pkg/device"
	"github.com/edp1096/toy-opics/pkg/netlist"
)

func mustDefault(t *testing.T) *Registry {
	t.Helper()
	r, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	return r
}

func TestDefaultModels(t *testing.T) {
	r := mustDefault(t)

	want := []string{
		"ebeam_wg_integral_1550",
		"ebeam_y_1550",
		"ebeam_bdc_te1550",
		"ebeam_dc_te1550",
		"ebeam_dc_halfring_straight",
		"ebeam_gc_te1550",
		"ebeam_terminator_te1550",
	}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v", got)
	}

	wg, ok := r.Lookup("ebeam_wg_integral_1550")
	if !ok {
		t.Fatal("waveguide model missing")
	}
	if wg.Kind != device.KindWaveguide || math.Abs(wg.Params["lambda0"]-1550e-9) > 1e-20 {
		t.Fatalf("waveguide = %+v", wg)
	}
	if !reflect.DeepEqual(wg.Order, []string{"wg_length", "neff", "ng", "loss", "lambda0"}) {
		t.Fatalf("param order = %v", wg.Order)
	}
}

func TestNewDevice(t *testing.T) {
	r := mustDefault(t)

	tests := []struct {
		name  string
		elem  netlist.Element
		kind  string
		ports []string
	}{
		{
			name:  "waveguide",
			elem:  netlist.Element{Name: "wg1", Model: "ebeam_wg_integral_1550", Nets: []string{"a", "b"}},
			kind:  device.KindWaveguide,
			ports: []string{"opt1", "opt2"},
		},
		{
			name:  "y branch",
			elem:  netlist.Element{Name: "y1", Model: "ebeam_y_1550", Nets: []string{"a", "b", "c"}},
			kind:  device.KindYBranch,
			ports: []string{"opt1", "opt2", "opt3"},
		},
		{
			name:  "ring coupler",
			elem:  netlist.Element{Name: "dc1", Model: "ebeam_dc_halfring_straight", Nets: []string{"a", "b", "c", "d"}},
			kind:  device.KindCoupler,
			ports: []string{"pin1", "pin2", "pin3", "pin4"},
		},
		{
			name:  "grating",
			elem:  netlist.Element{Name: "gc1", Model: "ebeam_gc_te1550", Nets: []string{"a", "b"}},
			kind:  device.KindGrating,
			ports: []string{"opt1", "opt_fiber"},
		},
		{
			name:  "terminator",
			elem:  netlist.Element{Name: "t1", Model: "ebeam_terminator_te1550", Nets: []string{"a"}},
			kind:  device.KindTerminator,
			ports: []string{"opt1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := r.NewDevice(tt.elem, consts.C)
			if err != nil {
				t.Fatalf("NewDevice: %v", err)
			}
			if dev.GetType() != tt.kind {
				t.Fatalf("kind = %s, want %s", dev.GetType(), tt.kind)
			}
			if !reflect.DeepEqual(dev.GetPortNames(), tt.ports) {
				t.Fatalf("ports = %v", dev.GetPortNames())
			}
			if !reflect.DeepEqual(dev.GetNodeNames(), tt.elem.Nets) {
				t.Fatalf("nets = %v", dev.GetNodeNames())
			}
		})
	}
}

func TestElementOverridesDefaults(t *testing.T) {
	r := mustDefault(t)
	elem := netlist.Element{
		Name:   "wg1",
		Model:  "ebeam_wg_integral_1550",
		Nets:   []string{"a", "b"},
		Params: map[string]string{"wg_length": "150u", "wg_width": "500n", "library": "Design kits/ebeam"},
	}
	dev, err := r.NewDevice(elem, consts.C)
	if err != nil {
		t.Fatal(err)
	}
	wg := dev.(*device.Waveguide)
	if math.Abs(wg.Length-150e-6) > 1e-20 {
		t.Fatalf("length = %g", wg.Length)
	}
	if wg.Neff != 2.44553 {
		t.Fatalf("neff = %g, want library default", wg.Neff)
	}
}

func TestNewDeviceErrors(t *testing.T) {
	r := mustDefault(t)

	_, err := r.NewDevice(netlist.Element{Name: "u1", Model: "ebeam_nope", Nets: []string{"a"}}, consts.C)
	if !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("err = %v, want ErrUnknownModel", err)
	}

	_, err = r.NewDevice(netlist.Element{Name: "y1", Model: "ebeam_y_1550", Nets: []string{"a", "b"}}, consts.C)
	if err == nil {
		t.Fatal("expected port count error")
	}

	_, err = r.NewDevice(netlist.Element{
		Name:   "wg1",
		Model:  "ebeam_wg_integral_1550",
		Nets:   []string{"a", "b"},
		Params: map[string]string{"wg_length": "long"},
	}, consts.C)
	if err == nil {
		t.Fatal("expected parameter error")
	}
}

func TestLoadFileMerges(t *testing.T) {
	r := mustDefault(t)

	path := filepath.Join(t.TempDir(), "lib.yaml")
	content := `models:
  ebeam_y_1550:
    params:
      insertion_loss: 0
  my_splitter:
    kind: coupler
    params:
      coupling: 0.1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	y, _ := r.Lookup("ebeam_y_1550")
	if y.Params["insertion_loss"] != 0 || y.Params["reflection"] != -40 {
		t.Fatalf("merged params = %v", y.Params)
	}
	if y.Kind != device.KindYBranch {
		t.Fatalf("kind lost in merge: %q", y.Kind)
	}

	sp, ok := r.Lookup("my_splitter")
	if !ok || !reflect.DeepEqual(sp.Ports, []string{"opt1", "opt2", "opt3", "opt4"}) {
		t.Fatalf("my_splitter = %+v", sp)
	}
	names := r.Names()
	if names[len(names)-1] != "my_splitter" {
		t.Fatalf("new model not appended: %v", names)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no models", "components: {}\n"},
		{"unknown kind", "models:\n  m:\n    kind: laser\n"},
		{"new model without kind", "models:\n  m:\n    params:\n      x: 1\n"},
		{"wrong ports", "models:\n  m:\n    kind: waveguide\n    ports: [a, b, c]\n"},
		{"bad value", "models:\n  m:\n    kind: terminator\n    params:\n      reflection: lots\n"},
		{"params not a mapping", "models:\n  m:\n    kind: terminator\n    params: [1, 2]\n"},
		{"invalid yaml", "models: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewRegistry().Load([]byte(tt.content), "test.yaml"); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if err := NewRegistry().LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}
