package library

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edp1096/toy-opics/internal/consts"
	"github.com/edp1096/toy-opics/pkg/device"
	"github.com/edp1096/toy-opics/pkg/netlist"
)

//go:embed library.yaml
var builtin []byte

var ErrUnknownModel = errors.New("unknown component model")

// Definition describes how a model name maps onto a device kind.
type Definition struct {
	Name   string
	Kind   string
	Ports  []string
	Params map[string]float64 // defaults, overridden by element parameters
	Order  []string           // parameter keys in declaration order
	Source string
}

type Registry struct {
	models map[string]*Definition
	order  []string
}

// Port count of every kind the library can build. Subcircuits are handled by
// the processor.
var kindPorts = map[string]int{
	device.KindWaveguide:  2,
	device.KindYBranch:    3,
	device.KindCoupler:    4,
	device.KindGrating:    2,
	device.KindTerminator: 1,
}

var defaultPorts = map[string][]string{
	device.KindWaveguide:  {"opt1", "opt2"},
	device.KindYBranch:    {"opt1", "opt2", "opt3"},
	device.KindCoupler:    {"opt1", "opt2", "opt3", "opt4"},
	device.KindGrating:    {"opt1", "opt2"},
	device.KindTerminator: {"opt1"},
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*Definition)}
}

// Default returns a registry holding the built-in models.
func Default() (*Registry, error) {
	r := NewRegistry()
	if err := r.Load(builtin, "builtin"); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading component library: %w", err)
	}
	return r.Load(data, path)
}

// Load merges a YAML document into the registry. A model that repeats an
// existing name without a kind only overrides parameter defaults.
func (r *Registry) Load(data []byte, source string) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}

	models := mappingValue(&root, "models")
	if models == nil {
		return fmt.Errorf("%s: no models mapping", source)
	}

	for i := 0; i < len(models.Content)-1; i += 2 {
		name := models.Content[i].Value
		def, err := decodeDefinition(name, models.Content[i+1], source)
		if err != nil {
			return err
		}
		if err := r.merge(def); err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
	}
	return nil
}

type rawDefinition struct {
	Kind   string    `yaml:"kind"`
	Ports  []string  `yaml:"ports"`
	Params yaml.Node `yaml:"params"`
}

func decodeDefinition(name string, node *yaml.Node, source string) (*Definition, error) {
	var raw rawDefinition
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%s: model %s (line %d): %w", source, name, node.Line, err)
	}

	def := &Definition{
		Name:   name,
		Kind:   raw.Kind,
		Ports:  raw.Ports,
		Params: make(map[string]float64),
		Source: source,
	}

	if raw.Params.Kind != 0 && raw.Params.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: model %s (line %d): params must be a mapping", source, name, raw.Params.Line)
	}
	for i := 0; i < len(raw.Params.Content)-1; i += 2 {
		key, value := raw.Params.Content[i], raw.Params.Content[i+1]
		v, err := netlist.ParseValue(value.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: model %s parameter %s (line %d): %w", source, name, key.Value, value.Line, err)
		}
		def.Params[key.Value] = v
		def.Order = append(def.Order, key.Value)
	}
	return def, nil
}

func (r *Registry) merge(def *Definition) error {
	existing, ok := r.models[def.Name]
	if def.Kind == "" {
		if !ok {
			return fmt.Errorf("model %s has no kind", def.Name)
		}
		for _, key := range def.Order {
			if _, seen := existing.Params[key]; !seen {
				existing.Order = append(existing.Order, key)
			}
			existing.Params[key] = def.Params[key]
		}
		existing.Source = def.Source
		return nil
	}

	n, known := kindPorts[def.Kind]
	if !known {
		return fmt.Errorf("model %s: unsupported kind %q", def.Name, def.Kind)
	}
	if len(def.Ports) == 0 {
		def.Ports = append([]string(nil), defaultPorts[def.Kind]...)
	}
	if len(def.Ports) != n {
		return fmt.Errorf("model %s: kind %s has %d ports, %d declared", def.Name, def.Kind, n, len(def.Ports))
	}

	if !ok {
		r.order = append(r.order, def.Name)
	}
	r.models[def.Name] = def
	return nil
}

// mappingValue returns the value node stored under key in the document's
// root mapping.
func mappingValue(root *yaml.Node, key string) *yaml.Node {
	node := root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		if node.Content[i].Value == key {
			if v := node.Content[i+1]; v.Kind == yaml.MappingNode {
				return v
			}
			return nil
		}
	}
	return nil
}

func (r *Registry) Lookup(model string) (*Definition, bool) {
	def, ok := r.models[model]
	return def, ok
}

// Names lists the registered models in load order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// NewDevice builds the device for a netlist element. Element parameters
// override the model defaults.
func (r *Registry) NewDevice(elem netlist.Element, c float64) (device.Device, error) {
	def, ok := r.models[elem.Model]
	if !ok {
		return nil, fmt.Errorf("%w: %s (element %s, line %d)", ErrUnknownModel, elem.Model, elem.Name, elem.Line)
	}
	if len(elem.Nets) != len(def.Ports) {
		return nil, fmt.Errorf("element %s (line %d): model %s has %d ports, got %d nets",
			elem.Name, elem.Line, def.Name, len(def.Ports), len(elem.Nets))
	}

	p := params{elem: elem, def: def}
	nets := append([]string(nil), elem.Nets...)

	var dev device.Device
	switch def.Kind {
	case device.KindWaveguide:
		dev = device.NewWaveguide(elem.Name, nets, c,
			p.get("wg_length"), p.get("neff"), p.get("ng"), p.get("loss"), p.getOr("lambda0", consts.WavelengthC))
	case device.KindYBranch:
		dev = device.NewYBranch(elem.Name, nets, c,
			p.get("insertion_loss"), p.getOr("reflection", device.MinDB))
	case device.KindCoupler:
		dev = device.NewCoupler(elem.Name, nets, c,
			p.get("coupling"), p.get("slope"), p.get("insertion_loss"), p.getOr("lambda0", consts.WavelengthC))
	case device.KindGrating:
		dev = device.NewGratingCoupler(elem.Name, nets, c,
			p.get("insertion_loss"), p.getOr("center_wavelength", consts.WavelengthC), p.get("bandwidth"),
			p.getOr("back_reflection", device.MinDB))
	case device.KindTerminator:
		dev = device.NewTerminator(elem.Name, nets, c, p.getOr("reflection", device.MinDB))
	default:
		return nil, fmt.Errorf("model %s: unsupported kind %q", def.Name, def.Kind)
	}
	if p.err != nil {
		return nil, p.err
	}

	if named, ok := dev.(interface{ SetPortNames([]string) }); ok {
		named.SetPortNames(append([]string(nil), def.Ports...))
	}
	return dev, nil
}

// params resolves element values over model defaults, keeping the first error.
type params struct {
	elem netlist.Element
	def  *Definition
	err  error
}

func (p *params) get(key string) float64 {
	return p.getOr(key, 0)
}

func (p *params) getOr(key string, fallback float64) float64 {
	if v, ok := p.def.Params[key]; ok {
		fallback = v
	}
	v, err := p.elem.Float(key, fallback)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("line %d: %w", p.elem.Line, err)
	}
	return v
}
