package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/edp1096/toy-opics/internal/consts"
	"github.com/edp1096/toy-opics/internal/logging"
	"github.com/edp1096/toy-opics/pkg/analysis"
	"github.com/edp1096/toy-opics/pkg/circuit"
	"github.com/edp1096/toy-opics/pkg/device"
	"github.com/edp1096/toy-opics/pkg/library"
	"github.com/edp1096/toy-opics/pkg/netlist"
	"github.com/edp1096/toy-opics/pkg/sparam"
)

var (
	ErrLabelNotFound  = errors.New("net label not found in top-level circuit")
	ErrUnknownCircuit = errors.New("unknown subcircuit")
)

// NetworkFactory creates an empty network. circuit.New is the default.
type NetworkFactory func(name string, opts ...circuit.Option) *circuit.Circuit

// GlobalNetlist maps each simulated network to its external net labels,
// keeping insertion order. The top-level network is inserted last.
type GlobalNetlist struct {
	keys []string
	nets map[string][]string
}

func NewGlobalNetlist() *GlobalNetlist {
	return &GlobalNetlist{nets: make(map[string][]string)}
}

// Set inserts or replaces an entry. A replaced entry keeps its position.
func (g *GlobalNetlist) Set(name string, nets []string) {
	if _, ok := g.nets[name]; !ok {
		g.keys = append(g.keys, name)
	}
	g.nets[name] = nets
}

func (g *GlobalNetlist) Keys() []string {
	return append([]string(nil), g.keys...)
}

func (g *GlobalNetlist) Get(name string) ([]string, bool) {
	nets, ok := g.nets[name]
	return nets, ok
}

// Last returns the most recently inserted entry.
func (g *GlobalNetlist) Last() (string, []string, bool) {
	if len(g.keys) == 0 {
		return "", nil, false
	}
	name := g.keys[len(g.keys)-1]
	return name, g.nets[name], true
}

func (g *GlobalNetlist) Len() int {
	return len(g.keys)
}

type Processor struct {
	Path          string
	GlobalNetlist *GlobalNetlist
	SimResult     *sparam.Result
	Results       map[string]*sparam.Result // every simulated network by name

	factory  NetworkFactory
	registry *library.Registry
	c        float64
	data     *netlist.NetlistData
	log      logging.Logger
}

type Option func(*Processor)

func WithLogger(log logging.Logger) Option {
	return func(p *Processor) { p.log = log }
}

func New(path string, factory NetworkFactory, registry *library.Registry, c float64, data *netlist.NetlistData, opts ...Option) *Processor {
	if factory == nil {
		factory = circuit.New
	}
	p := &Processor{
		Path:          path,
		GlobalNetlist: NewGlobalNetlist(),
		Results:       make(map[string]*sparam.Result),
		factory:       factory,
		registry:      registry,
		c:             c,
		data:          data,
		log:           logging.Noop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SimulateNetwork builds and sweeps every circuit in declaration order.
// Subcircuit instances reuse the result of an already simulated circuit.
func (p *Processor) SimulateNetwork(ctx context.Context) error {
	if p.data == nil || len(p.data.Circuits) == 0 {
		return fmt.Errorf("%s: nothing to simulate", p.Path)
	}
	if p.registry == nil {
		return fmt.Errorf("%s: no component library", p.Path)
	}

	freqs, err := analysis.FrequencyGrid(p.data.Analyzer, p.c)
	if err != nil {
		return fmt.Errorf("%s: analyzer: %w", p.Path, err)
	}
	if p.data.Analyzer.Orthogonal == consts.TM {
		p.log.Warn(ctx, "TM models are not available, simulating TE")
	}

	for _, ckt := range p.data.Circuits {
		res, err := p.simulateCircuit(ctx, ckt, freqs)
		if err != nil {
			return err
		}
		p.Results[ckt.Name] = res
		p.GlobalNetlist.Set(ckt.Name, res.Ports)
		p.SimResult = res
	}
	return nil
}

func (p *Processor) simulateCircuit(ctx context.Context, ckt *netlist.Circuit, freqs []float64) (*sparam.Result, error) {
	log := p.log.With(logging.String("circuit", ckt.Name))
	log.Info(ctx, "simulating network",
		logging.Int("elements", len(ckt.Elements)),
		logging.Int("points", len(freqs)))

	network := p.factory(ckt.Name, circuit.WithLogger(log))
	defer network.Destroy()

	for _, elem := range ckt.Elements {
		elem = p.resolveParams(elem, ckt)
		dev, err := p.newDevice(elem)
		if err != nil {
			return nil, fmt.Errorf("circuit %s: %w", ckt.Name, err)
		}
		network.AddDevice(dev)
	}

	if err := network.AssignPortMaps(ctx, ckt.Ports); err != nil {
		return nil, err
	}

	an := analysis.NewSParameter(freqs, p.c, analysis.WithLogger(log))
	if err := an.Setup(network); err != nil {
		return nil, fmt.Errorf("circuit %s: %w", ckt.Name, err)
	}
	if err := an.Execute(ctx); err != nil {
		return nil, fmt.Errorf("circuit %s: %w", ckt.Name, err)
	}
	return an.Result(), nil
}

func (p *Processor) newDevice(elem netlist.Element) (device.Device, error) {
	if res, ok := p.Results[elem.Model]; ok {
		if len(elem.Nets) != res.NumPorts() {
			return nil, fmt.Errorf("instance %s (line %d): subcircuit %s has %d ports, got %d nets",
				elem.Name, elem.Line, elem.Model, res.NumPorts(), len(elem.Nets))
		}
		return device.NewSubcircuit(elem.Name, append([]string(nil), elem.Nets...), res), nil
	}

	// A circuit that exists but has no result yet is the current one or a
	// later one.
	if _, ok := p.data.Circuit(elem.Model); ok {
		return nil, fmt.Errorf("%w: %s must be defined before instance %s (line %d)",
			ErrUnknownCircuit, elem.Model, elem.Name, elem.Line)
	}
	if _, ok := p.registry.Lookup(elem.Model); !ok && strings.HasPrefix(strings.ToUpper(elem.Name), "X") {
		return nil, fmt.Errorf("%w: %s (instance %s, line %d)", ErrUnknownCircuit, elem.Model, elem.Name, elem.Line)
	}
	return p.registry.NewDevice(elem, p.c)
}

// resolveParams replaces parameter values that name a .param of the circuit
// or of the netlist with the parameter's value.
func (p *Processor) resolveParams(elem netlist.Element, ckt *netlist.Circuit) netlist.Element {
	var resolved map[string]string
	for key, value := range elem.Params {
		if _, err := netlist.ParseValue(value); err == nil {
			continue
		}
		v, ok := ckt.Params[value]
		if !ok {
			v, ok = p.data.Params[value]
		}
		if !ok {
			continue
		}
		if resolved == nil {
			resolved = make(map[string]string, len(elem.Params))
			for k, val := range elem.Params {
				resolved[k] = val
			}
		}
		resolved[key] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	if resolved != nil {
		elem.Params = resolved
	}
	return elem
}

// Ports resolves the analyzer input and outputs against the top-level
// network.
func (p *Processor) Ports() ([][2]int, error) {
	_, nets, ok := p.GlobalNetlist.Last()
	if !ok {
		return nil, fmt.Errorf("%s: network has not been simulated", p.Path)
	}
	return ResolvePorts(nets, p.data.InpNet, p.data.OutNets)
}

// ResolvePorts pairs every output with the input as [out, in] indices into
// nets, in the order the outputs are given.
func ResolvePorts(nets []string, inp string, outs []string) ([][2]int, error) {
	in := indexOf(nets, inp)
	if in < 0 {
		return nil, fmt.Errorf("%w: input %q (nets %v)", ErrLabelNotFound, inp, nets)
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("no output nets declared")
	}

	pairs := make([][2]int, 0, len(outs))
	for _, label := range outs {
		out := indexOf(nets, label)
		if out < 0 {
			return nil, fmt.Errorf("%w: output %q (nets %v)", ErrLabelNotFound, label, nets)
		}
		pairs = append(pairs, [2]int{out, in})
	}
	return pairs, nil
}

func indexOf(nets []string, label string) int {
	for i, n := range nets {
		if n == label {
			return i
		}
	}
	return -1
}
