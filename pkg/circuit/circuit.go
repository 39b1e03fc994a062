package circuit

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/edp1096/toy-opics/internal/logging"
	"github.com/edp1096/toy-opics/pkg/device"
	"github.com/edp1096/toy-opics/pkg/matrix"
)

// ErrNetFanout is returned when a net joins more than two ports. Optical
// nets are point to point.
var ErrNetFanout = errors.New("net connects more than two ports")

// Circuit is a network of devices joined port to port. Every device port gets
// a global index 1..N; connected ports are paired and unpaired ports are the
// external ports of the network.
type Circuit struct {
	name    string
	devices []device.Device
	log     logging.Logger

	numPorts     int
	owner        []int // global port -> device index
	local        []int // global port -> port index within the device
	partner      []int // global port -> connected global port, 0 when external
	external     []int // global ports exposed to the outside, in order
	externalNets []string

	matrix  *matrix.CircuitMatrix
	sblocks [][][][]complex128 // per device, [freq][out][in]
}

type Option func(*Circuit)

func WithLogger(log logging.Logger) Option {
	return func(c *Circuit) { c.log = log }
}

func New(name string, opts ...Option) *Circuit {
	c := &Circuit{
		name:    name,
		devices: make([]device.Device, 0),
		log:     logging.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Circuit) AddDevice(dev device.Device) {
	c.devices = append(c.devices, dev)
}

// AssignPortMaps numbers the device ports and pairs them by net. Header nets
// become the first external ports, in header order. Any other net with a
// single port is exposed after them.
func (c *Circuit) AssignPortMaps(ctx context.Context, header []string) error {
	type netInfo struct {
		ports []int
	}

	nets := make(map[string]*netInfo)
	var order []string

	c.numPorts = 0
	for _, dev := range c.devices {
		c.numPorts += len(dev.GetNodeNames())
	}
	c.owner = make([]int, c.numPorts+1)
	c.local = make([]int, c.numPorts+1)
	c.partner = make([]int, c.numPorts+1)
	c.external = c.external[:0]
	c.externalNets = c.externalNets[:0]

	port := 0
	for d, dev := range c.devices {
		names := dev.GetNodeNames()
		nodes := make([]int, len(names))
		for k, net := range names {
			port++
			nodes[k] = port
			c.owner[port] = d
			c.local[port] = k

			info, ok := nets[net]
			if !ok {
				info = &netInfo{}
				nets[net] = info
				order = append(order, net)
			}
			info.ports = append(info.ports, port)
		}
		dev.SetNodes(nodes)
	}

	isHeader := make(map[string]bool, len(header))
	for _, net := range header {
		if isHeader[net] {
			return fmt.Errorf("circuit %s: duplicate port %s", c.name, net)
		}
		isHeader[net] = true

		info, ok := nets[net]
		if !ok {
			return fmt.Errorf("circuit %s: port %s is not connected to any device", c.name, net)
		}
		if len(info.ports) != 1 {
			return fmt.Errorf("%w: circuit %s port %s has %d device ports and the outside",
				ErrNetFanout, c.name, net, len(info.ports))
		}
		c.external = append(c.external, info.ports[0])
		c.externalNets = append(c.externalNets, net)
	}

	for _, net := range order {
		if isHeader[net] {
			continue
		}
		ports := nets[net].ports
		switch len(ports) {
		case 1:
			if len(header) > 0 {
				c.log.Warn(ctx, "dangling net exposed as port",
					logging.String("circuit", c.name), logging.String("net", net))
			}
			c.external = append(c.external, ports[0])
			c.externalNets = append(c.externalNets, net)
		case 2:
			c.partner[ports[0]] = ports[1]
			c.partner[ports[1]] = ports[0]
		default:
			return fmt.Errorf("%w: circuit %s net %s has %d ports", ErrNetFanout, c.name, net, len(ports))
		}
	}

	if len(c.external) == 0 {
		return fmt.Errorf("circuit %s has no external ports", c.name)
	}

	for _, island := range c.Islands() {
		c.log.Warn(ctx, "devices not reachable from any port",
			logging.String("circuit", c.name), logging.Any("devices", island))
	}
	return nil
}

// Islands returns the names of connected device groups that have no external
// port. They do not contribute to the network response.
func (c *Circuit) Islands() [][]string {
	g := simple.NewUndirectedGraph()
	for d := range c.devices {
		g.AddNode(simple.Node(d))
	}
	for p := 1; p <= c.numPorts; p++ {
		q := c.partner[p]
		if q <= p {
			continue
		}
		a, b := c.owner[p], c.owner[q]
		if a == b || g.HasEdgeBetween(int64(a), int64(b)) {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(a), simple.Node(b)))
	}

	exposed := make(map[int]bool)
	for _, p := range c.external {
		exposed[c.owner[p]] = true
	}

	var islands [][]int
	for _, component := range topo.ConnectedComponents(g) {
		ids := make([]int, 0, len(component))
		reachable := false
		for _, n := range component {
			id := int(n.ID())
			ids = append(ids, id)
			reachable = reachable || exposed[id]
		}
		if !reachable {
			sort.Ints(ids)
			islands = append(islands, ids)
		}
	}
	sort.Slice(islands, func(i, j int) bool { return islands[i][0] < islands[j][0] })

	names := make([][]string, len(islands))
	for i, ids := range islands {
		for _, id := range ids {
			names[i] = append(names[i], c.devices[id].GetName())
		}
	}
	return names
}

// CreateMatrix reserves the structure of (I - S*P): the diagonal plus, for
// every device pair (i, j) where j is connected, the column of j's partner.
func (c *Circuit) CreateMatrix() error {
	if c.numPorts == 0 {
		return fmt.Errorf("circuit %s: ports are not assigned", c.name)
	}

	mat, err := matrix.NewMatrix(c.numPorts)
	if err != nil {
		return err
	}
	for i := 1; i <= c.numPorts; i++ {
		if err := mat.Reserve(i, i); err != nil {
			mat.Destroy()
			return err
		}
	}
	for _, dev := range c.devices {
		for _, gi := range dev.GetNodes() {
			for _, gj := range dev.GetNodes() {
				if q := c.partner[gj]; q != 0 {
					if err := mat.Reserve(gi, q); err != nil {
						mat.Destroy()
						return err
					}
				}
			}
		}
	}
	c.matrix = mat
	return nil
}

// Evaluate computes the S-matrix of every device over freqs.
func (c *Circuit) Evaluate(freqs []float64) error {
	c.sblocks = make([][][][]complex128, len(c.devices))
	for d, dev := range c.devices {
		s, err := dev.SParams(freqs)
		if err != nil {
			return fmt.Errorf("evaluating device %s: %w", dev.GetName(), err)
		}
		n := len(dev.GetNodes())
		if len(s) != len(freqs) {
			return fmt.Errorf("device %s returned %d frequency points, want %d", dev.GetName(), len(s), len(freqs))
		}
		for f := range s {
			if len(s[f]) != n {
				return fmt.Errorf("device %s returned a %d-port matrix, want %d", dev.GetName(), len(s[f]), n)
			}
		}
		c.sblocks[d] = s
	}
	return nil
}

// Stamp loads (I - S*P) at frequency index f.
func (c *Circuit) Stamp(f int) error {
	if c.matrix == nil || c.sblocks == nil {
		return fmt.Errorf("circuit %s: matrix or device responses missing", c.name)
	}
	c.matrix.Clear()

	for i := 1; i <= c.numPorts; i++ {
		if err := c.matrix.AddComplexElement(i, i, 1); err != nil {
			return err
		}
	}
	for d, dev := range c.devices {
		s := c.sblocks[d][f]
		nodes := dev.GetNodes()
		for i, gi := range nodes {
			for j, gj := range nodes {
				q := c.partner[gj]
				if q == 0 || s[i][j] == 0 {
					continue
				}
				if err := c.matrix.AddComplexElement(gi, q, -s[i][j]); err != nil {
					return fmt.Errorf("stamping device %s: %w", dev.GetName(), err)
				}
			}
		}
	}
	return nil
}

// Solve factors the matrix stamped for frequency index f and fills
// out[o][e] with the response at external port o to a unit input at e.
func (c *Circuit) Solve(f int, out [][]complex128) error {
	if err := c.matrix.Factor(); err != nil {
		return fmt.Errorf("circuit %s: %w", c.name, err)
	}

	for e, src := range c.external {
		c.matrix.ClearRHS()
		d := c.owner[src]
		s := c.sblocks[d][f]
		in := c.local[src]
		for i, gi := range c.devices[d].GetNodes() {
			if s[i][in] == 0 {
				continue
			}
			if err := c.matrix.AddComplexRHS(gi, s[i][in]); err != nil {
				return err
			}
		}

		if err := c.matrix.Solve(); err != nil {
			return fmt.Errorf("circuit %s, input %s: %w", c.name, c.externalNets[e], err)
		}
		for o, dst := range c.external {
			out[o][e] = c.matrix.GetComplexSolution(dst)
		}
	}
	return nil
}

func (c *Circuit) GetMatrix() *matrix.CircuitMatrix {
	return c.matrix
}

func (c *Circuit) GetDevices() []device.Device {
	return c.devices
}

// ExternalNets returns the net label of each external port, in port order.
func (c *Circuit) ExternalNets() []string {
	return append([]string(nil), c.externalNets...)
}

func (c *Circuit) NumPorts() int {
	return c.numPorts
}

// Partner returns the global port connected to port p, or 0.
func (c *Circuit) Partner(p int) int {
	if p <= 0 || p > c.numPorts {
		return 0
	}
	return c.partner[p]
}

func (c *Circuit) Destroy() {
	if c.matrix != nil {
		c.matrix.Destroy()
		c.matrix = nil
	}
}

func (c *Circuit) Name() string {
	return c.name
}
