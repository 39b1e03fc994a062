package netlist

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// TopLevelName names the implicit circuit made of statements outside any
// .subckt block.
const TopLevelName = "main"

var ErrSyntax = errors.New("netlist syntax error")

type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Message) }

func (e *ParseError) Unwrap() error { return ErrSyntax }

func syntaxErr(line int, format string, args ...any) error {
	return &ParseError{Line: line, Message: fmt.Sprintf(format, args...)}
}

type NetlistData struct {
	Title    string
	Circuits []*Circuit // declaration order, top-level circuit last
	Params   map[string]float64
	Analyzer AnalyzerParam
	Inputs   []PortRef // sorted by index
	Outputs  []PortRef // sorted by index
	InpNet   string    // net of the first analyzer input
	OutNets  []string  // nets of the analyzer outputs, in order
}

type AnalyzerParam struct {
	Defined    bool
	InputUnit  string  // "wavelength" or "frequency"
	Start      float64 // m or Hz depending on InputUnit
	Stop       float64
	Points     int
	Orthogonal int               // 1 TE, 2 TM
	Extra      map[string]string // keys the simulator does not interpret
}

// PortRef is an analyzer connection such as input(1)=MZI,gc_input.
type PortRef struct {
	Index   int
	Circuit string
	Net     string
}

type Circuit struct {
	Name     string
	Ports    []string // header nets, empty for the top-level circuit
	Elements []Element
	Params   map[string]float64
	Line     int
}

type Element struct {
	Name   string
	Model  string   // component model or subcircuit name
	Nets   []string // ordered, net k is attached to port k
	Params map[string]string
	Line   int
}

var unitMap = map[string]float64{
	"T":   1e12,  // tera
	"G":   1e9,   // giga
	"meg": 1e6,   // mega
	"K":   1e3,   // kilo
	"k":   1e3,   // kilo
	"m":   1e-3,  // milli
	"u":   1e-6,  // micro
	"n":   1e-9,  // nano
	"p":   1e-12, // pico
	"f":   1e-15, // femto
}

var (
	valueRe   = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)(meg|[TGKkmunpf])?s?$`)
	onaPortRe = regexp.MustCompile(`^(input|output)(?:\((\d+)\))?$`)
)

// TopLevel returns the last declared circuit, which is the one the analyzer
// is attached to.
func (n *NetlistData) TopLevel() *Circuit {
	if len(n.Circuits) == 0 {
		return nil
	}
	return n.Circuits[len(n.Circuits)-1]
}

func (n *NetlistData) Circuit(name string) (*Circuit, bool) {
	for _, c := range n.Circuits {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Nets returns the distinct nets of the circuit in order of first use,
// header ports first.
func (c *Circuit) Nets() []string {
	seen := make(map[string]bool)
	var nets []string
	add := func(net string) {
		if !seen[net] {
			seen[net] = true
			nets = append(nets, net)
		}
	}
	for _, p := range c.Ports {
		add(p)
	}
	for _, e := range c.Elements {
		for _, net := range e.Nets {
			add(net)
		}
	}
	return nets
}

// Float returns a numeric element parameter, or def when it is absent.
func (e Element) Float(key string, def float64) (float64, error) {
	raw, ok := e.Params[key]
	if !ok {
		return def, nil
	}
	v, err := ParseValue(raw)
	if err != nil {
		return 0, fmt.Errorf("element %s parameter %s: %w", e.Name, key, err)
	}
	return v, nil
}

func ParseFile(path string) (*NetlistData, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading netlist file: %w", err)
	}
	return Parse(string(content))
}

type statement struct {
	line int
	text string
}

type parser struct {
	data    *NetlistData
	top     *Circuit
	current *Circuit // open .subckt, nil at top level
}

func Parse(input string) (*NetlistData, error) {
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	p := &parser{
		data: &NetlistData{
			Params: make(map[string]float64),
		},
		top: &Circuit{Name: TopLevelName, Params: make(map[string]float64)},
	}

	var current *statement
	lineNum := 0
	titleDone := false

	flush := func() error {
		if current == nil {
			return nil
		}
		st := *current
		current = nil
		return p.parseStatement(st)
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Title or comment
		if !titleDone && line != "" {
			titleDone = true
			if strings.HasPrefix(line, "*") {
				p.data.Title = strings.TrimSpace(strings.TrimPrefix(line, "*"))
				continue
			}
		}

		if len(line) == 0 {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}

		// Whole line comment. A continuation may follow it.
		if strings.HasPrefix(line, "*") {
			continue
		}

		line = stripComment(line)
		if line == "" {
			continue
		}

		// Line continue
		if strings.HasPrefix(line, "+") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "+"))
			if current == nil {
				return nil, syntaxErr(lineNum, "continuation line without a statement")
			}
			current.text += " " + line
			continue
		}

		if err := flush(); err != nil {
			return nil, err
		}
		current = &statement{line: lineNum, text: line}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning netlist: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return p.finish(lineNum)
}

// stripComment drops a trailing "*" comment that is not inside quotes.
func stripComment(line string) string {
	inQuote := false
	for i, r := range line {
		switch r {
		case '"':
			inQuote = !inQuote
		case '*':
			if !inQuote {
				return strings.TrimSpace(line[:i])
			}
		}
	}
	return line
}

// tokenize splits on whitespace, keeping double-quoted spans together.
func tokenize(line string, lineNum int) ([]string, error) {
	var tokens []string
	var sb strings.Builder
	inQuote := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			sb.WriteRune(r)
		case !inQuote && (r == ' ' || r == '\t'):
			if sb.Len() > 0 {
				tokens = append(tokens, sb.String())
				sb.Reset()
			}
		default:
			sb.WriteRune(r)
		}
	}
	if inQuote {
		return nil, syntaxErr(lineNum, "unterminated quote")
	}
	if sb.Len() > 0 {
		tokens = append(tokens, sb.String())
	}
	return tokens, nil
}

func splitParam(token string) (key, value string, ok bool) {
	idx := strings.Index(token, "=")
	if idx <= 0 {
		return "", "", false
	}
	key = token[:idx]
	value = strings.Trim(token[idx+1:], `"`)
	return key, value, true
}

func (p *parser) parseStatement(st statement) error {
	if strings.HasPrefix(st.text, ".") {
		return p.parseDotOperator(st)
	}

	element, err := parseElement(st)
	if err != nil {
		return err
	}

	target := p.top
	if p.current != nil {
		target = p.current
	}
	target.Elements = append(target.Elements, *element)
	return nil
}

// Parse .subckt, .ends, .param, .ona
func (p *parser) parseDotOperator(st statement) error {
	fields, err := tokenize(st.text, st.line)
	if err != nil {
		return err
	}

	switch strings.ToLower(fields[0]) {
	case ".subckt":
		if len(fields) < 2 {
			return syntaxErr(st.line, "missing subcircuit name")
		}
		name := fields[1]
		if p.current != nil {
			return syntaxErr(st.line, "nested .subckt %s inside %s", name, p.current.Name)
		}
		if _, exists := p.data.Circuit(name); exists {
			return syntaxErr(st.line, "duplicate subcircuit %s", name)
		}
		ckt := &Circuit{Name: name, Params: make(map[string]float64), Line: st.line}
		for _, f := range fields[2:] {
			if key, value, ok := splitParam(f); ok {
				if v, err := ParseValue(value); err == nil {
					ckt.Params[key] = v
				}
				continue
			}
			ckt.Ports = append(ckt.Ports, f)
		}
		p.current = ckt

	case ".ends":
		if p.current == nil {
			return syntaxErr(st.line, ".ends without .subckt")
		}
		if len(fields) > 1 && fields[1] != p.current.Name {
			return syntaxErr(st.line, ".ends %s does not close %s", fields[1], p.current.Name)
		}
		p.data.Circuits = append(p.data.Circuits, p.current)
		p.current = nil

	case ".param":
		params := p.data.Params
		if p.current != nil {
			params = p.current.Params
		}
		for _, f := range fields[1:] {
			key, value, ok := splitParam(f)
			if !ok {
				return syntaxErr(st.line, "invalid parameter %q", f)
			}
			v, err := ParseValue(value)
			if err != nil {
				return syntaxErr(st.line, "invalid parameter value %s: %v", f, err)
			}
			params[key] = v
		}

	case ".ona":
		return p.parseAnalyzer(st.line, fields[1:])

	case ".end", ".option", ".options":
		// nothing to do

	default:
		return syntaxErr(st.line, "unsupported command: %s", fields[0])
	}

	return nil
}

func (p *parser) parseAnalyzer(lineNum int, fields []string) error {
	an := &p.data.Analyzer
	if an.Defined {
		return syntaxErr(lineNum, "duplicate .ona analyzer")
	}
	an.Defined = true
	an.InputUnit = "wavelength"
	an.Orthogonal = 1
	an.Extra = make(map[string]string)

	var err error
	for _, f := range fields {
		key, value, ok := splitParam(f)
		if !ok {
			return syntaxErr(lineNum, "invalid analyzer parameter %q", f)
		}

		if m := onaPortRe.FindStringSubmatch(strings.ToLower(key)); m != nil {
			ref := PortRef{}
			if m[2] != "" {
				ref.Index, _ = strconv.Atoi(m[2])
			}
			if circuit, net, found := strings.Cut(value, ","); found {
				ref.Circuit, ref.Net = strings.TrimSpace(circuit), strings.TrimSpace(net)
			} else {
				ref.Net = strings.TrimSpace(value)
			}
			if ref.Net == "" {
				return syntaxErr(lineNum, "analyzer %s has no net", key)
			}
			if m[1] == "input" {
				if ref.Index == 0 {
					ref.Index = len(p.data.Inputs) + 1
				}
				p.data.Inputs = append(p.data.Inputs, ref)
			} else {
				if ref.Index == 0 {
					ref.Index = len(p.data.Outputs) + 1
				}
				p.data.Outputs = append(p.data.Outputs, ref)
			}
			continue
		}

		switch strings.ToLower(key) {
		case "input_unit":
			an.InputUnit = strings.ToLower(value)
			if an.InputUnit != "wavelength" && an.InputUnit != "frequency" {
				return syntaxErr(lineNum, "invalid input_unit: %s", value)
			}
		case "start":
			if an.Start, err = ParseValue(value); err != nil {
				return syntaxErr(lineNum, "invalid start: %v", err)
			}
		case "stop":
			if an.Stop, err = ParseValue(value); err != nil {
				return syntaxErr(lineNum, "invalid stop: %v", err)
			}
		case "number_of_points":
			if an.Points, err = strconv.Atoi(value); err != nil {
				return syntaxErr(lineNum, "invalid number_of_points: %v", err)
			}
		case "orthogonal_identifier":
			if an.Orthogonal, err = strconv.Atoi(value); err != nil {
				return syntaxErr(lineNum, "invalid orthogonal_identifier: %v", err)
			}
		default:
			an.Extra[key] = value
		}
	}
	return nil
}

// Parse circuit element: name, nets..., model, key=value...
func parseElement(st statement) (*Element, error) {
	fields, err := tokenize(st.text, st.line)
	if err != nil {
		return nil, err
	}

	elem := &Element{
		Name:   fields[0],
		Params: make(map[string]string),
		Line:   st.line,
	}

	var bare []string
	inParams := false
	for _, f := range fields[1:] {
		if key, value, ok := splitParam(f); ok {
			elem.Params[key] = value
			inParams = true
			continue
		}
		if inParams {
			return nil, syntaxErr(st.line, "element %s: unexpected token %q after parameters", elem.Name, f)
		}
		bare = append(bare, f)
	}

	if len(bare) < 2 {
		return nil, syntaxErr(st.line, "invalid element format: %s", st.text)
	}
	elem.Nets = bare[:len(bare)-1]
	elem.Model = bare[len(bare)-1]

	return elem, nil
}

func (p *parser) finish(lastLine int) (*NetlistData, error) {
	if p.current != nil {
		return nil, syntaxErr(lastLine, "missing .ends for subcircuit %s", p.current.Name)
	}

	if len(p.top.Elements) > 0 {
		if _, exists := p.data.Circuit(p.top.Name); exists {
			p.top.Name = TopLevelName + "_top"
		}
		p.data.Circuits = append(p.data.Circuits, p.top)
	}
	if len(p.data.Circuits) == 0 {
		return nil, syntaxErr(lastLine, "netlist has no circuit")
	}

	sort.SliceStable(p.data.Inputs, func(i, j int) bool { return p.data.Inputs[i].Index < p.data.Inputs[j].Index })
	sort.SliceStable(p.data.Outputs, func(i, j int) bool { return p.data.Outputs[i].Index < p.data.Outputs[j].Index })

	if len(p.data.Inputs) > 0 {
		p.data.InpNet = p.data.Inputs[0].Net
	}
	for _, o := range p.data.Outputs {
		p.data.OutNets = append(p.data.OutNets, o.Net)
	}

	return p.data, nil
}

// ParseValue - Parse value and factor. 1k -> 1000
func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %s", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}

	// factor
	if len(matches) > 2 && matches[2] != "" {
		if multiplier, ok := unitMap[matches[2]]; ok {
			num *= multiplier
		}
	}

	return num, nil
}
