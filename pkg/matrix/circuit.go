package matrix

import (
	"fmt"
	"io"

	"github.com/edp1096/sparse"
)

// CircuitMatrix is the complex sparse system of a scattering network. Element
// pointers are reserved once and reused for every frequency, so stamping stays
// valid after the solver has reordered rows and columns.
type CircuitMatrix struct {
	Size     int
	matrix   *sparse.Matrix
	rhs      []float64 // interleaved re/im, 1-based
	solution []float64
	elements map[[2]int]*sparse.Element
	config   *sparse.Configuration
	factored bool
}

func NewMatrix(size int) (*CircuitMatrix, error) {
	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 true,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           false,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %w", err)
	}

	vectorSize := 2 * (size + 1)

	return &CircuitMatrix{
		Size:     size,
		matrix:   mat,
		rhs:      make([]float64, vectorSize),
		solution: make([]float64, vectorSize),
		elements: make(map[[2]int]*sparse.Element),
		config:   config,
	}, nil
}

// Reserve creates the element at (i, j). It must be called for the whole
// structure before the first Factor.
func (m *CircuitMatrix) Reserve(i, j int) error {
	if i <= 0 || j <= 0 || i > m.Size || j > m.Size {
		return fmt.Errorf("matrix index out of bounds (i=%d, j=%d, size=%d)", i, j, m.Size)
	}
	key := [2]int{i, j}
	if _, ok := m.elements[key]; ok {
		return nil
	}
	if m.factored {
		return fmt.Errorf("cannot reserve (%d,%d) after factorization", i, j)
	}
	elem := m.matrix.GetElement(int64(i), int64(j))
	if elem == nil {
		return fmt.Errorf("sparse matrix refused element (%d,%d)", i, j)
	}
	m.elements[key] = elem
	return nil
}

// AddComplexElement adds v to the reserved element at (i, j).
func (m *CircuitMatrix) AddComplexElement(i, j int, v complex128) error {
	elem, ok := m.elements[[2]int{i, j}]
	if !ok {
		return fmt.Errorf("element (%d,%d) was not reserved", i, j)
	}
	elem.Real += real(v)
	elem.Imag += imag(v)
	return nil
}

func (m *CircuitMatrix) Element(i, j int) complex128 {
	elem, ok := m.elements[[2]int{i, j}]
	if !ok {
		return 0
	}
	return complex(elem.Real, elem.Imag)
}

// Clear zeroes the matrix and the right hand side, keeping the structure.
func (m *CircuitMatrix) Clear() {
	m.matrix.Clear()
	m.ClearRHS()
}

func (m *CircuitMatrix) ClearRHS() {
	for i := range m.rhs {
		m.rhs[i] = 0
	}
}

func (m *CircuitMatrix) AddComplexRHS(i int, v complex128) error {
	if i <= 0 || i > m.Size {
		return fmt.Errorf("RHS index out of bounds (i=%d, size=%d)", i, m.Size)
	}
	m.rhs[2*i] += real(v)
	m.rhs[2*i+1] += imag(v)
	return nil
}

// Factor decomposes the stamped matrix. Pivots from an earlier frequency are
// reused; if they no longer hold, the matrix is reordered from scratch.
func (m *CircuitMatrix) Factor() error {
	err := m.matrix.Factor()
	if err != nil && m.factored {
		m.matrix.NeedsOrdering = true
		err = m.matrix.Factor()
	}
	if err != nil {
		return fmt.Errorf("matrix factorization failed: %w", err)
	}
	m.factored = true
	return nil
}

// Solve runs forward/backward substitution on the factored matrix with the
// current right hand side.
func (m *CircuitMatrix) Solve() error {
	if !m.factored {
		return fmt.Errorf("matrix is not factored")
	}

	solution, _, err := m.matrix.SolveComplex(m.rhs, nil)
	if err != nil {
		return fmt.Errorf("matrix solve failed: %w", err)
	}
	m.solution = solution
	return nil
}

func (m *CircuitMatrix) GetComplexSolution(i int) complex128 {
	if i <= 0 || i > m.Size || 2*i+1 >= len(m.solution) {
		return 0
	}
	return complex(m.solution[2*i], m.solution[2*i+1])
}

func (m *CircuitMatrix) PrintSystem(w io.Writer) {
	fmt.Fprintf(w, "\nScattering system (%dx%d):\n", m.Size, m.Size)
	for i := 1; i <= m.Size; i++ {
		fmt.Fprintf(w, "Equation %d:", i)
		for j := 1; j <= m.Size; j++ {
			v := m.Element(i, j)
			if v == 0 {
				continue
			}
			if imag(v) == 0 {
				fmt.Fprintf(w, "  %+g*b%d", real(v), j)
			} else {
				fmt.Fprintf(w, "  (%g%+gj)*b%d", real(v), imag(v), j)
			}
		}
		fmt.Fprintf(w, " = %g%+gj\n", m.rhs[2*i], m.rhs[2*i+1])
	}
}

func (m *CircuitMatrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
	}
}
