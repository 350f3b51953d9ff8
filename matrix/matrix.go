// Package matrix provides a small row-major dense matrix used for rate
// and transition matrices. Storage is shared with a gonum view, so
// linear algebra routines work on the same data without copying.
package matrix

import (
	"bytes"
	"errors"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// maxPrint is the number of rows and columns printed by String.
const maxPrint = 10

// Matrix is a dense row-major matrix.
type Matrix struct {
	data []float64
	view *mat.Dense
	n1   int
	n2   int
}

// NewFromArray creates a matrix which uses data as its storage.
func NewFromArray(data []float64, n1 int, n2 int) (*Matrix, error) {
	if n1 < 1 || n2 < 1 {
		return nil, errors.New("matrix dimensions should be > 0")
	}
	if len(data) != n1*n2 {
		return nil, errors.New("matrix dimensions don't match slice size")
	}
	return &Matrix{
		data: data,
		view: mat.NewDense(n1, n2, data),
		n1:   n1,
		n2:   n2,
	}, nil
}

// New creates a new zero matrix.
func New(n1 int, n2 int) (*Matrix, error) {
	if n1 < 1 || n2 < 1 {
		return nil, errors.New("matrix dimensions should be > 0")
	}
	return NewFromArray(make([]float64, n1*n2), n1, n2)
}

// NewIdentity creates an identity matrix of size n.
func NewIdentity(n int) (*Matrix, error) {
	m, err := New(n, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m, nil
}

func (m *Matrix) String() string {
	var buffer bytes.Buffer
	if m == nil || m.data == nil {
		return "<Uninitialized matrix>"
	}
	buffer.WriteString("<Matrix\n")
	for i1 := 0; i1 < m.n1; i1++ {
		if i1 == maxPrint {
			buffer.WriteString("...\n")
			break
		}
		buffer.WriteString("  ")
		for i2 := 0; i2 < m.n2; i2++ {
			if i2 == maxPrint {
				buffer.WriteString("...")
				break
			}
			buffer.WriteString(strconv.FormatFloat(m.data[i1*m.n2+i2], 'E', 3, 64))
			if i2 < m.n2-1 {
				buffer.WriteByte('\t')
			}
		}
		buffer.WriteByte('\n')
	}
	buffer.WriteByte('>')
	return buffer.String()
}

// Empty returns a new zero matrix with the same dimensions.
func (m *Matrix) Empty() *Matrix {
	nm, _ := New(m.n1, m.n2)
	return nm
}

// Copy copies the matrix into dest, which must have the same
// dimensions.
func (m *Matrix) Copy(dest *Matrix) {
	if dest.n1 != m.n1 || dest.n2 != m.n2 {
		panic("matrix dimensions mismatch")
	}
	copy(dest.data, m.data)
}

// Scale multiplies every element by x.
func (m *Matrix) Scale(x float64) {
	for i := range m.data {
		m.data[i] *= x
	}
}

// Exponential computes e^m and writes it to em. The Padé
// approximation with scaling and squaring is used, so the matrix
// does not need to be diagonalizable.
func (m *Matrix) Exponential(em *Matrix) {
	if m.n1 != m.n2 || em.n1 != m.n1 || em.n2 != m.n2 {
		panic("exponential requires square matrices of the same size")
	}
	if em == m {
		tmp := m.Empty()
		tmp.view.Exp(m.view)
		copy(m.data, tmp.data)
		return
	}
	em.view.Exp(m.view)
}

// Mul computes a*b and stores it in the receiver.
func (m *Matrix) Mul(a, b *Matrix) {
	if m == a || m == b {
		tmp := m.Empty()
		tmp.view.Mul(a.view, b.view)
		copy(m.data, tmp.data)
		return
	}
	m.view.Mul(a.view, b.view)
}

// SetItem sets the element (i1, i2).
func (m *Matrix) SetItem(i1, i2 int, x float64) {
	m.data[i1*m.n2+i2] = x
}

// GetItem returns the element (i1, i2).
func (m *Matrix) GetItem(i1, i2 int) float64 {
	return m.data[i1*m.n2+i2]
}

// GetSize returns the matrix dimensions.
func (m *Matrix) GetSize() (int, int) {
	return m.n1, m.n2
}

// Array returns the underlying row-major storage.
func (m *Matrix) Array() []float64 {
	return m.data
}

// Dense returns a gonum view sharing the matrix storage.
func (m *Matrix) Dense() *mat.Dense {
	return m.view
}

// RowSums returns the sum of every row.
func (m *Matrix) RowSums() []float64 {
	sums := make([]float64, m.n1)
	for i1 := 0; i1 < m.n1; i1++ {
		for i2 := 0; i2 < m.n2; i2++ {
			sums[i1] += m.data[i1*m.n2+i2]
		}
	}
	return sums
}
