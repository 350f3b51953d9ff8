package qmatrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// EMatrix stores a reversible rate matrix and its eigendecomposition
// to quickly compute e^Qt.
type EMatrix struct {
	// Q is the rate matrix.
	Q *RateMatrix
	// Eps is the tolerance for the decomposition checks.
	Eps float64
	// values are the eigenvalues in ascending order.
	values []float64
	// v holds the right eigenvectors as columns (row-major).
	v []float64
	// iv is the inverse of v (row-major).
	iv []float64
	// decomposed is true if values, v and iv reflect Q.
	decomposed bool
}

// NewEMatrix creates a new EMatrix. The decomposition is performed
// lazily by Eigen.
func NewEMatrix(q *RateMatrix) *EMatrix {
	return &EMatrix{Q: q, Eps: DefaultEps}
}

// Set sets the rate matrix and discards the decomposition.
func (m *EMatrix) Set(q *RateMatrix) {
	m.Q = q
	m.decomposed = false
}

// Decomposed returns true if the decomposition is up to date.
func (m *EMatrix) Decomposed() bool {
	return m.decomposed
}

// Eigen performs eigendecomposition of Q. Q is transformed into a
// symmetric matrix S=D^{1/2}QD^{-1/2}, where D=diag(π), so the
// eigenvalues are real and eigenvectors are orthonormal.
func (m *EMatrix) Eigen() error {
	if m.decomposed {
		return nil
	}
	if m.Q == nil {
		return fmt.Errorf("%w: no rate matrix", ErrInvalidDimension)
	}
	if !m.Q.Reversible {
		return fmt.Errorf("%w: eigendecomposition requires a reversible matrix", ErrNonReversible)
	}
	n := m.Q.N
	q := m.Q.Q.Array()
	freq := m.Q.Freq

	sq := make([]float64, n)
	for i, f := range freq {
		sq[i] = math.Sqrt(f)
	}

	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sij := sq[i] * q[i*n+j] / sq[j]
			sji := sq[j] * q[j*n+i] / sq[i]
			s.SetSym(i, j, (sij+sji)/2)
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(s, true); !ok {
		return fmt.Errorf("%w: eigendecomposition failed", ErrNumerical)
	}
	values := es.Values(nil)
	var w mat.Dense
	es.VectorsTo(&w)

	// The eigenvalue closest to zero corresponds to the stationary
	// distribution.
	zero := 0
	for k, l := range values {
		if math.Abs(l) < math.Abs(values[zero]) {
			zero = k
		}
	}
	if math.Abs(values[zero]) > m.Eps*math.Max(1, math.Abs(values[0])) {
		log.Debugf("zero eigenvalue is %g", values[zero])
	}
	values[zero] = 0
	for i := 0; i < n; i++ {
		w.Set(i, zero, sq[i])
	}
	for k, l := range values {
		if l > m.Eps {
			return fmt.Errorf("%w: positive eigenvalue %d=%g", ErrNumerical, k, l)
		}
	}

	m.values = values
	m.v = ensureSize(m.v, n*n)
	m.iv = ensureSize(m.iv, n*n)
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			wik := w.At(i, k)
			m.v[i*n+k] = wik / sq[i]
			m.iv[k*n+i] = wik * sq[i]
		}
	}
	if err := m.check(); err != nil {
		return err
	}
	m.decomposed = true
	return nil
}

// check verifies that V·diag(λ)·V⁻¹ reconstructs Q.
func (m *EMatrix) check() error {
	n := m.Q.N
	q := m.Q.Q.Array()
	maxQ := 0.0
	maxDiff := 0.0
	for i := 0; i < n; i++ {
		rowQ := 0.0
		rowDiff := 0.0
		for j := 0; j < n; j++ {
			r := 0.0
			for k := 0; k < n; k++ {
				r += m.v[i*n+k] * m.values[k] * m.iv[k*n+j]
			}
			rowQ += math.Abs(q[i*n+j])
			rowDiff += math.Abs(r - q[i*n+j])
		}
		maxQ = math.Max(maxQ, rowQ)
		maxDiff = math.Max(maxDiff, rowDiff)
	}
	if maxDiff > m.Eps*(1+maxQ) || math.IsNaN(maxDiff) {
		return fmt.Errorf("%w: reconstruction error %g", ErrNumerical, maxDiff)
	}
	return nil
}

// Values returns the eigenvalues.
func (m *EMatrix) Values() []float64 {
	m.mustEigen()
	return m.values
}

// Vectors returns the right eigenvectors as columns of a row-major
// matrix.
func (m *EMatrix) Vectors() []float64 {
	m.mustEigen()
	return m.v
}

// InvVectors returns the inverse of the eigenvector matrix.
func (m *EMatrix) InvVectors() []float64 {
	m.mustEigen()
	return m.iv
}

func (m *EMatrix) mustEigen() {
	if err := m.Eigen(); err != nil {
		panic(fmt.Sprintf("error finding eigen: %v", err))
	}
}

// expValues computes e^{λt} for all eigenvalues.
func (m *EMatrix) expValues(t float64) []float64 {
	e := make([]float64, len(m.values))
	for k, l := range m.values {
		e[k] = math.Exp(l * t)
	}
	return e
}

// entry computes a single element of V·diag(w)·V⁻¹.
func (m *EMatrix) entry(w []float64, i, j int) float64 {
	n := m.Q.N
	r := 0.0
	for k := 0; k < n; k++ {
		r += m.v[i*n+k] * w[k] * m.iv[k*n+j]
	}
	return r
}

// Exp computes P=e^Qt and writes it to p (row-major, n×n). If p is
// nil a new slice is allocated.
func (m *EMatrix) Exp(p []float64, t float64) []float64 {
	checkTime(t)
	m.mustEigen()
	n := m.Q.N
	p = ensureLen(p, n*n)
	switch {
	case t == 0:
		identity(p, n)
		return p
	case math.IsInf(t, 1):
		stationary(p, m.Q.Freq)
		return p
	}
	e := m.expValues(t)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			// Remove slightly negative values
			p[i*n+j] = math.Max(0, m.entry(e, i, j))
		}
	}
	return p
}

// ExpEntry computes a single element of P=e^Qt. The result is
// identical to the corresponding element of Exp.
func (m *EMatrix) ExpEntry(t float64, i, j int) float64 {
	checkTime(t)
	m.mustEigen()
	switch {
	case t == 0:
		if i == j {
			return 1
		}
		return 0
	case math.IsInf(t, 1):
		return m.Q.Freq[j]
	}
	n := m.Q.N
	r := 0.0
	for k := 0; k < n; k++ {
		r += m.v[i*n+k] * math.Exp(m.values[k]*t) * m.iv[k*n+j]
	}
	return math.Max(0, r)
}

// ExpDerv computes P=e^Qt together with its first and second
// derivatives by t.
func (m *EMatrix) ExpDerv(p, d1, d2 []float64, t float64) ([]float64, []float64, []float64) {
	checkTime(t)
	m.mustEigen()
	n := m.Q.N
	p = ensureLen(p, n*n)
	d1 = ensureLen(d1, n*n)
	d2 = ensureLen(d2, n*n)
	if math.IsInf(t, 1) {
		stationary(p, m.Q.Freq)
		for i := range d1[:n*n] {
			d1[i] = 0
			d2[i] = 0
		}
		return p, d1, d2
	}
	e := m.expValues(t)
	e1 := make([]float64, n)
	e2 := make([]float64, n)
	for k, l := range m.values {
		e1[k] = l * e[k]
		e2[k] = l * l * e[k]
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d1[i*n+j] = m.entry(e1, i, j)
			d2[i*n+j] = m.entry(e2, i, j)
		}
	}
	if t == 0 {
		identity(p, n)
		return p, d1, d2
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			p[i*n+j] = math.Max(0, m.entry(e, i, j))
		}
	}
	return p, d1, d2
}

// ExpEntryDerv computes a single element of P=e^Qt and its
// derivatives.
func (m *EMatrix) ExpEntryDerv(t float64, i, j int) (p, d1, d2 float64) {
	checkTime(t)
	m.mustEigen()
	if math.IsInf(t, 1) {
		return m.Q.Freq[j], 0, 0
	}
	n := m.Q.N
	for k := 0; k < n; k++ {
		l := m.values[k]
		ek := math.Exp(l * t)
		p += m.v[i*n+k] * ek * m.iv[k*n+j]
		d1 += m.v[i*n+k] * (l * ek) * m.iv[k*n+j]
		d2 += m.v[i*n+k] * (l * l * ek) * m.iv[k*n+j]
	}
	if t == 0 {
		if i == j {
			return 1, d1, d2
		}
		return 0, d1, d2
	}
	return math.Max(0, p), d1, d2
}

// ensureSize returns p if it has length l or allocates a new slice.
func ensureSize(p []float64, l int) []float64 {
	if len(p) == l {
		return p
	}
	return make([]float64, l)
}
