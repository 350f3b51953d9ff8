package qmatrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"bitbucket.org/Davydov/substmodel/matrix"
)

// CreateNonRevRateMatrix creates a rate matrix from all off-diagonal
// rates in row order (n(n-1) values). The stationary distribution is
// computed from Q and the matrix is normalized to the mean rate of 1.
func CreateNonRevRateMatrix(n int, rates []float64, m *RateMatrix) (*RateMatrix, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: %d states", ErrInvalidDimension, n)
	}
	if len(rates) != n*(n-1) {
		return nil, fmt.Errorf("%w: %d rates for %d states", ErrInvalidDimension, len(rates), n)
	}
	for k, r := range rates {
		if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, fmt.Errorf("%w: rate %d=%v", ErrParameterDomain, k, r)
		}
	}
	m = newRateMatrix(n, m)
	m.Reversible = false
	m.Rates = append(m.Rates[:0], rates...)

	q := m.Q.Array()
	k := 0
	for i := 0; i < n; i++ {
		rowSum := 0.0
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			q[i*n+j] = rates[k]
			rowSum += rates[k]
			k++
		}
		q[i*n+i] = -rowSum
	}

	freq, err := StationaryDistribution(m.Q)
	if err != nil {
		return nil, err
	}
	m.Freq = append(m.Freq[:0], freq...)
	if err := m.normalize(); err != nil {
		return nil, err
	}
	// A reversible set of rates is still allowed.
	m.Reversible = m.CheckDetailedBalance() == nil
	return m, nil
}

// StationaryDistribution solves πQ=0 with Σπ=1. The last equation of
// the system is replaced by the normalization constraint.
func StationaryDistribution(q *matrix.Matrix) ([]float64, error) {
	n, _ := q.GetSize()
	var a mat.Dense
	a.CloneFrom(q.Dense().T())
	for j := 0; j < n; j++ {
		a.Set(n-1, j, 1)
	}
	b := mat.NewVecDense(n, nil)
	b.SetVec(n-1, 1)
	var x mat.VecDense
	if err := x.SolveVec(&a, b); err != nil {
		return nil, fmt.Errorf("%w: stationary distribution: %v", ErrNumerical, err)
	}
	freq := make([]float64, n)
	for i := range freq {
		freq[i] = x.AtVec(i)
		if freq[i] <= 0 || math.IsNaN(freq[i]) {
			return nil, fmt.Errorf("%w: stationary frequency %d=%g", ErrNumerical, i, freq[i])
		}
	}
	return freq, nil
}

// NonRevExp computes P=e^Qt by scaling and squaring. It works for
// any rate matrix.
func NonRevExp(p []float64, m *RateMatrix, t float64) []float64 {
	checkTime(t)
	n := m.N
	p = ensureLen(p, n*n)
	switch {
	case t == 0:
		identity(p, n)
		return p
	case math.IsInf(t, 1):
		stationary(p, m.Freq)
		return p
	}
	qt := m.Q.Empty()
	m.Q.Copy(qt)
	qt.Scale(t)
	pm, err := matrix.NewFromArray(p[:n*n], n, n)
	if err != nil {
		panic(err)
	}
	qt.Exponential(pm)
	for i := range p[:n*n] {
		p[i] = math.Max(0, p[i])
	}
	return p
}

// NonRevDerv computes P=e^Qt, dP=QP and d²P=Q²P.
func NonRevDerv(p, d1, d2 []float64, m *RateMatrix, t float64) ([]float64, []float64, []float64) {
	n := m.N
	p = NonRevExp(p, m, t)
	d1 = ensureLen(d1, n*n)
	d2 = ensureLen(d2, n*n)
	if math.IsInf(t, 1) {
		for i := range d1[:n*n] {
			d1[i] = 0
			d2[i] = 0
		}
		return p, d1, d2
	}
	pm, _ := matrix.NewFromArray(p[:n*n], n, n)
	d1m, _ := matrix.NewFromArray(d1[:n*n], n, n)
	d2m, _ := matrix.NewFromArray(d2[:n*n], n, n)
	d1m.Mul(m.Q, pm)
	d2m.Mul(m.Q, d1m)
	return p, d1, d2
}
