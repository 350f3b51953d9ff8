package qmatrix

import (
	"fmt"
	"math"

	"bitbucket.org/Davydov/substmodel/matrix"
)

// RateMatrix is a normalized instantaneous rate matrix.
type RateMatrix struct {
	// N is the number of states.
	N int
	// Rates are the exchange rates (upper triangle in row order)
	// for reversible matrices and all the off-diagonal rates in
	// row order otherwise.
	Rates []float64
	// Freq is the stationary distribution.
	Freq []float64
	// Q is the rate matrix scaled so that the mean substitution
	// rate at stationarity is 1.
	Q *matrix.Matrix
	// Scale is the mean substitution rate before normalization.
	Scale float64
	// Reversible is true if Q satisfies detailed balance.
	Reversible bool
	// Eps is the tolerance used for the checks.
	Eps float64
}

// NumRateEntries returns the number of entries in the upper triangle
// of an n×n matrix.
func NumRateEntries(n int) int {
	return n * (n - 1) / 2
}

// RateIndex returns the position of the pair (i, j) in the upper
// triangle vector. The order of i and j does not matter.
func RateIndex(n, i, j int) int {
	if i == j {
		panic("no rate entry for the diagonal")
	}
	if i > j {
		i, j = j, i
	}
	return i*n - i*(i+1)/2 + j - i - 1
}

// newRateMatrix reuses m if it has n states or creates a new one.
func newRateMatrix(n int, m *RateMatrix) *RateMatrix {
	if m != nil && m.N == n && m.Q != nil {
		return m
	}
	q, err := matrix.New(n, n)
	if err != nil {
		panic(err)
	}
	return &RateMatrix{N: n, Q: q, Eps: DefaultEps}
}

// CreateRateMatrix creates a reversible rate matrix with
// Q[i][j]=rates[i,j]*freq[j]. If m is not nil and has the right size
// its' storage is reused.
func CreateRateMatrix(rates, freq []float64, m *RateMatrix) (*RateMatrix, error) {
	n := len(freq)
	if n < 2 {
		return nil, fmt.Errorf("%w: %d states", ErrInvalidDimension, n)
	}
	if len(rates) != NumRateEntries(n) {
		return nil, fmt.Errorf("%w: %d rates for %d states", ErrInvalidDimension, len(rates), n)
	}
	for k, r := range rates {
		if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, fmt.Errorf("%w: rate %d=%v", ErrParameterDomain, k, r)
		}
	}
	if err := CheckFrequency(freq); err != nil {
		return nil, err
	}

	m = newRateMatrix(n, m)
	m.Reversible = true
	m.Rates = append(m.Rates[:0], rates...)
	m.Freq = append(m.Freq[:0], freq...)

	q := m.Q.Array()
	k := 0
	for i := 0; i < n; i++ {
		q[i*n+i] = 0
		for j := i + 1; j < n; j++ {
			q[i*n+j] = rates[k] * freq[j]
			q[j*n+i] = rates[k] * freq[i]
			k++
		}
	}
	return m, m.normalize()
}

// normalize scales off-diagonal elements so the mean rate is 1 and
// recomputes the diagonal.
func (m *RateMatrix) normalize() error {
	n := m.N
	q := m.Q.Array()
	scale := 0.0
	for i := 0; i < n; i++ {
		rowSum := 0.0
		for j := 0; j < n; j++ {
			if i != j {
				rowSum += q[i*n+j]
			}
		}
		scale += m.Freq[i] * rowSum
	}
	if scale < smallScale {
		return fmt.Errorf("%w: total substitution rate is zero", ErrParameterDomain)
	}
	m.Scale = scale
	for i := 0; i < n; i++ {
		rowSum := 0.0
		for j := 0; j < n; j++ {
			if i != j {
				q[i*n+j] /= scale
				rowSum += q[i*n+j]
			}
		}
		q[i*n+i] = -rowSum
	}
	if err := m.CheckRowSums(); err != nil {
		return err
	}
	if m.Reversible {
		return m.CheckDetailedBalance()
	}
	return nil
}

// CheckRowSums returns an error if any row of Q does not sum to zero.
func (m *RateMatrix) CheckRowSums() error {
	for i, s := range m.Q.RowSums() {
		if math.Abs(s) > m.Eps || math.IsNaN(s) {
			return fmt.Errorf("%w: row %d sums to %g", ErrNumerical, i, s)
		}
	}
	return nil
}

// CheckDetailedBalance returns an error if freq[i]*Q[i][j] differs
// from freq[j]*Q[j][i].
func (m *RateMatrix) CheckDetailedBalance() error {
	n := m.N
	q := m.Q.Array()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			fij := m.Freq[i] * q[i*n+j]
			fji := m.Freq[j] * q[j*n+i]
			if math.Abs(fij-fji) > m.Eps*math.Max(1, math.Abs(fij)) {
				return fmt.Errorf("%w: pi[%d]Q[%d][%d]=%g, pi[%d]Q[%d][%d]=%g",
					ErrNonReversible, i, i, j, fij, j, j, i, fji)
			}
		}
	}
	return nil
}

// MeanRate returns the mean substitution rate of the normalized
// matrix; it is 1 up to rounding.
func (m *RateMatrix) MeanRate() (r float64) {
	q := m.Q.Array()
	for i := 0; i < m.N; i++ {
		r -= m.Freq[i] * q[i*m.N+i]
	}
	return
}
