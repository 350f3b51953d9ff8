package qmatrix

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// F81Beta returns the rate multiplier of the F81 model normalized to
// the mean rate of 1: β=1/(1-Σπ²).
func F81Beta(freq []float64) float64 {
	return 1 / (1 - floats.Dot(freq, freq))
}

// F81Exp computes P=e^Qt for the F81 model (JC if frequencies are
// equal): P[i][j]=π_j+(δ_ij-π_j)e^{-βt}.
func F81Exp(p []float64, freq []float64, t float64) []float64 {
	checkTime(t)
	n := len(freq)
	p = ensureLen(p, n*n)
	switch {
	case t == 0:
		identity(p, n)
		return p
	case math.IsInf(t, 1):
		stationary(p, freq)
		return p
	}
	e := math.Exp(-F81Beta(freq) * t)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			p[i*n+j] = f81Entry(freq[j], i == j, e)
		}
	}
	return p
}

func f81Entry(fj float64, diag bool, e float64) float64 {
	if diag {
		return fj + (1-fj)*e
	}
	return fj - fj*e
}

// F81Entry computes a single element of the F81 transition matrix.
func F81Entry(freq []float64, t float64, i, j int) float64 {
	checkTime(t)
	switch {
	case t == 0:
		if i == j {
			return 1
		}
		return 0
	case math.IsInf(t, 1):
		return freq[j]
	}
	return f81Entry(freq[j], i == j, math.Exp(-F81Beta(freq)*t))
}

// F81Derv computes the F81 transition matrix and its first and
// second derivatives by t.
func F81Derv(p, d1, d2 []float64, freq []float64, t float64) ([]float64, []float64, []float64) {
	checkTime(t)
	n := len(freq)
	p = ensureLen(p, n*n)
	d1 = ensureLen(d1, n*n)
	d2 = ensureLen(d2, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			p[i*n+j], d1[i*n+j], d2[i*n+j] = F81EntryDerv(freq, t, i, j)
		}
	}
	return p, d1, d2
}

// F81EntryDerv computes a single element of the F81 transition matrix
// and its derivatives.
func F81EntryDerv(freq []float64, t float64, i, j int) (p, d1, d2 float64) {
	checkTime(t)
	if math.IsInf(t, 1) {
		return freq[j], 0, 0
	}
	beta := F81Beta(freq)
	e := math.Exp(-beta * t)
	delta := -freq[j]
	if i == j {
		delta = 1 - freq[j]
	}
	d1 = -beta * delta * e
	d2 = beta * beta * delta * e
	if t == 0 {
		if i == j {
			return 1, d1, d2
		}
		return 0, d1, d2
	}
	return f81Entry(freq[j], i == j, e), d1, d2
}
