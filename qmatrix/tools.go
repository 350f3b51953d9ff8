// Package qmatrix builds instantaneous rate matrices of substitution
// models and computes transition probabilities P(t)=e^{Qt} and their
// time derivatives.
package qmatrix

import (
	"math"

	"github.com/op/go-logging"
)

// log is a global logging variable.
var log = logging.MustGetLogger("qmatrix")

const (
	// smallScale is the smallest total substitution rate accepted
	// for normalization.
	smallScale = 1e-30
	// DefaultEps is the default tolerance for the matrix checks.
	DefaultEps = 1e-8
)

// checkTime panics if the branch length is negative or NaN.
func checkTime(t float64) {
	if t < 0 || math.IsNaN(t) {
		panic("negative or NaN branch length")
	}
}

// identity writes an identity matrix of size n to p.
func identity(p []float64, n int) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				p[i*n+j] = 1
			} else {
				p[i*n+j] = 0
			}
		}
	}
}

// stationary writes the stationary distribution broadcast across rows
// to p.
func stationary(p []float64, freq []float64) {
	n := len(freq)
	for i := 0; i < n; i++ {
		copy(p[i*n:(i+1)*n], freq)
	}
}

// ensureLen returns p if it has length l, allocates a new slice if p
// is nil and panics otherwise.
func ensureLen(p []float64, l int) []float64 {
	if p == nil {
		return make([]float64, l)
	}
	if len(p) < l {
		panic("output matrix is too small")
	}
	return p
}
