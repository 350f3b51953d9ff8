// Package smodel provides substitution models: rate matrices,
// transition probabilities and their derivatives, and the parameter
// interface used by likelihood optimizers.
package smodel

import (
	"strconv"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/substmodel/bio"
)

// log is a global logging variable.
var log = logging.MustGetLogger("smodel")

const (
	// Default maximum number of optimizer iterations.
	defaultMaxIterations = 10000

	// Boundaries for exchange rates.
	minRate = 1e-4
	maxRate = 100

	// Boundaries for frequency ratios.
	minFreqRatio = 1e-4
	maxFreqRatio = 1e4
)

// allEqual returns true if all the values are the same.
func allEqual(v []float64) bool {
	for _, x := range v {
		if x != v[0] {
			return false
		}
	}
	return true
}

// StateLabels returns state names for the number of states: the
// alphabet letters for binary, DNA and protein data, codons for 61
// states and numbers otherwise.
func StateLabels(n int) []string {
	var alphabet string
	switch n {
	case len(bio.Binary):
		alphabet = bio.Binary
	case len(bio.DNA):
		alphabet = bio.DNA
	case len(bio.Protein):
		alphabet = bio.Protein
	case len(bio.SenseCodons):
		return bio.SenseCodons
	}
	labels := make([]string, n)
	for i := range labels {
		if alphabet != "" {
			labels[i] = alphabet[i : i+1]
		} else {
			labels[i] = strconv.Itoa(i)
		}
	}
	return labels
}

// square returns a view of the k-th n×n matrix in p.
func square(p []float64, k, n int) []float64 {
	return p[k*n*n : (k+1)*n*n]
}
