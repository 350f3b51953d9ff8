package optimize

import (
	"math/rand"
)

// Proposal returns a new parameter value given the current one.
type Proposal func(float64) float64

// UniformProposal returns uniform proposal function.
func UniformProposal(rnd *rand.Rand, width float64) Proposal {
	if width <= 0 {
		panic("width should be positive")
	}
	return func(x float64) float64 {
		return x + rnd.Float64()*width - width/2
	}
}

// NormalProposal returns normal proposal function.
func NormalProposal(rnd *rand.Rand, sd float64) Proposal {
	if sd <= 0 {
		panic("sd should be positive")
	}
	return func(x float64) float64 {
		return x + rnd.NormFloat64()*sd
	}
}
