package qmatrix

import "errors"

var (
	// ErrInvalidDimension is returned if the number of states is not
	// positive or a vector has a wrong length.
	ErrInvalidDimension = errors.New("invalid dimension")
	// ErrNonReversible is returned if detailed balance does not hold
	// for a matrix which should be reversible.
	ErrNonReversible = errors.New("rate matrix is not reversible")
	// ErrNumerical is returned if the eigendecomposition fails or
	// does not reproduce the rate matrix.
	ErrNumerical = errors.New("numerical error")
	// ErrParameterDomain is returned if a rate or a frequency is
	// outside of its domain.
	ErrParameterDomain = errors.New("parameter out of domain")
)
