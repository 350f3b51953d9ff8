package smodel

import (
	"errors"

	"bitbucket.org/Davydov/substmodel/qmatrix"
)

var (
	// ErrInvalidDimension is returned if the number of states,
	// rates, frequencies or variables is wrong.
	ErrInvalidDimension = qmatrix.ErrInvalidDimension
	// ErrNonReversible is returned if a reversible matrix does not
	// satisfy detailed balance.
	ErrNonReversible = qmatrix.ErrNonReversible
	// ErrNumerical is returned if the eigendecomposition is
	// inaccurate.
	ErrNumerical = qmatrix.ErrNumerical
	// ErrParameterDomain is returned for parameters outside of their
	// domain.
	ErrParameterDomain = qmatrix.ErrParameterDomain
	// ErrConvergenceNotReached is returned by OptimizeParameters if
	// the iteration limit was reached. The returned likelihood is
	// still valid.
	ErrConvergenceNotReached = errors.New("convergence not reached")
	// ErrNoLikelihood is returned if likelihood function was not set.
	ErrNoLikelihood = errors.New("likelihood function is not set")
)
