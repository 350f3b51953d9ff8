package smodel

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"bitbucket.org/Davydov/substmodel/optimize"
	"bitbucket.org/Davydov/substmodel/qmatrix"
)

// Model is a substitution model. Transition matrices are row-major
// slices of n×n elements, P[i*n+j] is the probability of changing
// from state i to state j.
type Model interface {
	// Name returns a short model name.
	Name() string
	// FullName returns a descriptive model name.
	FullName() string
	// NStates returns the number of states.
	NStates() int
	// NumRateEntries returns the number of rate entries returned by
	// RateMatrix.
	NumRateEntries() int
	// TransMatrixSize returns the size of the transition matrix
	// filled by ComputeTransMatrix.
	TransMatrixSize() int
	// IsReversible returns true for time-reversible models.
	IsReversible() bool
	// IsSiteSpecificModel returns true if every site (pattern) has
	// its' own rate matrix.
	IsSiteSpecificModel() bool
	// PtnModelID returns the model id used for a pattern.
	PtnModelID(ptn int) int
	// FreqType returns the way frequencies are obtained.
	FreqType() qmatrix.FreqType

	// ComputeTransMatrix computes P(t). If p is nil a new slice is
	// allocated.
	ComputeTransMatrix(t float64, p []float64) []float64
	// ComputeTransMatrixFreq computes P(t) with every row i
	// multiplied by the frequency of state i.
	ComputeTransMatrixFreq(t float64, p []float64) []float64
	// ComputeTransDerv computes P(t) and its' first and second
	// derivatives.
	ComputeTransDerv(t float64, p, d1, d2 []float64) ([]float64, []float64, []float64)
	// ComputeTransDervFreq computes P(t·rate) and the derivatives
	// by t with rows multiplied by the state frequencies.
	ComputeTransDervFreq(t, rate float64, p, d1, d2 []float64) ([]float64, []float64, []float64)
	// ComputeTrans computes a single transition probability.
	ComputeTrans(t float64, i, j int) float64
	// ComputeTransModel computes a single transition probability
	// for the model id.
	ComputeTransModel(t float64, modelID, i, j int) float64
	// ComputeTransWithDerv computes a single transition
	// probability and its' derivatives.
	ComputeTransWithDerv(t float64, i, j int) (p, d1, d2 float64)
	// ComputeTransWithDervModel computes a single transition
	// probability and its' derivatives for the model id.
	ComputeTransWithDervModel(t float64, modelID, i, j int) (p, d1, d2 float64)

	// RateMatrix returns the exchange rates.
	RateMatrix(rates []float64) []float64
	// QMatrix returns the normalized instantaneous rate matrix.
	QMatrix(q []float64) []float64
	// StateFrequency returns the state frequencies.
	StateFrequency(freq []float64) []float64
	// NewTransMatrix allocates a transition matrix.
	NewTransMatrix() []float64
	// DecomposeRateMatrix recomputes the rate matrix and its'
	// decomposition if parameters have changed.
	DecomposeRateMatrix() error

	// NDim returns the number of free parameters.
	NDim() int
	// GetVariables writes parameters to v[1..NDim].
	GetVariables(v []float64) error
	// SetVariables sets parameters from v[1..NDim].
	SetVariables(v []float64) error
	// GetFloatParameters returns the free parameters.
	GetFloatParameters() optimize.FloatParameters
	// SetLikelihood sets the likelihood function used for the
	// optimization.
	SetLikelihood(func() float64)
	// Likelihood returns the log likelihood for the current
	// parameters.
	Likelihood() float64
	// SetOptimizer sets the optimizer used by OptimizeParameters.
	SetOptimizer(optimize.Optimizer)
	// SetMaxIterations sets the maximum number of optimizer
	// iterations.
	SetMaxIterations(int)
	// OptimizeParameters maximizes the likelihood and returns the
	// maximum log likelihood.
	OptimizeParameters(epsilon float64) (float64, error)

	// WriteInfo writes model parameters in a human readable form.
	WriteInfo(w io.Writer) error
}

// matrixBuilder is implemented by models computing their rate matrix
// from parameters.
type matrixBuilder interface {
	// buildMatrix creates the rate matrix for the frequencies. The
	// storage of q may be reused.
	buildMatrix(freq []float64, q *qmatrix.RateMatrix) (*qmatrix.RateMatrix, error)
}

// matrixCommitter is implemented by models keeping matrices besides
// the rate matrix. commitMatrix is called after a successful
// decomposition.
type matrixCommitter interface {
	commitMatrix()
}

// transPath is a way transition probabilities are computed.
type transPath int

const (
	// pathClosed is the closed form for equal exchange rates.
	pathClosed transPath = iota
	// pathEigen uses the eigendecomposition.
	pathEigen
	// pathPade uses the matrix exponential.
	pathPade
)

// BaseModel implements the Jukes-Cantor model and everything a model
// with a single rate matrix needs. Other models embed it.
type BaseModel struct {
	// self is the concrete model, derived operations are
	// dispatched through it.
	self    Model
	builder matrixBuilder

	name     string
	fullName string
	nstates  int
	labels   []string

	freqType qmatrix.FreqType
	// freq is the initial (or fixed) frequencies.
	freq []float64
	// freqRatio are frequencies divided by the last frequency.
	freqRatio []float64

	reversible bool
	eps        float64
	q          *qmatrix.RateMatrix
	e          *qmatrix.EMatrix
	spareQ     *qmatrix.RateMatrix
	spareE     *qmatrix.EMatrix
	path       transPath

	parameters optimize.FloatParameters

	// dirty is true if parameters changed after decomposition.
	dirty atomic.Bool
	mu    sync.Mutex

	likelihood    func() float64
	optimizer     optimize.Optimizer
	maxIterations int
}

// NewBaseModel creates a new base model with n states and equal
// frequencies. If model is nil, BaseModel itself is the model
// (Jukes-Cantor), otherwise the derived operations are dispatched
// to model.
func NewBaseModel(n int, model Model) *BaseModel {
	bm := &BaseModel{
		self:          model,
		name:          "JC",
		fullName:      "JC (Jukes and Cantor 1969)",
		nstates:       n,
		labels:        StateLabels(n),
		freqType:      qmatrix.FreqEqual,
		freq:          qmatrix.EqualFrequency(n),
		reversible:    true,
		eps:           qmatrix.DefaultEps,
		maxIterations: defaultMaxIterations,
	}
	if model == nil {
		bm.self = bm
	}
	if b, ok := bm.self.(matrixBuilder); ok {
		bm.builder = b
	} else {
		bm.builder = bm
	}
	bm.dirty.Store(true)
	return bm
}

// NewJC creates a Jukes-Cantor (Poisson for non-DNA data) model
// with n states.
func NewJC(n int) (*BaseModel, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: %d states", ErrInvalidDimension, n)
	}
	m := NewBaseModel(n, nil)
	if n != 4 {
		m.name = "POISSON"
		m.fullName = "Poisson (equal rates and frequencies)"
	}
	if err := m.DecomposeRateMatrix(); err != nil {
		return nil, err
	}
	return m, nil
}

// buildMatrix creates a matrix with all exchange rates equal to 1.
func (m *BaseModel) buildMatrix(freq []float64, q *qmatrix.RateMatrix) (*qmatrix.RateMatrix, error) {
	rates := make([]float64, qmatrix.NumRateEntries(m.nstates))
	for i := range rates {
		rates[i] = 1
	}
	return qmatrix.CreateRateMatrix(rates, freq, q)
}

// setDirty is called when a parameter changes.
func (m *BaseModel) setDirty() {
	m.dirty.Store(true)
}

// decompose rebuilds the rate matrix and the decomposition. The
// current matrix is replaced only on success.
func (m *BaseModel) decompose() error {
	q, err := m.builder.buildMatrix(m.currentFrequency(), m.spareQ)
	if err != nil {
		return err
	}
	if m.spareE == nil {
		m.spareE = qmatrix.NewEMatrix(q)
	}
	m.spareE.Eps = m.eps
	m.spareE.Set(q)

	path := pathPade
	switch {
	case !m.reversible:
	case allEqual(q.Rates):
		path = pathClosed
	default:
		path = pathEigen
		if err := m.spareE.Eigen(); err != nil {
			return err
		}
	}

	m.q, m.spareQ = q, m.q
	m.e, m.spareE = m.spareE, m.e
	m.path = path
	if c, ok := m.builder.(matrixCommitter); ok {
		c.commitMatrix()
	}
	m.dirty.Store(false)
	return nil
}

// DecomposeRateMatrix recomputes the rate matrix and its'
// decomposition if parameters have changed.
func (m *BaseModel) DecomposeRateMatrix() error {
	if !m.dirty.Load() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty.Load() {
		return nil
	}
	return m.decompose()
}

// ensure performs a lazy decomposition on the read path. It panics if
// the decomposition fails.
func (m *BaseModel) ensure() {
	if err := m.DecomposeRateMatrix(); err != nil {
		panic(fmt.Sprintf("error decomposing rate matrix of %s: %v", m.name, err))
	}
}

// SetEps sets the tolerance of the eigendecomposition checks.
func (m *BaseModel) SetEps(eps float64) {
	m.eps = eps
	m.setDirty()
}

// Name returns a short model name.
func (m *BaseModel) Name() string {
	return m.name
}

// FullName returns a descriptive model name.
func (m *BaseModel) FullName() string {
	return m.fullName
}

// NStates returns the number of states.
func (m *BaseModel) NStates() int {
	return m.nstates
}

// NumRateEntries returns n(n-1)/2 for reversible models and n(n-1)
// otherwise.
func (m *BaseModel) NumRateEntries() int {
	if !m.reversible {
		return m.nstates * (m.nstates - 1)
	}
	return qmatrix.NumRateEntries(m.nstates)
}

// TransMatrixSize returns n².
func (m *BaseModel) TransMatrixSize() int {
	return m.nstates * m.nstates
}

// IsReversible returns true for time-reversible models.
func (m *BaseModel) IsReversible() bool {
	return m.reversible
}

// IsSiteSpecificModel returns false.
func (m *BaseModel) IsSiteSpecificModel() bool {
	return false
}

// PtnModelID returns 0, all the patterns share the same model.
func (m *BaseModel) PtnModelID(ptn int) int {
	return 0
}

// FreqType returns the way frequencies are obtained.
func (m *BaseModel) FreqType() qmatrix.FreqType {
	return m.freqType
}

// ComputeTransMatrix computes P(t).
func (m *BaseModel) ComputeTransMatrix(t float64, p []float64) []float64 {
	m.ensure()
	switch m.path {
	case pathClosed:
		return qmatrix.F81Exp(p, m.q.Freq, t)
	case pathEigen:
		return m.e.Exp(p, t)
	}
	return qmatrix.NonRevExp(p, m.q, t)
}

// ComputeTransMatrixFreq computes P(t) with rows multiplied by the
// state frequencies.
func (m *BaseModel) ComputeTransMatrixFreq(t float64, p []float64) []float64 {
	p = m.self.ComputeTransMatrix(t, p)
	freq := m.self.StateFrequency(nil)
	n := m.nstates
	for i, f := range freq {
		for j := 0; j < n; j++ {
			p[i*n+j] *= f
		}
	}
	return p
}

// ComputeTransDerv computes P(t) and its' derivatives.
func (m *BaseModel) ComputeTransDerv(t float64, p, d1, d2 []float64) ([]float64, []float64, []float64) {
	m.ensure()
	switch m.path {
	case pathClosed:
		return qmatrix.F81Derv(p, d1, d2, m.q.Freq, t)
	case pathEigen:
		return m.e.ExpDerv(p, d1, d2, t)
	}
	return qmatrix.NonRevDerv(p, d1, d2, m.q, t)
}

// ComputeTransDervFreq computes P(t·rate) and the derivatives by t
// with rows multiplied by the state frequencies.
func (m *BaseModel) ComputeTransDervFreq(t, rate float64, p, d1, d2 []float64) ([]float64, []float64, []float64) {
	p, d1, d2 = m.self.ComputeTransDerv(t*rate, p, d1, d2)
	freq := m.self.StateFrequency(nil)
	n := m.nstates
	rate2 := rate * rate
	for i, f := range freq {
		for j := 0; j < n; j++ {
			k := i*n + j
			p[k] *= f
			d1[k] *= f * rate
			d2[k] *= f * rate2
		}
	}
	return p, d1, d2
}

// ComputeTrans computes a single transition probability.
func (m *BaseModel) ComputeTrans(t float64, i, j int) float64 {
	m.ensure()
	switch m.path {
	case pathClosed:
		return qmatrix.F81Entry(m.q.Freq, t, i, j)
	case pathEigen:
		return m.e.ExpEntry(t, i, j)
	}
	return qmatrix.NonRevExp(nil, m.q, t)[i*m.nstates+j]
}

// ComputeTransModel computes a single transition probability. The
// model id is ignored.
func (m *BaseModel) ComputeTransModel(t float64, modelID, i, j int) float64 {
	return m.self.ComputeTrans(t, i, j)
}

// ComputeTransWithDerv computes a single transition probability and
// its' derivatives.
func (m *BaseModel) ComputeTransWithDerv(t float64, i, j int) (p, d1, d2 float64) {
	m.ensure()
	switch m.path {
	case pathClosed:
		return qmatrix.F81EntryDerv(m.q.Freq, t, i, j)
	case pathEigen:
		return m.e.ExpEntryDerv(t, i, j)
	}
	pm, d1m, d2m := qmatrix.NonRevDerv(nil, nil, nil, m.q, t)
	k := i*m.nstates + j
	return pm[k], d1m[k], d2m[k]
}

// ComputeTransWithDervModel computes a single transition probability
// and its' derivatives. The model id is ignored.
func (m *BaseModel) ComputeTransWithDervModel(t float64, modelID, i, j int) (p, d1, d2 float64) {
	return m.self.ComputeTransWithDerv(t, i, j)
}

// RateMatrix returns the exchange rates (upper triangle in row
// order), or all the off-diagonal rates for non-reversible models.
func (m *BaseModel) RateMatrix(rates []float64) []float64 {
	m.ensure()
	return append(rates[:0], m.q.Rates...)
}

// QMatrix returns the normalized rate matrix.
func (m *BaseModel) QMatrix(q []float64) []float64 {
	m.ensure()
	return append(q[:0], m.q.Q.Array()...)
}

// StateFrequency returns the state frequencies.
func (m *BaseModel) StateFrequency(freq []float64) []float64 {
	m.ensure()
	return append(freq[:0], m.q.Freq...)
}

// NewTransMatrix allocates a transition matrix.
func (m *BaseModel) NewTransMatrix() []float64 {
	return make([]float64, m.self.TransMatrixSize())
}

// Eigenvalues returns the eigenvalues of the rate matrix or nil if
// eigendecomposition is not used.
func (m *BaseModel) Eigenvalues() []float64 {
	m.ensure()
	if m.path != pathEigen {
		return nil
	}
	return append([]float64(nil), m.e.Values()...)
}
