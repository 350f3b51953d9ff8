package smodel

import (
	"fmt"

	"bitbucket.org/Davydov/substmodel/optimize"
	"bitbucket.org/Davydov/substmodel/qmatrix"
)

// setFrequency sets the initial frequencies. Frequencies below the
// minimum are clamped. For FreqEqual freq is ignored, for
// FreqEstimate nil freq means starting from equal frequencies.
func (m *BaseModel) setFrequency(freq []float64, ft qmatrix.FreqType) error {
	m.freqType = ft
	switch {
	case ft == qmatrix.FreqEqual || (ft == qmatrix.FreqEstimate && freq == nil):
		m.freq = qmatrix.EqualFrequency(m.nstates)
	case freq == nil:
		return fmt.Errorf("%w: %v frequencies are required", ErrInvalidDimension, ft)
	case len(freq) != m.nstates:
		return fmt.Errorf("%w: %d frequencies for %d states", ErrInvalidDimension, len(freq), m.nstates)
	default:
		m.freq = append([]float64(nil), freq...)
		for _, f := range m.freq {
			if !(f >= 0) {
				return fmt.Errorf("%w: frequency %v", ErrParameterDomain, f)
			}
		}
		qmatrix.NormalizeFrequency(m.freq)
		if err := qmatrix.CheckFrequency(m.freq); err != nil {
			return err
		}
	}
	m.setDirty()
	return nil
}

// addFrequencyParameters adds the frequency ratios f_i/f_{n-1} to
// the parameters if frequencies are estimated.
func (m *BaseModel) addFrequencyParameters() {
	if m.freqType != qmatrix.FreqEstimate {
		return
	}
	n := m.nstates
	last := m.freq[n-1]
	m.freqRatio = make([]float64, n-1)
	for i := range m.freqRatio {
		m.freqRatio[i] = m.freq[i] / last
		par := optimize.NewBasicFloatParameter(&m.freqRatio[i], "pi_"+m.labels[i])
		par.SetMin(minFreqRatio)
		par.SetMax(maxFreqRatio)
		par.SetOnChange(m.setDirty)
		m.freqRatio[i] = par.Clamp(m.freqRatio[i])
		m.parameters.Append(par)
	}
}

// addRateParameter adds an exchange rate parameter.
func (m *BaseModel) addRateParameter(v *float64, name string, min, max float64) {
	par := optimize.NewBasicFloatParameter(v, name)
	par.SetMin(min)
	par.SetMax(max)
	par.SetOnChange(m.setDirty)
	m.parameters.Append(par)
}

// currentFrequency returns the frequencies corresponding to the
// current parameters.
func (m *BaseModel) currentFrequency() []float64 {
	if m.freqRatio == nil {
		return m.freq
	}
	n := m.nstates
	freq := make([]float64, n)
	sum := 1.0
	for _, r := range m.freqRatio {
		sum += r
	}
	for i, r := range m.freqRatio {
		freq[i] = r / sum
	}
	freq[n-1] = 1 / sum
	return freq
}

// NDim returns the number of free parameters.
func (m *BaseModel) NDim() int {
	return len(m.self.GetFloatParameters())
}

// GetFloatParameters returns the free parameters.
func (m *BaseModel) GetFloatParameters() optimize.FloatParameters {
	return m.parameters
}

// GetVariables writes parameter values to v[1..NDim]. v[0] is not
// used.
func (m *BaseModel) GetVariables(v []float64) error {
	pars := m.self.GetFloatParameters()
	if len(v) < len(pars)+1 {
		return fmt.Errorf("%w: variable vector of length %d for %d parameters",
			ErrInvalidDimension, len(v), len(pars))
	}
	for i, par := range pars {
		v[i+1] = par.Get()
	}
	return nil
}

// SetVariables sets parameters from v[1..NDim] and recomputes the
// rate matrix. Values outside of the boundaries are clamped.
func (m *BaseModel) SetVariables(v []float64) error {
	pars := m.self.GetFloatParameters()
	if len(v) < len(pars)+1 {
		return fmt.Errorf("%w: variable vector of length %d for %d parameters",
			ErrInvalidDimension, len(v), len(pars))
	}
	for i, par := range pars {
		x := v[i+1]
		if !par.ValueInRange(x) {
			x = par.Clamp(x)
			log.Debugf("%v: %s=%v, clamped to %v", ErrParameterDomain, par.Name(), v[i+1], x)
		}
		par.Set(x)
	}
	return m.self.DecomposeRateMatrix()
}

// SetLikelihood sets the likelihood function used for the
// optimization.
func (m *BaseModel) SetLikelihood(f func() float64) {
	m.likelihood = f
}

// Likelihood returns the log likelihood for the current parameters or
// 0 if no likelihood function is set.
func (m *BaseModel) Likelihood() float64 {
	if m.likelihood == nil {
		return 0
	}
	return m.likelihood()
}

// SetOptimizer sets the optimizer used by OptimizeParameters.
func (m *BaseModel) SetOptimizer(opt optimize.Optimizer) {
	m.optimizer = opt
}

// SetMaxIterations sets the maximum number of optimizer iterations.
func (m *BaseModel) SetMaxIterations(n int) {
	m.maxIterations = n
}

// OptimizeParameters maximizes the likelihood. Parameters are set to
// the best point found. If the iteration limit was reached, the best
// likelihood is returned together with ErrConvergenceNotReached.
func (m *BaseModel) OptimizeParameters(epsilon float64) (float64, error) {
	if m.self.NDim() == 0 {
		return m.Likelihood(), nil
	}
	if m.likelihood == nil {
		return 0, ErrNoLikelihood
	}
	if m.optimizer == nil {
		m.optimizer = optimize.NewDS()
	}
	m.optimizer.SetEpsilon(epsilon)
	m.optimizer.SetOptimizable(m.self)
	m.optimizer.Run(m.maxIterations)
	if err := m.self.DecomposeRateMatrix(); err != nil {
		return 0, err
	}
	l := m.optimizer.GetMaxL()
	log.Debugf("%s: optimized lnL=%v (%v)", m.name, l, m.self.GetFloatParameters().ValuesString())
	if !m.optimizer.Converged() {
		log.Warningf("%s: convergence not reached after %d iterations", m.name, m.maxIterations)
		return l, ErrConvergenceNotReached
	}
	return l, nil
}
