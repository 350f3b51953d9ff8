package optimize

import (
	"errors"
	"math"

	gopt "gonum.org/v1/gonum/optimize"
)

// errSignal is returned by the recorder to stop gonum optimizer.
var errSignal = errors.New("exiting by signal")

// BFGS is a quasi-Newton optimizer using numerical gradient.
type BFGS struct {
	BaseOptimizer
	// DH is the finite difference step.
	DH float64
	x  []float64
}

// NewBFGS creates a new BFGS optimizer.
func NewBFGS() *BFGS {
	return &BFGS{
		BaseOptimizer: NewBaseOptimizer("bfgs"),
		DH:            1e-6,
	}
}

// Init is called by gonum optimize before the optimization.
func (b *BFGS) Init() error {
	return nil
}

// Record is called by gonum optimize after every operation.
func (b *BFGS) Record(l *gopt.Location, op gopt.Operation, s *gopt.Stats) error {
	if op == gopt.MajorIteration {
		b.i = s.MajorIterations
		b.Report(l.X, -l.F)
	}
	if b.Signaled() {
		return errSignal
	}
	return nil
}

// Func returns negative log likelihood.
func (b *BFGS) Func(x []float64) float64 {
	return -b.Evaluate(x)
}

// Grad computes the gradient of negative log likelihood by central
// differences. One-sided differences are used near the boundaries.
func (b *BFGS) Grad(grad, x []float64) {
	if b.x == nil {
		b.x = make([]float64, len(x))
	}
	copy(b.x, x)
	for i, par := range b.parameters {
		v := x[i]
		up := v + b.DH
		down := v - b.DH
		if !par.ValueInRange(up) {
			up = v
		}
		if !par.ValueInRange(down) {
			down = v
		}
		if up == down {
			grad[i] = 0
			continue
		}
		b.x[i] = up
		l2 := b.Func(b.x)
		b.x[i] = down
		l1 := b.Func(b.x)
		b.x[i] = v
		grad[i] = (l2 - l1) / (up - down)
		if math.IsInf(grad[i], 0) || math.IsNaN(grad[i]) {
			grad[i] = 0
		}
	}
	// restore the point
	b.parameters.SetValues(x)
}

// Run starts the optimization.
func (b *BFGS) Run(iterations int) {
	b.Start()
	b.PrintHeader()
	settings := &gopt.Settings{
		MajorIterations:   iterations,
		GradientThreshold: 1e-6,
		Converger: &gopt.FunctionConverge{
			Absolute:   b.epsilon,
			Iterations: 3,
		},
		Recorder: b,
	}
	problem := gopt.Problem{
		Func: b.Func,
		Grad: b.Grad,
	}

	res, err := gopt.Minimize(problem, b.parameters.Values(nil), settings, &gopt.BFGS{})
	switch {
	case errors.Is(err, gopt.ErrNoProgress):
		// line search cannot improve the point any more
		log.Debug("BFGS:", err)
		b.converged = true
	case err != nil:
		log.Warning("Optimization error:", err)
	}
	if res != nil {
		log.Debugf("BFGS status: %v", res.Status)
		switch res.Status {
		case gopt.FunctionConvergence, gopt.GradientThreshold:
			b.converged = true
		case gopt.IterationLimit:
			log.Warningf("Iterations exceeded (%d)", iterations)
		}
	}

	b.Finish()
	log.Info("Finished BFGS")
}
