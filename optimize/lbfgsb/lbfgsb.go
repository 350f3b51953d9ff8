// Package lbfgsb provides a bounded L-BFGS-B optimizer. It requires
// cgo and a Fortran compiler, so it lives in a separate package.
package lbfgsb

import (
	"math"

	"github.com/op/go-logging"

	lbfgsb "github.com/idavydov/go-lbfgsb"

	"bitbucket.org/Davydov/substmodel/optimize"
)

// log is the global logging variable.
var log = logging.MustGetLogger("optimize")

// LBFGSB is a limited memory BFGS optimizer with boundaries.
type LBFGSB struct {
	optimize.BaseOptimizer
	// DH is the finite difference step.
	DH   float64
	grad []float64
	x    []float64
}

// NewLBFGSB creates a new L-BFGS-B optimizer.
func NewLBFGSB() *LBFGSB {
	return &LBFGSB{
		BaseOptimizer: optimize.NewBaseOptimizer("lbfgsb"),
		DH:            1e-6,
	}
}

// Logger is called by the optimizer after every iteration.
func (l *LBFGSB) Logger(info *lbfgsb.OptimizationIterationInformation) {
	l.SetIteration(info.Iteration)
	l.Report(info.X, -info.F)
	if l.Signaled() {
		log.Fatal("Received signal, exiting")
	}
}

// EvaluateFunction returns negative log likelihood.
func (l *LBFGSB) EvaluateFunction(x []float64) float64 {
	return -l.Evaluate(x)
}

// EvaluateGradient computes the gradient by central differences.
func (l *LBFGSB) EvaluateGradient(x []float64) []float64 {
	if l.grad == nil {
		l.grad = make([]float64, len(x))
		l.x = make([]float64, len(x))
	}
	copy(l.x, x)
	parameters := l.Parameters()
	for i, par := range parameters {
		v := x[i]
		up := math.Min(v+l.DH, par.GetMax())
		down := math.Max(v-l.DH, par.GetMin())
		if up == down {
			l.grad[i] = 0
			continue
		}
		l.x[i] = up
		l2 := l.EvaluateFunction(l.x)
		l.x[i] = down
		l1 := l.EvaluateFunction(l.x)
		l.x[i] = v
		l.grad[i] = (l2 - l1) / (up - down)
	}
	parameters.SetValues(x)
	return l.grad
}

// Run starts the optimization. The number of iterations is not
// limited by this method.
func (l *LBFGSB) Run(iterations int) {
	l.Start()
	l.PrintHeader()
	parameters := l.Parameters()
	bounds := make([][2]float64, len(parameters))

	for i, par := range parameters {
		bounds[i][0] = par.GetMin() + 1e-5
		bounds[i][1] = par.GetMax() - 1e-5
	}

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(l.Epsilon())
	opt.SetGTolerance(1e-9)

	opt.SetBounds(bounds)
	opt.SetLogger(l.Logger)

	_, exitStatus := opt.Minimize(l, parameters.Values(nil))

	log.Info("Exit status: ", exitStatus)
	l.SetConverged(exitStatus.Code == lbfgsb.SUCCESS)

	l.Finish()
	log.Info("Finished LBFGSB")
}
