// Package optimize implements maximum likelihood optimizers working
// on a list of named float parameters.
package optimize

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/substmodel/checkpoint"
)

// log is the global logging variable.
var log = logging.MustGetLogger("optimize")

// DefaultEpsilon is the default convergence threshold for the
// likelihood improvement.
const DefaultEpsilon = 1e-6

// Optimizable is something which has parameters and likelihood.
type Optimizable interface {
	GetFloatParameters() FloatParameters
	Likelihood() float64
}

// Optimizer maximizes likelihood of an Optimizable.
type Optimizer interface {
	SetOptimizable(Optimizable)
	WatchSignals(...os.Signal)
	SetReportPeriod(period int)
	SetOutput(io.Writer)
	SetEpsilon(float64)
	SetCheckpointIO(*checkpoint.CheckpointIO)
	Run(iterations int)
	GetL() float64
	GetMaxL() float64
	GetMaxLParameters() []float64
	Converged() bool
	PrintResults()
	Summary() Summary
}

// Summary stores information on an optimizer run.
type Summary struct {
	// Method is the optimization method name.
	Method string `json:"method"`
	// MaxLnL is the maximum log likelihood.
	MaxLnL float64 `json:"maxLnL"`
	// MaxLParameters is the maximum likelihood parameter values.
	MaxLParameters map[string]float64 `json:"maxLParameters"`
	// Iterations is the number of iterations performed.
	Iterations int `json:"iterations"`
	// LikelihoodCalls is the number of likelihood computations.
	LikelihoodCalls int `json:"likelihoodCalls"`
	// OutOfBounds is the number of points rejected without computing
	// the likelihood because they were outside of the boundaries.
	OutOfBounds int `json:"outOfBounds"`
	// Converged is true if the convergence criterion was met.
	Converged bool `json:"converged"`
	// Time is the optimization time in seconds.
	Time float64 `json:"time"`
}

// BaseOptimizer implements the functionality shared by all the
// optimizers.
type BaseOptimizer struct {
	Optimizable
	name       string
	parameters FloatParameters
	// i is the iteration number
	i int
	// calls is the number of likelihood calls
	calls       int
	outOfBounds int
	l           float64
	maxL        float64
	maxLPar     []float64
	repPeriod   int
	epsilon     float64
	converged   bool
	sig         chan os.Signal
	out         io.Writer
	cio         *checkpoint.CheckpointIO
	startTime   time.Time
	duration    time.Duration
}

// NewBaseOptimizer creates a BaseOptimizer for a method name.
func NewBaseOptimizer(name string) BaseOptimizer {
	return BaseOptimizer{
		name:      name,
		repPeriod: 10,
		epsilon:   DefaultEpsilon,
	}
}

// SetOptimizable sets the object to optimize.
func (o *BaseOptimizer) SetOptimizable(opt Optimizable) {
	o.Optimizable = opt
	o.parameters = opt.GetFloatParameters()
}

// WatchSignals stops the optimization if any of the signals is
// received. The best point found is kept.
func (o *BaseOptimizer) WatchSignals(sigs ...os.Signal) {
	o.sig = make(chan os.Signal, 1)
	signal.Notify(o.sig, sigs...)
}

// SetReportPeriod sets how often (in iterations) the trajectory is
// printed.
func (o *BaseOptimizer) SetReportPeriod(period int) {
	if period < 1 {
		period = 1
	}
	o.repPeriod = period
}

// SetOutput sets the trajectory output. If w is nil nothing is
// printed.
func (o *BaseOptimizer) SetOutput(w io.Writer) {
	o.out = w
}

// SetEpsilon sets the convergence threshold.
func (o *BaseOptimizer) SetEpsilon(epsilon float64) {
	o.epsilon = epsilon
}

// SetCheckpointIO enables checkpoint saving.
func (o *BaseOptimizer) SetCheckpointIO(cio *checkpoint.CheckpointIO) {
	o.cio = cio
}

// Start initializes counters before a run.
func (o *BaseOptimizer) Start() {
	o.startTime = time.Now()
	o.i = 0
	o.calls = 0
	o.outOfBounds = 0
	o.converged = false
	o.maxL = math.Inf(-1)
	o.maxLPar = nil
}

// Finish sets parameters to the best point found.
func (o *BaseOptimizer) Finish() {
	o.duration = time.Since(o.startTime)
	if o.maxLPar != nil {
		o.parameters.SetValues(o.maxLPar)
		o.l = o.maxL
	}
	o.saveCheckpoint(true)
}

// Evaluate sets parameters to x and computes the likelihood. Values
// outside of the boundaries have likelihood of -Inf.
func (o *BaseOptimizer) Evaluate(x []float64) float64 {
	if !o.parameters.ValuesInRange(x) {
		o.outOfBounds++
		return math.Inf(-1)
	}
	o.parameters.SetValues(x)
	l := o.Likelihood()
	o.calls++
	if math.IsNaN(l) {
		log.Warningf("likelihood is NaN for %v", x)
		return math.Inf(-1)
	}
	if l > o.maxL {
		o.maxL = l
		o.maxLPar = o.parameters.Values(o.maxLPar)
	}
	return l
}

// Signaled returns true if a watched signal was received.
func (o *BaseOptimizer) Signaled() bool {
	select {
	case s := <-o.sig:
		log.Warningf("Received signal %v, exiting.", s)
		return true
	default:
	}
	return false
}

// PrintHeader prints the trajectory header.
func (o *BaseOptimizer) PrintHeader() {
	if o.out != nil {
		fmt.Fprintf(o.out, "iteration\tlikelihood\t%s\n", o.parameters.NamesString())
	}
}

// PrintLine prints a trajectory line.
func (o *BaseOptimizer) PrintLine(x []float64, l float64) {
	if o.out == nil {
		return
	}
	s := make([]string, len(x))
	for i, v := range x {
		s[i] = strconv.FormatFloat(v, 'f', 6, 64)
	}
	fmt.Fprintf(o.out, "%d\t%f\t%s\n", o.i, l, strings.Join(s, "\t"))
}

// Report prints a trajectory line and saves a checkpoint if needed.
func (o *BaseOptimizer) Report(x []float64, l float64) {
	o.l = l
	if o.i%o.repPeriod == 0 {
		log.Debugf("%d: L=%f", o.i, l)
		o.PrintLine(x, l)
	}
	if o.cio != nil && o.cio.Old() {
		o.saveCheckpoint(false)
	}
}

// saveCheckpoint saves the best point found.
func (o *BaseOptimizer) saveCheckpoint(final bool) {
	if o.cio == nil || o.maxLPar == nil {
		return
	}
	par := make(map[string]float64, len(o.parameters))
	for i, name := range o.parameters.Names(nil) {
		par[name] = o.maxLPar[i]
	}
	o.cio.Save(&checkpoint.CheckpointData{
		Parameters: par,
		Likelihood: o.maxL,
		Iter:       o.i,
		Final:      final,
	})
}

// PrintResults logs the maximum likelihood and the parameter values.
func (o *BaseOptimizer) PrintResults() {
	log.Noticef("Maximum likelihood: %v", o.maxL)
	log.Infof("Likelihood function calls: %v", o.calls)
	if o.outOfBounds > 0 {
		log.Infof("Points out of bounds: %v", o.outOfBounds)
	}
	log.Infof("Parameter  names: %v", o.parameters.NamesString())
	log.Infof("Parameter values: %v", o.parameters.ValuesString())
}

// Parameters returns the parameters being optimized.
func (o *BaseOptimizer) Parameters() FloatParameters {
	return o.parameters
}

// Epsilon returns the convergence threshold.
func (o *BaseOptimizer) Epsilon() float64 {
	return o.epsilon
}

// SetIteration sets the current iteration number.
func (o *BaseOptimizer) SetIteration(i int) {
	o.i = i
}

// SetConverged marks the run as converged.
func (o *BaseOptimizer) SetConverged(converged bool) {
	o.converged = converged
}

// GetL returns the current likelihood.
func (o *BaseOptimizer) GetL() float64 {
	return o.l
}

// GetMaxL returns the maximum likelihood found.
func (o *BaseOptimizer) GetMaxL() float64 {
	return o.maxL
}

// GetMaxLParameters returns the parameter values of the maximum
// likelihood point.
func (o *BaseOptimizer) GetMaxLParameters() []float64 {
	return o.maxLPar
}

// Converged returns true if the last run met the convergence
// criterion.
func (o *BaseOptimizer) Converged() bool {
	return o.converged
}

// Summary returns the run summary.
func (o *BaseOptimizer) Summary() Summary {
	s := Summary{
		Method:          o.name,
		MaxLnL:          o.maxL,
		Iterations:      o.i,
		LikelihoodCalls: o.calls,
		OutOfBounds:     o.outOfBounds,
		Converged:       o.converged,
		Time:            o.duration.Seconds(),
	}
	if o.maxLPar != nil {
		s.MaxLParameters = make(map[string]float64, len(o.parameters))
		for i, name := range o.parameters.Names(nil) {
			s.MaxLParameters[name] = o.maxLPar[i]
		}
	}
	return s
}
