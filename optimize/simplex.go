package optimize

import (
	"math"
)

// DS is a downhill simplex (Nelder-Mead) maximizer.
type DS struct {
	BaseOptimizer
	// Delta is the initial simplex size.
	Delta  float64
	points [][]float64
	l      []float64
	psum   []float64
	newX   []float64
}

// NewDS creates a new downhill simplex optimizer.
func NewDS() *DS {
	return &DS{
		BaseOptimizer: NewBaseOptimizer("simplex"),
		Delta:         1,
	}
}

// createSimplex creates a simplex around x0.
func (ds *DS) createSimplex(x0 []float64) {
	ndim := len(x0)
	ds.points = make([][]float64, ndim+1)
	ds.l = make([]float64, ndim+1)
	for i := range ds.points {
		ds.points[i] = make([]float64, ndim)
		copy(ds.points[i], x0)
		if i == 0 {
			continue
		}
		par := ds.parameters[i-1]
		v := x0[i-1] + ds.Delta
		if !par.ValueInRange(v) {
			v = x0[i-1] - ds.Delta
		}
		if !par.ValueInRange(v) {
			v = (x0[i-1] + par.Clamp(x0[i-1]+ds.Delta)) / 2
		}
		ds.points[i][i-1] = v
	}
	for i, x := range ds.points {
		ds.l[i] = ds.Evaluate(x)
	}
}

// amotry extrapolates by factor fac through the face of the simplex
// across from the low point, tries it, and replaces the low point if
// the new point is better.
func (ds *DS) amotry(ilo int, fac float64) float64 {
	ds.calcPsum()
	ndim := len(ds.psum)
	if ds.newX == nil {
		ds.newX = make([]float64, ndim)
	}
	fac1 := (1 - fac) / float64(ndim)
	fac2 := fac1 - fac
	for j := 0; j < ndim; j++ {
		ds.newX[j] = ds.psum[j]*fac1 - ds.points[ilo][j]*fac2
	}
	l := ds.Evaluate(ds.newX)
	if l > ds.l[ilo] {
		ds.points[ilo], ds.newX = ds.newX, ds.points[ilo]
		ds.l[ilo] = l
	}
	return l
}

func (ds *DS) calcPsum() {
	if ds.psum == nil {
		ds.psum = make([]float64, len(ds.points[0]))
	}
	for j := range ds.psum {
		ds.psum[j] = 0
		for _, x := range ds.points {
			ds.psum[j] += x[j]
		}
	}
}

// Run starts the optimization.
func (ds *DS) Run(iterations int) {
	ds.Start()
	ds.PrintHeader()
	ds.createSimplex(ds.parameters.Values(nil))

	// Lowest (worst), next-lowest and highest points
	var ilo, ihi int
	var llo, lnlo, lhi float64
	repeat := false
	oldL := math.Inf(-1)
Iter:
	for ds.i = 1; ds.i <= iterations; ds.i++ {
		if ds.l[0] < ds.l[1] {
			ilo, ihi = 0, 1
		} else {
			ilo, ihi = 1, 0
		}
		llo = ds.l[ilo]
		lnlo = ds.l[ihi]
		lhi = ds.l[ihi]
		for i := 2; i < len(ds.points); i++ {
			if ds.l[i] >= lhi {
				lhi = ds.l[i]
				ihi = i
			}
			if ds.l[i] < llo {
				lnlo = llo
				llo = ds.l[i]
				ilo = i
			} else if ds.l[i] < lnlo {
				lnlo = ds.l[i]
			}
		}
		ds.Report(ds.points[ihi], lhi)

		if math.Abs(lhi-llo) < ds.epsilon {
			if repeat && math.Abs(oldL-lhi) < ds.epsilon {
				ds.converged = true
				break Iter
			}
			repeat = true
			oldL = lhi
			log.Debugf("converged. retrying")
			ds.createSimplex(ds.points[ihi])
			continue
		}

		l := ds.amotry(ilo, -1)
		switch {
		case l >= lhi:
			ds.amotry(ilo, 2)
		case l <= lnlo:
			lsave := llo
			l := ds.amotry(ilo, 0.5)
			if l <= lsave {
				// contract around the best point
				for i, x := range ds.points {
					if i == ihi {
						continue
					}
					for j := range x {
						x[j] = 0.5 * (x[j] + ds.points[ihi][j])
					}
					ds.l[i] = ds.Evaluate(x)
				}
			}
		}
		if ds.Signaled() {
			break Iter
		}
	}
	if !ds.converged && ds.i > iterations {
		ds.i = iterations
		log.Warningf("Iterations exceeded (%d)", iterations)
	}

	ds.Finish()
	log.Info("Finished downhill simplex")
}
