package integrators

import (
	"fmt"
	"math"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

type AdaptiveOptions struct {
	RTol     float64
	ATol     float64
	MaxSteps int

	// TimeScale maps real time t to the solver's internal time τ = TimeScale·t.
	// The RHS callback receives τ and must return dy/dτ.
	TimeScale float64
}

func DefaultAdaptiveOptions() AdaptiveOptions {
	return AdaptiveOptions{
		RTol:      1e-8,
		ATol:      1e-10,
		MaxSteps:  100000,
		TimeScale: 1,
	}
}

// Adaptive integrates to requested targets with embedded Dormand-Prince error
// control. Failure leaves State and Time at the last accepted step.
type Adaptive struct {
	rhs  RHSFunc
	opts AdaptiveOptions

	safety   float64
	minScale float64
	maxScale float64

	tau   float64
	t     float64
	y     []float64
	h     float64
	ok    bool
	fresh bool

	k1, k2, k3, k4, k5, k6, k7 []float64
	scratch, yNew              []float64

	observer StepObserver
	stats    Stats
}

func NewAdaptive(rhs RHSFunc, n int, opts AdaptiveOptions) *Adaptive {
	if opts.TimeScale <= 0 {
		opts.TimeScale = 1
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultAdaptiveOptions().MaxSteps
	}
	return &Adaptive{
		rhs:      rhs,
		opts:     opts,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
		y:        make([]float64, n),
		k1:       make([]float64, n),
		k2:       make([]float64, n),
		k3:       make([]float64, n),
		k4:       make([]float64, n),
		k5:       make([]float64, n),
		k6:       make([]float64, n),
		k7:       make([]float64, n),
		scratch:  make([]float64, n),
		yNew:     make([]float64, n),
		ok:       true,
		fresh:    true,
	}
}

func (r *Adaptive) SetObserver(obs StepObserver) { r.observer = obs }

// SetInitialValue discards step history and restarts from (y, t).
func (r *Adaptive) SetInitialValue(y []float64, t float64) {
	copy(r.y, y)
	r.t = t
	r.tau = t * r.opts.TimeScale
	r.h = 0
	r.ok = true
	r.fresh = true
	r.stats = Stats{}
}

func (r *Adaptive) Time() float64            { return r.t }
func (r *Adaptive) State() []float64         { return r.y }
func (r *Adaptive) Succeeded() bool          { return r.ok }
func (r *Adaptive) Stats() Stats             { return r.stats }
func (r *Adaptive) Options() AdaptiveOptions { return r.opts }

func (r *Adaptive) eval(tau float64, y, dydt []float64) {
	r.rhs(tau, y, dydt)
	r.stats.Evaluations++
}

// Integrate advances to real time target, taking as many internal steps as
// the error control requires within the MaxSteps budget.
func (r *Adaptive) Integrate(target float64) error {
	if !r.ok {
		return ErrNotSucceeded
	}
	if target <= r.t {
		return nil
	}

	tauEnd := target * r.opts.TimeScale

	if r.fresh {
		r.eval(r.tau, r.y, r.k1)
		r.fresh = false
	}
	if r.h == 0 {
		r.h = r.initialStep(tauEnd - r.tau)
	}

	for attempts := 0; r.t < target; attempts++ {
		if attempts >= r.opts.MaxSteps {
			r.ok = false
			return fmt.Errorf("%w: %d attempts, t=%g, target=%g", ErrStepBudget, attempts, r.t, target)
		}

		resolution := 1e-14 * math.Max(1, math.Abs(r.tau))
		remaining := tauEnd - r.tau
		if remaining <= resolution {
			r.tau = tauEnd
			r.t = target
			break
		}

		h := r.h
		last := false
		if h >= remaining {
			h = remaining
			last = true
		}

		if h <= resolution {
			r.ok = false
			return fmt.Errorf("%w: h=%g at t=%g", ErrStepTooSmall, h, r.t)
		}

		errRatio := r.attempt(h)
		if !isFinite(r.yNew) || math.IsNaN(errRatio) {
			r.ok = false
			return fmt.Errorf("%w at t=%g", ErrNonFinite, r.t)
		}

		r.h = h * r.stepScale(errRatio)

		if errRatio > 1 {
			r.stats.Rejected++
			continue
		}

		copy(r.y, r.yNew)
		copy(r.k1, r.k7)
		if last {
			r.tau = tauEnd
			r.t = target
		} else {
			r.tau += h
			r.t = r.tau / r.opts.TimeScale
		}
		r.stats.Steps++
		r.stats.LastStep = h / r.opts.TimeScale

		if r.observer != nil {
			r.observer(r.t, r.y)
		}
	}

	return nil
}

// attempt computes a trial step of size h from (tau, y) into yNew and k7 and
// returns the error norm relative to the tolerances.
func (r *Adaptive) attempt(h float64) float64 {
	x, k1 := r.y, r.k1
	n := len(x)
	s := r.scratch
	tau := r.tau

	for i := 0; i < n; i++ {
		s[i] = x[i] + h*b21*k1[i]
	}
	r.eval(tau+a2*h, s, r.k2)

	for i := 0; i < n; i++ {
		s[i] = x[i] + h*(b31*k1[i]+b32*r.k2[i])
	}
	r.eval(tau+a3*h, s, r.k3)

	for i := 0; i < n; i++ {
		s[i] = x[i] + h*(b41*k1[i]+b42*r.k2[i]+b43*r.k3[i])
	}
	r.eval(tau+a4*h, s, r.k4)

	for i := 0; i < n; i++ {
		s[i] = x[i] + h*(b51*k1[i]+b52*r.k2[i]+b53*r.k3[i]+b54*r.k4[i])
	}
	r.eval(tau+a5*h, s, r.k5)

	for i := 0; i < n; i++ {
		s[i] = x[i] + h*(b61*k1[i]+b62*r.k2[i]+b63*r.k3[i]+b64*r.k4[i]+b65*r.k5[i])
	}
	r.eval(tau+h, s, r.k6)

	for i := 0; i < n; i++ {
		r.yNew[i] = x[i] + h*(c1*k1[i]+c3*r.k3[i]+c4*r.k4[i]+c5*r.k5[i]+c6*r.k6[i])
	}
	r.eval(tau+h, r.yNew, r.k7)

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := h * (dc1*k1[i] + dc3*r.k3[i] + dc4*r.k4[i] + dc5*r.k5[i] + dc6*r.k6[i] + dc7*r.k7[i])
		scale := r.opts.ATol + r.opts.RTol*math.Max(math.Abs(x[i]), math.Abs(r.yNew[i]))
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	return errMax
}

func (r *Adaptive) stepScale(errRatio float64) float64 {
	if errRatio > 1 {
		return math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
	}
	if errRatio > 0 {
		return math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	}
	return r.maxScale
}

// initialStep follows the usual d0/d1 heuristic on the tolerance-weighted
// norms of y and its derivative.
func (r *Adaptive) initialStep(span float64) float64 {
	d0, d1 := 0.0, 0.0
	for i := range r.y {
		sc := r.opts.ATol + r.opts.RTol*math.Abs(r.y[i])
		d0 += (r.y[i] / sc) * (r.y[i] / sc)
		d1 += (r.k1[i] / sc) * (r.k1[i] / sc)
	}
	n := float64(len(r.y))
	if n == 0 {
		return span
	}
	d0 = math.Sqrt(d0 / n)
	d1 = math.Sqrt(d1 / n)

	h := 1e-6 * span
	if d0 > 1e-5 && d1 > 1e-5 {
		h = 0.01 * d0 / d1
	}
	return math.Min(h, span)
}
