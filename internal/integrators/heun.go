package integrators

import "github.com/san-kum/spinsim/internal/llg"

// NoiseSource fills eta with the thermal field for one step of length dt.
type NoiseSource interface {
	Fill(eta []float64, dt float64)
}

type HeunOptions struct {
	Dt    float64
	Gamma float64
	Alpha float64
	Mu    float64
}

// Heun is a fixed-step predictor/corrector for the stochastic LLG equation.
// The same noise realisation is used in both stages of a step.
type Heun struct {
	field FieldFunc
	noise NoiseSource
	opts  HeunOptions

	t float64
	y []float64

	f1, f2, pred, eta []float64

	observer StepObserver
	stats    Stats
}

func NewHeun(field FieldFunc, noise NoiseSource, n int, opts HeunOptions) *Heun {
	if opts.Mu == 0 {
		opts.Mu = 1
	}
	return &Heun{
		field: field,
		noise: noise,
		opts:  opts,
		y:     make([]float64, n),
		f1:    make([]float64, n),
		f2:    make([]float64, n),
		pred:  make([]float64, n),
		eta:   make([]float64, n),
	}
}

func (h *Heun) SetObserver(obs StepObserver) { h.observer = obs }

func (h *Heun) SetInitialValue(y []float64, t float64) {
	copy(h.y, y)
	h.t = t
	h.stats = Stats{}
}

func (h *Heun) Time() float64        { return h.t }
func (h *Heun) State() []float64     { return h.y }
func (h *Heun) Succeeded() bool      { return true }
func (h *Heun) Stats() Stats         { return h.stats }
func (h *Heun) Options() HeunOptions { return h.opts }

// Integrate takes fixed steps up to target; the final step is shortened so
// that Time lands on target exactly.
func (h *Heun) Integrate(target float64) error {
	dt := h.opts.Dt
	if dt <= 0 {
		dt = target - h.t
	}
	for h.t < target {
		step := dt
		last := false
		if remaining := target - h.t; remaining <= dt*(1+1e-9) {
			step = remaining
			last = true
		}

		h.step(step)

		if last {
			h.t = target
		} else {
			h.t += step
		}
		h.stats.Steps++
		h.stats.LastStep = step

		if h.observer != nil {
			h.observer(h.t, h.y)
		}
	}
	return nil
}

func (h *Heun) step(dt float64) {
	o := h.opts
	n := len(h.y)

	h.noise.Fill(h.eta, dt)

	field := h.field(h.y)
	h.stats.Evaluations++
	llg.StochasticRHS(h.f1, h.y, field, h.eta, o.Gamma, o.Alpha, o.Mu)

	for i := 0; i < n; i++ {
		h.pred[i] = h.y[i] + dt*h.f1[i]
	}
	llg.Normalize(h.pred)

	field = h.field(h.pred)
	h.stats.Evaluations++
	llg.StochasticRHS(h.f2, h.pred, field, h.eta, o.Gamma, o.Alpha, o.Mu)

	for i := 0; i < n; i++ {
		h.y[i] += 0.5 * dt * (h.f1[i] + h.f2[i])
	}
	llg.Normalize(h.y)
}
