package micromag

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/spinsim/internal/llg"
)

// MinimizerOptions configures steepest-descent relaxation.
type MinimizerOptions struct {
	TauMin   float64 `yaml:"tau_min"`
	TauMax   float64 `yaml:"tau_max"`
	StopDm   float64 `yaml:"stop_dm"`
	MaxSteps int     `yaml:"max_steps"`
}

func DefaultMinimizerOptions() MinimizerOptions {
	return MinimizerOptions{
		TauMin:   1e-10,
		TauMax:   1e-2,
		StopDm:   1e-8,
		MaxSteps: 10000,
	}
}

func (o MinimizerOptions) Validate() error {
	if o.TauMin <= 0 || o.TauMax < o.TauMin || o.StopDm <= 0 || o.MaxSteps <= 0 {
		return fmt.Errorf("%w: minimizer options %+v", ErrConfiguration, o)
	}
	return nil
}

// MinimizeResult summarises a relaxation.
type MinimizeResult struct {
	Steps  int
	MaxDm  float64
	Energy float64
}

// Minimizer relaxes a Simulation towards a local energy minimum by steepest
// descent on the unit sphere. Each site takes a Barzilai-Borwein step along
// m×(m×H) applied through a Cayley transform, which preserves |m|.
type Minimizer struct {
	sim  *Simulation
	opts MinimizerOptions
	pins []bool

	last      SpinState
	mxH       []float64
	mxmxH     []float64
	mxmxHLast []float64
	tau       []float64
}

func (s *Simulation) NewMinimizer(opts MinimizerOptions) (*Minimizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	size := 3 * s.n
	return &Minimizer{
		sim:       s,
		opts:      opts,
		pins:      make([]bool, s.n),
		last:      NewSpinState(s.n),
		mxH:       make([]float64, size),
		mxmxH:     make([]float64, size),
		mxmxHLast: make([]float64, size),
		tau:       make([]float64, s.n),
	}, nil
}

// Pin marks sites the minimizer must leave untouched.
func (mn *Minimizer) Pin(pins []bool) error {
	if len(pins) != mn.sim.n {
		return fmt.Errorf("%w: pin mask length %d, want %d", ErrConfiguration, len(pins), mn.sim.n)
	}
	copy(mn.pins, pins)
	return nil
}

// Relax iterates until the largest per-site change drops below StopDm.
// The simulation time is not advanced; the integrator restarts from the
// relaxed state.
func (mn *Minimizer) Relax() (MinimizeResult, error) {
	s := mn.sim
	if err := s.spin.Normalize(); err != nil {
		return MinimizeResult{}, err
	}

	for i := range mn.tau {
		mn.tau[i] = mn.opts.TauMax
	}

	var res MinimizeResult
	for step := 0; step < mn.opts.MaxSteps; step++ {
		field := s.composeField(s.t)
		mn.computeStep(field, step)
		res.MaxDm = mn.update()
		res.Steps = step + 1

		if res.MaxDm < mn.opts.StopDm {
			s.integ.SetInitialValue(s.spin, s.t)
			res.Energy = s.ComputeEnergy()
			s.logger.Debug("minimizer converged", zap.Int("steps", res.Steps), zap.Float64("max_dm", res.MaxDm))
			return res, nil
		}
	}

	s.integ.SetInitialValue(s.spin, s.t)
	res.Energy = s.ComputeEnergy()
	s.logger.Warn("minimizer hit step limit", zap.Int("steps", res.Steps), zap.Float64("max_dm", res.MaxDm))
	return res, fmt.Errorf("%w after %d steps (max dm %g)", ErrNotConverged, res.Steps, res.MaxDm)
}

// computeStep fills the torques and the per-site step. The first iteration
// keeps the initial step since there is no history to difference.
func (mn *Minimizer) computeStep(field []float64, step int) {
	n := mn.sim.n
	spin := mn.sim.spin
	mu := mn.sim.mu

	for i := 0; i < n; i++ {
		m := spin.At(i)
		h := [3]float64{field[i] / mu, field[n+i] / mu, field[2*n+i] / mu}

		mxh := llg.Cross(m, h)
		mxmxh := llg.Cross(m, mxh)

		var ds, dy [3]float64
		for a := 0; a < 3; a++ {
			k := a*n + i
			mn.mxmxHLast[k] = mn.mxmxH[k]
			mn.mxH[k] = mxh[a]
			mn.mxmxH[k] = mxmxh[a]
			ds[a] = spin[k] - mn.last[k]
			dy[a] = mn.mxmxH[k] - mn.mxmxHLast[k]
		}

		if step == 0 {
			continue
		}

		var num, den float64
		if step%2 == 0 {
			num, den = llg.Dot(ds, ds), llg.Dot(ds, dy)
		} else {
			num, den = llg.Dot(ds, dy), llg.Dot(dy, dy)
		}

		tau := mn.opts.TauMax
		if den != 0 && num != 0 {
			tau = math.Abs(num / den)
		}
		mn.tau[i] = math.Max(math.Min(tau, mn.opts.TauMax), mn.opts.TauMin)
	}
}

// update applies the Cayley step and returns the largest |Δm|.
func (mn *Minimizer) update() float64 {
	n := mn.sim.n
	spin := mn.sim.spin
	copy(mn.last, spin)

	maxDm := 0.0
	for i := 0; i < n; i++ {
		if mn.pins[i] {
			continue
		}
		t := mn.tau[i]
		var sq float64
		for a := 0; a < 3; a++ {
			sq += mn.mxH[a*n+i] * mn.mxH[a*n+i]
		}
		plus := 4 + t*t*sq
		minus := 4 - t*t*sq

		var next [3]float64
		norm := 0.0
		for a := 0; a < 3; a++ {
			k := a*n + i
			next[a] = (minus*spin[k] - 4*t*mn.mxmxH[k]) / plus
			norm += next[a] * next[a]
		}
		norm = math.Sqrt(norm)

		dm := 0.0
		for a := 0; a < 3; a++ {
			k := a*n + i
			v := next[a] / norm
			dm += (v - spin[k]) * (v - spin[k])
			spin[k] = v
		}
		maxDm = math.Max(maxDm, math.Sqrt(dm))
	}
	return maxDm
}
