package micromag

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/san-kum/spinsim/internal/integrators"
	"github.com/san-kum/spinsim/internal/llg"
	"github.com/san-kum/spinsim/internal/mesh"
	"github.com/san-kum/spinsim/internal/thermal"
)

type Simulation struct {
	mesh  *mesh.Mesh
	n     int
	spin  SpinState
	acc   accumulator
	temps []float64

	mat  Material
	mu   float64
	opts IntegratorOptions

	t     float64
	integ integrators.Integrator
	mode  Mode

	pin     PinFunc
	metrics []Metric
	evals   int

	seed   int64
	seeds  *rand.Rand
	noise  NoiseFactory
	logger *zap.Logger
}

type Option func(*Simulation)

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMaterial(m Material) Option {
	return func(s *Simulation) { s.mat = m }
}

func WithIntegratorOptions(o IntegratorOptions) Option {
	return func(s *Simulation) { s.opts = o }
}

// WithSeed seeds the thermal noise of the stochastic integrator. Each
// re-derivation draws a fresh noise seed from this one, so successive
// temperature segments are independent yet reproducible.
func WithSeed(seed int64) Option {
	return func(s *Simulation) { s.seed = seed }
}

func WithNoiseFactory(f NoiseFactory) Option {
	return func(s *Simulation) {
		if f != nil {
			s.noise = f
		}
	}
}

func gaussianNoise(temps []float64, mat Material, seed int64) integrators.NoiseSource {
	return thermal.NewGaussian(seed, temps, mat.Alpha, mat.Gamma, mat.MuS)
}

// New creates a simulation on m. Every spin starts at the non-unit default
// (1, 1, 1) until SetM is called. Invalid material or integrator options
// passed as options fall back to the defaults.
func New(m *mesh.Mesh, opts ...Option) *Simulation {
	n := m.Len()
	s := &Simulation{
		mesh:   m,
		n:      n,
		spin:   NewSpinState(n),
		temps:  make([]float64, n),
		mat:    UnitMaterial(),
		mu:     1,
		opts:   DefaultIntegratorOptions(),
		noise:  gaussianNoise,
		logger: zap.NewNop(),
	}
	s.acc.field = make([]float64, 3*n)

	for i := range s.spin {
		s.spin[i] = 1
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.mat.Validate(); err != nil {
		s.logger.Warn("falling back to unit material", zap.Error(err))
		s.mat = UnitMaterial()
	}
	if err := s.opts.Validate(); err != nil {
		s.logger.Warn("falling back to default integrator options", zap.Error(err))
		s.opts = DefaultIntegratorOptions()
	}

	s.deriveIntegrator()
	return s
}

// SetM assigns the magnetisation. The state is built and normalized in a
// scratch buffer first, so a failure leaves the simulation untouched. The
// integrator restarts from (T(), m), discarding its step history.
func (s *Simulation) SetM(src Source, normalize bool) error {
	buf := NewSpinState(s.n)
	if err := src.fill(s.mesh, buf); err != nil {
		return err
	}
	if err := checkFinite(buf); err != nil {
		return err
	}
	if normalize {
		if err := buf.Normalize(); err != nil {
			return err
		}
	}

	copy(s.spin, buf)
	s.integ.SetInitialValue(s.spin, s.t)
	return nil
}

// SetTemperature fills the per-site temperature and re-derives the
// integrator. Negative temperatures are rejected.
func (s *Simulation) SetTemperature(src Scalar) error {
	buf := make([]float64, s.n)
	src.fillScalar(s.mesh, buf)
	if err := checkFinite(buf); err != nil {
		return err
	}
	for i, v := range buf {
		if v < 0 {
			return fmt.Errorf("%w: negative temperature %g at site %d", ErrConfiguration, v, i)
		}
	}

	copy(s.temps, buf)
	s.deriveIntegrator()
	return nil
}

func (s *Simulation) SetMaterial(m Material) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mat = m
	s.deriveIntegrator()
	return nil
}

func (s *Simulation) SetOptions(o IntegratorOptions) error {
	if err := o.Validate(); err != nil {
		return err
	}
	s.opts = o
	s.deriveIntegrator()
	return nil
}

func (s *Simulation) SetPinFunc(f PinFunc) { s.pin = f }

func (s *Simulation) AddMetric(m Metric) { s.metrics = append(s.metrics, m) }

// Add binds it to the mesh and the live spin buffer and appends it.
func (s *Simulation) Add(it Interaction) error {
	if it == nil {
		return fmt.Errorf("%w: nil interaction", ErrConfiguration)
	}
	if s.acc.contains(it) {
		return fmt.Errorf("%w: interaction %q already added", ErrConfiguration, it.Name())
	}

	sc := SetupContext{UnitLength: s.mesh.UnitLength, MuS: s.mat.MuS}
	if err := it.Setup(s.mesh, s.spin, sc); err != nil {
		return fmt.Errorf("%w: setup %q: %v", ErrConfiguration, it.Name(), err)
	}

	s.acc.add(it)
	s.logger.Debug("interaction added", zap.String("name", it.Name()), zap.Int("count", len(s.acc.interactions)))
	return nil
}

// RunUntil advances to t. Targets at or before T() are ignored. On failure
// the spin buffer and T() hold the last accepted step and an
// *IntegrationError is returned.
func (s *Simulation) RunUntil(t float64) error {
	if t <= s.t {
		return nil
	}

	for s.integ.Time() < t {
		err := s.integ.Integrate(t)
		copy(s.spin, s.integ.State())
		s.t = s.integ.Time()

		if err != nil {
			s.logger.Warn("integration failed",
				zap.Stringer("mode", s.mode),
				zap.Float64("t", s.t),
				zap.Float64("target", t),
				zap.Error(err))
			return &IntegrationError{Time: s.t, Target: t, Wrapped: err}
		}
	}

	return nil
}

// Normalize rescales every site to unit length and restarts the integrator
// from the normalized state.
func (s *Simulation) Normalize() error {
	if err := s.spin.Normalize(); err != nil {
		return err
	}
	s.integ.SetInitialValue(s.spin, s.t)
	return nil
}

func (s *Simulation) ComputeAverage() mesh.Vec3 {
	return s.spin.Average()
}

// ComputeEnergy sums the energy of every interaction that reports one.
func (s *Simulation) ComputeEnergy() float64 {
	total := 0.0
	for _, it := range s.acc.interactions {
		if ec, ok := it.(EnergyComputer); ok {
			total += ec.ComputeEnergy()
		}
	}
	return total
}

// ComputeField composes the field for the current spin buffer and returns a
// copy of it. It counts as an evaluation. When a pin hook is set its edits to
// the spin buffer are kept and the integrator restarts from them.
func (s *Simulation) ComputeField() []float64 {
	field := s.composeField(s.t)
	out := make([]float64, len(field))
	copy(out, field)
	if s.pin != nil {
		s.integ.SetInitialValue(s.spin, s.t)
	}
	return out
}

func (s *Simulation) T() float64         { return s.t }
func (s *Simulation) Mesh() *mesh.Mesh   { return s.mesh }
func (s *Simulation) Mode() Mode         { return s.mode }
func (s *Simulation) Material() Material { return s.mat }
func (s *Simulation) Evaluations() int   { return s.evals }

func (s *Simulation) Temperature() []float64 {
	out := make([]float64, s.n)
	copy(out, s.temps)
	return out
}

func (s *Simulation) Options() IntegratorOptions { return s.opts }

// Spin returns a copy of the spin buffer.
func (s *Simulation) Spin() SpinState {
	out := NewSpinState(s.n)
	copy(out, s.spin)
	return out
}

// Field returns a copy of the most recently composed field.
func (s *Simulation) Field() []float64 {
	out := make([]float64, len(s.acc.field))
	copy(out, s.acc.field)
	return out
}

func (s *Simulation) SpinAt(i, j, k int) mesh.Vec3 {
	return s.spin.At(s.mesh.Index(i, j, k))
}

func (s *Simulation) Interactions() []Interaction {
	out := make([]Interaction, len(s.acc.interactions))
	copy(out, s.acc.interactions)
	return out
}

func (s *Simulation) MetricValues() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s *Simulation) composeField(t float64) []float64 {
	s.evals++
	var pin func()
	if s.pin != nil {
		pin = func() { s.pin(t, s.mesh, s.spin) }
	}
	return s.acc.compose(pin)
}

// rhs is the deterministic callback in internal time tau.
func (s *Simulation) rhs(tau float64, y, dydt []float64) {
	copy(s.spin, y)
	field := s.composeField(tau / s.opts.TimeScale)
	llg.RHS(dydt, s.spin, field, s.mat.Gamma, s.mat.Alpha, s.mu, s.opts.TimeScale)
}

// updateField is the stochastic callback; torque and noise are applied by
// the integrator.
func (s *Simulation) updateField(y []float64) []float64 {
	copy(s.spin, y)
	return s.composeField(s.integ.Time())
}

// observe syncs the spin buffer to the accepted state so metrics that query
// the simulation see the same configuration they are handed.
func (s *Simulation) observe(t float64, y []float64) {
	if len(s.metrics) == 0 {
		return
	}
	copy(s.spin, y)
	for _, m := range s.metrics {
		m.Observe(y, t)
	}
}

func (s *Simulation) nextSeed() int64 {
	if s.seeds == nil {
		s.seeds = rand.New(rand.NewSource(s.seed))
	}
	return s.seeds.Int63()
}

func (s *Simulation) stochastic() bool {
	for _, v := range s.temps {
		if v > 0 {
			return true
		}
	}
	return false
}

func (s *Simulation) deriveIntegrator() {
	size := 3 * s.n

	if s.stochastic() {
		h := integrators.NewHeun(s.updateField, s.noise(s.temps, s.mat, s.nextSeed()), size, integrators.HeunOptions{
			Dt:    s.opts.Dt,
			Gamma: s.mat.Gamma,
			Alpha: s.mat.Alpha,
			Mu:    s.mu,
		})
		h.SetObserver(s.observe)
		s.integ = h
		s.mode = ModeStochastic
	} else {
		a := integrators.NewAdaptive(s.rhs, size, integrators.AdaptiveOptions{
			RTol:      s.opts.RTol,
			ATol:      s.opts.ATol,
			MaxSteps:  s.opts.MaxSteps,
			TimeScale: s.opts.TimeScale,
		})
		a.SetObserver(s.observe)
		s.integ = a
		s.mode = ModeDeterministic
	}

	s.integ.SetInitialValue(s.spin, s.t)
	s.logger.Debug("integrator selected", zap.Stringer("mode", s.mode), zap.Float64("t", s.t))
}
