package micromag

import (
	"fmt"
	"math"

	"github.com/san-kum/spinsim/internal/integrators"
	"github.com/san-kum/spinsim/internal/mesh"
)

// Material holds the constants entering the LLG equation.
type Material struct {
	Gamma float64 `yaml:"gamma"`
	Alpha float64 `yaml:"alpha"`
	MuS   float64 `yaml:"mu_s"`
}

// UnitMaterial is the dimensionless default material.
func UnitMaterial() Material {
	return Material{Gamma: 1, Alpha: 0.1, MuS: 1}
}

func (m Material) Validate() error {
	if m.Gamma <= 0 || m.MuS <= 0 || m.Alpha < 0 {
		return fmt.Errorf("%w: material gamma=%g alpha=%g mu_s=%g", ErrConfiguration, m.Gamma, m.Alpha, m.MuS)
	}
	return nil
}

// IntegratorOptions configures both integration strategies.
type IntegratorOptions struct {
	RTol     float64 `yaml:"rtol"`
	ATol     float64 `yaml:"atol"`
	MaxSteps int     `yaml:"max_steps"`

	// Dt is the fixed real time step of the stochastic integrator.
	Dt float64 `yaml:"dt"`

	// TimeScale is c in τ = c·t, the internal time of the adaptive solver.
	TimeScale float64 `yaml:"time_scale"`
}

func DefaultIntegratorOptions() IntegratorOptions {
	return IntegratorOptions{
		RTol:      1e-8,
		ATol:      1e-10,
		MaxSteps:  100000,
		Dt:        0.2e-15,
		TimeScale: 1e11,
	}
}

func (o IntegratorOptions) Validate() error {
	if o.RTol <= 0 || o.ATol < 0 || o.MaxSteps <= 0 || o.Dt <= 0 || o.TimeScale <= 0 {
		return fmt.Errorf("%w: integrator options %+v", ErrConfiguration, o)
	}
	return nil
}

// SetupContext carries the material context an interaction is bound with.
type SetupContext struct {
	UnitLength float64
	MuS        float64
}

// Interaction is a field term. Setup binds it to the mesh and the live spin
// buffer exactly once; ComputeField then reads that buffer and returns the
// term's field. ComputeField must not write the spin buffer and must return
// identical output for an unchanged buffer.
type Interaction interface {
	Name() string
	Setup(m *mesh.Mesh, spin []float64, sc SetupContext) error
	ComputeField() []float64
}

// EnergyComputer is implemented by interactions that can report an energy.
type EnergyComputer interface {
	ComputeEnergy() float64
}

// ExactFielder is implemented by interactions with a slow reference field.
type ExactFielder interface {
	ComputeExact() []float64
}

// Metric observes the spin buffer after every accepted integrator step.
type Metric interface {
	Name() string
	Observe(spin []float64, t float64)
	Value() float64
	Reset()
}

// PinFunc may overwrite entries of spin in place before every field
// evaluation.
type PinFunc func(t float64, m *mesh.Mesh, spin []float64)

// NoiseFactory builds the thermal noise source for the stochastic integrator.
type NoiseFactory func(temps []float64, mat Material, seed int64) integrators.NoiseSource

type Mode int

const (
	ModeUninitialized Mode = iota
	ModeDeterministic
	ModeStochastic
)

func (m Mode) String() string {
	switch m {
	case ModeDeterministic:
		return "deterministic"
	case ModeStochastic:
		return "stochastic"
	default:
		return "uninitialized"
	}
}

// Source is an initial magnetisation: Uniform, Func or Buffer.
type Source interface {
	fill(m *mesh.Mesh, dst []float64) error
}

type uniformSource mesh.Vec3

type funcSource func(mesh.Vec3) mesh.Vec3

type bufferSource []float64

// Uniform sets every site to (x, y, z).
func Uniform(x, y, z float64) Source { return uniformSource{x, y, z} }

// Func evaluates f at every site position.
func Func(f func(pos mesh.Vec3) mesh.Vec3) Source { return funcSource(f) }

// Buffer copies a full component-major buffer of length 3N.
func Buffer(b []float64) Source { return bufferSource(b) }

func (u uniformSource) fill(m *mesh.Mesh, dst []float64) error {
	n := m.Len()
	for i := 0; i < n; i++ {
		for a := 0; a < 3; a++ {
			dst[Index(n, i, a)] = u[a]
		}
	}
	return nil
}

func (f funcSource) fill(m *mesh.Mesh, dst []float64) error {
	n := m.Len()
	for i := 0; i < n; i++ {
		v := f(m.Pos(i))
		for a := 0; a < 3; a++ {
			dst[Index(n, i, a)] = v[a]
		}
	}
	return nil
}

func (b bufferSource) fill(m *mesh.Mesh, dst []float64) error {
	if len(b) != len(dst) {
		return fmt.Errorf("%w: buffer length %d, want %d", ErrConfiguration, len(b), len(dst))
	}
	copy(dst, b)
	return nil
}

// Scalar is a per-site scalar input such as temperature.
type Scalar interface {
	fillScalar(m *mesh.Mesh, dst []float64)
}

type constantScalar float64

type funcScalar func(mesh.Vec3) float64

func Constant(v float64) Scalar { return constantScalar(v) }

func ScalarFunc(f func(pos mesh.Vec3) float64) Scalar { return funcScalar(f) }

func (c constantScalar) fillScalar(m *mesh.Mesh, dst []float64) {
	for i := range dst {
		dst[i] = float64(c)
	}
}

func (f funcScalar) fillScalar(m *mesh.Mesh, dst []float64) {
	for i := range dst {
		dst[i] = f(m.Pos(i))
	}
}

func checkFinite(buf []float64) error {
	for i, v := range buf {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrConfiguration, i)
		}
	}
	return nil
}
