package micromag_test

import (
	"errors"
	"math"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/spinsim/internal/integrators"
	"github.com/san-kum/spinsim/internal/interactions"
	"github.com/san-kum/spinsim/internal/mesh"
	"github.com/san-kum/spinsim/internal/micromag"
	"github.com/san-kum/spinsim/internal/thermal"
)

var physical = micromag.Material{Gamma: 1.76e11, Alpha: 0.1, MuS: 1}

func newMesh(nx, ny, nz int) *mesh.Mesh {
	m, err := mesh.New(mesh.Config{Nx: nx, Ny: ny, Nz: nz, Dx: 1, Dy: 1, Dz: 1})
	Expect(err).NotTo(HaveOccurred())
	return m
}

func norms(s micromag.SpinState) []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		v := s.At(i)
		out[i] = math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	}
	return out
}

func expectUnitNorm(s micromag.SpinState, tol float64) {
	for i, n := range norms(s) {
		Expect(n).To(BeNumerically("~", 1, tol), "site %d", i)
	}
}

type recordingMetric struct {
	calls int
	lastT float64
}

func (r *recordingMetric) Name() string                   { return "recording" }
func (r *recordingMetric) Observe(_ []float64, t float64) { r.calls++; r.lastT = t }
func (r *recordingMetric) Value() float64                 { return float64(r.calls) }
func (r *recordingMetric) Reset()                         { r.calls = 0 }

// constantField is an interaction of uncomparable dynamic type.
type constantField func() []float64

func (f constantField) Name() string { return "constant" }

func (f constantField) Setup(*mesh.Mesh, []float64, micromag.SetupContext) error { return nil }

func (f constantField) ComputeField() []float64 { return f() }

var _ = Describe("Simulation", func() {
	var sim *micromag.Simulation

	BeforeEach(func() {
		sim = micromag.New(newMesh(3, 2, 1))
	})

	It("starts deterministic at t=0 with no interactions", func() {
		Expect(sim.Mode()).To(Equal(micromag.ModeDeterministic))
		Expect(sim.T()).To(BeZero())
		Expect(sim.Interactions()).To(BeEmpty())
	})

	Describe("SetM", func() {
		It("normalizes every site", func() {
			Expect(sim.SetM(micromag.Uniform(1, 2, 3), true)).To(Succeed())
			expectUnitNorm(sim.Spin(), 1e-12)

			v := sim.SpinAt(2, 1, 0)
			Expect(v[0]).To(BeNumerically("~", 1/math.Sqrt(14), 1e-12))
		})

		It("keeps raw values without normalization", func() {
			Expect(sim.SetM(micromag.Uniform(2, 0, 0), false)).To(Succeed())
			Expect(sim.SpinAt(0, 0, 0)).To(Equal(mesh.Vec3{2, 0, 0}))
		})

		It("fills the same layout from every source", func() {
			n := sim.Mesh().Len()
			buf := make([]float64, 3*n)
			for i := 0; i < n; i++ {
				buf[micromag.Index(n, i, 0)] = 0.6
				buf[micromag.Index(n, i, 2)] = 0.8
			}

			sources := []micromag.Source{
				micromag.Uniform(0.6, 0, 0.8),
				micromag.Func(func(mesh.Vec3) mesh.Vec3 { return mesh.Vec3{0.6, 0, 0.8} }),
				micromag.Buffer(buf),
			}

			var states []micromag.SpinState
			for _, src := range sources {
				Expect(sim.SetM(src, true)).To(Succeed())
				states = append(states, sim.Spin())
			}

			approx := cmpopts.EquateApprox(0, 1e-15)
			Expect(cmp.Diff(states[0], states[1], approx)).To(BeEmpty())
			Expect(cmp.Diff(states[0], states[2], approx)).To(BeEmpty())
		})

		It("passes cell centres to Func sources", func() {
			Expect(sim.SetM(micromag.Func(func(p mesh.Vec3) mesh.Vec3 {
				return mesh.Vec3{p[0], 1, 0}
			}), false)).To(Succeed())

			for site := 0; site < sim.Mesh().Len(); site++ {
				Expect(sim.Spin().At(site)[0]).To(Equal(sim.Mesh().Pos(site)[0]))
			}
		})

		It("rejects a buffer of the wrong length without touching state", func() {
			Expect(sim.SetM(micromag.Uniform(0, 0, 1), true)).To(Succeed())
			before := sim.Spin()

			err := sim.SetM(micromag.Buffer(make([]float64, 5)), true)
			Expect(err).To(MatchError(micromag.ErrConfiguration))
			Expect(sim.Spin()).To(Equal(before))
		})

		It("reports the first zero site and leaves state untouched", func() {
			Expect(sim.SetM(micromag.Uniform(0, 0, 1), true)).To(Succeed())
			before := sim.Spin()

			err := sim.SetM(micromag.Func(func(p mesh.Vec3) mesh.Vec3 {
				if p[0] > 1 {
					return mesh.Vec3{}
				}
				return mesh.Vec3{1, 0, 0}
			}), true)

			Expect(err).To(MatchError(micromag.ErrNormalization))
			var nerr *micromag.NormalizationError
			Expect(errors.As(err, &nerr)).To(BeTrue())
			Expect(nerr.Site).To(Equal(1))
			Expect(sim.Spin()).To(Equal(before))
		})

		It("rejects non-finite values", func() {
			err := sim.SetM(micromag.Uniform(math.NaN(), 0, 1), false)
			Expect(err).To(MatchError(micromag.ErrConfiguration))
		})
	})

	Describe("Normalize", func() {
		It("rescales in place", func() {
			Expect(sim.SetM(micromag.Uniform(0, 3, 4), false)).To(Succeed())
			Expect(sim.Normalize()).To(Succeed())
			Expect(sim.SpinAt(1, 1, 0)).To(Equal(mesh.Vec3{0, 0.6, 0.8}))
		})

		It("fails on a zero site", func() {
			Expect(sim.SetM(micromag.Uniform(0, 0, 0), false)).To(Succeed())
			err := sim.Normalize()
			var nerr *micromag.NormalizationError
			Expect(errors.As(err, &nerr)).To(BeTrue())
			Expect(nerr.Site).To(Equal(0))
		})
	})

	Describe("ComputeAverage", func() {
		It("averages each axis over sites", func() {
			Expect(sim.SetM(micromag.Func(func(p mesh.Vec3) mesh.Vec3 {
				if p[0] < 1 {
					return mesh.Vec3{1, 0, 0}
				}
				return mesh.Vec3{0, 0, 1}
			}), true)).To(Succeed())

			avg := sim.ComputeAverage()
			Expect(avg[0]).To(BeNumerically("~", 1.0/3, 1e-15))
			Expect(avg[1]).To(BeZero())
			Expect(avg[2]).To(BeNumerically("~", 2.0/3, 1e-15))
		})
	})

	Describe("Add", func() {
		It("rejects the same interaction twice", func() {
			z := interactions.NewZeeman(mesh.Vec3{0, 0, 1})
			Expect(sim.Add(z)).To(Succeed())
			Expect(sim.Add(z)).To(MatchError(micromag.ErrConfiguration))
			Expect(sim.Interactions()).To(HaveLen(1))
		})

		It("accepts distinct instances of the same kind", func() {
			Expect(sim.Add(interactions.NewZeeman(mesh.Vec3{0, 0, 1}))).To(Succeed())
			Expect(sim.Add(interactions.NewZeeman(mesh.Vec3{0, 0, 1}))).To(Succeed())
			Expect(sim.Interactions()).To(HaveLen(2))
		})

		It("composes fields additively in any order", func() {
			build := func(its ...micromag.Interaction) []float64 {
				s := micromag.New(newMesh(3, 2, 1))
				Expect(s.SetM(micromag.Func(func(p mesh.Vec3) mesh.Vec3 {
					return mesh.Vec3{p[0], p[1], 1}
				}), true)).To(Succeed())
				for _, it := range its {
					Expect(s.Add(it)).To(Succeed())
				}
				return s.ComputeField()
			}

			z := build(interactions.NewZeeman(mesh.Vec3{0.1, 0, 1}))
			ex := build(interactions.NewExchange(2))
			an := build(interactions.NewAnisotropy(0.5, mesh.Vec3{0, 0, 1}))

			all := build(
				interactions.NewExchange(2),
				interactions.NewAnisotropy(0.5, mesh.Vec3{0, 0, 1}),
				interactions.NewZeeman(mesh.Vec3{0.1, 0, 1}),
			)

			for i := range all {
				Expect(all[i]).To(BeNumerically("~", z[i]+ex[i]+an[i], 1e-12))
			}

			pair := build(interactions.NewAnisotropy(0.5, mesh.Vec3{0, 0, 1}), interactions.NewZeeman(mesh.Vec3{0.1, 0, 1}))
			for i := range pair {
				Expect(pair[i]).To(BeNumerically("~", z[i]+an[i], 1e-12))
			}
		})

		It("runs the pin hook before every field evaluation", func() {
			calls := 0
			sim.SetPinFunc(func(t float64, m *mesh.Mesh, spin []float64) {
				calls++
				n := m.Len()
				spin[micromag.Index(n, 0, 0)] = 0
				spin[micromag.Index(n, 0, 1)] = 0
				spin[micromag.Index(n, 0, 2)] = 1
			})
			Expect(sim.SetM(micromag.Uniform(1, 0, 0), true)).To(Succeed())
			Expect(sim.Add(interactions.NewExchange(1))).To(Succeed())

			field := sim.ComputeField()
			n := sim.Mesh().Len()
			Expect(calls).To(Equal(1))
			// site 1 neighbours site 0 (pinned to z) and site 2 and site 4
			Expect(field[micromag.Index(n, 1, 2)]).To(BeNumerically("~", 1, 1e-15))
			Expect(sim.Evaluations()).To(Equal(1))
		})

		It("sums energies of terms that report one", func() {
			Expect(sim.SetM(micromag.Uniform(0, 0, 1), true)).To(Succeed())
			Expect(sim.Add(interactions.NewZeeman(mesh.Vec3{0, 0, 2}))).To(Succeed())
			Expect(sim.Add(interactions.NewDemag())).To(Succeed())
			Expect(sim.ComputeEnergy()).To(BeNumerically("~", -12, 1e-12))
		})
	})

	Describe("RunUntil", func() {
		It("is a no-op for targets not ahead of T", func() {
			Expect(sim.SetM(micromag.Uniform(1, 1, 0), true)).To(Succeed())
			Expect(sim.Add(interactions.NewZeeman(mesh.Vec3{0, 0, 1}))).To(Succeed())
			before := sim.Spin()

			Expect(sim.RunUntil(0)).To(Succeed())
			Expect(sim.RunUntil(-1)).To(Succeed())
			Expect(sim.T()).To(BeZero())
			Expect(sim.Spin()).To(Equal(before))
			Expect(sim.Evaluations()).To(BeZero())
		})

		It("leaves a zero-field state exactly fixed", func() {
			Expect(sim.SetM(micromag.Uniform(1, 2, 2), true)).To(Succeed())
			before := sim.Spin()

			Expect(sim.RunUntil(1e-9)).To(Succeed())
			Expect(sim.T()).To(Equal(1e-9))
			Expect(sim.Spin()).To(Equal(before))
		})

		It("conserves norm and energy without damping", func() {
			s := micromag.New(newMesh(1, 1, 1),
				micromag.WithMaterial(micromag.Material{Gamma: 1, Alpha: 0, MuS: 1}),
				micromag.WithIntegratorOptions(micromag.IntegratorOptions{
					RTol: 1e-10, ATol: 1e-12, MaxSteps: 100000, Dt: 1e-3, TimeScale: 1,
				}))
			Expect(s.SetM(micromag.Uniform(1, 0, 0.5), true)).To(Succeed())
			Expect(s.Add(interactions.NewZeeman(mesh.Vec3{0, 0, 1}))).To(Succeed())

			e0 := s.ComputeEnergy()
			for step := 1; step <= 10000; step++ {
				Expect(s.RunUntil(float64(step) * 1e-2)).To(Succeed())
			}

			Expect(s.T()).To(BeNumerically("~", 100, 1e-12))
			expectUnitNorm(s.Spin(), 1e-6)
			Expect(s.ComputeEnergy()).To(BeNumerically("~", e0, 1e-6))
			Expect(s.ComputeAverage()[2]).To(BeNumerically("~", 0.5/math.Sqrt(1.25), 1e-6))
		})

		It("precesses and damps a chain in a transverse field", func() {
			s := micromag.New(newMesh(3, 1, 1), micromag.WithMaterial(physical))
			Expect(s.SetM(micromag.Uniform(0, 0, 1), true)).To(Succeed())
			Expect(s.Add(interactions.NewZeeman(mesh.Vec3{0, 1, 0}))).To(Succeed())

			prev := 1.0
			for _, t := range []float64{1e-12, 2e-12, 3e-12} {
				Expect(s.RunUntil(t)).To(Succeed())
				Expect(s.T()).To(Equal(t))

				m := s.ComputeAverage()
				Expect(m[0]).To(BeNumerically(">", 0))
				Expect(m[2]).To(BeNumerically("<", prev))
				prev = m[2]

				for site := 1; site < 3; site++ {
					Expect(s.Spin().At(site)).To(Equal(s.Spin().At(0)))
				}
			}
			expectUnitNorm(s.Spin(), 1e-6)
		})

		It("retains the last accepted state when integration fails", func() {
			s := micromag.New(newMesh(2, 1, 1), micromag.WithMaterial(physical))
			Expect(s.SetOptions(micromag.IntegratorOptions{
				RTol: 1e-8, ATol: 1e-10, MaxSteps: 1, Dt: 1e-15, TimeScale: 1e11,
			})).To(Succeed())
			Expect(s.SetM(micromag.Uniform(1, 0, 0), true)).To(Succeed())
			Expect(s.Add(interactions.NewZeeman(mesh.Vec3{0, 0, 1}))).To(Succeed())

			err := s.RunUntil(1e-9)
			Expect(err).To(MatchError(micromag.ErrIntegration))

			var ierr *micromag.IntegrationError
			Expect(errors.As(err, &ierr)).To(BeTrue())
			Expect(ierr.Target).To(Equal(1e-9))
			Expect(ierr.Time).To(Equal(s.T()))
			Expect(s.T()).To(BeNumerically("<", 1e-9))
			expectUnitNorm(s.Spin(), 1e-6)

			err = s.RunUntil(2e-9)
			Expect(err).To(MatchError(micromag.ErrIntegration))
			Expect(errors.Is(err, integrators.ErrNotSucceeded)).To(BeTrue())
		})

		It("reports accepted steps to metrics", func() {
			rec := &recordingMetric{}
			sim.AddMetric(rec)
			Expect(sim.SetM(micromag.Uniform(1, 0, 0), true)).To(Succeed())
			Expect(sim.Add(interactions.NewZeeman(mesh.Vec3{0, 0, 1}))).To(Succeed())

			Expect(sim.RunUntil(1e-12)).To(Succeed())
			Expect(rec.calls).To(BeNumerically(">", 0))
			Expect(rec.lastT).To(Equal(1e-12))
			Expect(sim.MetricValues()).To(HaveKeyWithValue("recording", float64(rec.calls)))
		})
	})

	Describe("integrator selection", func() {
		It("switches to the stochastic integrator at positive temperature", func() {
			s := micromag.New(newMesh(2, 1, 1), micromag.WithMaterial(physical), micromag.WithSeed(3))
			Expect(s.SetM(micromag.Uniform(0, 0, 1), true)).To(Succeed())
			Expect(s.Add(interactions.NewZeeman(mesh.Vec3{0, 0, 1}))).To(Succeed())

			Expect(s.RunUntil(1e-13)).To(Succeed())
			Expect(s.SetTemperature(micromag.Constant(300))).To(Succeed())
			Expect(s.Mode()).To(Equal(micromag.ModeStochastic))
			Expect(s.T()).To(Equal(1e-13))

			Expect(s.RunUntil(1.1e-13 + 3.3e-16)).To(Succeed())
			Expect(s.T()).To(Equal(1.1e-13 + 3.3e-16))
			expectUnitNorm(s.Spin(), 1e-12)

			Expect(s.SetTemperature(micromag.Constant(0))).To(Succeed())
			Expect(s.Mode()).To(Equal(micromag.ModeDeterministic))
			Expect(s.T()).To(Equal(1.1e-13 + 3.3e-16))
		})

		It("is reproducible for a fixed seed", func() {
			run := func() micromag.SpinState {
				s := micromag.New(newMesh(3, 1, 1), micromag.WithMaterial(physical), micromag.WithSeed(11))
				Expect(s.SetM(micromag.Uniform(1, 0, 1), true)).To(Succeed())
				Expect(s.SetTemperature(micromag.ScalarFunc(func(p mesh.Vec3) float64 {
					return 100 * (p[0] + 0.5)
				}))).To(Succeed())
				Expect(s.RunUntil(5e-15)).To(Succeed())
				return s.Spin()
			}
			Expect(cmp.Diff(run(), run())).To(BeEmpty())
		})

		It("rejects negative temperatures", func() {
			err := sim.SetTemperature(micromag.Constant(-1))
			Expect(err).To(MatchError(micromag.ErrConfiguration))
			Expect(sim.Mode()).To(Equal(micromag.ModeDeterministic))
		})

		It("rejects invalid material and options", func() {
			Expect(sim.SetMaterial(micromag.Material{Gamma: 0, Alpha: 0.1, MuS: 1})).To(MatchError(micromag.ErrConfiguration))
			Expect(sim.SetOptions(micromag.IntegratorOptions{})).To(MatchError(micromag.ErrConfiguration))
			Expect(sim.Material()).To(Equal(micromag.UnitMaterial()))
		})
	})
	Describe("robustness", func() {
		It("normalizes sites whose squared length underflows", func() {
			Expect(sim.SetM(micromag.Uniform(1e-200, 0, 0), true)).To(Succeed())
			for site := 0; site < 6; site++ {
				Expect(sim.Spin().At(site)).To(Equal(mesh.Vec3{1, 0, 0}))
			}

			Expect(sim.SetM(micromag.Uniform(1e300, 1e300, 1e300), true)).To(Succeed())
			expectUnitNorm(sim.Spin(), 1e-12)
		})

		It("refuses to bind one term to two simulations", func() {
			a := micromag.New(newMesh(3, 1, 1))
			b := micromag.New(newMesh(3, 1, 1))
			Expect(a.SetM(micromag.Uniform(1, 0, 0), true)).To(Succeed())
			Expect(b.SetM(micromag.Uniform(0, 0, 1), true)).To(Succeed())

			ex := interactions.NewExchange(1)
			Expect(a.Add(ex)).To(Succeed())
			Expect(b.Add(ex)).To(MatchError(micromag.ErrConfiguration))
			Expect(b.Interactions()).To(BeEmpty())

			field := a.ComputeField()
			Expect(field[micromag.Index(3, 0, 0)]).To(Equal(1.0))
			Expect(field[micromag.Index(3, 0, 2)]).To(Equal(0.0))
		})

		It("accepts interactions of uncomparable type without panicking", func() {
			h := make([]float64, 18)
			f := constantField(func() []float64 { return h })

			Expect(sim.Add(f)).To(Succeed())
			Expect(func() { _ = sim.Add(f) }).NotTo(Panic())
		})

		It("keeps pinned values in the integrator after ComputeField", func() {
			sim.SetPinFunc(func(t float64, m *mesh.Mesh, spin []float64) {
				n := m.Len()
				spin[micromag.Index(n, 0, 0)] = 0
				spin[micromag.Index(n, 0, 2)] = 1
			})
			Expect(sim.SetM(micromag.Uniform(1, 0, 0), true)).To(Succeed())

			sim.ComputeField()
			Expect(sim.SpinAt(0, 0, 0)).To(Equal(mesh.Vec3{0, 0, 1}))

			Expect(sim.RunUntil(1e-12)).To(Succeed())
			Expect(sim.SpinAt(0, 0, 0)).To(Equal(mesh.Vec3{0, 0, 1}))
			Expect(sim.SpinAt(1, 0, 0)).To(Equal(mesh.Vec3{1, 0, 0}))
		})

		It("draws fresh noise for every temperature segment", func() {
			record := func() []int64 {
				var seeds []int64
				factory := func(temps []float64, mat micromag.Material, seed int64) integrators.NoiseSource {
					seeds = append(seeds, seed)
					return thermal.NewGaussian(seed, temps, mat.Alpha, mat.Gamma, mat.MuS)
				}
				s := micromag.New(newMesh(2, 1, 1),
					micromag.WithMaterial(physical),
					micromag.WithSeed(7),
					micromag.WithNoiseFactory(factory))
				Expect(s.SetM(micromag.Uniform(0, 0, 1), true)).To(Succeed())
				Expect(s.SetTemperature(micromag.Constant(300))).To(Succeed())
				Expect(s.RunUntil(1e-15)).To(Succeed())
				Expect(s.SetTemperature(micromag.Constant(200))).To(Succeed())
				Expect(s.RunUntil(2e-15)).To(Succeed())
				return seeds
			}

			seeds := record()
			Expect(seeds).To(HaveLen(2))
			Expect(seeds[0]).NotTo(Equal(seeds[1]))
			Expect(record()).To(Equal(seeds))

			first := make([]float64, 6)
			second := make([]float64, 6)
			temps := []float64{300, 300}
			thermal.NewGaussian(seeds[0], temps, 0.1, 1.76e11, 1).Fill(first, 1e-15)
			thermal.NewGaussian(seeds[1], temps, 0.1, 1.76e11, 1).Fill(second, 1e-15)
			Expect(first).NotTo(Equal(second))
		})
	})
})
