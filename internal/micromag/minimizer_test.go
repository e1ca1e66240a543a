package micromag_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/spinsim/internal/interactions"
	"github.com/san-kum/spinsim/internal/mesh"
	"github.com/san-kum/spinsim/internal/micromag"
)

var _ = Describe("Minimizer", func() {
	opts := micromag.MinimizerOptions{TauMin: 1e-3, TauMax: 1, StopDm: 1e-12, MaxSteps: 1000}

	It("aligns a free spin with the applied field", func() {
		s := micromag.New(newMesh(1, 1, 1))
		Expect(s.SetM(micromag.Uniform(1, 0, 0.1), true)).To(Succeed())
		Expect(s.Add(interactions.NewZeeman(mesh.Vec3{0, 0, 1}))).To(Succeed())

		mn, err := s.NewMinimizer(opts)
		Expect(err).NotTo(HaveOccurred())

		res, err := mn.Relax()
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Steps).To(BeNumerically(">", 1))
		Expect(res.MaxDm).To(BeNumerically("<", opts.StopDm))
		Expect(res.Energy).To(BeNumerically("~", -1, 1e-9))

		m := s.SpinAt(0, 0, 0)
		Expect(m[2]).To(BeNumerically("~", 1, 1e-9))
		Expect(s.T()).To(BeZero())
	})

	It("relaxes a ferromagnetic chain without moving pinned sites", func() {
		s := micromag.New(newMesh(3, 1, 1))
		Expect(s.SetM(micromag.Func(func(p mesh.Vec3) mesh.Vec3 {
			if p[0] < 1 {
				return mesh.Vec3{0, 0, 1}
			}
			return mesh.Vec3{1, 0.2, 0}
		}), true)).To(Succeed())
		Expect(s.Add(interactions.NewExchange(1))).To(Succeed())
		Expect(s.Add(interactions.NewZeeman(mesh.Vec3{0, 0, 1}))).To(Succeed())

		chainOpts := micromag.MinimizerOptions{TauMin: 1e-3, TauMax: 0.25, StopDm: 1e-10, MaxSteps: 5000}
		mn, err := s.NewMinimizer(chainOpts)
		Expect(err).NotTo(HaveOccurred())
		Expect(mn.Pin([]bool{true, false, false})).To(Succeed())

		_, err = mn.Relax()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.SpinAt(0, 0, 0)).To(Equal(mesh.Vec3{0, 0, 1}))
		for i := 1; i < 3; i++ {
			Expect(s.SpinAt(i, 0, 0)[2]).To(BeNumerically("~", 1, 1e-6), "site %d", i)
		}
	})

	It("reports ErrNotConverged when the step limit is reached", func() {
		s := micromag.New(newMesh(1, 1, 1))
		Expect(s.SetM(micromag.Uniform(1, 0, 0.1), true)).To(Succeed())
		Expect(s.Add(interactions.NewZeeman(mesh.Vec3{0, 0, 1}))).To(Succeed())

		limited := opts
		limited.MaxSteps = 1
		mn, err := s.NewMinimizer(limited)
		Expect(err).NotTo(HaveOccurred())

		res, err := mn.Relax()
		Expect(err).To(MatchError(micromag.ErrNotConverged))
		Expect(res.Steps).To(Equal(1))
	})

	It("validates options and pin masks", func() {
		s := micromag.New(newMesh(2, 1, 1))
		_, err := s.NewMinimizer(micromag.MinimizerOptions{})
		Expect(err).To(MatchError(micromag.ErrConfiguration))

		mn, err := s.NewMinimizer(micromag.DefaultMinimizerOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(mn.Pin([]bool{true})).To(MatchError(micromag.ErrConfiguration))
	})
})
