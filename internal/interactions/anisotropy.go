package interactions

import (
	"github.com/san-kum/spinsim/internal/mesh"
	"github.com/san-kum/spinsim/internal/micromag"
)

// Anisotropy is the on-site term E = -Σ D_a m_a² with D_a = D·direction_a.
type Anisotropy struct {
	base
	D mesh.Vec3
}

func NewAnisotropy(d float64, direction mesh.Vec3) *Anisotropy {
	return &Anisotropy{D: mesh.Vec3{d * direction[0], d * direction[1], d * direction[2]}}
}

func (an *Anisotropy) Name() string { return "anisotropy" }

func (an *Anisotropy) Setup(m *mesh.Mesh, spin []float64, sc micromag.SetupContext) error {
	return an.bind(m, spin, sc)
}

func (an *Anisotropy) ComputeField() []float64 {
	n := an.n
	for a := 0; a < 3; a++ {
		k := 2 * an.D[a] / an.muS
		for i := 0; i < n; i++ {
			an.field[a*n+i] = k * an.spin[a*n+i]
		}
	}
	return an.field
}

func (an *Anisotropy) ComputeEnergy() float64 {
	n := an.n
	e := 0.0
	for a := 0; a < 3; a++ {
		for i := 0; i < n; i++ {
			m := an.spin[a*n+i]
			e -= an.D[a] * m * m
		}
	}
	return e
}
