package interactions

import (
	"github.com/san-kum/spinsim/internal/mesh"
	"github.com/san-kum/spinsim/internal/micromag"
)

// Zeeman is an applied field, uniform or sampled per site.
type Zeeman struct {
	base
	h  mesh.Vec3
	fn func(pos mesh.Vec3) mesh.Vec3
}

func NewZeeman(h mesh.Vec3) *Zeeman {
	return &Zeeman{h: h}
}

// NewZeemanFunc samples fn at every cell centre once, at Setup.
func NewZeemanFunc(fn func(pos mesh.Vec3) mesh.Vec3) *Zeeman {
	return &Zeeman{fn: fn}
}

func (z *Zeeman) Name() string { return "zeeman" }

func (z *Zeeman) Setup(m *mesh.Mesh, spin []float64, sc micromag.SetupContext) error {
	if err := z.bind(m, spin, sc); err != nil {
		return err
	}
	z.fill()
	return nil
}

// SetField replaces the applied field with a uniform h.
func (z *Zeeman) SetField(h mesh.Vec3) {
	z.h = h
	z.fn = nil
	if z.field != nil {
		z.fill()
	}
}

func (z *Zeeman) fill() {
	for i := 0; i < z.n; i++ {
		h := z.h
		if z.fn != nil {
			h = z.fn(z.mesh.Pos(i))
		}
		for a := 0; a < 3; a++ {
			z.field[a*z.n+i] = h[a]
		}
	}
}

// ComputeField returns the precomputed field; it does not depend on spin.
func (z *Zeeman) ComputeField() []float64 { return z.field }

func (z *Zeeman) ComputeEnergy() float64 {
	e := 0.0
	for i, v := range z.spin {
		e -= v * z.field[i]
	}
	return e * z.muS
}
