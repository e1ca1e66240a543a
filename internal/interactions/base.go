package interactions

import (
	"errors"
	"fmt"

	"github.com/san-kum/spinsim/internal/mesh"
	"github.com/san-kum/spinsim/internal/micromag"
)

var ErrSpinLength = errors.New("interactions: spin buffer does not match mesh")

// base holds the state every term binds at Setup.
type base struct {
	mesh  *mesh.Mesh
	spin  []float64
	field []float64
	n     int
	muS   float64
	unit  float64
}

func (b *base) bind(m *mesh.Mesh, spin []float64, sc micromag.SetupContext) error {
	n := m.Len()
	if len(spin) != 3*n {
		return fmt.Errorf("%w: got %d values for %d sites", ErrSpinLength, len(spin), n)
	}
	if b.spin != nil {
		return fmt.Errorf("%w: interaction is already bound to a simulation", micromag.ErrConfiguration)
	}
	if sc.MuS <= 0 {
		return fmt.Errorf("interactions: mu_s must be positive, got %g", sc.MuS)
	}
	b.mesh = m
	b.spin = spin
	b.n = n
	b.field = make([]float64, 3*n)
	b.muS = sc.MuS
	b.unit = sc.UnitLength
	if b.unit == 0 {
		b.unit = 1
	}
	return nil
}

func (b *base) at(buf []float64, site int) mesh.Vec3 {
	return mesh.Vec3{buf[site], buf[b.n+site], buf[2*b.n+site]}
}
