package interactions

import (
	"github.com/san-kum/spinsim/internal/mesh"
	"github.com/san-kum/spinsim/internal/micromag"
)

// Exchange couples each site to its six nearest neighbours with constant J.
// Missing neighbours on open boundaries contribute nothing.
type Exchange struct {
	base
	J float64
}

func NewExchange(j float64) *Exchange {
	return &Exchange{J: j}
}

func (e *Exchange) Name() string { return "exchange" }

func (e *Exchange) Setup(m *mesh.Mesh, spin []float64, sc micromag.SetupContext) error {
	return e.bind(m, spin, sc)
}

func (e *Exchange) ComputeField() []float64 {
	n := e.n
	scale := e.J / e.muS
	for i := 0; i < n; i++ {
		var sx, sy, sz float64
		for _, j := range e.mesh.Neighbours(i) {
			if j < 0 {
				continue
			}
			sx += e.spin[j]
			sy += e.spin[n+j]
			sz += e.spin[2*n+j]
		}
		e.field[i] = scale * sx
		e.field[n+i] = scale * sy
		e.field[2*n+i] = scale * sz
	}
	return e.field
}

// ComputeEnergy counts each bond once.
func (e *Exchange) ComputeEnergy() float64 {
	n := e.n
	energy := 0.0
	for i := 0; i < n; i++ {
		for _, j := range e.mesh.Neighbours(i) {
			if j < 0 {
				continue
			}
			energy -= e.spin[i]*e.spin[j] + e.spin[n+i]*e.spin[n+j] + e.spin[2*n+i]*e.spin[2*n+j]
		}
	}
	return 0.5 * e.J * energy
}
