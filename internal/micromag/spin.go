package micromag

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/spinsim/internal/llg"
	"github.com/san-kum/spinsim/internal/mesh"
)

// Index returns the buffer offset of component axis of site for n sites.
func Index(n, site, axis int) int {
	return axis*n + site
}

// SpinState is a component-major buffer of unit vectors.
type SpinState []float64

func NewSpinState(n int) SpinState {
	return make(SpinState, 3*n)
}

func (s SpinState) Len() int { return len(s) / 3 }

func (s SpinState) At(site int) mesh.Vec3 {
	n := s.Len()
	return mesh.Vec3{s[site], s[n+site], s[2*n+site]}
}

func (s SpinState) Set(site int, v mesh.Vec3) {
	n := s.Len()
	s[site], s[n+site], s[2*n+site] = v[0], v[1], v[2]
}

// Axis returns the contiguous slice holding one component of every site.
func (s SpinState) Axis(axis int) []float64 {
	n := s.Len()
	return s[axis*n : (axis+1)*n]
}

// Normalize rescales each site independently. A zero site fails the whole
// call and leaves s unchanged.
func (s SpinState) Normalize() error {
	if site := llg.Normalize(s); site >= 0 {
		return &NormalizationError{Site: site}
	}
	return nil
}

// Average is the per-axis mean over sites.
func (s SpinState) Average() mesh.Vec3 {
	n := s.Len()
	if n == 0 {
		return mesh.Vec3{}
	}
	var avg mesh.Vec3
	for a := 0; a < 3; a++ {
		avg[a] = floats.Sum(s.Axis(a)) / float64(n)
	}
	return avg
}
