package mesh

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidMesh reports a mesh configuration that cannot be built.
var ErrInvalidMesh = errors.New("mesh: invalid configuration")

// Vec3 is a three-component vector used for positions and per-site values.
type Vec3 [3]float64

type Config struct {
	Nx, Ny, Nz int
	Dx, Dy, Dz float64
	UnitLength float64
	PBC        bool
}

func DefaultConfig() Config {
	return Config{Nx: 1, Ny: 1, Nz: 1, Dx: 1, Dy: 1, Dz: 1, UnitLength: 1}
}

// Mesh is an immutable structured finite-difference grid. Sites are ordered
// x fastest: site = k*Nx*Ny + j*Nx + i.
type Mesh struct {
	Nx, Ny, Nz int
	Dx, Dy, Dz float64
	UnitLength float64
	PBC        bool

	n    int
	pos  []Vec3
	nbrs [][6]int
}

func New(cfg Config) (*Mesh, error) {
	if cfg.Nx <= 0 || cfg.Ny <= 0 || cfg.Nz <= 0 {
		return nil, fmt.Errorf("%w: counts must be positive, got %dx%dx%d", ErrInvalidMesh, cfg.Nx, cfg.Ny, cfg.Nz)
	}
	if cfg.Dx <= 0 || cfg.Dy <= 0 || cfg.Dz <= 0 {
		return nil, fmt.Errorf("%w: spacings must be positive", ErrInvalidMesh)
	}
	if cfg.UnitLength == 0 {
		cfg.UnitLength = 1
	}
	if cfg.UnitLength < 0 {
		return nil, fmt.Errorf("%w: unit length must be positive", ErrInvalidMesh)
	}

	m := &Mesh{
		Nx: cfg.Nx, Ny: cfg.Ny, Nz: cfg.Nz,
		Dx: cfg.Dx, Dy: cfg.Dy, Dz: cfg.Dz,
		UnitLength: cfg.UnitLength,
		PBC:        cfg.PBC,
		n:          cfg.Nx * cfg.Ny * cfg.Nz,
	}
	m.buildPositions()
	m.buildNeighbours()
	return m, nil
}

// Len is the number of sites.
func (m *Mesh) Len() int { return m.n }

func (m *Mesh) Index(i, j, k int) int {
	return k*m.Nx*m.Ny + j*m.Nx + i
}

// Coords inverts Index.
func (m *Mesh) Coords(site int) (i, j, k int) {
	nxy := m.Nx * m.Ny
	k = site / nxy
	rem := site % nxy
	return rem % m.Nx, rem / m.Nx, k
}

// Pos returns the cell centre of site in mesh units.
func (m *Mesh) Pos(site int) Vec3 { return m.pos[site] }

// Positions returns a copy of all site positions in site order.
func (m *Mesh) Positions() []Vec3 {
	out := make([]Vec3, len(m.pos))
	copy(out, m.pos)
	return out
}

// Neighbours returns the six nearest neighbours of site in the order
// -x, +x, -y, +y, -z, +z. Missing neighbours are -1.
func (m *Mesh) Neighbours(site int) [6]int { return m.nbrs[site] }

func (m *Mesh) buildPositions() {
	xs := axisCentres(m.Nx, m.Dx)
	ys := axisCentres(m.Ny, m.Dy)
	zs := axisCentres(m.Nz, m.Dz)

	m.pos = make([]Vec3, m.n)
	for k := 0; k < m.Nz; k++ {
		for j := 0; j < m.Ny; j++ {
			for i := 0; i < m.Nx; i++ {
				m.pos[m.Index(i, j, k)] = Vec3{xs[i], ys[j], zs[k]}
			}
		}
	}
}

func axisCentres(n int, d float64) []float64 {
	c := make([]float64, n)
	if n == 1 {
		c[0] = d / 2
		return c
	}
	floats.Span(c, d/2, d/2+float64(n-1)*d)
	return c
}

func (m *Mesh) buildNeighbours() {
	m.nbrs = make([][6]int, m.n)
	for k := 0; k < m.Nz; k++ {
		for j := 0; j < m.Ny; j++ {
			for i := 0; i < m.Nx; i++ {
				m.nbrs[m.Index(i, j, k)] = [6]int{
					m.shifted(i-1, j, k),
					m.shifted(i+1, j, k),
					m.shifted(i, j-1, k),
					m.shifted(i, j+1, k),
					m.shifted(i, j, k-1),
					m.shifted(i, j, k+1),
				}
			}
		}
	}
}

func (m *Mesh) shifted(i, j, k int) int {
	var ok bool
	if i, ok = m.wrap(i, m.Nx); !ok {
		return -1
	}
	if j, ok = m.wrap(j, m.Ny); !ok {
		return -1
	}
	if k, ok = m.wrap(k, m.Nz); !ok {
		return -1
	}
	return m.Index(i, j, k)
}

func (m *Mesh) wrap(i, n int) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	// a single cell along an axis never couples to itself
	if !m.PBC || n == 1 {
		return 0, false
	}
	return (i%n + n) % n, true
}
