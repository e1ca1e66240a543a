package interactions

import (
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/spinsim/internal/mesh"
	"github.com/san-kum/spinsim/internal/micromag"
)

// MuZeroOver4Pi is μ0/4π in SI units.
const MuZeroOver4Pi = 1e-7

// Demag is the dipolar field of point moments at the cell centres:
//
//	H_i = (μ0/4π) μ_s Σ_{j≠i} [3 r̂(r̂·m_j) − m_j] / r³
//
// ComputeField evaluates the sum as a zero-padded convolution in Fourier
// space. Boundaries are always open; periodic meshes are not wrapped.
type Demag struct {
	base

	nx, ny, nz int
	lx, ly, lz int

	// Fourier transforms of the six independent tensor components in the
	// order xx, yy, zz, xy, xz, yz.
	kernel [6][]complex128

	mk [3][]complex128
	hk []complex128
}

func NewDemag() *Demag { return &Demag{} }

func (d *Demag) Name() string { return "demag" }

func (d *Demag) Setup(m *mesh.Mesh, spin []float64, sc micromag.SetupContext) error {
	if err := d.bind(m, spin, sc); err != nil {
		return err
	}
	d.nx, d.ny, d.nz = m.Nx, m.Ny, m.Nz
	d.lx, d.ly, d.lz = padded(m.Nx), padded(m.Ny), padded(m.Nz)

	size := d.lx * d.ly * d.lz
	for a := range d.mk {
		d.mk[a] = make([]complex128, size)
	}
	d.hk = make([]complex128, size)

	d.buildKernel()
	return nil
}

func padded(n int) int {
	if n == 1 {
		return 1
	}
	return 2*n - 1
}

// tensor returns the dipolar coupling for a separation of (di, dj, dk) cells.
func (d *Demag) tensor(di, dj, dk int) [6]float64 {
	if di == 0 && dj == 0 && dk == 0 {
		return [6]float64{}
	}
	u := d.unit
	x := float64(di) * d.mesh.Dx * u
	y := float64(dj) * d.mesh.Dy * u
	z := float64(dk) * d.mesh.Dz * u
	r2 := x*x + y*y + z*z
	r := math.Sqrt(r2)
	c := MuZeroOver4Pi * d.muS / (r2 * r)
	return [6]float64{
		c * (3*x*x/r2 - 1),
		c * (3*y*y/r2 - 1),
		c * (3*z*z/r2 - 1),
		c * 3 * x * y / r2,
		c * 3 * x * z / r2,
		c * 3 * y * z / r2,
	}
}

func wrapOffset(o, l int) int {
	if o < 0 {
		return o + l
	}
	return o
}

func (d *Demag) buildKernel() {
	size := d.lx * d.ly * d.lz
	for c := range d.kernel {
		d.kernel[c] = make([]complex128, size)
	}

	for dk := -(d.nz - 1); dk < d.nz; dk++ {
		for dj := -(d.ny - 1); dj < d.ny; dj++ {
			for di := -(d.nx - 1); di < d.nx; di++ {
				t := d.tensor(di, dj, dk)
				idx := d.gridIndex(wrapOffset(di, d.lx), wrapOffset(dj, d.ly), wrapOffset(dk, d.lz))
				for c := range t {
					d.kernel[c][idx] = complex(t[c], 0)
				}
			}
		}
	}

	for c := range d.kernel {
		d.transform(d.kernel[c], false)
	}
}

func (d *Demag) gridIndex(i, j, k int) int {
	return (k*d.ly+j)*d.lx + i
}

// transform applies a 3D FFT in place, one axis at a time. The inverse is
// normalised by go-dsp.
func (d *Demag) transform(grid []complex128, inverse bool) {
	do := fft.FFT
	if inverse {
		do = fft.IFFT
	}

	lines := func(length, count int, index func(line, p int) int) {
		if length == 1 {
			return
		}
		buf := make([]complex128, length)
		for line := 0; line < count; line++ {
			for p := 0; p < length; p++ {
				buf[p] = grid[index(line, p)]
			}
			out := do(buf)
			for p := 0; p < length; p++ {
				grid[index(line, p)] = out[p]
			}
		}
	}

	lx, ly, lz := d.lx, d.ly, d.lz
	lines(lx, ly*lz, func(line, p int) int { return line*lx + p })
	lines(ly, lx*lz, func(line, p int) int {
		i, k := line%lx, line/lx
		return (k*ly+p)*lx + i
	})
	lines(lz, lx*ly, func(line, p int) int { return p*lx*ly + line })
}

// ComputeField convolves the padded spin grid with the dipolar kernel.
func (d *Demag) ComputeField() []float64 {
	n := d.n
	for a := 0; a < 3; a++ {
		grid := d.mk[a]
		for i := range grid {
			grid[i] = 0
		}
		for site := 0; site < n; site++ {
			i, j, k := d.mesh.Coords(site)
			grid[d.gridIndex(i, j, k)] = complex(d.spin[a*n+site], 0)
		}
		d.transform(grid, false)
	}

	// component indices into kernel for row a, column b
	row := [3][3]int{{0, 3, 4}, {3, 1, 5}, {4, 5, 2}}
	for a := 0; a < 3; a++ {
		for p := range d.hk {
			var s complex128
			for b := 0; b < 3; b++ {
				s += d.kernel[row[a][b]][p] * d.mk[b][p]
			}
			d.hk[p] = s
		}
		d.transform(d.hk, true)
		for site := 0; site < n; site++ {
			i, j, k := d.mesh.Coords(site)
			d.field[a*n+site] = real(d.hk[d.gridIndex(i, j, k)])
		}
	}
	return d.field
}

// ComputeExact evaluates the dipolar sum directly. It is O(N²) and intended
// as a reference for ComputeField.
func (d *Demag) ComputeExact() []float64 {
	n := d.n
	out := make([]float64, 3*n)

	mesh.ParallelFor(n, 16, func(start, end int) {
		for i := start; i < end; i++ {
			ii, ij, ik := d.mesh.Coords(i)
			var h mesh.Vec3
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				ji, jj, jk := d.mesh.Coords(j)
				t := d.tensor(ii-ji, ij-jj, ik-jk)
				m := d.at(d.spin, j)
				h[0] += t[0]*m[0] + t[3]*m[1] + t[4]*m[2]
				h[1] += t[3]*m[0] + t[1]*m[1] + t[5]*m[2]
				h[2] += t[4]*m[0] + t[5]*m[1] + t[2]*m[2]
			}
			out[i], out[n+i], out[2*n+i] = h[0], h[1], h[2]
		}
	})
	return out
}

// ComputeEnergy is not implemented for the dipolar term and reports zero.
func (d *Demag) ComputeEnergy() float64 { return 0 }
