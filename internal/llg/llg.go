package llg

import "math"

// Cross returns a × b.
func Cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func Dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// RHS writes dm/dτ into dmdt, where τ = c·t. The field is divided by the unit
// moment mu before entering the torque. A relaxation term k(1-|m|²)m with
// k = 6|torque| pulls drifting spins back onto the unit sphere and vanishes
// wherever the torque does.
func RHS(dmdt, spin, field []float64, gamma, alpha, mu, c float64) {
	n := len(spin) / 3
	coeff := -gamma / (1 + alpha*alpha) / c

	for i := 0; i < n; i++ {
		m := [3]float64{spin[i], spin[n+i], spin[2*n+i]}
		h := [3]float64{field[i] / mu, field[n+i] / mu, field[2*n+i] / mu}

		mxh := Cross(m, h)
		mxmxh := Cross(m, mxh)

		var d [3]float64
		for a := 0; a < 3; a++ {
			d[a] = coeff * (mxh[a] + alpha*mxmxh[a])
		}

		k := 6 * math.Sqrt(Dot(d, d))
		relax := k * (1 - Dot(m, m))

		dmdt[i] = d[0] + relax*m[0]
		dmdt[n+i] = d[1] + relax*m[1]
		dmdt[2*n+i] = d[2] + relax*m[2]
	}
}

// StochasticRHS writes dm/dt in real time for the effective field
// field/mu + noise. No relaxation term is applied; the stochastic scheme
// renormalises after every step instead.
func StochasticRHS(dmdt, spin, field, noise []float64, gamma, alpha, mu float64) {
	n := len(spin) / 3
	coeff := -gamma / (1 + alpha*alpha)

	for i := 0; i < n; i++ {
		m := [3]float64{spin[i], spin[n+i], spin[2*n+i]}
		h := [3]float64{
			field[i]/mu + noise[i],
			field[n+i]/mu + noise[n+i],
			field[2*n+i]/mu + noise[2*n+i],
		}

		mxh := Cross(m, h)
		mxmxh := Cross(m, mxh)

		dmdt[i] = coeff * (mxh[0] + alpha*mxmxh[0])
		dmdt[n+i] = coeff * (mxh[1] + alpha*mxmxh[1])
		dmdt[2*n+i] = coeff * (mxh[2] + alpha*mxmxh[2])
	}
}

// Norm is the length of (x, y, z) without intermediate underflow or
// overflow.
func Norm(x, y, z float64) float64 {
	return math.Hypot(math.Hypot(x, y), z)
}

// Normalize rescales every site of spin to unit length. If any site has a
// zero or non-finite magnitude nothing is modified and that site is
// returned; otherwise -1.
func Normalize(spin []float64) int {
	n := len(spin) / 3
	for i := 0; i < n; i++ {
		norm := Norm(spin[i], spin[n+i], spin[2*n+i])
		if norm == 0 || math.IsInf(norm, 0) || math.IsNaN(norm) {
			return i
		}
	}

	for i := 0; i < n; i++ {
		norm := Norm(spin[i], spin[n+i], spin[2*n+i])
		spin[i] /= norm
		spin[n+i] /= norm
		spin[2*n+i] /= norm
	}
	return -1
}
