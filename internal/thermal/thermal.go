// Package thermal generates the stochastic field used by finite-temperature
// LLG integration.
package thermal

import (
	"math"
	"math/rand"
)

// Boltzmann is k_B in J/K.
const Boltzmann = 1.3806505e-23

// Gaussian draws an independent normal thermal field per site and component
// with variance 2 α k_B T / (γ μ_s dt).
type Gaussian struct {
	rng   *rand.Rand
	temps []float64
	alpha float64
	gamma float64
	muS   float64
}

// NewGaussian binds a noise source to the per-site temperatures. The slice is
// read on every Fill, so later updates to it are picked up.
func NewGaussian(seed int64, temps []float64, alpha, gamma, muS float64) *Gaussian {
	return &Gaussian{
		rng:   rand.New(rand.NewSource(seed)),
		temps: temps,
		alpha: alpha,
		gamma: gamma,
		muS:   muS,
	}
}

func (g *Gaussian) Fill(eta []float64, dt float64) {
	n := len(g.temps)
	base := 2 * g.alpha * Boltzmann / (g.gamma * g.muS * dt)

	for i := 0; i < n; i++ {
		sigma := 0.0
		if g.temps[i] > 0 {
			sigma = math.Sqrt(base * g.temps[i])
		}
		eta[i] = sigma * g.rng.NormFloat64()
		eta[n+i] = sigma * g.rng.NormFloat64()
		eta[2*n+i] = sigma * g.rng.NormFloat64()
	}
}

// Amplitude returns the standard deviation of one noise component at
// temperature T for step dt.
func (g *Gaussian) Amplitude(T, dt float64) float64 {
	if T <= 0 {
		return 0
	}
	return math.Sqrt(2 * g.alpha * Boltzmann * T / (g.gamma * g.muS * dt))
}
