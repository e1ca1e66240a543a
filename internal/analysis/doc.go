// Package analysis extracts frequencies from sampled magnetisation
// trajectories.
//
//   - [Spectrum]: one-sided amplitude spectrum of a uniformly sampled series
//   - [DominantFrequency]: strongest non-DC component, interpolated
//   - [UniformStep]: checkpoint spacing of a stored run
//
// # Resonance
//
// A damped spin in a static field precesses at the Larmor frequency
// γB/2π. The averaged ⟨m_x⟩(t) of a run shows it as the dominant peak:
//
//	dt, _ := analysis.UniformStep(rec.Times)
//	f, _ := analysis.DominantFrequency(mx, dt)
package analysis
