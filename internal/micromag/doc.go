// Package micromag drives atomistic spin dynamics on a finite-difference
// mesh by integrating the Landau-Lifshitz-Gilbert equation.
//
// The package defines the driver and the contracts it composes:
//
//   - [Simulation]: owns the spin buffer, the field buffer, the attached
//     interactions and the active integrator
//   - [Interaction]: a field term bound once to a mesh and the live spin
//     buffer, queried with ComputeField on every evaluation
//   - [Source] and [Scalar]: initial magnetisation and temperature inputs
//   - [Minimizer]: steepest-descent relaxation using the same field
//     composition
//
// # Buffer layout
//
// Spin and field buffers hold N three-component vectors component-major:
// component a of site i lives at [Index](N, i, a) = a*N + i.
//
// # Integrator selection
//
// A zero temperature field selects an adaptive Dormand-Prince integrator
// working in scaled time τ = c·t. Any positive temperature selects a
// fixed-step stochastic Heun scheme. The choice is re-derived whenever the
// material, temperature or integrator options change.
//
// # Example
//
//	m, _ := mesh.New(mesh.Config{Nx: 3, Ny: 1, Nz: 1, Dx: 1, Dy: 1, Dz: 1})
//	sim := micromag.New(m)
//	_ = sim.SetM(micromag.Uniform(0, 0, 1), true)
//	_ = sim.Add(interactions.NewZeeman(mesh.Vec3{0, 1, 0}))
//	err := sim.RunUntil(1e-12)
//
// # Thread Safety
//
// Simulation instances are NOT thread-safe. Run independent simulations in
// separate goroutines instead of sharing one.
package micromag
