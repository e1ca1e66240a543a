// Package llg evaluates the Landau-Lifshitz-Gilbert equation on flat,
// component-major spin buffers: for N sites, component a of site i lives at
// index a*N + i.
//
//   - [RHS]: deterministic right-hand side in scaled time, with a
//     norm-restoring relaxation term
//   - [StochasticRHS]: real-time right-hand side with an added noise field
//   - [Cross]: the cross product used by both and by field minimizers
package llg
