// Package interactions provides the reference field terms attached to a
// micromag.Simulation: Zeeman, nearest-neighbour exchange, anisotropy and
// dipolar demagnetisation.
//
// Every term follows the same lifecycle. Setup binds it to a mesh and the
// live spin buffer, after which ComputeField reads that buffer and returns
// the term's own field buffer. The returned slice is reused between calls.
package interactions
