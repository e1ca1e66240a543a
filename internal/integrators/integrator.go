// Package integrators advances flat state buffers in time.
//
// Two strategies share the [Integrator] contract:
//
//   - [Adaptive]: Dormand-Prince 5(4) with embedded error control, driven by
//     a right-hand-side callback
//   - [Heun]: fixed-step stochastic predictor/corrector for the LLG
//     equation, driven by a field callback and a noise source
package integrators

import "errors"

var (
	// ErrStepBudget indicates MaxSteps attempts did not reach the target.
	ErrStepBudget = errors.New("integrators: step budget exhausted before target")

	// ErrStepTooSmall indicates the adaptive step collapsed below resolution.
	ErrStepTooSmall = errors.New("integrators: adaptive timestep below minimum")

	// ErrNonFinite indicates NaN or Inf in the trial state.
	ErrNonFinite = errors.New("integrators: non-finite state")

	// ErrNotSucceeded is returned when integrating after an earlier failure.
	ErrNotSucceeded = errors.New("integrators: previous integration failed")
)

// Integrator is the contract the simulation driver depends on. Times are
// always real simulation time.
type Integrator interface {
	SetInitialValue(y []float64, t float64)
	Integrate(t float64) error
	Time() float64
	State() []float64
	Succeeded() bool
}

// RHSFunc writes dy/dt evaluated at (t, y) into dydt.
type RHSFunc func(t float64, y, dydt []float64)

// FieldFunc returns the effective field for the state y. The returned slice
// may be reused by the next call.
type FieldFunc func(y []float64) []float64

// StepObserver is notified after every accepted step.
type StepObserver func(t float64, y []float64)

// Stats counts work done since the last SetInitialValue.
type Stats struct {
	Steps       int
	Rejected    int
	Evaluations int
	LastStep    float64
}

func isFinite(y []float64) bool {
	for _, v := range y {
		if v-v != 0 {
			return false
		}
	}
	return true
}
