package micromag

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrConfiguration indicates malformed input such as a wrong buffer length
	// or an interaction added twice.
	ErrConfiguration = errors.New("micromag: invalid configuration")

	// ErrNormalization indicates a site with zero magnitude.
	ErrNormalization = errors.New("micromag: cannot normalize zero spin")

	// ErrIntegration indicates the integrator failed before reaching its target.
	ErrIntegration = errors.New("micromag: integration failed")

	// ErrNotConverged indicates the minimizer exhausted its step budget.
	ErrNotConverged = errors.New("micromag: minimizer did not converge")
)

// NormalizationError reports the first degenerate site.
type NormalizationError struct {
	Site int
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("%s (site %d)", ErrNormalization, e.Site)
}

func (e *NormalizationError) Unwrap() error {
	return ErrNormalization
}

// IntegrationError wraps an integrator failure with the time reached. The
// spin buffer holds the state at Time.
type IntegrationError struct {
	Time    float64
	Target  float64
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%s at t=%g (target %g): %v", ErrIntegration, e.Time, e.Target, e.Wrapped)
}

func (e *IntegrationError) Is(target error) bool {
	return target == ErrIntegration
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}
