package metrics

import "math"

// EnergySource reports the current total energy, typically
// Simulation.ComputeEnergy.
type EnergySource func() float64

// Energy is the time average of the total energy over observed steps.
type Energy struct {
	name    string
	source  EnergySource
	samples int
	total   float64
}

func NewEnergy(source EnergySource) *Energy {
	return &Energy{
		name:   "energy",
		source: source,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(spin []float64, t float64) {
	e.total += e.source()
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}

// EnergyDrift is the largest relative departure from the first observed
// energy. Undamped precession should keep it near zero.
type EnergyDrift struct {
	name     string
	source   EnergySource
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift(source EnergySource) *EnergyDrift {
	return &EnergyDrift{
		name:   "energy_drift",
		source: source,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(spin []float64, t float64) {
	energy := e.source()

	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}
