package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

var axisNames = [3]string{"x", "y", "z"}

// Magnetisation is the time average of one component of the mean spin.
type Magnetisation struct {
	axis    int
	sum     float64
	last    float64
	samples int
}

func NewMagnetisation(axis int) *Magnetisation {
	if axis < 0 || axis > 2 {
		panic(fmt.Sprintf("metrics: axis %d out of range", axis))
	}
	return &Magnetisation{axis: axis}
}

func (m *Magnetisation) Name() string { return "m" + axisNames[m.axis] }

func (m *Magnetisation) Observe(spin []float64, t float64) {
	n := len(spin) / 3
	if n == 0 {
		return
	}
	m.last = floats.Sum(spin[m.axis*n:(m.axis+1)*n]) / float64(n)
	m.sum += m.last
	m.samples++
}

func (m *Magnetisation) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

// Last is the mean component at the most recent observed step.
func (m *Magnetisation) Last() float64 { return m.last }

func (m *Magnetisation) Reset() {
	m.sum = 0
	m.last = 0
	m.samples = 0
}
