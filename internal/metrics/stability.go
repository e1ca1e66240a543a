package metrics

import "math"

// NormDeviation tracks how far spins stray from unit length. Value is the
// largest |1 - |m|| seen on any site at any observed step.
type NormDeviation struct {
	name      string
	threshold float64
	max       float64

	violations int
	samples    int
}

func NewNormDeviation(threshold float64) *NormDeviation {
	return &NormDeviation{
		name:      "norm_deviation",
		threshold: threshold,
	}
}

func (s *NormDeviation) Name() string {
	return s.name
}

func (s *NormDeviation) Observe(spin []float64, t float64) {
	n := len(spin) / 3
	s.samples++

	violated := false
	for i := 0; i < n; i++ {
		r := math.Sqrt(spin[i]*spin[i] + spin[n+i]*spin[n+i] + spin[2*n+i]*spin[2*n+i])
		dev := math.Abs(1 - r)
		s.max = math.Max(s.max, dev)
		if dev > s.threshold {
			violated = true
		}
	}
	if violated {
		s.violations++
	}
}

func (s *NormDeviation) Value() float64 {
	return s.max
}

// Stability is the fraction of observed steps with every site within the
// threshold.
func (s *NormDeviation) Stability() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *NormDeviation) Reset() {
	s.max = 0
	s.violations = 0
	s.samples = 0
}
