package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

var ErrTooShort = errors.New("analysis: too few samples")

// minSamples is the shortest series with a non-DC bin on each side of a peak.
const minSamples = 4

type Spectrum struct {
	Freqs     []float64
	Amplitude []float64
}

// NewSpectrum windows samples with a Hann window after removing the mean and
// returns the one-sided amplitude spectrum. dt is the sample spacing in
// seconds.
func NewSpectrum(samples []float64, dt float64) (*Spectrum, error) {
	n := len(samples)
	if n < minSamples {
		return nil, fmt.Errorf("%w: %d", ErrTooShort, n)
	}
	if !(dt > 0) {
		return nil, fmt.Errorf("analysis: sample spacing %g", dt)
	}

	x := make([]float64, n)
	copy(x, samples)
	floats.AddConst(-floats.Sum(x)/float64(n), x)
	window.Apply(x, window.Hann)

	out := fft.FFTReal(x)
	half := n/2 + 1
	s := &Spectrum{
		Freqs:     make([]float64, half),
		Amplitude: make([]float64, half),
	}
	df := 1 / (float64(n) * dt)
	for k := 0; k < half; k++ {
		s.Freqs[k] = float64(k) * df
		s.Amplitude[k] = cmplx.Abs(out[k])
	}
	return s, nil
}

// Peak returns the bin with the largest amplitude, ignoring DC.
func (s *Spectrum) Peak() int {
	best := 1
	for k := 2; k < len(s.Amplitude); k++ {
		if s.Amplitude[k] > s.Amplitude[best] {
			best = k
		}
	}
	return best
}

// DominantFrequency locates the spectral peak of samples and refines it by
// fitting a parabola through the peak and its neighbours.
func DominantFrequency(samples []float64, dt float64) (float64, error) {
	s, err := NewSpectrum(samples, dt)
	if err != nil {
		return 0, err
	}

	k := s.Peak()
	df := s.Freqs[1]
	if k+1 >= len(s.Amplitude) {
		return s.Freqs[k], nil
	}

	a, b, c := s.Amplitude[k-1], s.Amplitude[k], s.Amplitude[k+1]
	den := a - 2*b + c
	if den == 0 {
		return s.Freqs[k], nil
	}
	p := 0.5 * (a - c) / den
	return (float64(k) + p) * df, nil
}

// UniformStep returns the spacing of times, which must be evenly spaced to a
// relative tolerance of 1e-6.
func UniformStep(times []float64) (float64, error) {
	if len(times) < 2 {
		return 0, fmt.Errorf("%w: %d", ErrTooShort, len(times))
	}
	dt := (times[len(times)-1] - times[0]) / float64(len(times)-1)
	if !(dt > 0) {
		return 0, fmt.Errorf("analysis: times do not increase")
	}
	for i := 1; i < len(times); i++ {
		if math.Abs(times[i]-times[i-1]-dt) > 1e-6*dt {
			return 0, fmt.Errorf("analysis: uneven spacing at sample %d", i)
		}
	}
	return dt, nil
}
