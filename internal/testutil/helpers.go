// Package testutil provides reusable test helpers for convolution reverb tests.
package testutil

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Default tolerances for various test scenarios.
const (
	DefaultTolerance = 1e-10
	FFTTolerance     = 1e-9
	Float32Tolerance = 1e-4
	PCM16Tolerance   = 2.0 / 32767.0
	PCM24Tolerance   = 2.0 / 8388607.0
)

// AssertSamplesInDelta verifies that two sample slices have equal length and
// agree element-wise within tolerance.
func AssertSamplesInDelta(t *testing.T, expected, actual []float64, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Len(t, actual, len(expected), msgAndArgs...) {
		return false
	}
	for i := range expected {
		if !assert.InDelta(t, expected[i], actual[i], tolerance,
			"sample %d: expected %g, got %g", i, expected[i], actual[i]) {
			return false
		}
	}
	return true
}

// AssertSamplesClose verifies element-wise agreement with a tolerance scaled
// by the peak magnitude of expected, so long convolutions with large sums are
// compared on a relative scale.
func AssertSamplesClose(t *testing.T, expected, actual []float64, relTolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	scale := math.Max(1, Peak(expected))
	return AssertSamplesInDelta(t, expected, actual, relTolerance*scale, msgAndArgs...)
}

// AssertAllZero verifies that every element of s is exactly zero.
func AssertAllZero(t *testing.T, s []float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v != 0 {
			return assert.Fail(t, "expected silence", "s[%d]=%g is not zero", i, v)
		}
	}
	return true
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertAllInRange verifies that all elements are within [min, max].
func AssertAllInRange(t *testing.T, s []float64, minVal, maxVal float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v < minVal || v > maxVal {
			return assert.Fail(t, "value out of range",
				"s[%d]=%f is outside range [%f, %f]", i, v, minVal, maxVal)
		}
	}
	return true
}

// Peak returns the largest absolute value in s.
func Peak(s []float64) float64 {
	var peak float64
	for _, v := range s {
		peak = math.Max(peak, math.Abs(v))
	}
	return peak
}

// ReferenceConvolve is a plain nested-loop linear convolution used as ground truth.
func ReferenceConvolve(x, h []float64) []float64 {
	if len(x) == 0 || len(h) == 0 {
		return []float64{}
	}
	y := make([]float64, len(x)+len(h)-1)
	for i, xv := range x {
		for j, hv := range h {
			y[i+j] += xv * hv
		}
	}
	return y
}

// RandomSignal returns n deterministic pseudo-random samples in [-1, 1).
func RandomSignal(n int, seed uint64) []float64 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	s := make([]float64, n)
	for i := range s {
		s[i] = r.Float64()*2 - 1
	}
	return s
}

// DecayingNoise returns a synthetic impulse response: noise under an
// exponential envelope reaching -60 dB at the last sample.
func DecayingNoise(n int, seed uint64) []float64 {
	s := RandomSignal(n, seed)
	if n == 0 {
		return s
	}
	decay := math.Log(1e-3) / float64(n)
	for i := range s {
		s[i] *= math.Exp(decay * float64(i))
	}
	return s
}

// Sine returns n samples of a sine wave at freq Hz for the given sample rate.
func Sine(n int, freq, sampleRate, amplitude float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return s
}

// Add returns the element-wise sum of a and b, zero-padding the shorter one.
func Add(a, b []float64) []float64 {
	out := make([]float64, max(len(a), len(b)))
	copy(out, a)
	for i, v := range b {
		out[i] += v
	}
	return out
}
