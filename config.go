package reverb

import (
	"fmt"
	"math"
	"strings"

	"github.com/tphakala/go-convolution-reverb/internal/engine"
)

// Method selects the convolution algorithm.
type Method int

const (
	// MethodAuto uses direct convolution for short impulse responses and FFT
	// overlap-save for long ones.
	MethodAuto Method = iota

	// MethodDirect forces time-domain convolution. Cost grows with N*M.
	MethodDirect

	// MethodFFT forces FFT overlap-save convolution.
	MethodFFT
)

// String returns the name used in configuration files and flags.
func (m Method) String() string {
	switch m {
	case MethodAuto:
		return "auto"
	case MethodDirect:
		return "direct"
	case MethodFFT:
		return "fft"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod parses a name produced by Method.String. Empty means auto.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return MethodAuto, nil
	case "direct":
		return MethodDirect, nil
	case "fft":
		return MethodFFT, nil
	default:
		return MethodAuto, fmt.Errorf("%w: unknown method %q", ErrInvalidConfig, s)
	}
}

// methodToEngine converts a Method to engine.Method.
func methodToEngine(m Method) engine.Method {
	switch m {
	case MethodDirect:
		return engine.MethodDirect
	case MethodFFT:
		return engine.MethodFFT
	default:
		return engine.MethodAuto
	}
}

// Normalize selects how the assembled output is scaled before gain.
type Normalize int

const (
	// NormalizeNone leaves the convolution result unscaled. Samples may exceed [-1, 1].
	NormalizeNone Normalize = iota

	// NormalizePeak scales all channels jointly so the largest magnitude is 1.0.
	NormalizePeak

	// NormalizeIREnergy divides by the L2 norm of the (prepared) IR, so a
	// full-scale sine keeps roughly its level through the reverb.
	NormalizeIREnergy
)

// String returns the name used in configuration files and flags.
func (n Normalize) String() string {
	switch n {
	case NormalizeNone:
		return "none"
	case NormalizePeak:
		return "peak"
	case NormalizeIREnergy:
		return "ir-energy"
	default:
		return fmt.Sprintf("Normalize(%d)", int(n))
	}
}

// ParseNormalize parses a name produced by Normalize.String. Empty means none.
func ParseNormalize(s string) (Normalize, error) {
	switch strings.ToLower(s) {
	case "", "none", "off":
		return NormalizeNone, nil
	case "peak":
		return NormalizePeak, nil
	case "ir-energy", "energy":
		return NormalizeIREnergy, nil
	default:
		return NormalizeNone, fmt.Errorf("%w: unknown normalization %q", ErrInvalidConfig, s)
	}
}

// Config holds convolution reverb configuration.
type Config struct {
	// Method selects the convolution algorithm.
	Method Method

	// Parallel convolves the two pairings of a stereo plan concurrently.
	// Has no effect on mono output. Output does not depend on this setting.
	Parallel bool

	// Workers is the number of goroutines used inside a single FFT
	// convolution, independent of Parallel. Values below 2 run sequentially.
	Workers int

	// Downmix selects how a stereo IR is folded for mono audio.
	Downmix Downmix

	// Normalize selects output normalization. Default is none.
	Normalize Normalize

	// Gain is a linear multiplier applied after normalization.
	// Zero means unity gain.
	Gain float64

	// Clip hard-limits samples to [-1, 1] after gain.
	Clip bool

	// MaxOutputFrames rejects convolutions whose per-channel output would be
	// longer, with an *AllocationError. Zero means no limit.
	MaxOutputFrames int
}

// DefaultConfig returns the configuration used when none is given:
// automatic method, sequential, summed IR downmix, no normalization.
func DefaultConfig() *Config {
	return &Config{
		Method:    MethodAuto,
		Downmix:   DownmixSum,
		Normalize: NormalizeNone,
		Gain:      unityGain,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Method < MethodAuto || c.Method > MethodFFT {
		return fmt.Errorf("%w: unknown method %d", ErrInvalidConfig, int(c.Method))
	}

	if c.Downmix != DownmixSum && c.Downmix != DownmixAverage {
		return fmt.Errorf("%w: unknown IR downmix %d", ErrInvalidConfig, int(c.Downmix))
	}

	if c.Normalize < NormalizeNone || c.Normalize > NormalizeIREnergy {
		return fmt.Errorf("%w: unknown normalization %d", ErrInvalidConfig, int(c.Normalize))
	}

	if c.Gain < 0 || math.IsNaN(c.Gain) || math.IsInf(c.Gain, 0) {
		return fmt.Errorf("%w: gain must be a finite non-negative number, got %v", ErrInvalidConfig, c.Gain)
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}

	if c.MaxOutputFrames < 0 {
		return fmt.Errorf("%w: max output frames must not be negative", ErrInvalidConfig)
	}

	return nil
}

func (c *Config) engineOptions() engine.Options {
	return engine.Options{
		Method:          methodToEngine(c.Method),
		Workers:         c.Workers,
		MaxOutputLength: c.MaxOutputFrames,
	}
}

func (c *Config) gain() float64 {
	if c.Gain == 0 {
		return unityGain
	}
	return c.Gain
}
