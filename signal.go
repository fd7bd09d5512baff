package reverb

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/tphakala/go-convolution-reverb/internal/simdops"
)

// Signal is an immutable multi-channel audio signal held as de-interleaved
// per-channel sample slices. All channels have the same frame count.
//
// Constructors copy their input and accessors return copies, so a Signal
// cannot be changed once built.
type Signal struct {
	sampleRate int
	channels   [][]float64
	frames     int
}

// NewSignal builds a Signal from per-channel sample slices.
func NewSignal(sampleRate int, channels ...[]float64) (*Signal, error) {
	if err := checkShape(sampleRate, len(channels)); err != nil {
		return nil, err
	}

	frames := len(channels[0])
	owned := make([][]float64, len(channels))
	for ch, samples := range channels {
		if len(samples) != frames {
			return nil, fmt.Errorf("%w: channel %d has %d frames, channel 0 has %d",
				ErrInvalidSignal, ch, len(samples), frames)
		}
		owned[ch] = slices.Clone(samples)
		if owned[ch] == nil {
			owned[ch] = []float64{}
		}
	}

	return newSignalOwned(sampleRate, owned), nil
}

// NewSignalFromInterleaved builds a Signal from frame-interleaved samples
// (L R L R ... for stereo).
func NewSignalFromInterleaved(sampleRate, numChannels int, samples []float64) (*Signal, error) {
	if err := checkShape(sampleRate, numChannels); err != nil {
		return nil, err
	}
	if len(samples)%numChannels != 0 {
		return nil, fmt.Errorf("%w: %d samples is not a multiple of %d channels",
			ErrInvalidSignal, len(samples), numChannels)
	}

	frames := len(samples) / numChannels
	channels := make([][]float64, numChannels)
	for ch := range numChannels {
		channels[ch] = make([]float64, frames)
	}
	deinterleaveInto(samples, channels, numChannels, frames)

	return newSignalOwned(sampleRate, channels), nil
}

// newSignalOwned wraps channels without copying. The caller hands over ownership.
func newSignalOwned(sampleRate int, channels [][]float64) *Signal {
	frames := 0
	if len(channels) > 0 {
		frames = len(channels[0])
	}
	return &Signal{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     frames,
	}
}

func checkShape(sampleRate, numChannels int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidSignal, sampleRate)
	}
	if numChannels < 1 {
		return fmt.Errorf("%w: at least one channel is required, got %d", ErrInvalidSignal, numChannels)
	}
	return nil
}

// SampleRate returns the sample rate in Hz.
func (s *Signal) SampleRate() int { return s.sampleRate }

// ChannelCount returns the number of channels.
func (s *Signal) ChannelCount() int { return len(s.channels) }

// FrameCount returns the number of frames (samples per channel).
func (s *Signal) FrameCount() int { return s.frames }

// Duration returns the playback length of the signal.
func (s *Signal) Duration() time.Duration {
	return time.Duration(s.frames) * time.Second / time.Duration(s.sampleRate)
}

// Channel returns a copy of channel i. It panics if i is out of range.
func (s *Signal) Channel(i int) []float64 {
	return slices.Clone(s.channels[i])
}

// channel returns channel i without copying. Callers must not modify it.
func (s *Signal) channel(i int) []float64 {
	return s.channels[i]
}

// Interleaved returns the samples in frame-interleaved order.
func (s *Signal) Interleaved() []float64 {
	numChannels := len(s.channels)
	out := make([]float64, s.frames*numChannels)

	switch numChannels {
	case monoChannels:
		copy(out, s.channels[0])
	case stereoChannels:
		simdops.Float64Ops().Interleave2(out, s.channels[0], s.channels[1])
	default:
		for i := range s.frames {
			base := i * numChannels
			for ch := range numChannels {
				out[base+ch] = s.channels[ch][i]
			}
		}
	}

	return out
}

// Peak returns the largest absolute sample value across all channels.
func (s *Signal) Peak() float64 {
	return peakOf(s.channels)
}

func peakOf(channels [][]float64) float64 {
	var peak float64
	for _, ch := range channels {
		for _, v := range ch {
			peak = math.Max(peak, math.Abs(v))
		}
	}
	return peak
}

// deinterleaveInto splits interleaved samples into preallocated per-channel buffers.
func deinterleaveInto(data []float64, channelBufs [][]float64, numChannels, frames int) {
	// Fast path for mono
	if numChannels == monoChannels {
		copy(channelBufs[0], data[:frames])
		return
	}

	// Fast path for stereo
	if numChannels == stereoChannels {
		left, right := channelBufs[0], channelBufs[1]
		for i := range frames {
			idx := i * stereoChannels
			left[i] = data[idx]
			right[i] = data[idx+1]
		}
		return
	}

	// General case
	for i := range frames {
		base := i * numChannels
		for ch := range numChannels {
			channelBufs[ch][i] = data[base+ch]
		}
	}
}
