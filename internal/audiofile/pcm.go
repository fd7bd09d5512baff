package audiofile

import (
	"fmt"
	"math"
)

// fullScale returns the integer full-scale value for a PCM bit depth.
func fullScale(bitDepth int) (float64, error) {
	switch bitDepth {
	case bitsPerSample8:
		return maxInt8, nil
	case bitsPerSample16:
		return maxInt16, nil
	case bitsPerSample24:
		return maxInt24, nil
	case bitsPerSample32:
		return maxInt32, nil
	default:
		return 0, fmt.Errorf("%w: %d-bit PCM", ErrUnsupportedBitDepth, bitDepth)
	}
}

// pcmToFloat converts signed integer samples to float64 in [-1, 1].
func pcmToFloat(data []int, bitDepth int) ([]float64, error) {
	maxVal, err := fullScale(bitDepth)
	if err != nil {
		return nil, err
	}

	invMaxVal := 1.0 / maxVal
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v) * invMaxVal
	}
	return out, nil
}

// floatToPCM converts float samples to signed integers, clamping to [-1, 1]
// and rounding to the nearest step.
func floatToPCM(samples []float64, bitDepth int) ([]int, error) {
	maxVal, err := fullScale(bitDepth)
	if err != nil {
		return nil, err
	}

	out := make([]int, len(samples))
	for i, s := range samples {
		if math.IsNaN(s) {
			s = 0
		}
		s = max(-1.0, min(1.0, s))
		out[i] = int(math.Round(s * maxVal))
	}
	return out, nil
}
