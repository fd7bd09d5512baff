package reverb

// Channel constants
const (
	monoChannels   = 1 // Mono channel count
	stereoChannels = 2 // Stereo channel count (used by interleave functions)
)

// Output policy constants
const (
	clipCeiling   = 1.0 // Full-scale sample magnitude used by clipping and peak normalization
	unityGain     = 1.0 // Gain applied when Config.Gain is zero
	averageFactor = 0.5 // Scale applied to the summed IR channels for DownmixAverage
)
