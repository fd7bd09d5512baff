package engine

// Method selection constants
const (
	// Minimum length of the shorter operand to use FFT convolution.
	// Benchmarking shows crossover around 400-500 taps with gonum FFT.
	minKernelForFFT = 400
)

// FFT convolution constants
const (
	// Smallest FFT size used by the overlap-save convolver (power of 2).
	defaultFFTBlockSize = 512

	// The FFT size is grown until it holds at least this many kernel lengths.
	fftKernelMultiple = 2

	// fftHermitianDivisor is used to calculate unique frequency bins in real FFT.
	// Due to Hermitian symmetry, a real FFT of size N has N/2 + 1 unique complex coefficients.
	fftHermitianDivisor = 2
)

// Direct convolution constants
const (
	// Output samples computed between context checks.
	directChunkSize = 1 << 16
)
