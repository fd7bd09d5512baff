package engine

import (
	"context"
	"fmt"

	"github.com/tphakala/simd/c128"
	"github.com/tphakala/simd/f64"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tphakala/go-convolution-reverb/internal/simdops"
)

// FFTConvolver performs overlap-save FFT convolution against a fixed kernel.
// This is O(N log M) vs O(N×M) for direct convolution, beneficial for long kernels.
//
// Overlap-save method for the full linear convolution:
//  1. The signal is viewed with kernelLen-1 zeros prepended and appended
//  2. Block b reads fftSize samples of that view starting at b*blockSize
//  3. The first kernelLen-1 circular outputs of each block wrap around and are discarded;
//     the remaining blockSize = fftSize - kernelLen + 1 samples are y[b*blockSize:]
//
// Each block owns a disjoint range of the output, so blocks can be computed
// by independent workers without synchronization.
type FFTConvolver struct {
	fftSize   int
	blockSize int // Valid output samples per block = fftSize - kernelLen + 1
	fftLen    int // Length of FFT output = fftSize/2 + 1

	// Precomputed kernel in frequency domain, shared read-only by all workers
	kernelFFT []complex128
	kernelLen int
	scale     float64 // 1/fftSize for IFFT normalization (gonum doesn't normalize)
}

// fftWorker holds the per-goroutine FFT plan and scratch buffers.
// gonum FFT plans keep internal work space and must not be shared.
type fftWorker struct {
	fft        *fourier.FFT
	segment    []float64
	signalFFT  []complex128
	productFFT []complex128
	ifftResult []float64
}

// NewFFTConvolver creates a new FFT convolver for the given kernel.
// The kernel is transformed once and reused for every block. Returns nil
// for an empty kernel.
func NewFFTConvolver(kernel []float64) *FFTConvolver {
	kernelLen := len(kernel)
	if kernelLen == 0 {
		return nil
	}

	// Choose FFT size: next power of 2 >= 2*kernelLen for good efficiency
	fftSize := defaultFFTBlockSize
	for fftSize < fftKernelMultiple*kernelLen {
		fftSize *= 2
	}

	// Circular convolution of a segment with the zero-padded kernel gives
	// c[t] = Σ h[j] * seg[t-j] for t >= kernelLen-1, which is exactly the
	// linear convolution sum. Unlike a correlation kernel, h is not reversed.
	fft := fourier.NewFFT(fftSize)
	kernelPadded := make([]float64, fftSize)
	copy(kernelPadded, kernel)
	kernelFFT := fft.Coefficients(nil, kernelPadded)

	return &FFTConvolver{
		fftSize:   fftSize,
		blockSize: fftSize - kernelLen + 1,
		fftLen:    fftSize/fftHermitianDivisor + 1,
		kernelFFT: kernelFFT,
		kernelLen: kernelLen,
		scale:     1.0 / float64(fftSize),
	}
}

// FFTSize returns the transform length.
func (c *FFTConvolver) FFTSize() int { return c.fftSize }

// BlockSize returns the number of output samples produced per block.
func (c *FFTConvolver) BlockSize() int { return c.blockSize }

// newWorker allocates an FFT plan and scratch buffers for one goroutine.
func (c *FFTConvolver) newWorker() *fftWorker {
	return &fftWorker{
		fft:        fourier.NewFFT(c.fftSize),
		segment:    make([]float64, c.fftSize),
		signalFFT:  make([]complex128, c.fftLen),
		productFFT: make([]complex128, c.fftLen),
		ifftResult: make([]float64, c.fftSize),
	}
}

// Convolve returns the full linear convolution of signal with the kernel.
func (c *FFTConvolver) Convolve(ctx context.Context, signal []float64, workers int) ([]float64, error) {
	outLen, err := OutputLength(len(signal), c.kernelLen)
	if err != nil {
		return nil, err
	}
	dst := make([]float64, outLen)
	if err := c.ConvolveTo(ctx, dst, signal, workers); err != nil {
		return nil, err
	}
	return dst, nil
}

// ConvolveTo writes the full linear convolution of signal with the kernel into
// dst, which must have length len(signal)+kernelLen-1. With workers > 1 the
// blocks are split into contiguous runs, one per goroutine.
func (c *FFTConvolver) ConvolveTo(ctx context.Context, dst, signal []float64, workers int) error {
	outLen, err := OutputLength(len(signal), c.kernelLen)
	if err != nil {
		return err
	}
	if len(dst) != outLen {
		return fmt.Errorf("%w: dst has %d samples, want %d", ErrLengthMismatch, len(dst), outLen)
	}
	if outLen == 0 {
		return nil
	}

	numBlocks := (outLen + c.blockSize - 1) / c.blockSize
	workers = max(1, min(workers, numBlocks))

	if workers == 1 {
		return c.processBlocks(ctx, c.newWorker(), dst, signal, 0, numBlocks)
	}

	g, gctx := errgroup.WithContext(ctx)
	perWorker := (numBlocks + workers - 1) / workers
	for first := 0; first < numBlocks; first += perWorker {
		last := min(first+perWorker, numBlocks)
		g.Go(func() error {
			return c.processBlocks(gctx, c.newWorker(), dst, signal, first, last)
		})
	}
	return g.Wait()
}

// processBlocks computes blocks [first, last) into their output ranges.
func (c *FFTConvolver) processBlocks(ctx context.Context, w *fftWorker, dst, signal []float64, first, last int) error {
	for b := first; b < last; b++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.processBlock(w, dst, signal, b*c.blockSize)
	}
	return nil
}

// processBlock computes dst[outStart : outStart+blockSize] (clipped to len(dst)).
func (c *FFTConvolver) processBlock(w *fftWorker, dst, signal []float64, outStart int) {
	overlap := c.kernelLen - 1

	// Segment starts overlap samples before outStart in signal coordinates
	fillSegment(w.segment, signal, outStart-overlap)

	// FFT of signal block
	w.signalFFT = w.fft.Coefficients(w.signalFFT, w.segment)

	// Multiply in frequency domain using SIMD
	c128.Mul(w.productFFT, w.signalFFT, c.kernelFFT)

	// IFFT
	w.ifftResult = w.fft.Sequence(w.ifftResult, w.productFFT)

	// Valid output samples start at offset 'overlap' (= kernelLen - 1).
	// Scale by 1/N (gonum's IFFT doesn't normalize) straight into dst.
	valid := min(c.blockSize, len(dst)-outStart)
	f64.Scale(dst[outStart:outStart+valid], w.ifftResult[overlap:overlap+valid], c.scale)
}

// fillSegment sets seg[i] = signal[start+i], using zero outside the signal.
func fillSegment(seg, signal []float64, start int) {
	clear(seg)
	lo := max(start, 0)
	hi := min(start+len(seg), len(signal))
	if lo < hi {
		copy(seg[lo-start:], signal[lo:hi])
	}
}

// convolveFFT runs the overlap-save convolver for either precision.
// gonum's FFT is float64 only, so float32 operands are widened.
func convolveFFT[F simdops.Float](ctx context.Context, signal, kernel []F, workers int) ([]F, error) {
	conv := NewFFTConvolver(toFloat64(kernel))
	if conv == nil {
		return []F{}, nil
	}

	out, err := conv.Convolve(ctx, toFloat64(signal), workers)
	if err != nil {
		return nil, err
	}
	return fromFloat64[F](out), nil
}

// toFloat64 returns s as float64, without copying when it already is.
func toFloat64[F simdops.Float](s []F) []float64 {
	if v, ok := any(s).([]float64); ok {
		return v
	}
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

// fromFloat64 converts s to F, without copying when F is float64.
func fromFloat64[F simdops.Float](s []float64) []F {
	if v, ok := any(s).([]F); ok {
		return v
	}
	out := make([]F, len(s))
	for i, v := range s {
		out[i] = F(v)
	}
	return out
}
