// Package engine implements linear convolution of two finite sample sequences.
//
// Two algorithms are available: direct summation (O(N*M), SIMD accelerated) and
// FFT overlap-save (O((N+M) log M)). Both produce the full linear convolution of
// length N+M-1 and agree within floating-point tolerance.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/go-convolution-reverb/internal/simdops"
)

// Method selects the convolution algorithm.
type Method int

const (
	// MethodAuto picks direct convolution for short operands and FFT otherwise.
	MethodAuto Method = iota

	// MethodDirect forces time-domain summation.
	MethodDirect

	// MethodFFT forces overlap-save FFT convolution.
	MethodFFT
)

// String returns the lower-case name used in configuration files and flags.
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

// Options control a single convolution.
type Options struct {
	// Method selects the algorithm. The zero value is MethodAuto.
	Method Method

	// Workers is the number of goroutines used for FFT block decomposition.
	// Values below 2 run sequentially. Output does not depend on this value.
	Workers int

	// MaxOutputLength rejects convolutions whose result would be longer.
	// Zero means no limit other than integer overflow.
	MaxOutputLength int
}

// Engine errors.
var (
	// ErrOutputTooLarge indicates the result length overflows or exceeds the configured limit.
	ErrOutputTooLarge = errors.New("convolution output too large")

	// ErrInvalidMethod indicates an unknown method value.
	ErrInvalidMethod = errors.New("invalid convolution method")

	// ErrLengthMismatch indicates a destination buffer of the wrong length.
	ErrLengthMismatch = errors.New("destination length mismatch")
)

// OutputLength returns the full linear convolution length for operands of
// length n and m: n+m-1, or 0 when either operand is empty.
func OutputLength(n, m int) (int, error) {
	if n < 0 || m < 0 {
		return 0, fmt.Errorf("%w: negative operand length (%d, %d)", ErrLengthMismatch, n, m)
	}
	if n == 0 || m == 0 {
		return 0, nil
	}
	if n > math.MaxInt-m {
		return 0, fmt.Errorf("%w: %d + %d - 1 overflows", ErrOutputTooLarge, n, m)
	}
	return n + m - 1, nil
}

// Convolve returns the full linear convolution of x and h.
//
// The result has length len(x)+len(h)-1 and is empty when either operand is
// empty. Neither operand is modified and the result never aliases them.
func Convolve[F simdops.Float](ctx context.Context, x, h []F, opts Options) ([]F, error) {
	outLen, err := OutputLength(len(x), len(h))
	if err != nil {
		return nil, err
	}
	if opts.MaxOutputLength > 0 && outLen > opts.MaxOutputLength {
		return nil, fmt.Errorf("%w: %d samples exceeds limit of %d", ErrOutputTooLarge, outLen, opts.MaxOutputLength)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if outLen == 0 {
		return []F{}, nil
	}

	// Convolution commutes; treat the shorter operand as the kernel.
	signal, kernel := x, h
	if len(kernel) > len(signal) {
		signal, kernel = kernel, signal
	}

	method, err := selectMethod(opts.Method, len(kernel))
	if err != nil {
		return nil, err
	}

	if method == MethodFFT {
		return convolveFFT(ctx, signal, kernel, opts.Workers)
	}
	return Direct(ctx, signal, kernel)
}

// selectMethod resolves MethodAuto for a kernel of the given length.
func selectMethod(m Method, kernelLen int) (Method, error) {
	switch m {
	case MethodDirect, MethodFFT:
		return m, nil
	case MethodAuto:
		if kernelLen < minKernelForFFT {
			return MethodDirect, nil
		}
		return MethodFFT, nil
	default:
		return m, fmt.Errorf("%w: %d", ErrInvalidMethod, int(m))
	}
}
