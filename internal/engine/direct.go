package engine

import (
	"context"
	"fmt"

	"github.com/tphakala/go-convolution-reverb/internal/simdops"
)

// Direct computes the full linear convolution of x and h by direct summation:
//
//	y[n] = Σ x[k] * h[n-k],  0 <= k < len(x), 0 <= n-k < len(h)
func Direct[F simdops.Float](ctx context.Context, x, h []F) ([]F, error) {
	outLen, err := OutputLength(len(x), len(h))
	if err != nil {
		return nil, err
	}

	out := make([]F, outLen)
	if outLen == 0 {
		return out, nil
	}

	if err := DirectTo(ctx, out, x, h); err != nil {
		return nil, err
	}
	return out, nil
}

// DirectTo writes the full linear convolution of x and h into dst, which must
// have length len(x)+len(h)-1.
//
// The sum is evaluated as a valid cross-correlation of x, zero-padded by
// len(h)-1 on both sides, against h reversed. This lets the SIMD ConvolveValid
// kernel do the inner loop. dst is filled in chunks so a cancelled context
// stops long convolutions early.
func DirectTo[F simdops.Float](ctx context.Context, dst, x, h []F) error {
	outLen, err := OutputLength(len(x), len(h))
	if err != nil {
		return err
	}
	if len(dst) != outLen {
		return fmt.Errorf("%w: dst has %d samples, want %d", ErrLengthMismatch, len(dst), outLen)
	}
	if outLen == 0 {
		return nil
	}

	ops := simdops.For[F]()
	overlap := len(h) - 1

	padded := make([]F, len(x)+2*overlap)
	copy(padded[overlap:], x)

	reversed := make([]F, len(h))
	for i, v := range h {
		reversed[len(h)-1-i] = v
	}

	for start := 0; start < outLen; start += directChunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+directChunkSize, outLen)
		ops.ConvolveValid(dst[start:end], padded[start:end+overlap], reversed)
	}

	return nil
}
