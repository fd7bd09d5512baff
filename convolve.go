package reverb

import (
	"context"

	"github.com/tphakala/go-convolution-reverb/internal/engine"
)

// Convolve returns the full linear convolution of x and h, of length
// len(x)+len(h)-1 (empty when either is empty). Neither input is modified.
func Convolve(ctx context.Context, x, h []float64, method Method) ([]float64, error) {
	return engine.Convolve(ctx, x, h, engine.Options{Method: methodToEngine(method)})
}

// ConvolveFloat32 is like Convolve but for float32 samples.
// The SIMD direct path processes twice as many float32 lanes per instruction.
func ConvolveFloat32(ctx context.Context, x, h []float32, method Method) ([]float32, error) {
	return engine.Convolve(ctx, x, h, engine.Options{Method: methodToEngine(method)})
}
