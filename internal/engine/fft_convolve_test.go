package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-convolution-reverb/internal/testutil"
)

func TestNewFFTConvolver_EmptyKernel(t *testing.T) {
	assert.Nil(t, NewFFTConvolver(nil))
	assert.Nil(t, NewFFTConvolver([]float64{}))
}

func TestNewFFTConvolver_Sizes(t *testing.T) {
	tests := []struct {
		kernelLen int
		fftSize   int
	}{
		{1, 512},
		{256, 512},
		{257, 1024},
		{4096, 8192},
	}
	for _, tt := range tests {
		c := NewFFTConvolver(make([]float64, tt.kernelLen))
		require.NotNil(t, c)
		assert.Equal(t, tt.fftSize, c.FFTSize(), "kernelLen=%d", tt.kernelLen)
		assert.Equal(t, tt.fftSize-tt.kernelLen+1, c.BlockSize(), "kernelLen=%d", tt.kernelLen)
	}
}

// TestFFTConvolver_WorkersDeterministic verifies the output is bit-identical
// for every worker count, since each block owns its own output range.
func TestFFTConvolver_WorkersDeterministic(t *testing.T) {
	signal := testutil.RandomSignal(20000, 3)
	kernel := testutil.DecayingNoise(700, 4)
	c := NewFFTConvolver(kernel)
	require.NotNil(t, c)

	sequential, err := c.Convolve(context.Background(), signal, 1)
	require.NoError(t, err)

	for _, workers := range []int{0, 2, 3, 8, 1000} {
		parallel, err := c.Convolve(context.Background(), signal, workers)
		require.NoError(t, err)
		require.Len(t, parallel, len(sequential))
		for i := range sequential {
			if sequential[i] != parallel[i] {
				t.Fatalf("workers=%d sample %d mismatch: seq=%v par=%v", workers, i, sequential[i], parallel[i])
			}
		}
	}
}

func TestFFTConvolver_MatchesDirect(t *testing.T) {
	signal := testutil.RandomSignal(9000, 5)
	kernel := testutil.DecayingNoise(2500, 6)

	c := NewFFTConvolver(kernel)
	require.NotNil(t, c)
	got, err := c.Convolve(context.Background(), signal, 4)
	require.NoError(t, err)

	want, err := Direct(context.Background(), signal, kernel)
	require.NoError(t, err)

	testutil.AssertSamplesClose(t, want, got, testutil.FFTTolerance)
}

func TestFFTConvolver_ShortSignal(t *testing.T) {
	// Signal shorter than the kernel still yields the full result
	kernel := testutil.DecayingNoise(600, 8)
	signal := []float64{0.25, -1}

	c := NewFFTConvolver(kernel)
	got, err := c.Convolve(context.Background(), signal, 1)
	require.NoError(t, err)
	testutil.AssertSamplesClose(t, testutil.ReferenceConvolve(signal, kernel), got, testutil.FFTTolerance)
}

func TestFFTConvolver_ConvolveToLengthMismatch(t *testing.T) {
	c := NewFFTConvolver([]float64{1, 2, 3})
	err := c.ConvolveTo(context.Background(), make([]float64, 4), []float64{1, 2, 3}, 1)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestFFTConvolver_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewFFTConvolver(testutil.DecayingNoise(500, 1))
	_, err := c.Convolve(ctx, testutil.RandomSignal(10000, 2), 4)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFillSegment(t *testing.T) {
	signal := []float64{1, 2, 3, 4}
	tests := []struct {
		name  string
		start int
		size  int
		want  []float64
	}{
		{"before signal", -3, 5, []float64{0, 0, 0, 1, 2}},
		{"inside", 1, 2, []float64{2, 3}},
		{"past end", 3, 4, []float64{4, 0, 0, 0}},
		{"covers all", -1, 6, []float64{0, 1, 2, 3, 4, 0}},
		{"entirely after", 10, 3, []float64{0, 0, 0}},
		{"entirely before", -10, 3, []float64{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := make([]float64, tt.size)
			for i := range seg {
				seg[i] = -99 // stale data must be cleared
			}
			fillSegment(seg, signal, tt.start)
			assert.Equal(t, tt.want, seg)
		})
	}
}

func TestDirectTo_LengthMismatch(t *testing.T) {
	err := DirectTo(context.Background(), make([]float64, 3), []float64{1, 2}, []float64{1, 2})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestDirect_ChunkBoundaries(t *testing.T) {
	// Output spans more than one cancellation chunk
	x := testutil.RandomSignal(directChunkSize+37, 9)
	h := []float64{0.5, -0.25, 0.125}
	got, err := Direct(context.Background(), x, h)
	require.NoError(t, err)
	testutil.AssertSamplesClose(t, testutil.ReferenceConvolve(x, h), got, testutil.DefaultTolerance)
}
