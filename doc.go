// Package reverb applies convolution reverb to audio in pure Go.
//
// A dry signal is convolved with a recorded impulse response (IR), producing
// output that sounds as if it was played in the space the IR was captured in.
//
// # Features
//
//   - Exact linear convolution: every output channel has inputFrames+irFrames-1 frames
//   - Direct (SIMD) and FFT overlap-save algorithms with automatic selection
//   - Every mono/stereo combination of audio and IR
//   - Optional parallelism across stereo channels ([Config.Parallel]) and
//     FFT blocks ([Config.Workers]), with output identical to sequential
//     processing
//   - Opt-in peak or IR-energy normalization, gain and clipping
//   - Pure Go implementation with no CGO dependencies
//
// # Quick Start
//
// For one-shot processing of decoded signals:
//
//	audio, _ := reverb.NewSignal(48000, left, right)
//	ir, _ := reverb.NewSignal(48000, irSamples)
//
//	out, err := reverb.Process(ctx, audio, ir, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	writeOutput(out.Interleaved())
//
// For a single channel pair, [Convolve] and [ConvolveFloat32] return the raw
// convolution.
//
// # Channel Plans
//
// [Resolve] turns the two channel counts into a [Plan]:
//
//	audio  IR      output
//	stereo stereo  L*IRL, R*IRR
//	stereo mono    L*IR,  R*IR
//	mono   stereo  mono*(IRL+IRR)
//	mono   mono    mono*IR
//
// A stereo IR applied to mono audio is summed without scaling by default,
// keeping the full combined reverb level. [DownmixAverage] halves it instead.
// Other channel counts fail with [*UnsupportedChannelLayoutError].
//
// # Architecture
//
//	Signal -> Resolve -> ConvolvePlan -> Assemble -> Signal
//	                      (engine per pairing)
//
// [ConvolvePlan] and [Assemble] are exposed separately so callers can inspect
// raw results before the output [Policy] is applied. [Process] runs the whole
// chain.
//
// # Output Level
//
// No normalization is applied by default and samples may exceed [-1, 1].
// Write to a floating-point format or set [Config.Normalize], [Config.Gain]
// and [Config.Clip].
//
// # Errors
//
// Failures are typed and match sentinel errors with [errors.Is]:
// [*IOError] ([ErrIO]), [*FormatMismatchError] ([ErrFormatMismatch]),
// [*UnsupportedChannelLayoutError] ([ErrUnsupportedChannelLayout]) and
// [*AllocationError] ([ErrAllocation]).
//
// # Thread Safety
//
// A [Signal] is immutable and may be shared between goroutines. All package
// functions are safe for concurrent use.
package reverb
