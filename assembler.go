package reverb

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/go-convolution-reverb/internal/engine"
	"github.com/tphakala/go-convolution-reverb/internal/simdops"
)

// CheckCompatible reports whether audio and ir can be convolved: both
// present, equal sample rates, and one or two channels each.
func CheckCompatible(audio, ir *Signal) error {
	if audio == nil || ir == nil {
		return fmt.Errorf("%w: nil signal", ErrInvalidSignal)
	}
	if audio.SampleRate() != ir.SampleRate() {
		return &FormatMismatchError{AudioRate: audio.SampleRate(), IRRate: ir.SampleRate()}
	}
	if err := checkLayout(RoleAudio, audio.ChannelCount()); err != nil {
		return err
	}
	return checkLayout(RoleIR, ir.ChannelCount())
}

// OutputFrames returns the per-channel length of the convolution of audio
// with ir, or an *AllocationError when it overflows or exceeds limit
// (zero means no limit).
func OutputFrames(audio, ir *Signal, limit int) (int, error) {
	n, m := audio.FrameCount(), ir.FrameCount()
	frames, err := engine.OutputLength(n, m)
	if err != nil {
		return 0, &AllocationError{AudioFrames: n, IRFrames: m, Err: err}
	}
	if limit > 0 && frames > limit {
		return 0, &AllocationError{AudioFrames: n, IRFrames: m, Limit: limit, Err: engine.ErrOutputTooLarge}
	}
	return frames, nil
}

// ConvolvePlan runs the engine once per pairing and returns the raw output
// channels indexed by output channel. Pairings run concurrently when
// cfg.Parallel is set; each writes only its own slot.
func ConvolvePlan(ctx context.Context, plan *Plan, audio, ir *Signal, cfg *Config) ([][]float64, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if audio == nil || ir == nil {
		return nil, fmt.Errorf("%w: nil signal", ErrInvalidSignal)
	}
	if _, err := OutputFrames(audio, ir, cfg.MaxOutputFrames); err != nil {
		return nil, err
	}

	irChannels := plan.prepareIR(ir)
	for _, pr := range plan.Pairings {
		if pr.Input >= audio.ChannelCount() || pr.IR >= len(irChannels) {
			return nil, fmt.Errorf("%w: plan %s does not fit %d audio and %d IR channels",
				ErrInvalidConfig, plan, audio.ChannelCount(), ir.ChannelCount())
		}
	}

	raw := make([][]float64, plan.OutputChannels())
	opts := cfg.engineOptions()

	run := func(ctx context.Context, pr Pairing) error {
		out, err := engine.Convolve(ctx, audio.channel(pr.Input), irChannels[pr.IR], opts)
		if err != nil {
			if errors.Is(err, engine.ErrOutputTooLarge) {
				return &AllocationError{
					AudioFrames: audio.FrameCount(),
					IRFrames:    ir.FrameCount(),
					Limit:       cfg.MaxOutputFrames,
					Err:         err,
				}
			}
			return fmt.Errorf("convolve input %d with IR %d: %w", pr.Input, pr.IR, err)
		}
		raw[pr.Output] = out
		return nil
	}

	if !cfg.Parallel || len(plan.Pairings) < 2 {
		for _, pr := range plan.Pairings {
			if err := run(ctx, pr); err != nil {
				return nil, err
			}
		}
		return raw, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, pr := range plan.Pairings {
		g.Go(func() error {
			return run(gctx, pr)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return raw, nil
}

// Policy controls the post-processing the Assembler applies to the output.
type Policy struct {
	Normalize Normalize
	Gain      float64 // zero means unity
	Clip      bool

	// IRNorm is the divisor for NormalizeIREnergy. PolicyFor fills it in.
	IRNorm float64
}

// PolicyFor derives the output policy of cfg for the given plan and IR.
func PolicyFor(cfg *Config, plan *Plan, ir *Signal) Policy {
	p := Policy{Normalize: cfg.Normalize, Gain: cfg.gain(), Clip: cfg.Clip}
	if cfg.Normalize == NormalizeIREnergy {
		p.IRNorm = irNorm(plan.prepareIR(ir))
	}
	return p
}

// irNorm returns the largest L2 norm among the IR channels.
func irNorm(channels [][]float64) float64 {
	ops := simdops.Float64Ops()
	var norm float64
	for _, ch := range channels {
		if len(ch) == 0 {
			continue
		}
		norm = math.Max(norm, math.Sqrt(ops.DotProductUnsafe(ch, ch)))
	}
	return norm
}

// Assemble orders raw channels by output index, pads each to frames with
// trailing zeros, applies the policy, and returns the output Signal.
// The raw slices are taken over and may be modified.
func Assemble(plan *Plan, raw [][]float64, sampleRate, frames int, policy Policy) (*Signal, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if len(raw) != plan.OutputChannels() {
		return nil, fmt.Errorf("%w: %d raw channels for %d outputs", ErrInvalidSignal, len(raw), plan.OutputChannels())
	}
	if err := checkShape(sampleRate, len(raw)); err != nil {
		return nil, err
	}

	channels := make([][]float64, len(raw))
	for i, ch := range raw {
		switch {
		case len(ch) > frames:
			return nil, fmt.Errorf("%w: channel %d has %d frames, want at most %d", ErrInvalidSignal, i, len(ch), frames)
		case len(ch) < frames:
			padded := make([]float64, frames)
			copy(padded, ch)
			channels[i] = padded
		default:
			channels[i] = ch
		}
	}

	policy.apply(channels)
	return newSignalOwned(sampleRate, channels), nil
}

// apply scales and clips channels in place. Silent or empty channels stay
// unchanged, so normalization never divides by zero.
func (p Policy) apply(channels [][]float64) {
	scale := unityGain
	switch p.Normalize {
	case NormalizePeak:
		if peak := peakOf(channels); peak > 0 {
			scale = clipCeiling / peak
		}
	case NormalizeIREnergy:
		if p.IRNorm > 0 {
			scale = 1 / p.IRNorm
		}
	}
	if p.Gain > 0 {
		scale *= p.Gain
	}

	ops := simdops.Float64Ops()
	if scale != unityGain {
		for _, ch := range channels {
			if len(ch) > 0 {
				ops.Scale(ch, ch, scale)
			}
		}
	}

	if p.Clip {
		for _, ch := range channels {
			for i, v := range ch {
				ch[i] = max(-clipCeiling, min(clipCeiling, v))
			}
		}
	}
}

// Process convolves audio with ir using cfg (nil means DefaultConfig) and
// returns the assembled output Signal.
func Process(ctx context.Context, audio, ir *Signal, cfg *Config) (*Signal, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := CheckCompatible(audio, ir); err != nil {
		return nil, err
	}

	plan, err := Resolve(audio.ChannelCount(), ir.ChannelCount(), cfg.Downmix)
	if err != nil {
		return nil, err
	}

	frames, err := OutputFrames(audio, ir, cfg.MaxOutputFrames)
	if err != nil {
		return nil, err
	}

	raw, err := ConvolvePlan(ctx, plan, audio, ir, cfg)
	if err != nil {
		return nil, err
	}

	return Assemble(plan, raw, audio.SampleRate(), frames, PolicyFor(cfg, plan, ir))
}
