// Package pipeline drives a convolution reverb run from input files to an
// output file.
//
// The driver is a state machine: two loads, validation, planning,
// convolution, assembly and an atomic write. The first failing step ends the
// run with a *StageError naming that step, and nothing after it is attempted.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	reverb "github.com/tphakala/go-convolution-reverb"
	"github.com/tphakala/go-convolution-reverb/internal/logging"
)

// Options configure a Driver.
type Options struct {
	// Reverb configures the convolution. Nil means reverb.DefaultConfig().
	Reverb *reverb.Config

	// Timeout bounds the whole run. It is checked between steps and inside
	// the convolution; a run past its deadline never starts writing.
	// Zero means no timeout.
	Timeout time.Duration

	// SequentialLoad loads the IR after the audio instead of concurrently.
	SequentialLoad bool

	// Loader and Writer default to FileLoader and FileWriter{}.
	Loader Loader
	Writer Writer

	// Logger receives structured progress. Nil disables logging.
	Logger *zap.Logger

	// OnTransition is called synchronously on every state change.
	OnTransition func(from, to State)
}

// Shape describes a signal without its samples.
type Shape struct {
	Channels   int
	Frames     int
	SampleRate int
}

func shapeOf(s *reverb.Signal) Shape {
	if s == nil {
		return Shape{}
	}
	return Shape{Channels: s.ChannelCount(), Frames: s.FrameCount(), SampleRate: s.SampleRate()}
}

// Report summarizes a run. It is returned for failed runs too, up to the
// failing step.
type Report struct {
	States    []State
	Durations map[State]time.Duration

	Audio  Shape
	IR     Shape
	Output Shape

	Plan string
	Peak float64
}

// Elapsed returns the total time spent in all steps.
func (r *Report) Elapsed() time.Duration {
	var total time.Duration
	for _, d := range r.Durations {
		total += d
	}
	return total
}

// Driver runs the pipeline. A Driver may be reused but not shared between
// concurrent runs.
type Driver struct {
	opts   Options
	logger *zap.Logger

	state   State
	entered time.Time
	report  *Report
}

// New creates a driver, filling defaults for unset options.
func New(opts Options) *Driver {
	if opts.Reverb == nil {
		opts.Reverb = reverb.DefaultConfig()
	}
	if opts.Loader == nil {
		opts.Loader = FileLoader{}
	}
	if opts.Writer == nil {
		opts.Writer = FileWriter{}
	}
	return &Driver{
		opts:   opts,
		logger: logging.OrNop(opts.Logger),
	}
}

// State returns the current state.
func (d *Driver) State() State { return d.state }

// Run convolves the audio at audioPath with the IR at irPath and writes the
// result to outPath.
func (d *Driver) Run(ctx context.Context, audioPath, irPath, outPath string) (*Report, error) {
	d.state = StateIdle
	d.entered = time.Now()
	d.report = &Report{
		States:    []State{StateIdle},
		Durations: make(map[State]time.Duration),
	}

	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	if err := d.run(ctx, audioPath, irPath, outPath); err != nil {
		return d.report, d.fail(err)
	}
	return d.report, nil
}

func (d *Driver) run(ctx context.Context, audioPath, irPath, outPath string) error {
	cfg := d.opts.Reverb

	d.transition(StateLoading)
	audio, ir, err := d.load(ctx, audioPath, irPath)
	if err != nil {
		return err
	}
	d.report.Audio = shapeOf(audio)
	d.report.IR = shapeOf(ir)

	d.transition(StateValidating)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := reverb.CheckCompatible(audio, ir); err != nil {
		return err
	}

	d.transition(StatePlanning)
	plan, err := reverb.Resolve(audio.ChannelCount(), ir.ChannelCount(), cfg.Downmix)
	if err != nil {
		return err
	}
	frames, err := reverb.OutputFrames(audio, ir, cfg.MaxOutputFrames)
	if err != nil {
		return err
	}
	d.report.Plan = plan.String()
	d.logger.Debug("resolved channel plan",
		zap.String("plan", d.report.Plan),
		zap.Int("output_frames", frames),
		zap.Stringer("method", cfg.Method))

	d.transition(StateConvolving)
	raw, err := reverb.ConvolvePlan(ctx, plan, audio, ir, cfg)
	if err != nil {
		return err
	}

	d.transition(StateAssembling)
	out, err := reverb.Assemble(plan, raw, audio.SampleRate(), frames, reverb.PolicyFor(cfg, plan, ir))
	if err != nil {
		return err
	}
	d.report.Output = shapeOf(out)
	d.report.Peak = out.Peak()

	// A run past its deadline must not begin writing.
	if err := ctx.Err(); err != nil {
		return err
	}

	d.transition(StateWriting)
	if err := d.opts.Writer.Write(ctx, outPath, out); err != nil {
		return err
	}

	d.transition(StateDone)
	d.logger.Info("reverb written",
		zap.String("output", outPath),
		zap.Int("channels", d.report.Output.Channels),
		zap.Int("frames", d.report.Output.Frames),
		zap.Float64("peak", d.report.Peak),
		zap.Duration("elapsed", d.report.Elapsed()))
	return nil
}

// load reads both signals, concurrently unless SequentialLoad is set.
func (d *Driver) load(ctx context.Context, audioPath, irPath string) (audio, ir *reverb.Signal, err error) {
	if d.opts.SequentialLoad {
		if audio, err = d.opts.Loader.Load(ctx, audioPath); err != nil {
			return nil, nil, err
		}
		if ir, err = d.opts.Loader.Load(ctx, irPath); err != nil {
			return nil, nil, err
		}
		return audio, ir, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := d.opts.Loader.Load(gctx, audioPath)
		audio = s
		return err
	})
	g.Go(func() error {
		s, err := d.opts.Loader.Load(gctx, irPath)
		ir = s
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return audio, ir, nil
}

func (d *Driver) transition(to State) {
	from := d.state
	now := time.Now()
	d.report.Durations[from] += now.Sub(d.entered)
	d.entered = now

	d.state = to
	d.report.States = append(d.report.States, to)
	d.logger.Debug("state transition", zap.Stringer("from", from), zap.Stringer("to", to))

	if d.opts.OnTransition != nil {
		d.opts.OnTransition(from, to)
	}
}

func (d *Driver) fail(err error) error {
	failed := d.state
	d.transition(StateFailed)
	d.logger.Debug("run failed", zap.Stringer("state", failed), zap.Error(err))
	return &StageError{State: failed, Err: err}
}

// String renders a one-line summary of a completed report.
func (r *Report) String() string {
	return fmt.Sprintf("%d ch x %d frames + %d ch x %d frames -> %d ch x %d frames @ %d Hz (%s)",
		r.Audio.Channels, r.Audio.Frames, r.IR.Channels, r.IR.Frames,
		r.Output.Channels, r.Output.Frames, r.Output.SampleRate, r.Plan)
}
