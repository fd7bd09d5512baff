package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	reverb "github.com/tphakala/go-convolution-reverb"
	"github.com/tphakala/go-convolution-reverb/internal/audiofile"
	"github.com/tphakala/go-convolution-reverb/internal/config"
	"github.com/tphakala/go-convolution-reverb/internal/logging"
	"github.com/tphakala/go-convolution-reverb/internal/pipeline"
)

// flags holds raw flag values. Only flags set on the command line override
// the configuration file.
type flags struct {
	configPath     string
	method         string
	parallel       bool
	workers        int
	irDownmix      string
	normalize      string
	gain           float64
	clip           bool
	format         string
	maxFrames      int
	timeout        time.Duration
	sequentialLoad bool
	logLevel       string
	verbose        bool
	cpuprofile     string
}

func newFlagSet(stderr io.Writer) (*flag.FlagSet, *flags) {
	def := config.Default()
	f := &flags{}
	fs := flag.NewFlagSet("reverb", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.method, "method", def.Method, "Convolution method: auto, direct, fft")
	fs.BoolVar(&f.parallel, "parallel", def.Parallel, "Convolve stereo channels concurrently; with -workers 0, FFT blocks use GOMAXPROCS workers")
	fs.IntVar(&f.workers, "workers", def.Workers, "FFT block workers, applied with or without -parallel (0 = GOMAXPROCS with -parallel, else 1)")
	fs.StringVar(&f.irDownmix, "ir-downmix", def.IRDownmix, "Stereo IR on mono audio: sum, average")
	fs.StringVar(&f.normalize, "normalize", def.Normalize, "Output normalization: none, peak, ir-energy")
	fs.Float64Var(&f.gain, "gain", def.Gain, "Linear gain applied after normalization (must be positive)")
	fs.BoolVar(&f.clip, "clip", def.Clip, "Clamp output samples to [-1, 1]")
	fs.StringVar(&f.format, "format", def.Format, "Output encoding: "+strings.Join(encodingNames(), ", "))
	fs.IntVar(&f.maxFrames, "max-frames", def.MaxOutputFrames, "Maximum output frames per channel (0 = no limit)")
	fs.DurationVar(&f.timeout, "timeout", def.Timeout, "Abort the run after this long (0 = no timeout)")
	fs.BoolVar(&f.sequentialLoad, "sequential-load", def.SequentialLoad, "Load the IR after the audio instead of concurrently")
	fs.StringVar(&f.logLevel, "log-level", def.LogLevel, "Log level: "+strings.Join(logging.Levels, ", "))
	fs.BoolVar(&f.verbose, "v", false, "Verbose output (same as -log-level debug)")
	fs.StringVar(&f.cpuprofile, "cpuprofile", "", "Write CPU profile to file (for PGO)")

	fs.Usage = func() {
		name := fs.Name()
		fmt.Fprintf(stderr, "Usage: %s [options] input ir output.wav\n\n", name)
		fmt.Fprintf(stderr, "Inputs may be %s files. Output is always WAV.\n\n",
			strings.Join(audiofile.Extensions(), ", "))
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  %s dry.wav hall.wav wet.wav                  # Float32 output, no normalization\n", name)
		fmt.Fprintf(stderr, "  %s -normalize peak -clip dry.wav hall.wav wet.wav\n", name)
		fmt.Fprintf(stderr, "  %s -format pcm16 -gain 0.5 -clip dry.mp3 ir.wav wet.wav\n", name)
		fmt.Fprintf(stderr, "\nExit codes: %d ok, %d failure, %d usage, %d I/O, %d sample rate mismatch,\n",
			pipeline.ExitOK, pipeline.ExitFailure, pipeline.ExitUsage, pipeline.ExitIO, pipeline.ExitFormatMismatch)
		fmt.Fprintf(stderr, "%d channel layout, %d output too large, %d timeout\n",
			pipeline.ExitChannelLayout, pipeline.ExitAllocation, pipeline.ExitDeadline)
	}
	return fs, f
}

func encodingNames() []string {
	return []string{
		audiofile.EncodingFloat32.String(),
		audiofile.EncodingPCM16.String(),
		audiofile.EncodingPCM24.String(),
		audiofile.EncodingPCM32.String(),
	}
}

// resolveConfig loads the configuration file, if any, then applies the
// flags the user set explicitly.
func resolveConfig(fs *flag.FlagSet, f *flags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			if errors.Is(err, reverb.ErrInvalidConfig) {
				return nil, err
			}
			return nil, &reverb.IOError{Op: "read config", Path: f.configPath, Err: err}
		}
		cfg = loaded
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "method":
			cfg.Method = f.method
		case "parallel":
			cfg.Parallel = f.parallel
		case "workers":
			cfg.Workers = f.workers
		case "ir-downmix":
			cfg.IRDownmix = f.irDownmix
		case "normalize":
			cfg.Normalize = f.normalize
		case "gain":
			cfg.Gain = f.gain
		case "clip":
			cfg.Clip = f.clip
		case "format":
			cfg.Format = f.format
		case "max-frames":
			cfg.MaxOutputFrames = f.maxFrames
		case "timeout":
			cfg.Timeout = f.timeout
		case "sequential-load":
			cfg.SequentialLoad = f.sequentialLoad
		case "log-level":
			cfg.LogLevel = f.logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printSummary(w io.Writer, audioPath, irPath, outPath string, r *pipeline.Report) {
	fmt.Fprintf(w, "Convolved %s with %s -> %s\n",
		filepath.Base(audioPath), filepath.Base(irPath), filepath.Base(outPath))
	fmt.Fprintf(w, "  %d ch x %d frames * %d ch x %d frames -> %d ch x %d frames @ %d Hz\n",
		r.Audio.Channels, r.Audio.Frames, r.IR.Channels, r.IR.Frames,
		r.Output.Channels, r.Output.Frames, r.Output.SampleRate)
	fmt.Fprintf(w, "  Plan: %s\n", r.Plan)
	fmt.Fprintf(w, "  Peak: %.4f", r.Peak)
	if r.Peak > 1 {
		fmt.Fprintf(w, " (exceeds full scale; use a float format, -normalize or -clip)")
	}
	fmt.Fprintln(w)

	elapsed := r.Elapsed()
	if r.Audio.SampleRate > 0 && elapsed > 0 {
		audioSeconds := float64(r.Audio.Frames) / float64(r.Audio.SampleRate)
		fmt.Fprintf(w, "  Duration: %.2fs, Speed: %.1fx realtime\n",
			elapsed.Seconds(), audioSeconds/elapsed.Seconds())
	}
}
