// Command reverb applies convolution reverb to an audio file.
//
// Usage:
//
//	reverb input.wav ir.wav output.wav
//	reverb -normalize peak -clip input.wav hall.wav wet.wav
//	reverb -format pcm24 -method fft -parallel input.wav ir.wav out.wav
//	reverb -config reverb.yaml input.wav ir.wav out.wav
//
// The output has inputFrames+irFrames-1 frames per channel and is written
// atomically: a failed run never leaves a partial output file. The exit code
// identifies the failure class (see pipeline.ExitCode).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"go.uber.org/zap"

	"github.com/tphakala/go-convolution-reverb/internal/config"
	"github.com/tphakala/go-convolution-reverb/internal/logging"
	"github.com/tphakala/go-convolution-reverb/internal/pipeline"
	"github.com/tphakala/go-convolution-reverb/internal/simdops"
)

const requiredArgs = 3

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, f := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return pipeline.ExitOK
		}
		return pipeline.ExitUsage
	}
	if fs.NArg() != requiredArgs {
		fmt.Fprintf(stderr, "expected %d arguments, got %d\n\n", requiredArgs, fs.NArg())
		fs.Usage()
		return pipeline.ExitUsage
	}

	cfg, err := resolveConfig(fs, f)
	if err != nil {
		fmt.Fprintf(stderr, "reverb: %v\n", err)
		return pipeline.ExitCode(err)
	}

	level := cfg.LogLevel
	if f.verbose {
		level = "debug"
	}
	logger, err := logging.New(level)
	if err != nil {
		fmt.Fprintf(stderr, "reverb: %v\n", err)
		return pipeline.ExitUsage
	}
	defer func() { _ = logger.Sync() }()

	if f.cpuprofile != "" {
		stopProfile, err := startCPUProfile(f.cpuprofile)
		if err != nil {
			fmt.Fprintf(stderr, "reverb: %v\n", err)
			return pipeline.ExitIO
		}
		defer stopProfile()
	}

	opts, err := driverOptions(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "reverb: %v\n", err)
		return pipeline.ExitCode(err)
	}

	audioPath, irPath, outPath := fs.Arg(0), fs.Arg(1), fs.Arg(2)
	logger.Debug("starting run",
		zap.String("audio", audioPath),
		zap.String("ir", irPath),
		zap.String("output", outPath),
		zap.String("method", cfg.Method),
		zap.String("format", cfg.Format),
		zap.Bool("parallel", cfg.Parallel),
		zap.String("simd", simdops.Info()))

	report, err := pipeline.New(opts).Run(ctx, audioPath, irPath, outPath)
	if err != nil {
		fmt.Fprintf(stderr, "reverb: %v\n", err)
		return pipeline.ExitCode(err)
	}

	printSummary(stdout, audioPath, irPath, outPath, report)
	return pipeline.ExitOK
}

// startCPUProfile writes a CPU profile to path until the returned func is called.
func startCPUProfile(path string) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("could not start CPU profile: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		_ = f.Close()
	}, nil
}

// driverOptions converts the resolved configuration into pipeline options.
func driverOptions(cfg *config.Config, logger *zap.Logger) (pipeline.Options, error) {
	rc, err := cfg.Reverb()
	if err != nil {
		return pipeline.Options{}, err
	}
	enc, err := cfg.Encoding()
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Reverb:         rc,
		Timeout:        cfg.Timeout,
		SequentialLoad: cfg.SequentialLoad,
		Writer:         pipeline.FileWriter{Encoding: enc},
		Logger:         logger,
	}, nil
}
