package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-convolution-reverb/internal/audiofile"
	"github.com/tphakala/go-convolution-reverb/internal/pipeline"
)

func writeFixture(t *testing.T, dir, name string, samples []float64, channels, rate int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, audiofile.Write(path, samples, channels, rate, audiofile.EncodingFloat32))
	return path
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Success(t *testing.T) {
	dir := t.TempDir()
	audio := writeFixture(t, dir, "dry.wav", []float64{1, 0, 0}, 1, 44100)
	ir := writeFixture(t, dir, "ir.wav", []float64{0.5, 0.5, 0.25, 0.25}, 2, 44100)
	out := filepath.Join(dir, "wet.wav")

	code, stdout, stderr := runCLI(t, audio, ir, out)
	require.Equal(t, pipeline.ExitOK, code, stderr)
	assert.Contains(t, stdout, "Convolved dry.wav with ir.wav -> wet.wav")
	assert.Contains(t, stdout, "-> 1 ch x 4 frames @ 44100 Hz")

	a, err := audiofile.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Channels)
	// Mono audio with a stereo IR sums the IR channels
	assert.InDeltaSlice(t, []float64{1, 0.5, 0, 0}, a.Samples, 1e-6)
}

func TestRun_FlagsApply(t *testing.T) {
	dir := t.TempDir()
	audio := writeFixture(t, dir, "dry.wav", []float64{1, 1}, 1, 8000)
	ir := writeFixture(t, dir, "ir.wav", []float64{1, 1}, 1, 8000)
	out := filepath.Join(dir, "wet.wav")

	code, stdout, stderr := runCLI(t, "-normalize", "peak", "-gain", "0.5", "-format", "pcm16", audio, ir, out)
	require.Equal(t, pipeline.ExitOK, code, stderr)
	assert.Contains(t, stdout, "Peak: 0.5000")

	a, err := audiofile.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 16, a.BitDepth)
	// Raw output [1 2 1] normalized to peak 1, then halved
	assert.InDeltaSlice(t, []float64{0.25, 0.5, 0.25}, a.Samples, 2.0/32767.0)
}

func TestDriverOptions_Workers(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		parallel bool
		workers  int
	}{
		{"default", nil, false, 0},
		{"parallel", []string{"-parallel"}, true, runtime.GOMAXPROCS(0)},
		{"parallel with workers", []string{"-parallel", "-workers", "2"}, true, 2},
		{"workers without parallel", []string{"-workers", "3"}, false, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, f := newFlagSet(io.Discard)
			require.NoError(t, fs.Parse(append(tt.args, "a", "b", "c")))

			cfg, err := resolveConfig(fs, f)
			require.NoError(t, err)
			opts, err := driverOptions(cfg, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.parallel, opts.Reverb.Parallel)
			assert.Equal(t, tt.workers, opts.Reverb.Workers)
		})
	}
}

func TestRun_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	audio := writeFixture(t, dir, "dry.wav", []float64{1, 0}, 1, 44100)
	ir48 := writeFixture(t, dir, "ir48.wav", []float64{1}, 1, 48000)
	ir := writeFixture(t, dir, "ir.wav", []float64{1}, 1, 44100)
	surround := writeFixture(t, dir, "surround.wav", []float64{1, 1, 1}, 3, 44100)
	out := filepath.Join(dir, "wet.wav")

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing args", []string{audio, ir}, pipeline.ExitUsage},
		{"unknown flag", []string{"-nope", audio, ir, out}, pipeline.ExitUsage},
		{"bad normalize", []string{"-normalize", "loud", audio, ir, out}, pipeline.ExitUsage},
		{"bad format", []string{"-format", "mp3", audio, ir, out}, pipeline.ExitUsage},
		{"negative gain", []string{"-gain", "-2", audio, ir, out}, pipeline.ExitUsage},
		{"zero gain", []string{"-gain", "0", audio, ir, out}, pipeline.ExitUsage},
		{"missing input", []string{filepath.Join(dir, "missing.wav"), ir, out}, pipeline.ExitIO},
		{"rate mismatch", []string{audio, ir48, out}, pipeline.ExitFormatMismatch},
		{"surround ir", []string{audio, surround, out}, pipeline.ExitChannelLayout},
		{"too large", []string{"-max-frames", "1", audio, ir, out}, pipeline.ExitAllocation},
		{"missing config", []string{"-config", filepath.Join(dir, "nope.yaml"), audio, ir, out}, pipeline.ExitIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := runCLI(t, tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Empty(t, stdout)
			assert.NoFileExists(t, out)
		})
	}
}

func TestRun_Help(t *testing.T) {
	code, _, stderr := runCLI(t, "-h")
	assert.Equal(t, pipeline.ExitOK, code)
	assert.Contains(t, stderr, "Usage: reverb [options] input ir output.wav")
	assert.Contains(t, stderr, "Exit codes:")
}

func TestResolveConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reverb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("normalize: peak\ngain: 0.25\nclip: true\ntimeout: 30s\n"), 0o600))

	fs, f := newFlagSet(io.Discard)
	require.NoError(t, fs.Parse([]string{"-config", path, "-gain", "0.5", "a", "b", "c"}))

	cfg, err := resolveConfig(fs, f)
	require.NoError(t, err)
	assert.Equal(t, "peak", cfg.Normalize)
	assert.InDelta(t, 0.5, cfg.Gain, 0)
	assert.True(t, cfg.Clip)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestResolveConfig_UnsetFlagsKeepDefaults(t *testing.T) {
	fs, f := newFlagSet(io.Discard)
	require.NoError(t, fs.Parse([]string{"-clip", "a", "b", "c"}))

	cfg, err := resolveConfig(fs, f)
	require.NoError(t, err)
	assert.True(t, cfg.Clip)
	assert.InDelta(t, 1.0, cfg.Gain, 0)
	assert.Equal(t, "float32", cfg.Format)
}

func TestNewFlagSet_AllFlagsMapped(t *testing.T) {
	fs, _ := newFlagSet(io.Discard)
	var names []string
	fs.VisitAll(func(fl *flag.Flag) { names = append(names, fl.Name) })
	assert.ElementsMatch(t, []string{
		"config", "method", "parallel", "workers", "ir-downmix", "normalize", "gain",
		"clip", "format", "max-frames", "timeout", "sequential-load", "log-level", "v", "cpuprofile",
	}, names)
}

func TestEncodingNames(t *testing.T) {
	for _, n := range encodingNames() {
		_, err := audiofile.ParseEncoding(n)
		assert.NoError(t, err, n)
	}
}
