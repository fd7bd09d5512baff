// Package config loads reverb settings from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	reverb "github.com/tphakala/go-convolution-reverb"
	"github.com/tphakala/go-convolution-reverb/internal/audiofile"
	"github.com/tphakala/go-convolution-reverb/internal/logging"
)

// Config stores the command configuration. Field values are the same
// strings the command-line flags accept.
type Config struct {
	Method          string        `yaml:"method"`
	Parallel        bool          `yaml:"parallel"`
	Workers         int           `yaml:"workers"`
	IRDownmix       string        `yaml:"ir_downmix"`
	Normalize       string        `yaml:"normalize"`
	Gain            float64       `yaml:"gain"`
	Clip            bool          `yaml:"clip"`
	Format          string        `yaml:"format"`
	MaxOutputFrames int           `yaml:"max_output_frames"`
	Timeout         time.Duration `yaml:"timeout"`
	SequentialLoad  bool          `yaml:"sequential_load"`
	LogLevel        string        `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Method:    reverb.MethodAuto.String(),
		IRDownmix: reverb.DownmixSum.String(),
		Normalize: reverb.NormalizeNone.String(),
		Gain:      1.0,
		Format:    audiofile.EncodingFloat32.String(),
		LogLevel:  "warn",
	}
}

// LoadConfig loads the configuration from the given file path. Keys missing
// from the file keep their defaults; unknown keys are an error.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: %w", reverb.ErrInvalidConfig, filePath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return cfg, nil
}

// Validate checks every field by converting it.
func (c *Config) Validate() error {
	rc, err := c.Reverb()
	if err != nil {
		return err
	}
	if err := rc.Validate(); err != nil {
		return err
	}
	if _, err := c.Encoding(); err != nil {
		return fmt.Errorf("%w: %w", reverb.ErrInvalidConfig, err)
	}
	if c.Gain == 0 {
		return fmt.Errorf("%w: gain must be positive", reverb.ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", reverb.ErrInvalidConfig)
	}
	if c.LogLevel != "" && !slices.Contains(logging.Levels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("%w: unknown log level %q", reverb.ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// Reverb converts the file settings into a reverb.Config. With Parallel set
// and Workers zero, FFT convolution uses GOMAXPROCS workers.
func (c *Config) Reverb() (*reverb.Config, error) {
	method, err := reverb.ParseMethod(c.Method)
	if err != nil {
		return nil, err
	}
	downmix, err := reverb.ParseDownmix(c.IRDownmix)
	if err != nil {
		return nil, err
	}
	normalize, err := reverb.ParseNormalize(c.Normalize)
	if err != nil {
		return nil, err
	}

	workers := c.Workers
	if workers == 0 && c.Parallel {
		workers = runtime.GOMAXPROCS(0)
	}

	return &reverb.Config{
		Method:          method,
		Parallel:        c.Parallel,
		Workers:         workers,
		Downmix:         downmix,
		Normalize:       normalize,
		Gain:            c.Gain,
		Clip:            c.Clip,
		MaxOutputFrames: c.MaxOutputFrames,
	}, nil
}

// Encoding returns the output sample encoding.
func (c *Config) Encoding() (audiofile.Encoding, error) {
	return audiofile.ParseEncoding(c.Format)
}
