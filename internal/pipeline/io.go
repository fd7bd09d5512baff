package pipeline

import (
	"context"

	reverb "github.com/tphakala/go-convolution-reverb"
	"github.com/tphakala/go-convolution-reverb/internal/audiofile"
)

// Loader reads a Signal from a path.
type Loader interface {
	Load(ctx context.Context, path string) (*reverb.Signal, error)
}

// Writer stores a Signal at a path. Implementations must not leave a
// partial file at path when they fail.
type Writer interface {
	Write(ctx context.Context, path string, s *reverb.Signal) error
}

// FileLoader decodes audio files with the audiofile package.
type FileLoader struct{}

// Load decodes the file at path. Every failure is a *reverb.IOError.
func (FileLoader) Load(ctx context.Context, path string) (*reverb.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a, err := audiofile.Open(path)
	if err != nil {
		return nil, &reverb.IOError{Op: "load", Path: path, Err: err}
	}

	s, err := reverb.NewSignalFromInterleaved(a.SampleRate, a.Channels, a.Samples)
	if err != nil {
		return nil, &reverb.IOError{Op: "decode", Path: path, Err: err}
	}
	return s, nil
}

// FileWriter writes WAV files atomically with the audiofile package.
type FileWriter struct {
	Encoding audiofile.Encoding
}

// Write encodes s at path. Every failure is a *reverb.IOError.
func (w FileWriter) Write(ctx context.Context, path string, s *reverb.Signal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := audiofile.Write(path, s.Interleaved(), s.ChannelCount(), s.SampleRate(), w.Encoding)
	if err != nil {
		return &reverb.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
