// Package audiofile decodes and encodes audio container files.
//
// Decoding is selected by file extension and always yields frame-interleaved
// float64 samples nominally in [-1, 1]. Encoding writes WAV, either 32-bit
// IEEE float (samples outside [-1, 1] survive) or integer PCM (clamped).
// Writes are atomic: a failed write never leaves a file at the destination.
package audiofile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrUnsupportedFormat indicates a file extension with no registered decoder.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrInvalidFile indicates a file that does not parse as its declared format.
	ErrInvalidFile = errors.New("invalid audio file")

	// ErrUnsupportedBitDepth indicates a sample width the codec cannot convert.
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")

	// ErrInvalidAudio indicates samples that do not fit the declared layout.
	ErrInvalidAudio = errors.New("invalid audio data")
)

// Audio is a fully decoded file.
type Audio struct {
	// Samples holds frame-interleaved samples (L R L R ... for stereo).
	Samples []float64

	Channels   int
	SampleRate int

	// BitDepth is the source sample width, or 0 for compressed formats.
	BitDepth int

	// Format is the registered name of the decoder that produced the audio.
	Format string
}

// Frames returns the number of frames (samples per channel).
func (a *Audio) Frames() int {
	if a.Channels == 0 {
		return 0
	}
	return len(a.Samples) / a.Channels
}

// decodeFunc decodes a whole file from r.
type decodeFunc func(r io.ReadSeeker) (*Audio, error)

type codec struct {
	name   string
	decode decodeFunc
}

// codecs maps lower-case file extensions to decoders.
var codecs = map[string]codec{
	".wav":  {name: formatWAV, decode: decodeWAV},
	".wave": {name: formatWAV, decode: decodeWAV},
	".aif":  {name: formatAIFF, decode: decodeAIFF},
	".aiff": {name: formatAIFF, decode: decodeAIFF},
	".mp3":  {name: formatMP3, decode: decodeMP3},
	".ogg":  {name: formatOgg, decode: decodeOgg},
	".oga":  {name: formatOgg, decode: decodeOgg},
}

// Extensions returns the supported input file extensions, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(codecs))
	for ext := range codecs {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Open decodes the file at path, choosing the decoder by extension.
func Open(path string) (*Audio, error) {
	c, ok := codecs[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedFormat, filepath.Ext(path), strings.Join(Extensions(), ", "))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	a, err := c.decode(f)
	if err != nil {
		return nil, err
	}
	a.Format = c.name

	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Audio) validate() error {
	if a.Channels < 1 {
		return fmt.Errorf("%w: %d channels", ErrInvalidFile, a.Channels)
	}
	if a.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFile, a.SampleRate)
	}
	if len(a.Samples)%a.Channels != 0 {
		return fmt.Errorf("%w: %d samples is not a whole number of %d-channel frames",
			ErrInvalidFile, len(a.Samples), a.Channels)
	}
	return nil
}
