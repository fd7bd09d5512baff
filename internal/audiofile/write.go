package audiofile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Encoding selects the sample format of written WAV files.
type Encoding int

const (
	// EncodingFloat32 writes 32-bit IEEE float. Samples are not clamped.
	EncodingFloat32 Encoding = iota

	// EncodingPCM16 writes 16-bit integer PCM.
	EncodingPCM16

	// EncodingPCM24 writes 24-bit integer PCM.
	EncodingPCM24

	// EncodingPCM32 writes 32-bit integer PCM.
	EncodingPCM32
)

// String returns the name used in configuration files and flags.
func (e Encoding) String() string {
	switch e {
	case EncodingFloat32:
		return "float32"
	case EncodingPCM16:
		return "pcm16"
	case EncodingPCM24:
		return "pcm24"
	case EncodingPCM32:
		return "pcm32"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// ParseEncoding parses a name produced by Encoding.String. Empty means float32.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "", "float32", "float":
		return EncodingFloat32, nil
	case "pcm16", "16":
		return EncodingPCM16, nil
	case "pcm24", "24":
		return EncodingPCM24, nil
	case "pcm32", "32":
		return EncodingPCM32, nil
	default:
		return EncodingFloat32, fmt.Errorf("%w: unknown output encoding %q", ErrUnsupportedFormat, s)
	}
}

// BitDepth returns the sample width in bits.
func (e Encoding) BitDepth() int {
	switch e {
	case EncodingPCM16:
		return bitsPerSample16
	case EncodingPCM24:
		return bitsPerSample24
	default:
		return bitsPerSample32
	}
}

// Write encodes frame-interleaved samples as a WAV file at path.
//
// The file is written to a temporary name in the destination directory,
// synced and renamed into place. On any failure the temporary file is
// removed and path is left untouched.
func Write(path string, samples []float64, channels, sampleRate int, enc Encoding) (err error) {
	if channels < 1 || sampleRate <= 0 {
		return fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidAudio, channels, sampleRate)
	}
	if len(samples)%channels != 0 {
		return fmt.Errorf("%w: %d samples is not a whole number of %d-channel frames",
			ErrInvalidAudio, len(samples), channels)
	}
	if enc < EncodingFloat32 || enc > EncodingPCM32 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, enc)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = encodeWAV(tmp, samples, channels, sampleRate, enc); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(outputFileMode); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func encodeWAV(ws io.WriteSeeker, samples []float64, channels, sampleRate int, enc Encoding) error {
	if enc == EncodingFloat32 {
		w := newFloatWAVWriter(ws, sampleRate, channels)
		if err := w.WriteHeader(len(samples) / channels); err != nil {
			return err
		}
		if err := w.WriteSamples(samples); err != nil {
			return err
		}
		return w.Close()
	}

	bitDepth := enc.BitDepth()
	data, err := floatToPCM(samples, bitDepth)
	if err != nil {
		return err
	}

	encoder := wav.NewEncoder(ws, sampleRate, bitDepth, channels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := encoder.Write(buf); err != nil {
		_ = encoder.Close()
		return err
	}
	return encoder.Close()
}
