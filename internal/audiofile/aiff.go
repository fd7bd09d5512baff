package audiofile

import (
	"fmt"
	"io"

	"github.com/go-audio/aiff"
)

func decodeAIFF(r io.ReadSeeker) (*Audio, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an AIFF file", ErrInvalidFile)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}

	samples, err := pcmToFloat(buf.Data, bitDepth)
	if err != nil {
		return nil, err
	}

	return &Audio{
		Samples:    samples,
		Channels:   buf.Format.NumChannels,
		SampleRate: buf.Format.SampleRate,
		BitDepth:   bitDepth,
	}, nil
}
