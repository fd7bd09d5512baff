package audiofile

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// decodeMP3 decodes to stereo; go-mp3 duplicates mono streams into both channels.
func decodeMP3(r io.ReadSeeker) (*Audio, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	// Drop a trailing partial frame
	frameBytes := mp3Channels * mp3BytesPerSample
	raw = raw[:len(raw)-len(raw)%frameBytes]

	samples := make([]float64, len(raw)/mp3BytesPerSample)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[i*mp3BytesPerSample:]))
		samples[i] = float64(v) / maxInt16
	}

	return &Audio{
		Samples:    samples,
		Channels:   mp3Channels,
		SampleRate: dec.SampleRate(),
	}, nil
}
