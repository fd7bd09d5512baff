package audiofile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// floatWAVWriter writes 32-bit IEEE float WAV without per-sample allocations.
// The frame count is known before the header is written, so sizes are final
// and the writer never seeks back.
type floatWAVWriter struct {
	w          *bufio.Writer
	sampleRate int
	channels   int
	dataSize   uint32
	expected   uint32
	byteBuf    []byte // Preallocated buffer for encoding
}

func newFloatWAVWriter(w io.Writer, sampleRate, channels int) *floatWAVWriter {
	return &floatWAVWriter{
		w:          bufio.NewWriterSize(w, wavWriterBufferSize),
		sampleRate: sampleRate,
		channels:   channels,
		byteBuf:    make([]byte, writeChunkFrames*channels*(bitsPerSample32/bitsPerByte)),
	}
}

// WriteHeader writes the RIFF, fmt, fact and data headers for frames frames.
func (w *floatWAVWriter) WriteHeader(frames int) error {
	bytesPerSample := bitsPerSample32 / bitsPerByte
	blockAlign := w.channels * bytesPerSample
	byteRate := w.sampleRate * blockAlign

	dataSize := uint64(frames) * uint64(blockAlign)
	if dataSize > math.MaxUint32-wavFloatHeaderSize {
		return fmt.Errorf("%w: %d frames exceeds the 4 GiB WAV limit", ErrInvalidAudio, frames)
	}
	w.expected = uint32(dataSize)

	header := make([]byte, wavFloatHeaderSize)

	// RIFF header
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(wavFloatHeaderSize-wavRiffSizeExcluded)+w.expected)
	copy(header[8:12], "WAVE")

	// fmt chunk
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], wavFloatFmtSize)
	binary.LittleEndian.PutUint16(header[20:22], wavFormatIEEEFloat)
	binary.LittleEndian.PutUint16(header[22:24], uint16(w.channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample32)
	binary.LittleEndian.PutUint16(header[36:38], 0) // cbSize

	// fact chunk
	copy(header[38:42], "fact")
	binary.LittleEndian.PutUint32(header[42:46], wavFactSize)
	binary.LittleEndian.PutUint32(header[46:50], uint32(frames))

	// data chunk
	copy(header[50:54], "data")
	binary.LittleEndian.PutUint32(header[54:58], w.expected)

	_, err := w.w.Write(header)
	return err
}

// WriteSamples encodes interleaved samples as little-endian float32.
func (w *floatWAVWriter) WriteSamples(samples []float64) error {
	const bytesPerSample = bitsPerSample32 / bitsPerByte
	chunk := len(w.byteBuf) / bytesPerSample

	for start := 0; start < len(samples); start += chunk {
		end := min(start+chunk, len(samples))
		buf := w.byteBuf[:(end-start)*bytesPerSample]
		for i, s := range samples[start:end] {
			binary.LittleEndian.PutUint32(buf[i*bytesPerSample:], math.Float32bits(float32(s)))
		}
		written, err := w.w.Write(buf)
		w.dataSize += uint32(written)
		if err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered data and checks the header matched what was written.
func (w *floatWAVWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		return err
	}
	if w.dataSize != w.expected {
		return fmt.Errorf("%w: wrote %d data bytes, header declares %d", ErrInvalidAudio, w.dataSize, w.expected)
	}
	return nil
}
