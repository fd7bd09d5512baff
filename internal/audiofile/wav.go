package audiofile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"
)

// decodeWAV decodes integer PCM through go-audio/wav and IEEE float WAV
// through readFloatWAV, which go-audio does not convert.
func decodeWAV(r io.ReadSeeker) (*Audio, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE file", ErrInvalidFile)
	}

	tag := dec.WavAudioFormat
	if tag == wavFormatExtensible {
		// go-audio ignores the SubFormat GUID, so resolve it here
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		f, err := readWAVFmt(bufio.NewReader(r))
		if err != nil {
			return nil, err
		}
		tag = f.tag
		if err := dec.Rewind(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}
	}

	switch tag {
	case wavFormatIEEEFloat:
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return readFloatWAV(r)
	case wavFormatPCM:
	default:
		return nil, fmt.Errorf("%w: WAV format tag %d", ErrInvalidFile, tag)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == bitsPerSample8 {
		// 8-bit WAV is unsigned and not handled by the signed conversion
		return nil, fmt.Errorf("%w: 8-bit WAV", ErrUnsupportedBitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
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

// wavFmt is the part of a fmt chunk the readers need. For
// WAVE_FORMAT_EXTENSIBLE, tag holds the SubFormat code instead.
type wavFmt struct {
	tag        uint16
	channels   int
	sampleRate int
	bitDepth   int
}

func parseWAVFmt(body []byte) (wavFmt, error) {
	if len(body) < wavPCMFmtSize {
		return wavFmt{}, fmt.Errorf("%w: fmt chunk of %d bytes", ErrInvalidFile, len(body))
	}
	f := wavFmt{
		tag:        binary.LittleEndian.Uint16(body[0:2]),
		channels:   int(binary.LittleEndian.Uint16(body[2:4])),
		sampleRate: int(binary.LittleEndian.Uint32(body[4:8])),
		bitDepth:   int(binary.LittleEndian.Uint16(body[14:16])),
	}
	if f.tag == wavFormatExtensible {
		if len(body) < wavExtensibleFmtSize {
			return wavFmt{}, fmt.Errorf("%w: extensible fmt chunk of %d bytes", ErrInvalidFile, len(body))
		}
		f.tag = binary.LittleEndian.Uint16(body[wavSubFormatOffset:])
	}
	return f, nil
}

// readRIFFHeader consumes the 12-byte RIFF/WAVE header.
func readRIFFHeader(br *bufio.Reader) error {
	var riff [wavRiffHeaderSize]byte
	if _, err := io.ReadFull(br, riff[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return fmt.Errorf("%w: not a RIFF/WAVE file", ErrInvalidFile)
	}
	return nil
}

// nextChunk reads a chunk header and returns its id and body size.
func nextChunk(br *bufio.Reader) (string, int64, error) {
	var hdr [wavChunkHeaderSize]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return "", 0, io.EOF
		}
		return "", 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	return string(hdr[0:4]), int64(binary.LittleEndian.Uint32(hdr[4:8])), nil
}

func readChunkBody(br *bufio.Reader, size int64) ([]byte, error) {
	body := make([]byte, size+size&1)
	if _, err := io.ReadFull(br, body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	return body[:size], nil
}

func skipChunk(br *bufio.Reader, id string, size int64) error {
	if _, err := io.CopyN(io.Discard, br, size+size&1); err != nil {
		return fmt.Errorf("%w: truncated %q chunk: %w", ErrInvalidFile, id, err)
	}
	return nil
}

// readWAVFmt returns the fmt chunk of a RIFF/WAVE stream.
func readWAVFmt(br *bufio.Reader) (wavFmt, error) {
	if err := readRIFFHeader(br); err != nil {
		return wavFmt{}, err
	}
	for {
		id, size, err := nextChunk(br)
		if errors.Is(err, io.EOF) {
			return wavFmt{}, fmt.Errorf("%w: no fmt chunk", ErrInvalidFile)
		}
		if err != nil {
			return wavFmt{}, err
		}
		if id == "fmt " {
			body, err := readChunkBody(br, size)
			if err != nil {
				return wavFmt{}, err
			}
			return parseWAVFmt(body)
		}
		if err := skipChunk(br, id, size); err != nil {
			return wavFmt{}, err
		}
	}
}

// readFloatWAV parses a RIFF/WAVE file with 32- or 64-bit IEEE float samples,
// tagged either WAVE_FORMAT_IEEE_FLOAT or WAVE_FORMAT_EXTENSIBLE with the
// float SubFormat. Chunks other than fmt and data are skipped.
func readFloatWAV(r io.Reader) (*Audio, error) {
	br := bufio.NewReaderSize(r, wavWriterBufferSize)
	if err := readRIFFHeader(br); err != nil {
		return nil, err
	}

	var (
		haveFmt bool
		f       wavFmt
	)

	for {
		id, size, err := nextChunk(br)
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no data chunk", ErrInvalidFile)
		}
		if err != nil {
			return nil, err
		}

		switch id {
		case "fmt ":
			body, err := readChunkBody(br, size)
			if err != nil {
				return nil, err
			}
			if f, err = parseWAVFmt(body); err != nil {
				return nil, err
			}
			if f.tag != wavFormatIEEEFloat {
				return nil, fmt.Errorf("%w: WAV format tag %d", ErrInvalidFile, f.tag)
			}
			if f.bitDepth != bitsPerSample32 && f.bitDepth != bitsPerSample64 {
				return nil, fmt.Errorf("%w: %d-bit float", ErrUnsupportedBitDepth, f.bitDepth)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidFile)
			}
			bytesPerSample := int64(f.bitDepth / bitsPerByte)
			data := make([]byte, size-size%bytesPerSample)
			if _, err := io.ReadFull(br, data); err != nil {
				return nil, fmt.Errorf("%w: truncated data chunk: %w", ErrInvalidFile, err)
			}
			return &Audio{
				Samples:    decodeFloatSamples(data, f.bitDepth),
				Channels:   f.channels,
				SampleRate: f.sampleRate,
				BitDepth:   f.bitDepth,
			}, nil

		default:
			if err := skipChunk(br, id, size); err != nil {
				return nil, err
			}
		}
	}
}

func decodeFloatSamples(data []byte, bitDepth int) []float64 {
	if bitDepth == bitsPerSample64 {
		out := make([]float64, len(data)/8)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		}
		return out
	}

	out := make([]float64, len(data)/4)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return out
}
