package audiofile

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-convolution-reverb/internal/testutil"
)

func TestWriteOpen_Float32RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	// Values outside [-1, 1] must survive a float write
	samples := []float64{0, 0.5, -0.25, 1.5, -2, 0.125}

	require.NoError(t, Write(path, samples, 2, 48000, EncodingFloat32))

	a, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Channels)
	assert.Equal(t, 48000, a.SampleRate)
	assert.Equal(t, 32, a.BitDepth)
	assert.Equal(t, 3, a.Frames())
	assert.Equal(t, formatWAV, a.Format)
	testutil.AssertSamplesInDelta(t, samples, a.Samples, testutil.Float32Tolerance)
}

func TestWriteOpen_PCMRoundTrip(t *testing.T) {
	samples := testutil.Sine(1000, 440, 44100, 0.8)

	tests := []struct {
		enc       Encoding
		tolerance float64
	}{
		{EncodingPCM16, testutil.PCM16Tolerance},
		{EncodingPCM24, testutil.PCM24Tolerance},
		{EncodingPCM32, testutil.PCM24Tolerance},
	}

	for _, tt := range tests {
		t.Run(tt.enc.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.wav")
			require.NoError(t, Write(path, samples, 1, 44100, tt.enc))

			a, err := Open(path)
			require.NoError(t, err)
			assert.Equal(t, 1, a.Channels)
			assert.Equal(t, 44100, a.SampleRate)
			assert.Equal(t, tt.enc.BitDepth(), a.BitDepth)
			testutil.AssertSamplesInDelta(t, samples, a.Samples, tt.tolerance)
		})
	}
}

func TestWrite_PCMClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipped.wav")
	require.NoError(t, Write(path, []float64{2, -3, 0.5}, 1, 8000, EncodingPCM16))

	a, err := Open(path)
	require.NoError(t, err)
	testutil.AssertSamplesInDelta(t, []float64{1, -1, 0.5}, a.Samples, testutil.PCM16Tolerance)
}

func TestWrite_EmptySignal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	require.NoError(t, Write(path, nil, 2, 44100, EncodingFloat32))

	a, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Frames())
	assert.Equal(t, 2, a.Channels)
}

func TestWrite_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, Write(path, []float64{0.25}, 1, 44100, EncodingFloat32))

	a, err := Open(path)
	require.NoError(t, err)
	testutil.AssertSamplesInDelta(t, []float64{0.25}, a.Samples, testutil.Float32Tolerance)
}

// TestWrite_FailureLeavesNothing verifies a failed write leaves neither the
// destination nor a temporary file behind.
func TestWrite_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")

	err := Write(path, []float64{1, 2, 3}, 2, 44100, EncodingFloat32)
	require.ErrorIs(t, err, ErrInvalidAudio)

	err = Write(path, []float64{1, 2}, 1, 44100, Encoding(42))
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	err = Write(filepath.Join(dir, "missing", "out.wav"), []float64{1}, 1, 44100, EncodingFloat32)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "missing", "out.wav"))
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "song.flac"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Open(filepath.Join(dir, "missing.wav"))
	require.ErrorIs(t, err, os.ErrNotExist)

	for _, name := range []string{"bad.wav", "bad.aiff", "bad.mp3", "bad.ogg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("this is not audio data at all"), 0o644))
		_, err := Open(path)
		require.ErrorIs(t, err, ErrInvalidFile, name)
	}
}

func TestDecoders_TruncatedStreams(t *testing.T) {
	// Valid container magic with nothing decodable after it
	id3 := append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00"), make([]byte, 16)...)
	_, err := decodeMP3(bytes.NewReader(id3))
	require.ErrorIs(t, err, ErrInvalidFile)

	_, err = decodeOgg(bytes.NewReader([]byte("OggS\x00\x02truncated")))
	require.ErrorIs(t, err, ErrInvalidFile)

	_, err = decodeMP3(bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrInvalidFile)

	_, err = decodeOgg(bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrInvalidFile)
}

func TestOpen_ExtensionCaseInsensitive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOUD.WAV")
	require.NoError(t, Write(path, []float64{0.5, -0.5}, 1, 22050, EncodingFloat32))

	a, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Frames())
}

func TestOpen_AIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ir.aiff")
	f, err := os.Create(path)
	require.NoError(t, err)

	data := []int{0, 16384, -16384, 32767, 8192, -8192}
	enc := aiff.NewEncoder(f, 44100, 16, 2)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	a, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, formatAIFF, a.Format)
	assert.Equal(t, 2, a.Channels)
	assert.Equal(t, 44100, a.SampleRate)
	assert.Equal(t, 16, a.BitDepth)
	require.Len(t, a.Samples, len(data))
	for i, v := range data {
		assert.InDelta(t, float64(v)/maxInt16, a.Samples[i], 1e-12, "sample %d", i)
	}
}

// floatWAV builds a float WAV by hand with an extra chunk of odd size before data.
func floatWAV(bitDepth, channels, rate int, samples []float64) []byte {
	var body bytes.Buffer
	body.WriteString("WAVE")

	fmtChunk := make([]byte, wavPCMFmtSize)
	binary.LittleEndian.PutUint16(fmtChunk[0:], wavFormatIEEEFloat)
	binary.LittleEndian.PutUint16(fmtChunk[2:], uint16(channels))
	binary.LittleEndian.PutUint32(fmtChunk[4:], uint32(rate))
	binary.LittleEndian.PutUint16(fmtChunk[14:], uint16(bitDepth))
	writeChunk(&body, "fmt ", fmtChunk)

	writeChunk(&body, "LIST", []byte("odd"))

	var data bytes.Buffer
	for _, s := range samples {
		if bitDepth == 64 {
			_ = binary.Write(&data, binary.LittleEndian, s)
		} else {
			_ = binary.Write(&data, binary.LittleEndian, float32(s))
		}
	}
	writeChunk(&body, "data", data.Bytes())

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func writeChunk(b *bytes.Buffer, id string, body []byte) {
	b.WriteString(id)
	_ = binary.Write(b, binary.LittleEndian, uint32(len(body)))
	b.Write(body)
	if len(body)%2 == 1 {
		b.WriteByte(0)
	}
}

func TestReadFloatWAV(t *testing.T) {
	samples := []float64{0.1, -0.2, 0.3, -0.4}

	a, err := readFloatWAV(bytes.NewReader(floatWAV(64, 2, 96000, samples)))
	require.NoError(t, err)
	assert.Equal(t, samples, a.Samples)
	assert.Equal(t, 2, a.Channels)
	assert.Equal(t, 96000, a.SampleRate)

	a, err = readFloatWAV(bytes.NewReader(floatWAV(32, 1, 8000, samples)))
	require.NoError(t, err)
	testutil.AssertSamplesInDelta(t, samples, a.Samples, testutil.Float32Tolerance)
}

func TestReadFloatWAV_Invalid(t *testing.T) {
	valid := floatWAV(32, 1, 8000, []float64{0.5, 0.5})

	tests := map[string][]byte{
		"empty":         nil,
		"not riff":      append([]byte("RIFX"), valid[4:]...),
		"truncated":     valid[:len(valid)-3],
		"no data chunk": valid[:wavRiffHeaderSize+wavChunkHeaderSize+wavPCMFmtSize],
		"16-bit float":  floatWAV(16, 1, 8000, nil),
	}
	for name, data := range tests {
		_, err := readFloatWAV(bytes.NewReader(data))
		require.Error(t, err, name)
	}
}

// extensibleWAV builds a WAVE_FORMAT_EXTENSIBLE file whose SubFormat GUID
// starts with subFormat.
func extensibleWAV(subFormat uint16, bitDepth, channels, rate int, data []byte) []byte {
	var body bytes.Buffer
	body.WriteString("WAVE")

	blockAlign := channels * bitDepth / 8
	fmtChunk := make([]byte, wavExtensibleFmtSize)
	binary.LittleEndian.PutUint16(fmtChunk[0:], wavFormatExtensible)
	binary.LittleEndian.PutUint16(fmtChunk[2:], uint16(channels))
	binary.LittleEndian.PutUint32(fmtChunk[4:], uint32(rate))
	binary.LittleEndian.PutUint32(fmtChunk[8:], uint32(rate*blockAlign))
	binary.LittleEndian.PutUint16(fmtChunk[12:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(fmtChunk[14:], uint16(bitDepth))
	binary.LittleEndian.PutUint16(fmtChunk[16:], 22) // cbSize
	binary.LittleEndian.PutUint16(fmtChunk[18:], uint16(bitDepth))
	binary.LittleEndian.PutUint16(fmtChunk[wavSubFormatOffset:], subFormat)
	// Remainder of KSDATAFORMAT_SUBTYPE_* GUID
	copy(fmtChunk[wavSubFormatOffset+2:], []byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71})
	writeChunk(&body, "fmt ", fmtChunk)
	writeChunk(&body, "data", data)

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func float32Bytes(samples []float64) []byte {
	var b bytes.Buffer
	for _, s := range samples {
		_ = binary.Write(&b, binary.LittleEndian, float32(s))
	}
	return b.Bytes()
}

func TestReadFloatWAV_Extensible(t *testing.T) {
	samples := []float64{0.5, -0.25, 0.125, 0}
	a, err := readFloatWAV(bytes.NewReader(extensibleWAV(wavFormatIEEEFloat, 32, 1, 48000, float32Bytes(samples))))
	require.NoError(t, err)
	assert.Equal(t, samples, a.Samples)
	assert.Equal(t, 48000, a.SampleRate)
}

func TestOpen_ExtensibleWAV(t *testing.T) {
	dir := t.TempDir()

	t.Run("float subformat", func(t *testing.T) {
		samples := []float64{0.5, -0.25, 0.125, 0}
		path := filepath.Join(dir, "float.wav")
		require.NoError(t, os.WriteFile(path, extensibleWAV(wavFormatIEEEFloat, 32, 1, 48000, float32Bytes(samples)), 0o644))

		a, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, samples, a.Samples)
		assert.Equal(t, 1, a.Channels)
		assert.Equal(t, 48000, a.SampleRate)
		assert.Equal(t, 32, a.BitDepth)
	})

	t.Run("pcm subformat", func(t *testing.T) {
		var data bytes.Buffer
		for _, v := range []int16{16384, -8192, 0, 32767} {
			_ = binary.Write(&data, binary.LittleEndian, v)
		}
		path := filepath.Join(dir, "pcm.wav")
		require.NoError(t, os.WriteFile(path, extensibleWAV(wavFormatPCM, 16, 2, 44100, data.Bytes()), 0o644))

		a, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, 2, a.Channels)
		testutil.AssertSamplesInDelta(t, []float64{16384.0 / maxInt16, -8192.0 / maxInt16, 0, 1}, a.Samples, 1e-12)
	})

	t.Run("unknown subformat", func(t *testing.T) {
		path := filepath.Join(dir, "alaw.wav")
		require.NoError(t, os.WriteFile(path, extensibleWAV(6, 8, 1, 8000, []byte{1, 2}), 0o644))

		_, err := Open(path)
		require.ErrorIs(t, err, ErrInvalidFile)
	})

	t.Run("short extensible fmt", func(t *testing.T) {
		wav := extensibleWAV(wavFormatIEEEFloat, 32, 1, 8000, float32Bytes([]float64{1}))
		_, err := parseWAVFmt(wav[wavRiffHeaderSize+wavChunkHeaderSize : wavRiffHeaderSize+wavChunkHeaderSize+wavExtensibleFmtSize-1])
		require.ErrorIs(t, err, ErrInvalidFile)
	})
}

func TestFloatToPCM(t *testing.T) {
	got, err := floatToPCM([]float64{0, 1, -1, 1.5, -7, math.NaN(), 0.6 / maxInt16}, 16)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 32767, -32767, 32767, -32767, 0, 1}, got)

	_, err = floatToPCM([]float64{0}, 12)
	require.ErrorIs(t, err, ErrUnsupportedBitDepth)
}

func TestParseEncoding(t *testing.T) {
	for _, e := range []Encoding{EncodingFloat32, EncodingPCM16, EncodingPCM24, EncodingPCM32} {
		got, err := ParseEncoding(e.String())
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}

	got, err := ParseEncoding("")
	require.NoError(t, err)
	assert.Equal(t, EncodingFloat32, got)

	_, err = ParseEncoding("mp3")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtensions(t *testing.T) {
	exts := Extensions()
	assert.Contains(t, exts, ".wav")
	assert.Contains(t, exts, ".aiff")
	assert.Contains(t, exts, ".mp3")
	assert.Contains(t, exts, ".ogg")
	assert.IsNonDecreasing(t, exts)
}
