package audiofile

// Registered decoder names
const (
	formatWAV  = "wav"
	formatAIFF = "aiff"
	formatMP3  = "mp3"
	formatOgg  = "ogg"
)

// Sample format constants
const (
	bitsPerSample8  = 8
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32
	bitsPerSample64 = 64
	bitsPerByte     = 8

	// Full-scale integer values; decoding divides by these, encoding multiplies.
	maxInt8  = 127.0
	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0
)

// WAV format constants
const (
	wavFormatPCM        = 1      // WAVE_FORMAT_PCM
	wavFormatIEEEFloat  = 3      // WAVE_FORMAT_IEEE_FLOAT
	wavFormatExtensible = 0xFFFE // WAVE_FORMAT_EXTENSIBLE

	wavRiffHeaderSize    = 12 // "RIFF" + size + "WAVE"
	wavChunkHeaderSize   = 8  // chunk id + size
	wavFloatFmtSize      = 18 // fmt chunk body for non-PCM formats (includes cbSize)
	wavPCMFmtSize        = 16 // minimum fmt chunk body
	wavExtensibleFmtSize = 40 // fmt chunk body of WAVE_FORMAT_EXTENSIBLE
	wavSubFormatOffset   = 24 // SubFormat GUID within an extensible fmt body
	wavFactSize          = 4  // fact chunk body: sample frames per channel
	wavRiffSizeExcluded  = 8  // RIFF size field excludes "RIFF" and the size itself

	// I/O buffer sizes
	wavWriterBufferSize = 256 * 1024 // 256KB write buffer
	writeChunkFrames    = 65536      // frames encoded per buffered write
)

// wavFloatHeaderSize is the RIFF, fmt, fact and data headers of a float WAV.
const wavFloatHeaderSize = wavRiffHeaderSize + 3*wavChunkHeaderSize + wavFloatFmtSize + wavFactSize

// MP3 decoding always yields 16-bit little-endian stereo.
const (
	mp3Channels       = 2
	mp3BytesPerSample = 2
)

// outputFileMode is applied to written files before the final rename.
const outputFileMode = 0o644
