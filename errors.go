package reverb

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every typed error below matches one of these with errors.Is.
var (
	// ErrIO indicates a file could not be read, decoded or written.
	ErrIO = errors.New("audio file I/O failed")

	// ErrFormatMismatch indicates the two signals have different sample rates.
	ErrFormatMismatch = errors.New("sample rate mismatch")

	// ErrUnsupportedChannelLayout indicates a channel count outside {1, 2}.
	ErrUnsupportedChannelLayout = errors.New("unsupported channel layout")

	// ErrAllocation indicates the convolution output is too large to allocate.
	ErrAllocation = errors.New("convolution output too large")

	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid reverb configuration")

	// ErrInvalidSignal indicates a malformed signal (bad rate, ragged channels).
	ErrInvalidSignal = errors.New("invalid signal")
)

// Operand roles used in error messages.
const (
	RoleAudio = "audio input"
	RoleIR    = "impulse response"
)

// IOError reports a failed read or write of an audio file.
type IOError struct {
	Op   string // "open", "decode", "write", ...
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IOError) Unwrap() error { return e.Err }

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool { return target == ErrIO }

// FormatMismatchError reports operands recorded at different sample rates.
type FormatMismatchError struct {
	AudioRate int
	IRRate    int
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("%v: %s is %d Hz, %s is %d Hz", ErrFormatMismatch, RoleAudio, e.AudioRate, RoleIR, e.IRRate)
}

// Is reports whether target is ErrFormatMismatch.
func (e *FormatMismatchError) Is(target error) bool { return target == ErrFormatMismatch }

// UnsupportedChannelLayoutError reports an operand that is neither mono nor stereo.
type UnsupportedChannelLayoutError struct {
	Role     string
	Channels int
}

func (e *UnsupportedChannelLayoutError) Error() string {
	return fmt.Sprintf("%v: %s has %d channels (only mono and stereo are supported)",
		ErrUnsupportedChannelLayout, e.Role, e.Channels)
}

// Is reports whether target is ErrUnsupportedChannelLayout.
func (e *UnsupportedChannelLayoutError) Is(target error) bool {
	return target == ErrUnsupportedChannelLayout
}

// AllocationError reports a convolution whose output length exceeds the
// configured limit or the addressable range.
type AllocationError struct {
	AudioFrames int
	IRFrames    int
	Limit       int // 0 when the length itself overflowed
	Err         error
}

func (e *AllocationError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("%v: %d + %d - 1 frames per channel exceeds limit of %d",
			ErrAllocation, e.AudioFrames, e.IRFrames, e.Limit)
	}
	return fmt.Sprintf("%v: %d + %d - 1 frames per channel", ErrAllocation, e.AudioFrames, e.IRFrames)
}

// Unwrap returns the underlying cause.
func (e *AllocationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrAllocation.
func (e *AllocationError) Is(target error) bool { return target == ErrAllocation }
