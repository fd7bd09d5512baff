package pipeline

import (
	"context"
	"errors"
	"fmt"

	reverb "github.com/tphakala/go-convolution-reverb"
	"github.com/tphakala/go-convolution-reverb/internal/audiofile"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitUsage          = 2
	ExitIO             = 3
	ExitFormatMismatch = 4
	ExitChannelLayout  = 5
	ExitAllocation     = 6
	ExitDeadline       = 7
)

// StageError records the state in which a run failed.
type StageError struct {
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StageError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by Driver.Run to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.DeadlineExceeded):
		return ExitDeadline
	case errors.Is(err, reverb.ErrFormatMismatch):
		return ExitFormatMismatch
	case errors.Is(err, reverb.ErrUnsupportedChannelLayout):
		return ExitChannelLayout
	case errors.Is(err, reverb.ErrAllocation):
		return ExitAllocation
	case errors.Is(err, reverb.ErrInvalidConfig):
		return ExitUsage
	case errors.Is(err, reverb.ErrIO),
		errors.Is(err, audiofile.ErrInvalidFile),
		errors.Is(err, audiofile.ErrUnsupportedFormat):
		return ExitIO
	default:
		return ExitFailure
	}
}
