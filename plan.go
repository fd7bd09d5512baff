package reverb

import (
	"fmt"
	"strings"

	"github.com/tphakala/go-convolution-reverb/internal/simdops"
)

// Pairing convolves audio channel Input with IR channel IR and stores the
// result as output channel Output. When the plan downmixes the IR, IR is
// always 0 and refers to the prepared mono IR.
type Pairing struct {
	Input  int
	IR     int
	Output int
}

// Transform is a pre-processing step applied to the IR before convolution.
type Transform int

const (
	// TransformNone uses the IR channels as loaded.
	TransformNone Transform = iota

	// TransformDownmix folds a stereo IR into a single mono channel.
	TransformDownmix
)

// String returns a human readable name for the transform.
func (t Transform) String() string {
	switch t {
	case TransformNone:
		return "none"
	case TransformDownmix:
		return "downmix"
	default:
		return fmt.Sprintf("Transform(%d)", int(t))
	}
}

// Downmix selects how a stereo IR is folded to mono.
type Downmix int

const (
	// DownmixSum adds the two IR channels without scaling, preserving the
	// combined reverb energy.
	DownmixSum Downmix = iota

	// DownmixAverage adds the two IR channels and halves the result.
	DownmixAverage
)

// String returns the name used in configuration files and flags.
func (d Downmix) String() string {
	switch d {
	case DownmixSum:
		return "sum"
	case DownmixAverage:
		return "average"
	default:
		return fmt.Sprintf("Downmix(%d)", int(d))
	}
}

// ParseDownmix parses a name produced by Downmix.String. Empty means sum.
func ParseDownmix(s string) (Downmix, error) {
	switch strings.ToLower(s) {
	case "", "sum":
		return DownmixSum, nil
	case "average", "avg":
		return DownmixAverage, nil
	default:
		return DownmixSum, fmt.Errorf("%w: unknown IR downmix %q", ErrInvalidConfig, s)
	}
}

// Plan describes which channel pairs to convolve and how to prepare the IR.
// A Plan is plain data; the Assembler executes it.
type Plan struct {
	Pairings    []Pairing
	IRTransform Transform
	Downmix     Downmix
}

// Resolve builds the plan for the given channel counts. Both counts must be
// 1 or 2; anything else is an *UnsupportedChannelLayoutError.
//
//	audio ir  plan
//	2     2   (L,L)->0 (R,R)->1
//	2     1   (L,IR)->0 (R,IR)->1
//	1     2   downmix IR, (mono,IR)->0
//	1     1   (mono,IR)->0
func Resolve(audioChannels, irChannels int, downmix Downmix) (*Plan, error) {
	if err := checkLayout(RoleAudio, audioChannels); err != nil {
		return nil, err
	}
	if err := checkLayout(RoleIR, irChannels); err != nil {
		return nil, err
	}
	if downmix != DownmixSum && downmix != DownmixAverage {
		return nil, fmt.Errorf("%w: unknown IR downmix %d", ErrInvalidConfig, int(downmix))
	}

	plan := &Plan{Downmix: downmix}
	switch {
	case audioChannels == stereoChannels && irChannels == stereoChannels:
		plan.Pairings = []Pairing{{Input: 0, IR: 0, Output: 0}, {Input: 1, IR: 1, Output: 1}}
	case audioChannels == stereoChannels:
		plan.Pairings = []Pairing{{Input: 0, IR: 0, Output: 0}, {Input: 1, IR: 0, Output: 1}}
	case irChannels == stereoChannels:
		plan.IRTransform = TransformDownmix
		plan.Pairings = []Pairing{{Input: 0, IR: 0, Output: 0}}
	default:
		plan.Pairings = []Pairing{{Input: 0, IR: 0, Output: 0}}
	}

	return plan, nil
}

func checkLayout(role string, channels int) error {
	if channels != monoChannels && channels != stereoChannels {
		return &UnsupportedChannelLayoutError{Role: role, Channels: channels}
	}
	return nil
}

// OutputChannels returns the number of channels the plan produces.
func (p *Plan) OutputChannels() int {
	return len(p.Pairings)
}

// Validate checks that output indices are exactly {0} or {0, 1} and that
// no output index is produced twice.
func (p *Plan) Validate() error {
	n := len(p.Pairings)
	if n != monoChannels && n != stereoChannels {
		return fmt.Errorf("%w: plan has %d pairings", ErrInvalidConfig, n)
	}

	var seen [stereoChannels]bool
	for _, pr := range p.Pairings {
		if pr.Output < 0 || pr.Output >= n {
			return fmt.Errorf("%w: output index %d out of range for %d outputs", ErrInvalidConfig, pr.Output, n)
		}
		if seen[pr.Output] {
			return fmt.Errorf("%w: output index %d produced twice", ErrInvalidConfig, pr.Output)
		}
		seen[pr.Output] = true

		if pr.Input < 0 || pr.Input >= stereoChannels || pr.IR < 0 || pr.IR >= stereoChannels {
			return fmt.Errorf("%w: pairing %+v references a missing channel", ErrInvalidConfig, pr)
		}
		if p.IRTransform == TransformDownmix && pr.IR != 0 {
			return fmt.Errorf("%w: downmixed plan references IR channel %d", ErrInvalidConfig, pr.IR)
		}
	}

	return nil
}

// String renders the plan as "in0*ir0->0, in1*ir1->1" with the IR transform.
func (p *Plan) String() string {
	var b strings.Builder
	for i, pr := range p.Pairings {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "in%d*ir%d->%d", pr.Input, pr.IR, pr.Output)
	}
	if p.IRTransform == TransformDownmix {
		fmt.Fprintf(&b, " (ir %s %s)", p.IRTransform, p.Downmix)
	}
	return b.String()
}

// prepareIR returns the IR channels the pairings index into. Channels are
// shared with ir unless a transform produces new data.
func (p *Plan) prepareIR(ir *Signal) [][]float64 {
	if p.IRTransform != TransformDownmix || ir.ChannelCount() != stereoChannels {
		channels := make([][]float64, ir.ChannelCount())
		for i := range channels {
			channels[i] = ir.channel(i)
		}
		return channels
	}

	left, right := ir.channel(0), ir.channel(1)
	mono := make([]float64, len(left))
	for i := range mono {
		mono[i] = left[i] + right[i]
	}
	if p.Downmix == DownmixAverage {
		simdops.Float64Ops().Scale(mono, mono, averageFactor)
	}
	return [][]float64{mono}
}
