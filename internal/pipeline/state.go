package pipeline

import "fmt"

// State is a step of the driver's state machine.
//
//	Idle -> Loading -> Validating -> Planning -> Convolving -> Assembling -> Writing -> Done
//
// A failure in any step moves to Failed and no later step runs.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateValidating
	StatePlanning
	StateConvolving
	StateAssembling
	StateWriting
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateLoading:    "loading",
	StateValidating: "validating",
	StatePlanning:   "planning",
	StateConvolving: "convolving",
	StateAssembling: "assembling",
	StateWriting:    "writing",
	StateDone:       "done",
	StateFailed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether s is Done or Failed.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
