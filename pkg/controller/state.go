package controller

import "fmt"

// State is the lifecycle state of a Controller.
type State int

const (
	StateConstructed State = iota
	StateActive
	StateFailed
	StateSucceeded
	StateTornDown
	StatePooled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	case StateSucceeded:
		return "succeeded"
	case StateTornDown:
		return "torn_down"
	case StatePooled:
		return "pooled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// serving reports whether the controller is bound to a request.
func (s State) serving() bool {
	return s == StateActive || s == StateFailed || s == StateSucceeded
}
