// internal/session/state.go
package session

import "fmt"

// State is the lifecycle of one acquisition run.
type State uint16

const (
	Idle State = iota
	Running
	Stopping
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", uint16(s))
	}
}
