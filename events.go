package rocket

import "fmt"

// EventKind defines the kind of a flight event.
type EventKind uint8

const (
	// EventFlameOut is raised when the fuel runs out.
	EventFlameOut EventKind = iota + 1
	// EventGroundContact is raised when the rocket hits the ground.
	EventGroundContact
	// EventInvalidStep is raised when a tick is given a negative or non-finite wall time.
	EventInvalidStep
	// EventDiverged is raised when a sub-step produced a non-finite state and was rolled back.
	EventDiverged
	// EventFrameSkip is raised when a tick needed more sub-steps than allowed.
	EventFrameSkip
	// EventReset is raised when the flight is reset.
	EventReset
	// EventPaused is raised when the simulation is paused.
	EventPaused
	// EventResumed is raised when the simulation is resumed.
	EventResumed
)

func (k EventKind) String() string {
	switch k {
	case EventFlameOut:
		return "flame-out"
	case EventGroundContact:
		return "ground-contact"
	case EventInvalidStep:
		return "invalid-step"
	case EventDiverged:
		return "diverged"
	case EventFrameSkip:
		return "frame-skip"
	case EventReset:
		return "reset"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Warning returns whether this kind of event signals a numerical problem.
func (k EventKind) Warning() bool {
	return k == EventInvalidStep || k == EventDiverged || k == EventFrameSkip
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is something notable which happened during a tick.
type Event struct {
	Kind    EventKind `json:"kind"`
	Time    float64   `json:"time"`
	Message string    `json:"message,omitempty"`
}

func (e Event) String() string {
	if e.Message == "" {
		return fmt.Sprintf("t=%.2fs %s", e.Time, e.Kind)
	}
	return fmt.Sprintf("t=%.2fs %s: %s", e.Time, e.Kind, e.Message)
}
