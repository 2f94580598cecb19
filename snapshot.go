package rocket

import "sync"

// Status is the run state of a Flight.
type Status uint8

const (
	// Running means the clock advances with wall time.
	Running Status = iota + 1
	// Paused means the state is frozen.
	Paused
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a read-only copy of the flight after a tick. Nothing in it aliases
// the Flight which produced it.
type Snapshot struct {
	Time            float64        `json:"time"`
	Status          Status         `json:"status"`
	TimeScale       float64        `json:"timeScale"`
	Throttle        float64        `json:"throttle"`
	DragCoefficient float64        `json:"dragCoefficient"` // subsonic
	State           RigidBodyState `json:"state"`
	Telemetry       Telemetry      `json:"telemetry"`
	Events          []Event        `json:"events"`
}

// SnapshotStore holds the latest published snapshot for readers on other goroutines.
type SnapshotStore struct {
	mu     sync.RWMutex
	latest Snapshot
	ok     bool
}

// NewSnapshotStore returns an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Publish replaces the latest snapshot.
func (s *SnapshotStore) Publish(snap Snapshot) {
	snap.Events = append([]Event(nil), snap.Events...)
	s.mu.Lock()
	s.latest, s.ok = snap, true
	s.mu.Unlock()
}

// Latest returns the latest snapshot, and false if nothing was published yet.
func (s *SnapshotStore) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.latest
	snap.Events = append([]Event(nil), snap.Events...)
	return snap, s.ok
}
