package visualizer

import "time"

// State is the engine's session state.
type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	default:
		return "unknown"
	}
}

// SessionState describes the current session. ID and StartedAt are zero
// while Idle.
type SessionState struct {
	ID          string
	State       State
	Sensitivity float64
	StartedAt   time.Time
}

// Stats are cumulative counters over the engine's lifetime.
type Stats struct {
	Sessions        uint64
	FramesAnalyzed  uint64
	FramesEmitted   uint64
	FramesCoalesced uint64 // frames replaced in a mailbox before delivery
	SamplesDropped  uint64 // samples discarded by the frame buffer
	Reconnects      uint64
	CallbackPanics  uint64
	Subscribers     int
}
