package clap

import "fmt"

// EventKind identifies the kind of detector event.
type EventKind int

const (
	// ClapDetected is emitted once per accepted impulse.
	ClapDetected EventKind = iota + 1
	// SequenceCompleted is emitted when RequiredClaps claps were accepted.
	SequenceCompleted
	// SequenceReset is emitted when an attempt times out.
	SequenceReset
)

// String returns the wire name of the kind.
func (k EventKind) String() string {
	switch k {
	case ClapDetected:
		return "clap"
	case SequenceCompleted:
		return "sequence_completed"
	case SequenceReset:
		return "sequence_reset"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a single detector output.
type Event struct {
	Kind EventKind

	// Timestamp is the millisecond timestamp of the block that produced the event.
	Timestamp int64

	// Ordinal is the 1-based index of the clap within the current attempt.
	// Only set for ClapDetected.
	Ordinal int

	// Amplitude is the block amplitude that was accepted.
	// Only set for ClapDetected.
	Amplitude float64
}

// String renders the event for logs.
func (e Event) String() string {
	if e.Kind == ClapDetected {
		return fmt.Sprintf("%s #%d at %dms (amplitude %.1f)", e.Kind, e.Ordinal, e.Timestamp, e.Amplitude)
	}
	return fmt.Sprintf("%s at %dms", e.Kind, e.Timestamp)
}

// ClapEvent is the record of one accepted impulse.
type ClapEvent struct {
	Timestamp int64
	Ordinal   int
}

// Clap returns the ClapEvent carried by a ClapDetected event.
// ok is false for other kinds.
func (e Event) Clap() (ce ClapEvent, ok bool) {
	if e.Kind != ClapDetected {
		return ClapEvent{}, false
	}
	return ClapEvent{Timestamp: e.Timestamp, Ordinal: e.Ordinal}, true
}

// SequenceState is a snapshot of the detector's current attempt.
type SequenceState struct {
	ClapTimestamps []int64 `json:"clap_timestamps"`
	ClapCount      int     `json:"clap_count"`
}
