package clap

import (
	"fmt"
	"math"
	"sync/atomic"
)

// maxEventsPerCall bounds the events one Process call can emit:
// a reset, a clap and a completion.
const maxEventsPerCall = 3

// Detector recognizes a sequence of claps separated by bounded gaps.
//
// Detector is not safe for concurrent use. It is meant to be driven by a
// single processing goroutine; the only shared input is the threshold,
// which the caller loads fresh for every call.
type Detector struct {
	cfg    Config
	minGap int64 // ms
	maxGap int64 // ms

	// Timestamps of accepted claps in the current attempt.
	// Capacity is RequiredClaps; len is the clap count.
	timestamps []int64

	started  bool
	lastSeen int64

	out        []Event
	violations atomic.Int64
}

// NewDetector creates a Detector with the given configuration.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Detector{
		cfg:        cfg,
		minGap:     cfg.MinInterval.Milliseconds(),
		maxGap:     cfg.MaxInterval.Milliseconds(),
		timestamps: make([]int64, 0, cfg.RequiredClaps),
		out:        make([]Event, 0, maxEventsPerCall),
	}, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// Process consumes one block's amplitude and returns the events it caused,
// in emission order. timestamp is in monotonic milliseconds and must not
// decrease between calls. threshold is the value in effect for this block.
//
// The returned slice is reused by the next call to Process.
func (d *Detector) Process(timestamp int64, amplitude, threshold float64) []Event {
	d.out = d.out[:0]

	if err := d.check(timestamp, amplitude); err != nil {
		if d.cfg.Strict {
			panic(err)
		}
		d.violations.Add(1)
		return d.out
	}
	d.started = true
	d.lastSeen = timestamp

	// A timed-out attempt is cleared before the block is considered, so
	// the block can open a new attempt.
	if d.cfg.RestartOnTimeout && d.timedOut(timestamp) {
		d.reset(timestamp)
	}

	if amplitude > threshold && d.accepts(timestamp) {
		d.timestamps = append(d.timestamps, timestamp)
		d.out = append(d.out, Event{
			Kind:      ClapDetected,
			Timestamp: timestamp,
			Ordinal:   len(d.timestamps),
			Amplitude: amplitude,
		})

		if len(d.timestamps) == d.cfg.RequiredClaps {
			d.timestamps = d.timestamps[:0]
			d.out = append(d.out, Event{Kind: SequenceCompleted, Timestamp: timestamp})
			return d.out
		}
	}

	if d.timedOut(timestamp) {
		d.reset(timestamp)
	}

	return d.out
}

// accepts applies the gap gate to a candidate at timestamp.
func (d *Detector) accepts(timestamp int64) bool {
	n := len(d.timestamps)
	if n == 0 {
		return true
	}
	gap := timestamp - d.timestamps[n-1]
	return gap > d.minGap && gap < d.maxGap
}

func (d *Detector) timedOut(timestamp int64) bool {
	n := len(d.timestamps)
	return n > 0 && timestamp-d.timestamps[n-1] > d.maxGap
}

func (d *Detector) reset(timestamp int64) {
	d.timestamps = d.timestamps[:0]
	d.out = append(d.out, Event{Kind: SequenceReset, Timestamp: timestamp})
}

func (d *Detector) check(timestamp int64, amplitude float64) error {
	if math.IsNaN(amplitude) || amplitude < 0 {
		return fmt.Errorf("%w, got %v", ErrInvalidAmplitude, amplitude)
	}
	if d.started && timestamp < d.lastSeen {
		return fmt.Errorf("%w, got %d after %d", ErrNonMonotonicTimestamp, timestamp, d.lastSeen)
	}
	return nil
}

// Reset abandons the current attempt without emitting an event.
// The timestamp ordering check is also cleared.
func (d *Detector) Reset() {
	d.timestamps = d.timestamps[:0]
	d.started = false
	d.lastSeen = 0
}

// State returns a copy of the current attempt.
func (d *Detector) State() SequenceState {
	ts := make([]int64, len(d.timestamps))
	copy(ts, d.timestamps)
	return SequenceState{ClapTimestamps: ts, ClapCount: len(ts)}
}

// ClapCount returns the number of claps accepted in the current attempt.
func (d *Detector) ClapCount() int {
	return len(d.timestamps)
}

// Violations returns how many calls were ignored as contract violations.
// Safe to call from any goroutine.
func (d *Detector) Violations() int64 {
	return d.violations.Load()
}
