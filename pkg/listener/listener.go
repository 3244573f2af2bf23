// Package listener runs the capture loop: it pulls audio blocks from a
// source, measures them and feeds the clap detector, then dispatches the
// resulting events to registered handlers.
package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-clap/pkg/audioio"
	"github.com/teslashibe/go-clap/pkg/clap"
)

// Config configures a Listener.
type Config struct {
	Detector  clap.Config `yaml:",inline" json:"detector"`
	Threshold float64     `yaml:"threshold" json:"threshold"`
	PeakCount int         `yaml:"peak_count" json:"peak_count"`
}

// DefaultConfig returns the reference detector settings with threshold 2000.
func DefaultConfig() Config {
	return Config{
		Detector:  clap.DefaultConfig(),
		Threshold: clap.DefaultThreshold,
		PeakCount: clap.DefaultPeakCount,
	}
}

// Event is a detector event tagged with the attempt it belongs to.
type Event struct {
	clap.Event

	// AttemptID identifies the sequence attempt. It is assigned on the
	// attempt's first clap and shared by its completion or reset event.
	AttemptID string

	// Time is the wall-clock time the block was processed.
	Time time.Time
}

// Stats holds listener counters.
type Stats struct {
	Blocks        int64   `json:"blocks"`
	EmptyBlocks   int64   `json:"empty_blocks"`
	PausedBlocks  int64   `json:"paused_blocks"`
	Claps         int64   `json:"claps"`
	Sequences     int64   `json:"sequences"`
	Resets        int64   `json:"resets"`
	Violations    int64   `json:"violations"`
	LastAmplitude float64 `json:"last_amplitude"`
	Paused        bool    `json:"paused"`
}

// Option configures a Listener.
type Option func(*Listener)

// WithClock replaces the default wall clock.
func WithClock(c Clock) Option {
	return func(l *Listener) {
		l.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Listener owns a detector and drives it from an audio source. The
// detector is touched only by the Run goroutine; everything else is safe
// for concurrent use.
type Listener struct {
	src       audioio.Source
	det       *clap.Detector
	threshold *clap.Threshold
	peaks     *clap.PeakTracker
	clock     Clock
	logger    *slog.Logger

	handlersMu sync.RWMutex
	handlers   []func(Event)

	paused       atomic.Bool
	resetPending atomic.Bool

	// Owned by Run.
	attemptID string

	stateMu sync.RWMutex
	state   clap.SequenceState

	blocks        atomic.Int64
	emptyBlocks   atomic.Int64
	pausedBlocks  atomic.Int64
	claps         atomic.Int64
	sequences     atomic.Int64
	resets        atomic.Int64
	lastAmplitude atomic.Uint64
}

// New creates a listener reading from src.
func New(src audioio.Source, cfg Config, opts ...Option) (*Listener, error) {
	if src == nil {
		return nil, errors.New("listener: nil source")
	}
	det, err := clap.NewDetector(cfg.Detector)
	if err != nil {
		return nil, err
	}
	threshold := clap.NewThreshold(0)
	if err := threshold.Set(cfg.Threshold); err != nil {
		return nil, err
	}

	l := &Listener{
		src:       src,
		det:       det,
		threshold: threshold,
		peaks:     clap.NewPeakTracker(cfg.PeakCount),
		clock:     NewWallClock(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "listener")
	l.publish()
	return l, nil
}

// OnEvent registers a handler. Handlers run synchronously on the Run
// goroutine, in emission order, and must not block.
func (l *Listener) OnEvent(fn func(Event)) {
	l.handlersMu.Lock()
	defer l.handlersMu.Unlock()
	l.handlers = append(l.handlers, fn)
}

// Run starts the source and processes blocks until the source ends or ctx
// is cancelled. Both return nil.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.src.Start(ctx); err != nil {
		return fmt.Errorf("start %s source: %w", l.src.Name(), err)
	}
	defer l.src.Stop()

	l.logger.Info("listening",
		"source", l.src.Name(),
		"threshold", l.threshold.Load(),
		"required_claps", l.det.Config().RequiredClaps,
	)

	for {
		chunk, err := l.src.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				l.logger.Info("listener stopped", "blocks", l.blocks.Load())
				return nil
			}
			return fmt.Errorf("read %s source: %w", l.src.Name(), err)
		}
		l.process(chunk)
	}
}

func (l *Listener) process(chunk audioio.AudioChunk) {
	if l.resetPending.Swap(false) {
		l.det.Reset()
		l.attemptID = ""
		l.publish()
	}

	ts := l.clock.Stamp(chunk)
	l.blocks.Add(1)

	if len(chunk.Samples) == 0 {
		l.emptyBlocks.Add(1)
		return
	}
	if l.paused.Load() {
		l.pausedBlocks.Add(1)
		return
	}

	amplitude := clap.RMS(chunk.Samples)
	l.lastAmplitude.Store(math.Float64bits(amplitude))
	if l.peaks.Observe(amplitude) {
		l.logger.Debug("new peak amplitude", "amplitude", amplitude, "peaks", l.peaks.Peaks())
	}

	events := l.det.Process(ts, amplitude, l.threshold.Load())
	if len(events) == 0 {
		return
	}

	now := time.Now()
	l.handlersMu.RLock()
	handlers := l.handlers
	l.handlersMu.RUnlock()

	for _, e := range events {
		ev := l.tag(e, now)
		l.count(ev)
		for _, fn := range handlers {
			fn(ev)
		}
	}
	l.publish()
}

// tag attaches the attempt id. A first clap opens an attempt; completion
// and reset close it.
func (l *Listener) tag(e clap.Event, now time.Time) Event {
	if e.Kind == clap.ClapDetected && e.Ordinal == 1 {
		l.attemptID = uuid.NewString()
	}
	ev := Event{Event: e, AttemptID: l.attemptID, Time: now}
	if e.Kind != clap.ClapDetected {
		l.attemptID = ""
	}
	return ev
}

func (l *Listener) count(ev Event) {
	switch ev.Kind {
	case clap.ClapDetected:
		l.claps.Add(1)
		l.logger.Debug("clap detected", "ordinal", ev.Ordinal, "amplitude", ev.Amplitude, "ts", ev.Timestamp, "attempt", ev.AttemptID)
	case clap.SequenceCompleted:
		l.sequences.Add(1)
		l.logger.Info("clap sequence completed", "ts", ev.Timestamp, "attempt", ev.AttemptID)
	case clap.SequenceReset:
		l.resets.Add(1)
		l.logger.Debug("clap sequence reset", "ts", ev.Timestamp, "attempt", ev.AttemptID)
	}
}

func (l *Listener) publish() {
	st := l.det.State()
	l.stateMu.Lock()
	l.state = st
	l.stateMu.Unlock()
}

// State returns the sequence state as of the last processed event.
func (l *Listener) State() clap.SequenceState {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	ts := make([]int64, len(l.state.ClapTimestamps))
	copy(ts, l.state.ClapTimestamps)
	return clap.SequenceState{ClapTimestamps: ts, ClapCount: l.state.ClapCount}
}

// Pause stops feeding the detector. Blocks are still drained.
func (l *Listener) Pause() {
	if !l.paused.Swap(true) {
		l.logger.Info("listener paused")
	}
}

// Resume continues detection from a clean state; an attempt never spans
// a pause.
func (l *Listener) Resume() {
	if l.paused.Swap(false) {
		l.resetPending.Store(true)
		l.logger.Info("listener resumed")
	}
}

// Paused reports whether detection is paused.
func (l *Listener) Paused() bool {
	return l.paused.Load()
}

// Threshold returns the live threshold shared with the control surface.
func (l *Listener) Threshold() *clap.Threshold {
	return l.threshold
}

// Peaks returns the peak amplitude tracker.
func (l *Listener) Peaks() *clap.PeakTracker {
	return l.peaks
}

// DetectorConfig returns the detector configuration.
func (l *Listener) DetectorConfig() clap.Config {
	return l.det.Config()
}

// Source returns the audio source.
func (l *Listener) Source() audioio.Source {
	return l.src
}

// Stats returns a snapshot of the counters.
func (l *Listener) Stats() Stats {
	return Stats{
		Blocks:        l.blocks.Load(),
		EmptyBlocks:   l.emptyBlocks.Load(),
		PausedBlocks:  l.pausedBlocks.Load(),
		Claps:         l.claps.Load(),
		Sequences:     l.sequences.Load(),
		Resets:        l.resets.Load(),
		Violations:    l.det.Violations(),
		LastAmplitude: math.Float64frombits(l.lastAmplitude.Load()),
		Paused:        l.paused.Load(),
	}
}
