package audioio

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// MockSource is a synthetic audio source for tests and demos.
// It generates silence, an optional sine tone, and optional clap bursts
// scheduled relative to the start of the stream.
type MockSource struct {
	pump

	// Synthetic audio generation
	frequency float64 // Hz, 0 = silence
	amplitude float64 // 0.0 to 1.0

	claps      []time.Duration
	clapLevel  int16
	clapLength time.Duration

	paced     bool
	maxChunks int // 0 = unlimited
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave configures the mock to generate a background sine wave.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// WithClaps schedules square-wave bursts of the given peak level and length
// at each offset from the start of the stream. A burst's RMS equals level.
func WithClaps(level int16, length time.Duration, at ...time.Duration) MockSourceOption {
	return func(m *MockSource) {
		m.clapLevel = level
		m.clapLength = length
		m.claps = append(m.claps, at...)
	}
}

// WithChunkLimit ends the stream after n chunks. Read then returns io.EOF.
func WithChunkLimit(n int) MockSourceOption {
	return func(m *MockSource) {
		m.maxChunks = n
	}
}

// WithoutPacing generates chunks as fast as the reader consumes them
// instead of one per BufferDuration. No chunk is ever dropped.
func WithoutPacing() MockSourceOption {
	return func(m *MockSource) {
		m.paced = false
	}
}

// NewMockSource creates a new mock audio source.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	m := &MockSource{
		amplitude: 0.5,
		paced:     true,
	}
	m.init(string(BackendMock), cfg, logger)

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start begins generating audio.
func (m *MockSource) Start(ctx context.Context) error {
	if err := m.start(ctx, m.paced, m.generate); err != nil {
		return err
	}

	m.logger.Info("mock audio source started",
		"sample_rate", m.cfg.SampleRate,
		"frequency", m.frequency,
		"claps", len(m.claps),
		"paced", m.paced,
	)
	return nil
}

func (m *MockSource) generate(ctx context.Context, stop <-chan struct{}, emit emitFunc) error {
	var tick <-chan time.Time
	if m.paced {
		ticker := time.NewTicker(m.cfg.BufferDuration)
		defer ticker.Stop()
		tick = ticker.C
	}

	var frame int64
	for n := 0; m.maxChunks == 0 || n < m.maxChunks; n++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-stop:
				return nil
			case <-tick:
			}
		}

		chunk := m.generateChunk(frame)
		frame += int64(m.cfg.BufferSize())
		if !emit(chunk) {
			return ctx.Err()
		}
	}

	m.logger.Debug("mock audio source reached chunk limit", "chunks", m.maxChunks)
	return nil
}

// generateChunk renders the block starting at the given frame index.
func (m *MockSource) generateChunk(start int64) AudioChunk {
	bufferSize := m.cfg.BufferSize()
	channels := m.cfg.Channels
	rate := float64(m.cfg.SampleRate)
	samples := make([]int16, bufferSize*channels)

	for i := 0; i < bufferSize; i++ {
		frame := start + int64(i)

		var v int16
		if m.frequency > 0 {
			phase := 2 * math.Pi * m.frequency * float64(frame) / rate
			v = int16(m.amplitude * math.Sin(phase) * 32767)
		}
		if m.inClap(frame) {
			v = m.clapLevel
			if frame%2 == 1 {
				v = -m.clapLevel
			}
		}

		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = v
		}
	}

	return AudioChunk{
		Samples:    samples,
		SampleRate: m.cfg.SampleRate,
		Channels:   channels,
	}
}

func (m *MockSource) inClap(frame int64) bool {
	if len(m.claps) == 0 {
		return false
	}
	at := time.Duration(frame) * time.Second / time.Duration(m.cfg.SampleRate)
	for _, c := range m.claps {
		if at >= c && at < c+m.clapLength {
			return true
		}
	}
	return false
}

// Stop halts audio generation.
func (m *MockSource) Stop() error {
	return m.stop()
}

// Read reads the next audio chunk.
func (m *MockSource) Read(ctx context.Context) (AudioChunk, error) {
	return m.read(ctx)
}

// Stream returns the audio chunk channel.
func (m *MockSource) Stream() <-chan AudioChunk {
	return m.stream()
}

// Config returns the audio configuration.
func (m *MockSource) Config() Config {
	return m.cfg
}

// Name returns "mock".
func (m *MockSource) Name() string {
	return string(BackendMock)
}

// Close releases resources.
func (m *MockSource) Close() error {
	return m.close()
}

// Stats returns source statistics.
func (m *MockSource) Stats() SourceStats {
	return m.stats()
}

// Ensure MockSource implements SourceWithStats.
var _ SourceWithStats = (*MockSource)(nil)
