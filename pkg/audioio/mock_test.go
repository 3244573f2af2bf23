package audioio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"
)

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func TestMockSource_StartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx := context.Background()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Starting again should be a no-op
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// Stopping again should be a no-op
	if err := src.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}
}

func TestMockSource_Read(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	chunk, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if got, want := len(chunk.Samples), cfg.BufferSize()*cfg.Channels; got != want {
		t.Errorf("Expected %d samples, got %d", want, got)
	}
	if chunk.SampleRate != cfg.SampleRate {
		t.Errorf("Expected sample rate %d, got %d", cfg.SampleRate, chunk.SampleRate)
	}
	if chunk.Channels != cfg.Channels {
		t.Errorf("Expected %d channels, got %d", cfg.Channels, chunk.Channels)
	}
}

func TestMockSource_ReadBeforeStart(t *testing.T) {
	src := NewMockSource(DefaultConfig(), nil)
	defer src.Close()

	if _, err := src.Read(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Read before Start = %v, want ErrNotStarted", err)
	}
}

func TestMockSource_StartAfterClose(t *testing.T) {
	src := NewMockSource(DefaultConfig(), nil)
	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := src.Start(context.Background()); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Start after Close = %v, want io.ErrClosedPipe", err)
	}
	// Close is idempotent
	if err := src.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestMockSource_ChunkLimitEOF(t *testing.T) {
	cfg := DefaultConfig()
	src := NewMockSource(cfg, nil, WithoutPacing(), WithChunkLimit(5))
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	n := 0
	for {
		_, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		n++
	}
	if n != 5 {
		t.Errorf("read %d chunks, want 5", n)
	}

	stats := src.Stats()
	if stats.ChunksRead != 5 {
		t.Errorf("ChunksRead = %d, want 5", stats.ChunksRead)
	}
	if stats.SamplesRead != int64(5*cfg.BufferSize()) {
		t.Errorf("SamplesRead = %d, want %d", stats.SamplesRead, 5*cfg.BufferSize())
	}
	if stats.Overruns != 0 {
		t.Errorf("Overruns = %d, want 0 for an unpaced source", stats.Overruns)
	}
	if stats.Backend != "mock" {
		t.Errorf("Backend = %q, want mock", stats.Backend)
	}
}

func TestMockSource_Claps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 1000
	cfg.BufferDuration = 10 * time.Millisecond // 10 samples per chunk

	src := NewMockSource(cfg, nil,
		WithSineWave(0, 0),
		WithClaps(3000, 20*time.Millisecond, 50*time.Millisecond),
		WithoutPacing(),
		WithChunkLimit(10),
	)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var levels []float64
	for chunk := range src.Stream() {
		levels = append(levels, rms(chunk.Samples))
	}

	if len(levels) != 10 {
		t.Fatalf("got %d chunks, want 10", len(levels))
	}
	for i, level := range levels {
		want := 0.0
		if i == 5 || i == 6 {
			want = 3000
		}
		if level != want {
			t.Errorf("chunk %d RMS = %v, want %v", i, level, want)
		}
	}
}

func TestMockSource_SineWave(t *testing.T) {
	cfg := DefaultConfig()
	src := NewMockSource(cfg, nil, WithSineWave(440, 0.5), WithoutPacing(), WithChunkLimit(1))
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	chunk, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	// RMS of a sine is peak/sqrt(2)
	want := 0.5 * 32767 / math.Sqrt2
	if got := rms(chunk.Samples); math.Abs(got-want) > want*0.05 {
		t.Errorf("sine RMS = %v, want about %v", got, want)
	}
}

func TestMockSource_Stream(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stream := src.Stream()
	if stream == nil {
		t.Fatal("Stream returned nil")
	}

	count := 0
	for count < 3 {
		select {
		case _, ok := <-stream:
			if !ok {
				t.Fatal("stream closed early")
			}
			count++
		case <-ctx.Done():
			t.Fatalf("timed out after %d chunks", count)
		}
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// Drain: the producer closes the channel on exit.
	for range stream {
	}
}

func TestMockSource_Stats(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	stats := src.Stats()
	if stats.Running {
		t.Error("should not be running before Start")
	}
	if stats.Backend != "mock" {
		t.Errorf("Expected backend 'mock', got %q", stats.Backend)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	src.Start(ctx)

	if _, err := src.Read(ctx); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	stats = src.Stats()
	if !stats.Running {
		t.Error("should be running after Start")
	}
	if stats.ChunksRead < 1 {
		t.Errorf("ChunksRead = %d, want >= 1", stats.ChunksRead)
	}

	src.Stop()

	if src.Stats().Running {
		t.Error("should not be running after Stop")
	}
}

func TestAudioChunk_FramesDuration(t *testing.T) {
	tests := []struct {
		name     string
		chunk    AudioChunk
		frames   int
		duration time.Duration
	}{
		{"mono", AudioChunk{Samples: make([]int16, 1000), SampleRate: 1000, Channels: 1}, 1000, time.Second},
		{"stereo", AudioChunk{Samples: make([]int16, 1000), SampleRate: 1000, Channels: 2}, 500, 500 * time.Millisecond},
		{"zero channels", AudioChunk{Samples: make([]int16, 10), SampleRate: 1000}, 0, 0},
		{"zero rate", AudioChunk{Samples: make([]int16, 10), Channels: 1}, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.chunk.Frames(); got != tt.frames {
				t.Errorf("Frames() = %d, want %d", got, tt.frames)
			}
			if got := tt.chunk.Duration(); got != tt.duration {
				t.Errorf("Duration() = %v, want %v", got, tt.duration)
			}
		})
	}
}

func TestAudioChunk_FromBytes(t *testing.T) {
	var chunk AudioChunk
	chunk.FromBytes([]byte{0x01, 0x00, 0xFF, 0xFF, 0x00, 0x80, 0x7F}, 16000, 1)

	want := []int16{1, -1, -32768}
	if len(chunk.Samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(chunk.Samples), len(want))
	}
	for i := range want {
		if chunk.Samples[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, chunk.Samples[i], want[i])
		}
	}
	if chunk.SampleRate != 16000 || chunk.Channels != 1 {
		t.Errorf("format = %d Hz/%d ch, want 16000/1", chunk.SampleRate, chunk.Channels)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"negative channels", func(c *Config) { c.Channels = -1 }, true},
		{"zero buffer", func(c *Config) { c.BufferDuration = 0 }, true},
		{"buffer shorter than a sample", func(c *Config) { c.SampleRate = 100; c.BufferDuration = time.Millisecond }, true},
		{"webrtc without url", func(c *Config) { c.Backend = BackendWebRTC }, true},
		{"webrtc with url", func(c *Config) { c.Backend = BackendWebRTC; c.SignallingURL = "ws://localhost:8443" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_BufferSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 16000
	cfg.BufferDuration = 100 * time.Millisecond

	if got := cfg.BufferSize(); got != 1600 {
		t.Errorf("BufferSize() = %d, want 1600", got)
	}
	if got := cfg.BufferBytes(); got != 3200 {
		t.Errorf("BufferBytes() = %d, want 3200", got)
	}
}

func TestNewSource(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Config)
		wantName string
		wantErr  bool
	}{
		{"mock", func(c *Config) { c.Backend = BackendMock }, "mock", false},
		{"webrtc", func(c *Config) { c.Backend = BackendWebRTC; c.SignallingURL = "ws://localhost:8443" }, "webrtc", false},
		{"unknown", func(c *Config) { c.Backend = "bogus" }, "", true},
		{"invalid", func(c *Config) { c.Backend = BackendMock; c.SampleRate = 0 }, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			src, err := NewSource(cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSource() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer src.Close()
			if src.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", src.Name(), tt.wantName)
			}
		})
	}
}

func TestNewSource_AutoFallbackWarns(t *testing.T) {
	if portAudioAvailable {
		t.Skip("portaudio compiled in, auto does not fall back")
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := DefaultConfig()
	cfg.Backend = BackendAuto
	src, err := NewSource(cfg, logger)
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	defer src.Close()

	if src.Name() != string(BackendMock) {
		t.Errorf("Name() = %q, want mock", src.Name())
	}
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "synthetic mock audio") {
		t.Errorf("expected a fallback warning, got %q", out)
	}

	buf.Reset()
	cfg.Backend = BackendMock
	mock, err := NewSource(cfg, logger)
	if err != nil {
		t.Fatalf("NewSource(mock) error = %v", err)
	}
	defer mock.Close()
	if buf.Len() != 0 {
		t.Errorf("explicit mock backend should not warn, got %q", buf.String())
	}
}

func TestAvailableBackends(t *testing.T) {
	backends := AvailableBackends()

	hasMock := false
	for _, b := range backends {
		if b == BackendMock {
			hasMock = true
		}
	}
	if !hasMock {
		t.Error("Mock backend should always be available")
	}
}
