// Package audioio captures PCM16 audio blocks for the clap listener.
//
// This package supports several backends:
//   - PortAudio - a real microphone (build with -tags portaudio)
//   - WebRTC - a remote microphone published by a webrtcsink producer
//   - Mock - synthetic silence, tones and clap bursts for CI and demos
//
// The backend is selected from configuration, or automatically when
// Backend is "auto".
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto selects PortAudio when it was compiled in, else Mock.
	BackendAuto Backend = "auto"
	// BackendALSA is an alias for PortAudio on Linux.
	BackendALSA Backend = "alsa"
	// BackendCoreAudio is an alias for PortAudio on macOS.
	BackendCoreAudio Backend = "coreaudio"
	// BackendPortAudio captures from a local device through PortAudio.
	BackendPortAudio Backend = "portaudio"
	// BackendWebRTC receives an Opus track from a WebRTC producer.
	BackendWebRTC Backend = "webrtc"
	// BackendMock uses a synthetic source for testing.
	BackendMock Backend = "mock"
)

// Config holds audio configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	// Default: "auto"
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the audio sample rate in Hz.
	// Default: 22050
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels"`

	// BufferDuration is the length of one audio block.
	// Default: 46ms (about 1024 samples at 22.05kHz)
	BufferDuration time.Duration `yaml:"buffer_duration" json:"buffer_duration"`

	// Device is the input device name for PortAudio.
	// Empty selects the system default input.
	Device string `yaml:"device" json:"device"`

	// SignallingURL is the webrtcsink signalling server, e.g. "ws://192.168.68.80:8443".
	// Only used by the WebRTC backend.
	SignallingURL string `yaml:"signalling_url" json:"signalling_url"`

	// Producer is the "name" meta of the producer to consume.
	// Only used by the WebRTC backend. Empty selects the first producer.
	Producer string `yaml:"producer" json:"producer"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     22050,
		Channels:       1,
		BufferDuration: 46 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration)
	}
	if c.BufferSize() == 0 {
		return fmt.Errorf("buffer_duration %v holds no samples at %d Hz", c.BufferDuration, c.SampleRate)
	}
	if c.Backend == BackendWebRTC && c.SignallingURL == "" {
		return fmt.Errorf("signalling_url is required for the webrtc backend")
	}
	return nil
}

// BufferSize returns the number of frames per block.
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// BufferBytes returns the size of a block in bytes (assuming int16 samples).
func (c *Config) BufferBytes() int {
	return c.BufferSize() * c.Channels * 2
}
