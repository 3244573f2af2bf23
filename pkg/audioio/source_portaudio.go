//go:build portaudio

package audioio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const portAudioAvailable = true

// PortAudioSource captures a local input device through PortAudio.
// Works on Linux (ALSA/Pulse), macOS (CoreAudio) and Windows.
type PortAudioSource struct {
	pump
	device *portaudio.DeviceInfo

	terminate sync.Once
}

// newPortAudioSource creates a PortAudio source for cfg.Device, or the
// default input device when cfg.Device is empty.
func newPortAudioSource(cfg Config, logger *slog.Logger) (Source, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	device, err := findInputDevice(cfg.Device)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	s := &PortAudioSource{device: device}
	s.init(string(BackendPortAudio), cfg, logger)

	s.logger.Info("portaudio source created",
		"device", device.Name,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
	)

	return s, nil
}

func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("default input device: %w", err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	for _, dev := range devices {
		if dev.Name == name && dev.MaxInputChannels > 0 {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("input device %q not found", name)
}

// Start opens the device stream and begins capture.
func (s *PortAudioSource) Start(ctx context.Context) error {
	if err := s.start(ctx, true, s.capture); err != nil {
		return err
	}
	s.logger.Info("portaudio source started", "device", s.device.Name)
	return nil
}

func (s *PortAudioSource) capture(ctx context.Context, stop <-chan struct{}, emit emitFunc) error {
	frames := s.cfg.BufferSize()
	buf := make([]int16, frames*s.cfg.Channels)

	params := portaudio.LowLatencyParameters(s.device, nil)
	params.Input.Channels = s.cfg.Channels
	params.SampleRate = float64(s.cfg.SampleRate)
	params.FramesPerBuffer = frames

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		// Read blocks for one buffer of audio.
		if err := stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				s.overruns.Add(1)
				continue
			}
			return fmt.Errorf("read stream: %w", err)
		}

		samples := make([]int16, len(buf))
		copy(samples, buf)
		if !emit(AudioChunk{Samples: samples, SampleRate: s.cfg.SampleRate, Channels: s.cfg.Channels}) {
			return nil
		}
	}
}

// Stop halts audio capture.
func (s *PortAudioSource) Stop() error {
	return s.stop()
}

// Read reads the next audio chunk.
func (s *PortAudioSource) Read(ctx context.Context) (AudioChunk, error) {
	return s.read(ctx)
}

// Stream returns the audio chunk channel.
func (s *PortAudioSource) Stream() <-chan AudioChunk {
	return s.stream()
}

// Config returns the audio configuration.
func (s *PortAudioSource) Config() Config {
	return s.cfg
}

// Name returns "portaudio".
func (s *PortAudioSource) Name() string {
	return string(BackendPortAudio)
}

// Close stops capture and releases PortAudio.
func (s *PortAudioSource) Close() error {
	err := s.close()
	s.terminate.Do(func() {
		if termErr := portaudio.Terminate(); termErr != nil && err == nil {
			err = termErr
		}
	})
	return err
}

// Stats returns source statistics.
func (s *PortAudioSource) Stats() SourceStats {
	return s.stats()
}

var _ SourceWithStats = (*PortAudioSource)(nil)
