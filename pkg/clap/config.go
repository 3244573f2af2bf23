package clap

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRequiredClaps indicates RequiredClaps must be at least 1.
	ErrInvalidRequiredClaps = errors.New("clap: required claps must be at least 1")
	// ErrInvalidInterval indicates the interval bounds are out of order or negative.
	ErrInvalidInterval = errors.New("clap: intervals must satisfy 0 <= min < max in whole milliseconds")
	// ErrInvalidThreshold indicates a threshold that is negative, NaN or infinite.
	ErrInvalidThreshold = errors.New("clap: threshold must be a finite non-negative number")
	// ErrInvalidAmplitude indicates a negative or NaN amplitude was fed to Process.
	ErrInvalidAmplitude = errors.New("clap: amplitude must be a non-negative number")
	// ErrNonMonotonicTimestamp indicates Process was called with a timestamp
	// earlier than the previous call.
	ErrNonMonotonicTimestamp = errors.New("clap: timestamps must be non-decreasing")
)

// Reference values from the original application.
const (
	DefaultRequiredClaps = 3
	DefaultMinInterval   = 200 * time.Millisecond
	DefaultMaxInterval   = 1000 * time.Millisecond
	DefaultThreshold     = 2000.0
	DefaultPeakCount     = 3
)

// Config holds the sequencing parameters of a Detector.
type Config struct {
	// RequiredClaps is the number of claps that complete a sequence.
	// Default: 3
	RequiredClaps int `yaml:"required_claps" json:"required_claps"`

	// MinInterval is the gap at or below which a second impulse is treated
	// as an echo of the previous clap.
	// Default: 200ms
	MinInterval time.Duration `yaml:"min_interval" json:"min_interval"`

	// MaxInterval is the gap at or above which a candidate is not accepted.
	// A gap strictly greater than MaxInterval abandons the attempt.
	// Default: 1000ms
	MaxInterval time.Duration `yaml:"max_interval" json:"max_interval"`

	// RestartOnTimeout lets the sample that times out an attempt start a new
	// one in the same call. When false, that sample is consumed by the reset.
	// Default: true
	RestartOnTimeout bool `yaml:"restart_on_timeout" json:"restart_on_timeout"`

	// Strict makes Process panic on contract violations instead of
	// ignoring the offending call.
	Strict bool `yaml:"strict" json:"strict"`
}

// DefaultConfig returns a Config with the reference values.
func DefaultConfig() Config {
	return Config{
		RequiredClaps:    DefaultRequiredClaps,
		MinInterval:      DefaultMinInterval,
		MaxInterval:      DefaultMaxInterval,
		RestartOnTimeout: true,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.RequiredClaps < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidRequiredClaps, c.RequiredClaps)
	}
	if c.MinInterval < 0 || c.MaxInterval <= c.MinInterval {
		return fmt.Errorf("%w, got min=%v max=%v", ErrInvalidInterval, c.MinInterval, c.MaxInterval)
	}
	// Timestamps are whole milliseconds.
	if c.MinInterval%time.Millisecond != 0 || c.MaxInterval%time.Millisecond != 0 {
		return fmt.Errorf("%w, got min=%v max=%v", ErrInvalidInterval, c.MinInterval, c.MaxInterval)
	}
	return nil
}

// WithRequiredClaps returns a copy with RequiredClaps set.
func (c Config) WithRequiredClaps(n int) Config {
	c.RequiredClaps = n
	return c
}

// WithIntervals returns a copy with both interval bounds set.
func (c Config) WithIntervals(minGap, maxGap time.Duration) Config {
	c.MinInterval = minGap
	c.MaxInterval = maxGap
	return c
}
