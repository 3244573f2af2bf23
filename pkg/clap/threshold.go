package clap

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Threshold is a float64 that one goroutine writes and another reads
// without locking. The value is stored as its IEEE-754 bits.
type Threshold struct {
	bits atomic.Uint64
}

// NewThreshold creates a Threshold holding v.
func NewThreshold(v float64) *Threshold {
	t := &Threshold{}
	t.Store(v)
	return t
}

// Load returns the latest stored value.
func (t *Threshold) Load() float64 {
	return math.Float64frombits(t.bits.Load())
}

// Store replaces the value without validation.
func (t *Threshold) Store(v float64) {
	t.bits.Store(math.Float64bits(v))
}

// Set validates v and stores it.
func (t *Threshold) Set(v float64) error {
	if err := ValidateThreshold(v); err != nil {
		return err
	}
	t.Store(v)
	return nil
}

// ValidateThreshold rejects negative, NaN and infinite values.
func ValidateThreshold(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w, got %v", ErrInvalidThreshold, v)
	}
	return nil
}
