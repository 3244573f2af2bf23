package clap

import (
	"slices"
	"sync"
)

// PeakTracker keeps the loudest block amplitudes seen so far. It is meant
// for choosing a threshold: clap a few times and read the peaks back.
// Safe for concurrent use.
type PeakTracker struct {
	mu    sync.Mutex
	size  int
	peaks []float64
}

// NewPeakTracker creates a tracker that retains n values.
// n <= 0 falls back to DefaultPeakCount.
func NewPeakTracker(n int) *PeakTracker {
	if n <= 0 {
		n = DefaultPeakCount
	}
	return &PeakTracker{
		size:  n,
		peaks: make([]float64, 0, n),
	}
}

// Observe records an amplitude. It replaces the weakest retained peak when
// amplitude is louder. It reports whether the retained set changed.
func (p *PeakTracker) Observe(amplitude float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.peaks) < p.size {
		p.peaks = append(p.peaks, amplitude)
		return true
	}

	minIdx := 0
	for i := 1; i < len(p.peaks); i++ {
		if p.peaks[i] < p.peaks[minIdx] {
			minIdx = i
		}
	}
	if amplitude <= p.peaks[minIdx] {
		return false
	}
	p.peaks[minIdx] = amplitude
	return true
}

// Peaks returns the retained amplitudes, loudest first.
func (p *PeakTracker) Peaks() []float64 {
	p.mu.Lock()
	out := slices.Clone(p.peaks)
	p.mu.Unlock()

	slices.Sort(out)
	slices.Reverse(out)
	return out
}

// Reset discards all retained peaks.
func (p *PeakTracker) Reset() {
	p.mu.Lock()
	p.peaks = p.peaks[:0]
	p.mu.Unlock()
}
