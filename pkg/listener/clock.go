package listener

import (
	"time"

	"github.com/teslashibe/go-clap/pkg/audioio"
)

// Clock stamps each audio block with a monotonic millisecond timestamp.
type Clock interface {
	// Stamp is called once per block, in arrival order.
	Stamp(chunk audioio.AudioChunk) int64
}

// WallClock measures milliseconds of monotonic wall time since the first
// block was stamped.
type WallClock struct {
	start time.Time
	now   func() time.Time
}

// NewWallClock returns a clock backed by time.Now.
func NewWallClock() *WallClock {
	return &WallClock{now: time.Now}
}

// Stamp returns the milliseconds elapsed since the first call.
func (c *WallClock) Stamp(audioio.AudioChunk) int64 {
	now := c.now()
	if c.start.IsZero() {
		c.start = now
	}
	return now.Sub(c.start).Milliseconds()
}

// StreamClock derives time from the audio itself: each block is stamped
// with the stream position at its end, independent of scheduling jitter.
// Dropped chunks are not accounted for.
type StreamClock struct {
	elapsed time.Duration
}

// NewStreamClock returns a clock at stream position zero.
func NewStreamClock() *StreamClock {
	return &StreamClock{}
}

// Stamp advances the clock by the chunk's duration.
func (c *StreamClock) Stamp(chunk audioio.AudioChunk) int64 {
	c.elapsed += chunk.Duration()
	return c.elapsed.Milliseconds()
}
