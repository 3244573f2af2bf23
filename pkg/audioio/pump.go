package audioio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrNotStarted is returned by Read before the source was started.
var ErrNotStarted = errors.New("audioio: source not started")

// streamDepth is the number of chunks buffered between producer and reader.
const streamDepth = 10

// emitFunc hands a chunk to the reader. It returns false once the
// producer should stop. It may be called from goroutines the producer
// spawned, even after the producer returned.
type emitFunc func(AudioChunk) bool

// produceFunc generates chunks until stop is closed, ctx is done, or the
// underlying device ends. It must not call Stop.
type produceFunc func(ctx context.Context, stop <-chan struct{}, emit emitFunc) error

// pump owns the lifecycle every Source shares: the chunk channel, the
// start/stop/close state and the counters. Only the producing goroutine
// closes the chunk channel, and only after every in-flight emit finished.
type pump struct {
	name   string
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan AudioChunk
	stopCh   chan struct{}
	done     chan struct{}

	chunksRead  atomic.Int64
	samplesRead atomic.Int64
	overruns    atomic.Int64
}

func (p *pump) init(name string, cfg Config, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	p.name = name
	p.cfg = cfg
	p.logger = logger
}

// start launches produce on its own goroutine. When paced is true the
// producer runs at device speed and chunks are dropped if the reader falls
// behind; otherwise emit blocks until the reader takes the chunk.
func (p *pump) start(ctx context.Context, paced bool, produce produceFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return io.ErrClosedPipe
	}
	if p.running {
		return nil
	}

	stream := make(chan AudioChunk, streamDepth)
	stop := make(chan struct{})
	done := make(chan struct{})
	quit := make(chan struct{})
	var sending sync.RWMutex
	p.running = true
	p.streamCh = stream
	p.stopCh = stop
	p.done = done

	emit := func(chunk AudioChunk) bool {
		sending.RLock()
		defer sending.RUnlock()

		select {
		case <-quit:
			return false
		default:
		}

		if paced {
			select {
			case stream <- chunk:
			case <-stop:
				return false
			case <-quit:
				return false
			default:
				p.overruns.Add(1)
				p.logger.Debug("audio source: buffer full, dropping chunk", "backend", p.name)
				return true
			}
		} else {
			select {
			case stream <- chunk:
			case <-stop:
				return false
			case <-quit:
				return false
			case <-ctx.Done():
				return false
			}
		}
		p.chunksRead.Add(1)
		p.samplesRead.Add(int64(len(chunk.Samples)))
		return true
	}

	go func() {
		defer close(done)

		err := produce(ctx, stop, emit)
		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn("audio source ended with error", "backend", p.name, "error", err)
		}

		// Refuse new emits, wait out the ones in flight, then close.
		close(quit)
		sending.Lock()
		close(stream)
		sending.Unlock()

		p.mu.Lock()
		if p.stopCh == stop {
			p.running = false
		}
		p.mu.Unlock()
	}()

	return nil
}

// stop signals the producer and waits for it to exit.
func (p *pump) stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopCh)
	done := p.done
	p.mu.Unlock()

	<-done
	p.logger.Info("audio source stopped", "backend", p.name)
	return nil
}

func (p *pump) close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	return p.stop()
}

func (p *pump) read(ctx context.Context) (AudioChunk, error) {
	p.mu.Lock()
	stream := p.streamCh
	p.mu.Unlock()

	if stream == nil {
		return AudioChunk{}, ErrNotStarted
	}

	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-stream:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

func (p *pump) stream() <-chan AudioChunk {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streamCh
}

func (p *pump) stats() SourceStats {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()

	return SourceStats{
		ChunksRead:  p.chunksRead.Load(),
		SamplesRead: p.samplesRead.Load(),
		Overruns:    p.overruns.Load(),
		Running:     running,
		Backend:     p.name,
	}
}
