package web

import "github.com/teslashibe/go-clap/pkg/protocol"

// eventRing keeps the most recent events in a fixed buffer.
type eventRing struct {
	buf  []*protocol.Message
	next int
	full bool
}

func newEventRing(size int) *eventRing {
	return &eventRing{buf: make([]*protocol.Message, size)}
}

// push stores msg, overwriting the oldest event once the ring is full.
func (r *eventRing) push(msg *protocol.Message) {
	r.buf[r.next] = msg
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *eventRing) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// list returns a copy of the retained events, oldest first.
func (r *eventRing) list() []*protocol.Message {
	out := make([]*protocol.Message, 0, r.len())
	if r.full {
		out = append(out, r.buf[r.next:]...)
	}
	return append(out, r.buf[:r.next]...)
}
