package web

import (
	"testing"

	"github.com/teslashibe/go-clap/pkg/protocol"
)

func TestEventRing(t *testing.T) {
	msg := func(ts int64) *protocol.Message {
		return &protocol.Message{Type: protocol.TypeClap, Timestamp: ts}
	}

	tests := []struct {
		name   string
		size   int
		pushed int
		want   []int64
	}{
		{"empty", 3, 0, []int64{}},
		{"partial", 3, 2, []int64{1, 2}},
		{"exactly full", 3, 3, []int64{1, 2, 3}},
		{"wrapped once", 3, 4, []int64{2, 3, 4}},
		{"wrapped many times", 3, 11, []int64{9, 10, 11}},
		{"size one", 1, 5, []int64{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEventRing(tt.size)
			backing := &r.buf[0]
			for i := 1; i <= tt.pushed; i++ {
				r.push(msg(int64(i)))
			}

			if &r.buf[0] != backing || len(r.buf) != tt.size {
				t.Error("push reallocated the ring")
			}

			got := r.list()
			if len(got) != len(tt.want) || r.len() != len(tt.want) {
				t.Fatalf("list() has %d events, len() = %d, want %d", len(got), r.len(), len(tt.want))
			}
			for i, ts := range tt.want {
				if got[i].Timestamp != ts {
					t.Errorf("event %d ts = %d, want %d", i, got[i].Timestamp, ts)
				}
			}
		})
	}
}

func TestEventRing_ListIsACopy(t *testing.T) {
	r := newEventRing(2)
	r.push(&protocol.Message{Timestamp: 1})
	got := r.list()
	got[0] = nil
	if r.list()[0] == nil {
		t.Error("list() shares storage with the ring")
	}
}
