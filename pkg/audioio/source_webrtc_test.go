package audioio

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
)

func TestBlockAssembler(t *testing.T) {
	asm := newBlockAssembler(4)

	var blocks [][]int16
	collect := func(b []int16) bool {
		blocks = append(blocks, b)
		return true
	}

	asm.push([]int16{1, 2, 3}, collect)
	if len(blocks) != 0 {
		t.Fatalf("emitted %d blocks from 3 samples", len(blocks))
	}

	asm.push([]int16{4, 5, 6, 7, 8, 9}, collect)
	if len(blocks) != 2 {
		t.Fatalf("emitted %d blocks, want 2", len(blocks))
	}
	want := [][]int16{{1, 2, 3, 4}, {5, 6, 7, 8}}
	for i := range want {
		for j := range want[i] {
			if blocks[i][j] != want[i][j] {
				t.Errorf("block %d = %v, want %v", i, blocks[i], want[i])
				break
			}
		}
	}

	// The pending sample must not alias an emitted block.
	asm.push([]int16{10, 11, 12}, collect)
	if blocks[1][0] != 5 {
		t.Errorf("emitted block was overwritten: %v", blocks[1])
	}
	if got := blocks[2]; got[0] != 9 || got[3] != 12 {
		t.Errorf("third block = %v, want [9 10 11 12]", got)
	}
}

func TestBlockAssembler_Stop(t *testing.T) {
	asm := newBlockAssembler(2)
	calls := 0
	ok := asm.push([]int16{1, 2, 3, 4, 5, 6}, func([]int16) bool {
		calls++
		return false
	})
	if ok {
		t.Error("push should report false once fn refuses a block")
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestSeqTracker(t *testing.T) {
	tests := []struct {
		name string
		seqs []uint16
		lost int
	}{
		{"in order", []uint16{10, 11, 12, 13}, 0},
		{"gap", []uint16{10, 11, 14}, 2},
		{"wraparound", []uint16{65534, 65535, 0, 1}, 0},
		{"gap across wrap", []uint16{65535, 2}, 2},
		{"duplicate", []uint16{5, 6, 6, 7}, 0},
		{"reordered", []uint16{5, 7, 6, 8}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tr seqTracker
			lost := 0
			for _, s := range tt.seqs {
				lost += tr.observe(&rtp.Packet{Header: rtp.Header{SequenceNumber: s}})
			}
			if lost != tt.lost {
				t.Errorf("lost = %d, want %d", lost, tt.lost)
			}
		})
	}
}

func TestPickProducer(t *testing.T) {
	producers := []signalProducer{
		{ID: "a", Meta: map[string]string{"name": "kitchen"}},
		{ID: "b", Meta: map[string]string{"name": "office"}},
	}

	tests := []struct {
		name    string
		list    []signalProducer
		want    string
		wantErr bool
	}{
		{"", producers, "a", false},
		{"office", producers, "b", false},
		{"garage", producers, "", true},
		{"", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickProducer(tt.list, tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("pickProducer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("pickProducer() = %q, want %q", got, tt.want)
			}
		})
	}
}

// fakeSignalling plays the server side of the welcome/list exchange.
func fakeSignalling(t *testing.T, producers []signalProducer) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteJSON(signalMessage{Type: "welcome", PeerID: "consumer-1"})

		var req signalMessage
		if err := conn.ReadJSON(&req); err != nil || req.Type != "list" {
			return
		}
		// Unrelated messages before the reply are skipped.
		conn.WriteJSON(signalMessage{Type: "peerStatusChanged"})
		conn.WriteJSON(signalMessage{Type: "list", Producers: producers})

		// Wait for the client to hang up.
		conn.ReadMessage()
	}))
}

func TestSignalSession_Handshake(t *testing.T) {
	srv := fakeSignalling(t, []signalProducer{
		{ID: "p1", Meta: map[string]string{"name": "kitchen-mic"}},
	})
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	sess := newSignalSession(conn)
	defer sess.close()

	if err := sess.welcome(); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	id, err := sess.findProducer("kitchen-mic")
	if err != nil {
		t.Fatalf("findProducer: %v", err)
	}
	if id != "p1" {
		t.Errorf("producer id = %q, want p1", id)
	}
}
