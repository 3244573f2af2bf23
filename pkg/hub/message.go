// Package hub fans out messages to websocket clients over channels. Slow
// clients are dropped rather than allowed to stall the broadcaster.
package hub

// Message is one pre-encoded JSON text frame.
type Message struct {
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}
