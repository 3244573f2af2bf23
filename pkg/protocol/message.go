// Package protocol defines the WebSocket message types exchanged between
// clapd and its clients.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-clap/pkg/clap"
	"github.com/teslashibe/go-clap/pkg/listener"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Server → Client messages
	TypeClap              MessageType = "clap"               // Accepted impulse
	TypeSequenceCompleted MessageType = "sequence_completed" // Full sequence detected
	TypeSequenceReset     MessageType = "sequence_reset"     // Attempt timed out
	TypeThreshold         MessageType = "threshold"          // Threshold changed
	TypeStatus            MessageType = "status"             // Listener status snapshot
	TypeError             MessageType = "error"              // Rejected client request

	// Client → Server messages
	TypeSetThreshold MessageType = "set_threshold" // Change the live threshold

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// ClapData describes one accepted clap.
type ClapData struct {
	Ordinal   int     `json:"ordinal"`
	Amplitude float64 `json:"amplitude"`
	StreamTS  int64   `json:"stream_ts"` // Listener clock, ms
	AttemptID string  `json:"attempt_id"`
}

// SequenceData describes a completed or abandoned attempt.
type SequenceData struct {
	StreamTS  int64  `json:"stream_ts"`
	AttemptID string `json:"attempt_id,omitempty"`
}

// ThresholdData carries the detection threshold.
type ThresholdData struct {
	Value float64 `json:"value"`
}

// StatusData is a snapshot of the listener.
type StatusData struct {
	Backend       string             `json:"backend"`
	Threshold     float64            `json:"threshold"`
	RequiredClaps int                `json:"required_claps"`
	MinIntervalMs int64              `json:"min_interval_ms"`
	MaxIntervalMs int64              `json:"max_interval_ms"`
	Paused        bool               `json:"paused"`
	Sequence      clap.SequenceState `json:"sequence"`
	Peaks         []float64          `json:"peaks"`
	Stats         listener.Stats     `json:"stats"`
	Clients       int                `json:"clients"`
}

// ErrorData explains why a client request was rejected.
type ErrorData struct {
	Request MessageType `json:"request,omitempty"`
	Message string      `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
