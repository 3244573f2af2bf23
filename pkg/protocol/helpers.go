package protocol

import (
	"fmt"

	"github.com/teslashibe/go-clap/pkg/clap"
	"github.com/teslashibe/go-clap/pkg/listener"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// FromEvent converts a listener event into its wire message. The envelope
// timestamp is the event's wall-clock time.
func FromEvent(ev listener.Event) (*Message, error) {
	var (
		msg *Message
		err error
	)
	switch ev.Kind {
	case clap.ClapDetected:
		msg, err = NewMessage(TypeClap, ClapData{
			Ordinal:   ev.Ordinal,
			Amplitude: ev.Amplitude,
			StreamTS:  ev.Timestamp,
			AttemptID: ev.AttemptID,
		})
	case clap.SequenceCompleted:
		msg, err = NewMessage(TypeSequenceCompleted, SequenceData{StreamTS: ev.Timestamp, AttemptID: ev.AttemptID})
	case clap.SequenceReset:
		msg, err = NewMessage(TypeSequenceReset, SequenceData{StreamTS: ev.Timestamp, AttemptID: ev.AttemptID})
	default:
		return nil, fmt.Errorf("unknown event kind %v", ev.Kind)
	}
	if err != nil {
		return nil, err
	}
	if !ev.Time.IsZero() {
		msg.Timestamp = ev.Time.UnixMilli()
	}
	return msg, nil
}

// NewThresholdMessage creates a threshold message
func NewThresholdMessage(value float64) (*Message, error) {
	return NewMessage(TypeThreshold, ThresholdData{Value: value})
}

// NewSetThresholdMessage creates a client request to change the threshold
func NewSetThresholdMessage(value float64) (*Message, error) {
	return NewMessage(TypeSetThreshold, ThresholdData{Value: value})
}

// NewStatusMessage creates a status message
func NewStatusMessage(status StatusData) (*Message, error) {
	return NewMessage(TypeStatus, status)
}

// NewErrorMessage creates an error reply to a client request
func NewErrorMessage(request MessageType, err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Request: request, Message: err.Error()})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string, ts int64) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id, Timestamp: ts})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetClapData extracts clap data from a message
func (m *Message) GetClapData() (*ClapData, error) {
	var data ClapData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSequenceData extracts sequence data from a message
func (m *Message) GetSequenceData() (*SequenceData, error) {
	var data SequenceData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetThresholdData extracts threshold data from a message. The value is
// validated, so a set_threshold request can be applied directly.
func (m *Message) GetThresholdData() (*ThresholdData, error) {
	if m.Data == nil {
		return nil, fmt.Errorf("%s: missing data", m.Type)
	}
	var data ThresholdData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	if err := clap.ValidateThreshold(data.Value); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStatusData extracts status data from a message
func (m *Message) GetStatusData() (*StatusData, error) {
	var data StatusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
