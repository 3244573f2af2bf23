package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-clap/pkg/hub"
	"github.com/teslashibe/go-clap/pkg/protocol"
)

// ThresholdRequest is the body of PUT /api/threshold.
type ThresholdRequest struct {
	Value *float64 `json:"value"`
}

// handleStatus returns the listener status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// handleGetThreshold returns the live threshold
func (s *Server) handleGetThreshold(c *fiber.Ctx) error {
	return c.JSON(protocol.ThresholdData{Value: s.listener.Threshold().Load()})
}

// handleSetThreshold validates and applies a new threshold
func (s *Server) handleSetThreshold(c *fiber.Ctx) error {
	var req ThresholdRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body: " + err.Error(),
		})
	}
	if req.Value == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "value is required",
		})
	}

	if err := s.setThreshold(*req.Value); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(protocol.ThresholdData{Value: *req.Value})
}

// setThreshold applies v and tells every client.
func (s *Server) setThreshold(v float64) error {
	old := s.listener.Threshold().Load()
	if err := s.listener.Threshold().Set(v); err != nil {
		return err
	}
	s.logger.Info("threshold changed", "from", old, "to", v)

	msg, err := protocol.NewThresholdMessage(v)
	if err != nil {
		return err
	}
	s.broadcast(msg)
	return nil
}

// handleGetEvents returns recent events, oldest first
func (s *Server) handleGetEvents(c *fiber.Ctx) error {
	events := s.Events()
	if limit := c.QueryInt("limit", 0); limit > 0 && limit < len(events) {
		events = events[len(events)-limit:]
	}
	return c.JSON(events)
}

// handleGetPeaks returns the loudest block amplitudes seen
func (s *Server) handleGetPeaks(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"peaks": s.listener.Peaks().Peaks()})
}

// handleResetPeaks clears the peak tracker
func (s *Server) handleResetPeaks(c *fiber.Ctx) error {
	s.listener.Peaks().Reset()
	s.logger.Info("peak amplitudes reset")
	return c.JSON(fiber.Map{"peaks": []float64{}})
}

// handlePause stops detection
func (s *Server) handlePause(c *fiber.Ctx) error {
	s.listener.Pause()
	s.broadcastStatus()
	return c.JSON(fiber.Map{"paused": true})
}

// handleResume restarts detection from a clean state
func (s *Server) handleResume(c *fiber.Ctx) error {
	s.listener.Resume()
	s.broadcastStatus()
	return c.JSON(fiber.Map{"paused": false})
}

func (s *Server) broadcastStatus() {
	msg, err := protocol.NewStatusMessage(s.Status())
	if err != nil {
		s.logger.Warn("encode status failed", "error", err)
		return
	}
	s.broadcast(msg)
}

// handleEventsWS streams protocol messages to a websocket client,
// starting with a status snapshot.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.hub, c)
	if client == nil {
		return
	}

	msg, err := protocol.NewStatusMessage(s.Status())
	if err != nil {
		s.logger.Warn("encode status failed", "client", client.ID(), "error", err)
	} else {
		s.reply(client, msg)
	}

	client.Run()
}

// handleInbound serves client requests arriving on /ws/events.
func (s *Server) handleInbound(client *hub.Client, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.reply(client, errorReply("", err))
		return
	}

	switch msg.Type {
	case protocol.TypeSetThreshold:
		td, err := msg.GetThresholdData()
		if err == nil {
			err = s.setThreshold(td.Value)
		}
		if err != nil {
			s.reply(client, errorReply(msg.Type, err))
		}

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			s.reply(client, errorReply(msg.Type, err))
			return
		}
		pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
		if err == nil {
			s.reply(client, pong)
		}

	case protocol.TypePong:
		// Keepalive only.

	default:
		s.reply(client, errorReply(msg.Type, errors.New("unsupported message type")))
	}
}

func (s *Server) reply(client *hub.Client, msg *protocol.Message) {
	if msg == nil {
		return
	}
	if err := s.hub.SendJSON(client, msg); err != nil {
		s.logger.Warn("reply failed", "client", client.ID(), "error", err)
	}
}

func errorReply(req protocol.MessageType, err error) *protocol.Message {
	msg, _ := protocol.NewErrorMessage(req, err)
	return msg
}
