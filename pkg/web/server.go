// Package web serves the clap listener's control surface: a small JSON API
// and a websocket event feed.
package web

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-clap/pkg/hub"
	"github.com/teslashibe/go-clap/pkg/listener"
	"github.com/teslashibe/go-clap/pkg/protocol"
)

// DefaultEventBuffer is how many recent events /api/events keeps.
const DefaultEventBuffer = 500

const shutdownTimeout = 5 * time.Second

// Config configures the control surface.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr" json:"addr"`

	// AccessLog enables per-request logging.
	AccessLog bool `yaml:"access_log" json:"access_log"`

	// EventBuffer is the number of recent events retained.
	EventBuffer int `yaml:"event_buffer" json:"event_buffer"`
}

// DefaultConfig returns the default control surface settings.
func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		EventBuffer: DefaultEventBuffer,
	}
}

// Server is the control surface server
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	listener *listener.Listener
	hub      *hub.Hub

	// Recent events, oldest first
	events   *eventRing
	eventsMu sync.RWMutex
}

// NewServer creates the control surface for l and subscribes to its events.
func NewServer(cfg Config, l *listener.Listener, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger.With("component", "web"),
		listener: l,
		hub:      hub.New("events", logger),
		events:   newEventRing(cfg.EventBuffer),
	}
	s.hub.OnInbound(s.handleInbound)
	l.OnEvent(s.recordEvent)

	app := fiber.New(fiber.Config{
		AppName:               "clapd",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{Output: os.Stderr}))
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/threshold", s.handleGetThreshold)
	api.Put("/threshold", s.handleSetThreshold)
	api.Get("/events", s.handleGetEvents)
	api.Get("/peaks", s.handleGetPeaks)
	api.Delete("/peaks", s.handleResetPeaks)
	api.Post("/pause", s.handlePause)
	api.Post("/resume", s.handleResume)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control surface listening", "addr", s.cfg.Addr)
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down control surface")
		return s.app.ShutdownWithTimeout(shutdownTimeout)
	}
}

// recordEvent runs on the listener goroutine.
func (s *Server) recordEvent(ev listener.Event) {
	msg, err := protocol.FromEvent(ev)
	if err != nil {
		s.logger.Warn("encode event failed", "error", err)
		return
	}

	s.eventsMu.Lock()
	s.events.push(msg)
	s.eventsMu.Unlock()

	s.broadcast(msg)
}

func (s *Server) broadcast(msg *protocol.Message) {
	if err := s.hub.BroadcastJSON(msg); err != nil {
		s.logger.Warn("broadcast failed", "type", msg.Type, "error", err)
	}
}

// Events returns the retained events, oldest first.
func (s *Server) Events() []*protocol.Message {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	return s.events.list()
}

// Status builds the current status snapshot.
func (s *Server) Status() protocol.StatusData {
	l := s.listener
	cfg := l.DetectorConfig()
	return protocol.StatusData{
		Backend:       l.Source().Name(),
		Threshold:     l.Threshold().Load(),
		RequiredClaps: cfg.RequiredClaps,
		MinIntervalMs: cfg.MinInterval.Milliseconds(),
		MaxIntervalMs: cfg.MaxInterval.Milliseconds(),
		Paused:        l.Paused(),
		Sequence:      l.State(),
		Peaks:         l.Peaks().Peaks(),
		Stats:         l.Stats(),
		Clients:       s.hub.ClientCount(),
	}
}
