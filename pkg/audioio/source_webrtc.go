package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"gopkg.in/hraban/opus.v2"
)

const (
	// Opus always decodes at 48kHz. Stereo decoding accepts both mono and
	// stereo streams.
	opusSampleRate = 48000
	opusChannels   = 2

	// maxOpusFrame is the largest Opus frame (120ms at 48kHz) per channel.
	maxOpusFrame = 5760

	signallingTimeout = 10 * time.Second
)

// WebRTCSource receives a remote microphone published by a GStreamer
// webrtcsink producer. The Opus track is decoded, downmixed to mono,
// resampled to the configured rate and cut into BufferDuration blocks.
// Chunks are always mono.
type WebRTCSource struct {
	pump
	dialer *websocket.Dialer

	packets atomic.Int64
	lost    atomic.Int64
	decErrs atomic.Int64
}

// NewWebRTCSource creates a WebRTC source for cfg.SignallingURL.
func NewWebRTCSource(cfg Config, logger *slog.Logger) *WebRTCSource {
	s := &WebRTCSource{
		dialer: &websocket.Dialer{HandshakeTimeout: signallingTimeout},
	}
	s.init(string(BackendWebRTC), cfg, logger)
	return s
}

// Start connects to the signalling server and begins receiving audio.
func (s *WebRTCSource) Start(ctx context.Context) error {
	if err := s.start(ctx, true, s.receive); err != nil {
		return err
	}
	s.logger.Info("webrtc source started", "signalling", s.cfg.SignallingURL, "producer", s.cfg.Producer)
	return nil
}

func (s *WebRTCSource) receive(ctx context.Context, stop <-chan struct{}, emit emitFunc) error {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.SignallingURL, nil)
	if err != nil {
		return fmt.Errorf("dial signalling: %w", err)
	}
	sess := newSignalSession(conn)
	defer sess.close()

	if err := sess.welcome(); err != nil {
		return err
	}
	producerID, err := sess.findProducer(s.cfg.Producer)
	if err != nil {
		return err
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return fmt.Errorf("create peer connection: %w", err)
	}
	defer pc.Close()

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return fmt.Errorf("add audio transceiver: %w", err)
	}

	decoder, err := opus.NewDecoder(opusSampleRate, opusChannels)
	if err != nil {
		return fmt.Errorf("create opus decoder: %w", err)
	}

	trackErr := make(chan error, 1)
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		s.logger.Info("webrtc audio track received", "codec", track.Codec().MimeType)
		err := s.readTrack(track, decoder, emit)
		select {
		case trackErr <- err:
		default:
			s.logger.Debug("extra webrtc audio track ended", "error", err)
		}
	})
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		if err := sess.sendICE(c.ToJSON()); err != nil {
			s.logger.Debug("send ice candidate failed", "error", err)
		}
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.logger.Info("webrtc connection state", "state", state.String())
	})

	if err := sess.startSession(producerID); err != nil {
		return err
	}

	sigErr := make(chan error, 1)
	go func() { sigErr <- sess.serve(pc) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return nil
	case err := <-trackErr:
		return err
	case err := <-sigErr:
		return err
	}
}

// readTrack decodes RTP packets until the track ends or emit refuses a chunk.
func (s *WebRTCSource) readTrack(track *webrtc.TrackRemote, decoder *opus.Decoder, emit emitFunc) error {
	pcm := make([]int16, maxOpusFrame*opusChannels)
	asm := newBlockAssembler(s.cfg.BufferSize())
	var seq seqTracker

	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read rtp: %w", err)
		}
		s.packets.Add(1)
		if gap := seq.observe(pkt); gap > 0 {
			s.lost.Add(int64(gap))
		}

		mono, err := s.decodePacket(pkt, decoder, pcm)
		if err != nil {
			if s.decErrs.Add(1) <= 5 {
				s.logger.Warn("opus decode failed", "error", err, "payload_bytes", len(pkt.Payload))
			}
			continue
		}

		ok := asm.push(mono, func(block []int16) bool {
			return emit(AudioChunk{Samples: block, SampleRate: s.cfg.SampleRate, Channels: 1})
		})
		if !ok {
			return nil
		}
	}
}

// decodePacket turns one RTP packet into mono samples at the configured rate.
func (s *WebRTCSource) decodePacket(pkt *rtp.Packet, decoder *opus.Decoder, pcm []int16) ([]int16, error) {
	if len(pkt.Payload) == 0 {
		return nil, nil
	}
	n, err := decoder.Decode(pkt.Payload, pcm)
	if err != nil {
		return nil, err
	}
	mono := Downmix(pcm[:n*opusChannels], opusChannels)
	return Resample(mono, opusSampleRate, s.cfg.SampleRate), nil
}

// Stop halts audio capture and closes the peer connection.
func (s *WebRTCSource) Stop() error {
	return s.stop()
}

// Read reads the next audio chunk.
func (s *WebRTCSource) Read(ctx context.Context) (AudioChunk, error) {
	return s.read(ctx)
}

// Stream returns the audio chunk channel.
func (s *WebRTCSource) Stream() <-chan AudioChunk {
	return s.stream()
}

// Config returns the audio configuration.
func (s *WebRTCSource) Config() Config {
	return s.cfg
}

// Name returns "webrtc".
func (s *WebRTCSource) Name() string {
	return string(BackendWebRTC)
}

// Close releases resources.
func (s *WebRTCSource) Close() error {
	return s.close()
}

// Stats returns source statistics. Lost RTP packets are reported as overruns.
func (s *WebRTCSource) Stats() SourceStats {
	st := s.stats()
	st.Overruns += s.lost.Load()
	return st
}

var _ SourceWithStats = (*WebRTCSource)(nil)

// seqTracker counts RTP sequence gaps.
type seqTracker struct {
	last uint16
	seen bool
}

// observe returns the number of packets missing before pkt.
func (t *seqTracker) observe(pkt *rtp.Packet) int {
	seq := pkt.SequenceNumber
	if !t.seen {
		t.seen = true
		t.last = seq
		return 0
	}
	delta := seq - t.last // wraps at 65536
	if delta == 0 || delta > 0x8000 {
		// Duplicate or reordered packet.
		return 0
	}
	t.last = seq
	return int(delta) - 1
}

// blockAssembler regroups a sample stream into fixed-size blocks.
type blockAssembler struct {
	size    int
	pending []int16
}

func newBlockAssembler(size int) *blockAssembler {
	return &blockAssembler{size: size, pending: make([]int16, 0, size)}
}

// push appends samples and hands every completed block to fn. It stops
// and returns false as soon as fn does.
func (a *blockAssembler) push(samples []int16, fn func([]int16) bool) bool {
	for len(samples) > 0 {
		take := min(a.size-len(a.pending), len(samples))
		a.pending = append(a.pending, samples[:take]...)
		samples = samples[take:]

		if len(a.pending) == a.size {
			block := a.pending
			a.pending = make([]int16, 0, a.size)
			if !fn(block) {
				return false
			}
		}
	}
	return true
}

// Signalling messages of the webrtcsink protocol.
type signalMessage struct {
	Type      string           `json:"type"`
	PeerID    string           `json:"peerId,omitempty"`
	SessionID string           `json:"sessionId,omitempty"`
	Producers []signalProducer `json:"producers,omitempty"`
	SDP       *signalSDP       `json:"sdp,omitempty"`
	ICE       *signalICE       `json:"ice,omitempty"`
	Details   string           `json:"details,omitempty"`
}

type signalProducer struct {
	ID   string            `json:"id"`
	Meta map[string]string `json:"meta"`
}

type signalSDP struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type signalICE struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// signalSession serializes writes to the signalling socket; pion calls
// OnICECandidate from its own goroutines.
type signalSession struct {
	conn *websocket.Conn

	mu        sync.Mutex
	sessionID string
}

func newSignalSession(conn *websocket.Conn) *signalSession {
	return &signalSession{conn: conn}
}

func (s *signalSession) write(msg signalMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(signallingTimeout))
	return s.conn.WriteJSON(msg)
}

func (s *signalSession) readType(want string) (signalMessage, error) {
	s.conn.SetReadDeadline(time.Now().Add(signallingTimeout))
	defer s.conn.SetReadDeadline(time.Time{})

	for {
		var msg signalMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return msg, fmt.Errorf("read signalling: %w", err)
		}
		switch msg.Type {
		case want:
			return msg, nil
		case "error":
			return msg, fmt.Errorf("signalling error: %s", msg.Details)
		}
	}
}

func (s *signalSession) welcome() error {
	_, err := s.readType("welcome")
	return err
}

// findProducer lists producers and returns the id of the one whose "name"
// meta matches name. An empty name selects the first producer.
func (s *signalSession) findProducer(name string) (string, error) {
	if err := s.write(signalMessage{Type: "list"}); err != nil {
		return "", fmt.Errorf("list producers: %w", err)
	}
	msg, err := s.readType("list")
	if err != nil {
		return "", err
	}
	return pickProducer(msg.Producers, name)
}

func pickProducer(producers []signalProducer, name string) (string, error) {
	for _, p := range producers {
		if name == "" || p.Meta["name"] == name {
			return p.ID, nil
		}
	}
	if name == "" {
		return "", errors.New("no producers available")
	}
	return "", fmt.Errorf("producer %q not found", name)
}

func (s *signalSession) startSession(producerID string) error {
	return s.write(signalMessage{Type: "startSession", PeerID: producerID})
}

func (s *signalSession) sendICE(c webrtc.ICECandidateInit) error {
	s.mu.Lock()
	id := s.sessionID
	s.mu.Unlock()
	if id == "" {
		return errors.New("session not started")
	}
	return s.write(signalMessage{
		Type:      "peer",
		SessionID: id,
		ICE: &signalICE{
			Candidate:     c.Candidate,
			SDPMid:        c.SDPMid,
			SDPMLineIndex: c.SDPMLineIndex,
		},
	})
}

// serve answers offers and applies remote candidates until the socket closes.
func (s *signalSession) serve(pc *webrtc.PeerConnection) error {
	for {
		var msg signalMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read signalling: %w", err)
		}

		switch msg.Type {
		case "sessionStarted":
			s.mu.Lock()
			s.sessionID = msg.SessionID
			s.mu.Unlock()

		case "peer":
			if msg.SDP != nil && msg.SDP.Type == "offer" {
				if err := s.answer(pc, msg.SDP.SDP); err != nil {
					return err
				}
			}
			if msg.ICE != nil {
				if err := pc.AddICECandidate(webrtc.ICECandidateInit{
					Candidate:     msg.ICE.Candidate,
					SDPMid:        msg.ICE.SDPMid,
					SDPMLineIndex: msg.ICE.SDPMLineIndex,
				}); err != nil {
					return fmt.Errorf("add ice candidate: %w", err)
				}
			}

		case "endSession":
			return errors.New("producer ended the session")

		case "error":
			return fmt.Errorf("signalling error: %s", msg.Details)
		}
	}
}

func (s *signalSession) answer(pc *webrtc.PeerConnection, offer string) error {
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer}); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	s.mu.Lock()
	id := s.sessionID
	s.mu.Unlock()
	return s.write(signalMessage{
		Type:      "peer",
		SessionID: id,
		SDP:       &signalSDP{Type: answer.Type.String(), SDP: answer.SDP},
	})
}

func (s *signalSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.conn.Close()
}
