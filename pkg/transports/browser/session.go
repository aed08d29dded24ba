package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/harunnryd/vaani/pkg/adapters/tts"
	"github.com/harunnryd/vaani/pkg/device"
	"github.com/harunnryd/vaani/pkg/errorsx"
	"github.com/harunnryd/vaani/pkg/navigate"
)

// Page to server.
const (
	msgHello        = "hello"
	msgCapabilities = "capabilities"
	msgTranscript   = "transcript"
	msgBattery      = "battery"
	msgBye          = "bye"
)

// Server to page.
const (
	msgSpeak        = "speak"
	msgCancelSpeech = "cancel_speech"
	msgOpen         = "open"
	msgBatteryQuery = "battery_query"
)

var (
	errSessionClosed = errors.New("session closed")
	errSendBacklog   = errors.New("send buffer full")
)

type inbound struct {
	Type      string   `json:"type"`
	Text      string   `json:"text,omitempty"`
	Final     *bool    `json:"final,omitempty"`
	UserAgent string   `json:"userAgent,omitempty"`
	Battery   bool     `json:"battery,omitempty"`
	ID        string   `json:"id,omitempty"`
	Level     *float64 `json:"level,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type batteryReply struct {
	level float64
	err   error
}

// session is one connected page.
type session struct {
	id           string
	traceID      string
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	sendCh chan []byte
	closed bool
	done   chan struct{}

	snapshot *device.Snapshot

	pendingMu  sync.Mutex
	hasBattery bool
	pending    map[string]chan batteryReply
}

func newSession(id, traceID string, conn *websocket.Conn, cfg Config) *session {
	return &session{
		id:           id,
		traceID:      traceID,
		conn:         conn,
		writeTimeout: cfg.WriteTimeout,
		sendCh:       make(chan []byte, cfg.SendBuffer),
		done:         make(chan struct{}),
		snapshot:     device.NewSnapshot(),
		pending:      make(map[string]chan batteryReply),
	}
}

func (s *session) ID() string   { return s.id }
func (s *session) Name() string { return "browser" }

func (s *session) Speak(ctx context.Context, u tts.Utterance) error {
	return s.enqueue(map[string]any{
		"type":   msgSpeak,
		"text":   u.Text,
		"lang":   u.Lang,
		"rate":   u.Rate,
		"pitch":  u.Pitch,
		"volume": u.Volume,
	})
}

func (s *session) Cancel() error {
	return s.enqueue(map[string]any{"type": msgCancelSpeech})
}

func (s *session) Open(ctx context.Context, url string) error {
	return s.enqueue(map[string]any{
		"type":   msgOpen,
		"url":    url,
		"method": string(navigate.MethodAnchor),
	})
}

func (s *session) UserAgent(ctx context.Context) (string, error) {
	return s.snapshot.UserAgent(ctx)
}

// Battery asks the page for a fresh reading and waits for the answer.
func (s *session) Battery(ctx context.Context) (float64, error) {
	s.pendingMu.Lock()
	if !s.hasBattery {
		s.pendingMu.Unlock()
		return 0, device.ErrUnavailable
	}
	id := uuid.NewString()
	ch := make(chan batteryReply, 1)
	s.pending[id] = ch
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, id)
		s.pendingMu.Unlock()
	}()

	if err := s.enqueue(map[string]any{"type": msgBatteryQuery, "id": id}); err != nil {
		return 0, err
	}
	select {
	case reply := <-ch:
		return reply.level, reply.err
	case <-s.done:
		return 0, errorsx.Wrap(errSessionClosed, errorsx.ReasonCapabilityUnavailable)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (s *session) applyCapabilities(in inbound) {
	if in.UserAgent != "" {
		s.snapshot.SetUserAgent(in.UserAgent)
	}
	s.pendingMu.Lock()
	s.hasBattery = in.Battery
	s.pendingMu.Unlock()
}

func (s *session) resolveBattery(in inbound) {
	s.pendingMu.Lock()
	ch, ok := s.pending[in.ID]
	s.pendingMu.Unlock()
	if !ok {
		return
	}
	reply := batteryReply{}
	switch {
	case in.Error != "":
		reply.err = fmt.Errorf("%w: %s", device.ErrUnavailable, in.Error)
	case in.Level == nil:
		reply.err = device.ErrUnavailable
	default:
		reply.level = *in.Level
	}
	select {
	case ch <- reply:
	default:
	}
}

func (s *session) enqueue(msg map[string]any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errorsx.Wrap(fmt.Errorf("%s: %w", s.id, errSessionClosed), errorsx.ReasonTransportSend)
	}
	select {
	case s.sendCh <- b:
		return nil
	default:
		return errorsx.Wrap(fmt.Errorf("%s: %w", s.id, errSendBacklog), errorsx.ReasonTransportSend)
	}
}

// loop is the only writer on conn.
func (s *session) loop(logger *slog.Logger) {
	for msg := range s.sendCh {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.Debug("browser_write_failed", "session_id", s.id, "error", err.Error())
		}
	}
}

func (s *session) close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.sendCh)
		close(s.done)
	}
	s.mu.Unlock()
	return s.conn.Close()
}
