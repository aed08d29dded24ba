package mock

import (
	"context"
	"sync"
	"sync/atomic"

	providermock "github.com/harunnryd/vaani/pkg/providers/mock"
	"github.com/harunnryd/vaani/pkg/transports"
)

// Session is an in-memory host that records what it was told to say and
// open.
type Session struct {
	*providermock.Synthesizer
	*providermock.Opener
	*providermock.Capabilities
	id string
}

// NewSession builds a session with an empty capability set.
func NewSession(id string) *Session {
	return &Session{
		Synthesizer:  providermock.NewSynthesizer(),
		Opener:       providermock.NewOpener(),
		Capabilities: &providermock.Capabilities{},
		id:           id,
	}
}

func (s *Session) ID() string { return s.id }

var _ transports.Session = (*Session)(nil)

// Transport is an in-memory transport for local testing and integration.
// It implements the transports.Transport interface without any network dependency.
type Transport struct {
	recvCh chan transports.Event
	closed atomic.Bool
	mu     sync.Mutex
}

func New() *Transport {
	return &Transport{
		recvCh: make(chan transports.Event, 256),
	}
}

func (t *Transport) Name() string { return "mock" }

func (t *Transport) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		<-ctx.Done()
		_ = t.Stop()
	}()
	return nil
}

func (t *Transport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.CompareAndSwap(false, true) {
		close(t.recvCh)
	}
	return nil
}

func (t *Transport) Recv() <-chan transports.Event { return t.recvCh }

// Push injects an inbound event into the transport.
func (t *Transport) Push(evt transports.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return
	}
	select {
	case t.recvCh <- evt:
	default:
	}
}

// Connect announces a new session and returns it.
func (t *Transport) Connect(id string) *Session {
	sess := NewSession(id)
	t.Push(transports.Event{Kind: transports.EventSessionStart, SessionID: id, Session: sess})
	return sess
}

// Say delivers a final transcript on session id.
func (t *Transport) Say(id, text string) {
	t.Push(transports.Event{Kind: transports.EventTranscript, SessionID: id, Text: text})
}

// Disconnect ends session id.
func (t *Transport) Disconnect(id, reason string) {
	t.Push(transports.Event{Kind: transports.EventSessionEnd, SessionID: id, Reason: reason})
}
