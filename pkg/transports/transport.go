package transports

import (
	"context"
	"net/http"

	"github.com/harunnryd/vaani/pkg/adapters/tts"
	"github.com/harunnryd/vaani/pkg/device"
	"github.com/harunnryd/vaani/pkg/navigate"
)

// EventKind classifies inbound transport events.
type EventKind string

const (
	EventSessionStart EventKind = "session_start"
	EventTranscript   EventKind = "transcript"
	EventAudio        EventKind = "audio"
	EventSessionEnd   EventKind = "session_end"
)

// Event is one inbound occurrence on a session.
type Event struct {
	Kind      EventKind
	SessionID string
	TraceID   string
	Text      string
	Audio     []byte
	// Session is set on EventSessionStart.
	Session Session
	Reason  string
}

// Session is a connected host: it can speak, open links and report device
// facts.
type Session interface {
	tts.Synthesizer
	navigate.Opener
	device.Capabilities
	ID() string
}

// Transport defines a vendor-agnostic boundary between hosts and the engine.
// Implementations are responsible for their own network lifecycle.
type Transport interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Recv() <-chan Event
}

// ReadyReporter allows transports to expose readiness metadata (e.g., URLs).
// Implementations are optional and used for informational logging only.
type ReadyReporter interface {
	ReadyFields() map[string]any
}

// RouteMounter lets the engine add HTTP routes, such as /metrics, to a
// transport that already serves HTTP.
type RouteMounter interface {
	Mount(pattern string, h http.Handler)
}
