package metrics

import "time"

// Event names recorded by the dispatcher and engine.
const (
	EventDispatch       = "dispatch"
	EventSpeech         = "speech"
	EventOpen           = "open"
	EventBattery        = "battery_query"
	EventSessionStarted = "session_started"
	EventSessionEnded   = "session_ended"
)

// Tag keys shared by events.
const (
	TagIntent   = "intent"
	TagLanguage = "language"
	TagStatus   = "status"
	TagSession  = "session_id"
	TagCategory = "category"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

// NewEvent stamps an event with the current time.
func NewEvent(name string, value float64, tags map[string]string) MetricsEvent {
	if tags == nil {
		tags = map[string]string{}
	}
	return MetricsEvent{Name: name, Time: time.Now(), Value: value, Tags: tags}
}

// Failed reports whether the event is tagged with an error status.
func (ev MetricsEvent) Failed() bool {
	return ev.Tags[TagStatus] == StatusError
}

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type Flusher interface {
	Flush() error
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}
