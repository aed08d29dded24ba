package metrics

import (
	"bufio"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusObserverCountsCommands(t *testing.T) {
	p := NewPrometheusObserver()
	tags := map[string]string{TagIntent: "time", TagLanguage: "english", TagCategory: "clock"}
	ev := NewEvent(EventDispatch, float64(20*time.Millisecond), tags)
	p.RecordEvent(ev)
	p.RecordEvent(ev)
	p.RecordEvent(NewEvent(EventOpen, 1, map[string]string{TagIntent: "youtube", TagStatus: StatusError}))

	if got := testutil.ToFloat64(p.commands.WithLabelValues("time", "english", StatusOK)); got != 2 {
		t.Fatalf("expected 2 commands, got %v", got)
	}
	if got := testutil.ToFloat64(p.opens.WithLabelValues("youtube", StatusError)); got != 1 {
		t.Fatalf("expected 1 failed open, got %v", got)
	}

	p.RecordEvent(NewEvent(EventSessionStarted, 1, nil))
	p.RecordEvent(NewEvent(EventSessionStarted, 1, nil))
	p.RecordEvent(NewEvent(EventSessionEnded, 1, nil))
	if got := testutil.ToFloat64(p.sessions); got != 1 {
		t.Fatalf("expected 1 active session, got %v", got)
	}

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "vaani_voice_commands_total") {
		t.Fatalf("expected metrics output, got %q", rec.Body.String())
	}
}

func TestSamplingKeepsErrors(t *testing.T) {
	mem := NewMemoryObserver()
	s := NewSamplingObserver(mem, 0)
	s.RecordEvent(NewEvent(EventDispatch, 1, nil))
	s.RecordEvent(NewEvent(EventDispatch, 1, map[string]string{TagStatus: StatusError}))
	if len(mem.Events) != 1 || !mem.Events[0].Failed() {
		t.Fatalf("expected only the error event, got %+v", mem.Events)
	}

	mem = NewMemoryObserver()
	s = NewSamplingObserver(mem, 0.5)
	for i := 0; i < 10; i++ {
		s.RecordEvent(NewEvent(EventDispatch, 1, nil))
	}
	if len(mem.Events) != 5 {
		t.Fatalf("expected half sampled, got %d", len(mem.Events))
	}
}

func TestAsyncObserverDrainsOnClose(t *testing.T) {
	mem := NewMemoryObserver()
	a := NewAsyncObserver(mem, 16)
	for i := 0; i < 10; i++ {
		a.RecordEvent(NewEvent(EventSpeech, 1, nil))
	}
	a.Close()
	if got := len(mem.Named(EventSpeech)); got != 10 {
		t.Fatalf("expected 10 events after close, got %d", got)
	}
	a.RecordEvent(NewEvent(EventSpeech, 1, nil))
	if got := len(mem.Named(EventSpeech)); got != 10 {
		t.Fatalf("expected no events after close, got %d", got)
	}
}

func TestJSONLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics", "events.jsonl")
	o, err := OpenJSONLFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o.RecordEvent(NewEvent(EventDispatch, 3, map[string]string{TagIntent: "joke"}))
	if err := o.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		t.Fatalf("expected one line")
	}
	var line map[string]any
	if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if line["name"] != EventDispatch || line["intent"] != "joke" {
		t.Fatalf("unexpected line %v", line)
	}
}
