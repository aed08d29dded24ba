package deepgram

import (
	"context"
	"testing"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"

	"github.com/harunnryd/vaani/pkg/adapters/stt"
	"github.com/harunnryd/vaani/pkg/errorsx"
)

func message(text string, final bool) *msginterfaces.MessageResponse {
	return &msginterfaces.MessageResponse{
		IsFinal: final,
		Channel: msginterfaces.Channel{
			Alternatives: []msginterfaces.Alternative{
				{Transcript: text, Confidence: 0.91},
				{Transcript: "ignored second alternative"},
			},
		},
	}
}

func TestCallbackForwardsFinalFirstAlternative(t *testing.T) {
	r := New(Config{}, stt.DefaultConfig(), nil)
	cb := &callback{parent: r}

	_ = cb.Message(message("open you", false))
	_ = cb.Message(message("  open youtube  ", true))
	_ = cb.Message(message("", true))

	select {
	case got := <-r.Results():
		if got.Text != "open youtube" || !got.Final {
			t.Fatalf("expected trimmed final transcript, got %+v", got)
		}
		if got.Confidence != 0.91 {
			t.Fatalf("expected first alternative confidence, got %v", got.Confidence)
		}
	default:
		t.Fatalf("expected a transcript")
	}
	select {
	case extra := <-r.Results():
		t.Fatalf("expected interim and empty results to be dropped, got %+v", extra)
	default:
	}
}

func TestCallbackForwardsInterimWhenRequested(t *testing.T) {
	cfg := stt.DefaultConfig()
	cfg.Interim = true
	r := New(Config{}, cfg, nil)
	cb := &callback{parent: r}

	_ = cb.Message(message("open you", false))
	got := <-r.Results()
	if got.Final || got.Text != "open you" {
		t.Fatalf("expected interim transcript, got %+v", got)
	}
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	r := New(Config{}, stt.DefaultConfig(), nil)
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	cb := &callback{parent: r}
	_ = cb.Message(message("late", true))
	if _, ok := <-r.Results(); ok {
		t.Fatalf("expected closed results channel")
	}
}

func TestStartRequiresAPIKey(t *testing.T) {
	r := New(Config{}, stt.DefaultConfig(), nil)
	err := r.Start(context.Background())
	if !errorsx.HasReason(err, errorsx.ReasonSTTConnect) {
		t.Fatalf("expected stt_connect, got %v", err)
	}
	if err := r.SendAudio([]byte{0}); !errorsx.HasReason(err, errorsx.ReasonSTTSend) {
		t.Fatalf("expected stt_send before start, got %v", err)
	}
}

func TestOptionsFollowStreamConfig(t *testing.T) {
	stream := stt.DefaultConfig()
	stream.Language = "en-IN"
	r := New(Config{Endpointing: 300, UtteranceEndMS: 1000}, stream, nil)
	opts := r.options()
	if opts.Model != "nova-2" || opts.Language != "en-IN" || opts.SampleRate != 16000 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.InterimResults {
		t.Fatalf("expected final-only results")
	}
	if opts.Endpointing != "300" || opts.UtteranceEndMs != "1000" {
		t.Fatalf("expected endpointing settings, got %q/%q", opts.Endpointing, opts.UtteranceEndMs)
	}
}
