package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/harunnryd/vaani/pkg/adapters/tts"
	"github.com/harunnryd/vaani/pkg/errorsx"
	"github.com/harunnryd/vaani/pkg/lang"
	"github.com/harunnryd/vaani/pkg/providers/mock"
)

func TestSpeakCancelsInFlight(t *testing.T) {
	synth := mock.NewSynthesizer()
	ch := NewChannel(synth)
	ctx := context.Background()

	if err := ch.Speak(ctx, "Good Morning Sir", lang.English); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ch.Speak(ctx, "यूट्यूब खोल रही हूँ...", lang.Hindi); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, u := range synth.Spoken() {
		if u.Text == "<overlap>" {
			t.Fatalf("expected no overlapping speech, got %+v", synth.Spoken())
		}
	}
	if synth.Cancels() != 2 {
		t.Fatalf("expected cancel before each speak, got %d", synth.Cancels())
	}
	playing, ok := synth.Playing()
	if !ok || playing.Lang != "hi-IN" {
		t.Fatalf("expected newest hindi utterance audible, got %+v", playing)
	}
	cur, ok := ch.Current()
	if !ok || cur.Text != "यूट्यूब खोल रही हूँ..." {
		t.Fatalf("unexpected current utterance %+v", cur)
	}
	if ch.Spoken() != 2 {
		t.Fatalf("expected 2 spoken, got %d", ch.Spoken())
	}
}

func TestSpeakAppliesVoice(t *testing.T) {
	synth := mock.NewSynthesizer()
	ch := NewChannel(synth, WithVoice(tts.Voice{Rate: 1.2, Pitch: 0.9, Volume: 0.5}))
	if err := ch.Speak(context.Background(), "hello", lang.English); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u := synth.Spoken()[0]
	if u.Rate != 1.2 || u.Pitch != 0.9 || u.Volume != 0.5 || u.Lang != "en-IN" {
		t.Fatalf("unexpected utterance %+v", u)
	}
}

func TestSpeakErrorHasReason(t *testing.T) {
	synth := mock.NewSynthesizer()
	synth.SpeakErr = errors.New("audio device gone")
	ch := NewChannel(synth)
	err := ch.Speak(context.Background(), "hello", lang.English)
	if !errorsx.HasReason(err, errorsx.ReasonSpeechSpeak) {
		t.Fatalf("expected speech_speak reason, got %v", err)
	}
	if _, ok := ch.Current(); ok {
		t.Fatalf("expected no current utterance after failure")
	}
}

func TestCancelFailureDoesNotBlockSpeak(t *testing.T) {
	synth := mock.NewSynthesizer()
	synth.CancelErr = errors.New("cancel failed")
	ch := NewChannel(synth)
	if err := ch.Speak(context.Background(), "hello", lang.English); err != nil {
		t.Fatalf("expected speak to proceed, got %v", err)
	}
	if err := ch.Cancel(); !errorsx.HasReason(err, errorsx.ReasonSpeechCancel) {
		t.Fatalf("expected speech_cancel reason, got %v", err)
	}
}
