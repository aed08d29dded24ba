package tts

import (
	"context"
)

// Utterance is one piece of text to be spoken in a given language.
type Utterance struct {
	Text   string
	Lang   string
	Rate   float64
	Pitch  float64
	Volume float64
}

// Synthesizer is the speech output backend. Speak starts playback and
// returns without waiting for it to finish; Cancel silences whatever is
// playing or queued.
type Synthesizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Speak begins speaking u.
	Speak(ctx context.Context, u Utterance) error
	// Cancel stops current speech and drops anything queued.
	Cancel() error
}

// Voice holds the prosody applied to every utterance.
type Voice struct {
	Rate   float64
	Pitch  float64
	Volume float64
}

// DefaultVoice is unit rate, pitch and volume.
func DefaultVoice() Voice {
	return Voice{Rate: 1, Pitch: 1, Volume: 1}
}
