// Package speech owns the single speech output channel of a session.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/vaani/pkg/adapters/tts"
	"github.com/harunnryd/vaani/pkg/errorsx"
	"github.com/harunnryd/vaani/pkg/lang"
	"github.com/harunnryd/vaani/pkg/logging"
)

// Speaker is what the dispatcher talks to.
type Speaker interface {
	Speak(ctx context.Context, text string, l lang.Language) error
}

// Channel wraps a Synthesizer so that every Speak cancels whatever is
// currently playing first. The newest request always wins; nothing queues.
type Channel struct {
	mu      sync.Mutex
	synth   tts.Synthesizer
	voice   tts.Voice
	current tts.Utterance
	spoken  uint64
	logger  *slog.Logger
}

// Option configures a Channel.
type Option func(*Channel)

// WithVoice overrides the default prosody.
func WithVoice(v tts.Voice) Option {
	return func(c *Channel) { c.voice = v }
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Channel) { c.logger = logging.NewComponentLogger(l, "speech") }
}

// NewChannel builds a channel over synth.
func NewChannel(synth tts.Synthesizer, opts ...Option) *Channel {
	c := &Channel{
		synth:  synth,
		voice:  tts.DefaultVoice(),
		logger: logging.NewComponentLogger(slog.Default(), "speech"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Speak cancels any in-flight speech and starts text in language l.
// A failed cancel is logged and does not stop the new utterance.
func (c *Channel) Speak(ctx context.Context, text string, l lang.Language) error {
	u := tts.Utterance{
		Text:   text,
		Lang:   l.Tag(),
		Rate:   c.voice.Rate,
		Pitch:  c.voice.Pitch,
		Volume: c.voice.Volume,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.synth.Cancel(); err != nil {
		c.logger.Warn("speech_cancel_failed", "synth", c.synth.Name(), "reason", errorsx.ReasonSpeechCancel, "error", err)
	}
	if err := c.synth.Speak(ctx, u); err != nil {
		return errorsx.Wrap(fmt.Errorf("speak via %s: %w", c.synth.Name(), err), errorsx.ReasonSpeechSpeak)
	}
	c.current = u
	c.spoken++
	c.logger.Debug("speech_started", "lang", u.Lang, "chars", len(u.Text))
	return nil
}

// Cancel silences the channel.
func (c *Channel) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = tts.Utterance{}
	if err := c.synth.Cancel(); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonSpeechCancel)
	}
	return nil
}

// Current returns the most recently started utterance.
func (c *Channel) Current() (tts.Utterance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.current.Text != ""
}

// Spoken counts successful Speak calls.
func (c *Channel) Spoken() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spoken
}
