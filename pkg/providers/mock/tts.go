package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/vaani/pkg/adapters/tts"
)

// Synthesizer records utterances and cancels. Playing is the utterance that
// would currently be audible.
type Synthesizer struct {
	mu        sync.Mutex
	spoken    []tts.Utterance
	playing   *tts.Utterance
	cancels   int
	SpeakErr  error
	CancelErr error
}

func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

func (s *Synthesizer) Name() string { return "mock_tts" }

func (s *Synthesizer) Speak(_ context.Context, u tts.Utterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SpeakErr != nil {
		return s.SpeakErr
	}
	if s.playing != nil {
		// a real engine would talk over itself here
		s.spoken = append(s.spoken, tts.Utterance{Text: "<overlap>"})
	}
	s.spoken = append(s.spoken, u)
	cp := u
	s.playing = &cp
	return nil
}

func (s *Synthesizer) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
	s.playing = nil
	return s.CancelErr
}

// Finish simulates the current utterance ending naturally.
func (s *Synthesizer) Finish() {
	s.mu.Lock()
	s.playing = nil
	s.mu.Unlock()
}

func (s *Synthesizer) Spoken() []tts.Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tts.Utterance, len(s.spoken))
	copy(out, s.spoken)
	return out
}

func (s *Synthesizer) Playing() (tts.Utterance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing == nil {
		return tts.Utterance{}, false
	}
	return *s.playing, true
}

func (s *Synthesizer) Cancels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
