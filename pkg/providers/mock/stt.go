package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/harunnryd/vaani/pkg/adapters/stt"
)

type RecognizerConfig struct {
	// Transcripts are emitted one per SendAudio call, in order.
	Transcripts []string
	EmitInterim bool
}

// Recognizer turns each audio chunk into the next scripted transcript.
type Recognizer struct {
	cfg     RecognizerConfig
	out     chan stt.Transcript
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
	closed  bool
	next    int
	chunks  int
}

func NewRecognizer(cfg RecognizerConfig) *Recognizer {
	if len(cfg.Transcripts) == 0 {
		cfg.Transcripts = []string{"mock transcript"}
	}
	return &Recognizer{cfg: cfg, out: make(chan stt.Transcript, 16)}
}

func (r *Recognizer) Name() string { return "mock_stt" }

func (r *Recognizer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.started = true
	return nil
}

func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	if !r.closed {
		r.closed = true
		close(r.out)
	}
	r.started = false
	return nil
}

func (r *Recognizer) SendAudio(chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.closed {
		return errors.New("not started")
	}
	r.chunks++
	if r.next >= len(r.cfg.Transcripts) {
		return nil
	}
	text := r.cfg.Transcripts[r.next]
	r.next++
	if r.cfg.EmitInterim {
		r.out <- stt.Transcript{Text: text, Final: false}
	}
	r.out <- stt.Transcript{Text: text, Final: true, Confidence: 1}
	return nil
}

func (r *Recognizer) Chunks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chunks
}

func (r *Recognizer) Results() <-chan stt.Transcript { return r.out }

var _ stt.Recognizer = (*Recognizer)(nil)
