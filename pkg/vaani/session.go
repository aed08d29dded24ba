package vaani

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harunnryd/vaani/pkg/adapters/stt"
	"github.com/harunnryd/vaani/pkg/dispatcher"
	"github.com/harunnryd/vaani/pkg/errorsx"
	"github.com/harunnryd/vaani/pkg/speech"
	"github.com/harunnryd/vaani/pkg/transports"
)

const inboxSize = 16

var errDraining = errors.New("engine draining")

// Session is one connected host with its own speech channel and dispatcher.
// Transcripts are dispatched one at a time in arrival order.
type Session struct {
	ID         string
	TraceID    string
	Host       transports.Session
	Speech     *speech.Channel
	Dispatcher *dispatcher.Dispatcher
	Recognizer stt.Recognizer
	Created    time.Time

	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	inbox   chan string
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

func newSession(id, traceID string, host transports.Session, logger *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:      id,
		TraceID: traceID,
		Host:    host,
		Created: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		inbox:   make(chan string, inboxSize),
		done:    make(chan struct{}),
	}
}

// Submit queues a final transcript as received; blank text still reaches
// the fallback search. It reports false when the session is closed or its
// inbox is full.
func (s *Session) Submit(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.inbox <- text:
		return true
	default:
		s.dropped.Add(1)
		s.logger.Warn("transcript_dropped", "reason", "inbox_full")
		return false
	}
}

// SendAudio forwards a chunk to the session's recognizer, if any.
func (s *Session) SendAudio(chunk []byte) error {
	if s.Recognizer == nil {
		return nil
	}
	if err := s.Recognizer.SendAudio(chunk); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonSTTSend)
	}
	return nil
}

// Dropped counts transcripts lost to a full inbox.
func (s *Session) Dropped() int64 { return s.dropped.Load() }

func (s *Session) run(greet bool) {
	defer close(s.done)
	if greet {
		if _, err := s.Dispatcher.Greet(s.ctx); err != nil {
			s.logger.Warn("greet_failed", "reason", errorsx.Reason(err), "error", err)
		}
	}
	for text := range s.inbox {
		res, err := s.Dispatcher.Dispatch(s.ctx, text)
		if err != nil {
			s.logger.Warn("dispatch_error", "dispatch_id", res.ID, "intent", res.Rule, "reason", errorsx.Reason(err), "error", err)
		}
	}
}

// forward feeds final recognizer results into the inbox until the
// recognizer closes its channel.
func (s *Session) forward() {
	for tr := range s.Recognizer.Results() {
		if !tr.Final {
			continue
		}
		s.Submit(tr.Text)
	}
}

// Close stops intake, lets queued transcripts finish, waits for async
// answers and closes the recognizer.
func (s *Session) Close() {
	s.once.Do(func() {
		if s.Recognizer != nil {
			if err := s.Recognizer.Close(); err != nil {
				s.logger.Warn("recognizer_close_failed", "error", err)
			}
		}
		s.mu.Lock()
		s.closed = true
		close(s.inbox)
		s.mu.Unlock()

		<-s.done
		if s.Dispatcher != nil {
			s.Dispatcher.Wait()
		}
		s.cancel()
	})
}

// SessionRegistry tracks live sessions by id.
type SessionRegistry struct {
	sessions sync.Map
	count    atomic.Int64
	draining atomic.Bool
	onRemove func(s *Session, reason string)
}

func NewSessionRegistry(onRemove func(s *Session, reason string)) *SessionRegistry {
	return &SessionRegistry{onRemove: onRemove}
}

// Add registers s. It fails while draining or when the id is taken.
func (r *SessionRegistry) Add(s *Session) error {
	if r.draining.Load() {
		return errDraining
	}
	if _, loaded := r.sessions.LoadOrStore(s.ID, s); loaded {
		return errors.New("session already registered: " + s.ID)
	}
	r.count.Add(1)
	return nil
}

func (r *SessionRegistry) Get(id string) (*Session, bool) {
	if v, ok := r.sessions.Load(id); ok {
		return v.(*Session), true
	}
	return nil, false
}

// Remove closes and forgets session id.
func (r *SessionRegistry) Remove(id, reason string) bool {
	v, ok := r.sessions.LoadAndDelete(id)
	if !ok {
		return false
	}
	sess := v.(*Session)
	sess.Close()
	r.count.Add(-1)
	if r.onRemove != nil {
		r.onRemove(sess, reason)
	}
	return true
}

func (r *SessionRegistry) CloseAll(reason string) {
	r.sessions.Range(func(key, _ any) bool {
		if id, ok := key.(string); ok {
			r.Remove(id, reason)
		}
		return true
	})
}

func (r *SessionRegistry) Count() int64 {
	return r.count.Load()
}

func (r *SessionRegistry) SetDraining(v bool) {
	r.draining.Store(v)
}

func (r *SessionRegistry) Draining() bool {
	return r.draining.Load()
}

// WaitForEmpty polls until no sessions remain or ctx ends.
func (r *SessionRegistry) WaitForEmpty(ctx context.Context, interval time.Duration) bool {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if r.Count() == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
