package mock

import (
	"context"
	"sync"
	"time"

	"github.com/harunnryd/vaani/pkg/navigate"
)

// Opener records every URL it was asked to open.
type Opener struct {
	mu      sync.Mutex
	opened  []string
	OpenErr error
}

func NewOpener() *Opener { return &Opener{} }

func (o *Opener) Open(_ context.Context, url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.OpenErr != nil {
		return o.OpenErr
	}
	o.opened = append(o.opened, url)
	return nil
}

func (o *Opener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.opened))
	copy(out, o.opened)
	return out
}

var _ navigate.Opener = (*Opener)(nil)

// Scheduler holds deferred tasks until the test advances time. Zero delays
// run immediately, as the timer scheduler does.
type Scheduler struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*scheduledTask
	delays  []time.Duration
}

type scheduledTask struct {
	at        time.Duration
	fn        func()
	cancelled bool
	fired     bool
	s         *Scheduler
}

func NewScheduler() *Scheduler { return &Scheduler{} }

func (s *Scheduler) After(d time.Duration, fn func()) navigate.Task {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	if d <= 0 {
		s.mu.Unlock()
		fn()
		return &scheduledTask{fired: true, s: s}
	}
	t := &scheduledTask{at: s.now + d, fn: fn, s: s}
	s.pending = append(s.pending, t)
	s.mu.Unlock()
	return t
}

// Advance moves the fake clock and runs every task that came due.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*scheduledTask
	remaining := s.pending[:0]
	for _, t := range s.pending {
		switch {
		case t.cancelled:
		case t.at <= s.now:
			t.fired = true
			due = append(due, t)
		default:
			remaining = append(remaining, t)
		}
	}
	s.pending = remaining
	s.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
}

// Pending counts tasks that have not fired or been cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.pending {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Delays lists every delay passed to After, in call order.
func (s *Scheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}

func (t *scheduledTask) Cancel() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.cancelled {
		return false
	}
	t.cancelled = true
	return true
}

var _ navigate.Scheduler = (*Scheduler)(nil)
