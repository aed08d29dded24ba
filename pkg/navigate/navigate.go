// Package navigate opens destinations on the host and defers opens.
package navigate

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Method tells the host how to activate a link.
type Method string

// MethodAnchor asks the host to synthesize a user-gesture link click into a
// new context, which popup blockers let through.
const MethodAnchor Method = "anchor"

// Opener opens a URL in a new browsing context.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, url string) error

func (f OpenerFunc) Open(ctx context.Context, url string) error { return f(ctx, url) }

// Task is a scheduled one-shot action.
type Task interface {
	// Cancel prevents the action if it has not fired yet. It reports whether
	// the call stopped it.
	Cancel() bool
}

// Scheduler runs fn once after d. Callers only schedule positive delays;
// implementations may run fn on any goroutine.
type Scheduler interface {
	After(d time.Duration, fn func()) Task
}

// TimerScheduler schedules on the runtime timer. Non-positive delays run fn
// synchronously.
type TimerScheduler struct{}

func (TimerScheduler) After(d time.Duration, fn func()) Task {
	if d <= 0 {
		fn()
		return firedTask{}
	}
	t := &timerTask{}
	t.timer = time.AfterFunc(d, func() {
		if t.cancelled.Load() {
			return
		}
		fn()
	})
	return t
}

type timerTask struct {
	timer     *time.Timer
	cancelled atomic.Bool
}

func (t *timerTask) Cancel() bool {
	if t.cancelled.Swap(true) {
		return false
	}
	return t.timer.Stop()
}

type firedTask struct{}

func (firedTask) Cancel() bool { return false }

// Tee opens every URL on each opener in order. All openers are tried; their
// errors are joined.
func Tee(openers ...Opener) Opener {
	list := make([]Opener, 0, len(openers))
	for _, o := range openers {
		if o != nil {
			list = append(list, o)
		}
	}
	if len(list) == 1 {
		return list[0]
	}
	return OpenerFunc(func(ctx context.Context, url string) error {
		var errs []error
		for _, o := range list {
			if err := o.Open(ctx, url); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
