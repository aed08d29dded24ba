package mock

import (
	"context"
	"sync"
	"time"

	"github.com/harunnryd/vaani/pkg/device"
)

// Clock always returns the same instant.
type Clock struct {
	At time.Time
}

func (c Clock) Now() time.Time { return c.At }

var _ device.Clock = Clock{}

// Capabilities answers with fixed values. A nil Level means no battery API.
// Release, when set, blocks Battery until it is closed.
type Capabilities struct {
	Agent   string
	Level   *float64
	Release chan struct{}

	mu    sync.Mutex
	calls int
}

func (c *Capabilities) UserAgent(context.Context) (string, error) {
	if c.Agent == "" {
		return "", device.ErrUnavailable
	}
	return c.Agent, nil
}

func (c *Capabilities) Battery(ctx context.Context) (float64, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.Release != nil {
		select {
		case <-c.Release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if c.Level == nil {
		return 0, device.ErrUnavailable
	}
	return *c.Level, nil
}

func (c *Capabilities) BatteryCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

var _ device.Capabilities = (*Capabilities)(nil)
