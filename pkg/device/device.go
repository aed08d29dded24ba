// Package device exposes host capabilities and the clock to the dispatcher.
package device

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

// ErrUnavailable is returned when the host cannot answer a query.
var ErrUnavailable = errors.New("capability unavailable")

// Capabilities are host-provided facts. Both calls may block on the host.
type Capabilities interface {
	UserAgent(ctx context.Context) (string, error)
	// Battery returns the charge level in [0,1].
	Battery(ctx context.Context) (float64, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock, optionally in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	now := time.Now()
	if c.Location != nil {
		return now.In(c.Location)
	}
	return now
}

// Formats are Go layouts for spoken time values.
type Formats struct {
	Time    string
	Date    string
	Weekday string
}

// DefaultFormats speak "2:30 PM", "Oct 17, 2026" and "Saturday".
func DefaultFormats() Formats {
	return Formats{
		Time:    "3:04 PM",
		Date:    "Jan 2, 2006",
		Weekday: "Monday",
	}
}

// WithDefaults fills empty layouts.
func (f Formats) WithDefaults() Formats {
	d := DefaultFormats()
	if f.Time == "" {
		f.Time = d.Time
	}
	if f.Date == "" {
		f.Date = d.Date
	}
	if f.Weekday == "" {
		f.Weekday = d.Weekday
	}
	return f
}

// BatteryPercent rounds a [0,1] level to a whole percentage.
func BatteryPercent(level float64) int {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	return int(math.Round(level * 100))
}

// Snapshot is a Capabilities backed by values the host pushed earlier.
// Unset values answer ErrUnavailable.
type Snapshot struct {
	mu         sync.RWMutex
	userAgent  string
	battery    float64
	hasBattery bool
}

// NewSnapshot builds an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// SetUserAgent records the host's user agent.
func (s *Snapshot) SetUserAgent(ua string) {
	s.mu.Lock()
	s.userAgent = ua
	s.mu.Unlock()
}

// SetBattery records a battery level; pass ok=false when the host has no
// battery API.
func (s *Snapshot) SetBattery(level float64, ok bool) {
	s.mu.Lock()
	s.battery = level
	s.hasBattery = ok
	s.mu.Unlock()
}

func (s *Snapshot) UserAgent(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userAgent == "" {
		return "", ErrUnavailable
	}
	return s.userAgent, nil
}

func (s *Snapshot) Battery(ctx context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasBattery {
		return 0, ErrUnavailable
	}
	return s.battery, nil
}
