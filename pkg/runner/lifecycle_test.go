package runner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunDrainsOnContextCancel(t *testing.T) {
	drained := 0
	var stopped bool
	r := NewLifecycleRunner(DrainerFunc(func() error {
		drained++
		return nil
	}), Hooks{OnStop: func() { stopped = true }}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return")
	}
	if drained != 1 || !stopped {
		t.Fatalf("expected one drain and stop hook, got drained=%d stopped=%v", drained, stopped)
	}
	if r.State() != StateStopped {
		t.Fatalf("expected stopped, got %s", r.State())
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if drained != 1 {
		t.Fatalf("expected drain to run once, got %d", drained)
	}
}

func TestStopReportsDrainTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	r := NewLifecycleRunner(DrainerFunc(func() error {
		<-block
		return nil
	}), Hooks{}, 20*time.Millisecond)

	if err := r.Stop(); !errors.Is(err, ErrDrainTimeout) {
		t.Fatalf("expected drain timeout, got %v", err)
	}
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected run after stop to fail")
	}
}

func TestBannerIsOptional(t *testing.T) {
	var buf bytes.Buffer
	r := NewLifecycleRunner(nil, Hooks{}, time.Second)
	r.Banner = &buf
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(buf.String(), "Version: "+Version) {
		t.Fatalf("expected banner output, got %q", buf.String())
	}
}
