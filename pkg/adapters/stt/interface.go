package stt

import (
	"context"
)

// Transcript is a recognized utterance.
type Transcript struct {
	Text       string
	Final      bool
	Confidence float64
}

// Recognizer defines the contract for any server-side recognition vendor.
type Recognizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Start initializes the recognition connection.
	Start(ctx context.Context) error
	// Close shuts down the recognition connection.
	Close() error
	// SendAudio sends a raw audio chunk to the recognizer.
	SendAudio(chunk []byte) error
	// Results returns a channel of transcripts.
	Results() <-chan Transcript
}

// Config contains vendor-agnostic recognition configuration.
type Config struct {
	SessionID       string
	TraceID         string
	SampleRate      int
	Encoding        string
	Language        string
	Interim         bool
	MaxAlternatives int
}

// DefaultConfig is a single-alternative, final-only Hindi recognizer, which
// also handles Hinglish and English well enough.
func DefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		Encoding:        "linear16",
		Language:        "hi",
		Interim:         false,
		MaxAlternatives: 1,
	}
}
