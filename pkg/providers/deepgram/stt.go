// Package deepgram recognizes session audio with Deepgram's live API for
// hosts that stream microphone audio instead of recognizing locally.
package deepgram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/harunnryd/vaani/pkg/adapters/stt"
	"github.com/harunnryd/vaani/pkg/errorsx"
	"github.com/harunnryd/vaani/pkg/logging"
)

type Config struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	Endpointing    int    `mapstructure:"endpointing_ms"`
	UtteranceEndMS int    `mapstructure:"utterance_end_ms"`
	KeepAlive      bool   `mapstructure:"keep_alive"`
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "nova-2"
	}
	return c
}

// Recognizer streams audio to Deepgram and yields final transcripts, first
// alternative only.
type Recognizer struct {
	cfg    Config
	stream stt.Config
	logger *slog.Logger

	dgClient   *client.WSCallback
	ctx        context.Context
	cancel     context.CancelFunc
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter

	mu         sync.Mutex
	out        chan stt.Transcript
	closed     bool
	metaLogged bool
}

func New(cfg Config, stream stt.Config, logger *slog.Logger) *Recognizer {
	if stream.SampleRate == 0 {
		stream.SampleRate = stt.DefaultConfig().SampleRate
	}
	if stream.Encoding == "" {
		stream.Encoding = stt.DefaultConfig().Encoding
	}
	l := logging.NewComponentLogger(logger, "deepgram_stt")
	if stream.SessionID != "" {
		l = l.With("session_id", stream.SessionID)
	}
	return &Recognizer{
		cfg:    cfg.withDefaults(),
		stream: stream,
		logger: l,
		out:    make(chan stt.Transcript, 32),
	}
}

func (r *Recognizer) Name() string { return "deepgram" }

func (r *Recognizer) options() *interfaces.LiveTranscriptionOptions {
	opts := &interfaces.LiveTranscriptionOptions{
		Model:          r.cfg.Model,
		Language:       r.stream.Language,
		Encoding:       r.stream.Encoding,
		SampleRate:     r.stream.SampleRate,
		InterimResults: r.stream.Interim,
		SmartFormat:    true,
		Punctuate:      true,
	}
	if r.cfg.Endpointing > 0 {
		opts.Endpointing = fmt.Sprintf("%d", r.cfg.Endpointing)
	}
	if r.cfg.UtteranceEndMS > 0 {
		opts.UtteranceEndMs = fmt.Sprintf("%d", r.cfg.UtteranceEndMS)
	}
	return opts
}

func (r *Recognizer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(r.cfg.APIKey) == "" {
		return errorsx.Wrap(fmt.Errorf("deepgram: api key required"), errorsx.ReasonSTTConnect)
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.pipeReader, r.pipeWriter = io.Pipe()

	clientOptions := &interfaces.ClientOptions{
		EnableKeepAlive: r.cfg.KeepAlive,
	}
	dgClient, err := client.NewWSUsingCallback(r.ctx, r.cfg.APIKey, clientOptions, r.options(), &callback{parent: r})
	if err != nil {
		r.logger.Error("deepgram_client_create_error", "error", err.Error())
		return errorsx.Wrap(fmt.Errorf("deepgram: %w", err), errorsx.ReasonSTTConnect)
	}
	r.dgClient = dgClient

	if connected := r.dgClient.Connect(); !connected {
		r.logger.Error("deepgram_connect_failed")
		return errorsx.Newf(errorsx.ReasonSTTConnect, "deepgram connection failed")
	}
	r.logger.Info("deepgram_connected",
		"model", r.cfg.Model,
		"language", r.stream.Language,
		"sample_rate", r.stream.SampleRate)

	go func() {
		if err := r.dgClient.Stream(r.pipeReader); err != nil && r.ctx.Err() == nil {
			r.logger.Error("deepgram_stream_error", "error", err.Error())
		}
	}()
	return nil
}

func (r *Recognizer) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.pipeWriter != nil {
		_ = r.pipeWriter.Close()
	}
	if r.dgClient != nil {
		r.dgClient.Stop()
	}
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.out)
	}
	r.mu.Unlock()
	r.logger.Info("deepgram_closed")
	return nil
}

func (r *Recognizer) SendAudio(chunk []byte) error {
	if r.pipeWriter == nil {
		return errorsx.Newf(errorsx.ReasonSTTSend, "deepgram: not started")
	}
	if _, err := r.pipeWriter.Write(chunk); err != nil {
		return errorsx.Wrap(fmt.Errorf("deepgram: %w", err), errorsx.ReasonSTTSend)
	}
	return nil
}

func (r *Recognizer) Results() <-chan stt.Transcript { return r.out }

func (r *Recognizer) emit(t stt.Transcript) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.out <- t:
	default:
		r.logger.Warn("deepgram_out_channel_full")
	}
}

type callback struct {
	parent *Recognizer
}

func (c *callback) Open(or *msginterfaces.OpenResponse) error {
	c.parent.logger.Debug("deepgram_connection_opened")
	return nil
}

// Message forwards finished utterances. Interim hypotheses are dropped
// unless the session asked for them.
func (c *callback) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	alt := mr.Channel.Alternatives[0]
	text := strings.TrimSpace(alt.Transcript)
	if text == "" {
		return nil
	}
	final := mr.IsFinal || mr.SpeechFinal
	if !final && !c.parent.stream.Interim {
		return nil
	}
	c.parent.logger.Debug("transcript_received", "chars", len(text), "is_final", final)
	c.parent.emit(stt.Transcript{Text: text, Final: final, Confidence: alt.Confidence})
	return nil
}

func (c *callback) Metadata(md *msginterfaces.MetadataResponse) error {
	c.parent.mu.Lock()
	first := !c.parent.metaLogged
	c.parent.metaLogged = true
	c.parent.mu.Unlock()
	if first {
		c.parent.logger.Info("deepgram_metadata_received", "request_id", md.RequestID)
	}
	return nil
}

func (c *callback) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error {
	return nil
}

func (c *callback) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	c.parent.logger.Debug("utterance_end_event")
	return nil
}

func (c *callback) Close(cr *msginterfaces.CloseResponse) error {
	c.parent.logger.Debug("deepgram_connection_closed")
	return nil
}

func (c *callback) Error(er *msginterfaces.ErrorResponse) error {
	c.parent.logger.Error("deepgram_error",
		"error_code", er.ErrCode,
		"error_message", er.ErrMsg)
	return nil
}

func (c *callback) UnhandledEvent(byData []byte) error {
	c.parent.logger.Debug("deepgram_unhandled_event", "bytes", len(byData))
	return nil
}

var (
	_ stt.Recognizer                    = (*Recognizer)(nil)
	_ msginterfaces.LiveMessageCallback = (*callback)(nil)
)
