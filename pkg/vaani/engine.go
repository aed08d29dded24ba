// Package vaani wires a transport, per-session dispatchers and the metrics
// chain into a running voice assistant.
package vaani

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/vaani/pkg/adapters/stt"
	"github.com/harunnryd/vaani/pkg/adapters/tts"
	"github.com/harunnryd/vaani/pkg/device"
	"github.com/harunnryd/vaani/pkg/dispatcher"
	"github.com/harunnryd/vaani/pkg/errorsx"
	"github.com/harunnryd/vaani/pkg/intent"
	"github.com/harunnryd/vaani/pkg/lang"
	"github.com/harunnryd/vaani/pkg/logging"
	"github.com/harunnryd/vaani/pkg/metrics"
	"github.com/harunnryd/vaani/pkg/navigate"
	"github.com/harunnryd/vaani/pkg/observers"
	"github.com/harunnryd/vaani/pkg/redact"
	"github.com/harunnryd/vaani/pkg/runner"
	"github.com/harunnryd/vaani/pkg/speech"
	"github.com/harunnryd/vaani/pkg/transports"
)

const (
	drainTimeout  = 30 * time.Second
	routeWaitTime = 5 * time.Second
)

type Engine struct {
	cfg       Config
	providers *ProviderRegistry
	transport transports.Transport
	sessions  *SessionRegistry
	catalog   *intent.Catalog
	detector  *lang.Detector
	opener    navigate.Opener
	clock     device.Clock
	scheduler navigate.Scheduler
	pick      func(n int) int
	observer  metrics.Observer
	asyncObs  *metrics.AsyncObserver
	jsonl     *metrics.JSONLObserver
	prom      *metrics.PrometheusObserver
	runner    *runner.LifecycleRunner
	logger    *slog.Logger

	mu        sync.Mutex
	routeDone chan struct{}
	cancel    context.CancelFunc
}

type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
	// Transport overrides the configured transport provider.
	Transport transports.Transport
	// Catalog overrides dispatch.catalog_path.
	Catalog   *intent.Catalog
	Clock     device.Clock
	Scheduler navigate.Scheduler
	// Observer receives every metrics event alongside the built-in sinks.
	Observer metrics.Observer
	Logger   *slog.Logger
	// Pick chooses among joke replies; nil means random.
	Pick func(n int) int
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	redact.SetEnabled(cfg.Privacy.RedactPII)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	log := logging.NewComponentLogger(logger, "engine")

	providers := opts.Providers
	if providers == nil {
		providers = DefaultProviders()
	}

	catalog := opts.Catalog
	if catalog == nil {
		if path := strings.TrimSpace(cfg.Dispatch.CatalogPath); path != "" {
			c, err := intent.LoadCatalogFile(path)
			if err != nil {
				return nil, err
			}
			catalog = c
		} else {
			catalog = intent.DefaultCatalog()
		}
	}

	clock := opts.Clock
	if clock == nil {
		loc, err := cfg.Location()
		if err != nil {
			return nil, fmt.Errorf("dispatch.timezone: %w", err)
		}
		clock = device.SystemClock{Location: loc}
	}

	transport := opts.Transport
	if transport == nil {
		t, err := providers.BuildTransport(cfg.Transport.Provider, cfg, logger)
		if err != nil {
			return nil, err
		}
		transport = t
	}

	var opener navigate.Opener
	if p := strings.TrimSpace(cfg.Opener.Provider); p != "" && !strings.EqualFold(p, OpenerSession) {
		o, err := providers.BuildOpener(p, cfg, logger)
		if err != nil {
			return nil, err
		}
		opener = o
	}

	obsList := []metrics.Observer{observers.NewLoggerObserver(logging.NewComponentLogger(logger, "metrics"))}
	if opts.Observer != nil {
		obsList = append(obsList, opts.Observer)
	}
	var prom *metrics.PrometheusObserver
	if cfg.Metrics.Prometheus {
		prom = metrics.NewPrometheusObserver()
		obsList = append(obsList, prom)
		if m, ok := transport.(transports.RouteMounter); ok {
			m.Mount(cfg.Metrics.Path, prom.Handler())
		} else {
			log.Warn("metrics_not_mounted", "transport", transport.Name(), "reason", "transport does not serve http")
		}
	}
	var jsonl *metrics.JSONLObserver
	if path := strings.TrimSpace(cfg.Metrics.JSONLPath); path != "" {
		j, err := metrics.OpenJSONLFile(path)
		if err != nil {
			return nil, err
		}
		jsonl = j
		obsList = append(obsList, jsonl)
	}
	multiObs := observers.NewMultiObserver(obsList...)
	asyncObs := metrics.NewAsyncObserver(metrics.NewSamplingObserver(multiObs, cfg.Metrics.SampleRate), cfg.Metrics.Buffer)

	e := &Engine{
		cfg:       cfg,
		providers: providers,
		transport: transport,
		catalog:   catalog,
		detector:  lang.NewDetector(cfg.Languages.HinglishHints...),
		opener:    opener,
		clock:     clock,
		scheduler: opts.Scheduler,
		pick:      opts.Pick,
		observer:  asyncObs,
		asyncObs:  asyncObs,
		jsonl:     jsonl,
		prom:      prom,
		logger:    log,
	}
	e.sessions = NewSessionRegistry(e.sessionRemoved)

	hooks := runner.Hooks{
		OnStart: func() {
			fields := []any{"transport", transport.Name(), "rules", catalog.Len()}
			if rr, ok := transport.(transports.ReadyReporter); ok {
				for k, v := range rr.ReadyFields() {
					fields = append(fields, k, v)
				}
			}
			log.Info("engine_ready", fields...)
		},
		OnStop: func() {
			asyncObs.Close()
			if jsonl != nil {
				if err := jsonl.Close(); err != nil {
					log.Warn("metrics_close_failed", "error", err)
				}
			}
			log.Info("shutdown", "goroutines", runtime.NumGoroutine(), "dropped_metrics", asyncObs.Dropped())
		},
	}
	e.runner = runner.NewLifecycleRunner(runner.DrainerFunc(e.drain), hooks, drainTimeout)

	log.Info("vaani_init",
		"environment", cfg.Environment,
		"transport", transport.Name(),
		"recognizer", cfg.Recognizer.Provider,
		"opener", cfg.Opener.Provider,
		"mirror", cfg.Opener.Mirror,
	)
	return e, nil
}

// Start opens the transport and begins routing its events. It returns once
// the transport is listening.
func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	if err := e.transport.Start(ctx); err != nil {
		cancel()
		return err
	}
	done := make(chan struct{})
	e.mu.Lock()
	e.routeDone = done
	e.cancel = cancel
	e.mu.Unlock()

	go func() {
		defer close(done)
		e.route(ctx)
	}()
	go func() {
		_ = e.runner.Run(ctx)
	}()
	return nil
}

// Stop drains sessions and flushes metrics. It is safe to call more than
// once.
func (e *Engine) Stop() error {
	err := e.runner.Stop()
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()
	return err
}

func (e *Engine) drain() error {
	_ = e.transport.Stop()
	e.mu.Lock()
	done := e.routeDone
	e.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-time.After(routeWaitTime):
			e.logger.Warn("route_wait_timeout")
		}
	}
	e.sessions.SetDraining(true)
	e.sessions.CloseAll("shutdown")
	return nil
}

func (e *Engine) route(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-e.transport.Recv():
			if !ok {
				return
			}
			e.handle(ev)
		}
	}
}

func (e *Engine) handle(ev transports.Event) {
	switch ev.Kind {
	case transports.EventSessionStart:
		if err := e.openSession(ev); err != nil {
			e.logger.Warn("session_open_failed", "session_id", ev.SessionID, "reason", errorsx.Reason(err), "error", err)
		}
	case transports.EventTranscript:
		sess, ok := e.sessions.Get(ev.SessionID)
		if !ok {
			e.logger.Debug("transcript_unknown_session", "session_id", ev.SessionID)
			return
		}
		sess.Submit(ev.Text)
	case transports.EventAudio:
		sess, ok := e.sessions.Get(ev.SessionID)
		if !ok {
			return
		}
		if err := sess.SendAudio(ev.Audio); err != nil {
			e.logger.Debug("audio_forward_failed", "session_id", ev.SessionID, "reason", errorsx.Reason(err), "error", err)
		}
	case transports.EventSessionEnd:
		reason := ev.Reason
		if reason == "" {
			reason = "closed"
		}
		e.sessions.Remove(ev.SessionID, reason)
	}
}

func (e *Engine) openSession(ev transports.Event) error {
	host := ev.Session
	if host == nil {
		return fmt.Errorf("session %s has no host", ev.SessionID)
	}
	logger := e.logger.With("session_id", ev.SessionID, "trace_id", ev.TraceID)
	sess := newSession(ev.SessionID, ev.TraceID, host, logger)

	sess.Speech = speech.NewChannel(host,
		speech.WithVoice(tts.Voice{Rate: e.cfg.Voice.Rate, Pitch: e.cfg.Voice.Pitch, Volume: e.cfg.Voice.Volume}),
		speech.WithLogger(logger),
	)

	d, err := dispatcher.New(dispatcher.Options{
		Catalog:        e.catalog,
		Detector:       e.detector,
		Speaker:        sess.Speech,
		Opener:         e.sessionOpener(host),
		Scheduler:      e.scheduler,
		Device:         host,
		Clock:          e.clock,
		Formats:        e.cfg.Formats(),
		Observer:       e.observer,
		Logger:         logger,
		SessionID:      ev.SessionID,
		Pick:           e.pick,
		BatteryTimeout: time.Duration(e.cfg.Dispatch.BatteryTimeoutMS) * time.Millisecond,
		OnAsync: func(r dispatcher.Result) {
			logger.Info("async_answered", "dispatch_id", r.ID, "intent", r.Rule, "response", redact.Text(r.Response))
		},
	})
	if err != nil {
		sess.cancel()
		return err
	}
	sess.Dispatcher = d

	if provider := strings.TrimSpace(e.cfg.Recognizer.Provider); provider != "" {
		rec, err := e.providers.BuildRecognizer(provider, e.cfg, e.streamConfig(ev), logger)
		if err != nil {
			sess.cancel()
			return err
		}
		if err := rec.Start(sess.ctx); err != nil {
			_ = rec.Close()
			sess.cancel()
			return errorsx.Wrap(err, errorsx.ReasonSTTConnect)
		}
		sess.Recognizer = rec
	}

	if err := e.sessions.Add(sess); err != nil {
		if sess.Recognizer != nil {
			_ = sess.Recognizer.Close()
		}
		sess.cancel()
		return err
	}
	if sess.Recognizer != nil {
		go sess.forward()
	}
	go sess.run(e.cfg.Dispatch.Greet)

	e.observer.RecordEvent(metrics.NewEvent(metrics.EventSessionStarted, 1, map[string]string{
		metrics.TagSession: sess.ID,
		"transport":        e.transport.Name(),
	}))
	logger.Info("session_started", "recognizer", e.cfg.Recognizer.Provider)
	return nil
}

// sessionOpener decides where this session's opens go.
func (e *Engine) sessionOpener(host navigate.Opener) navigate.Opener {
	switch {
	case e.opener == nil:
		return host
	case e.cfg.Opener.Mirror:
		return navigate.Tee(host, e.opener)
	default:
		return e.opener
	}
}

func (e *Engine) streamConfig(ev transports.Event) stt.Config {
	sc := stt.DefaultConfig()
	sc.SessionID = ev.SessionID
	sc.TraceID = ev.TraceID
	if v := strings.TrimSpace(e.cfg.Recognizer.Language); v != "" {
		sc.Language = v
	}
	if e.cfg.Recognizer.SampleRate > 0 {
		sc.SampleRate = e.cfg.Recognizer.SampleRate
	}
	if v := strings.TrimSpace(e.cfg.Recognizer.Encoding); v != "" {
		sc.Encoding = v
	}
	return sc
}

func (e *Engine) sessionRemoved(s *Session, reason string) {
	e.observer.RecordEvent(metrics.NewEvent(metrics.EventSessionEnded, float64(time.Since(s.Created)), map[string]string{
		metrics.TagSession: s.ID,
		"reason":           reason,
	}))
	e.logger.Info("session_ended", "session_id", s.ID, "reason", reason, "spoken", s.Speech.Spoken(), "dropped", s.Dropped())
}

// Sessions exposes the live session registry.
func (e *Engine) Sessions() *SessionRegistry { return e.sessions }

func (e *Engine) Transport() transports.Transport { return e.transport }

func (e *Engine) Catalog() *intent.Catalog { return e.catalog }

func (e *Engine) Config() Config { return e.cfg }

// State reports the lifecycle state.
func (e *Engine) State() runner.State { return e.runner.State() }
