// Package browser serves the voice console to a web page over a websocket.
// The page does recognition and synthesis with its own speech APIs and
// opens links; this side only exchanges JSON directives with it.
package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/harunnryd/vaani/pkg/logging"
	"github.com/harunnryd/vaani/pkg/transports"
)

//go:embed static/index.html
var indexHTML []byte

type Config struct {
	ServerAddr     string        `mapstructure:"server_addr"`
	PublicURL      string        `mapstructure:"public_url"`
	WebsocketPath  string        `mapstructure:"ws_path"`
	AllowAnyOrigin bool          `mapstructure:"allow_any_origin"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	ServeClient    bool          `mapstructure:"serve_client"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

func (c Config) withDefaults() Config {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8080"
	}
	if c.WebsocketPath == "" {
		c.WebsocketPath = "/ws"
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if !c.AllowAnyOrigin && len(c.AllowedOrigins) == 0 {
		c.AllowAnyOrigin = true
	}
	return c
}

// Option configures a Transport.
const recvBuffer = 512

type Option func(*Transport)

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = logging.NewComponentLogger(l, "browser_transport") }
}

type Transport struct {
	cfg      Config
	router   chi.Router
	server   *http.Server
	upgrader websocket.Upgrader
	recvCh   chan transports.Event
	done     chan struct{}
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	draining bool
	handlers sync.WaitGroup
}

func New(cfg Config, opts ...Option) *Transport {
	cfg = cfg.withDefaults()
	t := &Transport{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		recvCh:   make(chan transports.Event, recvBuffer),
		done:     make(chan struct{}),
		sessions: make(map[string]*session),
		logger:   logging.NewComponentLogger(slog.Default(), "browser_transport"),
	}
	t.upgrader.CheckOrigin = t.checkOrigin
	for _, opt := range opts {
		opt(t)
	}
	t.router = t.routes()
	return t
}

func (t *Transport) routes() chi.Router {
	r := chi.NewRouter()
	origins := t.cfg.AllowedOrigins
	if t.cfg.AllowAnyOrigin {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if t.isDraining() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Get(t.cfg.WebsocketPath, t.handleWS)
	if t.cfg.ServeClient {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write(indexHTML)
		})
	}
	return r
}

func (t *Transport) Name() string { return "browser" }

func (t *Transport) Recv() <-chan transports.Event { return t.recvCh }

// Handler exposes the router, e.g. for httptest.
func (t *Transport) Handler() http.Handler { return t.router }

// Mount attaches h under pattern. Call before Start.
func (t *Transport) Mount(pattern string, h http.Handler) {
	t.router.Mount(pattern, h)
}

func (t *Transport) ReadyFields() map[string]any {
	base := t.baseURL()
	fields := map[string]any{
		"ws_url":     strings.Replace(base, "http", "ws", 1) + t.cfg.WebsocketPath,
		"health_url": base + "/health",
	}
	if t.cfg.ServeClient {
		fields["console_url"] = base + "/"
	}
	return fields
}

func (t *Transport) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t.server = &http.Server{
		Addr:              t.cfg.ServerAddr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           t.router,
	}
	go func() {
		<-ctx.Done()
		_ = t.server.Close()
	}()
	go func() {
		if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("browser_transport_server_error", "error", err.Error())
		}
	}()
	return nil
}

// Stop refuses new sessions, closes the live ones and waits for their
// handlers before closing Recv.
func (t *Transport) Stop() error {
	t.mu.Lock()
	if t.draining {
		t.mu.Unlock()
		return nil
	}
	t.draining = true
	close(t.done)
	live := make([]*session, 0, len(t.sessions))
	for _, sess := range t.sessions {
		live = append(live, sess)
	}
	t.sessions = make(map[string]*session)
	t.mu.Unlock()

	if t.server != nil {
		_ = t.server.Close()
	}
	for _, sess := range live {
		_ = sess.close()
	}
	t.handlers.Wait()
	close(t.recvCh)
	return nil
}

// SessionCount returns the number of connected pages.
func (t *Transport) SessionCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

func (t *Transport) handleWS(w http.ResponseWriter, r *http.Request) {
	if !t.beginHandler() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	defer t.handlers.Done()

	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sess := newSession(uuid.NewString(), uuid.NewString(), conn, t.cfg)
	sess.snapshot.SetUserAgent(r.UserAgent())
	if !t.attach(sess) {
		_ = sess.close()
		return
	}
	go sess.loop(t.logger)

	t.emit(transports.Event{
		Kind:      transports.EventSessionStart,
		SessionID: sess.id,
		TraceID:   sess.traceID,
		Session:   sess,
	})
	t.logger.Info("browser_session_started", "session_id", sess.id, "trace_id", sess.traceID)

	reason := "transport_closed"
read:
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if mt == websocket.BinaryMessage {
			t.emit(transports.Event{
				Kind:      transports.EventAudio,
				SessionID: sess.id,
				TraceID:   sess.traceID,
				Audio:     msg,
			})
			continue
		}
		var in inbound
		if err := json.Unmarshal(msg, &in); err != nil {
			t.logger.Debug("browser_message_invalid", "session_id", sess.id, "error", err.Error())
			continue
		}
		switch in.Type {
		case msgHello, msgCapabilities:
			sess.applyCapabilities(in)
		case msgTranscript:
			if in.Final != nil && !*in.Final {
				continue
			}
			t.emit(transports.Event{
				Kind:      transports.EventTranscript,
				SessionID: sess.id,
				TraceID:   sess.traceID,
				Text:      in.Text,
			})
		case msgBattery:
			sess.resolveBattery(in)
		case msgBye:
			reason = "completed"
			break read
		}
	}

	t.detach(sess.id)
	_ = sess.close()
	t.emit(transports.Event{
		Kind:      transports.EventSessionEnd,
		SessionID: sess.id,
		TraceID:   sess.traceID,
		Reason:    reason,
	})
	t.logger.Info("browser_session_ended", "session_id", sess.id, "reason", reason)
}

func (t *Transport) beginHandler() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.draining {
		return false
	}
	t.handlers.Add(1)
	return true
}

func (t *Transport) isDraining() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draining
}

func (t *Transport) attach(sess *session) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.draining {
		return false
	}
	t.sessions[sess.id] = sess
	return true
}

func (t *Transport) detach(id string) {
	t.mu.Lock()
	delete(t.sessions, id)
	t.mu.Unlock()
}

// emit delivers evt to Recv. Audio is dropped when the buffer is full;
// lifecycle and transcript events wait for room until Stop, and are
// discarded only when the buffer is still full then.
func (t *Transport) emit(evt transports.Event) {
	if evt.Kind == transports.EventAudio {
		select {
		case t.recvCh <- evt:
		default:
			t.logger.Warn("browser_event_dropped", "session_id", evt.SessionID, "kind", string(evt.Kind))
		}
		return
	}
	select {
	case t.recvCh <- evt:
		return
	default:
	}
	select {
	case t.recvCh <- evt:
	case <-t.done:
		t.logger.Debug("browser_event_discarded", "session_id", evt.SessionID, "kind", string(evt.Kind), "reason", "draining")
	}
}

func (t *Transport) baseURL() string {
	if t.cfg.PublicURL != "" {
		return strings.TrimRight(t.cfg.PublicURL, "/")
	}
	addr := t.cfg.ServerAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func (t *Transport) checkOrigin(r *http.Request) bool {
	if t.cfg.AllowAnyOrigin {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	origin = strings.TrimRight(origin, "/")
	originHost := strings.TrimPrefix(origin, "https://")
	originHost = strings.TrimPrefix(originHost, "http://")
	for _, allowed := range t.cfg.AllowedOrigins {
		a := strings.TrimRight(strings.TrimSpace(allowed), "/")
		if a == "" {
			continue
		}
		if strings.HasPrefix(a, "http://") || strings.HasPrefix(a, "https://") {
			if strings.EqualFold(a, origin) {
				return true
			}
			continue
		}
		if strings.EqualFold(a, originHost) {
			return true
		}
	}
	return false
}
