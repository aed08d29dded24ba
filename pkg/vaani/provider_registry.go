package vaani

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/vaani/pkg/adapters/stt"
	"github.com/harunnryd/vaani/pkg/configutil"
	"github.com/harunnryd/vaani/pkg/navigate"
	"github.com/harunnryd/vaani/pkg/providers/deepgram"
	"github.com/harunnryd/vaani/pkg/transports"
	"github.com/harunnryd/vaani/pkg/transports/browser"
	"github.com/harunnryd/vaani/pkg/transports/twilio"
)

// OpenerSession names the built-in opener that opens on the host page.
const OpenerSession = "session"

type TransportFactory func(cfg Config, logger *slog.Logger) (transports.Transport, error)

// RecognizerFactory builds one recognizer per session.
type RecognizerFactory func(cfg Config, stream stt.Config, logger *slog.Logger) (stt.Recognizer, error)

// OpenerFactory builds an opener shared by all sessions.
type OpenerFactory func(cfg Config, logger *slog.Logger) (navigate.Opener, error)

type ProviderRegistry struct {
	transports  map[string]TransportFactory
	recognizers map[string]RecognizerFactory
	openers     map[string]OpenerFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		transports:  make(map[string]TransportFactory),
		recognizers: make(map[string]RecognizerFactory),
		openers:     make(map[string]OpenerFactory),
	}
}

// DefaultProviders registers the browser transport, the Deepgram recognizer
// and the Twilio SMS opener.
func DefaultProviders() *ProviderRegistry {
	r := NewProviderRegistry()
	r.RegisterTransport("browser", newBrowserTransport)
	r.RegisterRecognizer("deepgram", newDeepgramRecognizer)
	r.RegisterOpener("twilio_sms", newSMSOpener)
	return r
}

func providerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *ProviderRegistry) RegisterTransport(name string, factory TransportFactory) {
	r.transports[providerKey(name)] = factory
}

func (r *ProviderRegistry) RegisterRecognizer(name string, factory RecognizerFactory) {
	r.recognizers[providerKey(name)] = factory
}

func (r *ProviderRegistry) RegisterOpener(name string, factory OpenerFactory) {
	r.openers[providerKey(name)] = factory
}

func (r *ProviderRegistry) BuildTransport(provider string, cfg Config, logger *slog.Logger) (transports.Transport, error) {
	fn := r.transports[providerKey(provider)]
	if fn == nil {
		return nil, fmt.Errorf("transport provider not registered: %s", provider)
	}
	return fn(cfg, logger)
}

func (r *ProviderRegistry) BuildRecognizer(provider string, cfg Config, stream stt.Config, logger *slog.Logger) (stt.Recognizer, error) {
	fn := r.recognizers[providerKey(provider)]
	if fn == nil {
		return nil, fmt.Errorf("recognizer provider not registered: %s", provider)
	}
	return fn(cfg, stream, logger)
}

func (r *ProviderRegistry) BuildOpener(provider string, cfg Config, logger *slog.Logger) (navigate.Opener, error) {
	fn := r.openers[providerKey(provider)]
	if fn == nil {
		return nil, fmt.Errorf("opener provider not registered: %s", provider)
	}
	return fn(cfg, logger)
}

var browserSchema = configutil.Schema{
	Optional: []string{
		"server_addr", "public_url", "ws_path", "allow_any_origin",
		"allowed_origins", "send_buffer", "serve_client", "write_timeout",
	},
}

func newBrowserTransport(cfg Config, logger *slog.Logger) (transports.Transport, error) {
	bc := browser.Config{ServeClient: true}
	if err := configutil.DecodeValidated(cfg.Transport.Settings, browserSchema, &bc); err != nil {
		return nil, fmt.Errorf("transport.settings: %w", err)
	}
	return browser.New(bc, browser.WithLogger(logger)), nil
}

var deepgramSchema = configutil.Schema{
	Required: []string{"api_key"},
	Optional: []string{"model", "endpointing_ms", "utterance_end_ms", "keep_alive"},
}

func newDeepgramRecognizer(cfg Config, stream stt.Config, logger *slog.Logger) (stt.Recognizer, error) {
	var dc deepgram.Config
	if err := configutil.DecodeValidated(cfg.Recognizer.Settings, deepgramSchema, &dc); err != nil {
		return nil, fmt.Errorf("recognizer.settings: %w", err)
	}
	return deepgram.New(dc, stream, logger), nil
}

var smsSchema = configutil.Schema{
	Required: []string{"account_sid", "auth_token", "from", "to"},
	Optional: []string{"body_prefix", "max_retries", "backoff", "breaker_threshold", "breaker_cooldown"},
}

func newSMSOpener(cfg Config, logger *slog.Logger) (navigate.Opener, error) {
	var tc twilio.Config
	if err := configutil.DecodeValidated(cfg.Opener.Settings, smsSchema, &tc); err != nil {
		return nil, fmt.Errorf("opener.settings: %w", err)
	}
	return twilio.NewLinkSender(tc, logger)
}
