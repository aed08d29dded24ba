package vaani

import (
	"strings"
	"testing"

	"github.com/harunnryd/vaani/pkg/adapters/stt"
	"github.com/harunnryd/vaani/pkg/transports/browser"
)

func TestDefaultProvidersBuildBrowser(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transport.Settings = map[string]any{
		"server_addr": ":9191",
		"public_url":  "https://vaani.example.com",
	}
	tr, err := DefaultProviders().BuildTransport("Browser", cfg, quietLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	bt, ok := tr.(*browser.Transport)
	if !ok {
		t.Fatalf("expected browser transport, got %T", tr)
	}
	fields := bt.ReadyFields()
	if fields["ws_url"] != "wss://vaani.example.com/ws" {
		t.Fatalf("unexpected ws url %v", fields["ws_url"])
	}
	if _, ok := fields["console_url"]; !ok {
		t.Fatalf("expected console served by default")
	}
}

func TestDefaultProvidersRejectBadSettings(t *testing.T) {
	reg := DefaultProviders()

	cfg := DefaultConfig()
	cfg.Transport.Settings = map[string]any{"colour": "blue"}
	if _, err := reg.BuildTransport("browser", cfg, quietLogger()); err == nil || !strings.Contains(err.Error(), "unknown: colour") {
		t.Fatalf("expected unknown key error, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Recognizer.Settings = map[string]any{"model": "nova-2"}
	if _, err := reg.BuildRecognizer("deepgram", cfg, stt.DefaultConfig(), quietLogger()); err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("expected missing api_key, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Opener.Settings = map[string]any{"account_sid": "AC1"}
	_, err := reg.BuildOpener("twilio_sms", cfg, quietLogger())
	if err == nil || !strings.Contains(err.Error(), "auth_token") || !strings.Contains(err.Error(), "to") {
		t.Fatalf("expected missing sms fields, got %v", err)
	}
}

func TestDefaultProvidersBuildRecognizerAndOpener(t *testing.T) {
	reg := DefaultProviders()
	cfg := DefaultConfig()
	cfg.Recognizer.Settings = map[string]any{"api_key": "dg-key", "endpointing_ms": 300}
	rec, err := reg.BuildRecognizer("deepgram", cfg, stt.DefaultConfig(), quietLogger())
	if err != nil {
		t.Fatalf("build recognizer: %v", err)
	}
	if rec.Name() != "deepgram" {
		t.Fatalf("unexpected recognizer %q", rec.Name())
	}

	cfg.Opener.Settings = map[string]any{
		"account_sid": "AC1",
		"auth_token":  "secret",
		"from":        "+15550000000",
		"to":          "+919800000000",
	}
	if _, err := reg.BuildOpener("twilio_sms", cfg, quietLogger()); err != nil {
		t.Fatalf("build opener: %v", err)
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	reg := NewProviderRegistry()
	if _, err := reg.BuildRecognizer("whisper", DefaultConfig(), stt.DefaultConfig(), quietLogger()); err == nil {
		t.Fatalf("expected unregistered recognizer to fail")
	}
}
