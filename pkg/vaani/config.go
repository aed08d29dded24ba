package vaani

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/harunnryd/vaani/pkg/configutil"
	"github.com/harunnryd/vaani/pkg/device"
	"github.com/harunnryd/vaani/pkg/lang"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	LogFormat   string           `mapstructure:"log_format"`
	Languages   LanguageConfig   `mapstructure:"languages"`
	Dispatch    DispatchConfig   `mapstructure:"dispatch"`
	Voice       VoiceConfig      `mapstructure:"voice"`
	Transport   ProviderConfig   `mapstructure:"transport"`
	Recognizer  RecognizerConfig `mapstructure:"recognizer"`
	Opener      OpenerConfig     `mapstructure:"opener"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
	Privacy     PrivacyConfig    `mapstructure:"privacy"`
}

type ProviderConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

// RecognizerConfig selects a server-side recognizer. An empty provider means
// the host recognizes speech itself and sends transcripts.
type RecognizerConfig struct {
	Provider   string         `mapstructure:"provider"`
	Language   string         `mapstructure:"language"`
	SampleRate int            `mapstructure:"sample_rate"`
	Encoding   string         `mapstructure:"encoding"`
	Settings   map[string]any `mapstructure:"settings"`
}

// OpenerConfig selects where opens go. "session" opens on the host page;
// any other provider replaces it, or runs alongside it with Mirror.
type OpenerConfig struct {
	Provider string         `mapstructure:"provider"`
	Mirror   bool           `mapstructure:"mirror"`
	Settings map[string]any `mapstructure:"settings"`
}

type LanguageConfig struct {
	// HinglishHints are romanized Hindi words that mark a transcript Hindi.
	HinglishHints []string `mapstructure:"hinglish_hints"`
}

type DispatchConfig struct {
	CatalogPath      string `mapstructure:"catalog_path"`
	Timezone         string `mapstructure:"timezone"`
	TimeFormat       string `mapstructure:"time_format"`
	DateFormat       string `mapstructure:"date_format"`
	WeekdayFormat    string `mapstructure:"weekday_format"`
	BatteryTimeoutMS int    `mapstructure:"battery_timeout_ms"`
	Greet            bool   `mapstructure:"greet"`
}

type VoiceConfig struct {
	Rate   float64 `mapstructure:"rate"`
	Pitch  float64 `mapstructure:"pitch"`
	Volume float64 `mapstructure:"volume"`
}

type MetricsConfig struct {
	Prometheus bool    `mapstructure:"prometheus"`
	Path       string  `mapstructure:"path"`
	JSONLPath  string  `mapstructure:"jsonl_path"`
	SampleRate float64 `mapstructure:"sample_rate"`
	Buffer     int     `mapstructure:"buffer"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

// DefaultConfig mirrors LoadConfig's defaults for callers that build a
// config in code.
func DefaultConfig() Config {
	return Config{
		Environment: "development",
		LogLevel:    "info",
		LogFormat:   "text",
		Languages:   LanguageConfig{HinglishHints: append([]string(nil), lang.DefaultHints...)},
		Dispatch: DispatchConfig{
			TimeFormat:       device.DefaultFormats().Time,
			DateFormat:       device.DefaultFormats().Date,
			WeekdayFormat:    device.DefaultFormats().Weekday,
			BatteryTimeoutMS: 5000,
			Greet:            true,
		},
		Voice:     VoiceConfig{Rate: 1, Pitch: 1, Volume: 1},
		Transport: ProviderConfig{Provider: "browser"},
		Opener:    OpenerConfig{Provider: "session"},
		Metrics:   MetricsConfig{Path: "/metrics", SampleRate: 1, Buffer: 1024},
		Privacy:   PrivacyConfig{RedactPII: true},
	}
}

func LoadConfig(path string) (Config, error) {
	d := DefaultConfig()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", d.Environment)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("languages.hinglish_hints", d.Languages.HinglishHints)
	v.SetDefault("dispatch.time_format", d.Dispatch.TimeFormat)
	v.SetDefault("dispatch.date_format", d.Dispatch.DateFormat)
	v.SetDefault("dispatch.weekday_format", d.Dispatch.WeekdayFormat)
	v.SetDefault("dispatch.battery_timeout_ms", d.Dispatch.BatteryTimeoutMS)
	v.SetDefault("dispatch.greet", d.Dispatch.Greet)
	v.SetDefault("voice.rate", d.Voice.Rate)
	v.SetDefault("voice.pitch", d.Voice.Pitch)
	v.SetDefault("voice.volume", d.Voice.Volume)
	v.SetDefault("transport.provider", d.Transport.Provider)
	v.SetDefault("opener.provider", d.Opener.Provider)
	v.SetDefault("opener.mirror", false)
	v.SetDefault("metrics.prometheus", false)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("metrics.sample_rate", d.Metrics.SampleRate)
	v.SetDefault("metrics.buffer", d.Metrics.Buffer)
	v.SetDefault("privacy.redact_pii", d.Privacy.RedactPII)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := configutil.RequireString(c.Transport.Provider, "transport.provider"); err != nil {
		return err
	}
	if err := configutil.RequireString(c.Opener.Provider, "opener.provider"); err != nil {
		return err
	}
	if c.Opener.Mirror && strings.EqualFold(strings.TrimSpace(c.Opener.Provider), "session") {
		return fmt.Errorf("opener.mirror needs a provider other than session")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("dispatch.timezone: %w", err)
	}
	if c.Metrics.SampleRate < 0 || c.Metrics.SampleRate > 1 {
		return fmt.Errorf("metrics.sample_rate must be within [0,1]")
	}
	if c.Voice.Rate < 0 || c.Voice.Pitch < 0 || c.Voice.Volume < 0 || c.Voice.Volume > 1 {
		return fmt.Errorf("voice: rate and pitch must be positive, volume within [0,1]")
	}
	return nil
}

// Location resolves dispatch.timezone; empty means the process's local zone.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Dispatch.Timezone)
	if tz == "" {
		return nil, nil
	}
	return time.LoadLocation(tz)
}

// Formats returns the spoken time layouts.
func (c Config) Formats() device.Formats {
	return device.Formats{
		Time:    c.Dispatch.TimeFormat,
		Date:    c.Dispatch.DateFormat,
		Weekday: c.Dispatch.WeekdayFormat,
	}.WithDefaults()
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Transport.Settings = expandSettings(cfg.Transport.Settings)
	cfg.Recognizer.Settings = expandSettings(cfg.Recognizer.Settings)
	cfg.Opener.Settings = expandSettings(cfg.Opener.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	}
}
