// Package twilio sends opened destinations to a phone as SMS links.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/harunnryd/vaani/pkg/errorsx"
	"github.com/harunnryd/vaani/pkg/logging"
	"github.com/harunnryd/vaani/pkg/navigate"
	"github.com/harunnryd/vaani/pkg/resilience"
)

const providerName = "twilio"

type Config struct {
	AccountSID       string        `mapstructure:"account_sid"`
	AuthToken        string        `mapstructure:"auth_token"`
	From             string        `mapstructure:"from"`
	To               string        `mapstructure:"to"`
	BodyPrefix       string        `mapstructure:"body_prefix"`
	MaxRetries       int           `mapstructure:"max_retries"`
	Backoff          time.Duration `mapstructure:"backoff"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

func (c Config) withDefaults() Config {
	if c.BodyPrefix == "" {
		c.BodyPrefix = "Vaani: "
	}
	return c
}

// Validate checks that credentials and both numbers are present.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.AccountSID) == "" {
		missing = append(missing, "account_sid")
	}
	if strings.TrimSpace(c.AuthToken) == "" {
		missing = append(missing, "auth_token")
	}
	if strings.TrimSpace(c.From) == "" {
		missing = append(missing, "from")
	}
	if strings.TrimSpace(c.To) == "" {
		missing = append(missing, "to")
	}
	if len(missing) > 0 {
		return fmt.Errorf("twilio sms: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

type messageCreator interface {
	CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error)
}

// LinkSender is a navigate.Opener that texts each URL instead of opening it.
type LinkSender struct {
	cfg     Config
	client  messageCreator
	retry   resilience.RetryPolicy
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

var _ navigate.Opener = (*LinkSender)(nil)

func NewLinkSender(cfg Config, logger *slog.Logger) (*LinkSender, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newLinkSender(cfg, rest.Api, logger), nil
}

func newLinkSender(cfg Config, client messageCreator, logger *slog.Logger) *LinkSender {
	retry := resilience.NewRetryPolicy(cfg.MaxRetries, cfg.Backoff)
	retry.Retryable = func(err error) bool {
		return !resilience.IsRateLimit(err) && !errors.Is(err, resilience.ErrCircuitOpen)
	}
	return &LinkSender{
		cfg:     cfg,
		client:  client,
		retry:   retry,
		breaker: resilience.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		logger:  logging.NewComponentLogger(logger, "sms_opener"),
	}
}

// Open texts url to the configured number.
func (s *LinkSender) Open(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("twilio sms: url required")
	}
	params := &api.CreateMessageParams{}
	params.SetTo(s.cfg.To)
	params.SetFrom(s.cfg.From)
	params.SetBody(s.cfg.BodyPrefix + url)

	var sid string
	err := s.retry.Do(ctx, func() error {
		return s.breaker.Execute(func() error {
			resp, err := s.client.CreateMessage(params)
			if err != nil {
				return classify(err)
			}
			if resp == nil || resp.Sid == nil {
				return fmt.Errorf("twilio sms: missing message sid")
			}
			sid = *resp.Sid
			return nil
		})
	})
	switch {
	case err == nil:
		s.logger.Info("sms_link_sent", "message_sid", sid)
		return nil
	case errors.Is(err, resilience.ErrCircuitOpen):
		return errorsx.Wrap(err, errorsx.ReasonSMSCircuitOpen)
	case resilience.IsRateLimit(err):
		return errorsx.Wrap(err, errorsx.ReasonSMSRateLimit)
	default:
		return errorsx.Wrap(fmt.Errorf("twilio sms: %w", err), errorsx.ReasonSMSSend)
	}
}

func classify(err error) error {
	var restErr *twilioclient.TwilioRestError
	if errors.As(err, &restErr) && restErr.Status == http.StatusTooManyRequests {
		return resilience.RateLimitError{Provider: providerName, Message: restErr.Message}
	}
	return err
}
