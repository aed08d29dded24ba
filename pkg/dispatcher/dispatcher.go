// Package dispatcher turns one transcript into speech and navigation.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harunnryd/vaani/pkg/device"
	"github.com/harunnryd/vaani/pkg/errorsx"
	"github.com/harunnryd/vaani/pkg/intent"
	"github.com/harunnryd/vaani/pkg/lang"
	"github.com/harunnryd/vaani/pkg/logging"
	"github.com/harunnryd/vaani/pkg/metrics"
	"github.com/harunnryd/vaani/pkg/navigate"
	"github.com/harunnryd/vaani/pkg/redact"
	"github.com/harunnryd/vaani/pkg/speech"
)

// ErrBusy is returned when a dispatch is attempted while another runs.
var ErrBusy = errors.New("dispatcher busy")

const (
	defaultBatteryTimeout = 5 * time.Second
	logTranscriptRunes    = 160
)

// Effect is what the dispatch did besides speaking.
type Effect string

const (
	EffectNone Effect = "none"
	EffectOpen Effect = "open"
)

// Result describes one dispatch. It is not retained.
type Result struct {
	ID         string
	Transcript string
	Language   lang.Language
	Rule       string
	Category   string
	Matched    bool
	Argument   string
	Response   string
	Effect     Effect
	URL        string
	Delay      time.Duration
	// Pending is set while an asynchronous answer has yet to be spoken.
	Pending bool
	// Task controls a scheduled open; nil when nothing was opened.
	Task navigate.Task
}

// Options wires a Dispatcher. Speaker and Opener are required.
type Options struct {
	Catalog   *intent.Catalog
	Detector  *lang.Detector
	Speaker   speech.Speaker
	Opener    navigate.Opener
	Scheduler navigate.Scheduler
	Device    device.Capabilities
	Clock     device.Clock
	Formats   device.Formats
	Observer  metrics.Observer
	Logger    *slog.Logger
	SessionID string
	// Pick returns an index in [0,n); defaults to math/rand.
	Pick           func(n int) int
	BatteryTimeout time.Duration
	// OnAsync receives the final result of an asynchronous answer.
	OnAsync func(Result)
}

// Dispatcher runs the detect, match, extract and execute sequence. One
// Dispatch runs at a time; async answers may still be in flight after it
// returns.
type Dispatcher struct {
	catalog        *intent.Catalog
	detector       *lang.Detector
	speaker        speech.Speaker
	opener         navigate.Opener
	scheduler      navigate.Scheduler
	device         device.Capabilities
	clock          device.Clock
	formats        device.Formats
	observer       metrics.Observer
	logger         *slog.Logger
	sessionID      string
	pick           func(n int) int
	batteryTimeout time.Duration
	onAsync        func(Result)

	fsm   *stateMachine
	async sync.WaitGroup
}

// New validates opts and fills defaults.
func New(opts Options) (*Dispatcher, error) {
	if opts.Speaker == nil {
		return nil, fmt.Errorf("dispatcher: speaker is required")
	}
	if opts.Opener == nil {
		return nil, fmt.Errorf("dispatcher: opener is required")
	}
	d := &Dispatcher{
		catalog:        opts.Catalog,
		detector:       opts.Detector,
		speaker:        opts.Speaker,
		opener:         opts.Opener,
		scheduler:      opts.Scheduler,
		device:         opts.Device,
		clock:          opts.Clock,
		formats:        opts.Formats.WithDefaults(),
		observer:       opts.Observer,
		sessionID:      opts.SessionID,
		pick:           opts.Pick,
		batteryTimeout: opts.BatteryTimeout,
		onAsync:        opts.OnAsync,
		fsm:            newStateMachine(),
	}
	if d.catalog == nil {
		d.catalog = intent.DefaultCatalog()
	}
	if d.detector == nil {
		d.detector = lang.NewDetector()
	}
	if d.scheduler == nil {
		d.scheduler = navigate.TimerScheduler{}
	}
	if d.clock == nil {
		d.clock = device.SystemClock{}
	}
	if d.observer == nil {
		d.observer = metrics.NoopObserver{}
	}
	if d.pick == nil {
		d.pick = rand.IntN
	}
	if d.batteryTimeout <= 0 {
		d.batteryTimeout = defaultBatteryTimeout
	}
	d.logger = logging.NewComponentLogger(opts.Logger, "dispatcher")
	if d.sessionID != "" {
		d.logger = d.logger.With("session_id", d.sessionID)
	}
	return d, nil
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State { return d.fsm.State() }

// AddListener registers a state change listener.
func (d *Dispatcher) AddListener(l StateListener) { d.fsm.AddListener(l) }

// Catalog returns the catalog in use.
func (d *Dispatcher) Catalog() *intent.Catalog { return d.catalog }

// Wait blocks until asynchronous answers have been spoken.
func (d *Dispatcher) Wait() { d.async.Wait() }

// Dispatch handles one completed utterance. Unmatched commands fall back to a
// web search of the whole transcript; that is not an error. Errors come only
// from collaborators, and the spoken reply is attempted even when the open
// fails.
func (d *Dispatcher) Dispatch(ctx context.Context, transcript string) (Result, error) {
	if err := d.fsm.Transition(StateDispatching, "transcript"); err != nil {
		return Result{}, errorsx.Wrap(fmt.Errorf("%w: %v", ErrBusy, err), errorsx.ReasonDispatchBusy)
	}
	defer func() { _ = d.fsm.Transition(StateIdle, "dispatched") }()

	start := time.Now()
	text := strings.ToLower(transcript)
	language := d.detector.Detect(text)
	rule, matched := d.catalog.Resolve(text)

	res := Result{
		ID:         uuid.NewString(),
		Transcript: text,
		Language:   language,
		Rule:       rule.Name,
		Category:   rule.Category,
		Matched:    matched,
		Effect:     EffectNone,
	}
	d.logger.Info("dispatch_matched",
		"dispatch_id", res.ID,
		"intent", rule.Name,
		"matched", matched,
		"language", language.String(),
		"transcript", redact.Transcript(text, logTranscriptRunes),
	)

	err := d.execute(ctx, rule, &res)

	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
		d.logger.Warn("dispatch_failed", "dispatch_id", res.ID, "intent", rule.Name, "reason", errorsx.Reason(err), "error", err)
	}
	d.record(metrics.EventDispatch, float64(time.Since(start)), map[string]string{
		metrics.TagIntent:   rule.Name,
		metrics.TagLanguage: language.String(),
		metrics.TagCategory: rule.Category,
		metrics.TagStatus:   status,
	})
	return res, err
}

// Greet speaks the time-of-day greeting in English.
func (d *Dispatcher) Greet(ctx context.Context) (string, error) {
	text := Greeting(d.clock.Now())
	if err := d.say(ctx, text, lang.English); err != nil {
		return text, err
	}
	d.logger.Info("greeted", "text", text)
	return text, nil
}

// Greeting picks the greeting for t's hour.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Good Morning Sir"
	case h < 16:
		return "Good Afternoon Sir"
	default:
		return "Good Evening Sir"
	}
}

func (d *Dispatcher) execute(ctx context.Context, rule intent.Rule, res *Result) error {
	switch rule.Action.Kind {
	case intent.ActionSpeak:
		res.Response = rule.Reply.For(res.Language)
		return d.say(ctx, res.Response, res.Language)

	case intent.ActionOpenURL:
		res.Response = rule.Reply.For(res.Language)
		speakErr := d.say(ctx, res.Response, res.Language)
		openErr := d.open(ctx, rule, rule.Action.URL, res)
		return errors.Join(speakErr, openErr)

	case intent.ActionOpenSearch:
		query, spoken := res.Transcript, res.Transcript
		if res.Matched {
			query, spoken = rule.Argument(res.Transcript)
		}
		res.Argument = query
		url, err := rule.Action.Search.Engine.URL(query, res.Language)
		if err != nil {
			return errorsx.Wrap(err, errorsx.ReasonNavigateOpen)
		}
		res.Response = rule.Reply.Render(res.Language, spoken)
		speakErr := d.say(ctx, res.Response, res.Language)
		openErr := d.open(ctx, rule, url, res)
		return errors.Join(speakErr, openErr)

	case intent.ActionCompute:
		return d.compute(ctx, rule, res)

	default:
		return fmt.Errorf("unsupported action %q", string(rule.Action.Kind))
	}
}

func (d *Dispatcher) say(ctx context.Context, text string, l lang.Language) error {
	err := d.speaker.Speak(ctx, text, l)
	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
	}
	d.record(metrics.EventSpeech, float64(len(text)), map[string]string{
		metrics.TagLanguage: l.String(),
		metrics.TagStatus:   status,
	})
	return err
}

// open schedules url after the rule's delay. Immediate opens report their
// error; deferred ones only log it.
func (d *Dispatcher) open(ctx context.Context, rule intent.Rule, url string, res *Result) error {
	delay := rule.Action.Delay
	res.Effect = EffectOpen
	res.URL = url
	res.Delay = delay

	if delay <= 0 {
		return d.openNow(ctx, rule, url, false)
	}
	octx := context.WithoutCancel(ctx)
	res.Task = d.scheduler.After(delay, func() {
		_ = d.openNow(octx, rule, url, true)
	})
	return nil
}

func (d *Dispatcher) openNow(ctx context.Context, rule intent.Rule, url string, deferred bool) error {
	err := d.opener.Open(ctx, url)
	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
		err = errorsx.Wrap(fmt.Errorf("open %s: %w", url, err), errorsx.ReasonNavigateOpen)
		d.logger.Warn("open_failed", "intent", rule.Name, "url", url, "deferred", deferred, "error", err)
	} else {
		d.logger.Debug("opened", "intent", rule.Name, "url", url, "delay_ms", rule.Action.Delay.Milliseconds())
	}
	d.record(metrics.EventOpen, 1, map[string]string{
		metrics.TagIntent: rule.Name,
		metrics.TagStatus: status,
	})
	return err
}

func (d *Dispatcher) record(name string, value float64, tags map[string]string) {
	if d.sessionID != "" {
		tags[metrics.TagSession] = d.sessionID
	}
	d.observer.RecordEvent(metrics.NewEvent(name, value, tags))
}
