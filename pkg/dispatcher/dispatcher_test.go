package dispatcher

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/vaani/pkg/errorsx"
	"github.com/harunnryd/vaani/pkg/intent"
	"github.com/harunnryd/vaani/pkg/lang"
	"github.com/harunnryd/vaani/pkg/metrics"
	"github.com/harunnryd/vaani/pkg/navigate"
	"github.com/harunnryd/vaani/pkg/providers/mock"
	"github.com/harunnryd/vaani/pkg/speech"
)

type fixture struct {
	d      *Dispatcher
	synth  *mock.Synthesizer
	opener *mock.Opener
	sched  *mock.Scheduler
	obs    *metrics.MemoryObserver
	caps   *mock.Capabilities
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		synth:  mock.NewSynthesizer(),
		opener: mock.NewOpener(),
		sched:  mock.NewScheduler(),
		obs:    metrics.NewMemoryObserver(),
		caps:   &mock.Capabilities{Agent: "Firefox"},
	}
	opts := Options{
		Speaker:   speech.NewChannel(f.synth),
		Opener:    f.opener,
		Scheduler: f.sched,
		Device:    f.caps,
		Clock:     mock.Clock{At: time.Date(2026, time.October, 17, 14, 30, 0, 0, time.UTC)},
		Observer:  f.obs,
		SessionID: "sess-1",
	}
	if mutate != nil {
		mutate(&opts)
	}
	d, err := New(opts)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	f.d = d
	return f
}

func (f *fixture) lastSpoken(t *testing.T) string {
	t.Helper()
	spoken := f.synth.Spoken()
	if len(spoken) == 0 {
		t.Fatalf("expected something spoken")
	}
	return spoken[len(spoken)-1].Text
}

func TestDispatchTimeEnglish(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.d.Dispatch(context.Background(), "What time is it")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Language != lang.English {
		t.Fatalf("expected english, got %s", res.Language)
	}
	if res.Rule != "time" {
		t.Fatalf("expected time rule, got %s", res.Rule)
	}
	if res.Response != "The time is 2:30 PM" {
		t.Fatalf("unexpected response %q", res.Response)
	}
	if res.Effect != EffectNone || len(f.opener.Opened()) != 0 || len(f.sched.Delays()) != 0 {
		t.Fatalf("expected no navigation, got %+v opened=%v", res, f.opener.Opened())
	}
	if got := f.synth.Spoken()[0].Lang; got != "en-IN" {
		t.Fatalf("expected en-IN utterance, got %s", got)
	}
}

func TestDispatchFallbackSearchesWholeTranscript(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.d.Dispatch(context.Background(), "tell me about black holes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Matched || res.Rule != intent.FallbackName {
		t.Fatalf("expected fallback, got %+v", res)
	}
	if res.Response != "This is what I found on the internet, opening results…" {
		t.Fatalf("unexpected response %q", res.Response)
	}
	if res.Delay != time.Second {
		t.Fatalf("expected 1s delay, got %v", res.Delay)
	}
	if len(f.opener.Opened()) != 0 {
		t.Fatalf("expected open to be deferred")
	}
	f.sched.Advance(999 * time.Millisecond)
	if len(f.opener.Opened()) != 0 {
		t.Fatalf("expected open not before delay")
	}
	f.sched.Advance(time.Millisecond)
	opened := f.opener.Opened()
	if len(opened) != 1 {
		t.Fatalf("expected one open, got %v", opened)
	}
	u, _ := url.Parse(opened[0])
	if u.Host != "www.google.com" || u.Query().Get("q") != "tell me about black holes" {
		t.Fatalf("unexpected fallback url %s", opened[0])
	}
}

func TestDispatchFallbackHindi(t *testing.T) {
	f := newFixture(t, nil)
	res, _ := f.d.Dispatch(context.Background(), "मौसम कैसा है")
	if res.Language != lang.Hindi || res.Matched {
		t.Fatalf("expected hindi fallback, got %+v", res)
	}
	if res.Response != "इंटरनेट पर आपके प्रश्न के बारे में यह मिला, खोल रही हूँ…" {
		t.Fatalf("unexpected response %q", res.Response)
	}
}

func TestDispatchEmptyTranscriptSearchesEmpty(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.d.Dispatch(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Matched || res.URL != "https://www.google.com/search?q=" {
		t.Fatalf("expected empty fallback search, got %+v", res)
	}
}

func TestDispatchGenericSearch(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.d.Dispatch(context.Background(), "search for pizza recipes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Argument != "pizza recipes" {
		t.Fatalf("expected argument %q, got %q", "pizza recipes", res.Argument)
	}
	if res.Response != "Searching Google for pizza recipes" {
		t.Fatalf("unexpected response %q", res.Response)
	}
	if res.Delay != 800*time.Millisecond {
		t.Fatalf("expected 800ms delay, got %v", res.Delay)
	}
	if f.sched.Pending() != 1 {
		t.Fatalf("expected one pending open")
	}
	f.sched.Advance(800 * time.Millisecond)
	if got := f.opener.Opened(); len(got) != 1 || got[0] != "https://www.google.com/search?q=pizza%20recipes" {
		t.Fatalf("unexpected opened %v", got)
	}
}

func TestDispatchSearchTaskCancellable(t *testing.T) {
	f := newFixture(t, nil)
	res, _ := f.d.Dispatch(context.Background(), "find cheap flights")
	if res.Task == nil || !res.Task.Cancel() {
		t.Fatalf("expected cancellable deferred open")
	}
	f.sched.Advance(time.Second)
	if len(f.opener.Opened()) != 0 {
		t.Fatalf("expected cancelled open not to fire")
	}
}

func TestDispatchYouTubeSearch(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.d.Dispatch(context.Background(), "youtube search lofi beats")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opened := f.opener.Opened()
	if len(opened) != 1 {
		t.Fatalf("expected immediate open, got %v", opened)
	}
	u, err := url.Parse(opened[0])
	if err != nil {
		t.Fatalf("invalid url: %v", err)
	}
	if u.Query().Get("search_query") != "lofi beats" {
		t.Fatalf("unexpected query %q", u.Query().Get("search_query"))
	}
	if res.Response != "Searching YouTube for lofi beats" {
		t.Fatalf("unexpected response %q", res.Response)
	}
}

func TestDispatchWikipediaStripsFiller(t *testing.T) {
	f := newFixture(t, nil)
	res, _ := f.d.Dispatch(context.Background(), "wikipedia on black holes")
	if res.URL != "https://en.wikipedia.org/wiki/black%20holes" {
		t.Fatalf("unexpected url %s", res.URL)
	}
	res, _ = f.d.Dispatch(context.Background(), "wikipedia")
	if res.URL != "https://en.wikipedia.org/wiki/Main_Page" || res.Response != "Searching Wikipedia for home" {
		t.Fatalf("unexpected default wikipedia result %+v", res)
	}
}

func TestDispatchTranslateTargetsOtherLanguage(t *testing.T) {
	f := newFixture(t, nil)
	res, _ := f.d.Dispatch(context.Background(), "translate good morning")
	want := "https://translate.google.com/?sl=auto&tl=hi&text=good%20morning&op=translate"
	if res.URL != want {
		t.Fatalf("expected %s, got %s", want, res.URL)
	}
	if res.Response != "Opening Google Translate..." {
		t.Fatalf("unexpected response %q", res.Response)
	}
}

func TestDispatchHindiSiteOpen(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.d.Dispatch(context.Background(), "youtube kholo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Language != lang.Hindi || res.Response != "यूट्यूब खोल रही हूँ..." {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := f.opener.Opened(); len(got) != 1 || got[0] != "https://www.youtube.com/" {
		t.Fatalf("unexpected opened %v", got)
	}
	if got := f.synth.Spoken()[0].Lang; got != "hi-IN" {
		t.Fatalf("expected hi-IN utterance, got %s", got)
	}
}

func TestDispatchNewSpeechCancelsOld(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, _ = f.d.Dispatch(ctx, "open github")
	_, _ = f.d.Dispatch(ctx, "what time is it")
	for _, u := range f.synth.Spoken() {
		if u.Text == "<overlap>" {
			t.Fatalf("expected no overlapping speech")
		}
	}
	playing, ok := f.synth.Playing()
	if !ok || playing.Text != "The time is 2:30 PM" {
		t.Fatalf("expected only newest utterance audible, got %+v", playing)
	}
}

func TestDispatchBrowserInfo(t *testing.T) {
	f := newFixture(t, nil)
	res, _ := f.d.Dispatch(context.Background(), "browser info")
	if res.Response != "You are using Firefox." {
		t.Fatalf("unexpected response %q", res.Response)
	}

	f = newFixture(t, func(o *Options) { o.Device = &mock.Capabilities{} })
	res, _ = f.d.Dispatch(context.Background(), "browser info")
	if res.Response != "Browser info not available." {
		t.Fatalf("unexpected unavailable response %q", res.Response)
	}
}

func TestDispatchBatteryAsync(t *testing.T) {
	level := 0.8
	release := make(chan struct{})
	var mu sync.Mutex
	var async []Result
	f := newFixture(t, func(o *Options) {
		o.Device = &mock.Capabilities{Level: &level, Release: release}
		o.OnAsync = func(r Result) {
			mu.Lock()
			async = append(async, r)
			mu.Unlock()
		}
	})

	res, err := f.d.Dispatch(context.Background(), "battery")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Pending {
		t.Fatalf("expected pending battery result")
	}
	if len(f.synth.Spoken()) != 0 {
		t.Fatalf("expected nothing spoken before battery answers")
	}
	if f.d.State() != StateIdle {
		t.Fatalf("expected dispatcher idle while battery is pending")
	}

	close(release)
	f.d.Wait()
	if got := f.lastSpoken(t); got != "Battery is at 80 percent." {
		t.Fatalf("unexpected battery reply %q", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(async) != 1 || async[0].Pending || async[0].ID != res.ID {
		t.Fatalf("expected one completed async result, got %+v", async)
	}
	if got := f.obs.Named(metrics.EventBattery); len(got) != 1 || got[0].Failed() {
		t.Fatalf("expected one ok battery event, got %+v", got)
	}
}

func TestDispatchBatteryUnavailable(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Device = &mock.Capabilities{} })
	res, _ := f.d.Dispatch(context.Background(), "बैटरी")
	f.d.Wait()
	if res.Language != lang.Hindi {
		t.Fatalf("expected hindi")
	}
	if got := f.lastSpoken(t); got != "बैटरी जानकारी उपलब्ध नहीं है।" {
		t.Fatalf("unexpected unavailable reply %q", got)
	}
}

func TestDispatchBatteryNoDevice(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Device = nil })
	res, err := f.d.Dispatch(context.Background(), "battery level")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Pending || res.Response != "Battery info not available." {
		t.Fatalf("expected synchronous unavailable reply, got %+v", res)
	}
}

func TestDispatchJokeUsesPicker(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Pick = func(n int) int { return n - 1 } })
	res, _ := f.d.Dispatch(context.Background(), "tell a joke")
	if res.Response != intent.DefaultJokes[len(intent.DefaultJokes)-1] {
		t.Fatalf("unexpected joke %q", res.Response)
	}
}

func TestDispatchOpenFailureStillSpeaks(t *testing.T) {
	f := newFixture(t, nil)
	f.opener.OpenErr = errors.New("host gone")
	res, err := f.d.Dispatch(context.Background(), "open gmail")
	if !errorsx.HasReason(err, errorsx.ReasonNavigateOpen) {
		t.Fatalf("expected navigate_open reason, got %v", err)
	}
	if f.lastSpoken(t) != "Opening Gmail..." || res.Response != "Opening Gmail..." {
		t.Fatalf("expected reply spoken despite open failure")
	}
	events := f.obs.Named(metrics.EventDispatch)
	if len(events) != 1 || !events[0].Failed() {
		t.Fatalf("expected failed dispatch event, got %+v", events)
	}
}

// queuedScheduler holds every task, zero delays included, until flushed.
type queuedScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

func (q *queuedScheduler) After(_ time.Duration, fn func()) navigate.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, fn)
	return heldTask{}
}

type heldTask struct{}

func (heldTask) Cancel() bool { return false }

func (q *queuedScheduler) queued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func TestDispatchImmediateOpenSkipsScheduler(t *testing.T) {
	q := &queuedScheduler{}
	f := newFixture(t, func(o *Options) { o.Scheduler = q })
	f.opener.OpenErr = errors.New("host gone")

	_, err := f.d.Dispatch(context.Background(), "open gmail")
	if !errorsx.HasReason(err, errorsx.ReasonNavigateOpen) {
		t.Fatalf("expected immediate open error, got %v", err)
	}
	if q.queued() != 0 {
		t.Fatalf("expected immediate open to bypass the scheduler")
	}

	if _, err := f.d.Dispatch(context.Background(), "search for cats"); err != nil {
		t.Fatalf("deferred open should not fail dispatch: %v", err)
	}
	if q.queued() != 1 {
		t.Fatalf("expected deferred open to be scheduled, got %d", q.queued())
	}
}

type blockingSpeaker struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSpeaker) Speak(ctx context.Context, _ string, _ lang.Language) error {
	close(b.entered)
	<-b.release
	return nil
}

func TestDispatchBusyWhileDispatching(t *testing.T) {
	sp := &blockingSpeaker{entered: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(t, func(o *Options) { o.Speaker = sp })

	done := make(chan error, 1)
	go func() {
		_, err := f.d.Dispatch(context.Background(), "hello")
		done <- err
	}()
	<-sp.entered

	_, err := f.d.Dispatch(context.Background(), "what time is it")
	if !errors.Is(err, ErrBusy) || !errorsx.HasReason(err, errorsx.ReasonDispatchBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(sp.release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error from first dispatch: %v", err)
	}
	if f.d.State() != StateIdle {
		t.Fatalf("expected idle after dispatch")
	}
}

func TestStateListenerSeesTransitions(t *testing.T) {
	f := newFixture(t, nil)
	var seen []StateChange
	f.d.AddListener(StateListenerFunc(func(ev StateChange) { seen = append(seen, ev) }))
	_, _ = f.d.Dispatch(context.Background(), "hello")
	if len(seen) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(seen))
	}
	if seen[0].ToState != StateDispatching || seen[1].ToState != StateIdle {
		t.Fatalf("unexpected transitions %+v", seen)
	}
}

func TestDispatchRecordsMetrics(t *testing.T) {
	f := newFixture(t, nil)
	_, _ = f.d.Dispatch(context.Background(), "open github")
	events := f.obs.Named(metrics.EventDispatch)
	if len(events) != 1 {
		t.Fatalf("expected one dispatch event, got %d", len(events))
	}
	tags := events[0].Tags
	if tags[metrics.TagIntent] != "github" || tags[metrics.TagLanguage] != "english" || tags[metrics.TagSession] != "sess-1" {
		t.Fatalf("unexpected tags %v", tags)
	}
	if len(f.obs.Named(metrics.EventOpen)) != 1 {
		t.Fatalf("expected an open event")
	}
}

func TestGreet(t *testing.T) {
	f := newFixture(t, nil)
	text, err := f.d.Greet(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Good Afternoon Sir" || f.synth.Spoken()[0].Lang != "en-IN" {
		t.Fatalf("unexpected greeting %q", text)
	}
	cases := map[int]string{0: "Good Morning Sir", 11: "Good Morning Sir", 12: "Good Afternoon Sir", 15: "Good Afternoon Sir", 16: "Good Evening Sir", 23: "Good Evening Sir"}
	for hour, want := range cases {
		if got := Greeting(time.Date(2026, 1, 1, hour, 0, 0, 0, time.UTC)); got != want {
			t.Fatalf("hour %d: expected %q, got %q", hour, want, got)
		}
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{Opener: mock.NewOpener()}); err == nil {
		t.Fatalf("expected speaker required")
	}
	if _, err := New(Options{Speaker: speech.NewChannel(mock.NewSynthesizer())}); err == nil {
		t.Fatalf("expected opener required")
	}
}
