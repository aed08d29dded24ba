// Command dispatch runs transcripts through the dispatcher without a browser
// and prints what would be spoken and opened.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/harunnryd/vaani/pkg/adapters/tts"
	"github.com/harunnryd/vaani/pkg/device"
	"github.com/harunnryd/vaani/pkg/dispatcher"
	"github.com/harunnryd/vaani/pkg/intent"
	"github.com/harunnryd/vaani/pkg/lang"
	"github.com/harunnryd/vaani/pkg/logging"
	"github.com/harunnryd/vaani/pkg/metrics"
	"github.com/harunnryd/vaani/pkg/navigate"
	"github.com/harunnryd/vaani/pkg/speech"
	"github.com/harunnryd/vaani/pkg/vaani"
)

type printSynth struct{ w io.Writer }

func (p printSynth) Name() string { return "stdout" }

func (p printSynth) Speak(_ context.Context, u tts.Utterance) error {
	_, err := fmt.Fprintf(p.w, "speak [%s] %s\n", u.Lang, u.Text)
	return err
}

func (p printSynth) Cancel() error { return nil }

// printScheduler runs every open at once and reports the delay it skipped.
type printScheduler struct{ w io.Writer }

func (p printScheduler) After(d time.Duration, fn func()) navigate.Task {
	if d > 0 {
		fmt.Fprintf(p.w, "defer %s\n", d)
	}
	return navigate.TimerScheduler{}.After(0, fn)
}

func main() {
	configPath := flag.StringP("config", "c", "", "optional config file")
	text := flag.StringP("text", "t", "", "transcript to dispatch; reads stdin lines when empty")
	battery := flag.Float64("battery", -1, "battery level in [0,1]; negative means unavailable")
	agent := flag.String("user-agent", "vaani-cli", "reported user agent")
	logLevel := flag.StringP("log", "l", "warn", "log level")
	flag.Parse()

	cfg := vaani.DefaultConfig()
	if *configPath != "" {
		loaded, err := vaani.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	logger := logging.InitLogger(logging.ParseLevel(*logLevel), cfg.LogFormat)

	catalog := intent.DefaultCatalog()
	if cfg.Dispatch.CatalogPath != "" {
		c, err := intent.LoadCatalogFile(cfg.Dispatch.CatalogPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "catalog error:", err)
			os.Exit(1)
		}
		catalog = c
	}
	loc, err := cfg.Location()
	if err != nil {
		fmt.Fprintln(os.Stderr, "timezone error:", err)
		os.Exit(1)
	}

	caps := device.NewSnapshot()
	caps.SetUserAgent(*agent)
	caps.SetBattery(*battery, *battery >= 0)

	out := os.Stdout
	obs := metrics.NewMemoryObserver()
	d, err := dispatcher.New(dispatcher.Options{
		Catalog:  catalog,
		Detector: lang.NewDetector(cfg.Languages.HinglishHints...),
		Speaker: speech.NewChannel(printSynth{w: out},
			speech.WithVoice(tts.Voice{Rate: cfg.Voice.Rate, Pitch: cfg.Voice.Pitch, Volume: cfg.Voice.Volume}),
			speech.WithLogger(logger)),
		Opener: navigate.OpenerFunc(func(_ context.Context, url string) error {
			_, err := fmt.Fprintf(out, "open %s\n", url)
			return err
		}),
		Scheduler: printScheduler{w: out},
		Device:    caps,
		Clock:     device.SystemClock{Location: loc},
		Formats:   cfg.Formats(),
		Observer:  obs,
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "dispatcher error:", err)
		os.Exit(1)
	}

	ctx := context.Background()
	run := func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		res, err := d.Dispatch(ctx, line)
		d.Wait()
		fmt.Fprintf(out, "intent=%s language=%s matched=%t\n", res.Rule, res.Language, res.Matched)
		if err != nil {
			fmt.Fprintln(os.Stderr, "dispatch error:", err)
		}
	}

	if *text != "" {
		run(*text)
	} else {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			run(sc.Text())
		}
	}
	fmt.Fprintf(out, "dispatched=%d\n", len(obs.Named(metrics.EventDispatch)))
}
