package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/harunnryd/vaani/pkg/device"
	"github.com/harunnryd/vaani/pkg/errorsx"
	"github.com/harunnryd/vaani/pkg/intent"
	"github.com/harunnryd/vaani/pkg/metrics"
)

const unknownValue = "unknown"

func (d *Dispatcher) compute(ctx context.Context, rule intent.Rule, res *Result) error {
	switch rule.Action.Compute {
	case intent.ComputeTime:
		return d.sayValue(ctx, rule, res, d.clock.Now().Format(d.formats.Time))
	case intent.ComputeDate:
		return d.sayValue(ctx, rule, res, d.clock.Now().Format(d.formats.Date))
	case intent.ComputeWeekday:
		return d.sayValue(ctx, rule, res, d.clock.Now().Format(d.formats.Weekday))
	case intent.ComputeUserAgent:
		return d.userAgent(ctx, rule, res)
	case intent.ComputeBattery:
		return d.battery(ctx, rule, res)
	case intent.ComputeJoke:
		choices := rule.Action.Choices
		if len(choices) == 0 {
			return fmt.Errorf("%s: no choices", rule.Name)
		}
		res.Response = choices[d.pick(len(choices))]
		return d.say(ctx, res.Response, res.Language)
	default:
		return fmt.Errorf("unsupported compute %q", string(rule.Action.Compute))
	}
}

func (d *Dispatcher) sayValue(ctx context.Context, rule intent.Rule, res *Result, value string) error {
	res.Argument = value
	res.Response = rule.Reply.Render(res.Language, value)
	return d.say(ctx, res.Response, res.Language)
}

func (d *Dispatcher) userAgent(ctx context.Context, rule intent.Rule, res *Result) error {
	if d.device == nil {
		return d.sayUnavailable(ctx, rule, res, device.ErrUnavailable)
	}
	ua, err := d.device.UserAgent(ctx)
	if err != nil {
		return d.sayUnavailable(ctx, rule, res, err)
	}
	return d.sayValue(ctx, rule, res, ua)
}

func (d *Dispatcher) sayUnavailable(ctx context.Context, rule intent.Rule, res *Result, cause error) error {
	d.logger.Info("capability_unavailable",
		"intent", rule.Name,
		"reason", errorsx.ReasonCapabilityUnavailable,
		"error", cause,
	)
	if rule.Action.Unavailable.IsZero() {
		return d.sayValue(ctx, rule, res, unknownValue)
	}
	res.Response = rule.Action.Unavailable.For(res.Language)
	return d.say(ctx, res.Response, res.Language)
}

// battery answers asynchronously. With no capability source at all the
// unavailable reply is spoken right away.
func (d *Dispatcher) battery(ctx context.Context, rule intent.Rule, res *Result) error {
	if d.device == nil {
		d.recordBattery(metrics.StatusError)
		return d.sayUnavailable(ctx, rule, res, device.ErrUnavailable)
	}
	res.Pending = true
	snapshot := *res
	snapshot.Task = nil

	d.async.Add(1)
	go func() {
		defer d.async.Done()
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.batteryTimeout)
		defer cancel()

		final := snapshot
		final.Pending = false
		level, err := d.device.Battery(bctx)
		var speakErr error
		if err != nil {
			d.recordBattery(metrics.StatusError)
			speakErr = d.sayUnavailable(bctx, rule, &final, err)
		} else {
			d.recordBattery(metrics.StatusOK)
			speakErr = d.sayValue(bctx, rule, &final, strconv.Itoa(device.BatteryPercent(level)))
		}
		if speakErr != nil {
			d.logger.Warn("battery_reply_failed", "dispatch_id", final.ID, "reason", errorsx.Reason(speakErr), "error", speakErr)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			d.logger.Warn("battery_query_timeout", "dispatch_id", final.ID, "timeout", d.batteryTimeout)
		}
		if d.onAsync != nil {
			d.onAsync(final)
		}
	}()
	return nil
}

func (d *Dispatcher) recordBattery(status string) {
	d.record(metrics.EventBattery, 1, map[string]string{metrics.TagStatus: status})
}
