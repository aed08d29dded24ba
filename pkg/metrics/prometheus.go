package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusObserver turns dispatch events into Prometheus series.
type PrometheusObserver struct {
	registry *prometheus.Registry
	commands *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	opens    *prometheus.CounterVec
	battery  *prometheus.CounterVec
	sessions prometheus.Gauge
}

// NewPrometheusObserver registers its collectors on a fresh registry.
func NewPrometheusObserver() *PrometheusObserver {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &PrometheusObserver{
		registry: reg,
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vaani_voice_commands_total",
			Help: "Voice commands dispatched, by intent, language and status.",
		}, []string{TagIntent, TagLanguage, TagStatus}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vaani_dispatch_seconds",
			Help:    "Time from transcript to effect scheduled.",
			Buckets: prometheus.DefBuckets,
		}, []string{TagCategory}),
		opens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vaani_opens_total",
			Help: "Destinations opened, by intent and status.",
		}, []string{TagIntent, TagStatus}),
		battery: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vaani_battery_queries_total",
			Help: "Asynchronous battery queries, by status.",
		}, []string{TagStatus}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vaani_active_sessions",
			Help: "Connected host sessions.",
		}),
	}
}

func (p *PrometheusObserver) RecordEvent(ev MetricsEvent) {
	status := ev.Tags[TagStatus]
	if status == "" {
		status = StatusOK
	}
	switch ev.Name {
	case EventDispatch:
		p.commands.WithLabelValues(ev.Tags[TagIntent], ev.Tags[TagLanguage], status).Inc()
		if ev.Value > 0 {
			p.latency.WithLabelValues(ev.Tags[TagCategory]).Observe(time.Duration(ev.Value).Seconds())
		}
	case EventOpen:
		p.opens.WithLabelValues(ev.Tags[TagIntent], status).Inc()
	case EventBattery:
		p.battery.WithLabelValues(status).Inc()
	case EventSessionStarted:
		p.sessions.Inc()
	case EventSessionEnded:
		p.sessions.Dec()
	}
}

// Registry exposes the underlying registry for gathering in tests.
func (p *PrometheusObserver) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *PrometheusObserver) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
