// Package metrics records routed dispatches as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/registry"
)

// Config configures an Observer.
type Config struct {
	// Namespace prefixes every metric name. Default is "busroute".
	Namespace string

	// Registerer receives the collectors. Default is
	// prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// Buckets of the duration histogram. Default is prometheus.DefBuckets.
	Buckets []float64

	// Naming renders the message label. Default is registry.FullNaming,
	// which keeps same-named types of different packages apart.
	Naming registry.NamingStrategy
}

func (c Config) applyDefaults() Config {
	if c.Namespace == "" {
		c.Namespace = "busroute"
	}
	if c.Registerer == nil {
		c.Registerer = prometheus.DefaultRegisterer
	}
	if len(c.Buckets) == 0 {
		c.Buckets = prometheus.DefBuckets
	}
	if c.Naming == nil {
		c.Naming = registry.FullNaming
	}
	return c
}

// Observer implements busroute.Observer.
type Observer struct {
	dispatched *prometheus.CounterVec
	failed     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   *prometheus.GaugeVec
	naming     registry.NamingStrategy
}

// New creates an observer and registers its collectors.
func New(config Config) (*Observer, error) {
	config = config.applyDefaults()

	o := &Observer{
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "dispatched_total",
			Help:      "Messages dispatched by category, message type and mode.",
		}, []string{"category", "message", "mode"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "dispatch_failures_total",
			Help:      "Failed dispatches by category, message type, mode and reason.",
		}, []string{"category", "message", "mode", "reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent in the underlying bus.",
			Buckets:   config.Buckets,
		}, []string{"category", "mode"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "dispatches_in_flight",
			Help:      "Dispatches currently in the underlying bus.",
		}, []string{"category"}),
		naming: config.Naming,
	}

	for _, c := range []prometheus.Collector{o.dispatched, o.failed, o.duration, o.inFlight} {
		if err := config.Registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OnDispatch implements busroute.Observer.
func (o *Observer) OnDispatch(ctx context.Context, info busroute.DispatchInfo) context.Context {
	o.inFlight.WithLabelValues(info.Category.String()).Inc()
	return ctx
}

// OnComplete implements busroute.Observer.
func (o *Observer) OnComplete(_ context.Context, info busroute.DispatchInfo, err error, d time.Duration) {
	category, message, mode := info.Category.String(), o.naming.Name(info.Key), info.Mode.String()

	o.inFlight.WithLabelValues(category).Dec()
	o.dispatched.WithLabelValues(category, message, mode).Inc()
	o.duration.WithLabelValues(category, mode).Observe(d.Seconds())
	if err != nil {
		o.failed.WithLabelValues(category, message, mode, Reason(err)).Inc()
	}
}

// Reason classifies a dispatch error for the reason label.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, busroute.ErrNoHandler):
		return "no_handler"
	case errors.Is(err, busroute.ErrNotHandled):
		return "not_handled"
	case errors.Is(err, busroute.ErrAsyncBusNotConfigured), errors.Is(err, busroute.ErrSyncBusNotConfigured):
		return "bus_not_configured"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

var _ busroute.Observer = (*Observer)(nil)
