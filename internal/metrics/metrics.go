// Package metrics exports event bus activity to prometheus.
package metrics

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/relay/internal/event"
)

// Error kinds used as the "kind" label of errors_total.
const (
	KindHandler = "handler"
	KindPanic   = "panic"
	KindTimeout = "timeout"
	KindOther   = "other"
)

// Collector counts bus actions and failures.
type Collector struct {
	actions       *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	errors        *prometheus.CounterVec
	subscriptions prometheus.Gauge
	lastCycle     prometheus.Gauge
}

// New registers the bus metrics with reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		actions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "actions_total",
				Help:      "The total number of inspected bus actions",
			},
			[]string{"action"},
		),
		deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "deliveries_total",
				Help:      "The total number of subscriber invocations",
			},
			[]string{"subscriber"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "errors_total",
				Help:      "The total number of reported subscriber failures and request timeouts",
			},
			[]string{"kind"},
		),
		subscriptions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "subscriptions",
				Help:      "The number of registered subscriptions",
			},
		),
		lastCycle: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "last_cycle_id",
				Help:      "The cycle id of the most recent publish",
			},
		),
	}
}

// Inspect records one bus action. Its method value is an event.Inspector.
func (c *Collector) Inspect(a event.Action) {
	c.actions.WithLabelValues(string(a.Kind)).Inc()

	switch a.Kind {
	case event.ActionSubscribe:
		c.subscriptions.Inc()
	case event.ActionUnsubscribe:
		c.subscriptions.Dec()
	case event.ActionPublish:
		c.lastCycle.Set(float64(a.CycleID))
	case event.ActionDeliver:
		c.deliveries.WithLabelValues(a.Target).Inc()
	}
}

// WrapErrorHandler counts every report before passing it to next.
func (c *Collector) WrapErrorHandler(next event.ErrorHandler) event.ErrorHandler {
	return func(r event.ErrorReport) {
		c.errors.WithLabelValues(errorKind(r.Err)).Inc()
		if next != nil {
			next(r)
		}
	}
}

// errorKind classifies a report error.
func errorKind(err error) string {
	var handlerErr *event.HandlerError
	switch {
	case errors.Is(err, event.ErrRequestTimeout):
		return KindTimeout
	case errors.Is(err, event.ErrHandlerPanic):
		return KindPanic
	case errors.As(err, &handlerErr):
		return KindHandler
	default:
		return KindOther
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
