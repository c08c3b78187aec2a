package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are the bus's Prometheus instruments. The teacher's own
// EventBus tracked dispatch/drop/error counts by hand (atomic counters);
// here they are exported instead, since the engine wires a real metrics
// registry.
type metrics struct {
	dispatched *prometheus.CounterVec
	deduped    *prometheus.CounterVec
	handled    *prometheus.CounterVec
	errors     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		dispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "squad_engine",
			Subsystem: "bus",
			Name:      "messages_dispatched_total",
			Help:      "Messages enqueued onto a bus pool, by pool.",
		}, []string{"pool"}),
		deduped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "squad_engine",
			Subsystem: "bus",
			Name:      "messages_deduped_total",
			Help:      "Messages dropped because their key was already pending, by pool.",
		}, []string{"pool"}),
		handled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "squad_engine",
			Subsystem: "bus",
			Name:      "messages_handled_total",
			Help:      "Messages that finished running their handlers, by pool.",
		}, []string{"pool"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "squad_engine",
			Subsystem: "bus",
			Name:      "handler_errors_total",
			Help:      "Handler errors and panics observed while processing messages, by pool.",
		}, []string{"pool"}),
	}
}

// NewRegistry is a small convenience wrapper so callers that just want a
// fresh registry for a Bus don't need to import the prometheus package
// directly.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}
