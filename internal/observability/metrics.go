package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	enqueueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerlink",
			Subsystem: "session",
			Name:      "enqueue_total",
			Help:      "Messages queued for transmission.",
		},
		[]string{"session", "op"},
	)
	sentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerlink",
			Subsystem: "session",
			Name:      "sent_total",
			Help:      "Transmission attempts by result.",
		},
		[]string{"session", "result"},
	)
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerlink",
			Subsystem: "session",
			Name:      "dispatch_total",
			Help:      "Inbound message dispatches by outcome.",
		},
		[]string{"session", "outcome"},
	)
	timeoutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerlink",
			Subsystem: "session",
			Name:      "timeouts_total",
			Help:      "Expired envelopes by kind (send or response).",
		},
		[]string{"session", "kind"},
	)
	cancelTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerlink",
			Subsystem: "session",
			Name:      "cancel_total",
			Help:      "Cancellation attempts by where the envelope was found.",
		},
		[]string{"session", "where"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(enqueueTotal, sentTotal, dispatchTotal, timeoutTotal, cancelTotal)
	})
}

func RecordEnqueue(session, op string) {
	RegisterMetrics()
	enqueueTotal.WithLabelValues(session, op).Inc()
}

func RecordSent(session, result string) {
	RegisterMetrics()
	sentTotal.WithLabelValues(session, result).Inc()
}

func RecordDispatch(session, outcome string) {
	RegisterMetrics()
	dispatchTotal.WithLabelValues(session, outcome).Inc()
}

func RecordTimeout(session, kind string) {
	RegisterMetrics()
	timeoutTotal.WithLabelValues(session, kind).Inc()
}

func RecordCancel(session, where string) {
	RegisterMetrics()
	cancelTotal.WithLabelValues(session, where).Inc()
}
