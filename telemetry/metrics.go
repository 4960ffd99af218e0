// Package telemetry provides Prometheus metrics and OpenTelemetry tracing for the relay.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal counts handled inbound messages by terminal state
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talktranslate_messages_total",
		Help: "Number of inbound messages handled, by outcome",
	}, []string{"outcome"})

	// CompletionRequests counts translation client operations by result
	CompletionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talktranslate_completion_requests_total",
		Help: "Number of detect/translate operations, by result",
	}, []string{"op", "result"})

	// Retries counts retry waits by failure kind
	Retries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talktranslate_retries_total",
		Help: "Number of retried completion calls, by failure kind",
	}, []string{"kind"})

	// TranslationDuration observes end to end translate time including retries
	TranslationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "talktranslate_translation_duration_seconds",
		Help:    "Translate operation duration seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveSince records the time since start in obs
func ObserveSince(obs prometheus.Observer, start time.Time) {
	if obs == nil {
		return
	}
	obs.Observe(time.Since(start).Seconds())
}
