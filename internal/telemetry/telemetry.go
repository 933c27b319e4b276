// Package telemetry registers the Prometheus metrics exposed on /metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts chat queries by classified intent.
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "friday",
		Name:      "queries_total",
		Help:      "Chat queries processed, labeled by intent.",
	}, []string{"intent"})

	// ProviderFailuresTotal counts chat provider failures by provider name.
	ProviderFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "friday",
		Name:      "provider_failures_total",
		Help:      "Chat completion provider failures.",
	}, []string{"provider"})

	// AnswerLatency observes end-to-end answer latency in seconds.
	AnswerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "friday",
		Name:      "answer_latency_seconds",
		Help:      "End-to-end chat answer latency.",
		Buckets:   prometheus.DefBuckets,
	})

	// IndexedDocumentsTotal counts documents pushed through the indexer.
	IndexedDocumentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "friday",
		Name:      "indexed_documents_total",
		Help:      "Documents chunked, embedded and upserted.",
	})
)
