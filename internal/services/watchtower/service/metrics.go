package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var invocations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "watchtower_invocations_total",
	Help: "Resolve invocations by terminal state",
}, []string{"status"})

var records = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "watchtower_records_total",
	Help: "Offender records by terminal state",
}, []string{"status"})

var parseSkips = promauto.NewCounter(prometheus.CounterOpts{
	Name: "watchtower_parse_skipped_lines_total",
	Help: "Pasted lines that yielded no identifier",
})

var repeatSignals = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "watchtower_repeat_signals_total",
	Help: "Repeat detection results",
}, []string{"kind"})

var uploads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "watchtower_evidence_items_total",
	Help: "Evidence items by kind and outcome",
}, []string{"kind", "outcome"})

var uploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "watchtower_evidence_item_bytes",
	Help:    "Size of evidence items handed to the content host",
	Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
})

var destinations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "watchtower_destinations_total",
	Help: "Destination lookups by result and strategy",
}, []string{"result", "strategy"})

var scoring = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "watchtower_scoring_total",
	Help: "Scoring calls by status",
}, []string{"status"})

var persisted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "watchtower_infractions_recorded_total",
	Help: "Infraction writes by sink and status",
}, []string{"sink", "status"})
