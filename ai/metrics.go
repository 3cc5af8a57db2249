package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yejingram_ai_requests_total",
			Help: "Total number of provider calls by provider and outcome.",
		},
		[]string{"provider", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yejingram_ai_request_duration_seconds",
			Help:    "Latency of provider calls.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
		},
		[]string{"provider"},
	)

	promptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yejingram_ai_prompt_tokens",
			Help:    "Counted prompt tokens of the payload that was sent.",
			Buckets: prometheus.ExponentialBuckets(256, 2, 10),
		},
		[]string{"provider"},
	)

	trimEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yejingram_ai_trim_evictions_total",
		Help: "Total number of history messages dropped to fit the context budget.",
	})

	echoRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yejingram_ai_echo_retries_total",
		Help: "Total number of replies discarded for repeating another participant.",
	})
)
