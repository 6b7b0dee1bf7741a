// Package metrics exposes prometheus instruments for the chat pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatRequests counts chat completions by terminal outcome
	// (ok, invalid, rate_limited, forbidden, config_error, stream_error, error).
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_chat_requests_total",
		Help: "Chat completion requests by outcome.",
	}, []string{"outcome"})

	// RateLimitDenials counts denied unauthenticated requests.
	RateLimitDenials = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_rate_limit_denials_total",
		Help: "Requests denied by the daily free quota.",
	})

	// TitleGenerations counts title generation results (ok, empty, error).
	TitleGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_title_generations_total",
		Help: "Title generation attempts by result.",
	}, []string{"result"})

	// StreamDuration observes time from stream open to finish.
	StreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_stream_duration_seconds",
		Help:    "Duration of completion streams.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)
