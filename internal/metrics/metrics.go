// Package metrics exposes Prometheus collectors for the lip-sync engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortex_lipsync_frames_total",
			Help: "Total number of frames produced, by source mode",
		},
		[]string{"source"},
	)

	SourceSwitches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortex_lipsync_source_switches_total",
			Help: "Total number of fallback cascade transitions",
		},
		[]string{"from", "to"},
	)

	UtterancesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortex_lipsync_utterances_total",
			Help: "Total number of utterances started",
		},
		[]string{"language", "mode"},
	)

	DecodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cortex_lipsync_decode_failures_total",
			Help: "Total number of audio clips that failed to decode",
		},
	)

	DecodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cortex_lipsync_decode_duration_seconds",
			Help:    "Audio decode latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	EngineState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cortex_lipsync_engine_state",
			Help: "Current engine state (0 idle, 1 driving, 2 draining)",
		},
	)

	FeedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cortex_lipsync_feed_clients",
			Help: "Number of connected frame feed clients",
		},
	)
)
