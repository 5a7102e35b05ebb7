// Package metrics exposes the pipeline's Prometheus instrumentation on
// the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ChunksProduced counts chunks delivered to consumers across all
	// blocks.
	ChunksProduced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamtotext_chunks_produced_total",
		Help: "Total number of audio chunks delivered to consumers",
	})

	// ChunksDropped counts chunks dropped at the producer queue
	// boundary because the consumer lagged behind the capture device.
	ChunksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamtotext_chunks_dropped_total",
		Help: "Total number of audio chunks dropped at the capture queue",
	})

	// SquelchTriggers counts silent-to-triggered transitions.
	SquelchTriggers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamtotext_squelch_triggers_total",
		Help: "Total number of squelch trigger events",
	})

	// BlocksEmitted counts gated blocks handed to downstream consumers.
	BlocksEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamtotext_blocks_emitted_total",
		Help: "Total number of audio blocks emitted by the squelch gate",
	})

	// SquelchLevel reports the currently configured squelch threshold.
	SquelchLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamtotext_squelch_level",
		Help: "Currently configured squelch RMS threshold",
	})
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
