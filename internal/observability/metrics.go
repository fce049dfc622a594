// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	BlocksProcessed       prometheus.Counter
	TransactionsQualified prometheus.Counter
	SwapsClassified       prometheus.Counter
	HighestSlotSeen       prometheus.Gauge
	WSReconnects          prometheus.Counter

	// Pricing metrics
	PricesConverted prometheus.Counter
	PricesDeferred  prometheus.Counter
	PendingMetadata prometheus.Gauge
	MetadataBatches *prometheus.CounterVec

	// Aggregation metrics
	CandlesWritten *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dex_candles"
	}

	return &Metrics{
		BlocksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "blocks_processed_total",
			Help:      "Total number of blocks processed",
		}),
		TransactionsQualified: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "transactions_qualified_total",
			Help:      "Total number of pool-touching transactions qualified",
		}),
		SwapsClassified: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "swaps_classified_total",
			Help:      "Total number of swaps extracted from qualified transactions",
		}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "highest_slot_seen",
			Help:      "Highest Cardano slot number processed",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chainsync",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnect attempts",
		}),

		PricesConverted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "prices_converted_total",
			Help:      "Total number of swaps converted to decimal prices",
		}),
		PricesDeferred: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "prices_deferred_total",
			Help:      "Total number of swaps buffered awaiting token metadata",
		}),
		PendingMetadata: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "pending_metadata_swaps",
			Help:      "Current number of buffered swaps with unresolved metadata",
		}),
		MetadataBatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "metadata_batches_total",
			Help:      "Total number of token-registry batch lookups by status",
		}, []string{"status"}),

		CandlesWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "candles",
			Name:      "written_total",
			Help:      "Total number of candles written by resolution",
		}, []string{"resolution"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBlockProcessed records one processed block.
func RecordBlockProcessed(slot int64) {
	DefaultMetrics.BlocksProcessed.Inc()
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// RecordTransactionsQualified adds to the qualified transaction counter.
func RecordTransactionsQualified(n int) {
	DefaultMetrics.TransactionsQualified.Add(float64(n))
}

// RecordSwapsClassified adds to the classified swap counter.
func RecordSwapsClassified(n int) {
	DefaultMetrics.SwapsClassified.Add(float64(n))
}

// RecordReconnect increments the WebSocket reconnect counter.
func RecordReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordPricesConverted adds to the converted price counter.
func RecordPricesConverted(n int) {
	DefaultMetrics.PricesConverted.Add(float64(n))
}

// RecordPricesDeferred adds to the deferred swap counter.
func RecordPricesDeferred(n int) {
	DefaultMetrics.PricesDeferred.Add(float64(n))
}

// SetPendingMetadata updates the metadata buffer gauge.
func SetPendingMetadata(n int) {
	DefaultMetrics.PendingMetadata.Set(float64(n))
}

// RecordMetadataBatch records one token-registry batch lookup.
func RecordMetadataBatch(status string) {
	DefaultMetrics.MetadataBatches.WithLabelValues(status).Inc()
}

// RecordCandlesWritten adds to the per-resolution candle counter.
func RecordCandlesWritten(resolution string, n int) {
	DefaultMetrics.CandlesWritten.WithLabelValues(resolution).Add(float64(n))
}
