// Package observability holds the prometheus registry and metric families for
// the trading service.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registryOnce sync.Once
	registry     *prometheus.Registry

	tradeMetricsOnce sync.Once
	tradeRegistry    *TradeMetrics
)

// Registry returns the process-wide prometheus registry shared by the engine
// counters and the gateway HTTP metrics.
func Registry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
	return registry
}

// TradeMetrics counts offer lifecycle outcomes and anomaly detections.
type TradeMetrics struct {
	OffersCreated       prometheus.Counter
	OffersCompleted     prometheus.Counter
	OffersCancelled     prometheus.Counter
	OffersExpired       prometheus.Counter
	IntegrityViolations prometheus.Counter
	FeesCollected       prometheus.Counter
}

// Trade returns the lazily-initialised trade metrics, registered on the shared
// registry.
func Trade() *TradeMetrics {
	tradeMetricsOnce.Do(func() {
		counter := func(name, help string) prometheus.Counter {
			return prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tradepost",
				Subsystem: "trade",
				Name:      name,
				Help:      help,
			})
		}
		tradeRegistry = &TradeMetrics{
			OffersCreated:       counter("offers_created_total", "Offers accepted into escrow."),
			OffersCompleted:     counter("offers_completed_total", "Offers settled between two actors."),
			OffersCancelled:     counter("offers_cancelled_total", "Offers cancelled with escrow returned."),
			OffersExpired:       counter("offers_expired_total", "Offers expired by the escrow timeout."),
			IntegrityViolations: counter("integrity_violations_total", "Offers rejected and cancelled after a checksum mismatch."),
			FeesCollected:       counter("fees_collected_total", "Currency units collected as settlement fees."),
		}
		Registry().MustRegister(
			tradeRegistry.OffersCreated,
			tradeRegistry.OffersCompleted,
			tradeRegistry.OffersCancelled,
			tradeRegistry.OffersExpired,
			tradeRegistry.IntegrityViolations,
			tradeRegistry.FeesCollected,
		)
	})
	return tradeRegistry
}
