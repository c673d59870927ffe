// Package metrics provides Prometheus instrumentation for the generator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ImpressionsEmitted counts impressions handed to the sink by campaign.
	ImpressionsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsim_impressions_emitted_total",
		Help: "Total number of impressions emitted by campaign",
	}, []string{"campaign_id"})

	// ClicksEmitted counts clicks handed to the sink by campaign.
	ClicksEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsim_clicks_emitted_total",
		Help: "Total number of clicks emitted by campaign",
	}, []string{"campaign_id"})

	// CampaignBoost exposes the click-probability multiplier per campaign.
	CampaignBoost = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "adsim_campaign_boost",
		Help: "Current click probability boost by campaign",
	}, []string{"campaign_id"})

	// Phase is the 1-based index of the active anomaly phase.
	Phase = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "adsim_phase",
		Help: "Active anomaly phase (1-based)",
	})

	// TickLatency tracks time spent generating and publishing per tick.
	TickLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "adsim_tick_latency_seconds",
		Help:    "Latency of one generation tick in seconds",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	// ProduceErrors counts asynchronous delivery failures by topic.
	ProduceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsim_produce_errors_total",
		Help: "Total number of records the broker failed to acknowledge",
	}, []string{"topic"})

	// ConnectAttempts counts broker connection attempts by outcome.
	ConnectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsim_connect_attempts_total",
		Help: "Total number of broker connection attempts by outcome",
	}, []string{"outcome"})
)

// Handler returns the mux serving /metrics.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// ServeMetrics starts an HTTP server on the given address to serve
// Prometheus metrics at /metrics.
func ServeMetrics(addr string) *http.Server {
	server := &http.Server{
		Addr:    addr,
		Handler: Handler(),
	}
	go server.ListenAndServe()
	return server
}
