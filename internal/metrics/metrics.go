// Package metrics registers the Prometheus instruments for the customer
// wizard. Everything is registered on the default registry; Handler exposes
// it for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SubmissionsTotal counts shipment submissions by outcome
	// (created, rejected, failed).
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipdesk_submissions_total",
		Help: "Shipment submissions by outcome.",
	}, []string{"outcome"})

	// CBMFailuresTotal counts failed volumetric recomputes. The wizard keeps
	// going with cbm 0, so this counter is the only place failures surface.
	CBMFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipdesk_cbm_recompute_failures_total",
		Help: "Failed backend CBM recomputes (parcel kept cbm 0).",
	})

	// LabelPollsTotal counts label polling runs by outcome
	// (found, exhausted, cancelled, error).
	LabelPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipdesk_label_polls_total",
		Help: "Label polling runs by outcome.",
	}, []string{"outcome"})

	// BackendRequestDuration observes backend round-trip latency per
	// operation.
	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shipdesk_backend_request_duration_seconds",
		Help:    "Backend API request latency by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// Handler returns the scrape endpoint for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
