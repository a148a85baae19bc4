// Package metrics exposes capture and upload counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	Captures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "upscreen",
		Name:      "captures_total",
		Help:      "Capture attempts by mode and outcome.",
	}, []string{"mode", "outcome"})

	Uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "upscreen",
		Name:      "uploads_total",
		Help:      "Upload tasks by outcome.",
	}, []string{"outcome"})

	DeferredUploads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "upscreen",
		Name:      "uploads_deferred_total",
		Help:      "Upload requests deferred while the account check was running.",
	})

	FetchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "upscreen",
		Name:      "url_fetch_failures_total",
		Help:      "Clipboard URLs that could not be fetched as an image.",
	})
)

func init() {
	Registry.MustRegister(Captures, Uploads, DeferredUploads, FetchFailures)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
