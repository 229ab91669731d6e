package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
//
// It should be mounted at MetricsConfig.Path (typically "/metrics"):
//
//	collector := metrics.NewCollector(cfg, nil)
//	mux.Handle(cfg.Path, collector.Handler())
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			// Enable OpenMetrics encoding (preferred over Prometheus text format)
			EnableOpenMetrics: true,

			// Error handling
			ErrorHandling: promhttp.ContinueOnError,
		},
	)
}

// NewServer returns an HTTP server exposing the collector at path on addr.
// Each mount function may register further handlers on the same mux.
func (c *Collector) NewServer(addr, path string, mounts ...func(*http.ServeMux)) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, c.Handler())
	for _, mount := range mounts {
		mount(mux)
	}
	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}
