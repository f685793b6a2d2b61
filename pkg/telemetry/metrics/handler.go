package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxScrapesInFlight bounds concurrent scrapes; extra scrapers get 503.
const maxScrapesInFlight = 4

// Handler serves the collector's registry. OpenMetrics is negotiated when
// the scraper asks for it, and a failing collector yields a partial scrape
// rather than an error page. Scrape errors are counted on the same registry
// as promhttp_metric_handler_errors_total.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics:   true,
		ErrorHandling:       promhttp.ContinueOnError,
		Registry:            c.registry,
		MaxRequestsInFlight: maxScrapesInFlight,
	})
}
