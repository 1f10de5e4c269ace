package metrics

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute labels requests chi could not route, keeping raw paths out of label values.
const unmatchedRoute = "unmatched"

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "API requests currently being served",
	})

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API latency per chi route pattern",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 30},
		},
		[]string{"method", "route"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests per chi route pattern and response code",
		},
		[]string{"method", "route", "code"},
	)
)

func init() {
	prometheus.MustRegister(httpInFlight, httpRequestDuration, httpRequestsTotal)
}

// Middleware instruments the API with promhttp, labelling by route pattern rather than path,
// so /projects/7 and /projects/8 share a series. Mount it with Use on the root chi router.
func Middleware() func(next http.Handler) http.Handler {
	byRoute := promhttp.WithLabelFromCtx("route", routeLabel)
	return func(next http.Handler) http.Handler {
		counted := promhttp.InstrumentHandlerCounter(httpRequestsTotal, next, byRoute)
		timed := promhttp.InstrumentHandlerDuration(httpRequestDuration, counted, byRoute)
		return promhttp.InstrumentHandlerInFlight(httpInFlight, timed)
	}
}

// routeLabel reads the pattern chi matched; it is complete only after the handler ran.
func routeLabel(ctx context.Context) string {
	rctx := chi.RouteContext(ctx)
	if rctx == nil {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}
