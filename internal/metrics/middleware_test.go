package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/api/v1/projects/{projectID}/matches/rebuild", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"1", "2", "3"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/"+id+"/matches/rebuild", http.NoBody)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(
		"post", "/api/v1/projects/{projectID}/matches/rebuild", "200"))
	if got < 3 {
		t.Errorf("expected >= 3 requests under the route pattern, got %f", got)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/v1/analytics/top-vendors", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})
	r.Post("/api/v1/scheduler/runs", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	tests := []struct {
		method, label, path, status string
	}{
		{http.MethodGet, "get", "/api/v1/analytics/top-vendors", "200"},
		{http.MethodPost, "post", "/api/v1/scheduler/runs", "409"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, http.NoBody))
			if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.label, tc.path, tc.status)); v < 1 {
				t.Errorf("expected requests_total{status=%s} >= 1, got %f", tc.status, v)
			}
		})
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/no/such/7", http.NoBody))

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("get", unmatchedRoute, "404")); v < 1 {
		t.Errorf("expected unmatched 404 to be counted, got %f", v)
	}
	if v := testutil.ToFloat64(httpInFlight); v != 0 {
		t.Errorf("in-flight gauge = %f after request finished, want 0", v)
	}
}

func TestRouteLabel_WithoutChiContext(t *testing.T) {
	if got := routeLabel(context.Background()); got != unmatchedRoute {
		t.Errorf("routeLabel without chi context = %q, want %q", got, unmatchedRoute)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	Register()
	Register()

	RebuildsTotal.WithLabelValues("ok").Inc()
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "expanders360_rebuilds_total") {
		t.Error("expected expanders360_rebuilds_total in exposition")
	}
}
