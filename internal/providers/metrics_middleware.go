package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const unmatchedEndpoint = "unmatched"

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// MetricsMiddleware labels requests by chi route pattern so path parameters
// do not explode label cardinality. The route context is seeded here and
// reused by the chi mux downstream.
func MetricsMiddleware(metrics MetricsProviderInterface, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
		if !ok {
			rctx = chi.NewRouteContext()
			r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
		}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		endpoint := rctx.RoutePattern()
		if endpoint == "" {
			endpoint = unmatchedEndpoint
		}
		metrics.IncRequestsTotal(endpoint, sw.status)
		metrics.ObserveRequestDuration(endpoint, duration)
	})
}
