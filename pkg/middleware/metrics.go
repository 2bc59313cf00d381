package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/concierge-labs/member-qa/pkg/metrics"
)

// Metrics records request counts, latency, and the in-flight gauge for
// every request passing through.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			started := time.Now()
			next.ServeHTTP(rec, r)

			m.HTTPRequestsTotal.
				WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).
				Inc()
			m.HTTPRequestDuration.
				WithLabelValues(r.Method, r.URL.Path).
				Observe(time.Since(started).Seconds())
		})
	}
}

// statusRecorder remembers the first status code written. Implicit 200s
// from a bare Write are covered by the initial value.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	headerFixed bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.headerFixed {
		rec.status = code
		rec.headerFixed = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.headerFixed = true
	return rec.ResponseWriter.Write(b)
}
