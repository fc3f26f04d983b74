package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP-level metrics shared by every route.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Identity-core metrics.
var (
	tokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_tokens_issued_total",
		Help: "Access tokens minted after successful logins.",
	})

	authnRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_authn_rejections_total",
			Help: "Bearer tokens rejected at authentication, by reason.",
		},
		[]string{"reason"},
	)

	authzRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_authz_rejections_total",
		Help: "Authenticated calls rejected by role or ownership policy.",
	})

	purposeConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_purpose_tokens_consumed_total",
			Help: "Verification/reset tokens consumed, by purpose.",
		},
		[]string{"purpose"},
	)

	purposeSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_purpose_tokens_swept_total",
		Help: "Expired verification/reset rows removed by the sweeper.",
	})
)

// Init registers all collectors in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		tokensIssuedTotal, authnRejectedTotal, authzRejectedTotal,
		purposeConsumedTotal, purposeSweptTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// TokenIssued counts a minted access token.
func TokenIssued() { tokensIssuedTotal.Inc() }

// AuthnRejected counts an authentication rejection ("invalid", "expired",
// "revoked", "missing").
func AuthnRejected(reason string) { authnRejectedTotal.WithLabelValues(reason).Inc() }

// AuthzRejected counts a policy rejection.
func AuthzRejected() { authzRejectedTotal.Inc() }

// PurposeTokenConsumed counts a consumed verification/reset token.
func PurposeTokenConsumed(purpose string) { purposeConsumedTotal.WithLabelValues(purpose).Inc() }

// PurposeTokensSwept counts rows removed by the background sweep.
func PurposeTokensSwept(n int64) { purposeSweptTotal.Add(float64(n)) }

// Instrument wraps a handler with in-flight, counter and latency metrics.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for metrics.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
