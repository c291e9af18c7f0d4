package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slrgo_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slrgo_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	predictionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slrgo_prediction_duration_seconds",
			Help:    "Duration of one prediction series generation.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	predictionRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slrgo_prediction_records_total",
			Help: "Total pointing records produced.",
		},
	)

	predictionSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slrgo_prediction_skipped_steps_total",
			Help: "Total prediction steps skipped for out-of-range or non-converging epochs.",
		},
	)

	ephemerisTargets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "slrgo_ephemeris_targets",
			Help: "Number of targets in the loaded CPF dataset.",
		},
	)

	ephemerisAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "slrgo_ephemeris_age_seconds",
			Help: "Age of the loaded CPF dataset in seconds.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(predictionDuration)
	prometheus.MustRegister(predictionRecordsTotal)
	prometheus.MustRegister(predictionSkippedTotal)
	prometheus.MustRegister(ephemerisTargets)
	prometheus.MustRegister(ephemerisAgeSeconds)
}

// RecordPrediction records the outcome of one generation run.
func RecordPrediction(duration time.Duration, produced, skipped int) {
	predictionDuration.Observe(duration.Seconds())
	predictionRecordsTotal.Add(float64(produced))
	predictionSkippedTotal.Add(float64(skipped))
}

// SetEphemerisTargets updates the loaded-target count gauge.
func SetEphemerisTargets(n int) {
	ephemerisTargets.Set(float64(n))
}

// SetEphemerisAge updates the dataset age gauge.
func SetEphemerisAge(seconds float64) {
	ephemerisAgeSeconds.Set(seconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// knownRoutes are the exact paths served by the API. Anything else is
// collapsed to "other" to bound label cardinality against scanners.
var knownRoutes = map[string]bool{
	"/":                 true,
	"/healthz":          true,
	"/readyz":           true,
	"/metrics":          true,
	"/api/v1/targets":   true,
	"/api/v1/predict":   true,
	"/api/v1/passes":    true,
	"/api/v1/cpf/fetch": true,
}

// normalizeRoute maps a request path to a bounded metric label.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/targets/") {
		return "/api/v1/targets/{name}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
