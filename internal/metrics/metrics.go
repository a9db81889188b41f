package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AssessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessments_submitted_total",
			Help: "Total number of scored assessments",
		},
		[]string{"grade"},
	)

	AssessmentAccuracy = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assessment_accuracy_percent",
			Help:    "Accuracy of scored assessments in percent",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"grade"},
	)

	ImportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bank_imports_total",
			Help: "Total number of question bank imports by outcome",
		},
		[]string{"status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		AssessmentsTotal,
		AssessmentAccuracy,
		ImportsTotal,
		RequestsTotal,
		RequestDuration,
	)
}

// ObserveAssessment records one scored submission.
func ObserveAssessment(grade string, accuracy int) {
	AssessmentsTotal.WithLabelValues(grade).Inc()
	AssessmentAccuracy.WithLabelValues(grade).Observe(float64(accuracy))
}

// ObserveImport records the outcome of a bank import.
func ObserveImport(status string) {
	ImportsTotal.WithLabelValues(status).Inc()
}

// Handler exposes the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument wraps a handler with request count and latency metrics.
func Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
