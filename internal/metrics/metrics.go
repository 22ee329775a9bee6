package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "ata"

var (
	registerOnce sync.Once

	httpRequestDuration *prometheus.HistogramVec
	evaluationWrites    *prometheus.CounterVec
	cacheLookups        *prometheus.CounterVec
)

// MustRegister initializes the Prometheus collectors. Call once at startup;
// repeated calls are no-ops.
func MustRegister() {
	registerOnce.Do(func() {
		httpRequestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route, method and status.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		)
		evaluationWrites = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auditlog",
				Name:      "evaluation_writes_total",
				Help:      "Evaluation mutations against the audit log, by operation and result.",
			},
			[]string{"operation", "result"},
		)
		cacheLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Analytics cache lookups by outcome.",
			},
			[]string{"outcome"},
		)

		prometheus.MustRegister(httpRequestDuration, evaluationWrites, cacheLookups)
		registerRuntimeCollectors()
	})
}

// RecordEvaluationWrite counts an upsert or delete against the audit log.
func RecordEvaluationWrite(operation, result string) {
	if evaluationWrites == nil {
		return
	}
	evaluationWrites.WithLabelValues(normalizeLabel(operation, "unknown"), normalizeLabel(result, "unknown")).Inc()
}

// RecordCacheLookup counts a cache hit, miss or error.
func RecordCacheLookup(outcome string) {
	if cacheLookups == nil {
		return
	}
	cacheLookups.WithLabelValues(normalizeLabel(outcome, "unknown")).Inc()
}

// Middleware observes request latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpRequestDuration == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		httpRequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
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

func normalizeLabel(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func registerRuntimeCollectors() {
	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			panic(err)
		}
	}
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			panic(err)
		}
	}
}
