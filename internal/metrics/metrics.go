package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cyclelog",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cyclelog",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cyclelog",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	passes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cyclelog",
			Subsystem: "gamification",
			Name:      "passes_total",
			Help:      "Evaluation passes by outcome.",
		},
		[]string{"outcome"},
	)

	passDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cyclelog",
			Subsystem: "gamification",
			Name:      "pass_duration_seconds",
			Help:      "Duration of evaluation passes including persistence.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	questsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cyclelog",
			Subsystem: "gamification",
			Name:      "quests_completed_total",
			Help:      "Quests completed, by frequency.",
		},
		[]string{"frequency"},
	)

	achievementsUnlocked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cyclelog",
			Subsystem: "gamification",
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked.",
		},
	)

	levelUps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cyclelog",
			Subsystem: "gamification",
			Name:      "level_ups_total",
			Help:      "Level increases.",
		},
	)

	workerMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cyclelog",
			Subsystem: "worker",
			Name:      "messages_total",
			Help:      "Cycle events consumed, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		passes,
		passDuration,
		questsCompleted,
		achievementsUnlocked,
		levelUps,
		workerMessages,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// The route label is the chi route pattern, so path parameters do not
// explode cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// Pass outcomes.
const (
	OutcomeSaved      = "saved"
	OutcomeUnchanged  = "unchanged"
	OutcomeSaveFailed = "save_failed"
	OutcomeDegraded   = "degraded" // state could not be loaded, nothing saved
	OutcomeConflict   = "conflict" // lost every save race, nothing saved
	OutcomeError      = "error"
)

// RecordPass records one evaluation pass.
func RecordPass(outcome string, duration time.Duration) {
	passes.WithLabelValues(outcome).Inc()
	passDuration.Observe(duration.Seconds())
}

// RecordQuestCompleted counts one completed quest.
func RecordQuestCompleted(frequency string) {
	questsCompleted.WithLabelValues(frequency).Inc()
}

// RecordUnlocks counts newly unlocked achievements.
func RecordUnlocks(n int) {
	if n > 0 {
		achievementsUnlocked.Add(float64(n))
	}
}

// RecordLevelUp counts one level increase.
func RecordLevelUp() {
	levelUps.Inc()
}

// RecordWorkerMessage counts one consumed message by result.
func RecordWorkerMessage(result string) {
	workerMessages.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
