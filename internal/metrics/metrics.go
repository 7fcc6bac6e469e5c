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
	BackendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quizdesk_backend_requests_total",
		Help: "Requests sent to the REST backend, by route and status.",
	}, []string{"method", "route", "status"})

	BackendLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quizdesk_backend_request_duration_seconds",
		Help:    "Latency of REST backend requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quizdesk_token_refresh_total",
		Help: "Access token refresh attempts, by result.",
	}, []string{"result"})

	QuizSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quizdesk_quiz_submissions_total",
		Help: "Quiz submission runs, by trigger (auto|manual) and result.",
	}, []string{"trigger", "result"})

	ActiveAttempts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quizdesk_quiz_attempts_active",
		Help: "Quiz attempts currently held in memory.",
	})

	LiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quizdesk_live_connections",
		Help: "Open websocket connections streaming session or quiz state.",
	})
)

func init() {
	prometheus.MustRegister(
		BackendRequests,
		BackendLatency,
		TokenRefreshes,
		QuizSubmissions,
		ActiveAttempts,
		LiveConnections,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBackend records one completed backend call. status 0 means the
// request never got a response.
func ObserveBackend(method, path string, status int, d time.Duration) {
	route := Route(path)
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	BackendRequests.WithLabelValues(method, route, code).Inc()
	BackendLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Route collapses numeric path segments so ids don't explode label cardinality.
func Route(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.Atoi(p); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
