package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

const namespace = "livegate"

// Recorder holds the service's Prometheus collectors. It is also a session
// event sink.
type Recorder struct {
	registry *prometheus.Registry

	sessionEvents      *prometheus.CounterVec
	livenessConfidence *prometheus.HistogramVec
	authConfidence     *prometheus.HistogramVec
	sessions           *prometheus.GaugeVec
	requests           *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"type"}),
		livenessConfidence: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "liveness_confidence",
			Help:      "Confidence of evaluated liveness submissions.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"challenge_type", "outcome"}),
		authConfidence: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "authentication_score",
			Help:      "Fused authentication scores.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"outcome"}),
		sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Stored sessions by state, as of the last aggregation.",
		}, []string{"state"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.sessionEvents,
		r.livenessConfidence,
		r.authConfidence,
		r.sessions,
		r.requests,
		r.requestDuration,
	)
	return r
}

// Publish counts the event and records its confidence for evaluated
// submissions.
func (r *Recorder) Publish(_ context.Context, e domain.SessionEvent) {
	r.sessionEvents.WithLabelValues(string(e.Type)).Inc()

	switch e.Type {
	case domain.EventLivenessVerified:
		r.livenessConfidence.WithLabelValues(string(e.ChallengeType), "live").Observe(e.Confidence)
	case domain.EventLivenessFailed:
		r.livenessConfidence.WithLabelValues(string(e.ChallengeType), "not_live").Observe(e.Confidence)
	case domain.EventSessionAuthenticated:
		r.authConfidence.WithLabelValues("authenticated").Observe(e.Confidence)
	case domain.EventSessionAuthenticationFailed:
		r.authConfidence.WithLabelValues("rejected").Observe(e.Confidence)
	}
}

// ObserveRequest records one HTTP request. route is the registered route
// pattern, not the raw path.
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (r *Recorder) SetSessionStats(stats domain.SessionStats) {
	r.sessions.WithLabelValues("total").Set(float64(stats.Total))
	r.sessions.WithLabelValues("active").Set(float64(stats.Active))
	r.sessions.WithLabelValues("expired").Set(float64(stats.Expired))
	r.sessions.WithLabelValues("authenticated").Set(float64(stats.Authenticated))
	r.sessions.WithLabelValues("failed").Set(float64(stats.Failed))
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
