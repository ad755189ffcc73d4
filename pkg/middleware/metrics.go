package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "hashsync").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "hashsync",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors of a server. It implements
// hashstate.Recorder.
type Metrics struct {
	hashWrites      *prometheus.CounterVec
	hashSkipped     prometheus.Counter
	popStates       prometheus.Counter
	popStateFanout  prometheus.Histogram
	listenerPanics  prometheus.Counter
	activeSessions  prometheus.Gauge
	events          *prometheus.CounterVec
	wsErrors        *prometheus.CounterVec
	bookmarks       *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with the configured registry.
// Registering twice with the same registry panics, as promauto does.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}

	return &Metrics{
		hashWrites:     counterVec("hash_writes_total", "History writes by mode", "mode"),
		hashSkipped:    counter("hash_writes_skipped_total", "Updates that left the fragment unchanged"),
		popStates:      counter("popstate_total", "Pop-state events dispatched"),
		listenerPanics: counter("listener_panics_total", "Recovered pop-state listener panics"),
		popStateFanout: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "popstate_listeners",
			Help:        "Listeners notified per pop-state event",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0, 1, 2, 4, 8, 16, 32},
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of active WebSocket sessions",
			ConstLabels: config.ConstLabels,
		}),
		events:    counterVec("events_total", "Client events by type", "type"),
		wsErrors:  counterVec("websocket_errors_total", "WebSocket errors by type", "type"),
		bookmarks: counterVec("bookmarks_total", "Bookmark operations by result", "op", "result"),
		requests:  counterVec("http_requests_total", "HTTP requests by route and status", "route", "method", "status"),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),
	}
}

// HashWritten implements hashstate.Recorder.
func (m *Metrics) HashWritten(replace bool) {
	mode := "push"
	if replace {
		mode = "replace"
	}
	m.hashWrites.WithLabelValues(mode).Inc()
}

// HashSkipped implements hashstate.Recorder.
func (m *Metrics) HashSkipped() {
	m.hashSkipped.Inc()
}

// PopStateDispatched implements hashstate.Recorder.
func (m *Metrics) PopStateDispatched(listeners int) {
	m.popStates.Inc()
	m.popStateFanout.Observe(float64(listeners))
}

// ListenerPanicked implements hashstate.Recorder.
func (m *Metrics) ListenerPanicked() {
	m.listenerPanics.Inc()
}

// SessionOpened records a new WebSocket session.
func (m *Metrics) SessionOpened() {
	m.activeSessions.Inc()
}

// SessionClosed records the end of a WebSocket session.
func (m *Metrics) SessionClosed() {
	m.activeSessions.Dec()
}

// Event records a client event by type name.
func (m *Metrics) Event(eventType string) {
	m.events.WithLabelValues(eventType).Inc()
}

// WebSocketError records a WebSocket error.
func (m *Metrics) WebSocketError(errorType string) {
	m.wsErrors.WithLabelValues(errorType).Inc()
}

// Bookmark records a bookmark operation ("save", "resolve") and whether it
// succeeded.
func (m *Metrics) Bookmark(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.bookmarks.WithLabelValues(op, result).Inc()
}

// Handler is HTTP middleware counting requests by chi route pattern.
// Requests that match no route are labeled "unmatched" to keep label
// cardinality bounded.
func (m *Metrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := routePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
