// Package middleware provides the observability layer of the hashsync
// server: Prometheus metrics and OpenTelemetry tracing.
//
// # Prometheus Metrics
//
// Metrics implements hashstate.Recorder, so every provider reports its
// writes, skipped writes, pop-state dispatches and listener panics:
//
//	m := middleware.NewMetrics(middleware.WithNamespace("geoportal"))
//	provider, err := hashstate.New(loc, hashstate.WithRecorder(m))
//
// The HTTP middleware counts requests by route pattern and status:
//
//	r := chi.NewRouter()
//	r.Use(m.Handler)
//	r.Handle("/metrics", promhttp.Handler())
//
// Metrics collected (default namespace "hashsync"):
//   - hashsync_hash_writes_total: history writes by mode (push, replace)
//   - hashsync_hash_writes_skipped_total: updates that left the URL unchanged
//   - hashsync_popstate_total: pop-state events dispatched to listeners
//   - hashsync_listener_panics_total: recovered listener panics
//   - hashsync_active_sessions: connected WebSocket sessions
//   - hashsync_events_total: client events by type
//   - hashsync_websocket_errors_total: WebSocket errors by type
//   - hashsync_bookmarks_total: bookmark operations by result
//   - hashsync_http_requests_total / hashsync_http_request_duration_seconds
//
// # OpenTelemetry
//
// OpenTelemetry wraps HTTP handlers in server spans named after the chi
// route pattern. The tracer comes from the global provider, so configure
// it before starting the server:
//
//	otel.SetTracerProvider(tp)
//	r.Use(middleware.OpenTelemetry())
package middleware
