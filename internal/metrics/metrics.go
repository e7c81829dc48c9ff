package metrics

import (
	"bufio"
	"fmt"
	"net"
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
			Name: "isstracker_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isstracker_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	telemetryPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstracker_telemetry_polls_total",
			Help: "Telemetry fetches by result.",
		},
		[]string{"result"},
	)

	telemetryFetchSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "isstracker_telemetry_fetch_duration_seconds",
			Help:    "Telemetry fetch latency in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	telemetryAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "isstracker_telemetry_age_seconds",
			Help: "Seconds since the displayed telemetry snapshot was received.",
		},
	)

	orbitLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstracker_orbit_loads_total",
			Help: "Orbit computations by result.",
		},
		[]string{"result"},
	)

	orbitPoints = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "isstracker_orbit_points",
			Help: "Ground track points in the displayed orbit.",
		},
	)

	orbitSegments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "isstracker_orbit_segments",
			Help: "Polylines in the displayed orbit.",
		},
	)

	orbitSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "isstracker_orbit_skipped_samples_total",
			Help: "Orbit samples dropped because propagation was undefined.",
		},
	)

	orbitCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstracker_orbit_cache_lookups_total",
			Help: "Orbit cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	tleAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "isstracker_tle_epoch_age_seconds",
			Help: "Seconds since the epoch of the element set in use.",
		},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstracker_stream_connections_total",
			Help: "Stream connection events.",
		},
		[]string{"transport", "event"},
	)

	streamsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "isstracker_streams_active",
			Help: "Currently open scene streams.",
		},
		[]string{"transport"},
	)

	streamMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstracker_stream_messages_total",
			Help: "Scene messages sent to stream clients.",
		},
		[]string{"transport"},
	)

	streamBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstracker_stream_bytes_total",
			Help: "Bytes written to stream clients.",
		},
		[]string{"transport"},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstracker_stream_errors_total",
			Help: "Stream errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		telemetryPollsTotal,
		telemetryFetchSeconds,
		telemetryAgeSeconds,
		orbitLoadsTotal,
		orbitPoints,
		orbitSegments,
		orbitSkippedTotal,
		orbitCacheLookups,
		tleAgeSeconds,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTelemetryPoll counts a telemetry fetch and its latency.
func RecordTelemetryPoll(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	telemetryPollsTotal.WithLabelValues(result).Inc()
	telemetryFetchSeconds.Observe(d.Seconds())
}

// IncTelemetryDiscarded counts a fetch that completed after deactivation.
func IncTelemetryDiscarded() {
	telemetryPollsTotal.WithLabelValues("discarded").Inc()
}

// SetTelemetryAge sets the age of the displayed snapshot.
func SetTelemetryAge(seconds float64) {
	telemetryAgeSeconds.Set(seconds)
}

// RecordOrbitLoad counts an orbit computation and, on success, its shape.
func RecordOrbitLoad(points, segments, skipped int, err error) {
	if err != nil {
		orbitLoadsTotal.WithLabelValues("error").Inc()
		return
	}
	orbitLoadsTotal.WithLabelValues("success").Inc()
	orbitPoints.Set(float64(points))
	orbitSegments.Set(float64(segments))
	orbitSkippedTotal.Add(float64(skipped))
}

// RecordOrbitCacheLookup counts an orbit cache hit or miss.
func RecordOrbitCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	orbitCacheLookups.WithLabelValues(outcome).Inc()
}

// SetTLEAge sets the age of the element set epoch.
func SetTLEAge(seconds float64) {
	tleAgeSeconds.Set(seconds)
}

// IncStreamConnections counts a connect or disconnect on a transport (sse, websocket).
func IncStreamConnections(transport, event string) {
	streamConnectionsTotal.WithLabelValues(transport, event).Inc()
}

// IncStreamsActive increments the open stream gauge.
func IncStreamsActive(transport string) {
	streamsActive.WithLabelValues(transport).Inc()
}

// DecStreamsActive decrements the open stream gauge.
func DecStreamsActive(transport string) {
	streamsActive.WithLabelValues(transport).Dec()
}

// IncStreamMessages counts a scene message sent.
func IncStreamMessages(transport string) {
	streamMessagesTotal.WithLabelValues(transport).Inc()
}

// AddStreamBytes counts bytes written to a stream client.
func AddStreamBytes(transport string, n int64) {
	streamBytesTotal.WithLabelValues(transport).Add(float64(n))
}

// IncStreamErrors counts a stream error by reason.
func IncStreamErrors(reason string) {
	streamErrorsTotal.WithLabelValues(reason).Inc()
}

// knownRoutes are exact paths reported under their own label.
var knownRoutes = map[string]bool{
	"/":                     true,
	"/healthz":              true,
	"/readyz":               true,
	"/metrics":              true,
	"/app.js":               true,
	"/styles.css":           true,
	"/api/v1/telemetry":     true,
	"/api/v1/orbit":         true,
	"/api/v1/scene":         true,
	"/api/v1/scene.geojson": true,
	"/api/v1/stream/scene":  true,
	"/api/v1/ws/scene":      true,
}

// normalizeRoute maps a request path to a bounded label set so that bot
// traffic cannot blow up metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/") {
		return "other_api"
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

// Flush forwards to the wrapped writer so SSE works through the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack forwards to the wrapped writer so WebSocket upgrades work through
// the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
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
