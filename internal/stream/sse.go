// Package stream pushes composed map scenes to browsers. Clients connect via
// GET /api/v1/stream/scene (Server-Sent Events) or GET /api/v1/ws/scene
// (WebSocket) and receive the current scene immediately, then every scene
// the tracker publishes.
//
// SSE message format:
//
//	retry: 4211\n\n
//	data: {"generated_at":"...","base_map":{...},"marker":{...},...}\n\n
//
// Keep-alive comments (:\n\n) are sent after KeepaliveInterval of silence.
// Reconnecting clients get the current scene again on each connection.
package stream

import (
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/balhun/ISSTracker/internal/httputil"
	"github.com/balhun/ISSTracker/internal/metrics"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	KeepaliveInterval  time.Duration // Keep-alive interval (default: 30s).
	TrustProxy         bool          // Read client IP from X-Forwarded-For.
}

// DefaultConfig returns the streaming defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
	}
}

// Handler serves scene streams from a Hub.
type Handler struct {
	hub     *Hub
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a streaming handler. Zero config fields take defaults.
func NewHandler(hub *Hub, config Config, logger *slog.Logger) *Handler {
	def := DefaultConfig()
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = def.MaxConcurrentPerIP
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = def.KeepaliveInterval
	}
	return &Handler{
		hub:     hub,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

// admit enforces the per-IP limit and writes a 429 when it is exceeded. The
// returned release func gives the slot back.
func (h *Handler) admit(w http.ResponseWriter, r *http.Request, transport string) (ip string, release func(), ok bool) {
	ip = httputil.ClientIP(r, h.config.TrustProxy)
	release, ok = h.limiter.acquire(ip)
	if !ok {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"transport", transport,
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return ip, nil, false
	}
	return ip, release, true
}

// connected records connect metrics and returns the matching disconnect func.
func (h *Handler) connected(r *http.Request, ip, transport string, release func()) func() {
	metrics.IncStreamConnections(transport, "connect")
	metrics.IncStreamsActive(transport)

	start := time.Now()
	h.logger.Info("stream connected",
		"transport", transport,
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
	)

	return func() {
		release()
		metrics.IncStreamConnections(transport, "disconnect")
		metrics.DecStreamsActive(transport)
		h.logger.Info("stream disconnected",
			"transport", transport,
			"remote_ip", ip,
			"duration_seconds", int(time.Since(start).Seconds()),
		)
	}
}

// HandleScene serves the SSE scene stream.
// GET /api/v1/stream/scene
func (h *Handler) HandleScene(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ip, release, ok := h.admit(w, r, transportSSE)
	if !ok {
		return
	}
	defer h.connected(r, ip, transportSSE, release)()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Long-lived stream: clear the server WriteTimeout, then extend per write.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &sseClient{w: w, flusher: flusher, rc: rc, logger: h.logger}

	// Jittered 3-7s retry spreads reconnects after a restart.
	if err := c.sendRetry(3000 + rand.Intn(4000)); err != nil {
		metrics.IncStreamErrors("send_error")
		return
	}

	sub := h.hub.Subscribe()
	defer sub.Close()

	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case data := <-sub.C:
			if err := c.sendData(data); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "transport", transportSSE, "remote_ip", ip, "error", err)
				return
			}
			keepalive.Reset(h.config.KeepaliveInterval)

		case <-keepalive.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "transport", transportSSE, "remote_ip", ip, "error", err)
				return
			}
		}
	}
}
