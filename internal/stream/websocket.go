package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/balhun/ISSTracker/internal/metrics"
)

const maxInboundMessage = 512

var upgrader = websocket.Upgrader{
	ReadBufferSize:    1024,
	WriteBufferSize:   4096,
	EnableCompression: false,
}

// HandleSceneWS serves the scene stream over WebSocket. Each scene is one
// text frame holding the same JSON as the SSE data lines. Inbound messages
// are read and discarded; a ping is sent after KeepaliveInterval of silence.
// GET /api/v1/ws/scene
func (h *Handler) HandleSceneWS(w http.ResponseWriter, r *http.Request) {
	ip, release, ok := h.admit(w, r, transportWebSocket)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		release()
		metrics.IncStreamErrors("upgrade_error")
		h.logger.Warn("websocket upgrade failed", "remote_ip", ip, "error", err)
		return
	}
	defer conn.Close()
	defer h.connected(r, ip, transportWebSocket, release)()

	// The read pump notices client close frames and dropped connections.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxInboundMessage)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	sub := h.hub.Subscribe()
	defer sub.Close()

	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-closed:
			return

		case data := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "transport", transportWebSocket, "remote_ip", ip, "error", err)
				return
			}
			metrics.IncStreamMessages(transportWebSocket)
			metrics.AddStreamBytes(transportWebSocket, int64(len(data)))
			keepalive.Reset(h.config.KeepaliveInterval)

		case <-keepalive.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "transport", transportWebSocket, "remote_ip", ip, "error", err)
				return
			}
		}
	}
}
