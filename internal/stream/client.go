package stream

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/balhun/ISSTracker/internal/metrics"
)

const (
	transportSSE       = "sse"
	transportWebSocket = "websocket"

	writeTimeout = 30 * time.Second
)

// sseClient writes events to one SSE connection.
type sseClient struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	logger  *slog.Logger

	messagesSent int64
	bytesSent    int64
}

func (c *sseClient) extendDeadline() {
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		c.logger.Debug("could not set write deadline", "error", err)
	}
}

// sendData writes an already encoded payload as "data: {json}\n\n".
func (c *sseClient) sendData(data []byte) error {
	c.extendDeadline()

	n, err := fmt.Fprintf(c.w, "data: %s\n\n", data)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	c.flusher.Flush()

	c.messagesSent++
	c.bytesSent += int64(n)
	metrics.IncStreamMessages(transportSSE)
	metrics.AddStreamBytes(transportSSE, int64(n))
	return nil
}

// sendRetry tells the browser how long to wait before reconnecting.
func (c *sseClient) sendRetry(ms int) error {
	c.extendDeadline()

	n, err := fmt.Fprintf(c.w, "retry: %d\n\n", ms)
	if err != nil {
		return fmt.Errorf("retry write: %w", err)
	}
	c.flusher.Flush()
	c.bytesSent += int64(n)
	metrics.AddStreamBytes(transportSSE, int64(n))
	return nil
}

// sendKeepalive writes an SSE comment line.
func (c *sseClient) sendKeepalive() error {
	c.extendDeadline()

	n, err := fmt.Fprint(c.w, ":\n\n")
	if err != nil {
		return fmt.Errorf("keepalive write: %w", err)
	}
	c.flusher.Flush()
	c.bytesSent += int64(n)
	metrics.AddStreamBytes(transportSSE, int64(n))
	return nil
}
