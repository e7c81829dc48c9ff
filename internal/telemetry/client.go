package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultURL is the position endpoint for the ISS (NORAD 25544).
const DefaultURL = "https://api.wheretheiss.at/v1/satellites/25544"

const maxBodyBytes = 64 * 1024

// ErrUnexpectedStatus is returned for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected status code")

var tracer = otel.Tracer("github.com/balhun/ISSTracker/internal/telemetry")

// Fetcher returns the current snapshot. Client implements it; tests and the
// poller depend only on this method.
type Fetcher interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// Client fetches snapshots from the telemetry service.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a Client for url. A nil httpClient gets a 10s timeout.
func NewClient(url string, httpClient *http.Client) *Client {
	if url == "" {
		url = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{url: url, httpClient: httpClient}
}

// URL returns the configured endpoint.
func (c *Client) URL() string {
	return c.url
}

// wireSnapshot mirrors the service response. Pointers distinguish missing
// fields from zero values.
type wireSnapshot struct {
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Altitude   *float64 `json:"altitude"`
	Velocity   *float64 `json:"velocity"`
	Visibility string   `json:"visibility"`
	Footprint  float64  `json:"footprint"`
	Timestamp  int64    `json:"timestamp"`
}

// Fetch performs one request and decodes the snapshot.
func (c *Client) Fetch(ctx context.Context) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "telemetry.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url.full", c.url))

	snap, err := c.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return snap, err
}

func (c *Client) fetch(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetching telemetry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Snapshot{}, fmt.Errorf("%w %d from %s", ErrUnexpectedStatus, resp.StatusCode, c.url)
	}

	var w wireSnapshot
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&w); err != nil {
		return Snapshot{}, fmt.Errorf("decoding telemetry: %w", err)
	}

	return w.snapshot(time.Now())
}

func (w wireSnapshot) snapshot(receivedAt time.Time) (Snapshot, error) {
	fields := []struct {
		name string
		v    *float64
	}{
		{"latitude", w.Latitude},
		{"longitude", w.Longitude},
		{"altitude", w.Altitude},
		{"velocity", w.Velocity},
	}
	for _, f := range fields {
		if f.v == nil {
			return Snapshot{}, fmt.Errorf("telemetry missing %s", f.name)
		}
	}

	s := Snapshot{
		Latitude:   *w.Latitude,
		Longitude:  *w.Longitude,
		Altitude:   *w.Altitude,
		Velocity:   *w.Velocity,
		Visibility: w.Visibility,
		Footprint:  w.Footprint,
		ReceivedAt: receivedAt,
	}
	if w.Timestamp > 0 {
		s.Timestamp = time.Unix(w.Timestamp, 0).UTC()
	} else {
		s.Timestamp = receivedAt.UTC()
	}
	return s, nil
}
