package tle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultSourceURL serves the ISS (NORAD 25544) element set as plain text.
const DefaultSourceURL = "https://api.wheretheiss.at/v1/satellites/25544/tles?format=text"

// maxBodyBytes bounds the element response; a TLE is a few hundred bytes.
const maxBodyBytes = 64 * 1024

var tracer = otel.Tracer("github.com/balhun/ISSTracker/internal/tle")

// Fetcher retrieves element sets from a remote source.
type Fetcher struct {
	sourceURL  string
	httpClient *http.Client
}

// NewFetcher creates a Fetcher for the given source URL. A nil client gets a
// default one with a 30s timeout.
func NewFetcher(sourceURL string, client *http.Client) *Fetcher {
	if sourceURL == "" {
		sourceURL = DefaultSourceURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{
		sourceURL:  sourceURL,
		httpClient: client,
	}
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch performs an HTTP GET and returns the raw element text.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "tle.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url.full", f.sourceURL))

	body, err := f.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return body, err
}

func (f *Fetcher) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching TLE data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, f.sourceURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("response exceeds %d byte limit", maxBodyBytes)
	}

	return body, nil
}

// FetchElementSet fetches and parses the element set.
func (f *Fetcher) FetchElementSet(ctx context.Context) (ElementSet, error) {
	body, err := f.Fetch(ctx)
	if err != nil {
		return ElementSet{}, err
	}
	es, err := ParseElementSet(string(body))
	if err != nil {
		return ElementSet{}, fmt.Errorf("parsing TLE data: %w", err)
	}
	return es, nil
}
