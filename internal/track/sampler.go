package track

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/balhun/ISSTracker/internal/geo"
	"github.com/balhun/ISSTracker/internal/propagation"
	"github.com/balhun/ISSTracker/internal/tle"
)

// ErrNoElements is returned when an orbit is requested before any element set is known.
var ErrNoElements = errors.New("no orbital elements loaded")

var tracer = otel.Tracer("github.com/balhun/ISSTracker/internal/track")

// Config controls the sampling grid.
type Config struct {
	Step    time.Duration // Sample spacing (default: 30s)
	Horizon time.Duration // Window length, inclusive (default: 5400s, about one LEO period)
}

// DefaultConfig returns the 30s / 5400s grid.
func DefaultConfig() Config {
	return Config{
		Step:    30 * time.Second,
		Horizon: 5400 * time.Second,
	}
}

// Sample is one propagated ground track point.
type Sample struct {
	Time  time.Time
	Point geo.Point
}

// Orbit is a sampled ground track ready for display.
type Orbit struct {
	NORADID  int       `json:"norad_id"`
	Epoch    time.Time `json:"epoch"`
	Start    time.Time `json:"start"`
	Step     float64   `json:"step_seconds"`
	Horizon  float64   `json:"horizon_seconds"`
	Points   int       `json:"points"`
	Skipped  int       `json:"skipped"`
	Segments []Segment `json:"segments"`
}

// Sampler propagates element sets over a fixed window.
type Sampler struct {
	config Config
	logger *slog.Logger
}

// NewSampler creates a Sampler. Non-positive step or horizon fall back to defaults.
func NewSampler(config Config, logger *slog.Logger) *Sampler {
	def := DefaultConfig()
	if config.Step <= 0 {
		config.Step = def.Step
	}
	if config.Horizon <= 0 {
		config.Horizon = def.Horizon
	}
	return &Sampler{config: config, logger: logger}
}

// Config returns the effective sampling grid.
func (s *Sampler) Config() Config {
	return s.config
}

// Sample propagates es at start, start+step, ... start+horizon (inclusive).
// start is truncated to whole seconds, the resolution of the propagator.
// Samples whose propagation fails or yields non-finite coordinates are
// dropped; the number dropped is returned alongside the samples.
func (s *Sampler) Sample(ctx context.Context, es tle.ElementSet, start time.Time) ([]Sample, int, error) {
	_, span := tracer.Start(ctx, "track.Sample")
	defer span.End()
	span.SetAttributes(
		attribute.Int("norad_id", es.NORADID),
		attribute.String("start", start.UTC().Format(time.RFC3339)),
	)

	prop, err := propagation.NewSGP4Propagator(es)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	start = start.UTC().Truncate(time.Second)
	n := int(s.config.Horizon/s.config.Step) + 1
	samples := make([]Sample, 0, n)
	var skipped int

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, skipped, err
		}

		at := start.Add(time.Duration(i) * s.config.Step)
		g, err := prop.Propagate(at)
		if err != nil || !g.Point.Finite() {
			skipped++
			s.logger.Debug("orbit sample skipped",
				"norad_id", es.NORADID,
				"timestamp", at.Format(time.RFC3339),
				"error", err,
			)
			continue
		}
		samples = append(samples, Sample{Time: at, Point: g.Point})
	}

	span.SetAttributes(attribute.Int("samples", len(samples)), attribute.Int("skipped", skipped))
	return samples, skipped, nil
}

// Orbit samples es from start and splits the track at the antimeridian.
func (s *Sampler) Orbit(ctx context.Context, es tle.ElementSet, start time.Time) (*Orbit, error) {
	samples, skipped, err := s.Sample(ctx, es, start)
	if err != nil {
		return nil, fmt.Errorf("sampling orbit for NORAD %d: %w", es.NORADID, err)
	}

	points := make([]geo.Point, len(samples))
	for i, smp := range samples {
		points[i] = smp.Point
	}

	segments := SplitAtAntimeridian(points)
	if segments == nil {
		segments = []Segment{}
	}

	return &Orbit{
		NORADID:  es.NORADID,
		Epoch:    es.Epoch,
		Start:    start.UTC().Truncate(time.Second),
		Step:     s.config.Step.Seconds(),
		Horizon:  s.config.Horizon.Seconds(),
		Points:   len(points),
		Skipped:  skipped,
		Segments: segments,
	}, nil
}
