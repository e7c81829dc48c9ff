// Package app wires telemetry polling and orbit sampling into the scene the
// map displays, and owns their activation lifecycle.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/balhun/ISSTracker/internal/metrics"
	"github.com/balhun/ISSTracker/internal/scene"
	"github.com/balhun/ISSTracker/internal/telemetry"
	"github.com/balhun/ISSTracker/internal/tle"
	"github.com/balhun/ISSTracker/internal/track"
)

// ErrAlreadyRunning is returned by Run when the tracker is already active.
var ErrAlreadyRunning = errors.New("tracker already running")

// ElementSource provides the current element set. tle.Fetcher implements it.
type ElementSource interface {
	FetchElementSet(ctx context.Context) (tle.ElementSet, error)
	SourceURL() string
}

// Publisher receives every composed scene. stream.Hub implements it.
type Publisher interface {
	Publish(s scene.Scene) error
}

// Config holds tracker settings.
type Config struct {
	PollInterval time.Duration // Telemetry cadence (default: 5s).
	OrbitRefresh time.Duration // Orbit recompute period; 0 computes once per activation.
	Scene        scene.Options
	Now          func() time.Time // Orbit start clock (default: time.Now).
}

// Tracker is the root of the map. Start activates the telemetry poller and
// the orbit task; Stop deactivates both. Each of the two tasks is the only
// writer of its slot, and every slot update publishes a freshly composed
// scene.
type Tracker struct {
	poller    *telemetry.Poller
	elements  ElementSource
	sampler   *track.Sampler
	store     *tle.Store
	publisher Publisher
	config    Config
	logger    *slog.Logger

	orbit atomic.Pointer[track.Orbit]

	mu      sync.Mutex
	gen     uint64
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	publishMu sync.Mutex
}

// New creates a stopped Tracker.
func New(fetcher telemetry.Fetcher, elements ElementSource, sampler *track.Sampler, publisher Publisher, config Config, logger *slog.Logger) *Tracker {
	if config.Now == nil {
		config.Now = time.Now
	}
	t := &Tracker{
		elements:  elements,
		sampler:   sampler,
		store:     tle.NewStore(),
		publisher: publisher,
		config:    config,
		logger:    logger,
	}
	t.poller = telemetry.NewPoller(fetcher, config.PollInterval, logger.With("component", "poller"), func(telemetry.Snapshot) {
		t.publish()
	})
	return t
}

// Start activates polling and the orbit task and publishes the initial
// (base map only) scene. It returns false if the tracker is already running.
func (t *Tracker) Start(ctx context.Context) bool {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return false
	}
	t.gen++
	ctx, cancel := context.WithCancel(ctx)
	t.running = true
	t.cancel = cancel
	t.done = make(chan struct{})
	gen, done := t.gen, t.done
	t.mu.Unlock()

	t.publish()
	t.poller.Start(ctx)
	go t.runOrbit(ctx, gen, done)

	t.logger.Info("tracker started",
		"orbit_refresh_seconds", t.config.OrbitRefresh.Seconds(),
		"elements_url", t.elements.SourceURL(),
	)
	return true
}

// Stop deactivates the tracker. Pending timers are stopped, in-flight
// requests cancelled and their results dropped. Stop returns once both tasks
// have exited. The last snapshot and orbit stay available.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.gen++
	t.cancel()
	done := t.done
	t.mu.Unlock()

	t.poller.Stop()
	<-done
	t.logger.Info("tracker stopped")
}

// ageReportInterval is how often the data age gauges are refreshed.
const ageReportInterval = 10 * time.Second

// Run starts the tracker and stops it when ctx is cancelled. While running
// it keeps the telemetry and element age gauges current. It returns
// ErrAlreadyRunning without touching an activation it did not start.
func (t *Tracker) Run(ctx context.Context) error {
	if !t.Start(ctx) {
		return ErrAlreadyRunning
	}
	defer t.Stop()

	ticker := time.NewTicker(ageReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.reportAges()
		}
	}
}

func (t *Tracker) reportAges() {
	if snap, ok := t.poller.Latest(); ok {
		metrics.SetTelemetryAge(time.Since(snap.Timestamp).Seconds())
	}
	if age := t.store.AgeSeconds(); age >= 0 {
		metrics.SetTLEAge(age)
	}
}

// Running reports whether the tracker is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Telemetry returns the latest snapshot.
func (t *Tracker) Telemetry() (telemetry.Snapshot, bool) {
	return t.poller.Latest()
}

// Orbit returns the current orbit, or nil before the first successful load.
func (t *Tracker) Orbit() *track.Orbit {
	return t.orbit.Load()
}

// Elements returns the element set the current orbit was sampled from.
func (t *Tracker) Elements() (tle.ElementSet, bool) {
	ds := t.store.Get()
	if ds == nil {
		return tle.ElementSet{}, false
	}
	return ds.Elements, true
}

// Scene composes the current scene.
func (t *Tracker) Scene() scene.Scene {
	var snapPtr *telemetry.Snapshot
	if snap, ok := t.poller.Latest(); ok {
		snapPtr = &snap
	}
	return scene.Compose(snapPtr, t.orbit.Load(), t.config.Scene)
}

// Ready reports ready once a telemetry snapshot exists.
func (t *Tracker) Ready() (bool, string) {
	if _, ok := t.poller.Latest(); !ok {
		return false, "no telemetry yet"
	}
	return true, ""
}

func (t *Tracker) publish() {
	t.publishMu.Lock()
	defer t.publishMu.Unlock()

	s := t.Scene()
	t.reportAges()
	if err := t.publisher.Publish(s); err != nil {
		t.logger.Error("publishing scene failed", "error", err)
	}
}

func (t *Tracker) runOrbit(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	t.loadOrbit(ctx, gen)
	if t.config.OrbitRefresh <= 0 {
		return
	}

	ticker := time.NewTicker(t.config.OrbitRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.loadOrbit(ctx, gen)
		}
	}
}

// loadOrbit fetches elements and samples the orbit from now. Failures are
// logged and leave the previous orbit (if any) in place.
func (t *Tracker) loadOrbit(ctx context.Context, gen uint64) {
	start := time.Now()
	log := t.logger.With("component", "orbit")

	es, err := t.elements.FetchElementSet(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.RecordOrbitLoad(0, 0, 0, err)
		log.Warn("element fetch failed, no orbit drawn", "error", err)
		return
	}

	o, err := t.sampler.Orbit(ctx, es, t.config.Now())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.RecordOrbitLoad(0, 0, 0, err)
		log.Warn("orbit sampling failed", "norad_id", es.NORADID, "error", err)
		return
	}

	t.mu.Lock()
	if !t.running || t.gen != gen {
		t.mu.Unlock()
		log.Debug("discarding orbit computed after deactivation")
		return
	}
	t.store.Set(&tle.Dataset{
		Source:    t.elements.SourceURL(),
		FetchedAt: time.Now().UTC(),
		Elements:  es,
	})
	t.orbit.Store(o)
	t.mu.Unlock()

	metrics.RecordOrbitLoad(o.Points, len(o.Segments), o.Skipped, nil)
	log.Info("orbit loaded",
		"norad_id", es.NORADID,
		"epoch", es.Epoch.Format(time.RFC3339),
		"points", o.Points,
		"segments", len(o.Segments),
		"skipped", o.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	t.publish()
}
