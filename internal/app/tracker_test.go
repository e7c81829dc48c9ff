package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/balhun/ISSTracker/internal/scene"
	"github.com/balhun/ISSTracker/internal/telemetry"
	"github.com/balhun/ISSTracker/internal/tle"
	"github.com/balhun/ISSTracker/internal/track"
)

var issElements = tle.ElementSet{
	NORADID: 25544,
	Name:    "ISS (ZARYA)",
	Epoch:   time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC),
	Line1:   "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009",
	Line2:   "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    01",
}

var orbitStart = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type fakeTelemetry struct {
	calls atomic.Int32
	err   error
}

func (f *fakeTelemetry) Fetch(ctx context.Context) (telemetry.Snapshot, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return telemetry.Snapshot{}, f.err
	}
	return telemetry.Snapshot{
		Latitude:  float64(n),
		Longitude: 20,
		Altitude:  415,
		Velocity:  27600,
		Timestamp: time.Now(),
	}, nil
}

type fakeElements struct {
	calls   atomic.Int32
	err     error
	release chan struct{} // when set, FetchElementSet blocks until closed
}

func (f *fakeElements) FetchElementSet(ctx context.Context) (tle.ElementSet, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return tle.ElementSet{}, f.err
	}
	return issElements, nil
}

func (f *fakeElements) SourceURL() string { return "test://elements" }

type recordingPublisher struct {
	mu     sync.Mutex
	scenes []scene.Scene
}

func (p *recordingPublisher) Publish(s scene.Scene) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scenes = append(p.scenes, s)
	return nil
}

func (p *recordingPublisher) last() (scene.Scene, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.scenes) == 0 {
		return scene.Scene{}, 0
	}
	return p.scenes[len(p.scenes)-1], len(p.scenes)
}

func newTestTracker(tf telemetry.Fetcher, ef ElementSource, pub Publisher, cfg Config) *Tracker {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Hour
	}
	cfg.Scene = scene.DefaultOptions()
	cfg.Now = func() time.Time { return orbitStart }
	sampler := track.NewSampler(track.DefaultConfig(), testLogger())
	return New(tf, ef, sampler, pub, cfg, testLogger())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTrackerComposesFullScene(t *testing.T) {
	pub := &recordingPublisher{}
	tr := newTestTracker(&fakeTelemetry{}, &fakeElements{}, pub, Config{})

	if ok, _ := tr.Ready(); ok {
		t.Error("ready before any telemetry")
	}

	tr.Start(context.Background())
	defer tr.Stop()

	waitFor(t, func() bool {
		s, _ := pub.last()
		return s.Marker != nil && len(s.Polylines) > 0
	})

	s, n := pub.last()
	if n < 3 {
		t.Errorf("published %d scenes, want initial + telemetry + orbit", n)
	}
	if len(s.Circles) != 2 {
		t.Errorf("circles = %d, want 2", len(s.Circles))
	}
	if ok, reason := tr.Ready(); !ok {
		t.Errorf("not ready after telemetry: %s", reason)
	}

	o := tr.Orbit()
	if o == nil || o.Points != 181 {
		t.Fatalf("orbit = %+v, want 181 points", o)
	}
	if !o.Start.Equal(orbitStart) {
		t.Errorf("orbit start = %v, want %v", o.Start, orbitStart)
	}
	es, ok := tr.Elements()
	if !ok || es.NORADID != 25544 {
		t.Errorf("Elements() = %+v, %v", es, ok)
	}
}

func TestTrackerInitialSceneIsBaseMapOnly(t *testing.T) {
	pub := &recordingPublisher{}
	ef := &fakeElements{release: make(chan struct{})}
	tf := &fakeTelemetry{err: errors.New("offline")}
	tr := newTestTracker(tf, ef, pub, Config{})

	tr.Start(context.Background())
	s, n := pub.last()
	if n < 1 {
		t.Fatal("no scene published on start")
	}
	if s.Marker != nil || len(s.Polylines) != 0 {
		t.Error("initial scene should contain only the base map")
	}
	if s.BaseMap.TileURL == "" {
		t.Error("initial scene missing base map")
	}

	close(ef.release)
	tr.Stop()
}

func TestTrackerOrbitFailureIsNonFatal(t *testing.T) {
	pub := &recordingPublisher{}
	ef := &fakeElements{err: tle.ErrTooFewLines}
	tr := newTestTracker(&fakeTelemetry{}, ef, pub, Config{})

	tr.Start(context.Background())
	defer tr.Stop()

	waitFor(t, func() bool {
		s, _ := pub.last()
		return s.Marker != nil
	})
	waitFor(t, func() bool { return ef.calls.Load() == 1 })

	if tr.Orbit() != nil {
		t.Error("orbit present although elements failed")
	}
	if s, _ := pub.last(); len(s.Polylines) != 0 {
		t.Error("polylines drawn without an orbit")
	}
	if _, ok := tr.Elements(); ok {
		t.Error("elements stored although fetch failed")
	}
}

func TestTrackerDropsOrbitAfterStop(t *testing.T) {
	pub := &recordingPublisher{}
	ef := &fakeElements{release: make(chan struct{})}
	tr := newTestTracker(&fakeTelemetry{}, ef, pub, Config{})

	tr.Start(context.Background())
	waitFor(t, func() bool { return ef.calls.Load() == 1 })

	stopped := make(chan struct{})
	go func() {
		tr.Stop()
		close(stopped)
	}()
	waitFor(t, func() bool { return !tr.Running() })
	close(ef.release) // the element response lands after deactivation

	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return")
	}

	if tr.Orbit() != nil {
		t.Error("orbit applied after Stop")
	}
}

func TestTrackerOrbitOncePerActivation(t *testing.T) {
	pub := &recordingPublisher{}
	ef := &fakeElements{}
	tr := newTestTracker(&fakeTelemetry{}, ef, pub, Config{})

	tr.Start(context.Background())
	waitFor(t, func() bool { return tr.Orbit() != nil })
	time.Sleep(50 * time.Millisecond)
	if n := ef.calls.Load(); n != 1 {
		t.Errorf("element fetches = %d, want 1 without refresh", n)
	}
	if tr.Start(context.Background()) {
		t.Error("Start on a running tracker should return false")
	}
	tr.Stop()

	tr.Start(context.Background())
	waitFor(t, func() bool { return ef.calls.Load() == 2 })
	tr.Stop()
}

func TestTrackerOrbitRefresh(t *testing.T) {
	ef := &fakeElements{}
	tr := newTestTracker(&fakeTelemetry{}, ef, &recordingPublisher{}, Config{OrbitRefresh: 30 * time.Millisecond})

	tr.Start(context.Background())
	waitFor(t, func() bool { return ef.calls.Load() >= 3 })
	tr.Stop()

	n := ef.calls.Load()
	time.Sleep(100 * time.Millisecond)
	if got := ef.calls.Load(); got != n {
		t.Errorf("refresh continued after Stop: %d -> %d", n, got)
	}
}

func TestTrackerRunStopsOnCancel(t *testing.T) {
	tr := newTestTracker(&fakeTelemetry{}, &fakeElements{}, &recordingPublisher{}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- tr.Run(ctx) }()

	waitFor(t, tr.Running)
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if tr.Running() {
		t.Error("still running after Run returned")
	}
}

func TestTrackerRunLeavesExistingActivation(t *testing.T) {
	tr := newTestTracker(&fakeTelemetry{}, &fakeElements{}, &recordingPublisher{}, Config{})
	if !tr.Start(context.Background()) {
		t.Fatal("Start returned false")
	}
	defer tr.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- tr.Run(ctx) }()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrAlreadyRunning) {
			t.Errorf("Run returned %v, want ErrAlreadyRunning", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return for an already running tracker")
	}
	cancel()

	if !tr.Running() {
		t.Error("Run stopped an activation it did not start")
	}
}
