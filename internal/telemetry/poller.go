package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/balhun/ISSTracker/internal/metrics"
)

// DefaultInterval is the polling period.
const DefaultInterval = 5 * time.Second

// Poller fetches a snapshot immediately on Start and then every interval
// until Stop. A failed fetch leaves the previous snapshot in place; the next
// tick is the retry.
//
// Results that complete after Stop are discarded: each activation carries a
// generation number and a result is applied only if its generation is still
// current.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *slog.Logger
	onUpdate func(Snapshot)

	latest atomic.Pointer[Snapshot]

	mu      sync.Mutex
	gen     uint64
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPoller creates a stopped Poller. onUpdate, if non-nil, is called from
// the polling goroutine after each applied snapshot; it must not call Stop.
func NewPoller(fetcher Fetcher, interval time.Duration, logger *slog.Logger, onUpdate func(Snapshot)) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
		onUpdate: onUpdate,
	}
}

// Start activates polling. It returns false if the poller is already running.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return false
	}

	p.gen++
	ctx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})

	p.logger.Info("telemetry polling started", "interval_seconds", p.interval.Seconds())
	go p.run(ctx, p.gen, p.done)
	return true
}

// Stop deactivates polling: the timer is stopped, any in-flight request is
// cancelled and its result dropped. Stop blocks until the polling goroutine
// has exited, so no update is applied after it returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.gen++
	p.cancel()
	done := p.done
	p.mu.Unlock()

	<-done
	p.logger.Info("telemetry polling stopped")
}

// Running reports whether the poller is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Latest returns the most recent applied snapshot.
func (p *Poller) Latest() (Snapshot, bool) {
	s := p.latest.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

func (p *Poller) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	p.poll(ctx, gen)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, gen)
		}
	}
}

func (p *Poller) poll(ctx context.Context, gen uint64) {
	start := time.Now()
	snap, err := p.fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Deactivated mid-request.
			return
		}
		metrics.RecordTelemetryPoll(time.Since(start), err)
		p.logger.Warn("telemetry fetch failed, keeping last snapshot", "error", err)
		return
	}
	metrics.RecordTelemetryPoll(time.Since(start), nil)

	p.mu.Lock()
	if !p.running || p.gen != gen {
		p.mu.Unlock()
		metrics.IncTelemetryDiscarded()
		p.logger.Debug("discarding telemetry received after deactivation")
		return
	}
	p.latest.Store(&snap)
	p.mu.Unlock()

	p.logger.Debug("telemetry updated",
		"latitude", snap.Latitude,
		"longitude", snap.Longitude,
		"altitude_km", snap.Altitude,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if p.onUpdate != nil {
		p.onUpdate(snap)
	}
}
