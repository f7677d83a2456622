package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabiworld/pipewatch/dashboard/internal/derive"
	"github.com/gabiworld/pipewatch/dashboard/internal/health"
	"github.com/gabiworld/pipewatch/dashboard/internal/source"
	"github.com/gabiworld/pipewatch/dashboard/internal/state"
)

// Default values used when Options fields are zero.
const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 10 * time.Second
)

// Options configures a Poller.
type Options struct {
	// Interval between cycles.
	Interval time.Duration

	// Timeout bounds one fetch from the primary source.
	Timeout time.Duration

	// Fallback replaces a failed primary fetch. Nil disables fallback.
	Fallback source.Source
}

// Observer is called synchronously after every published snapshot.
type Observer func(*state.Snapshot)

// Poller periodically fetches a Dataset, derives a Snapshot and publishes it
// to a state.Holder.
type Poller struct {
	primary  source.Source
	fallback source.Source
	holder   *state.Holder
	timeout  time.Duration
	tracker  *health.Tracker

	mu        sync.Mutex
	interval  time.Duration
	observers []Observer

	reset chan struct{}

	cycles   atomic.Uint64
	failures atomic.Uint64

	now   func() time.Time // injectable for deterministic tests
	newID derive.IDFunc
}

// New returns a Poller publishing to holder.
func New(primary source.Source, holder *state.Holder, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Poller{
		primary:  primary,
		fallback: opts.Fallback,
		holder:   holder,
		timeout:  opts.Timeout,
		tracker:  health.NewTracker(),
		interval: opts.Interval,
		reset:    make(chan struct{}, 1),
		now:      time.Now,
		newID:    derive.NewID,
	}
}

// OnSnapshot registers fn to run after each publish. Register before Run.
func (p *Poller) OnSnapshot(fn Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

// SetInterval changes the tick period. Takes effect from the next tick.
// Non-positive values are ignored.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	changed := d != p.interval
	p.interval = d
	p.mu.Unlock()
	if !changed {
		return
	}
	select {
	case p.reset <- struct{}{}:
	default:
	}
}

// Interval returns the current tick period.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// Cycles is the number of completed poll cycles.
func (p *Poller) Cycles() uint64 { return p.cycles.Load() }

// Failures is the number of cycles whose primary fetch failed.
func (p *Poller) Failures() uint64 { return p.failures.Load() }

// Uptime is the share of recent primary fetches that succeeded.
func (p *Poller) Uptime() float64 { return p.tracker.UptimePct() }

// Run polls until ctx is cancelled. The first cycle runs immediately.
func (p *Poller) Run(ctx context.Context) {
	p.Poll(ctx)

	t := time.NewTicker(p.Interval())
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.reset:
			d := p.Interval()
			t.Reset(d)
			slog.Info("poller: interval changed", "interval", d)
		case <-t.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs one cycle and returns the published snapshot, or nil when
// nothing was published.
func (p *Poller) Poll(ctx context.Context) *state.Snapshot {
	fctx, cancel := context.WithTimeout(ctx, p.timeout)
	ds, err := p.primary.Fetch(fctx)
	cancel()

	demo := p.primary.Demo()
	var fetchErr error
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		p.failures.Add(1)
		p.tracker.RecordFetch(false)
		fetchErr = err
		if p.fallback == nil {
			slog.Warn("poller: fetch failed, keeping previous snapshot", "err", err)
			p.cycles.Add(1)
			return nil
		}
		slog.Warn("poller: fetch failed, using fallback dataset", "err", err)
		ds, err = p.fallback.Fetch(ctx)
		if err != nil {
			slog.Error("poller: fallback fetch failed", "err", err)
			p.cycles.Add(1)
			return nil
		}
		demo = true
	} else {
		p.tracker.RecordFetch(true)
	}

	now := p.now()
	snap := state.Build(ds, demo, fetchErr, now, p.newID)
	snap.Health = p.report(snap, now)
	p.holder.Put(snap)
	p.cycles.Add(1)

	slog.Debug("poller: snapshot published",
		"seq", snap.Seq,
		"demo", snap.Demo,
		"jobs", len(snap.Enriched),
		"errors", len(snap.Errors),
	)

	p.mu.Lock()
	observers := append([]Observer(nil), p.observers...)
	p.mu.Unlock()
	for _, fn := range observers {
		fn(snap)
	}
	return snap
}

// report scores snap. Demo datasets never feed the ingest rate, so switching
// between live and fixture data does not register as a burst of documents.
func (p *Poller) report(snap *state.Snapshot, now time.Time) health.Report {
	uptime := p.tracker.UptimePct()
	var rate float64
	if snap.Demo {
		p.tracker.Reset()
	} else {
		rate = p.tracker.ObserveDocuments(snap.Overview.TotalDocuments, now)
	}
	return health.Report{
		Output:             health.Compute(snap.HealthInput(uptime)),
		UptimePct:          uptime,
		DocumentsPerMinute: rate,
	}
}
