package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gabiworld/pipewatch/dashboard/internal/source"
	"github.com/gabiworld/pipewatch/dashboard/internal/state"
	"github.com/gabiworld/pipewatch/pkg/types"
)

// fakeSource returns the scripted results in order, repeating the last one.
type fakeSource struct {
	mu      sync.Mutex
	results []fakeResult
	calls   int
	demo    bool
}

type fakeResult struct {
	ds  *types.Dataset
	err error
}

func (f *fakeSource) Fetch(ctx context.Context) (*types.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	return f.results[i].ds, f.results[i].err
}

func (f *fakeSource) Demo() bool { return f.demo }

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func liveDataset(total int64) *types.Dataset {
	return &types.Dataset{
		Stats: types.StatsResponse{Sources: []types.Source{{ID: "s"}}, TotalDocuments: total},
		Jobs:  types.JobsResponse{SyncJobs: []types.SyncJob{{Source: "s", Year: 2024, Status: types.StatusSynced}}},
	}
}

var errDown = errors.New("connection refused")

func newPoller(primary source.Source, opts Options) (*Poller, *state.Holder) {
	h := state.NewHolder(time.Minute)
	p := New(primary, h, opts)
	p.now = func() time.Time { return time.Date(2025, 1, 19, 10, 30, 0, 0, time.UTC) }
	return p, h
}

// --- Poll ---

func TestPoll_PublishesLiveSnapshot(t *testing.T) {
	src := &fakeSource{results: []fakeResult{{ds: liveDataset(42)}}}
	p, h := newPoller(src, Options{})

	snap := p.Poll(context.Background())
	if snap == nil {
		t.Fatal("Poll returned nil")
	}
	if snap.Demo || snap.FetchError != "" {
		t.Errorf("demo=%v fetchError=%q", snap.Demo, snap.FetchError)
	}
	got, ok := h.Latest()
	if !ok || got != snap {
		t.Fatal("snapshot not published to holder")
	}
	if got.Overview.TotalDocuments != 42 {
		t.Errorf("TotalDocuments = %d, want 42", got.Overview.TotalDocuments)
	}
	if p.Cycles() != 1 || p.Failures() != 0 {
		t.Errorf("cycles=%d failures=%d", p.Cycles(), p.Failures())
	}
}

func TestPoll_FallbackOnFailure(t *testing.T) {
	primary := &fakeSource{results: []fakeResult{{err: errDown}}}
	p, h := newPoller(primary, Options{Fallback: source.NewFixture()})

	snap := p.Poll(context.Background())
	if snap == nil {
		t.Fatal("Poll returned nil with fallback configured")
	}
	if !snap.Demo {
		t.Error("fallback snapshot not flagged demo")
	}
	if snap.FetchError != errDown.Error() {
		t.Errorf("FetchError = %q, want %q", snap.FetchError, errDown)
	}
	if got, _ := h.Latest(); got.Overview.TotalDocuments != 510193 {
		t.Errorf("TotalDocuments = %d, want fixture total", got.Overview.TotalDocuments)
	}
	if p.Failures() != 1 {
		t.Errorf("failures = %d, want 1", p.Failures())
	}
}

func TestPoll_NoFallbackKeepsPrevious(t *testing.T) {
	primary := &fakeSource{results: []fakeResult{{ds: liveDataset(7)}, {err: errDown}}}
	p, h := newPoller(primary, Options{})

	first := p.Poll(context.Background())
	if snap := p.Poll(context.Background()); snap != nil {
		t.Fatal("failed poll without fallback published a snapshot")
	}
	got, _ := h.Latest()
	if got != first {
		t.Error("previous snapshot was replaced")
	}
}

func TestPoll_RecoversAfterFailure(t *testing.T) {
	primary := &fakeSource{results: []fakeResult{{err: errDown}, {ds: liveDataset(9)}}}
	p, h := newPoller(primary, Options{Fallback: source.NewFixture()})

	p.Poll(context.Background())
	p.Poll(context.Background())

	got, _ := h.Latest()
	if got.Demo || got.FetchError != "" || got.Overview.TotalDocuments != 9 {
		t.Errorf("snapshot after recovery = demo %v, err %q, total %d", got.Demo, got.FetchError, got.Overview.TotalDocuments)
	}
	if got.Seq != 2 {
		t.Errorf("seq = %d, want 2", got.Seq)
	}
}

func TestPoll_FixturePrimaryIsDemo(t *testing.T) {
	p, _ := newPoller(source.NewFixture(), Options{})
	snap := p.Poll(context.Background())
	if snap == nil || !snap.Demo || snap.FetchError != "" {
		t.Errorf("fixture primary snapshot = %+v", snap)
	}
}

func TestPoll_CancelledContextPublishesNothing(t *testing.T) {
	primary := &fakeSource{results: []fakeResult{{err: context.Canceled}}}
	p, h := newPoller(primary, Options{Fallback: source.NewFixture()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if snap := p.Poll(ctx); snap != nil {
		t.Error("published during shutdown")
	}
	if _, ok := h.Latest(); ok {
		t.Error("holder populated during shutdown")
	}
}

func TestPoll_NotifiesObservers(t *testing.T) {
	p, _ := newPoller(&fakeSource{results: []fakeResult{{ds: liveDataset(1)}}}, Options{})

	var seen []uint64
	p.OnSnapshot(func(s *state.Snapshot) { seen = append(seen, s.Seq) })
	p.OnSnapshot(func(s *state.Snapshot) { seen = append(seen, s.Seq*10) })

	p.Poll(context.Background())
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 10 {
		t.Errorf("observer calls = %v, want [1 10]", seen)
	}
}

// --- health ---

func TestPoll_AttachesHealth(t *testing.T) {
	p, _ := newPoller(source.NewFixture(), Options{})
	snap := p.Poll(context.Background())
	if snap.Health.State != "degraded" {
		t.Errorf("state = %q, want degraded", snap.Health.State)
	}
	if snap.Health.Score < 83.2 || snap.Health.Score > 83.3 {
		t.Errorf("score = %.2f, want ~83.26", snap.Health.Score)
	}
	if snap.Health.UptimePct != 100 {
		t.Errorf("uptime = %v, want 100", snap.Health.UptimePct)
	}
}

func TestPoll_UptimeTracksFailures(t *testing.T) {
	primary := &fakeSource{results: []fakeResult{{ds: liveDataset(1)}, {err: errDown}, {err: errDown}, {ds: liveDataset(1)}}}
	p, h := newPoller(primary, Options{Fallback: source.NewFixture()})

	for i := 0; i < 4; i++ {
		p.Poll(context.Background())
	}
	if got := p.Uptime(); got != 50 {
		t.Errorf("Uptime = %v, want 50", got)
	}
	if got, _ := h.Latest(); got.Health.UptimePct != 50 {
		t.Errorf("snapshot uptime = %v, want 50", got.Health.UptimePct)
	}
}

func TestPoll_DocumentsPerMinute(t *testing.T) {
	primary := &fakeSource{results: []fakeResult{
		{ds: liveDataset(100)},
		{ds: liveDataset(400)},
		{err: errDown},
		{ds: liveDataset(500)},
	}}
	p, _ := newPoller(primary, Options{Fallback: source.NewFixture()})
	clock := time.Date(2025, 1, 19, 10, 30, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	if snap := p.Poll(context.Background()); snap.Health.DocumentsPerMinute != 0 {
		t.Errorf("first poll rate = %v, want 0", snap.Health.DocumentsPerMinute)
	}
	clock = clock.Add(time.Minute)
	if snap := p.Poll(context.Background()); snap.Health.DocumentsPerMinute != 300 {
		t.Errorf("rate = %v, want 300", snap.Health.DocumentsPerMinute)
	}

	// A demo snapshot drops the baseline.
	clock = clock.Add(time.Minute)
	if snap := p.Poll(context.Background()); !snap.Demo || snap.Health.DocumentsPerMinute != 0 {
		t.Errorf("demo poll = demo %v rate %v", snap.Demo, snap.Health.DocumentsPerMinute)
	}
	clock = clock.Add(time.Minute)
	if snap := p.Poll(context.Background()); snap.Health.DocumentsPerMinute != 0 {
		t.Errorf("rate after demo = %v, want 0 (new baseline)", snap.Health.DocumentsPerMinute)
	}
}

// --- Run ---

func TestRun_PollsImmediatelyAndOnTick(t *testing.T) {
	src := &fakeSource{results: []fakeResult{{ds: liveDataset(1)}}}
	p, _ := newPoller(src, Options{Interval: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { p.Run(ctx); close(done) }()

	deadline := time.Now().Add(2 * time.Second)
	for src.Calls() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if src.Calls() < 3 {
		t.Errorf("calls = %d, want >= 3", src.Calls())
	}
}

func TestRun_CyclesDoNotOverlap(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	slow := &slowSource{delay: 30 * time.Millisecond, inFlight: &inFlight, max: &maxInFlight}
	p, _ := newPoller(slow, Options{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("max concurrent fetches = %d, want 1", got)
	}
}

func TestSetInterval(t *testing.T) {
	p, _ := newPoller(&fakeSource{results: []fakeResult{{ds: liveDataset(1)}}}, Options{Interval: time.Hour})

	p.SetInterval(0)
	if p.Interval() != time.Hour {
		t.Errorf("SetInterval(0) changed interval to %v", p.Interval())
	}
	p.SetInterval(time.Minute)
	p.SetInterval(2 * time.Minute)
	if p.Interval() != 2*time.Minute {
		t.Errorf("Interval = %v, want 2m", p.Interval())
	}
	if len(p.reset) != 1 {
		t.Errorf("pending resets = %d, want 1", len(p.reset))
	}
}

func TestRun_SetIntervalSpeedsUpTicks(t *testing.T) {
	src := &fakeSource{results: []fakeResult{{ds: liveDataset(1)}}}
	p, _ := newPoller(src, Options{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { p.Run(ctx); close(done) }()

	p.SetInterval(10 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for src.Calls() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if src.Calls() < 3 {
		t.Errorf("calls = %d after SetInterval, want >= 3", src.Calls())
	}
}

type slowSource struct {
	delay    time.Duration
	inFlight *atomic.Int32
	max      *atomic.Int32
}

func (s *slowSource) Fetch(ctx context.Context) (*types.Dataset, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.max.Load()
		if n <= m || s.max.CompareAndSwap(m, n) {
			break
		}
	}
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return liveDataset(1), nil
}

func (s *slowSource) Demo() bool { return false }
