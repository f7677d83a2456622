package health

import (
	"math"
	"sync"
	"testing"
	"time"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// tick returns base advanced by n minutes.
func tick(base time.Time, n int) time.Time {
	return base.Add(time.Duration(n) * time.Minute)
}

var t0 = time.Date(2025, 1, 19, 10, 30, 0, 0, time.UTC)

// --- Compute ---

func TestCompute_AllPerfect(t *testing.T) {
	out := Compute(Input{
		CoveragePct: 100,
		TotalJobs:   10,
		IndexedDocs: 500,
		TotalDocs:   500,
		UptimePct:   100,
	})
	if !almostEqual(out.Score, 100) {
		t.Errorf("score: got %.4f, want 100", out.Score)
	}
	if out.State != StateHealthy {
		t.Errorf("state: got %q, want %q", out.State, StateHealthy)
	}
}

func TestCompute_AllZero(t *testing.T) {
	out := Compute(Input{
		CoveragePct: 0,
		FailedJobs:  4,
		TotalJobs:   4,
		IndexedDocs: 0,
		TotalDocs:   100,
		UptimePct:   0,
	})
	if !almostEqual(out.Score, 0) {
		t.Errorf("score: got %.4f, want 0", out.Score)
	}
	if out.State != StateCritical {
		t.Errorf("state: got %q, want %q", out.State, StateCritical)
	}
}

func TestCompute_Unknown(t *testing.T) {
	out := Compute(Input{})
	if out.State != StateUnknown || out.Score != 0 {
		t.Errorf("got %+v, want unknown with zero score", out)
	}
}

func TestCompute_NoJobsButUp(t *testing.T) {
	// An empty backend that answers is not unknown: only coverage is missing.
	out := Compute(Input{UptimePct: 100})
	if !almostEqual(out.Score, 60) {
		t.Errorf("score: got %.4f, want 60", out.Score)
	}
	if out.State != StateDegraded {
		t.Errorf("state: got %q, want %q", out.State, StateDegraded)
	}
}

func TestCompute_Factors(t *testing.T) {
	out := Compute(Input{
		CoveragePct: 66.5,
		FailedJobs:  1,
		TotalJobs:   9,
		IndexedDocs: 509906,
		TotalDocs:   510193,
		UptimePct:   100,
	})
	if !almostEqual(out.CoverageFactor, 0.665) {
		t.Errorf("coverage factor: got %v", out.CoverageFactor)
	}
	if !almostEqual(out.ErrorFactor, 8.0/9.0) {
		t.Errorf("error factor: got %v", out.ErrorFactor)
	}
	if !almostEqual(out.IndexFactor, 509906.0/510193.0) {
		t.Errorf("index factor: got %v", out.IndexFactor)
	}
	if !almostEqual(out.UptimeFactor, 1) {
		t.Errorf("uptime factor: got %v", out.UptimeFactor)
	}
	want := (0.665*0.40 + 8.0/9.0*0.30 + 509906.0/510193.0*0.20 + 0.10) * 100
	if !almostEqual(out.Score, want) {
		t.Errorf("score: got %.4f, want %.4f", out.Score, want)
	}
	if out.State != StateDegraded {
		t.Errorf("state: got %q, want %q", out.State, StateDegraded)
	}
}

func TestCompute_ZeroDocsGetsFullIndexCredit(t *testing.T) {
	out := Compute(Input{CoveragePct: 100, TotalJobs: 1, UptimePct: 100})
	if !almostEqual(out.IndexFactor, 1) {
		t.Errorf("index factor: got %v, want 1", out.IndexFactor)
	}
}

func TestCompute_ClampsOutOfRange(t *testing.T) {
	out := Compute(Input{
		CoveragePct: 250,
		FailedJobs:  -3,
		TotalJobs:   2,
		IndexedDocs: 900,
		TotalDocs:   100,
		UptimePct:   130,
	})
	if !almostEqual(out.Score, 100) {
		t.Errorf("score: got %.4f, want 100 (clamped)", out.Score)
	}
}

func TestStateFromScore_Boundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{100, StateHealthy},
		{85, StateHealthy},
		{84.99, StateDegraded},
		{60, StateDegraded},
		{59.99, StateCritical},
		{0, StateCritical},
	}
	for _, tc := range cases {
		if got := stateFromScore(tc.score); got != tc.want {
			t.Errorf("stateFromScore(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

// --- Tracker: uptime ---

func TestTracker_UptimeBeforeObservation(t *testing.T) {
	if got := NewTracker().UptimePct(); got != 100 {
		t.Errorf("uptime: got %v, want 100", got)
	}
}

func TestTracker_UptimeRatio(t *testing.T) {
	tr := NewTracker()
	tr.RecordFetch(true)
	tr.RecordFetch(false)
	tr.RecordFetch(true)
	tr.RecordFetch(true)
	if got := tr.UptimePct(); !almostEqual(got, 75) {
		t.Errorf("uptime: got %v, want 75", got)
	}
}

func TestTracker_UptimeWindowSlides(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < uptimeWindow; i++ {
		tr.RecordFetch(false)
	}
	if got := tr.UptimePct(); got != 0 {
		t.Fatalf("uptime: got %v, want 0", got)
	}
	for i := 0; i < uptimeWindow/2; i++ {
		tr.RecordFetch(true)
	}
	if got := tr.UptimePct(); !almostEqual(got, 50) {
		t.Errorf("uptime after half window recovers: got %v, want 50", got)
	}
	for i := 0; i < uptimeWindow; i++ {
		tr.RecordFetch(true)
	}
	if got := tr.UptimePct(); got != 100 {
		t.Errorf("uptime after full window recovers: got %v, want 100", got)
	}
}

// --- Tracker: documents per minute ---

func TestTracker_FirstObservationIsZero(t *testing.T) {
	if got := NewTracker().ObserveDocuments(1000, t0); got != 0 {
		t.Errorf("rate: got %v, want 0", got)
	}
}

func TestTracker_Rate(t *testing.T) {
	tr := NewTracker()
	tr.ObserveDocuments(1000, t0)
	if got := tr.ObserveDocuments(1600, tick(t0, 2)); !almostEqual(got, 300) {
		t.Errorf("rate: got %v, want 300", got)
	}
	if got := tr.ObserveDocuments(1600, tick(t0, 3)); got != 0 {
		t.Errorf("flat rate: got %v, want 0", got)
	}
}

func TestTracker_CounterDropIsZero(t *testing.T) {
	tr := NewTracker()
	tr.ObserveDocuments(1000, t0)
	if got := tr.ObserveDocuments(400, tick(t0, 1)); got != 0 {
		t.Errorf("rate after drop: got %v, want 0", got)
	}
	// The drop becomes the new baseline.
	if got := tr.ObserveDocuments(500, tick(t0, 2)); !almostEqual(got, 100) {
		t.Errorf("rate after new baseline: got %v, want 100", got)
	}
}

func TestTracker_SameInstantKeepsRate(t *testing.T) {
	tr := NewTracker()
	tr.ObserveDocuments(0, t0)
	tr.ObserveDocuments(60, tick(t0, 1))
	if got := tr.ObserveDocuments(999, tick(t0, 1)); !almostEqual(got, 60) {
		t.Errorf("rate at same instant: got %v, want 60", got)
	}
}

func TestTracker_ResetDropsBaselineKeepsUptime(t *testing.T) {
	tr := NewTracker()
	tr.RecordFetch(false)
	tr.ObserveDocuments(100, t0)
	tr.Reset()
	if got := tr.ObserveDocuments(10000, tick(t0, 1)); got != 0 {
		t.Errorf("rate after reset: got %v, want 0", got)
	}
	if got := tr.UptimePct(); got != 0 {
		t.Errorf("uptime after reset: got %v, want 0", got)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.RecordFetch(j%2 == 0)
				tr.ObserveDocuments(int64(i*100+j), tick(t0, j))
				tr.UptimePct()
			}
		}(i)
	}
	wg.Wait()
	if got := tr.UptimePct(); got < 0 || got > 100 {
		t.Errorf("uptime out of range: %v", got)
	}
}

// --- deltaOf ---

func TestDeltaOf(t *testing.T) {
	cases := []struct {
		cur, prev int64
		want      float64
	}{
		{10, 5, 5},
		{5, 5, 0},
		{5, 10, 0},
	}
	for _, tc := range cases {
		if got := deltaOf(tc.cur, tc.prev); got != tc.want {
			t.Errorf("deltaOf(%d, %d) = %v, want %v", tc.cur, tc.prev, got, tc.want)
		}
	}
}
