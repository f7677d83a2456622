package health

import (
	"sync"
	"time"
)

// uptimeWindow is the number of recent fetch outcomes tracked for uptime %.
const uptimeWindow = 20

// Report is the health block attached to every snapshot.
type Report struct {
	Output
	UptimePct          float64 `json:"uptimePct"`
	DocumentsPerMinute float64 `json:"documentsPerMinute"`
}

// Tracker keeps state across poll cycles: recent fetch outcomes for uptime
// and the previous live document total for the ingest rate.
//
// All exported methods are safe for concurrent use.
type Tracker struct {
	mu          sync.Mutex
	history     []bool // fetch outcomes, newest last
	prevDocs    int64
	prevTime    time.Time
	hasBaseline bool
	rate        float64
}

// NewTracker returns a ready-to-use Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordFetch records the outcome of one primary fetch.
func (t *Tracker) RecordFetch(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.history) >= uptimeWindow {
		t.history = t.history[1:]
	}
	t.history = append(t.history, ok)
}

// UptimePct is the share of tracked fetches that succeeded. 100 before the
// first observation.
func (t *Tracker) UptimePct() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.uptimePct()
}

func (t *Tracker) uptimePct() float64 {
	if len(t.history) == 0 {
		return 100 // assume up before first observation
	}
	var ok int
	for _, s := range t.history {
		if s {
			ok++
		}
	}
	return float64(ok) / float64(len(t.history)) * 100
}

// ObserveDocuments records a live document total and returns documents per
// minute since the previous one. The first observation after construction or
// Reset returns 0. Observations at the same instant keep the last rate.
func (t *Tracker) ObserveDocuments(total int64, now time.Time) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.hasBaseline {
		t.prevDocs, t.prevTime, t.hasBaseline = total, now, true
		t.rate = 0
		return 0
	}
	elapsed := now.Sub(t.prevTime).Minutes()
	if elapsed <= 0 {
		return t.rate
	}
	t.rate = deltaOf(total, t.prevDocs) / elapsed
	t.prevDocs, t.prevTime = total, now
	return t.rate
}

// Reset drops the document baseline, so the next ObserveDocuments starts
// over. Uptime history is kept.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hasBaseline = false
	t.rate = 0
}

// deltaOf returns the positive counter delta between current and previous.
// If current < previous (documents were removed upstream), returns 0.
func deltaOf(current, previous int64) float64 {
	d := current - previous
	if d < 0 {
		return 0
	}
	return float64(d)
}
