package derive

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Period selects the window and resolution of the history charts.
type Period string

const (
	Period24h Period = "24h"
	Period7d  Period = "7d"
	Period30d Period = "30d"
)

// ParsePeriod validates s as a Period.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case Period24h, Period7d, Period30d:
		return p, nil
	}
	return "", fmt.Errorf("derive: unknown period %q: want 24h|7d|30d", s)
}

// Points is the number of points every series of p contains.
func (p Period) Points() int {
	switch p {
	case Period7d:
		return 7
	case Period30d:
		return 30
	default:
		return 24
	}
}

// Step is the width of one bucket.
func (p Period) Step() time.Duration {
	if p == Period24h {
		return time.Hour
	}
	return 24 * time.Hour
}

// Buckets returns the start of every bucket in p, oldest first. The last
// bucket is the one containing now.
func (p Period) Buckets(now time.Time) []time.Time {
	now = now.UTC()
	var last time.Time
	if p.Step() == time.Hour {
		last = now.Truncate(time.Hour)
	} else {
		last = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	n := p.Points()
	out := make([]time.Time, n)
	for i := range out {
		out[i] = last.Add(-time.Duration(n-1-i) * p.Step())
	}
	return out
}

// MetricPoint is one chart sample.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// HistoricalMetrics holds three aligned series of Period.Points() points.
type HistoricalMetrics struct {
	Period             Period        `json:"period"`
	DocumentsProcessed []MetricPoint `json:"documentsProcessed"`
	ErrorsOverTime     []MetricPoint `json:"errorsOverTime"`
	ThroughputOverTime []MetricPoint `json:"throughputOverTime"`
}

// NewHistoricalMetrics returns zero-valued series aligned to p's buckets.
func NewHistoricalMetrics(p Period, now time.Time) HistoricalMetrics {
	buckets := p.Buckets(now)
	m := HistoricalMetrics{
		Period:             p,
		DocumentsProcessed: make([]MetricPoint, len(buckets)),
		ErrorsOverTime:     make([]MetricPoint, len(buckets)),
		ThroughputOverTime: make([]MetricPoint, len(buckets)),
	}
	for i, ts := range buckets {
		m.DocumentsProcessed[i].Timestamp = ts
		m.ErrorsOverTime[i].Timestamp = ts
		m.ThroughputOverTime[i].Timestamp = ts
	}
	return m
}

// Baselines for generated series, per bucket.
const (
	hourlyDocsBase = 1800.0
	dailyDocsBase  = 42000.0
)

// Synthesize generates chart data for p without a metrics backend. Each
// bucket's values are seeded by its start time, so repeated calls within the
// same bucket agree and the chart does not jitter between polls.
func Synthesize(p Period, now time.Time) HistoricalMetrics {
	m := NewHistoricalMetrics(p, now)
	minutes := p.Step().Minutes()

	for i, pt := range m.DocumentsProcessed {
		ts := pt.Timestamp
		rng := rand.New(rand.NewPCG(uint64(ts.Unix()), uint64(p.Points())))

		var docs, errs float64
		if p == Period24h {
			// Diurnal curve peaking at 12:00 UTC.
			shape := 1 + 0.4*math.Sin(2*math.Pi*float64(ts.Hour()-6)/24)
			docs = hourlyDocsBase * shape * (0.85 + 0.3*rng.Float64())
			errs = float64(rng.IntN(4))
		} else {
			shape := 1.0
			if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
				shape = 0.6
			}
			docs = dailyDocsBase * shape * (0.85 + 0.3*rng.Float64())
			errs = float64(rng.IntN(25))
		}
		if rng.Float64() < 0.08 {
			errs *= 5
		}

		docs = math.Round(docs)
		m.DocumentsProcessed[i].Value = docs
		m.ErrorsOverTime[i].Value = errs
		m.ThroughputOverTime[i].Value = math.Round(docs / minutes)
	}
	return m
}

// MetricsSummary is the set of numbers shown on the history summary cards.
type MetricsSummary struct {
	TotalDocuments    float64 `json:"totalDocuments"`
	TotalErrors       float64 `json:"totalErrors"`
	Trend             int     `json:"trend"`
	AverageThroughput float64 `json:"averageThroughput"`
}

// Summarize computes totals, the documents trend and the mean throughput.
func Summarize(m HistoricalMetrics) MetricsSummary {
	return MetricsSummary{
		TotalDocuments:    Total(m.DocumentsProcessed),
		TotalErrors:       Total(m.ErrorsOverTime),
		Trend:             Trend(m.DocumentsProcessed),
		AverageThroughput: roundHalfUp(Mean(m.ThroughputOverTime)),
	}
}

// Total sums the values of points.
func Total(points []MetricPoint) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	return sum
}

// Mean is the average value of points, 0 for an empty series.
func Mean(points []MetricPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	return Total(points) / float64(len(points))
}

// Trend is the rounded percentage change from the first half of points to
// the second half. The halves split at floor(n/2). A first half summing to
// zero yields 0. Halves round toward +Inf, so -2.5 is -2.
func Trend(points []MetricPoint) int {
	half := len(points) / 2
	first := Total(points[:half])
	second := Total(points[half:])
	if first == 0 {
		return 0
	}
	return int(roundHalfUp((second - first) / first * 100))
}

// roundHalfUp rounds to the nearest integer with ties toward +Inf.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
