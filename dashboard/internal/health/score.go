package health

// Weight constants for the health score formula.
// They must sum to 1.0.
const (
	weightCoverage = 0.40
	weightErrors   = 0.30
	weightIndex    = 0.20
	weightUptime   = 0.10
)

// State constants returned by the score calculator.
const (
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateCritical = "critical"
	StateUnknown  = "unknown"
)

// Thresholds that map a score to a health state.
const (
	ThresholdHealthy  = 85.0
	ThresholdDegraded = 60.0
)

// Input holds the values fed into the health score formula.
type Input struct {
	// CoveragePct is the mean coverage of the enabled sources, 0–100.
	CoveragePct float64

	// FailedJobs out of TotalJobs are in the failed state.
	FailedJobs int
	TotalJobs  int

	// IndexedDocs out of TotalDocs are searchable. When TotalDocs is 0 the
	// index factor gets full credit.
	IndexedDocs int64
	TotalDocs   int64

	// UptimePct is the share of recent poll cycles whose primary fetch
	// succeeded, 0–100.
	UptimePct float64
}

// Output is the result of the health score calculation.
type Output struct {
	// Score is the composite health score in the range 0–100.
	Score float64 `json:"score"`

	// State is one of "healthy", "degraded", "critical", "unknown".
	State string `json:"state"`

	// The four factor values (each 0–1) used to compute Score.
	CoverageFactor float64 `json:"coverageFactor"`
	ErrorFactor    float64 `json:"errorFactor"`
	IndexFactor    float64 `json:"indexFactor"`
	UptimeFactor   float64 `json:"uptimeFactor"`
}

// Compute calculates the pipeline health score:
//
//	score = (
//	    coverage_pct/100            * 0.40  +
//	    (1 - failed_jobs/jobs)      * 0.30  +
//	    indexed_docs/total_docs     * 0.20  +
//	    uptime_pct/100              * 0.10
//	) * 100
//
// With no jobs and no successful fetch the state is "unknown".
func Compute(in Input) Output {
	if in.TotalJobs == 0 && in.UptimePct == 0 {
		return Output{State: StateUnknown}
	}

	coverageFactor := clamp01(in.CoveragePct / 100)

	errorFactor := 1.0
	if in.TotalJobs > 0 {
		errorFactor = 1 - clamp01(float64(in.FailedJobs)/float64(in.TotalJobs))
	}

	indexFactor := 1.0
	if in.TotalDocs > 0 {
		indexFactor = clamp01(float64(in.IndexedDocs) / float64(in.TotalDocs))
	}

	uptimeFactor := clamp01(in.UptimePct / 100)

	score := (coverageFactor*weightCoverage +
		errorFactor*weightErrors +
		indexFactor*weightIndex +
		uptimeFactor*weightUptime) * 100

	return Output{
		Score:          score,
		State:          stateFromScore(score),
		CoverageFactor: coverageFactor,
		ErrorFactor:    errorFactor,
		IndexFactor:    indexFactor,
		UptimeFactor:   uptimeFactor,
	}
}

// stateFromScore maps a numeric score to a named health state.
func stateFromScore(score float64) string {
	switch {
	case score >= ThresholdHealthy:
		return StateHealthy
	case score >= ThresholdDegraded:
		return StateDegraded
	default:
		return StateCritical
	}
}

// clamp01 restricts v to the range [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
