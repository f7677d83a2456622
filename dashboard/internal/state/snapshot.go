package state

import (
	"time"

	"github.com/gabiworld/pipewatch/dashboard/internal/derive"
	"github.com/gabiworld/pipewatch/dashboard/internal/health"
	"github.com/gabiworld/pipewatch/pkg/types"
)

// Snapshot is one poll's dataset together with every view derived from it.
type Snapshot struct {
	// Seq increases by one on every Put.
	Seq        uint64    `json:"seq"`
	FetchedAt  time.Time `json:"fetchedAt"`
	Demo       bool      `json:"demo"`
	FetchError string    `json:"fetchError,omitempty"`

	Stats types.StatsResponse `json:"stats"`
	Jobs  types.JobsResponse  `json:"jobs"`

	Enriched []derive.EnrichedJob    `json:"enrichedJobs"`
	Coverage []derive.SourceCoverage `json:"coverage"`
	Errors   []derive.ErrorEntry     `json:"errors"`
	Stages   []derive.StageSummary   `json:"stages"`
	Counts   derive.StatusCounts     `json:"statusCounts"`
	Overview derive.Overview         `json:"overview"`

	// Health is filled in by the poller, which owns the cross-poll state.
	Health health.Report `json:"health"`
}

// Build derives a Snapshot from ds. fetchErr, when non-nil, is the primary
// source failure that caused a demo dataset to be used.
func Build(ds *types.Dataset, demo bool, fetchErr error, now time.Time, newID derive.IDFunc) *Snapshot {
	enriched := derive.Enrich(ds.Jobs.SyncJobs)
	snap := &Snapshot{
		FetchedAt: now.UTC(),
		Demo:      demo,
		Stats:     ds.Stats,
		Jobs:      ds.Jobs,
		Enriched:  enriched,
		Coverage:  derive.Coverage(ds.Jobs.SyncJobs, ds.Stats.Sources),
		Errors:    derive.Errors(ds.Jobs.SyncJobs, now, newID),
		Stages:    derive.StageSummaries(enriched),
		Counts:    derive.CountStatuses(ds.Jobs.SyncJobs),
		Overview:  derive.BuildOverview(ds),
	}
	if fetchErr != nil {
		snap.FetchError = fetchErr.Error()
	}
	return snap
}

// SourceCoverage returns the coverage entry for id.
func (s *Snapshot) SourceCoverage(id string) (derive.SourceCoverage, bool) {
	for _, c := range s.Coverage {
		if c.SourceID == id {
			return c, true
		}
	}
	return derive.SourceCoverage{}, false
}

// FailedJobs is the number of jobs in the failed state.
func (s *Snapshot) FailedJobs() int { return s.Counts.Failed }

// HealthInput collects the score inputs from s. Coverage is averaged over
// enabled sources only; a dataset with none scores full coverage credit.
func (s *Snapshot) HealthInput(uptimePct float64) health.Input {
	enabled := make(map[string]bool, len(s.Stats.Sources))
	for _, src := range s.Stats.Sources {
		enabled[src.ID] = src.Enabled
	}
	var sum, n float64
	for _, c := range s.Coverage {
		if enabled[c.SourceID] {
			sum += float64(c.CoveragePercent)
			n++
		}
	}
	coverage := 100.0
	if n > 0 {
		coverage = sum / n
	}
	return health.Input{
		CoveragePct: coverage,
		FailedJobs:  s.Counts.Failed,
		TotalJobs:   len(s.Jobs.SyncJobs),
		IndexedDocs: s.Overview.IndexedDocuments,
		TotalDocs:   s.Overview.TotalDocuments,
		UptimePct:   uptimePct,
	}
}
