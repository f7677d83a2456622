package derive

import (
	"slices"
	"strings"

	"github.com/gabiworld/pipewatch/pkg/types"
)

// StageSummary counts the jobs currently positioned in one stage.
type StageSummary struct {
	Stage     types.Stage `json:"stage"`
	Label     string      `json:"label"`
	Total     int         `json:"total"`
	Active    int         `json:"active"`
	Failed    int         `json:"failed"`
	Completed int         `json:"completed"`
	Pending   int         `json:"pending"`
}

// StageSummaries groups jobs by current stage, one entry per stage in
// pipeline order.
func StageSummaries(jobs []EnrichedJob) []StageSummary {
	out := make([]StageSummary, len(pipelineStages))
	for i, cfg := range pipelineStages {
		out[i] = StageSummary{Stage: cfg.ID, Label: cfg.Label}
	}
	for _, j := range jobs {
		i := j.CurrentStage.Index()
		if i < 0 {
			continue
		}
		s := &out[i]
		s.Total++
		switch j.Status {
		case types.StatusSyncing:
			s.Active++
		case types.StatusFailed:
			s.Failed++
		case types.StatusSynced:
			s.Completed++
		case types.StatusPending, types.StatusQueued:
			s.Pending++
		}
	}
	return out
}

// StatusCounts is the number of jobs per status filter. Queued jobs count as
// pending.
type StatusCounts struct {
	Synced  int `json:"synced"`
	Syncing int `json:"syncing"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

// CountStatuses tallies jobs by status.
func CountStatuses(jobs []types.SyncJob) StatusCounts {
	var c StatusCounts
	for _, j := range jobs {
		switch j.Status {
		case types.StatusSynced:
			c.Synced++
		case types.StatusSyncing:
			c.Syncing++
		case types.StatusFailed:
			c.Failed++
		case types.StatusPending, types.StatusQueued:
			c.Pending++
		}
	}
	return c
}

// SortKey orders a job listing.
type SortKey string

const (
	SortByDate   SortKey = "date"
	SortBySource SortKey = "source"
	SortByStatus SortKey = "status"
)

// FilterJobs keeps the jobs whose status matches. An empty status keeps
// everything; pending also matches queued.
func FilterJobs(jobs []EnrichedJob, status types.JobStatus) []EnrichedJob {
	out := make([]EnrichedJob, 0, len(jobs))
	for _, j := range jobs {
		switch {
		case status == "",
			j.Status == status,
			status == types.StatusPending && j.Status == types.StatusQueued:
			out = append(out, j)
		}
	}
	return out
}

// SortJobs returns a stably sorted copy of jobs. Date sorts newest first
// with undated jobs last; unknown keys fall back to date.
func SortJobs(jobs []EnrichedJob, by SortKey) []EnrichedJob {
	out := slices.Clone(jobs)
	if out == nil {
		out = []EnrichedJob{}
	}
	switch by {
	case SortBySource:
		slices.SortStableFunc(out, func(a, b EnrichedJob) int {
			return strings.Compare(a.Source, b.Source)
		})
	case SortByStatus:
		slices.SortStableFunc(out, func(a, b EnrichedJob) int {
			return strings.Compare(string(a.Status), string(b.Status))
		})
	default:
		slices.SortStableFunc(out, func(a, b EnrichedJob) int {
			switch {
			case a.UpdatedAt == nil && b.UpdatedAt == nil:
				return 0
			case a.UpdatedAt == nil:
				return 1
			case b.UpdatedAt == nil:
				return -1
			}
			return b.UpdatedAt.Compare(a.UpdatedAt.Time)
		})
	}
	return out
}

// Overview is the headline numbers of the dashboard.
type Overview struct {
	TotalDocuments         int64 `json:"totalDocuments"`
	IndexedDocuments       int64 `json:"indexedDocuments"`
	SourceCount            int   `json:"sourceCount"`
	JobCount               int   `json:"jobCount"`
	ElasticsearchAvailable bool  `json:"elasticsearchAvailable"`
}

// BuildOverview reads the headline numbers off a dataset.
func BuildOverview(ds *types.Dataset) Overview {
	if ds == nil {
		return Overview{}
	}
	return Overview{
		TotalDocuments:         ds.Stats.TotalDocuments,
		IndexedDocuments:       ds.Jobs.TotalElasticDocs,
		SourceCount:            len(ds.Stats.Sources),
		JobCount:               len(ds.Jobs.SyncJobs),
		ElasticsearchAvailable: ds.Stats.ElasticsearchAvailable,
	}
}
