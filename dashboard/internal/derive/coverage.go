package derive

import (
	"math"
	"slices"

	"github.com/gabiworld/pipewatch/pkg/types"
)

// SourceCoverage is the per-source year coverage derived from one poll.
type SourceCoverage struct {
	SourceID        string           `json:"sourceId"`
	SourceName      string           `json:"sourceName"`
	YearsAvailable  []int            `json:"yearsAvailable"`
	YearsSynced     []int            `json:"yearsSynced"`
	YearsWithErrors []int            `json:"yearsWithErrors"`
	CoveragePercent int              `json:"coveragePercent"`
	LastSyncDate    *types.Timestamp `json:"lastSyncDate"`
	TotalDocuments  int64            `json:"totalDocuments"`
	SyncedDocuments int64            `json:"syncedDocuments"`
}

// Coverage produces exactly one SourceCoverage per configured source, in
// source order. A source without jobs reports 0% with empty year lists.
// Jobs whose source is not configured are ignored.
func Coverage(jobs []types.SyncJob, sources []types.Source) []SourceCoverage {
	bySource := make(map[string][]types.SyncJob, len(sources))
	for _, j := range jobs {
		bySource[j.Source] = append(bySource[j.Source], j)
	}

	out := make([]SourceCoverage, 0, len(sources))
	for _, src := range sources {
		out = append(out, sourceCoverage(src, bySource[src.ID]))
	}
	return out
}

func sourceCoverage(src types.Source, jobs []types.SyncJob) SourceCoverage {
	name := src.Description
	if name == "" {
		name = src.ID
	}
	sc := SourceCoverage{SourceID: src.ID, SourceName: name}

	available := make(map[int]struct{})
	synced := make(map[int]struct{})
	failed := make(map[int]struct{})

	for _, j := range jobs {
		available[j.Year] = struct{}{}
		switch j.Status {
		case types.StatusSynced:
			synced[j.Year] = struct{}{}
		case types.StatusFailed:
			failed[j.Year] = struct{}{}
		}

		if j.UpdatedAt != nil && (sc.LastSyncDate == nil || j.UpdatedAt.After(sc.LastSyncDate.Time)) {
			ts := *j.UpdatedAt
			sc.LastSyncDate = &ts
		}
		if j.DocumentsTotal != nil {
			sc.TotalDocuments += *j.DocumentsTotal
		}
		if j.DocumentsProcessed != nil {
			sc.SyncedDocuments += *j.DocumentsProcessed
		}
	}

	sc.YearsAvailable = yearsDesc(available)
	sc.YearsSynced = yearsDesc(synced)
	sc.YearsWithErrors = yearsDesc(failed)

	if n := len(sc.YearsAvailable); n > 0 {
		sc.CoveragePercent = int(math.Round(float64(len(sc.YearsSynced)) / float64(n) * 100))
	}
	return sc
}

// yearsDesc returns the keys of set sorted newest first. Never nil, so the
// JSON encoding is [] rather than null.
func yearsDesc(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for y := range set {
		out = append(out, y)
	}
	slices.Sort(out)
	slices.Reverse(out)
	return out
}
