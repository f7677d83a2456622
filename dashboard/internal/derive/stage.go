package derive

import (
	"math"

	"github.com/gabiworld/pipewatch/pkg/types"
)

// Fallback progress values used when a job carries no usable document totals.
const (
	syncingFallbackProgress = 50
	failedFallbackProgress  = 0
)

// PipelineStageConfig is the display metadata for one pipeline stage.
type PipelineStageConfig struct {
	ID          types.Stage `json:"id"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
	Color       string      `json:"color"`
}

var pipelineStages = [len(types.StageOrder)]PipelineStageConfig{
	{ID: types.StageHarvest, Label: "Harvest", Description: "Download CSV files", Color: "hsl(217, 91%, 60%)"},
	{ID: types.StageSync, Label: "Sync", Description: "PostgreSQL sync", Color: "hsl(262, 83%, 58%)"},
	{ID: types.StageIngest, Label: "Ingest", Description: "Process & parse", Color: "hsl(142, 76%, 36%)"},
	{ID: types.StageIndex, Label: "Index", Description: "Elasticsearch", Color: "hsl(45, 93%, 47%)"},
}

// Stages returns a copy of the four stage configs in pipeline order.
func Stages() []PipelineStageConfig {
	out := make([]PipelineStageConfig, len(pipelineStages))
	copy(out, pipelineStages[:])
	return out
}

// StageConfig returns the config for id, or the harvest config for an
// unknown id.
func StageConfig(id types.Stage) PipelineStageConfig {
	if i := id.Index(); i >= 0 {
		return pipelineStages[i]
	}
	return pipelineStages[0]
}

// Classification is the derived pipeline position of one job.
type Classification struct {
	CurrentStage types.Stage
	Progress     int
	// NextStage is empty when the job is complete or already at the last stage.
	NextStage types.Stage
}

// Classify maps a job's raw status to its pipeline stage and progress.
//
//	pending, queued → harvest, 0
//	syncing         → sync, processed/total (50 when totals are unusable)
//	synced          → index, 100
//	failed          → sync, processed/total (0 when totals are unusable)
//
// Statuses outside the known set are treated like pending.
func Classify(job types.SyncJob) Classification {
	var c Classification
	switch job.Status {
	case types.StatusSyncing:
		c.CurrentStage = types.StageSync
		c.Progress = documentProgress(job, syncingFallbackProgress)
	case types.StatusSynced:
		c.CurrentStage = types.StageIndex
		c.Progress = 100
	case types.StatusFailed:
		c.CurrentStage = types.StageSync
		c.Progress = documentProgress(job, failedFallbackProgress)
	case types.StatusPending, types.StatusQueued:
		c.CurrentStage = types.StageHarvest
	default:
		c.CurrentStage = types.StageHarvest
	}

	if c.Progress < 100 {
		if next, ok := c.CurrentStage.Next(); ok {
			c.NextStage = next
		}
	}
	return c
}

// documentProgress returns round(processed/total*100) clamped to [0, 100], or
// fallback when the total is absent or not positive.
func documentProgress(job types.SyncJob, fallback int) int {
	if job.DocumentsTotal == nil || *job.DocumentsTotal <= 0 {
		return fallback
	}
	var processed int64
	if job.DocumentsProcessed != nil {
		processed = *job.DocumentsProcessed
	}
	pct := int(math.Round(float64(processed) / float64(*job.DocumentsTotal) * 100))
	return clampPct(pct)
}

func clampPct(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// EnrichedJob is a SyncJob augmented with its derived pipeline position.
type EnrichedJob struct {
	types.SyncJob
	CurrentStage types.Stage `json:"currentStage"`
	Progress     int         `json:"progress"`
	NextStage    types.Stage `json:"nextStage,omitempty"`
}

// Enrich classifies every job, preserving input order.
func Enrich(jobs []types.SyncJob) []EnrichedJob {
	out := make([]EnrichedJob, 0, len(jobs))
	for _, j := range jobs {
		c := Classify(j)
		out = append(out, EnrichedJob{
			SyncJob:      j,
			CurrentStage: c.CurrentStage,
			Progress:     c.Progress,
			NextStage:    c.NextStage,
		})
	}
	return out
}
