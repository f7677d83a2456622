package api

import (
	"time"

	"github.com/gabiworld/pipewatch/dashboard/internal/alerts"
	"github.com/gabiworld/pipewatch/dashboard/internal/derive"
	"github.com/gabiworld/pipewatch/dashboard/internal/health"
	"github.com/gabiworld/pipewatch/pkg/types"
)

// OverviewResponse is the payload for GET /api/v1/overview.
type OverviewResponse struct {
	derive.Overview
	Counts       derive.StatusCounts `json:"statusCounts"`
	ActiveErrors int                 `json:"activeErrors"`
	FiringAlerts int                 `json:"firingAlerts"`
	Demo         bool                `json:"demo"`
	FetchError   string              `json:"fetchError,omitempty"`
	LastUpdated  time.Time           `json:"lastUpdated"`
	Stale        bool                `json:"stale"`
	Health       health.Report       `json:"health"`
}

// JobsResponse is the payload for GET /api/v1/jobs.
type JobsResponse struct {
	Jobs   []derive.EnrichedJob `json:"jobs"`
	Total  int                  `json:"total"`
	Counts derive.StatusCounts  `json:"statusCounts"`
}

// CoverageResponse is one source entry in GET /api/v1/coverage or
// GET /api/v1/coverage/{source}.
type CoverageResponse struct {
	derive.SourceCoverage
	Enabled          bool             `json:"enabled"`
	SourceType       string           `json:"sourceType"`
	DocumentCount    int64            `json:"documentCount"`
	IndexedDocuments *int64           `json:"indexedDocuments"`
	Diagnostics      []DiagnosticHint `json:"diagnostics"`
}

// StagesResponse is the payload for GET /api/v1/stages.
type StagesResponse struct {
	Stages    []derive.PipelineStageConfig `json:"stages"`
	Summaries []derive.StageSummary        `json:"summaries"`
}

// HistoryResponse is the payload for GET /api/v1/history.
type HistoryResponse struct {
	derive.HistoricalMetrics
	Summary derive.MetricsSummary `json:"summary"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the data of
// every WebSocket message.
type SnapshotResponse struct {
	Seq         uint64                `json:"seq"`
	Overview    OverviewResponse      `json:"overview"`
	Stats       types.StatsResponse   `json:"stats"`
	Jobs        []derive.EnrichedJob  `json:"jobs"`
	Coverage    []CoverageResponse    `json:"coverage"`
	Errors      []derive.ErrorEntry   `json:"errors"`
	Stages      []derive.StageSummary `json:"stages"`
	Alerts      []alerts.Alert        `json:"alerts"`
	GeneratedAt string                `json:"generatedAt"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
