package types

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// JobStatus is the raw state of one (source, year) sync job.
type JobStatus string

const (
	StatusSynced  JobStatus = "synced"
	StatusSyncing JobStatus = "syncing"
	StatusPending JobStatus = "pending"
	StatusQueued  JobStatus = "queued"
	StatusFailed  JobStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusSynced, StatusSyncing, StatusPending, StatusQueued, StatusFailed:
		return true
	}
	return false
}

// Stage is one of the four pipeline phases a document job passes through.
type Stage string

const (
	StageHarvest Stage = "harvest"
	StageSync    Stage = "sync"
	StageIngest  Stage = "ingest"
	StageIndex   Stage = "index"
)

// StageOrder is the fixed pipeline order.
var StageOrder = [4]Stage{StageHarvest, StageSync, StageIngest, StageIndex}

// Valid reports whether s is one of the four pipeline stages.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Index returns the position of s in StageOrder, or -1.
func (s Stage) Index() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the stage following s and false when s is the last stage
// or not a stage at all.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i == len(StageOrder)-1 {
		return "", false
	}
	return StageOrder[i+1], true
}

// backendLayouts are the timestamp layouts the ingestion backend is known to
// emit. Zone-less values are interpreted as UTC.
var backendLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Timestamp is a time.Time that decodes the backend's zone-less ISO format.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t, converted to UTC.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t.UTC()}
}

// ParseTimestamp parses s using any of the known backend layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range backendLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t.UTC()}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("types: unrecognised timestamp %q", s)
}

// UnmarshalJSON never fails: a value in an unknown layout decodes to the zero
// Timestamp, so one bad field does not reject the whole payload.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	*t = Timestamp{}
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		slog.Debug("types: ignoring non-string timestamp", "value", raw)
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		slog.Debug("types: ignoring timestamp", "err", err)
		return nil
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Source is one configured document source as reported by GET /stats.
type Source struct {
	ID            string `json:"id"`
	Description   string `json:"description"`
	SourceType    string `json:"source_type"`
	Enabled       bool   `json:"enabled"`
	DocumentCount int64  `json:"document_count"`
}

// SyncJob is the state of one (source, year) pair as reported by GET /jobs.
// Optional fields are nil when the backend omits them.
type SyncJob struct {
	Source             string     `json:"source"`
	Year               int        `json:"year"`
	Status             JobStatus  `json:"status"`
	UpdatedAt          *Timestamp `json:"updated_at"`
	ErrorMessage       *string    `json:"error_message,omitempty"`
	DocumentsProcessed *int64     `json:"documents_processed,omitempty"`
	DocumentsTotal     *int64     `json:"documents_total,omitempty"`
	RetryCount         *int       `json:"retry_count,omitempty"`
}

// UnmarshalJSON treats an unparseable updated_at as absent.
func (j *SyncJob) UnmarshalJSON(b []byte) error {
	type plain SyncJob
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.UpdatedAt != nil && p.UpdatedAt.IsZero() {
		p.UpdatedAt = nil
	}
	*j = SyncJob(p)
	return nil
}

// StatsResponse is the payload of GET /stats.
type StatsResponse struct {
	Sources                []Source `json:"sources"`
	TotalDocuments         int64    `json:"total_documents"`
	ElasticsearchAvailable bool     `json:"elasticsearch_available"`
}

// JobsResponse is the payload of GET /jobs.
type JobsResponse struct {
	SyncJobs         []SyncJob        `json:"sync_jobs"`
	ElasticIndexes   map[string]int64 `json:"elastic_indexes"`
	TotalElasticDocs int64            `json:"total_elastic_docs"`
}

// Dataset is the pair of payloads fetched in one poll cycle.
type Dataset struct {
	Stats StatsResponse
	Jobs  JobsResponse
}
