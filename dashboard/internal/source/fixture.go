package source

import (
	"context"
	"time"

	"github.com/gabiworld/pipewatch/pkg/types"
)

// Fixture serves the built-in demo dataset. It never fails.
type Fixture struct{}

// NewFixture returns the demo source.
func NewFixture() *Fixture { return &Fixture{} }

// Demo is always true for the fixture.
func (*Fixture) Demo() bool { return true }

// Fetch returns a fresh copy of the demo dataset.
func (*Fixture) Fetch(ctx context.Context) (*types.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FixtureDataset(), nil
}

// FixtureDataset builds the demo dataset: three TCU sources, one of them
// disabled, with one job in each non-terminal state and one failure.
func FixtureDataset() *types.Dataset {
	return &types.Dataset{
		Stats: types.StatsResponse{
			Sources: []types.Source{
				{ID: "tcu_acordaos", Description: "Acórdãos do TCU", SourceType: "csv_http", Enabled: true, DocumentCount: 497566},
				{ID: "tcu_decisoes", Description: "Decisões Normativas", SourceType: "csv_http", Enabled: true, DocumentCount: 12340},
				{ID: "tcu_sumulas", Description: "Súmulas do TCU", SourceType: "csv_http", Enabled: false, DocumentCount: 287},
			},
			TotalDocuments:         510193,
			ElasticsearchAvailable: true,
		},
		Jobs: types.JobsResponse{
			SyncJobs: []types.SyncJob{
				{Source: "tcu_acordaos", Year: 2024, Status: types.StatusSynced, UpdatedAt: fixtureTime(10, 30)},
				{Source: "tcu_acordaos", Year: 2023, Status: types.StatusSynced, UpdatedAt: fixtureTime(10, 28)},
				{Source: "tcu_acordaos", Year: 2022, Status: types.StatusSynced, UpdatedAt: fixtureTime(10, 25)},
				{Source: "tcu_acordaos", Year: 2021, Status: types.StatusSynced, UpdatedAt: fixtureTime(10, 22)},
				{Source: "tcu_acordaos", Year: 2020, Status: types.StatusSynced, UpdatedAt: fixtureTime(10, 20)},
				{Source: "tcu_decisoes", Year: 2024, Status: types.StatusSynced, UpdatedAt: fixtureTime(9, 45)},
				{
					Source: "tcu_decisoes", Year: 2023, Status: types.StatusSyncing, UpdatedAt: fixtureTime(9, 40),
					DocumentsProcessed: int64Ptr(1850), DocumentsTotal: int64Ptr(3700),
				},
				{
					Source: "tcu_decisoes", Year: 2022, Status: types.StatusFailed, UpdatedAt: fixtureTime(9, 12),
					ErrorMessage:       strPtr("download failed: HTTP 503 from portal.tcu.gov.br"),
					DocumentsProcessed: int64Ptr(410), DocumentsTotal: int64Ptr(1640), RetryCount: intPtr(2),
				},
				{Source: "tcu_sumulas", Year: 2024, Status: types.StatusQueued},
			},
			ElasticIndexes: map[string]int64{
				"tcu_acordaos": 497566,
				"tcu_decisoes": 12340,
			},
			TotalElasticDocs: 509906,
		},
	}
}

func fixtureTime(hour, min int) *types.Timestamp {
	return types.NewTimestamp(time.Date(2025, 1, 19, hour, min, 0, 0, time.UTC))
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
