package derive

import (
	"reflect"
	"testing"
	"time"

	"github.com/gabiworld/pipewatch/pkg/types"
)

func at(hour int) *types.Timestamp {
	return types.NewTimestamp(time.Date(2025, 1, 19, hour, 0, 0, 0, time.UTC))
}

func TestCoverage_SyncedAndFailedYears(t *testing.T) {
	jobs := []types.SyncJob{
		job("A", 2023, types.StatusSynced),
		job("A", 2022, types.StatusFailed),
	}
	sources := []types.Source{{ID: "A", Description: "Source A"}}

	got := Coverage(jobs, sources)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	c := got[0]
	if c.SourceID != "A" || c.SourceName != "Source A" {
		t.Errorf("id/name = %q/%q", c.SourceID, c.SourceName)
	}
	if !reflect.DeepEqual(c.YearsAvailable, []int{2023, 2022}) {
		t.Errorf("YearsAvailable = %v, want [2023 2022]", c.YearsAvailable)
	}
	if !reflect.DeepEqual(c.YearsSynced, []int{2023}) {
		t.Errorf("YearsSynced = %v, want [2023]", c.YearsSynced)
	}
	if !reflect.DeepEqual(c.YearsWithErrors, []int{2022}) {
		t.Errorf("YearsWithErrors = %v, want [2022]", c.YearsWithErrors)
	}
	if c.CoveragePercent != 50 {
		t.Errorf("CoveragePercent = %d, want 50", c.CoveragePercent)
	}
}

func TestCoverage_SourceWithoutJobs(t *testing.T) {
	got := Coverage(nil, []types.Source{{ID: "empty"}})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	c := got[0]
	if c.CoveragePercent != 0 {
		t.Errorf("CoveragePercent = %d, want 0", c.CoveragePercent)
	}
	if c.YearsAvailable == nil || len(c.YearsAvailable) != 0 {
		t.Errorf("YearsAvailable = %#v, want empty non-nil", c.YearsAvailable)
	}
	if c.LastSyncDate != nil {
		t.Errorf("LastSyncDate = %v, want nil", c.LastSyncDate)
	}
	if c.SourceName != "empty" {
		t.Errorf("SourceName = %q, want id fallback", c.SourceName)
	}
}

func TestCoverage_OneEntryPerSourceInOrder(t *testing.T) {
	jobs := []types.SyncJob{
		job("b", 2024, types.StatusSynced),
		job("stray", 2024, types.StatusSynced),
		job("a", 2024, types.StatusPending),
	}
	sources := []types.Source{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	got := Coverage(jobs, sources)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].SourceID != want {
			t.Errorf("got[%d].SourceID = %q, want %q", i, got[i].SourceID, want)
		}
	}
}

func TestCoverage_PercentRounding(t *testing.T) {
	tests := []struct {
		synced, total int
		want          int
	}{
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{5, 8, 63},
	}
	for _, tc := range tests {
		var jobs []types.SyncJob
		for y := 0; y < tc.total; y++ {
			status := types.StatusPending
			if y < tc.synced {
				status = types.StatusSynced
			}
			jobs = append(jobs, job("s", 2000+y, status))
		}
		got := Coverage(jobs, []types.Source{{ID: "s"}})[0].CoveragePercent
		if got != tc.want {
			t.Errorf("%d/%d synced: CoveragePercent = %d, want %d", tc.synced, tc.total, got, tc.want)
		}
	}
}

func TestCoverage_DuplicateYearsCountOnce(t *testing.T) {
	jobs := []types.SyncJob{
		job("s", 2024, types.StatusSynced),
		job("s", 2024, types.StatusSynced),
		job("s", 2023, types.StatusSyncing),
	}
	c := Coverage(jobs, []types.Source{{ID: "s"}})[0]
	if !reflect.DeepEqual(c.YearsAvailable, []int{2024, 2023}) {
		t.Errorf("YearsAvailable = %v", c.YearsAvailable)
	}
	if c.CoveragePercent != 50 {
		t.Errorf("CoveragePercent = %d, want 50", c.CoveragePercent)
	}
}

func TestCoverage_LastSyncDateAndTotals(t *testing.T) {
	j1 := withDocs(job("s", 2024, types.StatusSynced), 100, 100)
	j1.UpdatedAt = at(9)
	j2 := withDocs(job("s", 2023, types.StatusSyncing), 40, 80)
	j2.UpdatedAt = at(11)
	j3 := job("s", 2022, types.StatusPending) // no docs, no timestamp
	j4 := job("s", 2021, types.StatusQueued)
	j4.DocumentsTotal = ptr[int64](20)

	c := Coverage([]types.SyncJob{j1, j2, j3, j4}, []types.Source{{ID: "s"}})[0]

	if c.LastSyncDate == nil || !c.LastSyncDate.Equal(at(11).Time) {
		t.Errorf("LastSyncDate = %v, want %v", c.LastSyncDate, at(11))
	}
	if c.TotalDocuments != 200 {
		t.Errorf("TotalDocuments = %d, want 200", c.TotalDocuments)
	}
	if c.SyncedDocuments != 140 {
		t.Errorf("SyncedDocuments = %d, want 140", c.SyncedDocuments)
	}
}

func TestCoverage_Idempotent(t *testing.T) {
	j := job("s", 2024, types.StatusSynced)
	j.UpdatedAt = at(10)
	jobs := []types.SyncJob{j, job("s", 2023, types.StatusFailed), job("t", 2020, types.StatusSyncing)}
	sources := []types.Source{{ID: "s"}, {ID: "t"}, {ID: "u"}}

	first := Coverage(jobs, sources)
	second := Coverage(jobs, sources)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Coverage not idempotent:\n%+v\n%+v", first, second)
	}
}
