package derive

import (
	"testing"

	"github.com/gabiworld/pipewatch/pkg/types"
)

// ptr returns a pointer to v.
func ptr[T any](v T) *T { return &v }

func job(source string, year int, status types.JobStatus) types.SyncJob {
	return types.SyncJob{Source: source, Year: year, Status: status}
}

func withDocs(j types.SyncJob, processed, total int64) types.SyncJob {
	j.DocumentsProcessed = ptr(processed)
	j.DocumentsTotal = ptr(total)
	return j
}

// --- Classify() table-driven tests ---

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		job       types.SyncJob
		wantStage types.Stage
		wantPct   int
		wantNext  types.Stage
	}{
		{"pending starts at harvest", job("a", 2024, types.StatusPending), types.StageHarvest, 0, types.StageSync},
		{"queued starts at harvest", job("a", 2024, types.StatusQueued), types.StageHarvest, 0, types.StageSync},
		{"synced is fully indexed", job("a", 2024, types.StatusSynced), types.StageIndex, 100, ""},
		{"synced ignores document counts", withDocs(job("a", 2024, types.StatusSynced), 1, 10), types.StageIndex, 100, ""},
		{"syncing with totals", withDocs(job("a", 2024, types.StatusSyncing), 50, 200), types.StageSync, 25, types.StageIngest},
		{"syncing without totals", job("a", 2024, types.StatusSyncing), types.StageSync, 50, types.StageIngest},
		{"syncing with zero total", withDocs(job("a", 2024, types.StatusSyncing), 0, 0), types.StageSync, 50, types.StageIngest},
		{"syncing complete has no next stage", withDocs(job("a", 2024, types.StatusSyncing), 200, 200), types.StageSync, 100, ""},
		{"failed with totals", withDocs(job("a", 2024, types.StatusFailed), 1, 3), types.StageSync, 33, types.StageIngest},
		{"failed without totals", job("a", 2024, types.StatusFailed), types.StageSync, 0, types.StageIngest},
		{"failed with zero total", withDocs(job("a", 2024, types.StatusFailed), 5, 0), types.StageSync, 0, types.StageIngest},
		{"rounds half up", withDocs(job("a", 2024, types.StatusSyncing), 1, 8), types.StageSync, 13, types.StageIngest},
		{"processed above total clamps", withDocs(job("a", 2024, types.StatusSyncing), 300, 200), types.StageSync, 100, ""},
		{"unknown status degrades to harvest", job("a", 2024, "archived"), types.StageHarvest, 0, types.StageSync},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.job)
			if got.CurrentStage != tc.wantStage {
				t.Errorf("CurrentStage = %q, want %q", got.CurrentStage, tc.wantStage)
			}
			if got.Progress != tc.wantPct {
				t.Errorf("Progress = %d, want %d", got.Progress, tc.wantPct)
			}
			if got.NextStage != tc.wantNext {
				t.Errorf("NextStage = %q, want %q", got.NextStage, tc.wantNext)
			}
		})
	}
}

func TestClassify_MissingProcessedCountsAsZero(t *testing.T) {
	j := job("a", 2024, types.StatusSyncing)
	j.DocumentsTotal = ptr[int64](100)
	if got := Classify(j).Progress; got != 0 {
		t.Errorf("Progress = %d, want 0", got)
	}
}

// --- Enrich ---

func TestEnrich_PreservesOrderAndFields(t *testing.T) {
	jobs := []types.SyncJob{
		job("b", 2023, types.StatusSynced),
		withDocs(job("a", 2024, types.StatusSyncing), 10, 40),
		job("c", 2022, types.StatusQueued),
	}
	out := Enrich(jobs)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	for i := range jobs {
		if out[i].Source != jobs[i].Source || out[i].Year != jobs[i].Year {
			t.Errorf("out[%d] = %s/%d, want %s/%d", i, out[i].Source, out[i].Year, jobs[i].Source, jobs[i].Year)
		}
	}
	if out[1].Progress != 25 || out[1].CurrentStage != types.StageSync {
		t.Errorf("out[1] = %+v", out[1])
	}
}

// --- Stage config ---

func TestStages_FixedOrder(t *testing.T) {
	got := Stages()
	if len(got) != 4 {
		t.Fatalf("len(Stages()) = %d, want 4", len(got))
	}
	for i, want := range types.StageOrder {
		if got[i].ID != want {
			t.Errorf("Stages()[%d].ID = %q, want %q", i, got[i].ID, want)
		}
	}
}

func TestStages_ReturnsCopy(t *testing.T) {
	s := Stages()
	s[0].Label = "mutated"
	if Stages()[0].Label != "Harvest" {
		t.Error("mutating the returned slice changed the stage table")
	}
}

func TestStageConfig_UnknownFallsBackToHarvest(t *testing.T) {
	if got := StageConfig("nope").ID; got != types.StageHarvest {
		t.Errorf("StageConfig(nope).ID = %q, want harvest", got)
	}
	if got := StageConfig(types.StageIndex).Label; got != "Index" {
		t.Errorf("StageConfig(index).Label = %q, want Index", got)
	}
}
