package api

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gabiworld/pipewatch/dashboard/internal/derive"
	"github.com/gabiworld/pipewatch/dashboard/internal/state"
	"github.com/gabiworld/pipewatch/pkg/types"
)

// DiagnosticHint is one human-readable insight about a source's coverage.
// The UI displays these as chips on the source card; clicking one shows
// Detail.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip.
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

var levelRank = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// computeDiagnostics derives hints for one source. Hints are ordered
// critical first, then warnings, then info.
func computeDiagnostics(snap *state.Snapshot, src types.Source, cov derive.SourceCoverage) []DiagnosticHint {
	var hints []DiagnosticHint

	// ── Demo data ────────────────────────────────────────────────────────────
	if snap.Demo {
		detail := "The dashboard is showing built-in sample data, not your pipeline."
		if snap.FetchError != "" {
			detail += fmt.Sprintf(" The last attempt to reach the backend failed with: %q.", snap.FetchError)
		}
		hints = append(hints, DiagnosticHint{Key: "demo_data", Level: "info", Title: "Demo data", Detail: detail})
	}

	// ── Search index down ────────────────────────────────────────────────────
	if !snap.Stats.ElasticsearchAvailable {
		hints = append(hints, DiagnosticHint{
			Key:   "elasticsearch_unavailable",
			Level: "critical",
			Title: "Search index offline",
			Detail: "The backend reports Elasticsearch as unavailable. Synced documents " +
				"are stored but cannot be searched until the cluster is back.",
		})
	}

	if !src.Enabled {
		hints = append(hints, DiagnosticHint{
			Key:    "source_disabled",
			Level:  "info",
			Title:  "Source disabled",
			Detail: "This source is disabled in the backend. Its jobs will not progress until it is enabled again.",
		})
	}

	// ── Failing years ────────────────────────────────────────────────────────
	if n := len(cov.YearsWithErrors); n > 0 {
		level := "warning"
		if cov.CoveragePercent < 50 {
			level = "critical"
		}
		detail := fmt.Sprintf("Sync failed for %s.", joinYears(cov.YearsWithErrors))
		if msg := lastError(snap.Errors, src.ID); msg != "" {
			detail += fmt.Sprintf(" Most recent error: %q.", msg)
		}
		v := float64(n)
		hints = append(hints, DiagnosticHint{
			Key:    "sync_failed",
			Level:  level,
			Title:  fmt.Sprintf("%d failing %s", n, plural(n, "year", "years")),
			Detail: detail,
			Value:  &v,
		})
	}

	// ── In progress ──────────────────────────────────────────────────────────
	if syncing := syncingJobs(snap.Enriched, src.ID); len(syncing) > 0 {
		var sum int
		for _, j := range syncing {
			sum += j.Progress
		}
		v := float64(sum / len(syncing))
		hints = append(hints, DiagnosticHint{
			Key:    "syncing",
			Level:  "info",
			Title:  fmt.Sprintf("%d syncing", len(syncing)),
			Detail: fmt.Sprintf("%s currently syncing, about %.0f%% through on average.", strings.Join(yearsOf(syncing), ", "), v),
			Value:  &v,
		})
	}

	// ── Coverage ─────────────────────────────────────────────────────────────
	switch {
	case len(cov.YearsAvailable) == 0:
		hints = append(hints, DiagnosticHint{
			Key:    "no_jobs",
			Level:  "info",
			Title:  "No sync jobs",
			Detail: "The backend has not scheduled any year for this source yet.",
		})
	case src.Enabled && cov.CoveragePercent < 100:
		v := float64(cov.CoveragePercent)
		missing := len(cov.YearsAvailable) - len(cov.YearsSynced)
		hints = append(hints, DiagnosticHint{
			Key:   "partial_coverage",
			Level: "warning",
			Title: fmt.Sprintf("%d%% coverage", cov.CoveragePercent),
			Detail: fmt.Sprintf("%d of %d known years are synced; %d still missing.",
				len(cov.YearsSynced), len(cov.YearsAvailable), missing),
			Value: &v,
		})
	}

	// ── Index drift ──────────────────────────────────────────────────────────
	if src.Enabled && src.DocumentCount > 0 && snap.Stats.ElasticsearchAvailable {
		indexed, ok := snap.Jobs.ElasticIndexes[src.ID]
		switch {
		case !ok:
			hints = append(hints, DiagnosticHint{
				Key:    "index_missing",
				Level:  "warning",
				Title:  "Not indexed",
				Detail: fmt.Sprintf("The source holds %d documents but has no search index.", src.DocumentCount),
			})
		case indexed != src.DocumentCount:
			v := float64(src.DocumentCount - indexed)
			hints = append(hints, DiagnosticHint{
				Key:   "index_mismatch",
				Level: "warning",
				Title: "Index out of date",
				Detail: fmt.Sprintf("The source holds %d documents but the index has %d. "+
					"A re-index may be pending.", src.DocumentCount, indexed),
				Value: &v,
			})
		}
	}

	// ── All clear ────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		v := float64(cov.CoveragePercent)
		hints = append(hints, DiagnosticHint{
			Key:    "healthy",
			Level:  "ok",
			Title:  "All clear",
			Detail: fmt.Sprintf("All %d known years are synced and indexed.", len(cov.YearsAvailable)),
			Value:  &v,
		})
	}

	slices.SortStableFunc(hints, func(a, b DiagnosticHint) int {
		return levelRank[a.Level] - levelRank[b.Level]
	})
	return hints
}

func syncingJobs(jobs []derive.EnrichedJob, sourceID string) []derive.EnrichedJob {
	var out []derive.EnrichedJob
	for _, j := range jobs {
		if j.Source == sourceID && j.Status == types.StatusSyncing {
			out = append(out, j)
		}
	}
	return out
}

// lastError returns the message of the most recent error entry for sourceID.
func lastError(entries []derive.ErrorEntry, sourceID string) string {
	var (
		msg    string
		latest derive.ErrorEntry
	)
	for _, e := range entries {
		if e.Source != sourceID || e.IsResolved {
			continue
		}
		if msg == "" || e.Timestamp.After(latest.Timestamp.Time) {
			latest, msg = e, e.Message
		}
	}
	return msg
}

func yearsOf(jobs []derive.EnrichedJob) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = strconv.Itoa(j.Year)
	}
	return out
}

func joinYears(years []int) string {
	s := make([]string, len(years))
	for i, y := range years {
		s[i] = strconv.Itoa(y)
	}
	return strings.Join(s, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
