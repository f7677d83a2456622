package api

import (
	"bytes"
	"log/slog"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/gabiworld/pipewatch/dashboard/internal/derive"
	"github.com/gabiworld/pipewatch/dashboard/internal/state"
)

const metricPrefix = "pipewatch_"

// metrics returns GET /metrics: the latest snapshot as Prometheus gauges.
// Poller counters are exported even before the first snapshot.
func (h *Handler) metrics(w http.ResponseWriter, _ *http.Request) {
	var families []*dto.MetricFamily

	if h.poller != nil {
		families = append(families,
			counterFamily("poll_cycles_total", "Completed poll cycles.", float64(h.poller.Cycles())),
			counterFamily("poll_failures_total", "Poll cycles whose primary fetch failed.", float64(h.poller.Failures())),
		)
	}
	if h.alerts != nil {
		families = append(families, gaugeFamily("alerts_firing", "Alerts currently firing.", float64(h.alerts.Firing())))
	}
	if snap, ok := h.holder.Latest(); ok {
		families = append(families, snapshotFamilies(snap, h.holder.Age().Seconds())...)
	}

	var buf bytes.Buffer
	for _, mf := range families {
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			slog.Error("metrics: encode family", "family", mf.GetName(), "err", err)
			jsonErr(w, http.StatusInternalServerError, "metrics encoding failed")
			return
		}
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

func snapshotFamilies(snap *state.Snapshot, age float64) []*dto.MetricFamily {
	coverage := newFamily("source_coverage_percent", "Share of known years synced per source.", dto.MetricType_GAUGE)
	docs := newFamily("source_documents", "Documents per source from sync jobs.", dto.MetricType_GAUGE)
	failing := newFamily("source_failed_years", "Years whose last sync failed, per source.", dto.MetricType_GAUGE)
	for _, c := range snap.Coverage {
		coverage.Metric = append(coverage.Metric, gauge(float64(c.CoveragePercent), "source", c.SourceID))
		docs.Metric = append(docs.Metric,
			gauge(float64(c.SyncedDocuments), "source", c.SourceID, "kind", "synced"),
			gauge(float64(c.TotalDocuments), "source", c.SourceID, "kind", "total"),
		)
		failing.Metric = append(failing.Metric, gauge(float64(len(c.YearsWithErrors)), "source", c.SourceID))
	}

	jobs := newFamily("jobs", "Sync jobs per status; queued counts as pending.", dto.MetricType_GAUGE)
	jobs.Metric = append(jobs.Metric,
		gauge(float64(snap.Counts.Synced), "status", "synced"),
		gauge(float64(snap.Counts.Syncing), "status", "syncing"),
		gauge(float64(snap.Counts.Pending), "status", "pending"),
		gauge(float64(snap.Counts.Failed), "status", "failed"),
	)

	stages := newFamily("stage_jobs", "Sync jobs currently positioned in each pipeline stage.", dto.MetricType_GAUGE)
	for _, s := range snap.Stages {
		stages.Metric = append(stages.Metric, gauge(float64(s.Total), "stage", string(s.Stage)))
	}

	return []*dto.MetricFamily{
		coverage, docs, failing, jobs, stages,
		gaugeFamily("documents", "Total documents reported by the backend.", float64(snap.Overview.TotalDocuments)),
		gaugeFamily("documents_indexed", "Documents in the search index.", float64(snap.Overview.IndexedDocuments)),
		gaugeFamily("errors_active", "Unresolved error entries.", float64(len(derive.ActiveErrors(snap.Errors)))),
		gaugeFamily("elasticsearch_available", "1 when the backend reports the search index as reachable.", boolValue(snap.Stats.ElasticsearchAvailable)),
		gaugeFamily("demo_mode", "1 when the dashboard is serving sample data.", boolValue(snap.Demo)),
		gaugeFamily("snapshot_age_seconds", "Seconds since the latest snapshot was fetched.", age),
		gaugeFamily("health_score", "Composite pipeline health score, 0-100.", snap.Health.Score),
		gaugeFamily("backend_uptime_percent", "Share of recent backend fetches that succeeded.", snap.Health.UptimePct),
		gaugeFamily("documents_per_minute", "Live document ingest rate.", snap.Health.DocumentsPerMinute),
	}
}

func newFamily(name, help string, typ dto.MetricType) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: ptr(metricPrefix + name),
		Help: ptr(help),
		Type: typ.Enum(),
	}
}

func gaugeFamily(name, help string, v float64) *dto.MetricFamily {
	mf := newFamily(name, help, dto.MetricType_GAUGE)
	mf.Metric = []*dto.Metric{gauge(v)}
	return mf
}

func counterFamily(name, help string, v float64) *dto.MetricFamily {
	mf := newFamily(name, help, dto.MetricType_COUNTER)
	mf.Metric = []*dto.Metric{{Counter: &dto.Counter{Value: ptr(v)}}}
	return mf
}

// gauge builds one gauge sample; labels are name/value pairs.
func gauge(v float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: ptr(v)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{Name: ptr(labels[i]), Value: ptr(labels[i+1])})
	}
	return m
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func ptr[T any](v T) *T { return &v }
