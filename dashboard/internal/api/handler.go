package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gabiworld/pipewatch/dashboard/internal/alerts"
	"github.com/gabiworld/pipewatch/dashboard/internal/derive"
	"github.com/gabiworld/pipewatch/dashboard/internal/history"
	"github.com/gabiworld/pipewatch/dashboard/internal/poller"
	"github.com/gabiworld/pipewatch/dashboard/internal/state"
	"github.com/gabiworld/pipewatch/pkg/types"
)

// Options wires optional collaborators into the API. Zero values are valid:
// history falls back to synthetic series, alerts and poller counters are
// reported empty, and no authentication is applied.
type Options struct {
	History history.Provider
	Alerts  *alerts.Engine
	Poller  *poller.Poller

	// Auth wraps every /api/ route and the stream.
	Auth func(http.Handler) http.Handler
}

// Handler serves the dashboard REST API from the latest snapshot.
type Handler struct {
	holder  *state.Holder
	history history.Provider
	alerts  *alerts.Engine
	poller  *poller.Poller
	auth    func(http.Handler) http.Handler

	router chi.Router
	now    func() time.Time // injectable for deterministic tests
}

// New creates a Handler reading from holder and registers all routes.
func New(holder *state.Holder, opts Options) *Handler {
	if opts.History == nil {
		opts.History = history.Synthetic{}
	}
	if opts.Auth == nil {
		opts.Auth = func(next http.Handler) http.Handler { return next }
	}
	h := &Handler{
		holder:  holder,
		history: opts.History,
		alerts:  opts.Alerts,
		poller:  opts.Poller,
		auth:    opts.Auth,
		router:  chi.NewRouter(),
		now:     time.Now,
	}

	r := h.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", h.healthz)
	r.Get("/metrics", h.metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(opts.Auth)
		r.Get("/overview", h.overview)
		r.Get("/stats", h.stats)
		r.Get("/jobs/raw", h.rawJobs)
		r.Get("/jobs", h.jobs)
		r.Get("/coverage", h.listCoverage)
		r.Get("/coverage/{source}", h.getCoverage)
		r.Get("/errors", h.errors)
		r.Get("/stages", h.stages)
		r.Get("/history", h.historical)
		r.Get("/alerts", h.listAlerts)
		r.Get("/snapshot", h.snapshot)
	})
	return h
}

// MountStream serves stream at /ws/stream behind the API authentication.
func (h *Handler) MountStream(stream http.Handler) {
	h.router.With(h.auth).Handle("/ws/stream", stream)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"hasData": h.hasData(),
		"age":     h.holder.Age().Round(time.Second).String(),
	})
}

// overview returns GET /api/v1/overview: headline numbers and data freshness.
func (h *Handler) overview(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, h.buildOverview(snap))
}

// stats returns GET /api/v1/stats: the upstream stats payload.
func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, snap.Stats)
}

// rawJobs returns GET /api/v1/jobs/raw: the upstream jobs payload.
func (h *Handler) rawJobs(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, snap.Jobs)
}

// jobs returns GET /api/v1/jobs: enriched jobs, optionally filtered and sorted.
func (h *Handler) jobs(w http.ResponseWriter, r *http.Request) {
	status := types.JobStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		jsonErr(w, http.StatusBadRequest, "invalid status")
		return
	}
	sortBy := derive.SortKey(r.URL.Query().Get("sort"))
	switch sortBy {
	case "", derive.SortByDate, derive.SortBySource, derive.SortByStatus:
	default:
		jsonErr(w, http.StatusBadRequest, "invalid sort")
		return
	}

	snap, ok := h.latest(w)
	if !ok {
		return
	}
	out := derive.SortJobs(derive.FilterJobs(snap.Enriched, status), sortBy)
	jsonResp(w, http.StatusOK, JobsResponse{Jobs: out, Total: len(out), Counts: snap.Counts})
}

// listCoverage returns GET /api/v1/coverage: one entry per configured source.
func (h *Handler) listCoverage(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, buildCoverage(snap))
}

// getCoverage returns GET /api/v1/coverage/{source}.
func (h *Handler) getCoverage(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	id := chi.URLParam(r, "source")
	for i, src := range snap.Stats.Sources {
		if src.ID == id {
			jsonResp(w, http.StatusOK, toCoverageResponse(snap, src, snap.Coverage[i]))
			return
		}
	}
	jsonErr(w, http.StatusNotFound, "source not found")
}

// errors returns GET /api/v1/errors: unresolved error entries.
func (h *Handler) errors(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, derive.ActiveErrors(snap.Errors))
}

// stages returns GET /api/v1/stages: stage table and job counts per stage.
func (h *Handler) stages(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, StagesResponse{Stages: derive.Stages(), Summaries: snap.Stages})
}

// historical returns GET /api/v1/history?period=: chart series and summary.
// It does not depend on a snapshot.
func (h *Handler) historical(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("period")
	if raw == "" {
		raw = string(derive.Period24h)
	}
	p, err := derive.ParsePeriod(raw)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.history.Series(r.Context(), p, h.now())
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	jsonResp(w, http.StatusOK, HistoryResponse{HistoricalMetrics: m, Summary: derive.Summarize(m)})
}

// listAlerts returns GET /api/v1/alerts: firing and recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, activeAlerts(h.alerts))
}

// snapshot returns GET /api/v1/snapshot: the full dashboard document.
func (h *Handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	doc, ok := h.Document()
	if !ok {
		jsonErr(w, http.StatusServiceUnavailable, "no data yet")
		return
	}
	jsonResp(w, http.StatusOK, doc)
}

// Document builds the full dashboard document from the latest snapshot. It
// returns false before the first snapshot is published.
func (h *Handler) Document() (SnapshotResponse, bool) {
	snap, ok := h.holder.Latest()
	if !ok {
		return SnapshotResponse{}, false
	}
	return SnapshotResponse{
		Seq:         snap.Seq,
		Overview:    h.buildOverview(snap),
		Stats:       snap.Stats,
		Jobs:        snap.Enriched,
		Coverage:    buildCoverage(snap),
		Errors:      derive.ActiveErrors(snap.Errors),
		Stages:      snap.Stages,
		Alerts:      activeAlerts(h.alerts),
		GeneratedAt: h.now().UTC().Format(time.RFC3339),
	}, true
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// latest returns the held snapshot or writes 503.
func (h *Handler) latest(w http.ResponseWriter) (*state.Snapshot, bool) {
	snap, ok := h.holder.Latest()
	if !ok {
		jsonErr(w, http.StatusServiceUnavailable, "no data yet")
	}
	return snap, ok
}

func (h *Handler) hasData() bool {
	_, ok := h.holder.Latest()
	return ok
}

func (h *Handler) buildOverview(snap *state.Snapshot) OverviewResponse {
	firing := 0
	if h.alerts != nil {
		firing = h.alerts.Firing()
	}
	return OverviewResponse{
		Overview:     snap.Overview,
		Counts:       snap.Counts,
		ActiveErrors: len(derive.ActiveErrors(snap.Errors)),
		FiringAlerts: firing,
		Demo:         snap.Demo,
		FetchError:   snap.FetchError,
		LastUpdated:  snap.FetchedAt,
		Stale:        h.holder.Stale(h.now()),
		Health:       snap.Health,
	}
}

func buildCoverage(snap *state.Snapshot) []CoverageResponse {
	out := make([]CoverageResponse, 0, len(snap.Coverage))
	for i, src := range snap.Stats.Sources {
		out = append(out, toCoverageResponse(snap, src, snap.Coverage[i]))
	}
	return out
}

// toCoverageResponse joins a source's coverage with its upstream metadata.
func toCoverageResponse(snap *state.Snapshot, src types.Source, cov derive.SourceCoverage) CoverageResponse {
	resp := CoverageResponse{
		SourceCoverage: cov,
		Enabled:        src.Enabled,
		SourceType:     src.SourceType,
		DocumentCount:  src.DocumentCount,
		Diagnostics:    computeDiagnostics(snap, src, cov),
	}
	if n, ok := snap.Jobs.ElasticIndexes[src.ID]; ok {
		resp.IndexedDocuments = &n
	}
	return resp
}

func activeAlerts(e *alerts.Engine) []alerts.Alert {
	if e == nil {
		return []alerts.Alert{}
	}
	return e.Active()
}
