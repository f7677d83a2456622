// Package derive turns one poll's raw backend payloads into dashboard views.
//
// Everything here is pure and synchronous: the same inputs always produce the
// same outputs, nothing is cached between calls, and no function returns an
// error. Missing or corrupt upstream values are replaced with documented
// defaults so a bad record lowers a percentage instead of breaking a page.
//
// stage.go    — Classify/Enrich: raw status → (stage, progress, next stage),
// plus the fixed four-stage PipelineStageConfig table.
// coverage.go — Coverage: per-source year coverage and document totals.
// errors.go   — Errors: failed jobs → ErrorEntry list, input order preserved.
// metrics.go  — Synthesize/Summarize: chart series for 24h | 7d | 30d and the
// summary-card numbers computed from them.
// listing.go  — stage summaries, status counts, job filter/sort, overview.
package derive
