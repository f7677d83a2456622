// Package api implements the HTTP REST API for the pipewatch dashboard.
//
// New(holder, opts) returns an http.Handler that serves:
//
//	GET /api/v1/overview            — headline numbers, demo and stale flags
//	GET /api/v1/stats               — upstream GET /stats payload, verbatim
//	GET /api/v1/jobs/raw            — upstream GET /jobs payload, verbatim
//	GET /api/v1/jobs                — enriched jobs; ?status= filter, ?sort=date|source|status
//	GET /api/v1/coverage            — per-source coverage with diagnostics
//	GET /api/v1/coverage/{source}   — one source; 404 if not configured
//	GET /api/v1/errors              — unresolved error entries
//	GET /api/v1/stages              — stage table and per-stage job counts
//	GET /api/v1/history?period=     — 24h | 7d | 30d series and summary; 400 otherwise
//	GET /api/v1/alerts              — firing and recently resolved alerts
//	GET /api/v1/snapshot            — all of the above in one document
//	GET /metrics                    — Prometheus text exposition
//	GET /healthz                    — liveness
//
// Routes under /api/ and the stream attached with MountStream (/ws/stream)
// sit behind Options.Auth. Until the first snapshot is published every
// snapshot-backed route answers 503 {"error":"no data yet"}.
//
// JSON types are defined in types.go.
package api
