// Package health scores the ingestion pipeline as a whole.
//
// Compute turns coverage, failure ratio, index completeness and backend
// uptime into a 0–100 score and a healthy/degraded/critical state. Tracker
// carries the cross-poll state the score needs: a rolling window of fetch
// outcomes and the previous live document total, from which it derives the
// ingest rate in documents per minute.
package health
