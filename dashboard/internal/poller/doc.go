// Package poller drives the fetch, derive and publish cycle.
//
// Run performs one cycle immediately and then one per tick. Cycles run on a
// single goroutine and never overlap, so the snapshot published is always the
// one from the newest fetch. When the primary source fails and a fallback is
// configured, the fallback dataset is published flagged as demo together with
// the primary error. Without a fallback the previous snapshot stays in place.
// There is no immediate retry; the next tick is the retry.
//
// The poller owns a health.Tracker: every primary fetch outcome feeds backend
// uptime, and each snapshot is scored before it is published.
package poller
