package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"math"
	"time"

	_ "modernc.org/sqlite" // Register sqlite driver

	"github.com/gabiworld/pipewatch/dashboard/internal/derive"
	"github.com/gabiworld/pipewatch/dashboard/internal/state"
)

//go:embed migrations/001_samples.sql
var migration string

// Sample is one recorded observation of the backend's counters.
type Sample struct {
	At         time.Time
	Documents  int64
	FailedJobs int
	SyncedJobs int
}

// SQLite records samples from live snapshots and aggregates them into series.
type SQLite struct {
	db        *sql.DB
	retention time.Duration
	now       func() time.Time // injectable for deterministic tests
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-process database.
func Open(path string, retention time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	// Each connection to :memory: is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: exec %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(migration); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}

	return &SQLite{db: db, retention: retention, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

// Record stores one sample. A sample with the same timestamp replaces the
// earlier one.
func (s *SQLite) Record(ctx context.Context, smp Sample) error {
	const query = `INSERT OR REPLACE INTO samples (ts, documents, failed_jobs, synced_jobs)
		VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, smp.At.UTC().UnixMilli(), smp.Documents, smp.FailedJobs, smp.SyncedJobs)
	if err != nil {
		return fmt.Errorf("history: record sample: %w", err)
	}
	return nil
}

// Observe records snap as a sample. Demo snapshots are skipped. It has the
// poller observer signature.
func (s *SQLite) Observe(snap *state.Snapshot) {
	if snap.Demo {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Record(ctx, Sample{
		At:         snap.FetchedAt,
		Documents:  snap.Stats.TotalDocuments,
		FailedJobs: snap.Counts.Failed,
		SyncedJobs: snap.Counts.Synced,
	})
	if err != nil {
		slog.Error("history: record failed", "seq", snap.Seq, "err", err)
	}
}

// Samples returns the samples recorded in [from, to), oldest first.
func (s *SQLite) Samples(ctx context.Context, from, to time.Time) ([]Sample, error) {
	const query = `SELECT ts, documents, failed_jobs, synced_jobs
		FROM samples
		WHERE ts >= ? AND ts < ?
		ORDER BY ts ASC`

	rows, err := s.db.QueryContext(ctx, query, from.UTC().UnixMilli(), to.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("history: list samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Sample
	for rows.Next() {
		smp, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}

// baseline returns the newest sample strictly before t.
func (s *SQLite) baseline(ctx context.Context, t time.Time) (Sample, bool, error) {
	const query = `SELECT ts, documents, failed_jobs, synced_jobs
		FROM samples
		WHERE ts < ?
		ORDER BY ts DESC
		LIMIT 1`

	smp, err := scanSample(s.db.QueryRowContext(ctx, query, t.UTC().UnixMilli()))
	if err == sql.ErrNoRows {
		return Sample{}, false, nil
	}
	if err != nil {
		return Sample{}, false, err
	}
	return smp, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSample(row scanner) (Sample, error) {
	var ms int64
	var smp Sample
	if err := row.Scan(&ms, &smp.Documents, &smp.FailedJobs, &smp.SyncedJobs); err != nil {
		if err == sql.ErrNoRows {
			return Sample{}, err
		}
		return Sample{}, fmt.Errorf("history: scan sample: %w", err)
	}
	smp.At = time.UnixMilli(ms).UTC()
	return smp, nil
}

// Series implements Provider.
//
// documentsProcessed sums the positive document-count deltas between
// consecutive samples, attributed to the bucket of the later sample. A
// decrease is a counter reset and contributes nothing. errorsOverTime is the
// highest failed-job count seen in the bucket. throughputOverTime is
// documents per minute of bucket width.
func (s *SQLite) Series(ctx context.Context, p derive.Period, now time.Time) (derive.HistoricalMetrics, error) {
	m := derive.NewHistoricalMetrics(p, now)
	step := p.Step()
	first := m.DocumentsProcessed[0].Timestamp
	end := m.DocumentsProcessed[len(m.DocumentsProcessed)-1].Timestamp.Add(step)

	prev, havePrev, err := s.baseline(ctx, first)
	if err != nil {
		return m, err
	}
	samples, err := s.Samples(ctx, first, end)
	if err != nil {
		return m, err
	}

	for _, smp := range samples {
		i := int(smp.At.Sub(first) / step)
		if i < 0 || i >= len(m.DocumentsProcessed) {
			continue
		}
		if havePrev {
			if d := smp.Documents - prev.Documents; d > 0 {
				m.DocumentsProcessed[i].Value += float64(d)
			}
		}
		if v := float64(smp.FailedJobs); v > m.ErrorsOverTime[i].Value {
			m.ErrorsOverTime[i].Value = v
		}
		prev, havePrev = smp, true
	}

	minutes := step.Minutes()
	for i, pt := range m.DocumentsProcessed {
		m.ThroughputOverTime[i].Value = math.Round(pt.Value / minutes)
	}
	return m, nil
}

// Prune deletes samples older than before and returns how many were removed.
func (s *SQLite) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM samples WHERE ts < ?`, before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Run prunes samples past the retention window until ctx is cancelled. It
// ticks at a tenth of the retention, clamped to [1m, 1h].
func (s *SQLite) Run(ctx context.Context) {
	if s.retention <= 0 {
		return
	}
	interval := min(max(s.retention/10, time.Minute), time.Hour)
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Prune(ctx, s.now().Add(-s.retention))
			if err != nil {
				slog.Error("history: prune failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Debug("history: pruned samples", "count", n)
			}
		}
	}
}
