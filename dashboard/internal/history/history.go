package history

import (
	"context"
	"fmt"
	"time"

	"github.com/gabiworld/pipewatch/dashboard/internal/config"
	"github.com/gabiworld/pipewatch/dashboard/internal/derive"
)

// Provider returns chart series for a period ending at now.
type Provider interface {
	Series(ctx context.Context, p derive.Period, now time.Time) (derive.HistoricalMetrics, error)
}

// Synthetic generates series without any stored data.
type Synthetic struct{}

// Series implements Provider.
func (Synthetic) Series(_ context.Context, p derive.Period, now time.Time) (derive.HistoricalMetrics, error) {
	return derive.Synthesize(p, now), nil
}

// New returns the provider selected by cfg.Backend. The returned *SQLite is
// nil unless the sqlite backend is configured; the caller owns closing it.
func New(cfg config.HistoryConfig) (Provider, *SQLite, error) {
	switch cfg.Backend {
	case config.HistorySynthetic, "":
		return Synthetic{}, nil, nil
	case config.HistorySQLite:
		s, err := Open(cfg.Path, cfg.Retention)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("history: unknown backend %q", cfg.Backend)
	}
}
