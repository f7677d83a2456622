// Package history supplies the time series behind the history charts.
//
// Provider.Series returns a derive.HistoricalMetrics for a period. Two
// providers exist: Synthetic generates deterministic chart data, SQLite
// aggregates samples recorded from live snapshots. Both return exactly
// Period.Points() points per series on the same bucket boundaries.
package history
