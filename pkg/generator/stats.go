package generator

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

type counters struct {
	ticks       atomic.Int64
	impressions atomic.Int64
	clicks      atomic.Int64
}

// Stats is a point-in-time view of the loop counters.
type Stats struct {
	Ticks       int64 `json:"ticks"`
	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("ticks", s.Ticks),
		slog.Int64("impressions", s.Impressions),
		slog.Int64("clicks", s.Clicks),
	)
}

// Stats returns the current counters. Safe to call from any goroutine.
func (l *Loop) Stats() Stats {
	return Stats{
		Ticks:       l.stats.ticks.Load(),
		Impressions: l.stats.impressions.Load(),
		Clicks:      l.stats.clicks.Load(),
	}
}

const defaultReportInterval = 10 * time.Second

// ReportThroughput logs impressions and clicks per interval until ctx is done.
// A non-positive interval falls back to 10s.
func ReportThroughput(ctx context.Context, l *Loop, interval time.Duration) {
	if interval <= 0 {
		interval = defaultReportInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last Stats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := l.Stats()
			l.logger.Info("generator throughput",
				"impressions/sec", float64(cur.Impressions-last.Impressions)/interval.Seconds(),
				"clicks/sec", float64(cur.Clicks-last.Clicks)/interval.Seconds(),
				"total_impressions", cur.Impressions,
				"total_clicks", cur.Clicks,
			)
			last = cur
		}
	}
}
