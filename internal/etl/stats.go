package etl

import (
	"sync/atomic"
	"time"
)

// RunStats counts what happened to every identifier handled by one fetch run.
type RunStats struct {
	fetched         atomic.Int64
	kept            atomic.Int64
	filtered        atomic.Int64
	rateLimited     atomic.Int64
	discarded       atomic.Int64
	batches         atomic.Int64
	publishFailures atomic.Int64

	startTime time.Time
}

func NewRunStats() *RunStats {
	return &RunStats{startTime: time.Now()}
}

// StatsSnapshot is a point-in-time copy of RunStats.
type StatsSnapshot struct {
	Fetched         int64   `json:"fetched"`
	Kept            int64   `json:"kept"`
	Filtered        int64   `json:"filtered"`
	RateLimited     int64   `json:"rate_limited"`
	Discarded       int64   `json:"discarded"`
	Batches         int64   `json:"batches"`
	PublishFailures int64   `json:"publish_failures"`
	Elapsed         string  `json:"elapsed"`
	Throughput      float64 `json:"ids_per_second"`
}

func (s *RunStats) Snapshot() StatsSnapshot {
	elapsed := time.Since(s.startTime)
	fetched := s.fetched.Load()

	var rate float64
	if elapsed.Seconds() > 0 {
		rate = float64(fetched) / elapsed.Seconds()
	}

	return StatsSnapshot{
		Fetched:         fetched,
		Kept:            s.kept.Load(),
		Filtered:        s.filtered.Load(),
		RateLimited:     s.rateLimited.Load(),
		Discarded:       s.discarded.Load(),
		Batches:         s.batches.Load(),
		PublishFailures: s.publishFailures.Load(),
		Elapsed:         elapsed.Round(time.Millisecond).String(),
		Throughput:      rate,
	}
}

// LogArgs flattens the snapshot into slog key/value pairs.
func (s StatsSnapshot) LogArgs() []any {
	return []any{
		"fetched", s.Fetched,
		"kept", s.Kept,
		"filtered", s.Filtered,
		"rate_limited", s.RateLimited,
		"discarded", s.Discarded,
		"batches", s.Batches,
		"publish_failures", s.PublishFailures,
		"elapsed", s.Elapsed,
		"ids_per_second", s.Throughput,
	}
}
