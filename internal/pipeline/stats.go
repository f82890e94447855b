package pipeline

import (
	"slices"
	"sync"
	"time"
)

type parseSample struct {
	at     time.Time
	format string
	ms     int64
}

// LatencySnapshot aggregates parse latencies in milliseconds.
type LatencySnapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// StatsSnapshot is the overall aggregate plus one per file format.
type StatsSnapshot struct {
	WindowSeconds int64                      `json:"window_seconds"`
	Overall       LatencySnapshot            `json:"overall"`
	ByFormat      map[string]LatencySnapshot `json:"by_format"`
}

// Stats keeps parse latencies seen within a rolling window.
type Stats struct {
	mu      sync.Mutex
	samples []parseSample
	maxAge  time.Duration
	now     func() time.Time
}

func NewStats(maxAge time.Duration) *Stats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Stats{
		samples: make([]parseSample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one parse of the given format (file extension).
func (s *Stats) Record(format string, d time.Duration) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, parseSample{at: now, format: format, ms: ms})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	all := make([]int64, 0, len(s.samples))
	byFormat := make(map[string][]int64)
	for _, sm := range s.samples {
		all = append(all, sm.ms)
		byFormat[sm.format] = append(byFormat[sm.format], sm.ms)
	}

	snap := StatsSnapshot{
		WindowSeconds: int64(s.maxAge / time.Second),
		Overall:       aggregate(all),
		ByFormat:      make(map[string]LatencySnapshot, len(byFormat)),
	}
	for format, values := range byFormat {
		snap.ByFormat[format] = aggregate(values)
	}
	return snap
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	s.samples = slices.DeleteFunc(s.samples, func(sm parseSample) bool {
		return sm.at.Before(cutoff)
	})
}

func aggregate(values []int64) LatencySnapshot {
	if len(values) == 0 {
		return LatencySnapshot{}
	}
	slices.Sort(values)
	var sum int64
	for _, v := range values {
		sum += v
	}
	return LatencySnapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(index-float64(lower))
}
