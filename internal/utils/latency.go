package utils

import (
	"math"
	"sort"
	"sync"
	"time"
)

const defaultLatencyWindow = 512

// LatencyTracker keeps the most recent duration samples in a ring and reports percentiles.
type LatencyTracker struct {
	mu    sync.Mutex
	ring  []time.Duration
	next  int
	full  bool
	total uint64
}

// LatencySummary is a point-in-time view of the tracked window.
type LatencySummary struct {
	Samples int
	Total   uint64
	P50     time.Duration
	P95     time.Duration
	P99     time.Duration
}

// NewLatencyTracker keeps up to window samples; window <= 0 uses 512.
func NewLatencyTracker(window int) *LatencyTracker {
	if window <= 0 {
		window = defaultLatencyWindow
	}
	return &LatencyTracker{ring: make([]time.Duration, window)}
}

// Observe records d, overwriting the oldest sample once the window is full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring[l.next] = d
	l.next = (l.next + 1) % len(l.ring)
	if l.next == 0 {
		l.full = true
	}
	l.total++
}

// Count returns the number of samples currently in the window.
func (l *LatencyTracker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size()
}

// Total returns the number of samples ever observed.
func (l *LatencyTracker) Total() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Percentile returns the nearest-rank p-th percentile (0-100) of the window, or zero when empty.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	return percentile(l.sorted(), p)
}

// Summary returns p50/p95/p99 from a single sorted snapshot.
func (l *LatencyTracker) Summary() LatencySummary {
	l.mu.Lock()
	total := l.total
	l.mu.Unlock()

	s := l.sorted()
	return LatencySummary{
		Samples: len(s),
		Total:   total,
		P50:     percentile(s, 50),
		P95:     percentile(s, 95),
		P99:     percentile(s, 99),
	}
}

func (l *LatencyTracker) size() int {
	if l.full {
		return len(l.ring)
	}
	return l.next
}

func (l *LatencyTracker) sorted() []time.Duration {
	l.mu.Lock()
	out := append([]time.Duration(nil), l.ring[:l.size()]...)
	l.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[n-1]
	}
	rank := int(math.Ceil(p / 100 * float64(n)))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
