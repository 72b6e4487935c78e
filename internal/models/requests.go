package models

import "time"

// TimeRange bounds a window in wall-clock time.
type TimeRange struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// MatrixQuery asks a metric source for a sampled matrix.
type MatrixQuery struct {
	TestID  string
	Metrics []string
	Range   TimeRange
	Step    time.Duration
}

// MetricMatrix is a raw matrix with sample timestamps, as returned by a metric source.
type MetricMatrix struct {
	Names      []string
	Timestamps []time.Time
	Values     RawMetricMatrix
}

// IntervalsFromRanges maps wall-clock ranges onto half-open sample index intervals using the
// matrix timestamps. A sample belongs to a range when Start <= ts < End.
func IntervalsFromRanges(timestamps []time.Time, ranges []TimeRange) IntervalList {
	out := make(IntervalList, 0, len(ranges))
	for _, r := range ranges {
		start, end := -1, -1
		for i, ts := range timestamps {
			if ts.Before(r.Start) || !ts.Before(r.End) {
				continue
			}
			if start < 0 {
				start = i
			}
			end = i + 1
		}
		if start >= 0 {
			out = append(out, Interval{Start: start, End: end})
		}
	}
	return out
}

// ListEvaluationsRequest filters stored evaluation history.
type ListEvaluationsRequest struct {
	TestID string    `json:"test_id,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Since  time.Time `json:"since,omitempty"`
}
