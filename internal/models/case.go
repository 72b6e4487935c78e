package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrIncompleteCase is returned when a case file cannot describe an evaluation on its own.
var ErrIncompleteCase = errors.New("incomplete case")

// CaseFile describes one evaluation on disk. Windows are given either as sample intervals or as
// wall-clock ranges; the matrix is either inline or fetched from a metric source.
type CaseFile struct {
	TestID       string             `json:"test_id" yaml:"test_id"`
	Metrics      []MetricDescriptor `json:"metrics" yaml:"metrics"`
	Normal       IntervalList       `json:"normal,omitempty" yaml:"normal,omitempty"`
	Faulty       IntervalList       `json:"faulty,omitempty" yaml:"faulty,omitempty"`
	NormalRanges []TimeRange        `json:"normal_ranges,omitempty" yaml:"normal_ranges,omitempty"`
	FaultyRanges []TimeRange        `json:"faulty_ranges,omitempty" yaml:"faulty_ranges,omitempty"`
	Matrix       RawMetricMatrix    `json:"matrix,omitempty" yaml:"matrix,omitempty"`
	Source       *SourceQuery       `json:"source,omitempty" yaml:"source,omitempty"`
}

// SourceQuery selects the span of samples fetched from a metric source.
type SourceQuery struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
	Step  string    `json:"step,omitempty" yaml:"step,omitempty"`
}

// StepDuration parses Step, defaulting to one minute.
func (q SourceQuery) StepDuration() (time.Duration, error) {
	if q.Step == "" {
		return time.Minute, nil
	}
	d, err := time.ParseDuration(q.Step)
	if err != nil {
		return 0, fmt.Errorf("invalid step %q: %w", q.Step, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("step must be positive, got %s", q.Step)
	}
	return d, nil
}

// MetricNames returns the declared metric names in order.
func (c CaseFile) MetricNames() []string {
	names := make([]string, len(c.Metrics))
	for i, m := range c.Metrics {
		names[i] = m.Name
	}
	return names
}

// Check verifies the case carries enough to build a request. It does not validate categories,
// which may be filled in later by classification rules.
func (c CaseFile) Check() error {
	if c.TestID == "" {
		return fmt.Errorf("%w: test_id is required", ErrIncompleteCase)
	}
	if len(c.Metrics) == 0 {
		return fmt.Errorf("%w: at least one metric is required", ErrIncompleteCase)
	}
	if len(c.Matrix) == 0 && c.Source == nil {
		return fmt.Errorf("%w: either matrix or source is required", ErrIncompleteCase)
	}
	if len(c.Matrix) > 0 && c.Source != nil {
		return fmt.Errorf("%w: matrix and source are mutually exclusive", ErrIncompleteCase)
	}
	hasIntervals := len(c.Normal) > 0 || len(c.Faulty) > 0
	hasRanges := len(c.NormalRanges) > 0 || len(c.FaultyRanges) > 0
	switch {
	case hasIntervals && hasRanges:
		return fmt.Errorf("%w: use either intervals or ranges, not both", ErrIncompleteCase)
	case !hasIntervals && !hasRanges:
		return fmt.Errorf("%w: normal and faulty windows are required", ErrIncompleteCase)
	case hasRanges && c.Source == nil:
		return fmt.Errorf("%w: time ranges need a source", ErrIncompleteCase)
	}
	if c.Source != nil && !c.Source.End.After(c.Source.Start) {
		return fmt.Errorf("%w: source end must be after start", ErrIncompleteCase)
	}
	return nil
}
