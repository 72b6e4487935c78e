package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ContributionRecord is the outcome of one ranking iteration.
type ContributionRecord struct {
	Metric string  `json:"metric"`
	Score  float64 `json:"score"`
}

type contributionJSON struct {
	Metric string          `json:"metric"`
	Score  json.RawMessage `json:"score"`
}

// Infinite scores use the protojson spellings for non-finite floats.
const (
	scorePosInf = "Infinity"
	scoreNegInf = "-Infinity"
)

// MarshalJSON encodes NaN as null and infinities as "Infinity" or "-Infinity" so that a result
// read back from the cache or history matches the one that was computed.
func (r ContributionRecord) MarshalJSON() ([]byte, error) {
	var score any
	switch {
	case math.IsNaN(r.Score):
	case math.IsInf(r.Score, 1):
		score = scorePosInf
	case math.IsInf(r.Score, -1):
		score = scoreNegInf
	default:
		score = r.Score
	}
	raw, err := json.Marshal(score)
	if err != nil {
		return nil, err
	}
	return json.Marshal(contributionJSON{Metric: r.Metric, Score: raw})
}

// UnmarshalJSON reverses MarshalJSON. A missing score decodes as NaN.
func (r *ContributionRecord) UnmarshalJSON(data []byte) error {
	var in contributionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Metric = in.Metric
	r.Score = math.NaN()
	if len(in.Score) == 0 || string(in.Score) == "null" {
		return nil
	}
	if in.Score[0] == '"' {
		var name string
		if err := json.Unmarshal(in.Score, &name); err != nil {
			return err
		}
		switch name {
		case scorePosInf:
			r.Score = math.Inf(1)
		case scoreNegInf:
			r.Score = math.Inf(-1)
		case "NaN":
		default:
			return fmt.Errorf("metric %q: invalid score %q", in.Metric, name)
		}
		return nil
	}
	return json.Unmarshal(in.Score, &r.Score)
}

// RankedList orders contribution records by iteration; index 0 is rank 1.
type RankedList []ContributionRecord

// Names returns the ranked metric names.
func (l RankedList) Names() []string {
	names := make([]string, len(l))
	for i, r := range l {
		names[i] = r.Metric
	}
	return names
}

// IndexBreakdown exposes the discounted category scores behind a resilience index.
type IndexBreakdown struct {
	Performance float64 `json:"performance"`
	Business    float64 `json:"business"`
	Index       float64 `json:"index"`
}

// EvaluationRequest carries everything needed to rank one test case.
type EvaluationRequest struct {
	TestID   string
	Metadata Metadata
	Normal   IntervalList
	Faulty   IntervalList
	Metrics  RawMetricMatrix
}

// EvaluationResult summarises one evaluation.
type EvaluationResult struct {
	ID        string         `json:"id"`
	TestID    string         `json:"test_id"`
	Strategy  string         `json:"strategy"`
	Ranking   RankedList     `json:"ranking"`
	Breakdown IndexBreakdown `json:"breakdown"`
	Duration  time.Duration  `json:"duration"`
	CreatedAt time.Time      `json:"created_at"`
}

// Index returns the resilience index.
func (r EvaluationResult) Index() float64 {
	return r.Breakdown.Index
}
