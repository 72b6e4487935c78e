package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"performance": CategoryPerformance,
		"P":           CategoryPerformance,
		" Business ":  CategoryBusiness,
		"b":           CategoryBusiness,
	}
	for in, want := range cases {
		got, err := ParseCategory(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", in, want, got)
		}
	}
	if _, err := ParseCategory("storage"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestMetadataValidate(t *testing.T) {
	cases := []struct {
		name     string
		metadata Metadata
		wantErr  bool
	}{
		{"ok", Metadata{{Name: "a", Category: CategoryBusiness}, {Name: "b", Category: CategoryPerformance}}, false},
		{"empty", Metadata{}, true},
		{"blank name", Metadata{{Name: " ", Category: CategoryBusiness}}, true},
		{"duplicate", Metadata{{Name: "a", Category: CategoryBusiness}, {Name: "a", Category: CategoryBusiness}}, true},
		{"bad category", Metadata{{Name: "a", Category: "p"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.metadata.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error=%v, got %v", tc.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidMetadata) && !errors.Is(err, ErrUnknownCategory) {
				t.Fatalf("expected a sentinel error, got %v", err)
			}
		})
	}
}

func TestMetadataFlip(t *testing.T) {
	m := Metadata{{Name: "a", Category: CategoryBusiness}, {Name: "b", Category: CategoryPerformance}}
	flipped := m.Flip()
	if flipped[0].Category != CategoryPerformance || flipped[1].Category != CategoryBusiness {
		t.Fatalf("unexpected flip %+v", flipped)
	}
	if m[0].Category != CategoryBusiness {
		t.Fatalf("flip must not modify the receiver")
	}
}

func TestIntervalLengths(t *testing.T) {
	l := IntervalList{{Start: 0, End: 50}, {Start: 100, End: 120}, {Start: 5, End: 5}}
	if l.TotalLen() != 70 {
		t.Fatalf("expected 70, got %d", l.TotalLen())
	}
}

func TestIntervalsFromRanges(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, 10)
	for i := range ts {
		ts[i] = base.Add(time.Duration(i) * time.Minute)
	}
	got := IntervalsFromRanges(ts, []TimeRange{
		{Start: base, End: base.Add(3 * time.Minute)},
		{Start: base.Add(5*time.Minute + 30*time.Second), End: base.Add(8 * time.Minute)},
		{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)},
	})
	want := IntervalList{{Start: 0, End: 3}, {Start: 6, End: 8}}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCaseFileCheck(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	metrics := []MetricDescriptor{{Name: "cpu"}}
	cases := []struct {
		name    string
		c       CaseFile
		wantErr bool
	}{
		{"inline", CaseFile{TestID: "t", Metrics: metrics, Normal: IntervalList{{0, 1}}, Faulty: IntervalList{{1, 2}}, Matrix: RawMetricMatrix{{1, 2}}}, false},
		{"source ranges", CaseFile{TestID: "t", Metrics: metrics, NormalRanges: []TimeRange{{start, start.Add(time.Minute)}}, FaultyRanges: []TimeRange{{start.Add(time.Minute), start.Add(2 * time.Minute)}}, Source: &SourceQuery{Start: start, End: start.Add(time.Hour)}}, false},
		{"missing test id", CaseFile{Metrics: metrics, Matrix: RawMetricMatrix{{1}}}, true},
		{"no data", CaseFile{TestID: "t", Metrics: metrics, Normal: IntervalList{{0, 1}}}, true},
		{"ranges without source", CaseFile{TestID: "t", Metrics: metrics, NormalRanges: []TimeRange{{start, start}}, Matrix: RawMetricMatrix{{1}}}, true},
		{"both windows", CaseFile{TestID: "t", Metrics: metrics, Normal: IntervalList{{0, 1}}, NormalRanges: []TimeRange{{start, start}}, Source: &SourceQuery{Start: start, End: start.Add(time.Hour)}}, true},
		{"inverted source", CaseFile{TestID: "t", Metrics: metrics, Normal: IntervalList{{0, 1}}, Source: &SourceQuery{Start: start, End: start}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.c.Check()
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error=%v, got %v", tc.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrIncompleteCase) {
				t.Fatalf("expected ErrIncompleteCase, got %v", err)
			}
		})
	}
}

func TestSourceQueryStep(t *testing.T) {
	if d, err := (SourceQuery{}).StepDuration(); err != nil || d != time.Minute {
		t.Fatalf("expected default minute, got %v %v", d, err)
	}
	if d, err := (SourceQuery{Step: "15s"}).StepDuration(); err != nil || d != 15*time.Second {
		t.Fatalf("expected 15s, got %v %v", d, err)
	}
	if _, err := (SourceQuery{Step: "-1s"}).StepDuration(); err == nil {
		t.Fatalf("expected error for negative step")
	}
}

func TestContributionRecordJSONHandlesNaN(t *testing.T) {
	data, err := json.Marshal(RankedList{{Metric: "a", Score: 1.5}, {Metric: "b", Score: math.NaN()}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `[{"metric":"a","score":1.5},{"metric":"b","score":null}]` {
		t.Fatalf("unexpected encoding %s", data)
	}

	var back RankedList
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back[0].Score != 1.5 || !math.IsNaN(back[1].Score) {
		t.Fatalf("unexpected decode %+v", back)
	}
}

func TestContributionRecordJSONKeepsInfinity(t *testing.T) {
	in := RankedList{{Metric: "up", Score: math.Inf(1)}, {Metric: "down", Score: math.Inf(-1)}}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `[{"metric":"up","score":"Infinity"},{"metric":"down","score":"-Infinity"}]` {
		t.Fatalf("unexpected encoding %s", data)
	}

	var back RankedList
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !math.IsInf(back[0].Score, 1) || !math.IsInf(back[1].Score, -1) {
		t.Fatalf("unexpected decode %+v", back)
	}

	var missing ContributionRecord
	if err := json.Unmarshal([]byte(`{"metric":"m"}`), &missing); err != nil || !math.IsNaN(missing.Score) {
		t.Fatalf("expected NaN for a missing score, got %+v %v", missing, err)
	}
	if err := json.Unmarshal([]byte(`{"metric":"m","score":"lots"}`), &missing); err == nil {
		t.Fatalf("expected error for unknown score name")
	}
}
