package engine

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/microres/internal/accessor"
	"github.com/miradorstack/microres/internal/distance"
	"github.com/miradorstack/microres/internal/models"
)

// spikeAndShiftRequest builds three metrics over 40 samples: metric1 (business) carries a distinct
// spike in the faulty window while metric2 and metric3 (performance) shift by +10 with a small
// jitter that differs between windows, so their centred deviations are not flat.
func spikeAndShiftRequest() models.EvaluationRequest {
	const n = 20
	raw := make(models.RawMetricMatrix, 3)
	for i := range raw {
		raw[i] = make([]float64, 2*n)
	}
	for t := 0; t < n; t++ {
		raw[0][t] = 0
		f := 0.2 * float64(t%5)
		if t == 7 {
			f += 5
		}
		raw[0][n+t] = f

		for _, row := range []int{1, 2} {
			raw[row][t] = 100 + 0.001*float64(t%3)
			raw[row][n+t] = 110 + 0.001*float64(t%4)
		}
	}
	return models.EvaluationRequest{
		TestID: "aaabbb",
		Metadata: models.Metadata{
			{Name: "metric1", Category: models.CategoryBusiness},
			{Name: "metric2", Category: models.CategoryPerformance},
			{Name: "metric3", Category: models.CategoryPerformance},
		},
		Normal:  models.IntervalList{{Start: 0, End: n}},
		Faulty:  models.IntervalList{{Start: n, End: 2 * n}},
		Metrics: raw,
	}
}

// constantShiftRequest builds m1 (business) with the same pattern in both windows and m2, m3
// (performance) whose faulty window is the normal window plus exactly 10. All values are small
// integers so the differences are exact.
func constantShiftRequest() models.EvaluationRequest {
	const n = 50
	raw := make(models.RawMetricMatrix, 3)
	for i := range raw {
		raw[i] = make([]float64, 2*n)
	}
	for t := 0; t < n; t++ {
		raw[0][t] = float64(t % 4)
		raw[0][n+t] = float64(t % 4)
		for _, row := range []int{1, 2} {
			base := float64(100 + (t*row)%3)
			raw[row][t] = base
			raw[row][n+t] = base + 10
		}
	}
	return models.EvaluationRequest{
		TestID: "constant-shift",
		Metadata: models.Metadata{
			{Name: "m1", Category: models.CategoryBusiness},
			{Name: "m2", Category: models.CategoryPerformance},
			{Name: "m3", Category: models.CategoryPerformance},
		},
		Normal:  models.IntervalList{{Start: 0, End: n}},
		Faulty:  models.IntervalList{{Start: n, End: 2 * n}},
		Metrics: raw,
	}
}

func newEvaluator(t *testing.T, opts Options) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(nil, opts)
	require.NoError(t, err)
	return e
}

func TestEvaluateScenario(t *testing.T) {
	e := newEvaluator(t, Options{})
	result, err := e.Evaluate(context.Background(), spikeAndShiftRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"metric2", "metric3", "metric1"}, result.Ranking.Names())
	assert.Equal(t, 0.0, result.Ranking[2].Score)
	assert.Greater(t, result.Ranking[0].Score, 1.0)
	assert.Greater(t, result.Index(), 0.5)
	assert.Less(t, result.Index(), 1.0)
	assert.Equal(t, distance.StrategyEuclidean, result.Strategy)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "aaabbb", result.TestID)
}

// A mean shift that is constant across the faulty window has a flat deviation series, and
// centring removes it. Every candidate then scores the same, ranking falls back to declaration
// order and the index sits at 0.5.
func TestEvaluateConstantShiftCancels(t *testing.T) {
	for _, strategy := range distance.Names() {
		t.Run(strategy, func(t *testing.T) {
			result, err := newEvaluator(t, Options{Strategy: strategy}).Evaluate(context.Background(), constantShiftRequest())
			require.NoError(t, err)

			assert.Equal(t, []string{"m1", "m2", "m3"}, result.Ranking.Names())
			for _, record := range result.Ranking {
				if !math.IsNaN(record.Score) {
					assert.Equal(t, 0.0, record.Score, record.Metric)
				}
			}
			assert.Equal(t, 0.0, result.Breakdown.Performance)
			assert.Equal(t, 0.0, result.Breakdown.Business)
			assert.Equal(t, 0.5, result.Index())
		})
	}
}

func TestEvaluateCategoryFlipMirrorsIndex(t *testing.T) {
	e := newEvaluator(t, Options{})
	req := spikeAndShiftRequest()
	r, err := e.ResilienceIndex(context.Background(), req)
	require.NoError(t, err)

	req.Metadata = req.Metadata.Flip()
	flipped, err := e.ResilienceIndex(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 1-r, flipped, 1e-12)
}

func TestEvaluateDeterministic(t *testing.T) {
	e := newEvaluator(t, Options{Workers: 4})
	first, err := e.Evaluate(context.Background(), spikeAndShiftRequest())
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), spikeAndShiftRequest())
	require.NoError(t, err)

	assert.Equal(t, first.Ranking, second.Ranking)
	assert.Equal(t, first.Breakdown, second.Breakdown)
}

func TestEvaluateRankingIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	metadata := models.Metadata{}
	raw := models.RawMetricMatrix{}
	for i := 0; i < 8; i++ {
		category := models.CategoryPerformance
		if i%3 == 0 {
			category = models.CategoryBusiness
		}
		metadata = append(metadata, models.MetricDescriptor{Name: string(rune('a' + i)), Category: category})
		row := make([]float64, 60)
		for j := range row {
			row[j] = rng.NormFloat64() * float64(i+1)
		}
		raw = append(raw, row)
	}
	req := models.EvaluationRequest{
		TestID:   "random",
		Metadata: metadata,
		Normal:   models.IntervalList{{Start: 0, End: 20}, {Start: 40, End: 50}},
		Faulty:   models.IntervalList{{Start: 20, End: 40}, {Start: 50, End: 60}},
		Metrics:  raw,
	}

	for _, strategy := range distance.Names() {
		t.Run(strategy, func(t *testing.T) {
			result, err := newEvaluator(t, Options{Strategy: strategy}).Evaluate(context.Background(), req)
			require.NoError(t, err)

			got := result.Ranking.Names()
			sort.Strings(got)
			want := metadata.Names()
			sort.Strings(want)
			assert.Equal(t, want, got)

			assert.Greater(t, result.Index(), 0.0)
			assert.Less(t, result.Index(), 1.0)
		})
	}
}

func TestEvaluateSingleMetric(t *testing.T) {
	req := models.EvaluationRequest{
		TestID:   "single",
		Metadata: models.Metadata{{Name: "latency", Category: models.CategoryPerformance}},
		Normal:   models.IntervalList{{Start: 0, End: 3}},
		Faulty:   models.IntervalList{{Start: 3, End: 6}},
		Metrics:  models.RawMetricMatrix{{1, 2, 3, 7, 9, 4}},
	}
	result, err := newEvaluator(t, Options{}).Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Ranking, 1)
	assert.Equal(t, "latency", result.Ranking[0].Metric)
	assert.Equal(t, 0.0, result.Ranking[0].Score)
	assert.Equal(t, 0.5, result.Index())
}

func TestEvaluateUndefinedCorrelationKeepsDeclarationOrder(t *testing.T) {
	// Constant deviations make every correlation undefined.
	req := models.EvaluationRequest{
		TestID:   "flat",
		Metadata: perf("x", "y", "z"),
		Normal:   models.IntervalList{{Start: 0, End: 4}},
		Faulty:   models.IntervalList{{Start: 4, End: 8}},
		Metrics: models.RawMetricMatrix{
			{1, 1, 1, 1, 2, 2, 2, 2},
			{5, 5, 5, 5, 5, 5, 5, 5},
			{0, 0, 0, 0, 3, 3, 3, 3},
		},
	}
	result, err := newEvaluator(t, Options{Strategy: distance.StrategyPearson}).Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, result.Ranking.Names())
	for _, record := range result.Ranking {
		assert.True(t, math.IsNaN(record.Score))
	}
	assert.Equal(t, 0.5, result.Index())
}

func TestEvaluateRejectsBadRequests(t *testing.T) {
	req := spikeAndShiftRequest()
	req.Faulty = models.IntervalList{{Start: 20, End: 30}}
	_, err := newEvaluator(t, Options{}).Evaluate(context.Background(), req)
	assert.True(t, errors.Is(err, accessor.ErrWindowMismatch))
}

func TestNewEvaluatorUnknownStrategy(t *testing.T) {
	_, err := NewEvaluator(nil, Options{Strategy: "manhattan"})
	assert.True(t, errors.Is(err, distance.ErrUnknownStrategy))
}

func TestEvaluateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEvaluator(t, Options{}).Evaluate(ctx, spikeAndShiftRequest())
	assert.True(t, errors.Is(err, context.Canceled))
}
