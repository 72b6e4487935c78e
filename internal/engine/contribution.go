package engine

import (
	"context"
	"errors"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/microres/internal/accessor"
	"github.com/miradorstack/microres/internal/distance"
	"github.com/miradorstack/microres/internal/models"
)

// ErrEmptyPool is returned when the scorer is asked to rank zero candidates.
var ErrEmptyPool = errors.New("candidate pool is empty")

// ContributionScorer scores each candidate's deviation signal against the dominant shared
// deviation pattern of the candidate set.
type ContributionScorer struct {
	strategy distance.Strategy
	workers  int
}

// NewContributionScorer constructs a scorer. workers <= 0 uses GOMAXPROCS.
func NewContributionScorer(strategy distance.Strategy, workers int) *ContributionScorer {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ContributionScorer{strategy: strategy, workers: workers}
}

// Contributions returns one score per candidate, in candidate order.
func (s *ContributionScorer) Contributions(ctx context.Context, acc *accessor.Accessor, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyPool
	}
	normal, faulty, err := acc.FilterRetained(candidates)
	if err != nil {
		return nil, err
	}

	signals := centredDeviations(normal, faulty)
	reference := referenceSignal(signals)

	scores := make([]float64, len(signals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range signals {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores[i] = s.strategy.Score(signals[i], reference)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// MaxContribution returns the candidate with the highest score. Ties go to the earliest
// candidate; NaN scores rank below every number.
func (s *ContributionScorer) MaxContribution(ctx context.Context, acc *accessor.Accessor, candidates []string) (models.ContributionRecord, error) {
	scores, err := s.Contributions(ctx, acc, candidates)
	if err != nil {
		return models.ContributionRecord{}, err
	}
	best := selectMax(scores)
	return models.ContributionRecord{Metric: candidates[best], Score: scores[best]}, nil
}

// centredDeviations returns |normal-faulty| per metric with each metric's own mean removed.
func centredDeviations(normal, faulty [][]float64) [][]float64 {
	out := make([][]float64, len(normal))
	for i := range normal {
		row := make([]float64, len(normal[i]))
		sum := 0.0
		for t := range row {
			row[t] = math.Abs(normal[i][t] - faulty[i][t])
			sum += row[t]
		}
		if len(row) > 0 {
			mean := sum / float64(len(row))
			for t := range row {
				row[t] -= mean
			}
		}
		out[i] = row
	}
	return out
}

// referenceSignal is the dominant shared deviation pattern. A single candidate is its own
// reference.
func referenceSignal(signals [][]float64) []float64 {
	if len(signals) == 1 {
		return append([]float64(nil), signals[0]...)
	}
	samples := len(signals[0])
	x := make([][]float64, samples)
	for t := 0; t < samples; t++ {
		row := make([]float64, len(signals))
		for j := range signals {
			row[j] = signals[j][t]
		}
		x[t] = row
	}
	return leadingComponent(x)
}

func selectMax(scores []float64) int {
	best := -1
	for i, score := range scores {
		if math.IsNaN(score) {
			continue
		}
		if best < 0 || score > scores[best] {
			best = i
		}
	}
	if best < 0 {
		return 0
	}
	return best
}
