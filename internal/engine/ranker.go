package engine

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/miradorstack/microres/internal/accessor"
	"github.com/miradorstack/microres/internal/models"
)

// Ranker produces a total order over all metrics by repeatedly extracting the top contributor
// and re-scoring the remaining pool.
type Ranker struct {
	scorer *ContributionScorer
	logger *slog.Logger
}

// NewRanker constructs a Ranker.
func NewRanker(scorer *ContributionScorer, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{scorer: scorer, logger: logger}
}

// Rank orders every metric in the accessor's metadata from most to least contributing.
func (r *Ranker) Rank(ctx context.Context, acc *accessor.Accessor) (models.RankedList, error) {
	pool := newCandidatePool(acc.Metadata().Names())
	ranked := make(models.RankedList, 0, pool.Len())
	span := trace.SpanFromContext(ctx)

	for pool.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidates := pool.Active()
		record, err := r.scorer.MaxContribution(ctx, acc, candidates)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("ranked metric",
			slog.String("test_id", acc.TestID()),
			slog.Int("rank", len(ranked)+1),
			slog.String("metric", record.Metric),
			slog.Float64("score", record.Score),
			slog.Int("pool", len(candidates)))
		span.AddEvent("ranked", trace.WithAttributes(
			attribute.String("metric", record.Metric),
			attribute.Float64("score", record.Score),
			attribute.Int("pool", len(candidates)),
		))

		ranked = append(ranked, record)
		pool.Remove(record.Metric)
	}
	return ranked, nil
}
