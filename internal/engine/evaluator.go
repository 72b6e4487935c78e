package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/miradorstack/microres/internal/accessor"
	"github.com/miradorstack/microres/internal/distance"
	"github.com/miradorstack/microres/internal/models"
)

const tracerName = "github.com/miradorstack/microres/internal/engine"

// Options configures an Evaluator.
type Options struct {
	Strategy     string
	IndexScaling float64
	DTWWindow    int
	Workers      int
}

// Evaluator runs the full ranking and indexing pipeline for one request at a time. It holds no
// per-call state and is safe for concurrent use.
type Evaluator struct {
	logger   *slog.Logger
	strategy distance.Strategy
	ranker   *Ranker
	indexer  *ResilienceIndexer
}

// NewEvaluator resolves the scoring strategy and wires the ranker and indexer.
func NewEvaluator(logger *slog.Logger, opts Options) (*Evaluator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.Strategy
	if name == "" {
		name = distance.StrategyEuclidean
	}
	strategy, err := distance.Lookup(name, distance.Options{DTWWindow: opts.DTWWindow})
	if err != nil {
		return nil, err
	}
	scorer := NewContributionScorer(strategy, opts.Workers)
	return &Evaluator{
		logger:   logger,
		strategy: strategy,
		ranker:   NewRanker(scorer, logger),
		indexer:  NewResilienceIndexer(opts.IndexScaling),
	}, nil
}

// Strategy returns the scoring strategy name.
func (e *Evaluator) Strategy() string { return e.strategy.Name() }

// IndexScaling returns the resilience index scaling constant.
func (e *Evaluator) IndexScaling() float64 { return e.indexer.Scaling() }

// Evaluate ranks every metric of the request and computes the resilience index.
func (e *Evaluator) Evaluate(ctx context.Context, req models.EvaluationRequest) (models.EvaluationResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine.Evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.String("test_id", req.TestID),
		attribute.String("strategy", e.strategy.Name()),
		attribute.Int("metrics", len(req.Metadata)),
	)

	start := time.Now()
	result, err := e.evaluate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.EvaluationResult{}, err
	}
	result.Duration = time.Since(start)
	span.SetAttributes(attribute.Float64("resilience_index", result.Breakdown.Index))

	e.logger.Info("evaluation complete",
		slog.String("id", result.ID),
		slog.String("test_id", req.TestID),
		slog.String("strategy", result.Strategy),
		slog.Int("metrics", len(result.Ranking)),
		slog.Float64("index", result.Breakdown.Index),
		slog.Duration("duration", result.Duration))
	return result, nil
}

func (e *Evaluator) evaluate(ctx context.Context, req models.EvaluationRequest) (models.EvaluationResult, error) {
	acc, err := accessor.New(req.TestID, req.Metadata, req.Normal, req.Faulty, req.Metrics)
	if err != nil {
		return models.EvaluationResult{}, err
	}
	ranking, err := e.ranker.Rank(ctx, acc)
	if err != nil {
		return models.EvaluationResult{}, err
	}
	breakdown, err := e.indexer.Index(ranking, acc.Metadata())
	if err != nil {
		return models.EvaluationResult{}, err
	}
	return models.EvaluationResult{
		ID:        uuid.NewString(),
		TestID:    req.TestID,
		Strategy:  e.strategy.Name(),
		Ranking:   ranking,
		Breakdown: breakdown,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ResilienceIndex returns only the scalar index for the request.
func (e *Evaluator) ResilienceIndex(ctx context.Context, req models.EvaluationRequest) (float64, error) {
	result, err := e.Evaluate(ctx, req)
	if err != nil {
		return 0, err
	}
	return result.Index(), nil
}
