package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/microres/internal/accessor"
	"github.com/miradorstack/microres/internal/api"
	"github.com/miradorstack/microres/internal/cache"
	"github.com/miradorstack/microres/internal/distance"
	"github.com/miradorstack/microres/internal/engine"
	"github.com/miradorstack/microres/internal/history"
	"github.com/miradorstack/microres/internal/metrics"
	"github.com/miradorstack/microres/internal/models"
	"github.com/miradorstack/microres/internal/repo"
	"github.com/miradorstack/microres/internal/utils"
)

var (
	// ErrNoSource is returned when a case needs a metric source and none is configured.
	ErrNoSource = errors.New("no metric source configured")
	// ErrSourceFailed wraps metric source failures.
	ErrSourceFailed = errors.New("metric source failed")
	// ErrNoHistory is returned when history is requested but not configured.
	ErrNoHistory = errors.New("evaluation history not configured")
)

// HistoryStore persists and lists evaluation results.
type HistoryStore interface {
	Save(ctx context.Context, result models.EvaluationResult) error
	List(ctx context.Context, req models.ListEvaluationsRequest) ([]models.EvaluationResult, error)
}

// Options wires optional collaborators into the service.
type Options struct {
	Rules    *engine.CategoryRules
	Source   repo.MetricSource
	History  HistoryStore
	Cache    cache.Provider
	CacheTTL time.Duration
}

// ResilienceService implements the gRPC ResilienceEngine service and the CLI entry points.
type ResilienceService struct {
	logger    *slog.Logger
	evaluator *engine.Evaluator
	rules     *engine.CategoryRules
	source    repo.MetricSource
	history   HistoryStore
	cache     cache.Provider
	cacheTTL  time.Duration
	latencies *utils.LatencyTracker
}

// NewResilienceService constructs the service facade.
func NewResilienceService(logger *slog.Logger, evaluator *engine.Evaluator, opts Options) *ResilienceService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NoopProvider{}
	}
	return &ResilienceService{
		logger:    logger,
		evaluator: evaluator,
		rules:     opts.Rules,
		source:    opts.Source,
		history:   opts.History,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Evaluate handles the gRPC Evaluate call.
func (s *ResilienceService) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	c, err := api.FromProtoCase(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Debug("Evaluate called", slog.String("test_id", c.TestID), slog.Int("metrics", len(c.Metrics)))

	result, err := s.EvaluateCase(ctx, c)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := api.ToProtoEvaluation(result)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode evaluation: %v", err))
	}
	return out, nil
}

// ListEvaluations handles the gRPC ListEvaluations call.
func (s *ResilienceService) ListEvaluations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	domainReq, err := api.FromProtoListRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	results, err := s.History(ctx, domainReq)
	if err != nil {
		if errors.Is(err, ErrNoHistory) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		s.logger.Error("list evaluations failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to list evaluations")
	}
	out, err := api.ToProtoListResponse(results)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode evaluations: %v", err))
	}
	return out, nil
}

// EvaluateCase resolves a case into a request and evaluates it.
func (s *ResilienceService) EvaluateCase(ctx context.Context, c *models.CaseFile) (models.EvaluationResult, error) {
	req, err := s.ResolveCase(ctx, c)
	if err != nil {
		metrics.ObserveEvaluation(0, outcomeFor(err))
		return models.EvaluationResult{}, err
	}
	return s.EvaluateRequest(ctx, req)
}

// EvaluateRequest runs one evaluation, consulting and populating the result cache and recording
// the outcome in history.
func (s *ResilienceService) EvaluateRequest(ctx context.Context, req models.EvaluationRequest) (models.EvaluationResult, error) {
	if s.evaluator == nil {
		return models.EvaluationResult{}, errors.New("evaluator not configured")
	}

	key, keyErr := s.cacheKey(req)
	if keyErr == nil {
		if cached, ok := s.lookup(ctx, key); ok {
			return cached, nil
		}
	}

	start := time.Now()
	result, err := s.evaluator.Evaluate(ctx, req)
	duration := time.Since(start)
	if err != nil {
		outcome := outcomeFor(err)
		metrics.ObserveEvaluation(duration, outcome)
		if outcome == metrics.OutcomeError {
			s.logger.Error("evaluation failed",
				slog.String("test_id", req.TestID),
				slog.String("op", utils.ErrorOp(err)),
				slog.Any("error", err),
			)
		}
		return models.EvaluationResult{}, err
	}
	s.latencies.Observe(duration)
	metrics.ObserveEvaluation(duration, metrics.OutcomeSuccess)
	metrics.ObserveResult(result.Index(), len(result.Ranking))
	if total := s.latencies.Total(); total%20 == 0 {
		summary := s.latencies.Summary()
		s.logger.Info("evaluation latency",
			slog.Duration("p50", summary.P50),
			slog.Duration("p95", summary.P95),
			slog.Duration("p99", summary.P99),
			slog.Uint64("evaluations", summary.Total),
		)
	}

	if s.history != nil {
		if err := s.history.Save(ctx, result); err != nil {
			s.logger.Warn("failed to store evaluation", slog.String("id", result.ID), slog.Any("error", err))
		}
	}
	if keyErr == nil {
		if err := cache.SetJSON(ctx, s.cache, key, result, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache evaluation", slog.Any("error", err))
		}
	}
	return result, nil
}

// History lists stored evaluations.
func (s *ResilienceService) History(ctx context.Context, req models.ListEvaluationsRequest) ([]models.EvaluationResult, error) {
	if s.history == nil {
		return nil, ErrNoHistory
	}
	return s.history.List(ctx, req)
}

// ResolveCase turns a parsed case into an evaluation request, classifying metrics without an
// explicit category and fetching the matrix from the metric source when it is not inline.
func (s *ResilienceService) ResolveCase(ctx context.Context, c *models.CaseFile) (models.EvaluationRequest, error) {
	if c == nil {
		return models.EvaluationRequest{}, fmt.Errorf("%w: case is nil", models.ErrIncompleteCase)
	}
	if err := c.Check(); err != nil {
		return models.EvaluationRequest{}, err
	}

	metadata := make(models.Metadata, 0, len(c.Metrics))
	for _, m := range c.Metrics {
		var (
			category models.Category
			err      error
		)
		if m.Category == "" {
			category, err = s.rules.Classify(m.Name)
		} else {
			category, err = models.ParseCategory(string(m.Category))
		}
		if err != nil {
			return models.EvaluationRequest{}, fmt.Errorf("metric %q: %w", m.Name, err)
		}
		metadata = append(metadata, models.MetricDescriptor{Name: m.Name, Category: category})
	}

	req := models.EvaluationRequest{
		TestID:   c.TestID,
		Metadata: metadata,
		Normal:   c.Normal,
		Faulty:   c.Faulty,
		Metrics:  c.Matrix,
	}
	if c.Source == nil {
		return req, nil
	}

	if s.source == nil {
		return models.EvaluationRequest{}, ErrNoSource
	}
	step, err := c.Source.StepDuration()
	if err != nil {
		return models.EvaluationRequest{}, fmt.Errorf("%w: %v", models.ErrIncompleteCase, err)
	}
	matrix, err := s.source.FetchMatrix(ctx, models.MatrixQuery{
		TestID:  c.TestID,
		Metrics: metadata.Names(),
		Range:   models.TimeRange{Start: c.Source.Start, End: c.Source.End},
		Step:    step,
	})
	if err != nil {
		return models.EvaluationRequest{}, fmt.Errorf("%w: %w", ErrSourceFailed, err)
	}
	req.Metrics = matrix.Values
	if len(c.NormalRanges) > 0 || len(c.FaultyRanges) > 0 {
		req.Normal = models.IntervalsFromRanges(matrix.Timestamps, c.NormalRanges)
		req.Faulty = models.IntervalsFromRanges(matrix.Timestamps, c.FaultyRanges)
	}
	return req, nil
}

// LatencyP95 returns the current p95 evaluation latency.
func (s *ResilienceService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *ResilienceService) cacheKey(req models.EvaluationRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	scaling := strconv.FormatFloat(s.evaluator.IndexScaling(), 'g', -1, 64)
	return cache.Key("evaluation", []byte(s.evaluator.Strategy()), []byte(scaling), payload), nil
}

func (s *ResilienceService) lookup(ctx context.Context, key string) (models.EvaluationResult, bool) {
	var result models.EvaluationResult
	if err := cache.GetJSON(ctx, s.cache, key, &result); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache lookup failed", slog.Any("error", err))
		}
		metrics.ObserveCacheLookup(false)
		return models.EvaluationResult{}, false
	}
	metrics.ObserveCacheLookup(true)
	return result, true
}

func isInvalid(err error) bool {
	for _, target := range []error{
		accessor.ErrWindowMismatch,
		accessor.ErrInvalidInterval,
		accessor.ErrShape,
		accessor.ErrUnknownMetric,
		accessor.ErrDuplicateMetric,
		accessor.ErrEmptyRetain,
		accessor.ErrRemoveAll,
		models.ErrUnknownCategory,
		models.ErrInvalidMetadata,
		models.ErrIncompleteCase,
		distance.ErrUnknownStrategy,
		engine.ErrNoCategoryRule,
		engine.ErrEmptyPool,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func outcomeFor(err error) string {
	if isInvalid(err) {
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}

func toStatus(err error) error {
	switch {
	case isInvalid(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrNoSource):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrSourceFailed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, history.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, fmt.Sprintf("evaluation failed: %v", err))
	}
}
