package engine

import (
	"fmt"
	"math"

	"github.com/miradorstack/microres/internal/models"
)

// DefaultIndexScaling controls how sharply the index reacts to the category score gap.
const DefaultIndexScaling = 0.1

var (
	indexFloor   = math.Nextafter(0, 1)
	indexCeiling = math.Nextafter(1, 0)
)

// ResilienceIndexer folds a ranking into a single index in (0,1).
type ResilienceIndexer struct {
	scaling float64
}

// NewResilienceIndexer constructs an indexer; non-positive scaling falls back to the default.
func NewResilienceIndexer(scaling float64) *ResilienceIndexer {
	if scaling <= 0 || math.IsNaN(scaling) || math.IsInf(scaling, 0) {
		scaling = DefaultIndexScaling
	}
	return &ResilienceIndexer{scaling: scaling}
}

// Scaling returns the configured scaling constant.
func (x *ResilienceIndexer) Scaling() float64 { return x.scaling }

// Index computes rank-discounted performance and business scores (score / log2(rank+1)) and
// squashes their difference with a logistic. Non-finite scores contribute nothing.
func (x *ResilienceIndexer) Index(ranked models.RankedList, metadata models.Metadata) (models.IndexBreakdown, error) {
	var out models.IndexBreakdown
	for k, record := range ranked {
		category, ok := metadata.Lookup(record.Metric)
		if !ok {
			return models.IndexBreakdown{}, fmt.Errorf("ranked metric %q has no metadata", record.Metric)
		}
		if math.IsNaN(record.Score) || math.IsInf(record.Score, 0) {
			continue
		}
		weighted := record.Score / math.Log2(float64(k+2))
		switch category {
		case models.CategoryPerformance:
			out.Performance += weighted
		case models.CategoryBusiness:
			out.Business += weighted
		default:
			return models.IndexBreakdown{}, fmt.Errorf("metric %q: %w: %q", record.Metric, models.ErrUnknownCategory, category)
		}
	}

	r := 1 / (1 + math.Exp((out.Business-out.Performance)*x.scaling))
	out.Index = math.Min(math.Max(r, indexFloor), indexCeiling)
	return out, nil
}
