package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/miradorstack/microres/internal/models"
)

// ErrNoSamples is returned when a source has no data for a requested metric.
var ErrNoSamples = errors.New("metric source returned no samples")

// MetricSource fetches a sampled metric matrix for a test run. Rows follow q.Metrics order.
type MetricSource interface {
	FetchMatrix(ctx context.Context, q models.MatrixQuery) (models.MetricMatrix, error)
}

func checkQuery(q models.MatrixQuery) error {
	if len(q.Metrics) == 0 {
		return fmt.Errorf("matrix query needs at least one metric")
	}
	if !q.Range.End.After(q.Range.Start) {
		return fmt.Errorf("matrix query range end %s is not after start %s", q.Range.End.Format(time.RFC3339), q.Range.Start.Format(time.RFC3339))
	}
	return nil
}

// fillGaps replaces NaN samples with the previous value, or the next one for a leading gap.
// A row with no finite samples is an error.
func fillGaps(name string, row []float64) error {
	first := -1
	for i, v := range row {
		if v == v {
			first = i
			break
		}
	}
	if first < 0 {
		return fmt.Errorf("%w: %s", ErrNoSamples, name)
	}
	for i := 0; i < first; i++ {
		row[i] = row[first]
	}
	for i := first + 1; i < len(row); i++ {
		if row[i] != row[i] {
			row[i] = row[i-1]
		}
	}
	return nil
}
