// Package accessor slices a raw metric matrix into normal and faulty windows and filters the
// result by metric name.
package accessor

import (
	"errors"
	"fmt"

	"github.com/miradorstack/microres/internal/models"
	"github.com/miradorstack/microres/internal/utils"
)

var (
	// ErrWindowMismatch signals normal and faulty windows of different total length.
	ErrWindowMismatch = errors.New("normal and faulty windows must have equal length")
	// ErrInvalidInterval signals an interval outside the matrix or with start >= end.
	ErrInvalidInterval = errors.New("invalid interval")
	// ErrShape signals a matrix whose rows do not match the metadata or are ragged.
	ErrShape = errors.New("metric matrix shape mismatch")
	// ErrUnknownMetric signals a filter request naming a metric not in the metadata.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrDuplicateMetric signals a retain list naming the same metric twice.
	ErrDuplicateMetric = errors.New("duplicate metric")
	// ErrEmptyRetain signals an empty retain list.
	ErrEmptyRetain = errors.New("must retain at least one metric")
	// ErrRemoveAll signals a remove list covering every metric.
	ErrRemoveAll = errors.New("cannot remove all metrics")
)

// Accessor owns the windowed copies of one evaluation's metrics.
type Accessor struct {
	testID   string
	metadata models.Metadata
	normal   [][]float64
	faulty   [][]float64
	index    map[string]int
}

// New splits raw into normal and faulty windows by concatenating the given interval lists.
func New(testID string, metadata models.Metadata, normal, faulty models.IntervalList, raw models.RawMetricMatrix) (*Accessor, error) {
	const op = "accessor.new"

	if err := metadata.Validate(); err != nil {
		return nil, utils.NewAppError(op, "invalid metadata", err)
	}
	if len(raw) != len(metadata) {
		return nil, utils.NewAppError(op, fmt.Sprintf("matrix has %d rows, metadata declares %d metrics", len(raw), len(metadata)), ErrShape)
	}
	columns := len(raw[0])
	for i, row := range raw {
		if len(row) != columns {
			return nil, utils.NewAppError(op, fmt.Sprintf("row %d has %d samples, expected %d", i, len(row), columns), ErrShape)
		}
	}
	if err := checkIntervals(normal, columns); err != nil {
		return nil, utils.NewAppError(op, "normal window", err)
	}
	if err := checkIntervals(faulty, columns); err != nil {
		return nil, utils.NewAppError(op, "faulty window", err)
	}
	if normal.TotalLen() != faulty.TotalLen() {
		return nil, utils.NewAppError(op, fmt.Sprintf("normal=%d faulty=%d", normal.TotalLen(), faulty.TotalLen()), ErrWindowMismatch)
	}
	if normal.TotalLen() == 0 {
		return nil, utils.NewAppError(op, "windows are empty", ErrInvalidInterval)
	}

	index := make(map[string]int, len(metadata))
	for i, d := range metadata {
		index[d.Name] = i
	}

	return &Accessor{
		testID:   testID,
		metadata: append(models.Metadata(nil), metadata...),
		normal:   splitWindow(raw, normal),
		faulty:   splitWindow(raw, faulty),
		index:    index,
	}, nil
}

// TestID returns the opaque test identifier.
func (a *Accessor) TestID() string { return a.testID }

// Metadata returns a copy of the metric metadata.
func (a *Accessor) Metadata() models.Metadata {
	return append(models.Metadata(nil), a.metadata...)
}

// WindowLength returns the number of samples in each window.
func (a *Accessor) WindowLength() int {
	if len(a.normal) == 0 {
		return 0
	}
	return len(a.normal[0])
}

// FilterRetained returns the normal and faulty rows of names, in the order given.
func (a *Accessor) FilterRetained(names []string) (normal, faulty [][]float64, err error) {
	const op = "accessor.filter_retained"

	if len(names) == 0 {
		return nil, nil, utils.NewAppError(op, "empty retain list", ErrEmptyRetain)
	}
	rows := make([]int, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		idx, ok := a.index[name]
		if !ok {
			return nil, nil, utils.NewAppError(op, name, ErrUnknownMetric)
		}
		if _, dup := seen[name]; dup {
			return nil, nil, utils.NewAppError(op, name, ErrDuplicateMetric)
		}
		seen[name] = struct{}{}
		rows = append(rows, idx)
	}
	return selectRows(a.normal, rows), selectRows(a.faulty, rows), nil
}

// FilterRemoved returns the rows of every metric not named, in declaration order.
func (a *Accessor) FilterRemoved(names []string) (normal, faulty [][]float64, err error) {
	const op = "accessor.filter_removed"

	removed := make(map[int]struct{}, len(names))
	for _, name := range names {
		idx, ok := a.index[name]
		if !ok {
			return nil, nil, utils.NewAppError(op, name, ErrUnknownMetric)
		}
		removed[idx] = struct{}{}
	}

	rows := make([]int, 0, len(a.metadata)-len(removed))
	for i := range a.metadata {
		if _, ok := removed[i]; !ok {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, nil, utils.NewAppError(op, "no metrics left", ErrRemoveAll)
	}
	return selectRows(a.normal, rows), selectRows(a.faulty, rows), nil
}

func checkIntervals(intervals models.IntervalList, columns int) error {
	for _, iv := range intervals {
		if iv.Start < 0 || iv.End > columns || iv.Start >= iv.End {
			return fmt.Errorf("%w: [%d,%d) over %d samples", ErrInvalidInterval, iv.Start, iv.End, columns)
		}
	}
	return nil
}

func splitWindow(raw models.RawMetricMatrix, intervals models.IntervalList) [][]float64 {
	total := intervals.TotalLen()
	out := make([][]float64, len(raw))
	for i, row := range raw {
		window := make([]float64, 0, total)
		for _, iv := range intervals {
			window = append(window, row[iv.Start:iv.End]...)
		}
		out[i] = window
	}
	return out
}

func selectRows(src [][]float64, rows []int) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = append([]float64(nil), src[r]...)
	}
	return out
}
