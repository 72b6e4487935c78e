package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownCategory is returned when a category tag is neither performance nor business.
	ErrUnknownCategory = errors.New("unknown metric category")
	// ErrInvalidMetadata is returned for empty metadata or bad metric names.
	ErrInvalidMetadata = errors.New("invalid metadata")
)

// Category tags a metric as performance- or business-oriented.
type Category string

const (
	CategoryPerformance Category = "performance"
	CategoryBusiness    Category = "business"
)

// ParseCategory accepts the long names and the single-letter tags "p" and "b".
func ParseCategory(value string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "performance", "p":
		return CategoryPerformance, nil
	case "business", "b":
		return CategoryBusiness, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, value)
	}
}

// Valid reports whether c is one of the two known categories.
func (c Category) Valid() bool {
	return c == CategoryPerformance || c == CategoryBusiness
}

// MetricDescriptor names a metric and its category.
type MetricDescriptor struct {
	Name     string   `json:"name" yaml:"name"`
	Category Category `json:"category" yaml:"category"`
}

// Metadata is the ordered list of metrics under evaluation. Its order is the row order of the
// raw metric matrix and the candidate order used for tie-breaking.
type Metadata []MetricDescriptor

// Names returns metric names in declaration order.
func (m Metadata) Names() []string {
	names := make([]string, len(m))
	for i, d := range m {
		names[i] = d.Name
	}
	return names
}

// Lookup returns the category of name.
func (m Metadata) Lookup(name string) (Category, bool) {
	for _, d := range m {
		if d.Name == name {
			return d.Category, true
		}
	}
	return "", false
}

// Flip swaps every performance tag for business and vice versa.
func (m Metadata) Flip() Metadata {
	out := make(Metadata, len(m))
	for i, d := range m {
		out[i] = d
		switch d.Category {
		case CategoryPerformance:
			out[i].Category = CategoryBusiness
		case CategoryBusiness:
			out[i].Category = CategoryPerformance
		}
	}
	return out
}

// Validate rejects empty or duplicate names and unknown categories.
func (m Metadata) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("%w: no metrics declared", ErrInvalidMetadata)
	}
	seen := make(map[string]struct{}, len(m))
	for i, d := range m {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("%w: metric %d has an empty name", ErrInvalidMetadata, i)
		}
		if _, ok := seen[d.Name]; ok {
			return fmt.Errorf("%w: metric %q declared twice", ErrInvalidMetadata, d.Name)
		}
		seen[d.Name] = struct{}{}
		if !d.Category.Valid() {
			return fmt.Errorf("metric %q: %w: %q", d.Name, ErrUnknownCategory, d.Category)
		}
	}
	return nil
}

// Interval is a half-open [Start, End) range of sample indices.
type Interval struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the number of samples covered.
func (i Interval) Len() int {
	if i.End <= i.Start {
		return 0
	}
	return i.End - i.Start
}

// IntervalList is an ordered list of intervals concatenated into one window.
type IntervalList []Interval

// TotalLen sums the lengths of all intervals.
func (l IntervalList) TotalLen() int {
	total := 0
	for _, i := range l {
		total += i.Len()
	}
	return total
}

// RawMetricMatrix holds one row per metric and one column per sample.
type RawMetricMatrix [][]float64
