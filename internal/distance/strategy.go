// Package distance holds the pluggable contribution strategies used by the ranking engine.
// Every function is pure and leaves its inputs untouched.
package distance

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownStrategy is returned by Lookup for unregistered names.
var ErrUnknownStrategy = errors.New("unknown contribution strategy")

// Strategy scores how strongly a deviation series contributes relative to a reference series.
// Higher scores mean stronger contribution.
type Strategy interface {
	Name() string
	Score(deviation, reference []float64) float64
}

// StrategyFunc adapts a plain function to the Strategy interface.
type StrategyFunc struct {
	ID string
	Fn func(a, b []float64) float64
}

// Name implements Strategy.
func (s StrategyFunc) Name() string { return s.ID }

// Score implements Strategy.
func (s StrategyFunc) Score(deviation, reference []float64) float64 {
	return s.Fn(deviation, reference)
}

// Options tunes strategies that take parameters.
type Options struct {
	// DTWWindow is the Sakoe-Chiba half-width for the dtw strategy; <= 0 means DefaultDTWWindow.
	DTWWindow int
}

const (
	StrategyEuclidean = "euclidean"
	StrategyCID       = "cid"
	StrategyDTW       = "dtw"
	StrategyPearson   = "pearson"
	StrategySpearman  = "spearman"
	StrategyKendall   = "kendall"
)

var builders = map[string]func(Options) Strategy{
	StrategyEuclidean: func(Options) Strategy { return StrategyFunc{ID: StrategyEuclidean, Fn: Euclidean} },
	StrategyCID:       func(Options) Strategy { return StrategyFunc{ID: StrategyCID, Fn: CID} },
	StrategyDTW: func(opts Options) Strategy {
		window := opts.DTWWindow
		if window <= 0 {
			window = DefaultDTWWindow
		}
		return StrategyFunc{ID: StrategyDTW, Fn: func(a, b []float64) float64 {
			return DTW(a, b, window, SquaredDifference)
		}}
	},
	StrategyPearson:  func(Options) Strategy { return StrategyFunc{ID: StrategyPearson, Fn: Pearson} },
	StrategySpearman: func(Options) Strategy { return StrategyFunc{ID: StrategySpearman, Fn: Spearman} },
	StrategyKendall:  func(Options) Strategy { return StrategyFunc{ID: StrategyKendall, Fn: Kendall} },
}

// Lookup resolves a strategy by name (case-insensitive).
func Lookup(name string, opts Options) (Strategy, error) {
	build, ok := builders[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownStrategy, name, strings.Join(Names(), ", "))
	}
	return build(opts), nil
}

// Names lists the registered strategy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
