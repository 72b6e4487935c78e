package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/microres/internal/models"
)

const performanceRules = `rules:
  - id: all
    category: performance
`

const businessRules = `rules:
  - id: all
    category: business
`

func TestRulesWatcherReload(t *testing.T) {
	path := writeRules(t, performanceRules)
	rules, err := NewCategoryRules(path, nil)
	require.NoError(t, err)

	w, err := NewRulesWatcher(path, rules, 0, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(businessRules), 0o644))
	require.NoError(t, w.Reload())

	got, err := rules.Classify("anything")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryBusiness, got)
}

func TestRulesWatcherKeepsRulesOnBadFile(t *testing.T) {
	path := writeRules(t, performanceRules)
	rules, err := NewCategoryRules(path, nil)
	require.NoError(t, err)
	w, err := NewRulesWatcher(path, rules, 0, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - id: bad\n    category: storage\n"), 0o644))
	assert.ErrorIs(t, w.Reload(), models.ErrUnknownCategory)

	require.NoError(t, os.Remove(path))
	assert.Error(t, w.Reload())

	got, err := rules.Classify("anything")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryPerformance, got)
}

func TestRulesWatcherRunPicksUpWrites(t *testing.T) {
	path := writeRules(t, performanceRules)
	rules, err := NewCategoryRules(path, nil)
	require.NoError(t, err)
	w, err := NewRulesWatcher(path, rules, 20*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		// Rewrite until the watcher has been registered and observed a change.
		_ = os.WriteFile(path, []byte(businessRules), 0o644)
		got, err := rules.Classify("anything")
		return err == nil && got == models.CategoryBusiness
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRulesWatcherRunPicksUpCreatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	rules, err := ParseCategoryRules(nil, nil)
	require.NoError(t, err)
	_, err = rules.Classify("anything")
	require.True(t, errors.Is(err, ErrNoCategoryRule))

	w, err := NewRulesWatcher(path, rules, 20*time.Millisecond, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(performanceRules), 0o644)
		got, err := rules.Classify("anything")
		return err == nil && got == models.CategoryPerformance
	}, 5*time.Second, 100*time.Millisecond)
}

func TestNewRulesWatcherRequiresArguments(t *testing.T) {
	_, err := NewRulesWatcher("", &CategoryRules{}, 0, nil)
	assert.Error(t, err)
	_, err = NewRulesWatcher("rules.yaml", nil, 0, nil)
	assert.Error(t, err)
}
