package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/microres/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func result(id, testID string, at time.Time, index float64) models.EvaluationResult {
	return models.EvaluationResult{
		ID:        id,
		TestID:    testID,
		Strategy:  "euclidean",
		Ranking:   models.RankedList{{Metric: "latency", Score: 1.5}},
		Breakdown: models.IndexBreakdown{Performance: 1.5, Index: index},
		CreatedAt: at,
	}
}

func TestStoreSaveAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, result("e1", "aaabbb", at, 0.7)))

	got, err := store.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "aaabbb", got.TestID)
	assert.Equal(t, 0.7, got.Index())
	assert.True(t, got.CreatedAt.Equal(at))
	assert.Equal(t, models.RankedList{{Metric: "latency", Score: 1.5}}, got.Ranking)

	_, err = store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, result("a1", "a", base, 0.1)))
	require.NoError(t, store.Save(ctx, result("a2", "a", base.Add(time.Minute), 0.2)))
	require.NoError(t, store.Save(ctx, result("b1", "b", base.Add(30*time.Second), 0.3)))
	require.NoError(t, store.Save(ctx, result("ab1", "ab", base.Add(2*time.Minute), 0.4)))

	all, err := store.List(ctx, models.ListEvaluationsRequest{})
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, r := range all {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"ab1", "a2", "b1", "a1"}, ids)

	onlyA, err := store.List(ctx, models.ListEvaluationsRequest{TestID: "a"})
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.Equal(t, "a2", onlyA[0].ID)
	assert.Equal(t, "a1", onlyA[1].ID)

	limited, err := store.List(ctx, models.ListEvaluationsRequest{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "ab1", limited[0].ID)
}

func TestStoreRejectsMissingID(t *testing.T) {
	store := openTestStore(t)
	assert.Error(t, store.Save(context.Background(), result("", "a", time.Now(), 0.5)))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpenPersistent(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), result("p1", "p", time.Now().UTC(), 0.5)))
	require.NoError(t, store.Close())

	reopened, err := Open(Config{Path: dir})
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p", got.TestID)
}

func TestStoreListSince(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, result("old", "a", base, 0.1)))
	require.NoError(t, store.Save(ctx, result("new", "a", base.Add(time.Hour), 0.2)))

	got, err := store.List(ctx, models.ListEvaluationsRequest{Since: base.Add(time.Minute)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)
}

func TestStoreListTestIDWithSeparator(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, result("1", "a", base, 0.1)))
	require.NoError(t, store.Save(ctx, result("2", "a/b", base.Add(time.Minute), 0.2)))

	onlyA, err := store.List(ctx, models.ListEvaluationsRequest{TestID: "a"})
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "1", onlyA[0].ID)

	nested, err := store.List(ctx, models.ListEvaluationsRequest{TestID: "a/b"})
	require.NoError(t, err)
	require.Len(t, nested, 1)
	assert.Equal(t, "2", nested[0].ID)

	got, err := store.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "a/b", got.TestID)
}
