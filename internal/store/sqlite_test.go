package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phylo-tools/strainfilter/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "data/meta.tsv", []byte(`{"subsample_total":100}`))
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "data/meta.tsv", got.Metadata)
	assert.JSONEq(t, `{"subsample_total":100}`, string(got.Options))
	assert.Nil(t, got.Outcome)
	assert.Nil(t, got.CompletedAt)
}

func TestSQLite_CompleteRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "meta.tsv", nil)
	require.NoError(t, err)

	outcome := &model.Outcome{
		Kept:         []string{"s1", "s2"},
		DropCounts:   map[model.DropReason]int{model.DropExcluded: 3},
		TotalRecords: 5,
	}
	require.NoError(t, st.CompleteRun(ctx, run.ID, outcome))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Outcome)
	assert.Equal(t, []string{"s1", "s2"}, got.Outcome.Kept)
	assert.Equal(t, 3, got.Outcome.DropCounts[model.DropExcluded])
	assert.NotNil(t, got.CompletedAt)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "meta.tsv", nil)
	require.NoError(t, err)

	require.NoError(t, st.FailRun(ctx, run.ID, "all records were dropped"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "all records were dropped", got.Error)
}

func TestSQLite_UpdateMissingRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	assert.Error(t, st.CompleteRun(ctx, "nope", &model.Outcome{}))
	assert.Error(t, st.FailRun(ctx, "nope", "boom"))
}

func TestSQLite_GetMissingRun(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nonexistent")
	assert.Error(t, err)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, "a.tsv", nil)
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "b.tsv", nil)
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, a.ID, &model.Outcome{Kept: []string{"x"}}))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, a.ID, complete[0].ID)

	byPath, err := st.ListRuns(ctx, RunFilter{Metadata: "b.tsv"})
	require.NoError(t, err)
	require.Len(t, byPath, 1)
	assert.Equal(t, "b.tsv", byPath[0].Metadata)
}

func TestSQLite_ListRunsLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := st.CreateRun(ctx, "meta.tsv", nil)
		require.NoError(t, err)
	}

	runs, err := st.ListRuns(ctx, RunFilter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}
