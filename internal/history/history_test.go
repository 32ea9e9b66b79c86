package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecallRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	started := time.Now().Add(-time.Minute)
	id, err := store.RecordRun(ctx, Run{
		Kind:       "upload",
		StartedAt:  started,
		FinishedAt: time.Now(),
		Total:      2,
		Succeeded:  1,
		Failed:     1,
		Results: []Result{
			{Slug: "going-to-the-dentist", Outcome: "succeeded"},
			{Slug: "first-day-of-school", Outcome: "failed", Reason: "title field not found"},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	runs, err := store.RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "upload", got.Kind)
	assert.Equal(t, 2, got.Total)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "going-to-the-dentist", got.Results[0].Slug)
	assert.Equal(t, "title field not found", got.Results[1].Reason)
}

func TestRecentRunsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := store.RecordRun(ctx, Run{
			Kind:       "upload",
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 30*time.Second),
			Total:      1,
			Succeeded:  1,
		})
		require.NoError(t, err)
	}

	runs, err := store.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
}

func TestRecentRunsEmptyStore(t *testing.T) {
	store := openTestStore(t)

	runs, err := store.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
