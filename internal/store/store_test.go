package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/automl/experiment"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite3", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordListGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	board := []experiment.Result{
		{ID: "rf", Name: "Random Forest Classifier", Metrics: map[string]float64{"Accuracy": 0.95}},
		{ID: "dummy", Name: "Dummy Classifier", Metrics: map[string]float64{"Accuracy": 0.33}},
	}
	p := &experiment.Pipeline{
		RunID:     "run-1",
		ModelName: "Random Forest Classifier",
		Task:      experiment.Classification,
		Target:    "species",
		CreatedAt: base,
	}
	first, err := NewRun(p, "iris.csv", 150, board, "best_model.gob")
	require.NoError(t, err)
	assert.Equal(t, 0.95, first.BestScore)
	require.NoError(t, s.Record(ctx, first))

	second := first
	second.ID = "run-2"
	second.CreatedAt = base.Add(time.Hour)
	require.NoError(t, s.Record(ctx, second))

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "run-1", runs[1].ID)

	runs, err = s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "classification", got.Task)
	assert.Equal(t, 150, got.Rows)
	assert.True(t, base.Equal(got.CreatedAt))
	results, err := got.Results()
	require.NoError(t, err)
	assert.Equal(t, board, results)
}

func TestStore_Errors(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	var verr *errors.ValidationError
	assert.True(t, errors.As(s.Record(ctx, Run{}), &verr))

	r := Run{ID: "dup", Leaderboard: "[]"}
	require.NoError(t, s.Record(ctx, r))
	assert.Error(t, s.Record(ctx, r), "duplicate ids violate the primary key")

	_, err = Run{ID: "bad", Leaderboard: "{"}.Results()
	assert.Error(t, err)
}
