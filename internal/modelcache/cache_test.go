package modelcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/experiment"
	"github.com/YuminosukeSato/automl/pkg/log"
)

func trainAndSave(t *testing.T, path, model string) *experiment.Pipeline {
	t.Helper()
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 2 * v
	}
	f, err := dataset.NewFrame("line.csv",
		dataset.NewNumericColumn("x", x),
		dataset.NewNumericColumn("y", y),
	)
	require.NoError(t, err)

	quiet, _ := log.NewTestLogger(log.LevelError)
	exp, err := experiment.Setup(f, "y", experiment.Regression, experiment.WithFolds(2), experiment.WithLogger(quiet))
	require.NoError(t, err)
	p, err := exp.CompareModels(context.Background(), experiment.WithInclude(model))
	require.NoError(t, err)
	_, err = experiment.SaveModel(p, path)
	require.NoError(t, err)
	return p
}

func TestCache_HitAndReloadAfterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best_model")
	trainAndSave(t, path, "dummy")

	c, err := New(2)
	require.NoError(t, err)
	defer c.Close()

	p, err := c.Get(path)
	require.NoError(t, err)
	assert.Equal(t, "dummy", p.ModelID)

	again, err := c.Get(path + ".gob")
	require.NoError(t, err)
	assert.Same(t, p, again)
	assert.Equal(t, 1, c.Loads())

	trainAndSave(t, path, "lr")
	require.Eventually(t, func() bool { return c.Len() == 0 }, 5*time.Second, 10*time.Millisecond)

	p, err = c.Get(path)
	require.NoError(t, err)
	assert.Equal(t, "lr", p.ModelID)
	assert.Equal(t, 2, c.Loads())
}

func TestCache_EvictsAndInvalidates(t *testing.T) {
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "a"), filepath.Join(dir, "b"), filepath.Join(dir, "c")}
	for _, p := range paths {
		trainAndSave(t, p, "dummy")
	}

	c, err := New(2)
	require.NoError(t, err)
	defer c.Close()

	for _, p := range paths {
		_, err := c.Get(p)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())

	c.Invalidate(paths[2])
	assert.Equal(t, 1, c.Len())
}

func TestCache_Errors(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)

	c, err := New(1)
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Get(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
}
