package main

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/automl/internal/store"
)

func writeBlobs(t *testing.T, path string, withLabel bool) {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	var b strings.Builder
	b.WriteString("x1,x2")
	if withLabel {
		b.WriteString(",label")
	}
	b.WriteString("\n")
	centers := [][2]float64{{0, 0}, {6, 6}}
	for c, ctr := range centers {
		for i := 0; i < 20; i++ {
			fmt.Fprintf(&b, "%.3f,%.3f", ctr[0]+rng.NormFloat64()*0.4, ctr[1]+rng.NormFloat64()*0.4)
			if withLabel {
				fmt.Fprintf(&b, ",%c", 'a'+c)
			}
			b.WriteString("\n")
		}
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "automl.yaml")
	body := fmt.Sprintf(`log:
  level: error
storage:
  model_dir: %s
  output_dir: %s
database:
  driver: sqlite3
  dsn: %s
automl:
  folds: 3
  include: [lr, nb, dummy]
`, filepath.Join(dir, "models"), filepath.Join(dir, "out"), filepath.Join(dir, "runs.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestTrainThenPredict(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	train := filepath.Join(dir, "train.csv")
	writeBlobs(t, train, true)
	plots := filepath.Join(dir, "plots")

	var out bytes.Buffer
	err := runTrain(context.Background(), []string{
		"-config", cfg, "-data", train, "-target", "label", "-plots", plots, "-quiet",
	}, &out)
	require.NoError(t, err, out.String())
	assert.Contains(t, out.String(), "Target mapping")
	assert.Contains(t, out.String(), "Model Comparison")
	assert.Contains(t, out.String(), "successfully!")
	assert.FileExists(t, filepath.Join(dir, "models", "best_model.gob"))
	assert.FileExists(t, filepath.Join(plots, "confusion_matrix.png"))

	runs, err := store.Open(context.Background(), "sqlite3", filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer runs.Close()
	list, err := runs.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "train.csv", list[0].Dataset)

	unseen := filepath.Join(dir, "new.csv")
	writeBlobs(t, unseen, false)
	out.Reset()
	require.NoError(t, runPredict([]string{"-config", cfg, "-data", unseen}, &out))
	assert.Contains(t, out.String(), "successfully downloaded!")

	preds, err := os.ReadFile(filepath.Join(dir, "out", "predictions.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(preds)), "\n")
	assert.Len(t, lines, 41)
	assert.Equal(t, "x1,x2,prediction_label,prediction_score", lines[0])
}

func TestTrain_MissingFlags(t *testing.T) {
	err := runTrain(context.Background(), []string{"-data", "x.csv"}, &bytes.Buffer{})
	assert.Error(t, err)

	err = runTrain(context.Background(), []string{"-data", "x.csv", "-target", "y", "-task", "clustering"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestPredict_NoModel(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	data := filepath.Join(dir, "new.csv")
	writeBlobs(t, data, false)
	assert.Error(t, runPredict([]string{"-config", cfg, "-data", data}, &bytes.Buffer{}))
}
