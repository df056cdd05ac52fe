package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTestLogger_LevelsAndFields(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)

	logger.Debug("hidden")
	logger.Info("setup finished", SamplesKey, 150, TaskKey, "classification")
	logger.Error("fit failed", fmt.Errorf("singular matrix"), ModelIDKey, "lr")

	assert.False(t, logger.ContainsMessage("hidden"))
	assert.True(t, logger.ContainsField(SamplesKey, 150.0))
	assert.True(t, logger.ContainsField("error", "singular matrix"))
	assert.True(t, logger.ContainsField(ModelIDKey, "lr"))
	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
}

func TestTestLogger_WithSharesBuffer(t *testing.T) {
	logger, buffer := NewTestLogger(LevelDebug)
	child := logger.With(RunIDKey, "run-1")
	child.Info("compare started", FoldsKey, 5)

	entries, err := logger.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run-1", entries[0][RunIDKey])
	assert.Contains(t, buffer.String(), "compare started")
}

func TestZerologLogger_WritesJSON(t *testing.T) {
	var out bytes.Buffer
	p, closer := NewZerologProvider(Options{Level: LevelDebug, Output: &out})
	defer closer.Close()

	logger := p.GetLoggerWithName("experiment").With(RunIDKey, "abc")
	logger.Info("leaderboard ready", ModelIDKey, "rf", ScoreKey, 0.93)
	logger.Error("plot failed", errors.NewValueError("PlotModel", "no probabilities"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "experiment", first[ComponentKey])
	assert.Equal(t, "abc", first[RunIDKey])
	assert.Equal(t, "rf", first[ModelIDKey])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "error", second["level"])
	assert.Contains(t, second["error"], "no probabilities")
}

func TestZerologProvider_SetLevel(t *testing.T) {
	var out bytes.Buffer
	p, _ := NewZerologProvider(Options{Level: LevelInfo, Output: &out})
	p.SetLevel(LevelError)

	logger := p.GetLogger()
	logger.Warn("dropped")
	logger.Error("kept")

	assert.NotContains(t, out.String(), "dropped")
	assert.Contains(t, out.String(), "kept")
	assert.False(t, logger.Enabled(context.Background(), LevelWarn))
}

func TestZerologProvider_RotatingFile(t *testing.T) {
	var out bytes.Buffer
	file := filepath.Join(t.TempDir(), "automl.log")
	p, closer := NewZerologProvider(Options{Level: LevelInfo, Output: &out, File: file, MaxSizeMB: 1})
	p.GetLogger().Info("to both sinks")
	require.NoError(t, closer.Close())

	assert.Contains(t, out.String(), "to both sinks")
	assert.FileExists(t, file)
}
