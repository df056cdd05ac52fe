package errors

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "automl: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "automl: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			assert.Equal(t, tt.wantMsg, err.Error())

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			assert.Contains(t, formatted, "errors_test.go")

			var modelErr *ModelError
			assert.True(t, As(err, &modelErr))
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 10, 3, 1)
	assert.Equal(t, "automl: Predict: dimension mismatch on axis 1 (features). Expected 10, got 3", err.Error())

	var dimErr *DimensionError
	require.True(t, As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Got)
}

func TestDatasetError(t *testing.T) {
	err := NewDatasetError("train.csv", 4, "wrong number of fields", io.ErrUnexpectedEOF)
	assert.Equal(t, `automl: dataset "train.csv" line 4: wrong number of fields: unexpected EOF`, err.Error())
	assert.True(t, Is(err, io.ErrUnexpectedEOF))

	noLine := NewDatasetError("x.csv", 0, "no data rows", nil)
	assert.Equal(t, `automl: dataset "x.csv": no data rows`, noLine.Error())
}

func TestIsInputError(t *testing.T) {
	assert.True(t, IsInputError(NewValidationError("target", "column not found", "price")))
	assert.True(t, IsInputError(Wrap(NewDatasetError("a.csv", 0, "empty", nil), "upload")))
	assert.True(t, IsInputError(NewDimensionError("Transform", 3, 2, 1)))
	assert.False(t, IsInputError(NewModelError("Fit", "singular matrix", ErrSingularMatrix)))
	assert.False(t, IsInputError(nil))
}

func TestCheckScalar(t *testing.T) {
	assert.NoError(t, CheckScalar("loss", 0.3, 1))

	err := CheckScalar("loss", posInf(), 7)
	require.Error(t, err)
	var numErr *NumericalInstabilityError
	require.True(t, As(err, &numErr))
	assert.Equal(t, 7, numErr.Iteration)
}

func TestWarnRoutesToZerologFunc(t *testing.T) {
	var got []string
	SetZerologWarnFunc(func(w error) { got = append(got, w.Error()) })
	defer SetZerologWarnFunc(nil)

	Warn(NewUndefinedMetricWarning("precision", "no predicted samples", 0))
	Warn(NewConvergenceWarning("LogisticRegression", 100, ""))

	require.Len(t, got, 2)
	assert.True(t, strings.HasPrefix(got[0], "'precision' is ill-defined"))
	assert.Equal(t, "LogisticRegression failed to converge after 100 iterations", got[1])
}

func TestWarnFallsBackToHandler(t *testing.T) {
	var count int
	SetWarningHandler(func(error) { count++ })
	defer SetWarningHandler(func(error) {})

	Warn(NewConvergenceWarning("lr", 1, "step too small"))
	assert.Equal(t, 1, count)
}

func posInf() float64 {
	var zero float64
	return 1 / zero
}
