package dummy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
)

func TestDummyClassifier(t *testing.T) {
	X := mat.NewDense(4, 1, nil)
	y := mat.NewDense(4, 1, []float64{1, 0, 1, 1})

	d := NewDummyClassifier()
	require.NoError(t, d.Fit(X, y))

	pred, err := d.Predict(mat.NewDense(2, 1, []float64{5, -5}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, pred.At(0, 0))
	assert.Equal(t, 1.0, pred.At(1, 0))

	proba, err := d.PredictProba(mat.NewDense(1, 1, nil))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, proba.At(0, 0), 1e-12)
	assert.InDelta(t, 0.75, proba.At(0, 1), 1e-12)

	var _ model.ProbabilisticClassifier = d
}

func TestDummyClassifier_TieGoesToSmallestLabel(t *testing.T) {
	d := NewDummyClassifier()
	require.NoError(t, d.Fit(mat.NewDense(2, 1, nil), mat.NewDense(2, 1, []float64{3, 1})))
	pred, err := d.Predict(mat.NewDense(1, 1, nil))
	require.NoError(t, err)
	assert.Equal(t, 1.0, pred.At(0, 0))
}

func TestDummyRegressor(t *testing.T) {
	d := NewDummyRegressor()
	require.NoError(t, d.Fit(mat.NewDense(3, 2, nil), mat.NewDense(3, 1, []float64{1, 2, 6})))

	pred, err := d.Predict(mat.NewDense(2, 2, nil))
	require.NoError(t, err)
	assert.Equal(t, 3.0, pred.At(0, 0))
	assert.Equal(t, 3.0, pred.At(1, 0))

	_, err = d.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)

	assert.Error(t, NewDummyRegressor().Fit(mat.NewDense(1, 1, nil), mat.NewDense(1, 1, []float64{math.NaN()})))

	var _ model.Regressor = d
}

func TestDummy_NotFitted(t *testing.T) {
	_, err := NewDummyClassifier().Predict(mat.NewDense(1, 1, nil))
	assert.Error(t, err)
	_, err = NewDummyRegressor().Predict(mat.NewDense(1, 1, nil))
	assert.Error(t, err)
}
