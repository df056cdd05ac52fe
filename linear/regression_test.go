package linear

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

func TestLinearRegression_Basic(t *testing.T) {
	// y = 2x + 1
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{3, 5, 7, 9})

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.InDelta(t, 2.0, lr.Coef[0], 1e-9)
	assert.InDelta(t, 1.0, lr.Intercept, 1e-9)

	pred, err := lr.Predict(mat.NewDense(2, 1, []float64{5, 6}))
	require.NoError(t, err)
	assert.InDelta(t, 11.0, pred.At(0, 0), 1e-9)
	assert.InDelta(t, 13.0, pred.At(1, 0), 1e-9)
}

func TestLinearRegression_NoIntercept(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})

	lr := NewLinearRegression(WithFitIntercept(false))
	require.NoError(t, lr.Fit(X, y))
	assert.InDelta(t, 2.0, lr.Coef[0], 1e-9)
	assert.Equal(t, 0.0, lr.Intercept)
}

func TestLinearRegression_Multivariate(t *testing.T) {
	X, y := createBenchmarkData(200, 3)
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	// createBenchmarkData uses weights 0.5, 1.0, 1.5 and intercept 1 with small noise
	assert.InDeltaSlice(t, []float64{0.5, 1.0, 1.5}, lr.Coef, 0.02)
	assert.InDelta(t, 1.0, lr.Intercept, 0.02)
}

func TestLinearRegression_CollinearColumns(t *testing.T) {
	// two one-hot columns always sum to one, so XᵀX with an intercept is singular
	X := mat.NewDense(4, 2, []float64{
		1, 0,
		1, 0,
		0, 1,
		0, 1,
	})
	y := mat.NewDense(4, 1, []float64{1, 1, 3, 3})

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1, 3, 3}, mat.Col(nil, 0, pred), 1e-9)
}

func TestLinearRegression_ConstantFeatures(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{5, 5, 5})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, 0.0, lr.Coef[0])
	assert.InDelta(t, 2.0, lr.Intercept, 1e-12)
}

func TestLinearRegression_Errors(t *testing.T) {
	lr := NewLinearRegression()

	_, err := lr.Predict(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = lr.Fit(mat.NewDense(3, 1, nil), mat.NewDense(2, 1, nil))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	require.NoError(t, lr.Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(2, 1, []float64{1, 2})))
	_, err = lr.Predict(mat.NewDense(1, 2, nil))
	assert.True(t, errors.As(err, &dim))
}

func TestRidge(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{3, 5, 7, 9})

	// centered: Σx² = 5, Σxy = 10 → w = 10 / (5 + alpha)
	r := NewRidge(WithAlpha(5))
	require.NoError(t, r.Fit(X, y))
	assert.InDelta(t, 1.0, r.Coef[0], 1e-9)
	assert.InDelta(t, 6.0-2.5, r.Intercept, 1e-9)

	tiny := NewRidge(WithAlpha(1e-9))
	require.NoError(t, tiny.Fit(X, y))
	assert.InDelta(t, 2.0, tiny.Coef[0], 1e-6)

	assert.True(t, errors.IsInputError(NewRidge(WithAlpha(0)).Fit(X, y)))
}

func TestGobRoundTrip(t *testing.T) {
	X, y := createBenchmarkData(50, 2)
	r := NewRidge()
	require.NoError(t, r.Fit(X, y))

	path := t.TempDir() + "/ridge.gob"
	require.NoError(t, model.SaveModel(r, path))

	var loaded Ridge
	require.NoError(t, model.LoadModel(&loaded, path))
	assert.True(t, loaded.IsFitted())

	want, err := r.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}
