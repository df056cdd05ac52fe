package linear_model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// two clusters around (1, 1) and (3, 3)
func binaryBlobs() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
	return X, y
}

// three clusters on a line
func threeBlobs() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(9, 2, []float64{
		0, 0, 0.2, 0.1, 0.1, 0.3,
		3, 3, 3.2, 2.9, 2.8, 3.1,
		6, 0, 6.1, 0.2, 5.9, -0.1,
	})
	y := mat.NewDense(9, 1, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})
	return X, y
}

func TestLogisticRegression_FitPredict_Binary(t *testing.T) {
	X, y := binaryBlobs()
	lr := NewLogisticRegression()
	require.NoError(t, lr.Fit(X, y))

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, mat.Col(nil, 0, y), mat.Col(nil, 0, pred))

	test, err := lr.Predict(mat.NewDense(2, 2, []float64{1, 1, 3, 3}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, mat.Col(nil, 0, test))
	assert.Equal(t, []int{0, 1}, lr.Classes())
}

func TestLogisticRegression_PredictProba(t *testing.T) {
	X, y := binaryBlobs()
	lr := NewLogisticRegression()
	require.NoError(t, lr.Fit(X, y))

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	require.Equal(t, 6, r)
	require.Equal(t, 2, c)
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12)
	}
	assert.Greater(t, proba.At(5, 1), 0.5)
	assert.Less(t, proba.At(0, 1), 0.5)
}

func TestLogisticRegression_Regularization(t *testing.T) {
	X, y := binaryBlobs()
	strong := NewLogisticRegression(WithLRC(0.01))
	weak := NewLogisticRegression(WithLRC(100))
	require.NoError(t, strong.Fit(X, y))
	require.NoError(t, weak.Fit(X, y))

	norm := func(w []float64) float64 { return mat.Norm(mat.NewVecDense(len(w), w), 2) }
	assert.Less(t, norm(strong.Coef[0]), norm(weak.Coef[0]))

	assert.True(t, errors.IsInputError(NewLogisticRegression(WithLRC(0)).Fit(X, y)))
}

func TestLogisticRegression_Multiclass(t *testing.T) {
	X, y := threeBlobs()
	lr := NewLogisticRegression()
	require.NoError(t, lr.Fit(X, y))
	require.Len(t, lr.Coef, 3)

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, mat.Col(nil, 0, y), mat.Col(nil, 0, pred))

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		assert.InDelta(t, 1.0, mat.Sum(proba.(*mat.Dense).RowView(i)), 1e-12)
	}
}

func TestLogisticRegression_SingleClass(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{1, 1, 1})
	assert.Error(t, NewLogisticRegression().Fit(X, y))
}

func TestLogisticRegression_NotFitted(t *testing.T) {
	_, err := NewLogisticRegression().Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestLogisticRegression_ConvergenceWarning(t *testing.T) {
	var warned []error
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })

	X, y := binaryBlobs()
	require.NoError(t, NewLogisticRegression(WithLRMaxIter(2)).Fit(X, y))
	require.NotEmpty(t, warned)
	var cw *errors.ConvergenceWarning
	assert.True(t, errors.As(warned[0], &cw))
}

func TestLogisticRegression_GobRoundTrip(t *testing.T) {
	X, y := threeBlobs()
	lr := NewLogisticRegression()
	require.NoError(t, lr.Fit(X, y))

	path := filepath.Join(t.TempDir(), "lr.gob")
	require.NoError(t, model.SaveModel(lr, path))
	var loaded LogisticRegression
	require.NoError(t, model.LoadModel(&loaded, path))

	want, err := lr.PredictProba(X)
	require.NoError(t, err)
	got, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}

func TestRidgeClassifier(t *testing.T) {
	t.Run("binary", func(t *testing.T) {
		X, y := binaryBlobs()
		rc := NewRidgeClassifier(1.0)
		require.NoError(t, rc.Fit(X, y))
		pred, err := rc.Predict(X)
		require.NoError(t, err)
		assert.Equal(t, mat.Col(nil, 0, y), mat.Col(nil, 0, pred))
		assert.Len(t, rc.Coef, 1)
	})

	t.Run("multiclass", func(t *testing.T) {
		X, y := threeBlobs()
		rc := NewRidgeClassifier(0.1)
		require.NoError(t, rc.Fit(X, y))
		pred, err := rc.Predict(X)
		require.NoError(t, err)
		assert.Equal(t, mat.Col(nil, 0, y), mat.Col(nil, 0, pred))
	})

	t.Run("has no probabilities", func(t *testing.T) {
		var c model.Classifier = NewRidgeClassifier(1)
		_, ok := c.(model.ProbabilisticClassifier)
		assert.False(t, ok)
	})
}
