package neighbors

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

func TestKNeighborsClassifier(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 10, 11, 12})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	tests := []struct {
		name   string
		opts   []Option
		x      float64
		want   float64
		proba1 float64
	}{
		{"k1 left", []Option{WithNNeighbors(1)}, 1.4, 0, 0},
		{"k1 right", []Option{WithNNeighbors(1)}, 9, 1, 1},
		{"k3 majority", []Option{WithNNeighbors(3)}, 2, 0, 0},
		{"k5 mixed", []Option{WithNNeighbors(5)}, 6.9, 1, 0.6},
		{"k larger than n", []Option{WithNNeighbors(50)}, 0, 0, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kn := NewKNeighborsClassifier(tt.opts...)
			require.NoError(t, kn.Fit(X, y))
			x := mat.NewDense(1, 1, []float64{tt.x})
			proba, err := kn.PredictProba(x)
			require.NoError(t, err)
			assert.InDelta(t, tt.proba1, proba.At(0, 1), 1e-12)
			pred, err := kn.Predict(x)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pred.At(0, 0))
		})
	}
}

func TestKNeighborsClassifier_TieGoesToSmallestClass(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{-1, 1})
	y := mat.NewDense(2, 1, []float64{4, 2})
	kn := NewKNeighborsClassifier(WithNNeighbors(2))
	require.NoError(t, kn.Fit(X, y))

	pred, err := kn.Predict(mat.NewDense(1, 1, []float64{0}))
	require.NoError(t, err)
	assert.Equal(t, 2.0, pred.At(0, 0))
	assert.Equal(t, []int{2, 4}, kn.Classes())
}

func TestKNeighborsClassifier_DistanceWeights(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 3, 4})
	y := mat.NewDense(3, 1, []float64{0, 1, 1})
	kn := NewKNeighborsClassifier(WithNNeighbors(3), WithWeights(Distance))
	require.NoError(t, kn.Fit(X, y))

	// distances 1, 2, 3 -> weights 1, 1/2, 1/3
	proba, err := kn.PredictProba(mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+0.5+1.0/3), proba.At(0, 0), 1e-12)

	// exact match takes all the weight
	proba, err = kn.PredictProba(mat.NewDense(1, 1, []float64{3}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, proba.At(0, 1), 1e-12)
}

func TestKNeighborsRegressor(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
		10, 10,
		11, 10,
	})
	y := mat.NewDense(5, 1, []float64{1, 2, 3, 10, 20})

	kn := NewKNeighborsRegressor(WithNNeighbors(3))
	require.NoError(t, kn.Fit(X, y))
	pred, err := kn.Predict(mat.NewDense(2, 2, []float64{0.2, 0.2, 10.5, 10}))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, pred.At(0, 0), 1e-12)
	// nearest three to (10.5, 10) are rows 3, 4 and then row 1
	assert.InDelta(t, (10+20+2)/3.0, pred.At(1, 0), 1e-12)
}

func TestKNeighbors_ManyRowsParallel(t *testing.T) {
	n := 600
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, float64(2*i))
	}
	kn := NewKNeighborsRegressor(WithNNeighbors(1))
	require.NoError(t, kn.Fit(X, y))
	pred, err := kn.Predict(X)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.Equal(t, y.At(i, 0), pred.At(i, 0))
	}
}

func TestKNeighbors_Errors(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{0, 1})
	y := mat.NewDense(2, 1, []float64{0, 1})

	var verr *errors.ValidationError
	assert.True(t, errors.As(NewKNeighborsClassifier(WithNNeighbors(0)).Fit(X, y), &verr))
	assert.True(t, errors.As(NewKNeighborsRegressor(WithWeights("cosine")).Fit(X, y), &verr))

	_, err := NewKNeighborsClassifier().Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	assert.Error(t, NewKNeighborsRegressor().Fit(X, mat.NewDense(2, 1, []float64{0, math.NaN()})))
	assert.Error(t, NewKNeighborsClassifier().Fit(X, mat.NewDense(2, 1, []float64{0, -1})))
}

func TestKNeighborsClassifier_GobRoundTrip(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 10, 11})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	kn := NewKNeighborsClassifier(WithNNeighbors(3))
	require.NoError(t, kn.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(kn))
	var loaded KNeighborsClassifier
	require.NoError(t, gob.NewDecoder(&buf).Decode(&loaded))

	want, err := kn.PredictProba(X)
	require.NoError(t, err)
	got, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}
