package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type regressionCase struct {
	name    string
	yTrue   *mat.VecDense
	yPred   *mat.VecDense
	want    float64
	wantErr bool
}

func runRegressionCases(t *testing.T, fn func(yTrue, yPred *mat.VecDense) (float64, error), cases []regressionCase) {
	t.Helper()
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fn(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

var invalidPairs = []regressionCase{
	{name: "dimension mismatch", yTrue: vec(1, 2, 3), yPred: vec(1, 2), wantErr: true},
	{name: "empty vectors", yTrue: vec(), yPred: vec(), wantErr: true},
	{name: "nil vectors", wantErr: true},
}

func TestMSE(t *testing.T) {
	runRegressionCases(t, MSE, append([]regressionCase{
		{name: "perfect prediction", yTrue: vec(1, 2, 3, 4, 5), yPred: vec(1, 2, 3, 4, 5), want: 0},
		{name: "simple case", yTrue: vec(1, 2, 3, 4), yPred: vec(1.5, 2.5, 2.5, 3.5), want: 0.25},
		{name: "larger errors", yTrue: vec(10, 20, 30), yPred: vec(12, 18, 33), want: 17.0 / 3.0},
	}, invalidPairs...))
}

func TestMSEMatrix(t *testing.T) {
	got, err := MSEMatrix(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(3, 1, []float64{1, 2, 5}))
	require.NoError(t, err)
	assert.InDelta(t, 4.0/3, got, 1e-9)

	_, err = MSEMatrix(mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil))
	assert.Error(t, err, "only column vectors are accepted")
	_, err = MSEMatrix(mat.NewDense(3, 1, nil), mat.NewDense(2, 1, nil))
	assert.Error(t, err)
}

func TestRMSE(t *testing.T) {
	runRegressionCases(t, RMSE, append([]regressionCase{
		{name: "simple case", yTrue: vec(1, 2, 3, 4), yPred: vec(1.5, 2.5, 2.5, 3.5), want: 0.5},
	}, invalidPairs...))
}

func TestMAE(t *testing.T) {
	runRegressionCases(t, MAE, append([]regressionCase{
		{name: "simple case", yTrue: vec(1, 2, 3, 4), yPred: vec(2, 2, 2, 2), want: 1},
		{name: "perfect prediction", yTrue: vec(-1, 0, 1), yPred: vec(-1, 0, 1), want: 0},
	}, invalidPairs...))
}

func TestR2Score(t *testing.T) {
	runRegressionCases(t, R2Score, append([]regressionCase{
		{name: "perfect prediction", yTrue: vec(1, 2, 3, 4, 5), yPred: vec(1, 2, 3, 4, 5), want: 1},
		{name: "worse than mean baseline", yTrue: vec(1, 2, 3, 4), yPred: vec(4, 3, 2, 1), want: -3},
		{name: "constant target, imperfect prediction", yTrue: vec(3, 3, 3), yPred: vec(2, 3, 4), want: 0},
		{name: "constant target, perfect prediction", yTrue: vec(3, 3, 3), yPred: vec(3, 3, 3), want: 1},
	}, invalidPairs...))
}

func TestMAPE(t *testing.T) {
	runRegressionCases(t, MAPE, append([]regressionCase{
		{name: "ten percent off", yTrue: vec(10, 20), yPred: vec(11, 18), want: 0.1},
		{name: "zero target uses epsilon", yTrue: vec(0, 1), yPred: vec(0, 1), want: 0},
	}, invalidPairs...))
}

func TestRMSLE(t *testing.T) {
	want := math.Sqrt((math.Pow(math.Log1p(3)-math.Log1p(2), 2) + 0) / 2)
	runRegressionCases(t, RMSLE, append([]regressionCase{
		{name: "simple case", yTrue: vec(3, 5), yPred: vec(2, 5), want: want},
		{name: "negative values fall back to zero", yTrue: vec(-1, 5), yPred: vec(2, 5), want: 0},
	}, invalidPairs...))
}

func TestExplainedVarianceScore(t *testing.T) {
	runRegressionCases(t, ExplainedVarianceScore, append([]regressionCase{
		{name: "constant offset is fully explained", yTrue: vec(1, 2, 3), yPred: vec(2, 3, 4), want: 1},
		{name: "reversed", yTrue: vec(1, 2, 3), yPred: vec(3, 2, 1), want: -3},
	}, invalidPairs...))
}

func BenchmarkMSE(b *testing.B) {
	size := 10000
	yTrue := mat.NewVecDense(size, nil)
	yPred := mat.NewVecDense(size, nil)
	for i := 0; i < size; i++ {
		yTrue.SetVec(i, float64(i))
		yPred.SetVec(i, float64(i)+0.1*float64(i%10))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = MSE(yTrue, yPred)
	}
}
