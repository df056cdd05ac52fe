package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

func vec(v ...float64) *mat.VecDense {
	if len(v) == 0 {
		return &mat.VecDense{}
	}
	return mat.NewVecDense(len(v), v)
}

func TestAUC(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yScore  *mat.VecDense
		want    float64
		wantErr bool
	}{
		{name: "perfect classifier", yTrue: vec(0, 0, 0, 1, 1, 1), yScore: vec(0.1, 0.2, 0.3, 0.7, 0.8, 0.9), want: 1},
		{name: "worst classifier", yTrue: vec(0, 0, 0, 1, 1, 1), yScore: vec(0.9, 0.8, 0.7, 0.3, 0.2, 0.1), want: 0},
		{name: "all ties", yTrue: vec(0, 1, 0, 1), yScore: vec(0.5, 0.5, 0.5, 0.5), want: 0.5},
		{name: "typical case", yTrue: vec(0, 0, 1, 1), yScore: vec(0.1, 0.4, 0.35, 0.8), want: 0.75},
		{name: "single class falls back to 0.5", yTrue: vec(1, 1, 1, 1), yScore: vec(0.1, 0.4, 0.35, 0.8), want: 0.5},
		{name: "non-binary labels", yTrue: vec(0, 0.5, 1), yScore: vec(0.1, 0.5, 0.9), wantErr: true},
		{name: "dimension mismatch", yTrue: vec(0, 1), yScore: vec(0.5), wantErr: true},
		{name: "empty vectors", yTrue: vec(), yScore: vec(), wantErr: true},
		{name: "nil vectors", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(tt.yTrue, tt.yScore)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestAUCMatrix(t *testing.T) {
	got, err := AUCMatrix(
		mat.NewDense(4, 2, []float64{0, 9, 0, 9, 1, 9, 1, 9}),
		mat.NewDense(4, 2, []float64{0.1, 9, 0.4, 9, 0.35, 9, 0.8, 9}),
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-9, "uses the first column")

	_, err = AUCMatrix(nil, mat.NewDense(1, 1, []float64{0.5}))
	assert.Error(t, err)
	_, err = AUCMatrix(&mat.Dense{}, &mat.Dense{})
	assert.Error(t, err)
}

func TestMulticlassAUC(t *testing.T) {
	yTrue := vec(0, 1, 2, 0, 1, 2)
	proba := mat.NewDense(6, 3, []float64{
		0.8, 0.1, 0.1,
		0.1, 0.8, 0.1,
		0.1, 0.1, 0.8,
		0.7, 0.2, 0.1,
		0.2, 0.7, 0.1,
		0.2, 0.1, 0.7,
	})
	got, err := MulticlassAUC(yTrue, proba)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)

	binary := mat.NewDense(4, 2, []float64{0.9, 0.1, 0.6, 0.4, 0.65, 0.35, 0.2, 0.8})
	got, err = MulticlassAUC(vec(0, 0, 1, 1), binary)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-9)

	_, err = MulticlassAUC(vec(0, 1), proba)
	assert.Error(t, err)
}

func TestROCCurve(t *testing.T) {
	fpr, tpr, thr, err := ROCCurve(vec(0, 0, 1, 1), vec(0.1, 0.4, 0.35, 0.8))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0.5, 0.5, 1}, fpr)
	assert.Equal(t, []float64{0, 0.5, 0.5, 1, 1}, tpr)
	assert.True(t, math.IsInf(thr[0], 1))
	assert.Equal(t, []float64{0.8, 0.4, 0.35, 0.1}, thr[1:])

	_, _, _, err = ROCCurve(vec(1, 1), vec(0.2, 0.3))
	assert.Error(t, err)
}

func TestBinaryLogLoss(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yProb   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{name: "perfect predictions are clipped", yTrue: vec(0, 0, 1, 1), yProb: vec(0, 0, 1, 1), want: 0},
		{name: "typical case", yTrue: vec(0, 0, 1, 1), yProb: vec(0.1, 0.2, 0.8, 0.9), want: 0.164252},
		{name: "worst predictions", yTrue: vec(0, 0, 1, 1), yProb: vec(0.9, 0.9, 0.1, 0.1), want: 2.3025851},
		{name: "non-binary labels", yTrue: vec(0, 0.5, 1), yProb: vec(0.1, 0.5, 0.9), wantErr: true},
		{name: "empty vectors", yTrue: vec(), yProb: vec(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BinaryLogLoss(tt.yTrue, tt.yProb)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-5)
		})
	}
}

func TestAccuracyAndClassificationError(t *testing.T) {
	tests := []struct {
		name  string
		yTrue *mat.VecDense
		yPred *mat.VecDense
		want  float64
	}{
		{name: "perfect", yTrue: vec(0, 1, 2, 1, 0), yPred: vec(0, 1, 2, 1, 0), want: 1},
		{name: "one error", yTrue: vec(0, 1, 2, 1, 0), yPred: vec(0, 1, 1, 1, 0), want: 0.8},
		{name: "all wrong", yTrue: vec(0, 0, 0), yPred: vec(1, 1, 1), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := Accuracy(tt.yTrue, tt.yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, acc, 1e-9)

			ce, err := ClassificationError(tt.yTrue, tt.yPred)
			require.NoError(t, err)
			assert.InDelta(t, 1-tt.want, ce, 1e-9)
		})
	}

	_, err := Accuracy(vec(0, 1), vec(0))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))
}

func TestBinaryPrecisionRecallF1(t *testing.T) {
	// tp=2 fp=1 fn=1 tn=2
	yTrue := vec(1, 1, 1, 0, 0, 0)
	yPred := vec(1, 1, 0, 1, 0, 0)

	p, err := Precision(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, p, 1e-9)

	r, err := Recall(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, r, 1e-9)

	f, err := F1(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, f, 1e-9)

	kappa, err := CohenKappa(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, kappa, 1e-9)

	mcc, err := MCC(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, mcc, 1e-9)
}

func TestMulticlassWeightedAverages(t *testing.T) {
	yTrue := vec(0, 0, 1, 1, 2, 2)
	yPred := vec(0, 1, 1, 1, 2, 0)

	report, err := ClassificationReport(yTrue, yPred, 3)
	require.NoError(t, err)
	require.Len(t, report, 3)
	assert.InDelta(t, 0.5, report[0].Precision, 1e-9)
	assert.InDelta(t, 0.5, report[0].Recall, 1e-9)
	assert.InDelta(t, 2.0/3, report[1].Precision, 1e-9)
	assert.InDelta(t, 1.0, report[1].Recall, 1e-9)
	assert.InDelta(t, 1.0, report[2].Precision, 1e-9)
	assert.Equal(t, 2, report[2].Support)

	p, err := Precision(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, (0.5+2.0/3+1)/3, p, 1e-9)

	r, err := Recall(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, (0.5+1+0.5)/3, r, 1e-9)
}

func TestZeroDivisionFallsBackWithWarning(t *testing.T) {
	var warned []error
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })

	p, err := Precision(vec(1, 1, 0), vec(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
	require.NotEmpty(t, warned)

	var w *errors.UndefinedMetricWarning
	assert.True(t, errors.As(warned[0], &w))
}

func TestConfusionMatrix(t *testing.T) {
	cm, err := ConfusionMatrix(vec(0, 0, 1, 2), vec(0, 1, 1, 0), 3)
	require.NoError(t, err)
	want := mat.NewDense(3, 3, []float64{
		1, 1, 0,
		0, 1, 0,
		1, 0, 0,
	})
	assert.True(t, mat.Equal(want, cm))

	_, err = ConfusionMatrix(vec(0, 3), vec(0, 0), 3)
	assert.Error(t, err)
}

func BenchmarkAUC(b *testing.B) {
	n := 1000
	yTrue := mat.NewVecDense(n, nil)
	yScore := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if i >= n/2 {
			yTrue.SetVec(i, 1)
		}
		yScore.SetVec(i, float64(i)/float64(n))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = AUC(yTrue, yScore)
	}
}

func TestAveragedMetrics_ExplicitClassCount(t *testing.T) {
	// 3クラス問題だがラベルにはクラス0と1しか現れない
	yTrue := vec(0, 0, 1, 1)
	yPred := vec(0, 1, 1, 1)

	inferred, err := Precision(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, inferred, 1e-12)

	p, err := PrecisionK(yTrue, yPred, 3)
	require.NoError(t, err)
	assert.InDelta(t, (2*1+2*2.0/3)/4, p, 1e-12)

	r, err := RecallK(yTrue, yPred, 3)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, r, 1e-12)

	f, err := F1K(yTrue, yPred, 3)
	require.NoError(t, err)
	assert.InDelta(t, (2*2.0/3+2*0.8)/4, f, 1e-12)

	k2, err := CohenKappa(yTrue, yPred)
	require.NoError(t, err)
	k3, err := CohenKappaK(yTrue, yPred, 3)
	require.NoError(t, err)
	assert.InDelta(t, k2, k3, 1e-12)

	m3, err := MCCK(yTrue, yPred, 3)
	require.NoError(t, err)
	assert.InDelta(t, 1/math.Sqrt(3), m3, 1e-12)

	_, err = PrecisionK(yTrue, vec(0, 1, 1, 3), 3)
	assert.Error(t, err)
}
