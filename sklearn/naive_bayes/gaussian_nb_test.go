package naive_bayes

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

func twoGaussians() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 2, []float64{
		1.0, 2.0, // class 0
		1.2, 1.8, // class 0
		0.8, 2.2, // class 0
		5.0, 6.0, // class 1
		5.2, 5.8, // class 1
		4.8, 6.2, // class 1
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
	return X, y
}

// TestGaussianNBBasicFit tests basic fitting functionality
func TestGaussianNBBasicFit(t *testing.T) {
	X, y := twoGaussians()

	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if !nb.State.IsFitted() {
		t.Error("Model should be fitted after Fit()")
	}
	if len(nb.Classes()) != 2 {
		t.Errorf("Expected 2 classes, got %d", len(nb.Classes()))
	}
	if math.Abs(nb.ClassPrior[0]-0.5) > 1e-12 {
		t.Errorf("Expected prior 0.5, got %v", nb.ClassPrior[0])
	}
	if math.Abs(nb.Theta[1][0]-5.0) > 1e-12 || math.Abs(nb.Theta[1][1]-6.0) > 1e-12 {
		t.Errorf("Unexpected class 1 means %v", nb.Theta[1])
	}
	// population variance of {1.0, 1.2, 0.8}
	if math.Abs(nb.Var[0][0]-0.08/3) > 1e-6 {
		t.Errorf("Unexpected class 0 variance %v", nb.Var[0][0])
	}
}

// TestGaussianNBPredict tests prediction on unseen points
func TestGaussianNBPredict(t *testing.T) {
	X, y := twoGaussians()
	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	XTest := mat.NewDense(2, 2, []float64{
		1.1, 2.1,
		5.1, 5.9,
	})
	pred, err := nb.Predict(XTest)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if pred.At(0, 0) != 0 || pred.At(1, 0) != 1 {
		t.Errorf("Unexpected predictions: %v", mat.Formatted(pred))
	}
}

// TestGaussianNBPredictProba tests probability predictions
func TestGaussianNBPredictProba(t *testing.T) {
	X, y := twoGaussians()
	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	proba, err := nb.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}
	r, c := proba.Dims()
	if r != 6 || c != 2 {
		t.Fatalf("Expected shape (6, 2), got (%d, %d)", r, c)
	}
	for i := 0; i < r; i++ {
		sum := proba.At(i, 0) + proba.At(i, 1)
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("Row %d does not sum to 1: %v", i, sum)
		}
		want := int(y.At(i, 0))
		if proba.At(i, want) < 0.99 {
			t.Errorf("Row %d: expected confident class %d, got %v", i, want, proba.At(i, want))
		}
	}
}

// TestGaussianNBPredictLogProba checks log probabilities match probabilities
func TestGaussianNBPredictLogProba(t *testing.T) {
	X, y := twoGaussians()
	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	logProba, err := nb.PredictLogProba(X)
	if err != nil {
		t.Fatalf("PredictLogProba failed: %v", err)
	}
	proba, _ := nb.PredictProba(X)
	r, c := proba.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if lp := logProba.At(i, j); lp > 0 {
				t.Errorf("Log probability must be <= 0, got %v", lp)
			}
			if math.Abs(math.Exp(logProba.At(i, j))-proba.At(i, j)) > 1e-9 {
				t.Errorf("exp(log proba) differs from proba at (%d, %d)", i, j)
			}
		}
	}
}

// TestGaussianNBMulticlassLabels tests non-contiguous class labels
func TestGaussianNBMulticlassLabels(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 0.2, 5, 5.2, 10, 10.2})
	y := mat.NewDense(6, 1, []float64{1, 1, 4, 4, 7, 7})

	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	pred, _ := nb.Predict(mat.NewDense(3, 1, []float64{0.1, 5.1, 9.9}))
	want := []float64{1, 4, 7}
	for i, w := range want {
		if pred.At(i, 0) != w {
			t.Errorf("Sample %d: expected %v, got %v", i, w, pred.At(i, 0))
		}
	}
}

// TestGaussianNBConstantFeatures tests that constant features fall back to the prior
func TestGaussianNBConstantFeatures(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{3, 3, 3, 3})
	y := mat.NewDense(4, 1, []float64{0, 1, 1, 1})

	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	proba, err := nb.PredictProba(mat.NewDense(1, 1, []float64{3}))
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}
	if math.Abs(proba.At(0, 1)-0.75) > 1e-9 {
		t.Errorf("Expected prior 0.75, got %v", proba.At(0, 1))
	}
}

// TestGaussianNBInvalidInput tests error handling
func TestGaussianNBInvalidInput(t *testing.T) {
	nb := NewGaussianNB()

	_, err := nb.Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("Expected NotFittedError, got %v", err)
	}

	X, y := twoGaussians()
	if err := nb.Fit(X, mat.NewDense(5, 1, nil)); err == nil {
		t.Error("Expected error for mismatched y length")
	}
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	_, err = nb.Predict(mat.NewDense(1, 3, nil))
	var dim *errors.DimensionError
	if !errors.As(err, &dim) {
		t.Errorf("Expected DimensionError, got %v", err)
	}

	if err := NewGaussianNB(WithVarSmoothing(-1)).Fit(X, y); err == nil {
		t.Error("Expected error for negative var_smoothing")
	}
}

// TestGaussianNBGobRoundTrip tests persistence of fitted parameters
func TestGaussianNBGobRoundTrip(t *testing.T) {
	X, y := twoGaussians()
	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(nb); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var loaded GaussianNB
	if err := gob.NewDecoder(&buf).Decode(&loaded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want, _ := nb.PredictProba(X)
	got, err := loaded.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba after load: %v", err)
	}
	if !mat.EqualApprox(want, got, 1e-12) {
		t.Error("probabilities differ after round trip")
	}
}
