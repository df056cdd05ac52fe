// Package dummy provides baseline estimators that ignore the features.
package dummy

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// DummyClassifier always predicts the most frequent training class and returns
// the training class frequencies as probabilities.
type DummyClassifier struct {
	State *model.StateManager

	ClassList  []int
	ClassPrior []float64
}

// NewDummyClassifier creates a prior baseline classifier.
func NewDummyClassifier() *DummyClassifier {
	return &DummyClassifier{State: model.NewStateManager()}
}

// Fit records the class frequencies of y.
func (d *DummyClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckXY("DummyClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	classes, err := model.UniqueClasses("DummyClassifier.Fit", y)
	if err != nil {
		return err
	}
	idx := model.ClassIndex(classes)
	prior := make([]float64, len(classes))
	for i := 0; i < nSamples; i++ {
		prior[idx[int(y.At(i, 0))]] += 1 / float64(nSamples)
	}
	d.ClassList, d.ClassPrior = classes, prior
	d.State.SetFitted(nFeatures, nSamples)
	return nil
}

// PredictProba returns the class prior for every row.
func (d *DummyClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := d.State.RequireFitted("DummyClassifier", "PredictProba", c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, len(d.ClassList), nil)
	for i := 0; i < r; i++ {
		out.SetRow(i, d.ClassPrior)
	}
	return out, nil
}

// Predict returns the most frequent class. Ties go to the smallest label.
func (d *DummyClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := d.State.RequireFitted("DummyClassifier", "Predict", c); err != nil {
		return nil, err
	}
	best := 0
	for k := range d.ClassPrior {
		if d.ClassPrior[k] > d.ClassPrior[best] {
			best = k
		}
	}
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, float64(d.ClassList[best]))
	}
	return out, nil
}

// Classes returns the class labels seen during Fit.
func (d *DummyClassifier) Classes() []int { return d.ClassList }

// GetParams returns the model hyperparameters.
func (d *DummyClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{"strategy": "prior"}
}

func (d *DummyClassifier) String() string { return "DummyClassifier(strategy=prior)" }

// DummyRegressor always predicts the training mean.
type DummyRegressor struct {
	State *model.StateManager

	Constant float64
}

// NewDummyRegressor creates a mean baseline regressor.
func NewDummyRegressor() *DummyRegressor {
	return &DummyRegressor{State: model.NewStateManager()}
}

// Fit records the mean of y.
func (d *DummyRegressor) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckXY("DummyRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	mean := stat.Mean(mat.Col(nil, 0, y), nil)
	if err := errors.CheckScalar("DummyRegressor.Fit", mean, 0); err != nil {
		return err
	}
	d.Constant = mean
	d.State.SetFitted(nFeatures, nSamples)
	return nil
}

// Predict returns the training mean for every row.
func (d *DummyRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := d.State.RequireFitted("DummyRegressor", "Predict", c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, d.Constant)
	}
	return out, nil
}

// GetParams returns the model hyperparameters.
func (d *DummyRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{"strategy": "mean"}
}

func (d *DummyRegressor) String() string { return fmt.Sprintf("DummyRegressor(constant=%g)", d.Constant) }
