package linear_model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/linear"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// RidgeClassifier regresses {-1, +1} class indicators with ridge regression and
// predicts the class with the highest score. It has no probability estimates.
type RidgeClassifier struct {
	State *model.StateManager

	Alpha     float64
	Coef      [][]float64
	Intercept []float64
	ClassList []int
}

// NewRidgeClassifier creates a ridge classifier with the given penalty strength.
func NewRidgeClassifier(alpha float64) *RidgeClassifier {
	return &RidgeClassifier{State: model.NewStateManager(), Alpha: alpha}
}

// Fit trains one ridge regression per class (a single one for binary problems).
func (rc *RidgeClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckXY("RidgeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	classes, err := model.UniqueClasses("RidgeClassifier.Fit", y)
	if err != nil {
		return err
	}
	if len(classes) < 2 {
		return errors.NewValueError("RidgeClassifier.Fit", "needs samples of at least 2 classes")
	}

	problems := len(classes)
	if problems == 2 {
		problems = 1
	}
	rc.ClassList = classes
	rc.Coef = make([][]float64, problems)
	rc.Intercept = make([]float64, problems)

	target := mat.NewDense(nSamples, 1, nil)
	for k := 0; k < problems; k++ {
		positive := classes[k]
		if problems == 1 {
			positive = classes[1]
		}
		for i := 0; i < nSamples; i++ {
			v := -1.0
			if int(y.At(i, 0)) == positive {
				v = 1
			}
			target.Set(i, 0, v)
		}
		r := linear.NewRidge(linear.WithAlpha(rc.Alpha))
		if err := r.Fit(X, target); err != nil {
			return err
		}
		rc.Coef[k], rc.Intercept[k] = r.Coef, r.Intercept
	}

	rc.State.SetFitted(nFeatures, nSamples)
	return nil
}

// DecisionFunction returns the ridge scores, n×1 for binary problems and n×k otherwise.
func (rc *RidgeClassifier) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	_, c := X.Dims()
	if err := rc.State.RequireFitted("RidgeClassifier", "DecisionFunction", c); err != nil {
		return nil, err
	}
	return linearScores(X, rc.Coef, rc.Intercept), nil
}

// Predict returns the class with the highest score.
func (rc *RidgeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := rc.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	if len(rc.ClassList) == 2 {
		n, _ := scores.Dims()
		out := mat.NewDense(n, 1, nil)
		for i := 0; i < n; i++ {
			label := rc.ClassList[0]
			if scores.At(i, 0) > 0 {
				label = rc.ClassList[1]
			}
			out.Set(i, 0, float64(label))
		}
		return out, nil
	}
	return argmaxLabels(scores, rc.ClassList), nil
}

// Classes returns the class labels seen during Fit.
func (rc *RidgeClassifier) Classes() []int {
	return rc.ClassList
}

// GetParams returns the model hyperparameters.
func (rc *RidgeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{"alpha": rc.Alpha}
}
