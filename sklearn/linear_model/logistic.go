// Package linear_model provides linear classifiers: logistic regression and the
// ridge classifier.
package linear_model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// LogisticRegression implements L2-regularized logistic regression trained with
// full-batch gradient descent. Binary problems fit a single sigmoid; multiclass
// problems fit one-vs-rest and normalize the per-class sigmoids.
//
// All fitted state is exported so the model can be persisted with encoding/gob.
type LogisticRegression struct {
	State *model.StateManager

	// Hyperparameters
	C            float64 // Inverse regularization strength
	FitIntercept bool
	MaxIter      int
	Tol          float64
	LearningRate float64 // multiplier on the 1/L step size

	// Model parameters
	Coef      [][]float64 // one row for binary problems, one per class otherwise
	Intercept []float64
	ClassList []int
	NIter     []int
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		State:        model.NewStateManager(),
		C:            1.0,
		FitIntercept: true,
		MaxIter:      1000,
		Tol:          1e-4,
		LearningRate: 1.0,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.FitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of gradient steps per binary problem
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.MaxIter = maxIter
	}
}

// WithLRTol sets the gradient norm below which training stops
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.Tol = tol
	}
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	nSamples, nFeatures, err := model.CheckXY("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}
	classes, err := model.UniqueClasses("LogisticRegression.Fit", y)
	if err != nil {
		return err
	}
	if len(classes) < 2 {
		return errors.NewValueError("LogisticRegression.Fit", "needs samples of at least 2 classes")
	}

	lr.ClassList = classes
	Xd := mat.DenseCopyOf(X)

	problems := len(classes)
	if problems == 2 {
		problems = 1
	}
	lr.Coef = make([][]float64, problems)
	lr.Intercept = make([]float64, problems)
	lr.NIter = make([]int, problems)

	target := make([]float64, nSamples)
	for k := 0; k < problems; k++ {
		positive := classes[k]
		if problems == 1 {
			positive = classes[1]
		}
		for i := range target {
			target[i] = 0
			if int(y.At(i, 0)) == positive {
				target[i] = 1
			}
		}
		coef, b, iters, err := lr.fitBinary(Xd, target)
		if err != nil {
			return err
		}
		lr.Coef[k], lr.Intercept[k], lr.NIter[k] = coef, b, iters
		if iters == lr.MaxIter {
			errors.Warn(errors.NewConvergenceWarning("LogisticRegression", iters,
				fmt.Sprintf("gradient descent for class %d did not converge; consider scaling the data", positive)))
		}
	}

	lr.State.SetFitted(nFeatures, nSamples)
	return nil
}

// fitBinary minimizes the mean log loss plus ||w||² / (2·C·n), which has the same
// minimizer as C·Σloss + ||w||²/2.
func (lr *LogisticRegression) fitBinary(X *mat.Dense, target []float64) ([]float64, float64, int, error) {
	nSamples, nFeatures := X.Dims()
	weights := make([]float64, nFeatures)
	var intercept float64
	lambda := 1.0 / (lr.C * float64(nSamples))

	z := mat.NewVecDense(nSamples, nil)
	residual := mat.NewVecDense(nSamples, nil)
	grad := mat.NewVecDense(nFeatures, nil)
	w := mat.NewVecDense(nFeatures, weights)

	// step = 1/L with L = (mean ‖x‖² + 1)/4 + lambda, an upper bound on the curvature
	var sqNorm float64
	for i := 0; i < nSamples; i++ {
		row := X.RawRowView(i)
		for _, v := range row {
			sqNorm += v * v
		}
	}
	smooth := 0.25*(sqNorm/float64(nSamples)+1) + lambda
	step := lr.LearningRate / smooth

	iter := 0
	for iter < lr.MaxIter {
		z.MulVec(X, w)
		var gradIntercept float64
		for i := 0; i < nSamples; i++ {
			e := sigmoid(z.AtVec(i)+intercept) - target[i]
			residual.SetVec(i, e)
			gradIntercept += e
		}
		grad.MulVec(X.T(), residual)
		grad.ScaleVec(1/float64(nSamples), grad)
		grad.AddScaledVec(grad, lambda, w)
		gradIntercept /= float64(nSamples)

		w.AddScaledVec(w, -step, grad)
		if lr.FitIntercept {
			intercept -= step * gradIntercept
		}
		iter++

		if err := errors.CheckScalar("LogisticRegression.Fit", intercept, iter); err != nil {
			return nil, 0, iter, err
		}
		maxGrad := math.Abs(gradIntercept)
		for j := 0; j < nFeatures; j++ {
			maxGrad = math.Max(maxGrad, math.Abs(grad.AtVec(j)))
		}
		if maxGrad < lr.Tol {
			break
		}
	}
	return weights, intercept, iter, nil
}

// DecisionFunction returns the raw linear scores, n×1 for binary problems and
// n×k otherwise.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if lr.State == nil {
		return nil, errors.NewNotFittedError("LogisticRegression", "DecisionFunction")
	}
	_, c := X.Dims()
	if err := lr.State.RequireFitted("LogisticRegression", "DecisionFunction", c); err != nil {
		return nil, err
	}
	return linearScores(X, lr.Coef, lr.Intercept), nil
}

// Predict makes predictions for input data
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(proba, lr.ClassList), nil
}

// PredictProba returns probability estimates for each class
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	k := len(lr.ClassList)
	probas := mat.NewDense(n, k, nil)

	for i := 0; i < n; i++ {
		if k == 2 {
			p := sigmoid(scores.At(i, 0))
			probas.Set(i, 0, 1-p)
			probas.Set(i, 1, p)
			continue
		}
		var sum float64
		for c := 0; c < k; c++ {
			p := sigmoid(scores.At(i, c))
			probas.Set(i, c, p)
			sum += p
		}
		for c := 0; c < k; c++ {
			probas.Set(i, c, probas.At(i, c)/sum)
		}
	}
	return probas, nil
}

// Classes returns the class labels seen during Fit
func (lr *LogisticRegression) Classes() []int {
	return lr.ClassList
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":             lr.C,
		"fit_intercept": lr.FitIntercept,
		"max_iter":      lr.MaxIter,
		"tol":           lr.Tol,
	}
}

// sigmoid computes the logistic function without overflowing for large |z|
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1.0 + e)
}

func linearScores(X mat.Matrix, coef [][]float64, intercept []float64) *mat.Dense {
	n, _ := X.Dims()
	scores := mat.NewDense(n, len(coef), nil)
	var col mat.VecDense
	for k, w := range coef {
		col.MulVec(X, mat.NewVecDense(len(w), w))
		for i := 0; i < n; i++ {
			scores.Set(i, k, col.AtVec(i)+intercept[k])
		}
	}
	return scores
}

// argmaxLabels picks, per row, the class whose column has the highest score.
// Ties resolve to the lowest class.
func argmaxLabels(scores mat.Matrix, classes []int) *mat.Dense {
	n, k := scores.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		best := 0
		for c := 1; c < k; c++ {
			if scores.At(i, c) > scores.At(i, best) {
				best = c
			}
		}
		out.Set(i, 0, float64(classes[best]))
	}
	return out
}
