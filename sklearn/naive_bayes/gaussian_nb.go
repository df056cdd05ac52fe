// Package naive_bayes implements the Gaussian naive Bayes classifier.
package naive_bayes

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// GaussianNB models every feature as an independent normal distribution per class.
type GaussianNB struct {
	State *model.StateManager

	// VarSmoothing is the fraction of the largest feature variance added to
	// every variance for numerical stability.
	VarSmoothing float64

	ClassList  []int
	ClassPrior []float64
	Theta      [][]float64 // per-class feature means
	Var        [][]float64 // per-class feature variances
	Epsilon    float64
}

// Option configures GaussianNB.
type Option func(*GaussianNB)

// WithVarSmoothing sets the variance smoothing fraction (default 1e-9).
func WithVarSmoothing(v float64) Option {
	return func(nb *GaussianNB) { nb.VarSmoothing = v }
}

// NewGaussianNB creates a Gaussian naive Bayes classifier.
func NewGaussianNB(opts ...Option) *GaussianNB {
	nb := &GaussianNB{State: model.NewStateManager(), VarSmoothing: 1e-9}
	for _, opt := range opts {
		opt(nb)
	}
	return nb
}

// Fit estimates class priors and per-class feature means and variances.
func (nb *GaussianNB) Fit(X, y mat.Matrix) error {
	if nb.VarSmoothing < 0 {
		return errors.NewValidationError("var_smoothing", "must be non-negative", nb.VarSmoothing)
	}
	nSamples, nFeatures, err := model.CheckXY("GaussianNB.Fit", X, y)
	if err != nil {
		return err
	}
	classes, err := model.UniqueClasses("GaussianNB.Fit", y)
	if err != nil {
		return err
	}

	idx := model.ClassIndex(classes)
	rows := make([][]int, len(classes))
	for i := 0; i < nSamples; i++ {
		c := idx[int(y.At(i, 0))]
		rows[c] = append(rows[c], i)
	}

	var maxVar float64
	col := make([]float64, nSamples)
	for j := 0; j < nFeatures; j++ {
		mat.Col(col, j, X)
		_, v := stat.PopMeanVariance(col, nil)
		maxVar = math.Max(maxVar, v)
	}
	nb.Epsilon = nb.VarSmoothing * maxVar

	nb.ClassList = classes
	nb.ClassPrior = make([]float64, len(classes))
	nb.Theta = make([][]float64, len(classes))
	nb.Var = make([][]float64, len(classes))
	for c, members := range rows {
		nb.ClassPrior[c] = float64(len(members)) / float64(nSamples)
		nb.Theta[c] = make([]float64, nFeatures)
		nb.Var[c] = make([]float64, nFeatures)
		vals := make([]float64, len(members))
		for j := 0; j < nFeatures; j++ {
			for k, i := range members {
				vals[k] = X.At(i, j)
			}
			m, v := stat.PopMeanVariance(vals, nil)
			nb.Theta[c][j] = m
			nb.Var[c][j] = v + nb.Epsilon
		}
	}

	nb.State.SetFitted(nFeatures, nSamples)
	return nil
}

// jointLogLikelihood returns log P(c) + Σ log N(x_j | θ_cj, σ²_cj) per sample and class.
func (nb *GaussianNB) jointLogLikelihood(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if err := nb.State.RequireFitted("GaussianNB", "Predict", c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, len(nb.ClassList), nil)
	for k := range nb.ClassList {
		base := math.Log(nb.ClassPrior[k])
		for j := 0; j < c; j++ {
			v := nb.Var[k][j]
			if v == 0 {
				// only reachable when every feature is constant
				continue
			}
			base -= 0.5 * math.Log(2*math.Pi*v)
		}
		for i := 0; i < r; i++ {
			ll := base
			for j := 0; j < c; j++ {
				v := nb.Var[k][j]
				if v == 0 {
					continue
				}
				d := X.At(i, j) - nb.Theta[k][j]
				ll -= d * d / (2 * v)
			}
			out.Set(i, k, ll)
		}
	}
	return out, nil
}

// PredictLogProba returns the normalized log posterior of each class.
func (nb *GaussianNB) PredictLogProba(X mat.Matrix) (mat.Matrix, error) {
	jll, err := nb.jointLogLikelihood(X)
	if err != nil {
		return nil, err
	}
	r, k := jll.Dims()
	for i := 0; i < r; i++ {
		row := jll.RawRowView(i)
		norm := floats.LogSumExp(row)
		for c := 0; c < k; c++ {
			row[c] -= norm
		}
	}
	return jll, nil
}

// PredictProba returns the posterior probability of each class.
func (nb *GaussianNB) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	logProba, err := nb.PredictLogProba(X)
	if err != nil {
		return nil, err
	}
	out := logProba.(*mat.Dense)
	out.Apply(func(_, _ int, v float64) float64 { return math.Exp(v) }, out)
	return out, nil
}

// Predict returns the class with the highest posterior.
func (nb *GaussianNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	jll, err := nb.jointLogLikelihood(X)
	if err != nil {
		return nil, err
	}
	r, _ := jll.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, float64(nb.ClassList[floats.MaxIdx(jll.RawRowView(i))]))
	}
	return out, nil
}

// Classes returns the class labels seen during Fit.
func (nb *GaussianNB) Classes() []int { return nb.ClassList }

// GetParams returns the model hyperparameters.
func (nb *GaussianNB) GetParams() map[string]interface{} {
	return map[string]interface{}{"var_smoothing": nb.VarSmoothing}
}

func (nb *GaussianNB) String() string {
	return fmt.Sprintf("GaussianNB(var_smoothing=%g)", nb.VarSmoothing)
}
