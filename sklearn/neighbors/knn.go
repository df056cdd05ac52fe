// Package neighbors implements k-nearest-neighbors classification and regression.
package neighbors

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/core/parallel"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

const parallelThreshold = 256

// Weights selects how neighbor votes are weighted.
const (
	Uniform  = "uniform"
	Distance = "distance"
)

// Params are shared by KNeighborsClassifier and KNeighborsRegressor.
type Params struct {
	NNeighbors int
	Weights    string
}

// Option configures a k-nearest-neighbors estimator.
type Option func(*Params)

// WithNNeighbors sets k (default 5). k is clipped to the number of training samples.
func WithNNeighbors(k int) Option { return func(p *Params) { p.NNeighbors = k } }

// WithWeights sets the vote weighting, Uniform or Distance.
func WithWeights(w string) Option { return func(p *Params) { p.Weights = w } }

func newParams(opts []Option) Params {
	p := Params{NNeighbors: 5, Weights: Uniform}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p Params) validate() error {
	if p.NNeighbors < 1 {
		return errors.NewValidationError("n_neighbors", "must be at least 1", p.NNeighbors)
	}
	if p.Weights != Uniform && p.Weights != Distance {
		return errors.NewValidationError("weights", "must be uniform or distance", p.Weights)
	}
	return nil
}

// TrainingSet is the stored training data.
type TrainingSet struct {
	Rows   [][]float64
	Target []float64
}

func remember(X, y mat.Matrix) TrainingSet {
	r, _ := X.Dims()
	m := TrainingSet{Rows: make([][]float64, r), Target: make([]float64, r)}
	for i := 0; i < r; i++ {
		m.Rows[i] = mat.Row(nil, i, X)
		m.Target[i] = y.At(i, 0)
	}
	return m
}

type neighbor struct {
	index int
	dist  float64
}

// nearest returns the k closest training rows to x, nearest first. Equal
// distances keep training order.
func (m TrainingSet) nearest(x []float64, k int) []neighbor {
	all := make([]neighbor, len(m.Rows))
	for i, row := range m.Rows {
		all[i] = neighbor{index: i, dist: floats.Distance(row, x, 2)}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].dist < all[b].dist })
	return all[:min(k, len(all))]
}

// weights returns the vote weight of each neighbor. With distance weighting an
// exact match takes all the weight.
func (p Params) weights(nbrs []neighbor) []float64 {
	w := make([]float64, len(nbrs))
	if p.Weights == Uniform {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	var exact bool
	for i, n := range nbrs {
		if n.dist == 0 {
			w[i] = 1
			exact = true
		}
	}
	if exact {
		return w
	}
	for i, n := range nbrs {
		w[i] = 1 / n.dist
	}
	return w
}

// KNeighborsClassifier predicts the weighted majority class among the k nearest
// training samples.
type KNeighborsClassifier struct {
	State *model.StateManager
	Params

	Memory    TrainingSet
	ClassList []int
}

// NewKNeighborsClassifier creates a k-nearest-neighbors classifier.
func NewKNeighborsClassifier(opts ...Option) *KNeighborsClassifier {
	return &KNeighborsClassifier{State: model.NewStateManager(), Params: newParams(opts)}
}

// Fit stores the training data.
func (kn *KNeighborsClassifier) Fit(X, y mat.Matrix) error {
	if err := kn.validate(); err != nil {
		return err
	}
	nSamples, nFeatures, err := model.CheckXY("KNeighborsClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	classes, err := model.UniqueClasses("KNeighborsClassifier.Fit", y)
	if err != nil {
		return err
	}
	kn.ClassList = classes
	kn.Memory = remember(X, y)
	kn.State.SetFitted(nFeatures, nSamples)
	return nil
}

// PredictProba returns the weighted share of each class among the neighbors.
func (kn *KNeighborsClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := kn.State.RequireFitted("KNeighborsClassifier", "PredictProba", c); err != nil {
		return nil, err
	}
	idx := model.ClassIndex(kn.ClassList)
	out := mat.NewDense(r, len(kn.ClassList), nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		x := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(x, i, X)
			nbrs := kn.Memory.nearest(x, kn.NNeighbors)
			w := kn.weights(nbrs)
			total := floats.Sum(w)
			row := out.RawRowView(i)
			for j, n := range nbrs {
				row[idx[int(kn.Memory.Target[n.index])]] += w[j] / total
			}
		}
	})
	return out, nil
}

// Predict returns the class with the highest neighbor share. Ties go to the
// smallest class label.
func (kn *KNeighborsClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := kn.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, _ := proba.Dims()
	d := proba.(*mat.Dense)
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, float64(kn.ClassList[argmax(d.RawRowView(i))]))
	}
	return out, nil
}

// Classes returns the class labels seen during Fit.
func (kn *KNeighborsClassifier) Classes() []int { return kn.ClassList }

// GetParams returns the model hyperparameters.
func (kn *KNeighborsClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{"n_neighbors": kn.NNeighbors, "weights": kn.Weights}
}

func (kn *KNeighborsClassifier) String() string {
	return fmt.Sprintf("KNeighborsClassifier(n_neighbors=%d, weights=%s)", kn.NNeighbors, kn.Weights)
}

// KNeighborsRegressor predicts the weighted mean target of the k nearest
// training samples.
type KNeighborsRegressor struct {
	State *model.StateManager
	Params

	Memory TrainingSet
}

// NewKNeighborsRegressor creates a k-nearest-neighbors regressor.
func NewKNeighborsRegressor(opts ...Option) *KNeighborsRegressor {
	return &KNeighborsRegressor{State: model.NewStateManager(), Params: newParams(opts)}
}

// Fit stores the training data.
func (kn *KNeighborsRegressor) Fit(X, y mat.Matrix) error {
	if err := kn.validate(); err != nil {
		return err
	}
	nSamples, nFeatures, err := model.CheckXY("KNeighborsRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	for i := 0; i < nSamples; i++ {
		if v := y.At(i, 0); math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewValueError("KNeighborsRegressor.Fit", "y contains NaN or Inf")
		}
	}
	kn.Memory = remember(X, y)
	kn.State.SetFitted(nFeatures, nSamples)
	return nil
}

// Predict returns an n×1 matrix of neighbor means.
func (kn *KNeighborsRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := kn.State.RequireFitted("KNeighborsRegressor", "Predict", c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, 1, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		x := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(x, i, X)
			nbrs := kn.Memory.nearest(x, kn.NNeighbors)
			w := kn.weights(nbrs)
			var sum float64
			for j, n := range nbrs {
				sum += w[j] * kn.Memory.Target[n.index]
			}
			out.Set(i, 0, sum/floats.Sum(w))
		}
	})
	return out, nil
}

// GetParams returns the model hyperparameters.
func (kn *KNeighborsRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{"n_neighbors": kn.NNeighbors, "weights": kn.Weights}
}

func (kn *KNeighborsRegressor) String() string {
	return fmt.Sprintf("KNeighborsRegressor(n_neighbors=%d, weights=%s)", kn.NNeighbors, kn.Weights)
}

func argmax(row []float64) int {
	best := 0
	for j := 1; j < len(row); j++ {
		if row[j] > row[best] {
			best = j
		}
	}
	return best
}
