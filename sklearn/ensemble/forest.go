// Package ensemble provides random forests built from the CART trees in sklearn/tree.
package ensemble

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/core/parallel"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/sklearn/tree"
)

// ForestParams configures a random forest.
type ForestParams struct {
	NEstimators    int
	MaxDepth       int
	MinSamplesLeaf int
	// MaxFeatures is the number of features tried per split. 0 picks √p for
	// classifiers and p/3 for regressors.
	MaxFeatures int
	Bootstrap   bool
	RandomState int64
	NJobs       int // 0 means one worker per CPU core
}

// Option configures a random forest.
type Option func(*ForestParams)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option { return func(p *ForestParams) { p.NEstimators = n } }

// WithMaxDepth limits the depth of every tree.
func WithMaxDepth(d int) Option { return func(p *ForestParams) { p.MaxDepth = d } }

// WithMinSamplesLeaf sets the minimum leaf size of every tree.
func WithMinSamplesLeaf(n int) Option { return func(p *ForestParams) { p.MinSamplesLeaf = n } }

// WithMaxFeatures sets the number of features tried per split.
func WithMaxFeatures(n int) Option { return func(p *ForestParams) { p.MaxFeatures = n } }

// WithBootstrap toggles bootstrap sampling of the training rows.
func WithBootstrap(b bool) Option { return func(p *ForestParams) { p.Bootstrap = b } }

// WithRandomState seeds bootstrap sampling and feature selection.
func WithRandomState(seed int64) Option { return func(p *ForestParams) { p.RandomState = seed } }

// WithNJobs bounds the number of trees fitted concurrently.
func WithNJobs(n int) Option { return func(p *ForestParams) { p.NJobs = n } }

func newParams(opts []Option) ForestParams {
	p := ForestParams{NEstimators: 100, MinSamplesLeaf: 1, Bootstrap: true}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p ForestParams) validate() error {
	if p.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", p.NEstimators)
	}
	if p.MaxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be non-negative", p.MaxFeatures)
	}
	return nil
}

func (p ForestParams) asMap() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     p.NEstimators,
		"max_depth":        p.MaxDepth,
		"min_samples_leaf": p.MinSamplesLeaf,
		"max_features":     p.MaxFeatures,
		"bootstrap":        p.Bootstrap,
		"random_state":     p.RandomState,
	}
}

func (p ForestParams) treeOptions(maxFeatures int, seed int64) []tree.Option {
	return []tree.Option{
		tree.WithMaxDepth(p.MaxDepth),
		tree.WithMinSamplesLeaf(p.MinSamplesLeaf),
		tree.WithMaxFeatures(maxFeatures),
		tree.WithRandomState(seed),
	}
}

// samples draws, for every tree, its seed and training rows. Drawing happens
// up front so results do not depend on goroutine scheduling.
func (p ForestParams) samples(nSamples int) ([]int64, [][]int) {
	rng := rand.New(rand.NewSource(p.RandomState))
	seeds := make([]int64, p.NEstimators)
	rows := make([][]int, p.NEstimators)
	for t := range rows {
		seeds[t] = rng.Int63()
		rows[t] = make([]int, nSamples)
		for i := range rows[t] {
			if p.Bootstrap {
				rows[t][i] = rng.Intn(nSamples)
			} else {
				rows[t][i] = i
			}
		}
	}
	return seeds, rows
}

// fitAll fits every tree concurrently and returns the first error.
func fitAll(n, jobs int, fit func(t int) error) error {
	errs := make([]error, n)
	parallel.ForEach(n, jobs, func(t int) {
		errs[t] = errors.SafeExecute(fmt.Sprintf("tree %d", t), func() error { return fit(t) })
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// RandomForestClassifier averages the class probabilities of randomized trees.
type RandomForestClassifier struct {
	State *model.StateManager
	ForestParams

	Trees       []*tree.DecisionTreeClassifier
	ClassList   []int
	Importances []float64
}

// NewRandomForestClassifier creates a random forest classifier with 100 trees.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	return &RandomForestClassifier{State: model.NewStateManager(), ForestParams: newParams(opts)}
}

// Fit trains the forest.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	if err := rf.validate(); err != nil {
		return err
	}
	nSamples, nFeatures, err := model.CheckXY("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	classes, err := model.UniqueClasses("RandomForestClassifier.Fit", y)
	if err != nil {
		return err
	}

	maxFeatures := rf.MaxFeatures
	if maxFeatures == 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(nFeatures))))
	}
	Xd := mat.DenseCopyOf(X)
	seeds, rows := rf.samples(nSamples)
	trees := make([]*tree.DecisionTreeClassifier, rf.NEstimators)
	err = fitAll(rf.NEstimators, rf.NJobs, func(t int) error {
		trees[t] = tree.NewDecisionTreeClassifier(rf.treeOptions(maxFeatures, seeds[t])...)
		return trees[t].FitRows(Xd, y, rows[t])
	})
	if err != nil {
		return err
	}

	rf.Trees = trees
	rf.ClassList = classes
	rf.Importances = meanImportances(nFeatures, len(trees), func(t int) []float64 { return trees[t].FeatureImportances() })
	rf.State.SetFitted(nFeatures, nSamples)
	return nil
}

// PredictProba averages the tree probabilities.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := rf.State.RequireFitted("RandomForestClassifier", "PredictProba", c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, len(rf.ClassList), nil)
	for _, t := range rf.Trees {
		p, err := t.PredictProba(X)
		if err != nil {
			return nil, err
		}
		out.Add(out, p)
	}
	out.Scale(1/float64(len(rf.Trees)), out)
	return out, nil
}

// Predict returns the class with the highest averaged probability.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, k := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		best := 0
		for j := 1; j < k; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, float64(rf.ClassList[best]))
	}
	return out, nil
}

// Classes returns the class labels seen during Fit.
func (rf *RandomForestClassifier) Classes() []int { return rf.ClassList }

// FeatureImportances returns the mean impurity decrease per feature across trees.
func (rf *RandomForestClassifier) FeatureImportances() []float64 { return rf.Importances }

// GetParams returns the model hyperparameters.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} { return rf.asMap() }

func (rf *RandomForestClassifier) String() string {
	return fmt.Sprintf("RandomForestClassifier(n_estimators=%d)", rf.NEstimators)
}

// RandomForestRegressor averages the predictions of randomized regression trees.
type RandomForestRegressor struct {
	State *model.StateManager
	ForestParams

	Trees       []*tree.DecisionTreeRegressor
	Importances []float64
}

// NewRandomForestRegressor creates a random forest regressor with 100 trees.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	return &RandomForestRegressor{State: model.NewStateManager(), ForestParams: newParams(opts)}
}

// Fit trains the forest.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	if err := rf.validate(); err != nil {
		return err
	}
	nSamples, nFeatures, err := model.CheckXY("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}

	maxFeatures := rf.MaxFeatures
	if maxFeatures == 0 {
		maxFeatures = max(1, nFeatures/3)
	}
	Xd := mat.DenseCopyOf(X)
	seeds, rows := rf.samples(nSamples)
	trees := make([]*tree.DecisionTreeRegressor, rf.NEstimators)
	err = fitAll(rf.NEstimators, rf.NJobs, func(t int) error {
		trees[t] = tree.NewDecisionTreeRegressor(rf.treeOptions(maxFeatures, seeds[t])...)
		return trees[t].FitRows(Xd, y, rows[t])
	})
	if err != nil {
		return err
	}

	rf.Trees = trees
	rf.Importances = meanImportances(nFeatures, len(trees), func(t int) []float64 { return trees[t].FeatureImportances() })
	rf.State.SetFitted(nFeatures, nSamples)
	return nil
}

// Predict returns the mean tree prediction as an n×1 matrix.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := rf.State.RequireFitted("RandomForestRegressor", "Predict", c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, 1, nil)
	for _, t := range rf.Trees {
		p, err := t.Predict(X)
		if err != nil {
			return nil, err
		}
		out.Add(out, p)
	}
	out.Scale(1/float64(len(rf.Trees)), out)
	return out, nil
}

// FeatureImportances returns the mean variance reduction per feature across trees.
func (rf *RandomForestRegressor) FeatureImportances() []float64 { return rf.Importances }

// GetParams returns the model hyperparameters.
func (rf *RandomForestRegressor) GetParams() map[string]interface{} { return rf.asMap() }

func (rf *RandomForestRegressor) String() string {
	return fmt.Sprintf("RandomForestRegressor(n_estimators=%d)", rf.NEstimators)
}

func meanImportances(nFeatures, nTrees int, of func(t int) []float64) []float64 {
	out := make([]float64, nFeatures)
	for t := 0; t < nTrees; t++ {
		for j, v := range of(t) {
			out[j] += v / float64(nTrees)
		}
	}
	return out
}
