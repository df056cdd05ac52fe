package tree

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// DecisionTreeClassifier is a CART classification tree.
type DecisionTreeClassifier struct {
	State *model.StateManager
	Params

	Nodes       []Node
	ClassList   []int
	Importances []float64
}

// NewDecisionTreeClassifier creates a classification tree. The default criterion is gini.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	return &DecisionTreeClassifier{
		State:  model.NewStateManager(),
		Params: newParams("gini", opts),
	}
}

// Fit grows the tree on X and the class labels in y.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	rows, _, err := model.CheckXY("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	return dt.FitRows(X, y, allRows(rows))
}

// FitRows grows the tree using only the given rows of X and y. Rows may repeat,
// which is how bootstrap samples are fitted.
func (dt *DecisionTreeClassifier) FitRows(X, y mat.Matrix, rows []int) error {
	if err := dt.Params.validate(true); err != nil {
		return err
	}
	_, c, err := model.CheckXY("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	classes, err := model.UniqueClasses("DecisionTreeClassifier.Fit", y)
	if err != nil {
		return err
	}

	idx := model.ClassIndex(classes)
	r, _ := y.Dims()
	target := make([]float64, r)
	for i := 0; i < r; i++ {
		target[i] = float64(idx[int(y.At(i, 0))])
	}

	dt.ClassList = classes
	dt.Nodes, dt.Importances = fit(dt.Params, mat.DenseCopyOf(X), target, len(classes), rows)
	dt.State.SetFitted(c, len(rows))
	return nil
}

// PredictProba returns the class distribution of the leaf each sample falls into.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := dt.State.RequireFitted("DecisionTreeClassifier", "PredictProba", c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, len(dt.ClassList), nil)
	for i := 0; i < r; i++ {
		out.SetRow(i, leaf(dt.Nodes, X, i).Value)
	}
	return out, nil
}

// Predict returns the majority class of each sample's leaf.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := dt.PredictProba(X)
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
		out.Set(i, 0, float64(dt.ClassList[best]))
	}
	return out, nil
}

// Score returns the mean accuracy on the given data.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := y.Dims()
	var correct int
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r), nil
}

// Classes returns the class labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []int { return dt.ClassList }

// NClasses returns the number of classes seen during Fit.
func (dt *DecisionTreeClassifier) NClasses() int { return len(dt.ClassList) }

// FeatureImportances returns the normalized total impurity decrease per feature.
func (dt *DecisionTreeClassifier) FeatureImportances() []float64 { return dt.Importances }

// Depth returns the depth of the fitted tree. A single leaf has depth 0.
func (dt *DecisionTreeClassifier) Depth() int {
	if len(dt.Nodes) == 0 {
		return 0
	}
	return depth(dt.Nodes, 0)
}

// NLeaves returns the number of leaves.
func (dt *DecisionTreeClassifier) NLeaves() int { return countLeaves(dt.Nodes) }

// GetParams returns the model hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return dt.Params.asMap()
}

func (dt *DecisionTreeClassifier) String() string {
	return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, max_depth=%d)", dt.Criterion, dt.MaxDepth)
}

func (p Params) asMap() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         p.Criterion,
		"max_depth":         p.MaxDepth,
		"min_samples_split": p.MinSamplesSplit,
		"min_samples_leaf":  p.MinSamplesLeaf,
		"max_features":      p.MaxFeatures,
		"random_state":      p.RandomState,
	}
}

func countLeaves(nodes []Node) int {
	var n int
	for i := range nodes {
		if nodes[i].IsLeaf() {
			n++
		}
	}
	return n
}
