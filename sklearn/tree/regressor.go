package tree

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// DecisionTreeRegressor is a CART regression tree using the squared error criterion.
type DecisionTreeRegressor struct {
	State *model.StateManager
	Params

	Nodes       []Node
	Importances []float64
}

// NewDecisionTreeRegressor creates a regression tree.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	return &DecisionTreeRegressor{
		State:  model.NewStateManager(),
		Params: newParams("squared_error", opts),
	}
}

// Fit grows the tree on X and the targets in y.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	rows, _, err := model.CheckXY("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	return dt.FitRows(X, y, allRows(rows))
}

// FitRows grows the tree using only the given rows of X and y.
func (dt *DecisionTreeRegressor) FitRows(X, y mat.Matrix, rows []int) error {
	if err := dt.Params.validate(false); err != nil {
		return err
	}
	_, c, err := model.CheckXY("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	target := mat.Col(nil, 0, y)
	for i, v := range target {
		if err := errors.CheckScalar("DecisionTreeRegressor.Fit", v, i); err != nil {
			return err
		}
	}

	dt.Nodes, dt.Importances = fit(dt.Params, mat.DenseCopyOf(X), target, 0, rows)
	dt.State.SetFitted(c, len(rows))
	return nil
}

// Predict returns the mean target of each sample's leaf as an n×1 matrix.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	if err := dt.State.RequireFitted("DecisionTreeRegressor", "Predict", c); err != nil {
		return nil, err
	}
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, leaf(dt.Nodes, X, i).Value[0])
	}
	return out, nil
}

// FeatureImportances returns the normalized total variance reduction per feature.
func (dt *DecisionTreeRegressor) FeatureImportances() []float64 { return dt.Importances }

// Depth returns the depth of the fitted tree.
func (dt *DecisionTreeRegressor) Depth() int {
	if len(dt.Nodes) == 0 {
		return 0
	}
	return depth(dt.Nodes, 0)
}

// NLeaves returns the number of leaves.
func (dt *DecisionTreeRegressor) NLeaves() int { return countLeaves(dt.Nodes) }

// GetParams returns the model hyperparameters.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return dt.Params.asMap()
}

func (dt *DecisionTreeRegressor) String() string {
	return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d)", dt.MaxDepth)
}
