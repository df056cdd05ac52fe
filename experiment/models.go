package experiment

import (
	"encoding/gob"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/linear"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/preprocessing"
	"github.com/YuminosukeSato/automl/sklearn/dummy"
	"github.com/YuminosukeSato/automl/sklearn/ensemble"
	"github.com/YuminosukeSato/automl/sklearn/linear_model"
	"github.com/YuminosukeSato/automl/sklearn/naive_bayes"
	"github.com/YuminosukeSato/automl/sklearn/neighbors"
	"github.com/YuminosukeSato/automl/sklearn/tree"
)

// Candidate is one model family tried by CompareModels.
type Candidate struct {
	ID   string
	Name string
	New  func(seed int64) model.Estimator
}

func classificationCandidates() []Candidate {
	return []Candidate{
		{"lr", "Logistic Regression", func(int64) model.Estimator { return linear_model.NewLogisticRegression() }},
		{"knn", "K Neighbors Classifier", func(int64) model.Estimator { return neighbors.NewKNeighborsClassifier() }},
		{"nb", "Naive Bayes", func(int64) model.Estimator { return naive_bayes.NewGaussianNB() }},
		{"dt", "Decision Tree Classifier", func(seed int64) model.Estimator {
			return tree.NewDecisionTreeClassifier(tree.WithRandomState(seed))
		}},
		{"rf", "Random Forest Classifier", func(seed int64) model.Estimator {
			return ensemble.NewRandomForestClassifier(ensemble.WithRandomState(seed))
		}},
		{"ridge", "Ridge Classifier", func(int64) model.Estimator { return linear_model.NewRidgeClassifier(1.0) }},
		{"dummy", "Dummy Classifier", func(int64) model.Estimator { return dummy.NewDummyClassifier() }},
	}
}

func regressionCandidates() []Candidate {
	return []Candidate{
		{"lr", "Linear Regression", func(int64) model.Estimator { return linear.NewLinearRegression() }},
		{"ridge", "Ridge Regression", func(int64) model.Estimator { return linear.NewRidge() }},
		{"knn", "K Neighbors Regressor", func(int64) model.Estimator { return neighbors.NewKNeighborsRegressor() }},
		{"dt", "Decision Tree Regressor", func(seed int64) model.Estimator {
			return tree.NewDecisionTreeRegressor(tree.WithRandomState(seed))
		}},
		{"rf", "Random Forest Regressor", func(seed int64) model.Estimator {
			return ensemble.NewRandomForestRegressor(ensemble.WithRandomState(seed))
		}},
		{"dummy", "Dummy Regressor", func(int64) model.Estimator { return dummy.NewDummyRegressor() }},
	}
}

// Candidates returns the model families available for a task, in leaderboard
// tie-break order.
func Candidates(task Task) []Candidate {
	if task == Regression {
		return regressionCandidates()
	}
	return classificationCandidates()
}

func selectCandidates(task Task, include, exclude []string) ([]Candidate, error) {
	all := Candidates(task)
	known := make(map[string]bool, len(all))
	for _, c := range all {
		known[c.ID] = true
	}
	for _, id := range append(append([]string(nil), include...), exclude...) {
		if !known[id] {
			return nil, errors.NewValidationError("include", "unknown model id for "+task.String(), id)
		}
	}

	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	want := make(map[string]bool, len(include))
	for _, id := range include {
		want[id] = true
	}

	var out []Candidate
	for _, c := range all {
		if skip[c.ID] || (len(want) > 0 && !want[c.ID]) {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, errors.NewValidationError("include", "no candidate models left", include)
	}
	return out, nil
}

// Concrete types behind Pipeline's interface fields must be known to gob.
func init() {
	gob.Register(&preprocessing.StandardScaler{})
	gob.Register(&preprocessing.MinMaxScaler{})

	gob.Register(&linear_model.LogisticRegression{})
	gob.Register(&linear_model.RidgeClassifier{})
	gob.Register(&neighbors.KNeighborsClassifier{})
	gob.Register(&naive_bayes.GaussianNB{})
	gob.Register(&tree.DecisionTreeClassifier{})
	gob.Register(&ensemble.RandomForestClassifier{})
	gob.Register(&dummy.DummyClassifier{})

	gob.Register(&linear.LinearRegression{})
	gob.Register(&linear.Ridge{})
	gob.Register(&neighbors.KNeighborsRegressor{})
	gob.Register(&tree.DecisionTreeRegressor{})
	gob.Register(&ensemble.RandomForestRegressor{})
	gob.Register(&dummy.DummyRegressor{})
}
