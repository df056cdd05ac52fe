// Package experiment is the AutoML surface of the module: it prepares a dataset
// for a classification or regression task, cross-validates every candidate
// model family, keeps the best one as a fitted Pipeline and renders its
// diagnostic plots.
//
// A typical training session:
//
//	exp, err := experiment.Setup(frame, "species", experiment.Classification)
//	best, err := exp.CompareModels(ctx)
//	path, err := experiment.SaveModel(best, "best_model")
//	png, err := exp.PlotModel(best, experiment.PlotConfusionMatrix)
//
// and a prediction session:
//
//	p, err := experiment.LoadModel(path)
//	predictions, err := experiment.PredictModel(p, frame)
package experiment

import (
	"strings"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Task is the kind of supervised problem.
type Task int

const (
	// Classification predicts a discrete label.
	Classification Task = iota
	// Regression predicts a numeric value.
	Regression
)

func (t Task) String() string {
	if t == Regression {
		return "regression"
	}
	return "classification"
}

// Title returns the task name as shown in the UI selector.
func (t Task) Title() string {
	if t == Regression {
		return "Regression"
	}
	return "Classification"
}

// ParseTask accepts "classification" or "regression" in any case.
func ParseTask(s string) (Task, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "classification":
		return Classification, nil
	case "regression":
		return Regression, nil
	}
	return 0, errors.NewValidationError("task", "must be classification or regression", s)
}
