package experiment

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// Prediction column names appended by PredictModel.
const (
	LabelColumn = "prediction_label"
	ScoreColumn = "prediction_score"
)

// PredictModel applies p to f and returns f with a prediction_label column
// and, for classifiers with probability estimates, a prediction_score column
// holding the probability of the predicted class. Regression predictions and
// scores are rounded to 4 decimals.
//
// Every feature column used in training must be present. When f also holds the
// target column the metrics on it are logged (see ScoreModel).
func PredictModel(p *Pipeline, f *dataset.Frame) (*dataset.Frame, error) {
	if p == nil || p.Estimator == nil {
		return nil, errors.NewValueError("PredictModel", "pipeline has no fitted estimator")
	}
	if f == nil || f.Rows() == 0 {
		return nil, errors.NewModelError("PredictModel", "empty data", errors.ErrEmptyData)
	}
	logger := log.GetLoggerWithName("experiment").With(
		log.OperationKey, log.OperationPredict,
		log.RunIDKey, p.RunID,
		log.ModelIDKey, p.ModelID,
	)

	X, err := p.Transform(f)
	if err != nil {
		return nil, err
	}
	yPred, proba, err := p.predictions(X)
	if err != nil {
		return nil, err
	}

	out := f.Drop(LabelColumn, ScoreColumn)
	if p.Task == Regression {
		vals := make([]float64, len(yPred))
		for i, v := range yPred {
			vals[i] = Round4(v)
		}
		if err := out.AddColumn(dataset.NewNumericColumn(LabelColumn, vals)); err != nil {
			return nil, err
		}
	} else {
		labels, err := p.decodeLabels(yPred)
		if err != nil {
			return nil, err
		}
		if err := out.AddColumn(dataset.NewCategoricalColumn(LabelColumn, labels)); err != nil {
			return nil, err
		}
		if proba != nil {
			if err := out.AddColumn(dataset.NewNumericColumn(ScoreColumn, predictedScores(yPred, proba))); err != nil {
				return nil, err
			}
		}
	}

	if f.Has(p.Target) {
		if m, err := ScoreModel(p, f); err != nil {
			logger.Warn("Could not score predictions against the target column", err)
		} else {
			logger.Info("Scored predictions against the target column", metricFields(m)...)
		}
	}
	logger.Info("Predictions generated", log.PredsKey, len(yPred))
	return out, nil
}

// ScoreModel predicts f and computes the task metrics against f's target
// column. Rows with a missing target are skipped.
func ScoreModel(p *Pipeline, f *dataset.Frame) (map[string]float64, error) {
	targetCol, ok := f.Column(p.Target)
	if !ok {
		return nil, errors.NewValidationError("target", "column not found", p.Target)
	}
	var keep []int
	for i := 0; i < targetCol.Len(); i++ {
		if !targetCol.IsMissing(i) {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, errors.NewValidationError("target", "every target value is missing", p.Target)
	}
	sub := f.Take(keep)
	targetCol, _ = sub.Column(p.Target)

	yTrue, err := p.encodeTarget(targetCol)
	if err != nil {
		return nil, err
	}
	X, err := p.Transform(sub)
	if err != nil {
		return nil, err
	}
	yPred, proba, err := p.predictions(X)
	if err != nil {
		return nil, err
	}
	return score(p.Task, yTrue, yPred, proba, p.classCount())
}

func (p *Pipeline) decodeLabels(yPred []float64) ([]string, error) {
	codes := make([]int, len(yPred))
	for i, v := range yPred {
		codes[i] = int(v)
	}
	return p.Labels.InverseTransform(codes)
}

func predictedScores(yPred []float64, proba *mat.Dense) []float64 {
	out := make([]float64, len(yPred))
	for i, v := range yPred {
		out[i] = Round4(proba.At(i, int(v)))
	}
	return out
}

func metricFields(m map[string]float64) []any {
	fields := make([]any, 0, 2*len(m))
	for k, v := range m {
		if math.IsNaN(v) {
			continue
		}
		fields = append(fields, "metrics."+k, v)
	}
	return fields
}
