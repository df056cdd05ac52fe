package experiment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/metrics"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/plot"
)

// PlotKind names a diagnostic plot.
type PlotKind string

// Classification plots.
const (
	PlotAUC             PlotKind = "auc"
	PlotConfusionMatrix PlotKind = "confusion_matrix"
	PlotClassReport     PlotKind = "class_report"
)

// Regression plots.
const (
	PlotResiduals PlotKind = "residuals"
	PlotError     PlotKind = "error"
	PlotCooks     PlotKind = "cooks"
)

// PlotKinds returns the plots available for a task in display order.
func PlotKinds(task Task) []PlotKind {
	if task == Classification {
		return []PlotKind{PlotAUC, PlotConfusionMatrix, PlotClassReport}
	}
	return []PlotKind{PlotResiduals, PlotError, PlotCooks}
}

// PlotModel renders a diagnostic plot of p on the holdout (residuals also use
// the training split, Cook's distance only the training split) and returns
// the PNG bytes.
func (e *Experiment) PlotModel(p *Pipeline, kind PlotKind) ([]byte, error) {
	if p == nil || p.Estimator == nil {
		return nil, errors.NewValueError("PlotModel", "pipeline has no fitted estimator")
	}
	if p.Task != e.task {
		return nil, errors.NewValidationError("task", "pipeline was trained for another task", p.Task.String())
	}
	supported := false
	for _, k := range PlotKinds(e.task) {
		supported = supported || k == kind
	}
	if !supported {
		return nil, errors.NewValidationError("plot", "not available for "+e.task.String(), string(kind))
	}

	logger := e.logger.With(log.OperationKey, log.OperationPlot, log.ModelIDKey, p.ModelID)
	yPred, proba, err := p.predictions(e.XTest)
	if err != nil {
		return nil, err
	}

	var img []byte
	switch kind {
	case PlotAUC:
		if proba == nil {
			return nil, errors.NewValueError("PlotModel", p.ModelName+" has no probability estimates")
		}
		img, err = plot.ROC(e.yTest, proba, e.Classes())
	case PlotConfusionMatrix:
		var cm *mat.Dense
		cm, err = metrics.ConfusionMatrix(vec(e.yTest), vec(yPred), len(e.Classes()))
		if err == nil {
			img, err = plot.ConfusionMatrix(cm, e.Classes())
		}
	case PlotClassReport:
		var report []metrics.ClassReport
		report, err = metrics.ClassificationReport(vec(e.yTest), vec(yPred), len(e.Classes()))
		if err == nil {
			img, err = plot.ClassReport(report, e.Classes())
		}
	case PlotResiduals:
		var trainPred []float64
		trainPred, _, err = p.predictions(e.XTrain)
		if err == nil {
			img, err = plot.Residuals(e.yTrain, trainPred, e.yTest, yPred)
		}
	case PlotError:
		img, err = plot.PredictionError(e.yTest, yPred)
	case PlotCooks:
		img, err = plot.CooksDistance(e.XTrain, e.yTrain)
	}
	if err != nil {
		logger.Warn("plot failed", err, log.PlotKindKey, string(kind))
		return nil, err
	}
	logger.Debug("plot rendered", log.PlotKindKey, string(kind))
	return img, nil
}

func vec(v []float64) *mat.VecDense { return mat.NewVecDense(len(v), v) }
