package experiment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/metrics"
)

// Leaderboard metric columns, in display order.
var (
	ClassificationMetrics = []string{"Accuracy", "AUC", "Recall", "Prec.", "F1", "Kappa", "MCC"}
	RegressionMetrics     = []string{"MAE", "MSE", "RMSE", "R2", "RMSLE", "MAPE"}
)

// SortMetric returns the leaderboard column the candidates are ranked by.
func SortMetric(task Task) string {
	if task == Regression {
		return "R2"
	}
	return "Accuracy"
}

// MetricNames returns the leaderboard metric columns of a task.
func MetricNames(task Task) []string {
	if task == Regression {
		return RegressionMetrics
	}
	return ClassificationMetrics
}

type metricFunc func(yTrue, yPred *mat.VecDense) (float64, error)

// classMetricFunc takes the class count of the task so that a fold or holdout
// missing some classes is still averaged as multiclass.
type classMetricFunc func(yTrue, yPred *mat.VecDense, k int) (float64, error)

var classificationFuncs = map[string]classMetricFunc{
	"Accuracy": func(t, p *mat.VecDense, _ int) (float64, error) { return metrics.Accuracy(t, p) },
	"Recall":   metrics.RecallK,
	"Prec.":    metrics.PrecisionK,
	"F1":       metrics.F1K,
	"Kappa":    metrics.CohenKappaK,
	"MCC":      metrics.MCCK,
}

var regressionFuncs = map[string]metricFunc{
	"MAE":   metrics.MAE,
	"MSE":   metrics.MSE,
	"RMSE":  metrics.RMSE,
	"R2":    metrics.R2Score,
	"RMSLE": metrics.RMSLE,
	"MAPE":  metrics.MAPE,
}

// score computes every metric of the task. nClasses is the class count of the
// whole task (ignored for regression). proba holds one column per class (see
// alignProba) and is nil for models without probabilities, in which case AUC
// is reported as 0.
func score(task Task, yTrue, yPred []float64, proba *mat.Dense, nClasses int) (map[string]float64, error) {
	t := mat.NewVecDense(len(yTrue), yTrue)
	p := mat.NewVecDense(len(yPred), yPred)
	out := make(map[string]float64)

	if task == Regression {
		for name, fn := range regressionFuncs {
			v, err := fn(t, p)
			if err != nil {
				return nil, err
			}
			out[name] = v
		}
		return out, nil
	}

	out["AUC"] = 0
	if proba != nil {
		auc, err := metrics.MulticlassAUC(t, proba)
		if err != nil {
			return nil, err
		}
		out["AUC"] = auc
	}
	for name, fn := range classificationFuncs {
		v, err := fn(t, p, nClasses)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// alignProba maps the probability columns of an estimator, ordered by its own
// Classes(), onto the nClasses columns of the task. Classes missing from the
// estimator's training fold get probability 0. It returns nil when the
// estimator has no probability estimates.
func alignProba(est model.Estimator, X mat.Matrix, nClasses int) (*mat.Dense, error) {
	pc, ok := est.(model.ProbabilisticClassifier)
	if !ok {
		return nil, nil
	}
	raw, err := pc.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := raw.Dims()
	out := mat.NewDense(n, nClasses, nil)
	for j, c := range pc.Classes() {
		if c < 0 || c >= nClasses {
			continue
		}
		for i := 0; i < n; i++ {
			out.Set(i, c, raw.At(i, j))
		}
	}
	return out, nil
}
