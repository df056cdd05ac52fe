package experiment

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/preprocessing"
)

// Pipeline is the persisted model artifact: the preprocessing fitted by Setup,
// the estimator chosen by CompareModels and the metadata needed to predict on
// new data. All fields are exported for encoding/gob.
type Pipeline struct {
	RunID     string
	ModelID   string
	ModelName string
	Task      Task
	Target    string
	Features  []string
	CreatedAt time.Time

	Imputer *preprocessing.SimpleImputer
	Encoder *preprocessing.OneHotEncoder
	Scaler  preprocessing.Scaler // nil when normalization is disabled
	Labels  *preprocessing.LabelEncoder // classification only

	Estimator model.Estimator

	// HoldoutMetrics are the metrics of the refit estimator on the Setup holdout.
	HoldoutMetrics map[string]float64
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("Pipeline(%s, task=%s, target=%s)", p.ModelName, p.Task, p.Target)
}

// FeatureNames returns the column names of the transformed feature matrix.
func (p *Pipeline) FeatureNames() []string {
	return p.Encoder.FeatureNames()
}

// HasProba reports whether the estimator produces class probabilities.
func (p *Pipeline) HasProba() bool {
	_, ok := p.Estimator.(model.ProbabilisticClassifier)
	return p.Task == Classification && ok
}

// Transform selects the feature columns of f and applies the fitted
// preprocessing. Missing feature columns are a ValidationError.
func (p *Pipeline) Transform(f *dataset.Frame) (*mat.Dense, error) {
	for _, name := range p.Features {
		if !f.Has(name) {
			return nil, errors.NewValidationError("column", "required feature column is missing", name)
		}
	}
	features, err := f.Select(p.Features...)
	if err != nil {
		return nil, err
	}
	return transformFeatures(features, p.Imputer, p.Encoder, p.Scaler)
}

func transformFeatures(f *dataset.Frame, imp *preprocessing.SimpleImputer, enc *preprocessing.OneHotEncoder, sc preprocessing.Scaler) (*mat.Dense, error) {
	imputed, err := imp.Transform(f)
	if err != nil {
		return nil, err
	}
	X, err := enc.Transform(imputed)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return X, nil
	}
	scaled, err := sc.Transform(X)
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(scaled), nil
}

// predictions runs the estimator on a transformed matrix and returns the raw
// predictions (encoded class indices for classification) and, when available,
// the task-aligned probabilities.
func (p *Pipeline) predictions(X mat.Matrix) ([]float64, *mat.Dense, error) {
	return predictEncoded(p.Estimator, X, p.Task, p.classCount())
}

// classCount is the number of target classes, 0 for regression.
func (p *Pipeline) classCount() int {
	if p.Labels == nil {
		return 0
	}
	return len(p.Labels.Classes)
}

// encodeTarget converts a target column to the estimator's numeric targets.
func (p *Pipeline) encodeTarget(c *dataset.Column) ([]float64, error) {
	return encodeTarget(p.Task, p.Labels, c)
}

func encodeTarget(task Task, labels *preprocessing.LabelEncoder, c *dataset.Column) ([]float64, error) {
	if task == Regression {
		if c.Kind != dataset.Numeric {
			return nil, errors.NewValidationError("target", "regression target must be numeric", c.Name)
		}
		return append([]float64(nil), c.Num...), nil
	}
	codes, err := labels.Transform(c)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(codes))
	for i, k := range codes {
		out[i] = float64(k)
	}
	return out, nil
}
