package experiment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/preprocessing"
)

// Experiment is a prepared dataset: target encoded, features selected,
// train/holdout split and preprocessing fitted on the training rows.
type Experiment struct {
	cfg    Config
	task   Task
	target string
	logger log.Logger

	features []string
	ignored  map[string]string // column -> reason

	imputer *preprocessing.SimpleImputer
	encoder *preprocessing.OneHotEncoder
	scaler  preprocessing.Scaler
	labels  *preprocessing.LabelEncoder

	originalRows, originalCols int

	XTrain, XTest *mat.Dense
	yTrain, yTest []float64

	results []Result
	last    *dataset.Frame
}

// Setup prepares frame for training a task on the target column.
//
// Rows with a missing target are dropped. Categorical columns with more than
// MaxCategories levels, constant columns and IgnoreFeatures are not used as
// features. Preprocessing (mean/mode imputation, one-hot encoding, optional
// scaling) is fitted on the training split only.
func Setup(frame *dataset.Frame, target string, task Task, opts ...SetupOption) (*Experiment, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.logger
	if logger == nil {
		logger = log.GetLoggerWithName("experiment")
	}
	logger = logger.With(log.OperationKey, log.OperationSetup, log.TaskKey, task.String(), log.TargetKey, target)

	if frame == nil || frame.Rows() == 0 {
		return nil, errors.NewModelError("Setup", "empty data", errors.ErrEmptyData)
	}
	targetCol, ok := frame.Column(target)
	if !ok {
		return nil, errors.NewValidationError("target", "column not found", target)
	}

	exp := &Experiment{
		cfg:          cfg,
		task:         task,
		target:       target,
		logger:       logger,
		ignored:      make(map[string]string),
		originalRows: frame.Rows(),
		originalCols: frame.Cols(),
	}

	var keep []int
	for i := 0; i < targetCol.Len(); i++ {
		if !targetCol.IsMissing(i) {
			keep = append(keep, i)
		}
	}
	if dropped := frame.Rows() - len(keep); dropped > 0 {
		logger.Warn("Dropping rows with a missing target", "rows", dropped)
	}
	data := frame.Take(keep)
	targetCol, _ = data.Column(target)

	y, err := exp.prepareTarget(targetCol)
	if err != nil {
		return nil, err
	}
	if err := exp.selectFeatures(data); err != nil {
		return nil, err
	}

	train, test := trainTestSplit(y, cfg.TrainSize, cfg.SessionID, task == Classification)
	if len(train) < 2 || len(test) < 1 {
		return nil, errors.NewValidationError("data", "too few rows to split into train and test", data.Rows())
	}

	features, _ := data.Select(exp.features...)
	if err := exp.fitPreprocessing(features.Take(train), features.Take(test)); err != nil {
		return nil, err
	}
	exp.yTrain = takeFloats(y, train)
	exp.yTest = takeFloats(y, test)

	exp.last = exp.setupTable()
	logger.Info("Setup complete",
		log.SamplesKey, len(keep),
		log.FeaturesKey, len(exp.features),
		"train_rows", len(train),
		"test_rows", len(test),
	)
	return exp, nil
}

func (e *Experiment) prepareTarget(c *dataset.Column) ([]float64, error) {
	if c.Len() == 0 {
		return nil, errors.NewValidationError("target", "every target value is missing", c.Name)
	}
	if e.task == Regression {
		if c.Kind != dataset.Numeric {
			return nil, errors.NewValidationError("target", "regression target must be numeric", c.Name)
		}
		return encodeTarget(e.task, nil, c)
	}

	e.labels = preprocessing.NewLabelEncoder()
	if err := e.labels.Fit(c); err != nil {
		return nil, err
	}
	if len(e.labels.Classes) < 2 {
		return nil, errors.NewValidationError("target", "classification target needs at least 2 classes", len(e.labels.Classes))
	}
	return encodeTarget(e.task, e.labels, c)
}

func (e *Experiment) selectFeatures(data *dataset.Frame) error {
	ignore := make(map[string]bool, len(e.cfg.IgnoreFeatures))
	for _, name := range e.cfg.IgnoreFeatures {
		ignore[name] = true
	}
	for _, c := range data.Columns() {
		levels := len(c.Levels())
		switch {
		case c.Name == e.target:
			continue
		case ignore[c.Name]:
			e.ignored[c.Name] = "ignored by user"
		case levels <= 1:
			e.ignored[c.Name] = "constant"
		case c.Kind == dataset.Categorical && levels > e.cfg.MaxCategories:
			e.ignored[c.Name] = fmt.Sprintf("%d categories exceed max_categories=%d", levels, e.cfg.MaxCategories)
		default:
			e.features = append(e.features, c.Name)
		}
	}
	for name, reason := range e.ignored {
		e.logger.Debug("Ignoring column", "column", name, "reason", reason)
	}
	if len(e.features) == 0 {
		return errors.NewValidationError("features", "no usable feature columns", e.ignoredNames())
	}
	return nil
}

func (e *Experiment) fitPreprocessing(train, test *dataset.Frame) error {
	e.imputer = preprocessing.NewSimpleImputer()
	if err := e.imputer.Fit(train); err != nil {
		return err
	}
	imputed, err := e.imputer.Transform(train)
	if err != nil {
		return err
	}
	e.encoder = preprocessing.NewOneHotEncoder()
	if err := e.encoder.Fit(imputed); err != nil {
		return err
	}
	if e.cfg.Normalize {
		X, err := e.encoder.Transform(imputed)
		if err != nil {
			return err
		}
		if e.scaler, err = preprocessing.NewScaler(e.cfg.NormalizeMethod); err != nil {
			return err
		}
		if err := e.scaler.Fit(X); err != nil {
			return err
		}
	}

	if e.XTrain, err = transformFeatures(train, e.imputer, e.encoder, e.scaler); err != nil {
		return err
	}
	e.XTest, err = transformFeatures(test, e.imputer, e.encoder, e.scaler)
	return err
}

// Task returns the experiment's task.
func (e *Experiment) Task() Task { return e.task }

// Target returns the target column name.
func (e *Experiment) Target() string { return e.target }

// Features returns the raw feature columns used for training.
func (e *Experiment) Features() []string { return e.features }

// Config returns the Setup parameters.
func (e *Experiment) Config() Config { return e.cfg }

// Classes returns the original class labels in encoded order (classification only).
func (e *Experiment) Classes() []string {
	if e.labels == nil {
		return nil
	}
	return e.labels.Classes
}

// Pull returns the most recent result table: the setup summary after Setup,
// the leaderboard after CompareModels.
func (e *Experiment) Pull() *dataset.Frame { return e.last }

// GetConfig returns one of the prepared datasets: "X_train" and "X_test" are
// the transformed feature matrices, "y_train" and "y_test" the encoded targets.
func (e *Experiment) GetConfig(name string) (*dataset.Frame, error) {
	switch name {
	case "X_train":
		return matrixFrame(name, e.encoder.FeatureNames(), e.XTrain), nil
	case "X_test":
		return matrixFrame(name, e.encoder.FeatureNames(), e.XTest), nil
	case "y_train":
		return dataset.NewFrame(name, dataset.NewNumericColumn(e.target, e.yTrain))
	case "y_test":
		return dataset.NewFrame(name, dataset.NewNumericColumn(e.target, e.yTest))
	}
	return nil, errors.NewValidationError("name", "must be X_train, X_test, y_train or y_test", name)
}

func (e *Experiment) ignoredNames() []string {
	names := make([]string, 0, len(e.ignored))
	for n := range e.ignored {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// setupTable summarizes Setup as a two column Description / Value table.
func (e *Experiment) setupTable() *dataset.Frame {
	var desc, val []string
	add := func(d string, v interface{}) {
		desc = append(desc, d)
		val = append(val, fmt.Sprint(v))
	}

	var numeric, categorical int
	for _, name := range e.features {
		if _, ok := e.encoder.Categories[name]; ok {
			categorical++
		} else {
			numeric++
		}
	}
	nTrain, _ := e.XTrain.Dims()
	nTest, width := e.XTest.Dims()

	add("Session id", e.cfg.SessionID)
	add("Target", e.target)
	add("Target type", e.targetType())
	if e.labels != nil {
		mapping := make([]string, len(e.labels.Classes))
		for k, c := range e.labels.Classes {
			mapping[k] = c + ": " + strconv.Itoa(k)
		}
		add("Target mapping", strings.Join(mapping, ", "))
	}
	add("Original data shape", shape(e.originalRows, e.originalCols))
	add("Transformed data shape", shape(nTrain+nTest, width+1))
	add("Transformed train set shape", shape(nTrain, width+1))
	add("Transformed test set shape", shape(nTest, width+1))
	add("Numeric features", numeric)
	add("Categorical features", categorical)
	if len(e.ignored) > 0 {
		add("Ignored features", strings.Join(e.ignoredNames(), ", "))
	}
	add("Train size", decimal.NewFromFloat(e.cfg.TrainSize).Round(4))
	add("Preprocess", true)
	add("Imputation type", "simple")
	add("Numeric imputation", "mean")
	add("Categorical imputation", "mode")
	add("Maximum one-hot encoding", e.cfg.MaxCategories)
	add("Normalize", e.cfg.Normalize)
	if e.cfg.Normalize {
		add("Normalize method", e.cfg.NormalizeMethod)
	}
	if e.task == Classification {
		add("Fold Generator", "StratifiedKFold")
	} else {
		add("Fold Generator", "KFold")
	}
	add("Fold Number", e.cfg.Folds)

	f, _ := dataset.NewFrame("setup",
		dataset.NewCategoricalColumn("Description", desc),
		dataset.NewCategoricalColumn("Value", val),
	)
	return f
}

func (e *Experiment) targetType() string {
	switch {
	case e.task == Regression:
		return "Regression"
	case len(e.labels.Classes) == 2:
		return "Binary"
	}
	return "Multiclass"
}

func shape(r, c int) string { return fmt.Sprintf("(%d, %d)", r, c) }

func matrixFrame(name string, columns []string, X *mat.Dense) *dataset.Frame {
	f, _ := dataset.NewFrame(name)
	for j, col := range columns {
		_ = f.AddColumn(dataset.NewNumericColumn(col, mat.Col(nil, j, X)))
	}
	return f
}

func takeFloats(v []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = v[r]
	}
	return out
}
