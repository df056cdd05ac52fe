// Package log defines standard attribute keys for AutoML operations.
//
// Keys follow a hierarchical naming convention (e.g. "model.name", "data.samples")
// so that training runs can be filtered and correlated in the log stream.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the model family, e.g. "Random Forest Classifier".
	ModelNameKey = "model.name"

	// ModelIDKey is the short family id used in the leaderboard, e.g. "rf".
	ModelIDKey = "model.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "setup", "compare", "fit", "predict", "plot", "save", "load"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase, e.g. "training" or "inference".
	PhaseKey = "ml.phase"
)

// Experiment Context
const (
	// RunIDKey is the uuid of a training run.
	RunIDKey = "run.id"

	// TaskKey is "classification" or "regression".
	TaskKey = "run.task"

	// TargetKey is the name of the target column.
	TargetKey = "run.target"

	// FoldKey is the zero-based cross-validation fold index.
	FoldKey = "cv.fold"

	// FoldsKey is the number of cross-validation folds.
	FoldsKey = "cv.folds"

	// SeedKey records the session seed for reproducibility.
	SeedKey = "config.random_seed"

	// PathKey is a filesystem path (model artifact, predictions file).
	PathKey = "io.path"

	// PlotKindKey names a diagnostic plot, e.g. "auc".
	PlotKindKey = "plot.kind"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of rows.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of feature columns.
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of target classes.
	ClassesKey = "data.classes"

	// DatasetKey is the uploaded file name.
	DatasetKey = "data.name"

	// DataSizeKey indicates the size of an upload in bytes.
	DataSizeKey = "data.size_bytes"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records classification accuracy.
	AccuracyKey = "metrics.accuracy"

	// R2ScoreKey records the coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"

	// ScoreKey records the leaderboard sort metric of a candidate.
	ScoreKey = "metrics.score"

	// IterationKey records the current iteration number of an iterative solver.
	IterationKey = "training.iteration"
)

// Prediction Context
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"
)

// HTTP Context
const (
	// MethodKey is the HTTP method.
	MethodKey = "http.method"

	// RouteKey is the request path.
	RouteKey = "http.route"

	// StatusKey is the response status code.
	StatusKey = "http.status"

	// RemoteAddrKey is the client address.
	RemoteAddrKey = "http.remote_addr"
)

// Error Context
const (
	// ErrorTypeKey categorizes the error, e.g. "ValidationError".
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information extracted from cockroachdb/errors.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationSetup   = "setup"
	OperationCompare = "compare"
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationPlot    = "plot"
	OperationSave    = "save"
	OperationLoad    = "load"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
