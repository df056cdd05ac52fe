// Package automl is a small AutoML toolkit for tabular CSV data.
//
// A training run reads a CSV file, prepares it with experiment.Setup,
// cross-validates every candidate model family with CompareModels and
// persists the winning pipeline with SaveModel. A prediction run loads that
// pipeline and appends prediction columns to new data with PredictModel.
//
//	f, _ := os.Open("iris.csv")
//	frame, err := dataset.ReadCSV(f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	exp, err := experiment.Setup(frame, "species", experiment.Classification)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	best, err := exp.CompareModels(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	path, err := experiment.SaveModel(best, "best_model")
//
// The same flow is available as a web form (automl serve) and as command line
// subcommands (automl train, automl predict); see cmd/automl.
//
// # Packages
//
//   - dataset: CSV loading and a typed column frame
//   - preprocessing: imputation, one-hot encoding, scaling and label encoding
//   - linear, sklearn/...: the candidate estimators
//   - metrics: classification and regression metrics
//   - experiment: Setup, CompareModels, SaveModel, LoadModel, PredictModel, PlotModel
//   - plot: PNG diagnostic plots
//   - core/model: estimator interfaces, state and gob persistence
//   - core/parallel: bounded worker loops
//   - pkg/errors, pkg/log: error types and structured logging
package automl
