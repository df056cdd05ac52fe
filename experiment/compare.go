package experiment

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/core/parallel"
	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// Result is the cross-validated performance of one candidate family.
type Result struct {
	ID      string             `json:"id"`
	Name    string             `json:"model"`
	Metrics map[string]float64 `json:"metrics"`
	// TrainTime is the mean fit time per fold.
	TrainTime time.Duration `json:"train_time_ns"`
}

// Leaderboard returns the results of the last CompareModels call, best first.
func (e *Experiment) Leaderboard() []Result { return e.results }

// CompareModels cross-validates every candidate family on the training split,
// ranks them by Accuracy (classification) or R2 (regression), refits the
// winner on the whole training split and scores it on the holdout.
//
// A family whose folds fail is logged and left off the leaderboard. ctx is
// checked before every fold.
func (e *Experiment) CompareModels(ctx context.Context, opts ...CompareOption) (*Pipeline, error) {
	var cc compareConfig
	for _, opt := range opts {
		opt(&cc)
	}
	if cc.runID == "" {
		cc.runID = uuid.NewString()
	}
	candidates, err := selectCandidates(e.task, cc.include, cc.exclude)
	if err != nil {
		return nil, err
	}

	stratify := e.task == Classification
	k := effectiveFolds(e.cfg.Folds, e.yTrain, stratify)
	folds := kFold(e.yTrain, k, e.cfg.SessionID, stratify)
	logger := e.logger.With(log.OperationKey, log.OperationCompare, log.RunIDKey, cc.runID, log.FoldsKey, k)
	if k != e.cfg.Folds {
		logger.Warn("Fold count reduced to fit the training data", "requested", e.cfg.Folds)
	}

	tracker := &progressTracker{fn: cc.progress, base: Progress{RunID: cc.runID, Folds: k, Total: len(candidates) * k}}

	var results []Result
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "compare models cancelled")
		}
		res, err := e.crossValidate(ctx, c, folds, tracker)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "compare models cancelled")
		}
		if err != nil {
			logger.Warn("Skipping model", err, log.ModelIDKey, c.ID, log.ModelNameKey, c.Name)
			continue
		}
		logger.Info("Model cross-validated",
			log.ModelIDKey, c.ID,
			log.ScoreKey, res.Metrics[SortMetric(e.task)],
			log.DurationMsKey, res.TrainTime.Milliseconds(),
		)
		results = append(results, res)
	}
	if len(results) == 0 {
		return nil, errors.NewModelError("CompareModels", "every candidate model failed", errors.ErrNoCandidates)
	}

	sortResults(results, SortMetric(e.task))
	e.results = results
	e.last = leaderboardFrame(e.task, results)

	best := candidateByID(candidates, results[0].ID)
	p, err := e.finalize(best, cc.runID)
	if err != nil {
		return nil, err
	}
	logger.Info("Best model selected", log.ModelIDKey, p.ModelID, log.ModelNameKey, p.ModelName)
	return p, nil
}

type progressTracker struct {
	mu   sync.Mutex
	fn   func(Progress)
	base Progress
	done int
}

func (t *progressTracker) report(model string, fold int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	if t.fn == nil {
		return
	}
	p := t.base
	p.Model, p.Fold, p.Done = model, fold, t.done
	t.fn(p)
}

func (e *Experiment) crossValidate(ctx context.Context, c Candidate, folds [][]int, tracker *progressTracker) (Result, error) {
	k := len(folds)
	scores := make([]map[string]float64, k)
	times := make([]time.Duration, k)
	errs := make([]error, k)
	nClasses := len(e.Classes())

	parallel.ForEach(k, e.cfg.NJobs, func(i int) {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			return
		}
		errs[i] = errors.SafeExecute(c.Name, func() error {
			trainRows := complement(len(e.yTrain), folds[i])
			XTr, yTr := takeRows(e.XTrain, e.yTrain, trainRows)
			XVal, yVal := takeRows(e.XTrain, e.yTrain, folds[i])

			est := c.New(e.cfg.SessionID)
			start := time.Now()
			if err := est.Fit(XTr, yTr); err != nil {
				return err
			}
			times[i] = time.Since(start)

			yPred, proba, err := predictEncoded(est, XVal, e.task, nClasses)
			if err != nil {
				return err
			}
			scores[i], err = score(e.task, mat.Col(nil, 0, yVal), yPred, proba, nClasses)
			return err
		})
		tracker.report(c.Name, i)
	})
	for _, err := range errs {
		if err != nil {
			return Result{}, err
		}
	}

	res := Result{ID: c.ID, Name: c.Name, Metrics: make(map[string]float64)}
	for _, s := range scores {
		for name, v := range s {
			res.Metrics[name] += v / float64(k)
		}
	}
	var total time.Duration
	for _, t := range times {
		total += t
	}
	res.TrainTime = total / time.Duration(k)
	return res, nil
}

// finalize refits the winning family on the whole training split and scores it
// on the holdout.
func (e *Experiment) finalize(c Candidate, runID string) (*Pipeline, error) {
	est := c.New(e.cfg.SessionID)
	yTrain := mat.NewDense(len(e.yTrain), 1, e.yTrain)
	if err := errors.SafeExecute(c.Name, func() error { return est.Fit(e.XTrain, yTrain) }); err != nil {
		return nil, err
	}

	p := &Pipeline{
		RunID:     runID,
		ModelID:   c.ID,
		ModelName: c.Name,
		Task:      e.task,
		Target:    e.target,
		Features:  e.features,
		CreatedAt: time.Now().UTC(),
		Imputer:   e.imputer,
		Encoder:   e.encoder,
		Scaler:    e.scaler,
		Labels:    e.labels,
		Estimator: est,
	}
	yPred, proba, err := p.predictions(e.XTest)
	if err != nil {
		return nil, err
	}
	if p.HoldoutMetrics, err = score(e.task, e.yTest, yPred, proba, len(e.Classes())); err != nil {
		return nil, err
	}
	return p, nil
}

func predictEncoded(est model.Estimator, X mat.Matrix, task Task, nClasses int) ([]float64, *mat.Dense, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return nil, nil, err
	}
	if task != Classification {
		return mat.Col(nil, 0, pred), nil, nil
	}
	proba, err := alignProba(est, X, nClasses)
	if err != nil {
		return nil, nil, err
	}
	return mat.Col(nil, 0, pred), proba, nil
}

// sortResults orders by the sort metric descending, then by training time.
func sortResults(results []Result, metric string) {
	sort.SliceStable(results, func(a, b int) bool {
		ma, mb := results[a].Metrics[metric], results[b].Metrics[metric]
		if ma != mb {
			return ma > mb
		}
		return results[a].TrainTime < results[b].TrainTime
	})
}

func candidateByID(cs []Candidate, id string) Candidate {
	for _, c := range cs {
		if c.ID == id {
			return c
		}
	}
	return Candidate{}
}

// leaderboardFrame renders results with metrics rounded to 4 decimals.
func leaderboardFrame(task Task, results []Result) *dataset.Frame {
	ids := make([]string, len(results))
	names := make([]string, len(results))
	for i, r := range results {
		ids[i], names[i] = r.ID, r.Name
	}
	f, _ := dataset.NewFrame("leaderboard",
		dataset.NewCategoricalColumn("ID", ids),
		dataset.NewCategoricalColumn("Model", names),
	)
	for _, m := range MetricNames(task) {
		vals := make([]float64, len(results))
		for i, r := range results {
			vals[i] = Round4(r.Metrics[m])
		}
		_ = f.AddColumn(dataset.NewNumericColumn(m, vals))
	}
	tt := make([]float64, len(results))
	for i, r := range results {
		tt[i] = Round4(r.TrainTime.Seconds())
	}
	_ = f.AddColumn(dataset.NewNumericColumn("TT (Sec)", tt))
	return f
}

// Round4 rounds v half away from zero to 4 decimal places. NaN and ±Inf are
// returned unchanged.
func Round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return r
}

func takeRows(X *mat.Dense, y []float64, rows []int) (*mat.Dense, *mat.Dense) {
	_, c := X.Dims()
	Xs := mat.NewDense(len(rows), c, nil)
	ys := mat.NewDense(len(rows), 1, nil)
	for i, r := range rows {
		Xs.SetRow(i, X.RawRowView(r))
		ys.Set(i, 0, y[r])
	}
	return Xs, ys
}
