package experiment

import (
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// Config holds the Setup parameters of an experiment.
type Config struct {
	// TrainSize is the fraction of rows used for training, the rest is the holdout.
	TrainSize float64
	// Folds is the number of cross-validation folds used by CompareModels.
	Folds int
	// SessionID seeds every random choice (split, shuffling, forests).
	SessionID int64
	// Normalize scales features after encoding.
	Normalize bool
	// NormalizeMethod is "zscore" or "minmax".
	NormalizeMethod string
	// MaxCategories is the largest number of levels a categorical column may
	// have to be one-hot encoded. Larger columns are ignored.
	MaxCategories int
	// IgnoreFeatures are never used as features.
	IgnoreFeatures []string
	// NJobs bounds concurrent fold evaluation. 0 means one worker per CPU.
	NJobs int

	logger log.Logger
}

// DefaultConfig returns the Setup defaults.
func DefaultConfig() Config {
	return Config{
		TrainSize:       0.7,
		Folds:           10,
		SessionID:       123,
		Normalize:       true,
		NormalizeMethod: "zscore",
		MaxCategories:   25,
	}
}

// Validate checks the Setup parameters.
func (c Config) Validate() error {
	switch {
	case c.TrainSize <= 0 || c.TrainSize >= 1:
		return errors.NewValidationError("train_size", "must be in (0, 1)", c.TrainSize)
	case c.Folds < 2:
		return errors.NewValidationError("fold", "must be at least 2", c.Folds)
	case c.MaxCategories < 1:
		return errors.NewValidationError("max_categories", "must be positive", c.MaxCategories)
	case c.NormalizeMethod != "zscore" && c.NormalizeMethod != "minmax":
		return errors.NewValidationError("normalize_method", "must be zscore or minmax", c.NormalizeMethod)
	}
	return nil
}

// SetupOption customizes Setup.
type SetupOption func(*Config)

// WithConfig replaces all Setup parameters at once.
func WithConfig(cfg Config) SetupOption {
	return func(c *Config) {
		logger := c.logger
		*c = cfg
		if c.logger == nil {
			c.logger = logger
		}
	}
}

// WithTrainSize sets the training fraction.
func WithTrainSize(f float64) SetupOption { return func(c *Config) { c.TrainSize = f } }

// WithFolds sets the number of cross-validation folds.
func WithFolds(n int) SetupOption { return func(c *Config) { c.Folds = n } }

// WithSessionID sets the random seed.
func WithSessionID(seed int64) SetupOption { return func(c *Config) { c.SessionID = seed } }

// WithNormalize toggles feature scaling and picks its method.
func WithNormalize(enabled bool, method string) SetupOption {
	return func(c *Config) {
		c.Normalize = enabled
		if method != "" {
			c.NormalizeMethod = method
		}
	}
}

// WithMaxCategories sets the one-hot cardinality limit.
func WithMaxCategories(n int) SetupOption { return func(c *Config) { c.MaxCategories = n } }

// WithIgnoreFeatures excludes columns from the feature set.
func WithIgnoreFeatures(names ...string) SetupOption {
	return func(c *Config) { c.IgnoreFeatures = append(c.IgnoreFeatures, names...) }
}

// WithNJobs bounds concurrent fold evaluation.
func WithNJobs(n int) SetupOption { return func(c *Config) { c.NJobs = n } }

// WithLogger sets the experiment logger.
func WithLogger(l log.Logger) SetupOption { return func(c *Config) { c.logger = l } }

// Progress reports one finished cross-validation fold.
type Progress struct {
	RunID string `json:"run_id"`
	Model string `json:"model"`
	Fold  int    `json:"fold"`
	Folds int    `json:"folds"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

type compareConfig struct {
	include  []string
	exclude  []string
	progress func(Progress)
	runID    string
}

// CompareOption customizes CompareModels.
type CompareOption func(*compareConfig)

// WithInclude restricts the candidates to the given family ids (e.g. "lr", "rf").
func WithInclude(ids ...string) CompareOption {
	return func(c *compareConfig) { c.include = append(c.include, ids...) }
}

// WithExclude removes family ids from the candidates.
func WithExclude(ids ...string) CompareOption {
	return func(c *compareConfig) { c.exclude = append(c.exclude, ids...) }
}

// WithProgress registers a callback invoked after every finished fold. It may
// be called from several goroutines but never concurrently.
func WithProgress(fn func(Progress)) CompareOption {
	return func(c *compareConfig) { c.progress = fn }
}

// WithRunID sets the run id stamped on progress events and on the returned
// pipeline. A random uuid is used otherwise.
func WithRunID(id string) CompareOption { return func(c *compareConfig) { c.runID = id } }
