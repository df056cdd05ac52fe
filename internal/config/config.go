// Package config loads the application settings from a YAML file and AUTOML_*
// environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/automl/experiment"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// Config is the full application configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Log      Log      `yaml:"log"`
	Storage  Storage  `yaml:"storage"`
	Database Database `yaml:"database"`
	AutoML   AutoML   `yaml:"automl"`
	Cache    Cache    `yaml:"cache"`
	CSV      CSV      `yaml:"csv"`
}

// Server configures the HTTP form server.
type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadMB     int64         `yaml:"max_upload_mb"`
	// PreviewRows is the number of rows shown in data tables.
	PreviewRows int `yaml:"preview_rows"`
}

// Log configures pkg/log.
type Log struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Storage configures where artifacts are written.
type Storage struct {
	ModelDir        string `yaml:"model_dir"`
	ModelName       string `yaml:"model_name"`
	OutputDir       string `yaml:"output_dir"`
	PredictionsFile string `yaml:"predictions_file"`
}

// Database configures the run history store.
type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// AutoML holds the experiment defaults.
type AutoML struct {
	TrainSize       float64  `yaml:"train_size"`
	Folds           int      `yaml:"folds"`
	SessionID       int64    `yaml:"session_id"`
	Normalize       bool     `yaml:"normalize"`
	NormalizeMethod string   `yaml:"normalize_method"`
	MaxCategories   int      `yaml:"max_categories"`
	Include         []string `yaml:"include"`
	NJobs           int      `yaml:"n_jobs"`
}

// Cache sizes the in-memory caches.
type Cache struct {
	Datasets int `yaml:"datasets"`
	Models   int `yaml:"models"`
}

// CSV configures upload parsing.
type CSV struct {
	Encoding string `yaml:"encoding"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     time.Minute,
			WriteTimeout:    30 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			MaxUploadMB:     64,
			PreviewRows:     10,
		},
		Log: Log{Level: "info", Format: "json", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28},
		Storage: Storage{
			ModelDir:        ".",
			ModelName:       "best_model",
			OutputDir:       ".",
			PredictionsFile: "predictions.csv",
		},
		Database: Database{Driver: "sqlite3", DSN: "automl.db"},
		AutoML: AutoML{
			TrainSize:       0.7,
			Folds:           10,
			SessionID:       123,
			Normalize:       true,
			NormalizeMethod: "zscore",
			MaxCategories:   25,
		},
		Cache: Cache{Datasets: 16, Models: 4},
		CSV:   CSV{Encoding: "utf-8"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open config %s", path)
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config %s", path)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from AUTOML_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"AUTOML_ADDR":             &c.Server.Addr,
		"AUTOML_LOG_LEVEL":        &c.Log.Level,
		"AUTOML_LOG_FORMAT":       &c.Log.Format,
		"AUTOML_LOG_FILE":         &c.Log.File,
		"AUTOML_MODEL_DIR":        &c.Storage.ModelDir,
		"AUTOML_MODEL_NAME":       &c.Storage.ModelName,
		"AUTOML_OUTPUT_DIR":       &c.Storage.OutputDir,
		"AUTOML_DB_DRIVER":        &c.Database.Driver,
		"AUTOML_DB_DSN":           &c.Database.DSN,
		"AUTOML_NORMALIZE_METHOD": &c.AutoML.NormalizeMethod,
		"AUTOML_CSV_ENCODING":     &c.CSV.Encoding,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"AUTOML_FOLDS":          &c.AutoML.Folds,
		"AUTOML_MAX_CATEGORIES": &c.AutoML.MaxCategories,
		"AUTOML_N_JOBS":         &c.AutoML.NJobs,
		"AUTOML_PREVIEW_ROWS":   &c.Server.PreviewRows,
		"AUTOML_CACHE_DATASETS": &c.Cache.Datasets,
		"AUTOML_CACHE_MODELS":   &c.Cache.Models,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.NewValidationError(key, "must be an integer", v)
			}
			*dst = n
		}
	}

	if v, ok := lookup("AUTOML_TRAIN_SIZE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.NewValidationError("AUTOML_TRAIN_SIZE", "must be a number", v)
		}
		c.AutoML.TrainSize = f
	}
	if v, ok := lookup("AUTOML_SESSION_ID"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.NewValidationError("AUTOML_SESSION_ID", "must be an integer", v)
		}
		c.AutoML.SessionID = n
	}
	if v, ok := lookup("AUTOML_NORMALIZE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.NewValidationError("AUTOML_NORMALIZE", "must be a boolean", v)
		}
		c.AutoML.Normalize = b
	}
	if v, ok := lookup("AUTOML_MAX_UPLOAD_MB"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.NewValidationError("AUTOML_MAX_UPLOAD_MB", "must be an integer", v)
		}
		c.Server.MaxUploadMB = n
	}
	if v, ok := lookup("AUTOML_INCLUDE"); ok {
		c.AutoML.Include = nil
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				c.AutoML.Include = append(c.AutoML.Include, id)
			}
		}
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.NewValidationError("server.addr", "must not be empty", c.Server.Addr)
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.NewValidationError("server.max_upload_mb", "must be positive", c.Server.MaxUploadMB)
	}
	if c.Server.PreviewRows <= 0 {
		return errors.NewValidationError("server.preview_rows", "must be positive", c.Server.PreviewRows)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.NewValidationError("log.level", "must be debug, info, warn or error", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return errors.NewValidationError("log.format", "must be json or console", c.Log.Format)
	}
	if c.Storage.ModelName == "" || c.Storage.PredictionsFile == "" {
		return errors.NewValidationError("storage", "model_name and predictions_file must be set", c.Storage)
	}
	if c.Database.Driver != "sqlite3" && c.Database.Driver != "postgres" {
		return errors.NewValidationError("database.driver", "must be sqlite3 or postgres", c.Database.Driver)
	}
	if c.Cache.Datasets < 1 || c.Cache.Models < 1 {
		return errors.NewValidationError("cache", "sizes must be positive", c.Cache)
	}
	// the experiment package owns the AutoML rules
	return c.experimentConfig().Validate()
}

func (c *Config) experimentConfig() experiment.Config {
	return experiment.Config{
		TrainSize:       c.AutoML.TrainSize,
		Folds:           c.AutoML.Folds,
		SessionID:       c.AutoML.SessionID,
		Normalize:       c.AutoML.Normalize,
		NormalizeMethod: c.AutoML.NormalizeMethod,
		MaxCategories:   c.AutoML.MaxCategories,
		NJobs:           c.AutoML.NJobs,
	}
}

// SetupOptions converts the AutoML section into experiment options.
func (c *Config) SetupOptions() []experiment.SetupOption {
	return []experiment.SetupOption{experiment.WithConfig(c.experimentConfig())}
}

// LogOptions converts the Log section into pkg/log options.
func (c *Config) LogOptions() log.Options {
	level, _ := log.ParseLevel(c.Log.Level)
	return log.Options{
		Level:      level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

// ModelPath returns the path of the persisted best model without extension.
func (c *Config) ModelPath() string {
	return filepath.Join(c.Storage.ModelDir, c.Storage.ModelName)
}

// PredictionsPath returns the path predictions are written to.
func (c *Config) PredictionsPath() string {
	return filepath.Join(c.Storage.OutputDir, c.Storage.PredictionsFile)
}

