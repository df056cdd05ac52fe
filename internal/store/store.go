// Package store records training runs in a SQL database through sqlx.
// sqlite3 is the default driver; postgres is supported through lib/pq.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/YuminosukeSato/automl/experiment"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	task        TEXT NOT NULL,
	target      TEXT NOT NULL,
	dataset     TEXT NOT NULL,
	n_rows      INTEGER NOT NULL,
	best_model  TEXT NOT NULL,
	best_score  DOUBLE PRECISION NOT NULL,
	leaderboard TEXT NOT NULL,
	model_path  TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
)`

// Run is one completed training run.
type Run struct {
	ID        string  `db:"id" json:"id"`
	Task      string  `db:"task" json:"task"`
	Target    string  `db:"target" json:"target"`
	Dataset   string  `db:"dataset" json:"dataset"`
	Rows      int     `db:"n_rows" json:"rows"`
	BestModel string  `db:"best_model" json:"best_model"`
	BestScore float64 `db:"best_score" json:"best_score"`

	// Leaderboard is the JSON encoded []experiment.Result.
	Leaderboard string    `db:"leaderboard" json:"leaderboard"`
	ModelPath   string    `db:"model_path" json:"model_path"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Results decodes the leaderboard.
func (r Run) Results() ([]experiment.Result, error) {
	var out []experiment.Result
	if err := json.Unmarshal([]byte(r.Leaderboard), &out); err != nil {
		return nil, errors.Wrapf(err, "failed to decode leaderboard of run %s", r.ID)
	}
	return out, nil
}

// NewRun builds the record of a finished CompareModels call.
func NewRun(p *experiment.Pipeline, dataset string, rows int, board []experiment.Result, modelPath string) (Run, error) {
	raw, err := json.Marshal(board)
	if err != nil {
		return Run{}, errors.Wrap(err, "failed to encode leaderboard")
	}
	var best float64
	if len(board) > 0 {
		best = board[0].Metrics[experiment.SortMetric(p.Task)]
	}
	return Run{
		ID:          p.RunID,
		Task:        p.Task.String(),
		Target:      p.Target,
		Dataset:     dataset,
		Rows:        rows,
		BestModel:   p.ModelName,
		BestScore:   best,
		Leaderboard: string(raw),
		ModelPath:   modelPath,
		CreatedAt:   p.CreatedAt.UTC(),
	}, nil
}

// Store is the run history.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database and creates the schema when missing.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s database", driver)
	}
	if driver == "sqlite3" {
		// sqlite allows one writer at a time
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create runs table")
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a run.
func (s *Store) Record(ctx context.Context, r Run) error {
	if r.ID == "" {
		return errors.NewValidationError("id", "run id must not be empty", r.ID)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO runs (
			id, task, target, dataset, n_rows,
			best_model, best_score, leaderboard, model_path, created_at
		) VALUES (
			:id, :task, :target, :dataset, :n_rows,
			:best_model, :best_score, :leaderboard, :model_path, :created_at
		)`
	if _, err := s.db.NamedExecContext(ctx, query, r); err != nil {
		return errors.Wrapf(err, "failed to record run %s", r.ID)
	}
	return nil
}

// List returns up to limit runs, newest first. limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT * FROM runs ORDER BY created_at DESC, id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, s.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	return runs, nil
}

// Get returns the run with the given id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT * FROM runs WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, errors.Wrapf(ErrNotFound, "run %s", id)
	}
	if err != nil {
		return Run{}, errors.Wrapf(err, "failed to load run %s", id)
	}
	return r, nil
}
