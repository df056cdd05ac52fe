// Package server is the HTTP form UI: a training flow (upload, setup, model
// comparison, plots) and a prediction flow (upload, predict, download).
package server

import (
	"context"
	"html/template"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/internal/config"
	"github.com/YuminosukeSato/automl/internal/modelcache"
	"github.com/YuminosukeSato/automl/internal/store"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// session is an uploaded training dataset waiting for setup.
type session struct {
	ID       string
	Frame    *dataset.Frame
	Uploaded time.Time
}

// Server wires the form handlers to the run store and the model cache.
type Server struct {
	cfg       *config.Config
	runs      *store.Store
	models    *modelcache.Cache
	hub       *Hub
	templates map[string]*template.Template
	logger    log.Logger

	sessions *lru.Cache[string, *session]
	plots    *lru.Cache[string, map[string][]byte] // run id -> kind -> png
}

// New creates a server. runs and models must stay open while it serves.
func New(cfg *config.Config, runs *store.Store, models *modelcache.Cache) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	sessions, err := lru.New[string, *session](cfg.Cache.Datasets)
	if err != nil {
		return nil, errors.NewValidationError("cache.datasets", "must be positive", cfg.Cache.Datasets)
	}
	plots, err := lru.New[string, map[string][]byte](cfg.Cache.Datasets)
	if err != nil {
		return nil, errors.NewValidationError("cache.datasets", "must be positive", cfg.Cache.Datasets)
	}
	return &Server{
		cfg:       cfg,
		runs:      runs,
		models:    models,
		hub:       NewHub(),
		templates: tmpl,
		logger:    log.GetLoggerWithName("server"),
		sessions:  sessions,
		plots:     plots,
	}, nil
}

// Hub returns the progress hub. Its Run loop is started by Serve.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed handler with logging and panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/train", http.StatusFound)
	})
	mux.HandleFunc("GET /train", s.handleTrainForm)
	mux.HandleFunc("POST /train", s.handleUpload)
	mux.HandleFunc("GET /train/{id}", s.handleTrainData)
	mux.HandleFunc("POST /train/{id}/setup", s.handleSetup)
	mux.HandleFunc("GET /plots/{run}/{file}", s.handlePlot)
	mux.HandleFunc("GET /predict", s.handlePredictForm)
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("GET /predict/download", s.handleDownload)
	mux.HandleFunc("GET /runs", s.handleRuns)
	mux.HandleFunc("GET /ws/progress", s.hub.ServeWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return s.recoverPanics(s.logRequests(mux))
}

// Serve listens on the configured address until ctx is cancelled, then shuts
// down gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "http server stopped")
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "graceful shutdown failed")
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
