package server

import (
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/automl/experiment"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

var errNoModel = errors.New("no trained model found, train a model first")

func (s *Server) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "predict", page{Title: "Prediction", Nav: "predict", Data: s.uploadForm()})
}

type predictResult struct {
	Name        string
	Predictions table
	Message     string
	File        string
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	f, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, "predict", err)
		return
	}
	task, err := experiment.ParseTask(r.FormValue("task"))
	if err != nil {
		s.fail(w, r, "predict", err)
		return
	}

	p, err := s.models.Get(s.cfg.ModelPath())
	if errors.Is(err, fs.ErrNotExist) {
		err = errNoModel
	}
	if err != nil {
		s.fail(w, r, "predict", err)
		return
	}
	if p.Task != task {
		s.fail(w, r, "predict", errors.NewValidationError("task",
			fmt.Sprintf("the saved model was trained for %s", p.Task.Title()), task.Title()))
		return
	}

	out, err := experiment.PredictModel(p, f)
	if err != nil {
		s.fail(w, r, "predict", err)
		return
	}

	path := s.cfg.PredictionsPath()
	if err := writeCSVFile(path, out.WriteCSV); err != nil {
		s.fail(w, r, "predict", err)
		return
	}
	s.logger.Info("Predictions written", log.PathKey, path, log.PredsKey, out.Rows(), log.ModelIDKey, p.ModelID)

	file := filepath.Base(path)
	s.render(w, http.StatusOK, "predict_result", page{Title: "Prediction", Nav: "predict", Data: predictResult{
		Name:        f.Name,
		Predictions: tableOf(out, s.cfg.Server.PreviewRows),
		Message:     file + " successfully downloaded!",
		File:        file,
	}})
}

func writeCSVFile(path string, write func(w io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "failed to close %s", path)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	path := s.cfg.PredictionsPath()
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}
