package server

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/experiment"
	"github.com/YuminosukeSato/automl/internal/store"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// Encodings offered by the upload forms.
var encodings = []string{"utf-8", "latin1", "windows-1252", "gbk", "shift_jis"}

var tasks = []string{experiment.Classification.Title(), experiment.Regression.Title()}

var plotTitles = map[experiment.PlotKind]string{
	experiment.PlotAUC:             "AUC",
	experiment.PlotConfusionMatrix: "Confusion Matrix",
	experiment.PlotClassReport:     "Class Report",
	experiment.PlotResiduals:       "Residuals",
	experiment.PlotError:           "Prediction Error",
	experiment.PlotCooks:           "Cook's Distance",
}

type uploadForm struct {
	Encodings []string
	Encoding  string
	Tasks     []string
}

func (s *Server) uploadForm() uploadForm {
	return uploadForm{Encodings: encodings, Encoding: s.cfg.CSV.Encoding, Tasks: tasks}
}

func (s *Server) handleTrainForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "train_upload", page{Title: "Model Training", Nav: "train", Data: s.uploadForm()})
}

// readUpload parses the multipart "file" field as CSV.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*dataset.Frame, error) {
	limit := s.cfg.Server.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errors.NewValidationError("file", "request is not a valid upload form", err.Error())
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errors.NewValidationError("file", "no CSV file uploaded", err.Error())
	}
	defer file.Close()
	return readFrame(file, header, r.FormValue("encoding"), s.cfg.CSV.Encoding)
}

func readFrame(file multipart.File, header *multipart.FileHeader, enc, fallback string) (*dataset.Frame, error) {
	if enc == "" {
		enc = fallback
	}
	return dataset.ReadCSV(file, dataset.WithName(header.Filename), dataset.WithEncoding(enc))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	f, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, "train", err)
		return
	}
	sess := &session{ID: uuid.NewString(), Frame: f, Uploaded: time.Now()}
	s.sessions.Add(sess.ID, sess)
	s.logger.Info("Dataset uploaded",
		log.DatasetKey, f.Name,
		log.SamplesKey, f.Rows(),
		log.FeaturesKey, f.Cols(),
	)
	http.Redirect(w, r, "/train/"+sess.ID, http.StatusSeeOther)
}

func (s *Server) session(r *http.Request) (*session, error) {
	id := r.PathValue("id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, errors.NewValidationError("dataset", "upload not found or expired, please upload it again", id)
	}
	return sess, nil
}

type trainData struct {
	ID       string
	RunID    string
	Name     string
	Preview  table
	Describe table
	Tasks    []string
	Columns  []string
}

func (s *Server) handleTrainData(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, "train", err)
		return
	}
	s.render(w, http.StatusOK, "train_data", page{Title: "Model Training", Nav: "train", Data: trainData{
		ID:       sess.ID,
		RunID:    uuid.NewString(),
		Name:     sess.Frame.Name,
		Preview:  tableOf(sess.Frame, s.cfg.Server.PreviewRows),
		Describe: tableOf(dataset.Describe(sess.Frame), 8),
		Tasks:    tasks,
		Columns:  sess.Frame.Names(),
	}})
}

type plotView struct {
	Title   string
	URL     string
	Message string
}

type trainResult struct {
	Setup       table
	XTrain      table
	Leaderboard table
	Saved       string
	Plots       []plotView
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, "train", err)
		return
	}
	task, err := experiment.ParseTask(r.FormValue("task"))
	if err != nil {
		s.fail(w, r, "train", err)
		return
	}
	runID := r.FormValue("run_id")
	if _, err := uuid.Parse(runID); err != nil {
		runID = uuid.NewString()
	}

	exp, err := experiment.Setup(sess.Frame, r.FormValue("target"), task, s.cfg.SetupOptions()...)
	if err != nil {
		s.fail(w, r, "train", err)
		return
	}
	result := trainResult{Setup: tableOf(exp.Pull(), exp.Pull().Rows())}
	xTrain, err := exp.GetConfig("X_train")
	if err != nil {
		s.fail(w, r, "train", err)
		return
	}
	result.XTrain = tableOf(xTrain, s.cfg.Server.PreviewRows)

	best, err := exp.CompareModels(r.Context(),
		experiment.WithRunID(runID),
		experiment.WithInclude(s.cfg.AutoML.Include...),
		experiment.WithProgress(s.hub.Publish),
	)
	if err != nil {
		s.fail(w, r, "train", err)
		return
	}
	result.Leaderboard = tableOf(exp.Pull(), exp.Pull().Rows())

	path, err := experiment.SaveModel(best, s.cfg.ModelPath())
	if err != nil {
		s.fail(w, r, "train", err)
		return
	}
	s.models.Invalidate(path)
	result.Saved = fmt.Sprintf("Best Model saved as %s successfully!", filepath.Base(path))

	if result.Plots, err = s.renderPlots(exp, best); err != nil {
		s.fail(w, r, "train", err)
		return
	}

	run, err := store.NewRun(best, sess.Frame.Name, sess.Frame.Rows(), exp.Leaderboard(), path)
	if err == nil {
		err = s.runs.Record(r.Context(), run)
	}
	if err != nil {
		// the model is saved already; a missing history row is not worth failing the page
		s.logger.Error("Failed to record run", err, log.RunIDKey, best.RunID)
	}

	s.render(w, http.StatusOK, "train_result", page{Title: "Model Training", Nav: "train", Data: result})
}

// renderPlots renders every plot of the task and caches the images under the
// run id. A failing AUC plot is reported on the page, any other failure is an error.
func (s *Server) renderPlots(exp *experiment.Experiment, best *experiment.Pipeline) ([]plotView, error) {
	images := make(map[string][]byte)
	var views []plotView
	for _, kind := range experiment.PlotKinds(exp.Task()) {
		view := plotView{Title: plotTitles[kind]}
		img, err := exp.PlotModel(best, kind)
		switch {
		case err != nil && kind == experiment.PlotAUC:
			view.Message = "AUC plot not available."
		case err != nil:
			return nil, errors.Wrapf(err, "failed to render %s plot", kind)
		default:
			images[string(kind)] = img
			view.URL = fmt.Sprintf("/plots/%s/%s.png", best.RunID, kind)
		}
		views = append(views, view)
	}
	s.plots.Add(best.RunID, images)
	return views, nil
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	images, ok := s.plots.Get(r.PathValue("run"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	img, ok := images[strings.TrimSuffix(r.PathValue("file"), ".png")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(img)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.List(r.Context(), 100)
	if err != nil {
		s.fail(w, r, "runs", err)
		return
	}
	s.render(w, http.StatusOK, "runs", page{Title: "Training Runs", Nav: "runs", Data: struct{ Runs []store.Run }{runs}})
}
