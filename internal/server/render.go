package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{
	"train_upload", "train_data", "train_result",
	"predict", "predict_result",
	"runs", "error",
}

func parseTemplates() (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse template %s", name)
		}
		out[name] = t
	}
	return out, nil
}

type page struct {
	Title string
	Nav   string
	Data  any
}

// table is a frame prepared for the "table" template.
type table struct {
	Columns []string
	Rows    [][]string
}

func tableOf(f *dataset.Frame, n int) table {
	records := f.Head(n).Records()
	return table{Columns: records[0], Rows: records[1:]}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, p page) {
	var buf bytes.Buffer
	if err := s.templates[name].ExecuteTemplate(&buf, "layout", p); err != nil {
		s.logger.Error("Template rendering failed", err, "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// fail renders the error page. Problems with the user's input are 400, an
// oversized upload is 413, everything else is 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, nav string, err error) {
	status := statusOf(err)
	fields := []any{err, log.RouteKey, r.URL.Path, log.StatusKey, status}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", fields...)
	} else {
		s.logger.Warn("Request rejected", fields...)
	}
	s.render(w, status, "error", page{
		Title: http.StatusText(status),
		Nav:   nav,
		Data:  struct{ Message string }{Message: err.Error()},
	})
}

func statusOf(err error) int {
	var (
		validation *errors.ValidationError
		ds         *errors.DatasetError
		dim        *errors.DimensionError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &validation), errors.As(err, &ds), errors.As(err, &dim),
		errors.Is(err, errors.ErrEmptyData), errors.Is(err, errNoModel):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
