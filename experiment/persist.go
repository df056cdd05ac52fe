package experiment

import (
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// ModelExt is appended to model paths that have no extension.
const ModelExt = ".gob"

// ModelPath returns path with ".gob" appended when it has no extension.
func ModelPath(path string) string {
	if filepath.Ext(path) == "" {
		return path + ModelExt
	}
	return path
}

// SaveModel writes p to path with encoding/gob, appending ".gob" when path has
// no extension, and returns the path written.
func SaveModel(p *Pipeline, path string) (string, error) {
	if p == nil || p.Estimator == nil {
		return "", errors.NewValueError("SaveModel", "pipeline has no fitted estimator")
	}
	path = ModelPath(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(err, "failed to create %s", dir)
		}
	}
	if err := model.SaveModel(p, path); err != nil {
		return "", err
	}
	log.GetLoggerWithName("experiment").Info("Model saved",
		log.OperationKey, log.OperationSave,
		log.PathKey, path,
		log.ModelIDKey, p.ModelID,
		log.RunIDKey, p.RunID,
	)
	return path, nil
}

// LoadModel reads a pipeline written by SaveModel. As with SaveModel, ".gob" is
// appended when path has no extension.
func LoadModel(path string) (*Pipeline, error) {
	path = ModelPath(path)
	var p Pipeline
	if err := model.LoadModel(&p, path); err != nil {
		return nil, err
	}
	if p.Estimator == nil || p.Encoder == nil || p.Imputer == nil {
		return nil, errors.NewModelError("LoadModel", "incomplete pipeline", errors.Newf("%s has no estimator or preprocessing", path))
	}
	if p.Task == Classification && p.Labels == nil {
		return nil, errors.NewModelError("LoadModel", "incomplete pipeline", errors.Newf("%s has no label encoder", path))
	}
	log.GetLoggerWithName("experiment").Debug("Model loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, path,
		log.ModelIDKey, p.ModelID,
	)
	return &p, nil
}
