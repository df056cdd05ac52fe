package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/automl/experiment"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

func runPredict(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to a YAML config file")
	data := fs.String("data", "", "CSV file to predict")
	modelPath := fs.String("model", "", "saved model (default from config)")
	outPath := fs.String("out", "", "predictions CSV (default from config)")
	encoding := fs.String("encoding", "", "CSV charset (default from config)")
	_ = fs.Parse(args)

	if *data == "" {
		fs.Usage()
		return errors.NewValidationError("data", "-data is required", nil)
	}
	cfg, closer, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	defer closer.Close()
	if *modelPath == "" {
		*modelPath = cfg.ModelPath()
	}
	if *outPath == "" {
		*outPath = cfg.PredictionsPath()
	}
	if *encoding == "" {
		*encoding = cfg.CSV.Encoding
	}

	p, err := experiment.LoadModel(*modelPath)
	if err != nil {
		return err
	}
	frame, err := readCSV(*data, *encoding)
	if err != nil {
		return err
	}
	preds, err := experiment.PredictModel(p, frame)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(*outPath))
	}
	f, err := os.Create(*outPath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", *outPath)
	}
	if err := preds.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", *outPath)
	}
	printFrame(out, preds, cfg.Server.PreviewRows)
	fmt.Fprintf(out, "\n%s successfully downloaded!\n", *outPath)
	return nil
}
