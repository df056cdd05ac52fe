// Command automl trains, compares and serves tabular models.
//
// Usage:
//
//	automl serve   [-config automl.yaml]
//	automl train   -data train.csv -target species -task classification [-model best_model] [-plots dir]
//	automl predict -data new.csv [-model best_model] [-out predictions.csv]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/internal/config"
	"github.com/YuminosukeSato/automl/pkg/log"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "train":
		err = runTrain(ctx, os.Args[2:], os.Stdout)
	case "predict":
		err = runPredict(os.Args[2:], os.Stdout)
	case "-h", "--help", "help":
		usage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		log.GetLoggerWithName("automl").Error("Command failed", err, "command", os.Args[1])
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: automl <command> [flags]

commands:
  serve    run the training and prediction web form
  train    train and compare models on a CSV file
  predict  predict a CSV file with a saved model

run "automl <command> -h" for the flags of a command
`)
}

// loadConfig reads the config file and installs the logger it describes.
func loadConfig(path string) (*config.Config, io.Closer, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log.Setup(cfg.LogOptions()), nil
}

func readCSV(path, encoding string) (*dataset.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.ReadCSV(f, dataset.WithName(path), dataset.WithEncoding(encoding))
}

func printFrame(w io.Writer, f *dataset.Frame, rows int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, rec := range f.Head(rows).Records() {
		for _, cell := range rec {
			fmt.Fprint(tw, cell, "\t")
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}
