package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cheggaaa/pb/v3"

	"github.com/YuminosukeSato/automl/experiment"
	"github.com/YuminosukeSato/automl/internal/store"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

func runTrain(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to a YAML config file")
	data := fs.String("data", "", "training CSV file")
	target := fs.String("target", "", "target column")
	taskName := fs.String("task", "classification", "classification or regression")
	modelPath := fs.String("model", "", "where to save the best model (default from config)")
	plotDir := fs.String("plots", "", "directory to write diagnostic plots to")
	encoding := fs.String("encoding", "", "CSV charset (default from config)")
	quiet := fs.Bool("quiet", false, "hide the progress bar")
	_ = fs.Parse(args)

	if *data == "" || *target == "" {
		fs.Usage()
		return errors.NewValidationError("data/target", "both -data and -target are required", nil)
	}
	task, err := experiment.ParseTask(*taskName)
	if err != nil {
		return err
	}
	cfg, closer, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	defer closer.Close()
	if *modelPath == "" {
		*modelPath = cfg.ModelPath()
	}
	if *encoding == "" {
		*encoding = cfg.CSV.Encoding
	}

	frame, err := readCSV(*data, *encoding)
	if err != nil {
		return err
	}
	exp, err := experiment.Setup(frame, *target, task, cfg.SetupOptions()...)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Setup")
	printFrame(out, exp.Pull(), exp.Pull().Rows())

	bar := newProgressBar(*quiet)
	best, err := exp.CompareModels(ctx,
		experiment.WithInclude(cfg.AutoML.Include...),
		experiment.WithProgress(bar.update),
	)
	bar.finish()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nModel Comparison")
	printFrame(out, exp.Pull(), exp.Pull().Rows())

	saved, err := experiment.SaveModel(best, *modelPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nBest Model saved as %s successfully!\n", saved)

	if *plotDir != "" {
		if err := writePlots(exp, best, *plotDir, out); err != nil {
			return err
		}
	}

	runs, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer runs.Close()
	run, err := store.NewRun(best, filepath.Base(*data), frame.Rows(), exp.Leaderboard(), saved)
	if err != nil {
		return err
	}
	return runs.Record(ctx, run)
}

func writePlots(exp *experiment.Experiment, best *experiment.Pipeline, dir string, out io.Writer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}
	for _, kind := range experiment.PlotKinds(exp.Task()) {
		img, err := exp.PlotModel(best, kind)
		if err != nil && kind == experiment.PlotAUC {
			fmt.Fprintln(out, "AUC plot not available.")
			continue
		}
		if err != nil {
			return err
		}
		path := filepath.Join(dir, string(kind)+".png")
		if err := os.WriteFile(path, img, 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
		fmt.Fprintln(out, "wrote", path)
	}
	return nil
}

// progressBar adapts CompareModels progress events to a terminal bar. The
// total is only known once the first event arrives.
type progressBar struct {
	mu    sync.Mutex
	quiet bool
	bar   *pb.ProgressBar
}

func newProgressBar(quiet bool) *progressBar { return &progressBar{quiet: quiet} }

func (p *progressBar) update(ev experiment.Progress) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		p.bar = pb.New(ev.Total)
		p.bar.SetWriter(os.Stderr)
		p.bar.Start()
	}
	p.bar.Set("prefix", ev.Model+" ")
	p.bar.SetCurrent(int64(ev.Done))
}

func (p *progressBar) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Finish()
	}
}
