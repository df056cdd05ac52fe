package main

import (
	"context"
	"flag"

	"github.com/YuminosukeSato/automl/internal/modelcache"
	"github.com/YuminosukeSato/automl/internal/server"
	"github.com/YuminosukeSato/automl/internal/store"
)

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to a YAML config file")
	addr := fs.String("addr", "", "listen address, overrides the config")
	_ = fs.Parse(args)

	cfg, closer, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	defer closer.Close()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	runs, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer runs.Close()

	models, err := modelcache.New(cfg.Cache.Models)
	if err != nil {
		return err
	}
	defer models.Close()

	srv, err := server.New(cfg, runs, models)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}
