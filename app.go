package main

import (
	"fmt"
	"log/slog"

	"tinytactics/internal/config"
	"tinytactics/internal/logging"
	"tinytactics/internal/mode"
	"tinytactics/internal/progress"
	"tinytactics/internal/puzzle"
	"tinytactics/internal/srs"
	"tinytactics/internal/storage"
)

type rootOptions struct {
	configPath string
	debug      bool
}

// app bundles the dependencies every command shares.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	backend  storage.Backend
	progress *progress.Repository
	registry *mode.Registry
	library  *puzzle.Library
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.debug {
		cfg.Log.Debug = true
	}
	log := logging.New(cfg.Log)

	reg, err := mode.NewRegistry()
	if err != nil {
		return nil, err
	}
	if err := reg.Tune(cfg.Modes.Tuning()); err != nil {
		return nil, fmt.Errorf("tune modes: %w", err)
	}

	backend, err := storage.Dial(storage.Options{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		DSN:    cfg.Storage.DSN,
		Debug:  cfg.Log.Debug,
		Logger: log.With("component", "storage"),
	})
	if err != nil {
		return nil, err
	}
	log.Debug("storage ready", "driver", cfg.Storage.Driver)

	return &app{
		cfg:      cfg,
		log:      log,
		backend:  backend,
		progress: progress.New(backend, log.With("component", "progress")),
		registry: reg,
		library:  puzzle.NewLibrary(cfg.Puzzles.Dir),
	}, nil
}

func (a *app) srsConfig() srs.Config {
	return srs.Config{
		InitialEase:     a.cfg.SRS.InitialEase,
		MinEase:         a.cfg.SRS.MinEase,
		MaxIntervalDays: a.cfg.SRS.MaxIntervalDays,
	}
}

func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		a.log.Warn("close storage", "error", err)
	}
}
