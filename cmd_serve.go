package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tinytactics/internal/game"
	"tinytactics/internal/handlers"
	"tinytactics/internal/storage"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the trainer over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	hub, err := game.NewHub(game.Options{
		IdleTTL:       a.cfg.Hub.IdleTTL,
		SweepInterval: a.cfg.Hub.SweepInterval,
		Logger:        a.log,
	})
	if err != nil {
		return err
	}
	if db, ok := a.backend.(*storage.Badger); ok && a.cfg.Storage.GCInterval > 0 {
		err := hub.Schedule(a.cfg.Storage.GCInterval, func() {
			if err := db.CollectGarbage(); err != nil {
				a.log.Warn("badger value log gc", "error", err)
			}
		})
		if err != nil {
			return err
		}
	}
	hub.Start()

	h := &handlers.Handler{
		Hub:          hub,
		Library:      a.library,
		Registry:     a.registry,
		Progress:     a.progress,
		Recorder:     a.backend,
		SRS:          a.srsConfig(),
		Seed:         a.cfg.Puzzles.Seed,
		TickInterval: a.cfg.Hub.TickInterval,
		Logger:       a.log,
	}
	srv := &http.Server{
		Addr:        a.cfg.Server.Addr,
		Handler:     handlers.LogRequests(a.log, h.Routes()),
		ReadTimeout: a.cfg.Server.ReadTimeout,
		IdleTimeout: a.cfg.Server.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("tinytactics listening", "addr", srv.Addr, "puzzles", a.library.Dir(), "commit", commit)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		// Stopping the hub first ends the open event streams.
		hub.Stop(shutdownCtx)
		err := srv.Shutdown(shutdownCtx)
		a.log.Info("server stopped")
		return err
	})
	return g.Wait()
}
