package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hairizuan-noorazman/testpilot/cmd/backend/handlers"
	"github.com/hairizuan-noorazman/testpilot/runner"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := newLogger(cfg)
	log.Info(ctx, "starting server", map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    BuildDate,
	})

	comps, err := buildComponents(ctx, cfg, log)
	if err != nil {
		return err
	}

	store, err := buildResultStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()
	if store.sql != nil && cfg.Results.PurgeInterval > 0 {
		store.sql.StartPurger(ctx, cfg.Results.PurgeInterval, cfg.Results.TTL)
	}
	log.Info(ctx, "result store initialized", map[string]interface{}{
		"backend": cfg.Results.Backend,
		"ttl":     cfg.Results.TTL.String(),
	})

	pool := runner.NewPool(cfg.Workers.Count, cfg.Workers.QueueSize, comps.engine, store, log,
		runner.WithRecorder(comps.metrics))
	pool.Start(ctx)

	router := handlers.NewRouter(handlers.Routes{
		Version:   Version,
		Tests:     handlers.NewTestRunHandler(comps.engine, pool, store, log),
		Health:    handlers.NewHealthHandler(comps.llmConfigured, comps.browserConfigured),
		Artifacts: handlers.NewArtifactHandler(comps.blobs, log),
		Metrics:   comps.metrics.Handler(),
	}, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info(ctx, "server listening", map[string]interface{}{
			"address": addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server", nil)

	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer done()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "abandoning queued runs", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info(ctx, "server stopped", nil)
	return nil
}
