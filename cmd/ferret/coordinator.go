package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/ferret/pkg/api"
	"github.com/cuemby/ferret/pkg/broker"
	"github.com/cuemby/ferret/pkg/coordinator"
	"github.com/cuemby/ferret/pkg/events"
	"github.com/cuemby/ferret/pkg/index"
	"github.com/cuemby/ferret/pkg/log"
	"github.com/cuemby/ferret/pkg/storage"
	"github.com/spf13/cobra"
)

var coordinatorCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Run the indexing coordinator",
	Long: `Run the coordinator: it owns the global inverted index, dispatches
document tasks to the least-loaded worker, fuses the partial indexes workers
publish, and serves the HTTP API (submit, search, status, checkpointing).`,
	RunE: runCoordinator,
}

func init() {
	coordinatorCmd.Flags().String("listen", "", "HTTP listen address (overrides config)")
	rootCmd.AddCommand(coordinatorCmd)
}

func runCoordinator(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.HTTPAddr = listen
	}

	log.Info("Coordinator starting")
	log.Logger.Info().
		Str("redis", cfg.RedisAddr).
		Str("uploads", cfg.UploadsDir).
		Str("checkpoint", cfg.CheckpointPath).
		Str("log_level", cfg.LogLevel).
		Msg("Effective configuration")

	b := broker.New(broker.Config{
		Addr:            cfg.RedisAddr,
		TaskQueuePrefix: cfg.TaskQueuePrefix,
		ResultsChannel:  cfg.ResultsChannel,
	})
	defer b.Close()

	// The catalog is bookkeeping; refusing to start over it would be worse
	// than running without history.
	var catalog *storage.Store
	if catalog, err = storage.Open(cfg.DataDir); err != nil {
		log.Logger.Warn().Err(err).Msg("Document catalog unavailable, continuing without it")
		catalog = nil
	} else {
		defer catalog.Close()
	}

	ev := events.NewBroker()
	ev.Start()
	defer ev.Stop()

	coord := coordinator.New(coordinator.Config{
		Broker:         b,
		Index:          index.New(),
		Catalog:        catalog,
		Events:         ev,
		Language:       cfg.Language,
		CheckpointPath: cfg.CheckpointPath,
	})
	coord.Start()

	server := api.NewServer(api.Config{
		Coordinator: coord,
		Events:      ev,
		UploadsDir:  cfg.UploadsDir,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		coord.Stop()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Logger.Warn().Err(err).Msg("HTTP server shutdown was not clean")
	}
	coord.Stop()

	log.Info("Coordinator shutdown complete")
	return nil
}
