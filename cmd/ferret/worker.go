package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/ferret/pkg/broker"
	"github.com/cuemby/ferret/pkg/log"
	"github.com/cuemby/ferret/pkg/worker"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a document-processing worker",
	Long: `Run a worker: it pops document tasks from its private queue,
normalizes and counts terms, publishes partial indexes on the results
channel, and emits load heartbeats for the dispatcher.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().String("language", "", "Default processing language (overrides config)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if language, _ := cmd.Flags().GetString("language"); language != "" {
		cfg.Language = language
	}

	b := broker.New(broker.Config{
		Addr:            cfg.RedisAddr,
		TaskQueuePrefix: cfg.TaskQueuePrefix,
		ResultsChannel:  cfg.ResultsChannel,
	})
	defer b.Close()

	w := worker.New(worker.Config{Broker: b, Language: cfg.Language})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Logger.Info().Str("signal", sig.String()).Msg("Shutting down")
		cancel()
	}()

	w.Run(ctx)
	log.Info("Worker shutdown complete")
	return nil
}
