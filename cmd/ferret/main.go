package main

import (
	"fmt"
	"os"

	"github.com/cuemby/ferret/pkg/config"
	"github.com/cuemby/ferret/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ferret",
	Short: "Ferret - Distributed full-text indexing and search",
	Long: `Ferret is a small distributed indexing service: stateless workers
tokenize and stem documents into term-frequency maps, a coordinator fuses
them into an in-memory inverted index and serves keyword queries.

Coordination runs over Redis: per-worker task queues, a pub/sub results
channel, and TTL'd worker heartbeats.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Ferret version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
}

// loadConfig resolves the effective configuration and initializes logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	logJSON, _ := cmd.Flags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.ParseLevel(cfg.LogLevel),
		JSONOutput: logJSON,
		Output:     os.Stdout,
	})
	return cfg, nil
}
