package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied before any file or environment override.
const (
	DefaultRedisAddr       = "localhost:6379"
	DefaultTaskQueuePrefix = "doc_processing_tasks"
	DefaultResultsChannel  = "idx_partial_results"
	DefaultLanguage        = "english"
	DefaultUploadsDir      = "./uploads"
	DefaultCheckpointPath  = "./data/index.json.gz"
	DefaultDataDir         = "./data"
	DefaultHTTPAddr        = ":8000"
)

// Config holds the settings shared by the coordinator and worker processes.
type Config struct {
	RedisAddr       string `yaml:"redis_addr"`
	TaskQueuePrefix string `yaml:"task_queue_prefix"`
	ResultsChannel  string `yaml:"results_channel"`
	Language        string `yaml:"language"`
	UploadsDir      string `yaml:"uploads_dir"`
	CheckpointPath  string `yaml:"checkpoint_path"`
	DataDir         string `yaml:"data_dir"`
	HTTPAddr        string `yaml:"http_addr"`
	LogLevel        string `yaml:"log_level"`
}

// Default returns a config populated with built-in defaults.
func Default() *Config {
	return &Config{
		RedisAddr:       DefaultRedisAddr,
		TaskQueuePrefix: DefaultTaskQueuePrefix,
		ResultsChannel:  DefaultResultsChannel,
		Language:        DefaultLanguage,
		UploadsDir:      DefaultUploadsDir,
		CheckpointPath:  DefaultCheckpointPath,
		DataDir:         DefaultDataDir,
		HTTPAddr:        DefaultHTTPAddr,
		LogLevel:        "info",
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.RedisAddr, "FERRET_REDIS_ADDR")
	setFromEnv(&c.TaskQueuePrefix, "FERRET_TASK_QUEUE_PREFIX")
	setFromEnv(&c.ResultsChannel, "FERRET_RESULTS_CHANNEL")
	setFromEnv(&c.Language, "FERRET_LANGUAGE")
	setFromEnv(&c.UploadsDir, "FERRET_UPLOADS_DIR")
	setFromEnv(&c.CheckpointPath, "FERRET_CHECKPOINT_PATH")
	setFromEnv(&c.DataDir, "FERRET_DATA_DIR")
	setFromEnv(&c.HTTPAddr, "FERRET_HTTP_ADDR")
	setFromEnv(&c.LogLevel, "LOG_LEVEL")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
