package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "doc_processing_tasks", cfg.TaskQueuePrefix)
	assert.Equal(t, "idx_partial_results", cfg.ResultsChannel)
	assert.Equal(t, "english", cfg.Language)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ferret.yaml")
	data := []byte("redis_addr: redis.internal:6380\nlanguage: spanish\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, "spanish", cfg.Language)
	// Untouched fields keep their defaults
	assert.Equal(t, "idx_partial_results", cfg.ResultsChannel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ferret.yaml")
	require.NoError(t, os.WriteFile(path, []byte("language: spanish\n"), 0644))

	t.Setenv("FERRET_LANGUAGE", "english")
	t.Setenv("FERRET_TASK_QUEUE_PREFIX", "custom_tasks")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "english", cfg.Language)
	assert.Equal(t, "custom_tasks", cfg.TaskQueuePrefix)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/ferret.yaml")
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ferret.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis_addr: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
