/*
Package config loads Ferret's runtime configuration.

Settings resolve in three layers, later layers winning: built-in defaults, an
optional YAML file passed with --config, and environment variables
(FERRET_REDIS_ADDR, FERRET_TASK_QUEUE_PREFIX, FERRET_RESULTS_CHANNEL,
FERRET_LANGUAGE, FERRET_UPLOADS_DIR, FERRET_CHECKPOINT_PATH, FERRET_DATA_DIR,
FERRET_HTTP_ADDR, LOG_LEVEL). The same Config feeds both the coordinator and
worker subcommands; each reads the fields it needs.
*/
package config
