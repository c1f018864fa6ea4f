/*
Package log provides structured logging for Ferret using zerolog.

The package wraps zerolog behind a global logger initialized once via Init,
with JSON output for production and a console writer for development. Child
loggers carry contextual fields so every record from a component is
attributable without repeating fields at each call site.

# Usage

Initializing the logger:

	log.Init(log.Config{
		Level:      log.ParseLevel(os.Getenv("LOG_LEVEL")),
		JSONOutput: true,
		Output:     os.Stdout,
	})

Component loggers:

	dispatchLog := log.WithComponent("dispatcher")
	dispatchLog.Info().
		Str("worker_id", workerID).
		Str("doc_id", docID).
		Int64("queue_length", qlen).
		Msg("Task dispatched")

	workerLog := log.WithWorkerID(id)
	workerLog.Error().Err(err).Msg("Failed to publish partial index")

Simple logging:

	log.Info("Coordinator starting")
	log.Fatal("Cannot open checkpoint directory") // exits the process

Log output (JSON):

	{"level":"info","component":"dispatcher","worker_id":"worker-a1-42","doc_id":"d1.txt","queue_length":1,"time":"2026-07-14T10:30:00Z","message":"Task dispatched"}
*/
package log
