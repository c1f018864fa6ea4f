/*
Package broker wraps the Redis structures Ferret coordinates through.

Redis is the only cross-process dependency. Three structures carry all
coordination traffic:

	┌─────────────┐  RPUSH tasks:<worker>   ┌──────────┐
	│ coordinator │ ───────────────────────▶│  worker  │ BLPOP
	│             │                          │          │
	│  SUBSCRIBE  │◀─────────────────────── │ PUBLISH  │
	│   results   │   idx_partial_results   └────┬─────┘
	└─────────────┘                               │ HSET + EXPIRE
	       │ KEYS / HGETALL / TTL / LLEN          ▼
	       └────────────────────────▶ worker_status:<worker>

Per-worker FIFO lists (<prefix>:<worker_id>, where the prefix is
Config.TaskQueuePrefix, doc_processing_tasks by default; drawn as
tasks:<worker> above) make each worker's backlog an
observable load signal; the dispatcher reads queue lengths alongside the
TTL'd worker_status hashes (cpu, ram) that workers refresh as heartbeats.
Partial results fan out on a pub/sub channel: fire-and-forget by design,
messages lost during a disconnect are not redelivered.

One Client serves all command traffic over a shared connection pool;
SubscribeResults holds its own connection because subscribe semantics
preclude sharing, and re-subscribes after reconnects. Both sides back off
at least five seconds between reconnect attempts.

Tasks and results travel as UTF-8 JSON of types.DocumentTask and
types.PartialResult.
*/
package broker
