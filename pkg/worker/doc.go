/*
Package worker implements Ferret's document-processing worker.

A worker is single-threaded with respect to tasks: it block-pops from its
private queue (<prefix>:<worker_id>, the broker's configured task-queue
prefix plus its own ID), normalizes the document, counts term
frequencies, and publishes the partial index on the shared results channel.
Tasks on one worker's queue are therefore processed in strict FIFO order.
Errors never stop the loop — malformed tasks are dropped, broker failures
retried after a bounded delay, and delivery is at most once.

One background goroutine emits heartbeats: every two seconds it samples this
process's CPU percent (raw, relative to one core) and RAM percent via
gopsutil and writes them to worker_status:<worker_id> with a TTL of three
intervals. When neither figure moved by at least 0.01 the hash write is
skipped and only the TTL is refreshed. The dispatcher reads these records
to pick the least-loaded worker; a worker whose record expires is presumed
dead and receives no new work.

The worker identity, worker-<hostname>-<pid>, is stable for the process
lifetime and names both the task queue and the status record.

A document that normalizes to zero tokens still publishes an (empty)
partial result so the coordinator can clear it from the pending set.
*/
package worker
