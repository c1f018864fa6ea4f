/*
Package coordinator implements Ferret's coordinator core: the owner of the
global inverted index, the load-aware dispatcher, and the results listener.

# Architecture

	            ┌──────────────────────────────────────────┐
	 submit ──▶ │ Dispatch                                  │
	            │  1. enumerate worker_status:* keys        │
	            │  2. read (ttl, cpu, ram, queue length)    │
	            │  3. sort (queue asc, cpu+ram asc, id asc) │
	            │  4. pending += doc, RPUSH tasks:<head>    │
	            └──────────────────────────────────────────┘
	                                 │
	                         worker processes
	                                 │
	            ┌────────────────────▼─────────────────────┐
	            │ results listener (one subscriber)        │
	            │  validate -> fuse -> pending -= doc       │
	            └──────────────────────────────────────────┘

The dispatcher orders candidates by queue length first because it is the
most direct backlog signal; cpu+ram breaks ties for workers whose current
task is heavy but whose queue happens to be empty. Worker-ID ordering makes
the final tie-break deterministic. Workers with an expired status record
are skipped; a record with no expiry (TTL -1) is an operator override and
stays eligible. Missing load figures are imputed at 100 each and an
unreadable queue length as infinite, so partial records never win selection
by accident.

The listener validates each record against the partial-index invariant
(every inner map holds exactly one entry keyed by the record's own doc_id)
and drops violating records whole, leaving their document pending. Valid
records fuse with last-writer-wins semantics; a result for a non-pending
document logs a warning but fuses anyway, which is legitimate after a
restart or a duplicate publish.

There is no task redelivery: a result lost while the listener is
disconnected leaves its document pending until an operator re-submits,
which fusion's overwrite semantics make safe.

Start loads the checkpoint and starts the listener; Stop joins the listener
with a bounded timeout and writes a final checkpoint. Dispatch may be
called concurrently from request handlers; all index and pending-set
mutations go through the single mutex owned by pkg/index.
*/
package coordinator
