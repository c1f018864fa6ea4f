/*
Package types defines the shared data structures of Ferret.

These are the records that cross component boundaries: DocumentTask (the unit
of work the coordinator queues for a worker), PartialIndex and PartialResult
(what a worker publishes back), WorkerLoad (the broker's view of a worker used
by the dispatcher and the status API), DocFrequency (a search hit), and
DocumentRecord (the catalog entry kept per document).

Tasks and results travel as UTF-8 JSON over the broker; the struct tags here
are the wire contract. DocFrequency marshals as the two-element array
["doc_id", freq] so that search responses stay compact.
*/
package types
