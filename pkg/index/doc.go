/*
Package index implements the coordinator-owned global inverted index.

The Index value bundles the three pieces of coordinator state that must stay
mutually consistent: the term map (term -> doc_id -> frequency), the pending
set of dispatched-but-unfused documents, and the single mutex guarding both.
Fusion dominates the critical-section mix, so a plain mutex is used rather
than a read-write lock.

# Fusion

FuseResult merges one document's partial index under the lock with
last-writer-wins semantics per (term, doc) pair: re-indexing a document
overwrites its counts rather than accumulating. Terms that disappeared from
a newer version of a document are not removed for that document; the stale
entries are documented behavior. Fusion is commutative across distinct
documents but not across repeated submissions of the same document, where
the last record to acquire the lock wins.

# Checkpointing

SaveCheckpoint and LoadCheckpoint persist the term map as gzip-compressed
JSON of the form {"index": {"term": {"doc_id": freq}}}. Loading never fails
the caller: a missing file, bad gzip, or bad JSON each leave an empty index
behind a logged warning. Loading clears the pending set; documents in flight
across a reload fuse later with a logged warning and are safe to re-submit.
*/
package index
