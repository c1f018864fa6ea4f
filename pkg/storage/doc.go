/*
Package storage provides the BoltDB-backed document catalog.

The catalog records, per document, who it was dispatched to and when it was
last fused, surviving coordinator restarts. It is bookkeeping rather than
the index of record: search is served entirely from the in-memory inverted
index, and losing the catalog loses history only. The coordinator therefore
treats catalog write failures as log-and-continue.

Records are JSON values in a single "documents" bucket, keyed by doc_id,
with PutDocument acting as an upsert.
*/
package storage
