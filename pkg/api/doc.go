/*
Package api exposes the coordinator over HTTP.

Endpoints:

	POST /documents/index   scan a directory of .txt files, dispatch one
	                        task per file (202; per-file outcomes in body)
	POST /search            single-term search: {"term": "..."} ->
	                        {"docs": [["doc_id", freq], ...]}, freq desc
	GET  /index/status      index size and pending-documents count
	POST /index/save        write a checkpoint
	POST /index/load        reload the checkpoint, clearing pending
	GET  /healthz           liveness probe
	GET  /workers/status    live workers with cpu/ram/ttl/queue length
	GET  /events/recent     recent indexing lifecycle events
	GET  /metrics           Prometheus metrics

Errors are {"detail": "..."} with conventional status codes: 400 for an
empty search term, 404 for a missing uploads directory, 503 when the broker
is unreachable, 500 otherwise. Submit reports per-file dispatch failures in
its 202 body rather than failing the request.
*/
package api
