/*
Package metrics provides Prometheus metrics collection for Ferret.

Collectors are package-level variables registered at init so any component
can record without wiring a registry through constructors. The coordinator
records dispatch and fusion counters, the index-size, pending-set and
live-worker gauges, and search durations; workers record task counters.

Handler returns the promhttp handler the coordinator mounts at /metrics.
Timer is a small helper for histogram observations:

	timer := metrics.NewTimer()
	// ... do the work ...
	timer.ObserveDuration(metrics.DispatchLatency)
*/
package metrics
