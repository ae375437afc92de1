/*
Package metrics defines the Prometheus instrumentation for switchboard.

Collector owns every metric the service exposes: HTTP request counters and
latency histograms, eligibility decision counters by disposition, ownership
transition counters split into applied and no-op outcomes, deactivation and
transfer counters, notification publish results, and cache and database
gauges. Tests pass their own prometheus.Registerer to avoid duplicate
registration on the default registry.
*/
package metrics
