// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the pipeline.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Inbound report metrics. status: "accepted", "rejected", "duplicate".
	IncReportReceived(status string)

	// Per-provider dispatch metrics. status: "success" or "failed".
	IncDispatch(provider, status string)
	ObserveDispatchDuration(provider string, duration time.Duration)

	// Geolocation lookups by result source.
	IncGeoLookup(source string)

	// Degraded-mode signature fallback on the automation webhook.
	IncDegradedSignature()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
