package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/madarat/beacon/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
//
// GET /debug/metrics
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	for _, status := range sortedKeys(snap.ReportsReceived) {
		fmt.Fprintf(w, "beacon_reports_received_total{status=%q} %d\n", status, snap.ReportsReceived[status])
	}
	for _, key := range sortedKeys(snap.Dispatches) {
		provider, status := splitCounterKey(key)
		fmt.Fprintf(w, "beacon_dispatches_total{provider=%q,status=%q} %d\n", provider, status, snap.Dispatches[key])
	}
	for _, provider := range sortedKeys(snap.DispatchDurationMs) {
		fmt.Fprintf(w, "beacon_dispatch_duration_ms_sum{provider=%q} %d\n", provider, snap.DispatchDurationMs[provider])
	}
	for _, source := range sortedKeys(snap.GeoLookups) {
		fmt.Fprintf(w, "beacon_geo_lookups_total{source=%q} %d\n", source, snap.GeoLookups[source])
	}
	fmt.Fprintf(w, "beacon_degraded_signatures_total %d\n", snap.DegradedSignatures)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// splitCounterKey splits a "provider/status" counter key.
func splitCounterKey(key string) (provider, status string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
