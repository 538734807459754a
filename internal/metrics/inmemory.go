package metrics

import (
	"sync"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ReportsReceived    map[string]uint64 `json:"reports_received"`
	Dispatches         map[string]uint64 `json:"dispatches"` // keyed "provider/status"
	DispatchDurationMs map[string]int64  `json:"dispatch_duration_ms_total"`
	GeoLookups         map[string]uint64 `json:"geo_lookups"`
	DegradedSignatures uint64            `json:"degraded_signatures"`
}

// InMemoryRecorder stores metrics in memory. Used in tests and behind
// the debug metrics endpoint.
type InMemoryRecorder struct {
	mu                 sync.Mutex
	reportsReceived    map[string]uint64
	dispatches         map[string]uint64
	dispatchDurationNs map[string]int64
	geoLookups         map[string]uint64
	degradedSignatures uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		reportsReceived:    make(map[string]uint64),
		dispatches:         make(map[string]uint64),
		dispatchDurationNs: make(map[string]int64),
		geoLookups:         make(map[string]uint64),
	}
}

func (m *InMemoryRecorder) IncReportReceived(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reportsReceived[status]++
}

func (m *InMemoryRecorder) IncDispatch(provider, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches[provider+"/"+status]++
}

func (m *InMemoryRecorder) ObserveDispatchDuration(provider string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatchDurationNs[provider] += d.Nanoseconds()
}

func (m *InMemoryRecorder) IncGeoLookup(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geoLookups[source]++
}

func (m *InMemoryRecorder) IncDegradedSignature() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degradedSignatures++
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		ReportsReceived:    make(map[string]uint64, len(m.reportsReceived)),
		Dispatches:         make(map[string]uint64, len(m.dispatches)),
		DispatchDurationMs: make(map[string]int64, len(m.dispatchDurationNs)),
		GeoLookups:         make(map[string]uint64, len(m.geoLookups)),
		DegradedSignatures: m.degradedSignatures,
	}
	for k, v := range m.reportsReceived {
		snap.ReportsReceived[k] = v
	}
	for k, v := range m.dispatches {
		snap.Dispatches[k] = v
	}
	for k, v := range m.dispatchDurationNs {
		snap.DispatchDurationMs[k] = v / int64(time.Millisecond)
	}
	for k, v := range m.geoLookups {
		snap.GeoLookups[k] = v
	}
	return snap
}
