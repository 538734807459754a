package metrics

import "time"

// NoopRecorder discards all metrics.
type NoopRecorder struct{}

// NewNoop returns a Recorder that does nothing.
func NewNoop() *NoopRecorder {
	return &NoopRecorder{}
}

func (*NoopRecorder) IncReportReceived(string) {}

func (*NoopRecorder) IncDispatch(string, string) {}

func (*NoopRecorder) ObserveDispatchDuration(string, time.Duration) {}

func (*NoopRecorder) IncGeoLookup(string) {}

func (*NoopRecorder) IncDegradedSignature() {}
