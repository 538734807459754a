package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/madarat/beacon/internal/adapter"
	"github.com/madarat/beacon/internal/geo"
	"github.com/madarat/beacon/internal/metrics"
	"github.com/madarat/beacon/internal/model"
)

type fakeAdapter struct {
	name  string
	delay time.Duration
	res   model.DispatchResult
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Send(ctx context.Context, _ adapter.Input) model.DispatchResult {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return model.Failure(f.name, f.delay, ctx.Err().Error())
		}
	}
	res := f.res
	res.Provider = f.name
	return res
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResolver(t *testing.T) *geo.Resolver {
	t.Helper()
	return geo.NewResolver(discardLogger(), metrics.NewNoop())
}

func leadEvent() model.ConversionEvent {
	return model.ConversionEvent{
		Name:       model.EventLead,
		OccurredAt: 1700000000,
		User: model.RawUserData{
			Phone: "+966 55 123 4567",
			Email: "Visitor@Example.com",
		},
		Custom: model.CustomData{Destination: "Georgia"},
	}
}

func TestDispatchValidation(t *testing.T) {
	d := New(nil, testResolver(t), nil, discardLogger(), nil)

	tests := []struct {
		name  string
		event model.ConversionEvent
		field string
	}{
		{
			name:  "missing event name",
			event: model.ConversionEvent{User: model.RawUserData{Email: "a@b.com"}},
			field: "event_name",
		},
		{
			name: "lead without destination",
			event: model.ConversionEvent{
				Name: model.EventLead,
				User: model.RawUserData{Phone: "0551234567"},
			},
			field: "destination",
		},
		{
			name: "lead without phone",
			event: model.ConversionEvent{
				Name:   model.EventLead,
				User:   model.RawUserData{Email: "a@b.com"},
				Custom: model.CustomData{Destination: "Baku"},
			},
			field: "phone",
		},
		{
			name:  "no identity at all",
			event: model.ConversionEvent{Name: model.EventPageView},
			field: "user_data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Dispatch(context.Background(), tt.event)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestDispatchFanOut(t *testing.T) {
	adapters := []adapter.Adapter{
		&fakeAdapter{name: "meta", res: model.DispatchResult{Success: true, HTTPStatus: 200}},
		&fakeAdapter{name: "snapchat", res: model.DispatchResult{Success: false, HTTPStatus: 500, Error: "upstream error"}},
		&fakeAdapter{name: "tiktok", res: model.DispatchResult{Success: true, HTTPStatus: 200}},
	}
	rec := metrics.NewInMemory()
	d := New(adapters, testResolver(t), nil, discardLogger(), rec)

	outcome, err := d.Dispatch(context.Background(), leadEvent())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if len(outcome.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(outcome.Results))
	}
	for i, want := range []string{"meta", "snapchat", "tiktok"} {
		if outcome.Results[i].Provider != want {
			t.Errorf("results[%d].Provider = %q, want %q", i, outcome.Results[i].Provider, want)
		}
	}
	if !outcome.Results[0].Success || outcome.Results[1].Success || !outcome.Results[2].Success {
		t.Errorf("unexpected success flags: %+v", outcome.Results)
	}
	if outcome.ReportID == "" || outcome.EventID == "" {
		t.Errorf("missing ids in outcome: %+v", outcome)
	}
	if outcome.RandomEventID {
		t.Error("event with a phone number should get a derived id, not a random one")
	}

	snap := rec.Snapshot()
	if snap.ReportsReceived["accepted"] != 1 {
		t.Errorf("accepted counter = %d, want 1", snap.ReportsReceived["accepted"])
	}
	if snap.Dispatches["snapchat/failed"] != 1 {
		t.Errorf("snapchat failed counter = %d, want 1", snap.Dispatches["snapchat/failed"])
	}
}

func TestDispatchTimeoutFillsUnsettledSlots(t *testing.T) {
	adapters := []adapter.Adapter{
		&fakeAdapter{name: "fast", res: model.DispatchResult{Success: true, HTTPStatus: 200}},
		&fakeAdapter{name: "slow", delay: 2 * time.Second, res: model.DispatchResult{Success: true}},
	}
	d := New(adapters, testResolver(t), nil, discardLogger(), nil)
	d.SetTimeout(50 * time.Millisecond)

	outcome, err := d.Dispatch(context.Background(), leadEvent())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if len(outcome.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(outcome.Results))
	}
	if !outcome.Results[0].Success {
		t.Errorf("fast adapter should succeed: %+v", outcome.Results[0])
	}
	if outcome.Results[1].Success {
		t.Errorf("slow adapter should time out: %+v", outcome.Results[1])
	}
	if outcome.Results[1].Provider != "slow" {
		t.Errorf("timed-out slot keeps its provider name, got %q", outcome.Results[1].Provider)
	}
}

// seenGuard reports every event as already dispatched.
type seenGuard struct{}

func (seenGuard) FirstSeen(context.Context, string) bool { return false }

func TestDispatchDuplicateSkipsEnrichmentAndFanOut(t *testing.T) {
	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("suppressed duplicate must not trigger a geolocation lookup")
	}))
	defer geoSrv.Close()

	rec := metrics.NewInMemory()
	resolver := geo.NewResolver(discardLogger(), rec, geo.WithBaseURLs(geoSrv.URL, geoSrv.URL))

	adapters := []adapter.Adapter{
		&fakeAdapter{name: "meta", res: model.DispatchResult{Success: true, HTTPStatus: 200}},
	}
	d := New(adapters, resolver, seenGuard{}, discardLogger(), rec)

	event := leadEvent()
	event.User.ClientIP = "203.0.113.9" // routable, would be looked up on dispatch

	outcome, err := d.Dispatch(context.Background(), event)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !outcome.Duplicate {
		t.Fatal("already-seen event id must be reported as a duplicate")
	}
	if len(outcome.Results) != 0 {
		t.Errorf("suppressed duplicate must not dispatch, got %+v", outcome.Results)
	}

	snap := rec.Snapshot()
	if snap.ReportsReceived["duplicate"] != 1 {
		t.Errorf("duplicate counter = %d, want 1", snap.ReportsReceived["duplicate"])
	}
	if len(snap.GeoLookups) != 0 {
		t.Errorf("geo lookups = %v, want none for a suppressed duplicate", snap.GeoLookups)
	}
}

func TestDispatchRandomEventID(t *testing.T) {
	d := New(nil, testResolver(t), nil, discardLogger(), nil)

	event := model.ConversionEvent{
		Name: model.EventPageView,
		User: model.RawUserData{FBP: "fb.1.1700000000.123"},
	}
	outcome, err := d.Dispatch(context.Background(), event)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !outcome.RandomEventID {
		t.Error("event without identity fields should fall back to a random id")
	}
}

func TestDispatchCallerEventIDVerbatim(t *testing.T) {
	d := New(nil, testResolver(t), nil, discardLogger(), nil)

	event := leadEvent()
	event.ID = "caller-supplied-id"
	outcome, err := d.Dispatch(context.Background(), event)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if outcome.EventID != "caller-supplied-id" {
		t.Errorf("EventID = %q, want caller id kept verbatim", outcome.EventID)
	}
}

func TestMaskPhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"12345", "*****"},
		{"966551234567", "966*******67"},
	}
	for _, tt := range tests {
		if got := MaskPhone(tt.in); got != tt.want {
			t.Errorf("MaskPhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"ab@example.com", "***@example.com"},
		{"visitor@example.com", "vi*****@example.com"},
	}
	for _, tt := range tests {
		if got := MaskEmail(tt.in); got != tt.want {
			t.Errorf("MaskEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
