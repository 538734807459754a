// Package dispatch orchestrates the conversion pipeline: validate,
// enrich, derive the event identity, then fan out to every configured
// provider adapter concurrently. One slow or failing adapter never
// blocks the others or the caller beyond its bounded timeout.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/madarat/beacon/internal/adapter"
	"github.com/madarat/beacon/internal/geo"
	"github.com/madarat/beacon/internal/identity"
	"github.com/madarat/beacon/internal/metrics"
	"github.com/madarat/beacon/internal/model"
	"github.com/madarat/beacon/internal/pii"
)

// DefaultTimeout is the overall fan-out ceiling. Slightly larger than
// one adapter's send budget so the caller never waits on a misbehaving
// provider.
const DefaultTimeout = 6 * time.Second

// ValidationError rejects a report before any network activity.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid report: %s %s", e.Field, e.Reason)
}

// Outcome is the aggregate result of one dispatch.
type Outcome struct {
	ReportID      string
	EventID       string
	RandomEventID bool
	Duplicate     bool
	Location      model.LocationResult
	Results       []model.DispatchResult
}

// Guard suppresses duplicate reports of the same event id. Implemented
// by dedup.Guard; a nil Guard considers every event first-seen.
type Guard interface {
	FirstSeen(ctx context.Context, eventID string) bool
}

// Dispatcher runs the pipeline. Safe for concurrent use; each dispatch
// is an independent unit of work with no shared mutable state.
type Dispatcher struct {
	adapters []adapter.Adapter
	resolver *geo.Resolver
	guard    Guard
	logger   *slog.Logger
	metrics  metrics.Recorder
	timeout  time.Duration
}

// New creates a Dispatcher over the configured adapters. Results are
// reported in adapter (configuration) order. guard may be nil.
func New(adapters []adapter.Adapter, resolver *geo.Resolver, guard Guard, logger *slog.Logger, recorder metrics.Recorder) *Dispatcher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Dispatcher{
		adapters: adapters,
		resolver: resolver,
		guard:    guard,
		logger:   logger.With("component", "dispatch"),
		metrics:  recorder,
		timeout:  DefaultTimeout,
	}
}

// SetTimeout overrides the overall fan-out ceiling.
func (d *Dispatcher) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.timeout = timeout
	}
}

// Dispatch runs one conversion event through the pipeline. It returns
// an error only for validation failures; adapter failures are carried
// in the Outcome. The event itself is never mutated: all enrichment
// lives in derived views handed to the adapters.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.ConversionEvent) (*Outcome, error) {
	reportID := ulid.Make().String()

	if err := validate(event); err != nil {
		d.metrics.IncReportReceived("rejected")
		return nil, err
	}
	if event.OccurredAt == 0 {
		event.OccurredAt = time.Now().Unix()
	}
	if event.ActionSource == "" {
		event.ActionSource = model.ActionSourceWebsite
	}

	normalized := pii.Normalize(event.User)
	eventID, random := identity.Derive(event, normalized)
	event.ID = eventID

	outcome := &Outcome{
		ReportID:      reportID,
		EventID:       eventID,
		RandomEventID: random,
	}

	// A random id carries no cross-channel dedup contract, so the guard
	// only applies to stable ids. Consulted before enrichment: a
	// suppressed duplicate pays no geolocation round-trip.
	if !random && d.guard != nil && !d.guard.FirstSeen(ctx, eventID) {
		d.metrics.IncReportReceived("duplicate")
		d.logger.Info("duplicate report suppressed", "report_id", reportID, "event_id", eventID)
		outcome.Duplicate = true
		outcome.Results = []model.DispatchResult{}
		return outcome, nil
	}
	d.metrics.IncReportReceived("accepted")

	// Enrichment: degradations here never block progression.
	hashed := pii.HashUser(normalized)
	location := d.resolver.Resolve(ctx, event.User.ClientIP)
	device := parseDevice(event.User.UserAgent)
	outcome.Location = location

	d.logger.Info("conversion report received",
		"report_id", reportID,
		"event_id", eventID,
		"event_name", event.Name,
		"action_source", string(event.ActionSource),
		"phone", MaskPhone(normalized.Phone),
		"email", MaskEmail(normalized.Email),
		"geo_source", location.Source,
		"test_mode", event.TestMode,
	)

	in := adapter.Input{
		Event:    event,
		User:     normalized,
		Hashed:   hashed,
		Location: location,
		Device:   device,
		ReportID: reportID,
	}
	outcome.Results = d.fanOut(ctx, in)

	for _, res := range outcome.Results {
		status := "failed"
		if res.Success {
			status = "success"
		}
		d.metrics.IncDispatch(res.Provider, status)
		d.metrics.ObserveDispatchDuration(res.Provider, res.Duration)

		if !res.Success {
			d.logger.Warn("provider dispatch failed",
				"report_id", reportID,
				"event_id", eventID,
				"provider", res.Provider,
				"http_status", res.HTTPStatus,
				"error", res.Error,
			)
		}
	}

	return outcome, nil
}

// fanOut invokes every adapter concurrently and collects one result per
// adapter, in configuration order. Adapters that have not settled by
// the overall ceiling are recorded as timed out; their goroutines are
// cancelled and drain into a buffered channel.
func (d *Dispatcher) fanOut(ctx context.Context, in adapter.Input) []model.DispatchResult {
	n := len(d.adapters)
	results := make([]model.DispatchResult, n)
	if n == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type indexed struct {
		i   int
		res model.DispatchResult
	}
	ch := make(chan indexed, n)

	for i, a := range d.adapters {
		go func(i int, a adapter.Adapter) {
			ch <- indexed{i: i, res: a.Send(ctx, in)}
		}(i, a)
	}

	settled := make([]bool, n)
	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	for remaining := n; remaining > 0; {
		select {
		case r := <-ch:
			results[r.i] = r.res
			settled[r.i] = true
			remaining--
		case <-timer.C:
			cancel()
			for i := range results {
				if !settled[i] {
					results[i] = model.Failure(d.adapters[i].Name(), d.timeout, "dispatch timeout exceeded")
				}
			}
			remaining = 0
		}
	}

	return results
}

// validate enforces the mandatory inbound fields. Lead submissions need
// a destination and a phone number; every report needs an event name
// and at least one identity or click identifier for the platforms to
// match on.
func validate(event model.ConversionEvent) error {
	if event.Name == "" {
		return &ValidationError{Field: "event_name", Reason: "is required"}
	}

	if event.Name == model.EventLead {
		if event.Custom.Destination == "" {
			return &ValidationError{Field: "destination", Reason: "is required for lead events"}
		}
		if event.User.Phone == "" {
			return &ValidationError{Field: "phone", Reason: "is required for lead events"}
		}
	}

	u := event.User
	if u.Email == "" && u.Phone == "" && u.ExternalID == "" &&
		u.FBP == "" && u.FBC == "" && u.ScClickID == "" && u.ScCookie == "" &&
		u.TTClid == "" && u.TTP == "" {
		return &ValidationError{Field: "user_data", Reason: "needs at least one identity or click identifier"}
	}

	return nil
}
