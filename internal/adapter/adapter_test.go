package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/madarat/beacon/internal/model"
	"github.com/madarat/beacon/internal/pii"
)

// testInput builds an enriched Input the way the dispatcher would.
func testInput(event model.ConversionEvent) Input {
	normalized := pii.Normalize(event.User)
	return Input{
		Event:    event,
		User:     normalized,
		Hashed:   pii.HashUser(normalized),
		Location: model.FallbackLocation(),
		ReportID: "01TESTREPORT",
	}
}

func leadEvent() model.ConversionEvent {
	return model.ConversionEvent{
		Name:         model.EventLead,
		ID:           "evt-123",
		OccurredAt:   1700000000,
		ActionSource: model.ActionSourceWebsite,
		User: model.RawUserData{
			Email:     "Visitor@Example.com",
			Phone:     "+966 55 123 4567",
			FirstName: "Nora",
			LastName:  "Hassan",
			ClientIP:  "203.0.113.9",
			UserAgent: "Mozilla/5.0",
		},
		Custom: model.CustomData{
			Destination: "Georgia",
			Value:       1500,
			Currency:    "sar",
			FormName:    "package-inquiry",
			PageURL:     "https://example.com/packages/georgia",
		},
	}
}

func TestPostJSONRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Drop the connection mid-request to simulate a reset.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("response writer does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			conn.Close()
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(2 * time.Second)
	status, body, err := postJSON(context.Background(), client, srv.URL, nil, map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("postJSON() error = %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if body != `{"ok":true}` {
		t.Errorf("body = %q", body)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d calls, want 2", got)
	}
}

func TestPostJSONDoesNotRetryHTTPErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(2 * time.Second)
	status, body, err := postJSON(context.Background(), client, srv.URL, nil, map[string]string{})
	if err != nil {
		t.Fatalf("postJSON() error = %v", err)
	}
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
	if body != `{"error":"boom"}` {
		t.Errorf("response body not preserved: %q", body)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1 (no retry on HTTP errors)", got)
	}
}

func TestResultMapping(t *testing.T) {
	start := time.Now()

	res := result(ProviderMeta, start, 200, `{"events_received":1}`, nil)
	if !res.Success || res.HTTPStatus != 200 || res.Provider != ProviderMeta {
		t.Errorf("unexpected success result: %+v", res)
	}

	res = result(ProviderMeta, start, 400, `{"error":"bad"}`, nil)
	if res.Success {
		t.Error("HTTP 400 must not be a success")
	}
	if res.Response != `{"error":"bad"}` {
		t.Errorf("error body not preserved: %q", res.Response)
	}

	res = result(ProviderMeta, start, 0, "", context.DeadlineExceeded)
	if res.Success || res.Error == "" {
		t.Errorf("transport error not folded into result: %+v", res)
	}
}
