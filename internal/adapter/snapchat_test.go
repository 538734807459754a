package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/madarat/beacon/internal/model"
	"github.com/madarat/beacon/internal/pii"
)

func TestMapSnapchatEventName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Lead", "SIGN_UP"},
		{"lead", "SIGN_UP"},
		{"PageView", "PAGE_VIEW"},
		{"page_view", "PAGE_VIEW"},
		{"Page View", "PAGE_VIEW"},
		{"Purchase", "PURCHASE"},
		{"Booking", "PURCHASE"},
		{"OfflinePhoneCall", "SIGN_UP"},
		{"SomethingCustom", ""},
	}

	for _, tt := range tests {
		if got := mapSnapchatEventName(tt.in); got != tt.want {
			t.Errorf("mapSnapchatEventName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSaudiPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"551234567", "966551234567"},
		{"0551234567", "966551234567"},
		{"966551234567", "966551234567"},
		{"442071234567", "442071234567"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := formatSaudiPhone(tt.in); got != tt.want {
			t.Errorf("formatSaudiPhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSnapchatSend(t *testing.T) {
	var gotBody snapchatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"SUCCESS"}`))
	}))
	defer srv.Close()

	s := NewSnapchat(SnapchatConfig{
		PixelID:     "pixel-1",
		AccessToken: "tok",
		BaseURL:     srv.URL,
	}, srv.Client(), discardLogger())

	event := leadEvent()
	in := testInput(event)
	in.Location = model.LocationResult{
		City:    "Riyadh",
		Region:  "Riyadh Province",
		Country: "Saudi Arabia",
		Source:  model.GeoSourcePrimary,
	}

	res := s.Send(context.Background(), in)
	if !res.Success {
		t.Fatalf("Send() failed: %+v", res)
	}

	if len(gotBody.Data) != 1 {
		t.Fatalf("got %d events, want 1", len(gotBody.Data))
	}
	sent := gotBody.Data[0]

	if sent.EventName != "SIGN_UP" {
		t.Errorf("event_name = %q, want SIGN_UP for a lead", sent.EventName)
	}

	// Local mobile number gets the country code before hashing.
	wantPhone := pii.Hash("966551234567")
	if len(sent.UserData.Ph) != 1 || sent.UserData.Ph[0] != wantPhone {
		t.Errorf("ph = %v, want single hash of 966-formatted number", sent.UserData.Ph)
	}
	if len(sent.UserData.Em) != 1 || sent.UserData.Em[0] != pii.Hash("visitor@example.com") {
		t.Errorf("em = %v, want hash of normalized email", sent.UserData.Em)
	}

	if sent.UserData.Ct != pii.HashLower("Riyadh") {
		t.Errorf("ct = %q, want hashed lowercase city", sent.UserData.Ct)
	}
	if sent.UserData.Country != pii.HashLower("Saudi Arabia") {
		t.Errorf("country = %q, want hashed lowercase country", sent.UserData.Country)
	}

	if sent.CustomData.Value != "1500" {
		t.Errorf("value = %q, want string \"1500\"", sent.CustomData.Value)
	}
	if sent.CustomData.Currency != "SAR" {
		t.Errorf("currency = %q, want uppercased SAR", sent.CustomData.Currency)
	}
}

func TestSnapchatSkipsGeoWhenNotResolved(t *testing.T) {
	var gotRaw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotRaw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSnapchat(SnapchatConfig{PixelID: "p", AccessToken: "t", BaseURL: srv.URL}, srv.Client(), discardLogger())

	in := testInput(leadEvent()) // fallback location, not valid
	if res := s.Send(context.Background(), in); !res.Success {
		t.Fatalf("Send() failed: %+v", res)
	}

	userData := gotRaw["data"].([]any)[0].(map[string]any)["user_data"].(map[string]any)
	for _, key := range []string{"ct", "st", "country"} {
		if _, present := userData[key]; present {
			t.Errorf("geo field %q sent for an unresolved location", key)
		}
	}
}

func TestSnapchatUnmappableEventSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an unmappable event")
	}))
	defer srv.Close()

	s := NewSnapchat(SnapchatConfig{PixelID: "p", AccessToken: "t", BaseURL: srv.URL}, srv.Client(), discardLogger())

	event := leadEvent()
	event.Name = "SomethingCustom"
	res := s.Send(context.Background(), testInput(event))

	if res.Success {
		t.Error("unmappable event must not be a success")
	}
	if res.Error == "" {
		t.Error("skip reason missing from result")
	}
}
