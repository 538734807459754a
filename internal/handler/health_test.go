package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeChecker struct {
	err error
}

func (f *fakeChecker) Ping(_ context.Context) error { return f.err }

func TestHealthz(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		dedup      HealthChecker
		wantStatus int
		wantRedis  string
	}{
		{
			name:       "guard healthy",
			dedup:      &fakeChecker{},
			wantStatus: http.StatusOK,
			wantRedis:  "ok",
		},
		{
			name:       "guard failing",
			dedup:      &fakeChecker{err: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantRedis:  "error: connection refused",
		},
		{
			name:       "guard not configured",
			dedup:      nil,
			wantStatus: http.StatusOK,
			wantRedis:  "not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.dedup, []string{"meta", "webhook"})

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			rec := httptest.NewRecorder()

			h.Readyz(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Checks["redis"] != tt.wantRedis {
				t.Errorf("redis check = %q, want %q", resp.Checks["redis"], tt.wantRedis)
			}
			if len(resp.Providers) != 2 {
				t.Errorf("providers = %v, want two entries", resp.Providers)
			}
		})
	}
}
