// Package adapter contains one provider adapter per external platform.
// Each adapter maps the canonical conversion event into that platform's
// wire format and performs the HTTP call. Adapters never return errors:
// every outcome, including transport failure, is folded into a
// DispatchResult.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/madarat/beacon/internal/model"
)

// Provider names, in the order results are reported.
const (
	ProviderMeta     = "meta"
	ProviderSnapchat = "snapchat"
	ProviderTikTok   = "tiktok"
	ProviderWebhook  = "webhook"
	ProviderEmail    = "email"
)

const (
	// SendTimeout is the total per-call budget for one provider.
	SendTimeout = 4 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 2 * time.Second
	// maxResponseBytes bounds how much of a provider response is kept
	// for diagnostics.
	maxResponseBytes = 4 * 1024
)

// Input is the enriched, derived view of one conversion event handed to
// every adapter. The dispatcher builds it once; adapters must not
// mutate it.
type Input struct {
	Event    model.ConversionEvent
	User     model.NormalizedUserData
	Hashed   model.HashedUserData
	Location model.LocationResult
	Device   model.DeviceInfo
	ReportID string
}

// Adapter reports a conversion event to one external platform.
type Adapter interface {
	Name() string
	Send(ctx context.Context, in Input) model.DispatchResult
}

// NewHTTPClient creates an HTTP client tuned for short provider calls.
// It does not follow redirects; a redirect from a conversions endpoint
// is treated as a failure.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = SendTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   DialTimeout,
			ResponseHeaderTimeout: timeout,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// postJSON sends one JSON POST and retries once on a transient
// transport failure. Application errors (any HTTP response, 4xx or 5xx)
// are never retried: the platform received the payload and a replay
// either cannot fix it or would double-report.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) (status int, respBody string, err error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, "", fmt.Errorf("marshal payload: %w", err)
	}

	const attempts = 2
	for attempt := 1; attempt <= attempts; attempt++ {
		status, respBody, err = doPost(ctx, client, url, headers, payload)
		if err == nil {
			return status, respBody, nil
		}
		if attempt == attempts || !isTransient(err) || ctx.Err() != nil {
			return 0, "", err
		}
	}
	return 0, "", err
}

func doPost(ctx context.Context, client *http.Client, url string, headers map[string]string, payload []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, string(body), nil
}

// isTransient reports whether a transport error is worth a single
// retry: timeouts and reset/refused connections. Everything else,
// including context cancellation, is terminal.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

// result folds an HTTP exchange into a DispatchResult.
func result(provider string, start time.Time, status int, respBody string, err error) model.DispatchResult {
	elapsed := time.Since(start)
	if err != nil {
		return model.Failure(provider, elapsed, err.Error())
	}

	res := model.DispatchResult{
		Provider:   provider,
		HTTPStatus: status,
		Response:   respBody,
		Duration:   elapsed,
		DurationMs: elapsed.Milliseconds(),
	}
	if status >= 200 && status < 300 {
		res.Success = true
	} else {
		res.Error = fmt.Sprintf("provider returned HTTP %d", status)
	}
	return res
}

// skipped records an adapter that could not act on the event, e.g. an
// event name outside the platform's vocabulary. Not a transport error,
// still reported so the aggregate stays one result per adapter.
func skipped(provider, reason string) model.DispatchResult {
	return model.DispatchResult{Provider: provider, Success: false, Error: reason}
}
