// Package geo resolves a client IP to a coarse location using a primary
// provider with automatic fallback to a secondary one. A lookup never
// fails: the worst case is the fallback sentinel.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/madarat/beacon/internal/metrics"
	"github.com/madarat/beacon/internal/model"
)

const (
	// DefaultPrimaryBaseURL is the ip-api.com JSON endpoint.
	DefaultPrimaryBaseURL = "http://ip-api.com"
	// DefaultSecondaryBaseURL is the ipapi.co JSON endpoint.
	DefaultSecondaryBaseURL = "https://ipapi.co"
	// DefaultLookupTimeout bounds each provider call.
	DefaultLookupTimeout = 5 * time.Second

	primaryFields = "status,message,country,countryCode,region,regionName,city,lat,lon,timezone,isp"
)

// Resolver performs IP geolocation lookups.
type Resolver struct {
	client           *http.Client
	primaryBaseURL   string
	secondaryBaseURL string
	timeout          time.Duration
	fallbackEnabled  bool
	logger           *slog.Logger
	metrics          metrics.Recorder
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithBaseURLs overrides the provider endpoints, mainly for tests.
func WithBaseURLs(primary, secondary string) Option {
	return func(r *Resolver) {
		r.primaryBaseURL = primary
		r.secondaryBaseURL = secondary
	}
}

// WithTimeout overrides the per-provider lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithSecondaryDisabled turns off the secondary provider; primary
// failures then go straight to the fallback sentinel.
func WithSecondaryDisabled() Option {
	return func(r *Resolver) { r.fallbackEnabled = false }
}

// NewResolver creates a Resolver with bounded timeouts.
func NewResolver(logger *slog.Logger, recorder metrics.Recorder, opts ...Option) *Resolver {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	r := &Resolver{
		primaryBaseURL:   DefaultPrimaryBaseURL,
		secondaryBaseURL: DefaultSecondaryBaseURL,
		timeout:          DefaultLookupTimeout,
		fallbackEnabled:  true,
		logger:           logger.With("component", "geo.resolver"),
		metrics:          recorder,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.client = &http.Client{Timeout: r.timeout}
	return r
}

// Resolve maps an IP to a LocationResult. Development and loopback IPs
// short-circuit without any network call. Provider failures degrade to
// the secondary provider and finally to the fallback sentinel; this
// method never returns an error.
func (r *Resolver) Resolve(ctx context.Context, ip string) model.LocationResult {
	if isDevelopmentIP(ip) {
		r.metrics.IncGeoLookup(model.GeoSourceDevelopment)
		return model.DevelopmentLocation()
	}

	loc, err := r.lookupPrimary(ctx, ip)
	if err == nil {
		r.metrics.IncGeoLookup(model.GeoSourcePrimary)
		return loc
	}
	r.logger.Warn("primary geolocation lookup failed", "ip", ip, "error", err)

	if r.fallbackEnabled {
		loc, err = r.lookupSecondary(ctx, ip)
		if err == nil {
			r.metrics.IncGeoLookup(model.GeoSourceSecondary)
			return loc
		}
		r.logger.Warn("secondary geolocation lookup failed", "ip", ip, "error", err)
	}

	r.metrics.IncGeoLookup(model.GeoSourceFallback)
	return model.FallbackLocation()
}

// isDevelopmentIP recognizes loopback, unspecified and development
// sentinel addresses.
func isDevelopmentIP(ip string) bool {
	if ip == "" || ip == "localhost" || strings.HasPrefix(ip, "localhost ") {
		return true
	}
	parsed := net.ParseIP(ip)
	return parsed != nil && (parsed.IsLoopback() || parsed.IsUnspecified())
}

// primaryResponse is the ip-api.com wire shape.
type primaryResponse struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	Country     string   `json:"country"`
	CountryCode string   `json:"countryCode"`
	Region      string   `json:"region"`
	RegionName  string   `json:"regionName"`
	City        string   `json:"city"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	Timezone    string   `json:"timezone"`
	ISP         string   `json:"isp"`
}

func (r *Resolver) lookupPrimary(ctx context.Context, ip string) (model.LocationResult, error) {
	url := fmt.Sprintf("%s/json/%s?fields=%s", r.primaryBaseURL, ip, primaryFields)

	var resp primaryResponse
	if err := r.getJSON(ctx, url, nil, &resp); err != nil {
		return model.LocationResult{}, err
	}
	if resp.Status == "fail" {
		return model.LocationResult{}, fmt.Errorf("provider reported failure: %s", resp.Message)
	}

	region := resp.RegionName
	if region == "" {
		region = resp.Region
	}
	return model.LocationResult{
		City:        orUnknown(resp.City),
		Region:      orUnknown(region),
		Country:     orUnknown(resp.Country),
		CountryCode: orCode(resp.CountryCode),
		Latitude:    resp.Lat,
		Longitude:   resp.Lon,
		Timezone:    orUTC(resp.Timezone),
		ISP:         orUnknown(resp.ISP),
		Source:      model.GeoSourcePrimary,
	}, nil
}

// secondaryResponse is the ipapi.co wire shape.
type secondaryResponse struct {
	Error       bool     `json:"error"`
	Reason      string   `json:"reason"`
	City        string   `json:"city"`
	Region      string   `json:"region"`
	CountryName string   `json:"country_name"`
	CountryCode string   `json:"country_code"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Timezone    string   `json:"timezone"`
	Org         string   `json:"org"`
}

func (r *Resolver) lookupSecondary(ctx context.Context, ip string) (model.LocationResult, error) {
	url := fmt.Sprintf("%s/%s/json/", r.secondaryBaseURL, ip)

	var resp secondaryResponse
	if err := r.getJSON(ctx, url, nil, &resp); err != nil {
		return model.LocationResult{}, err
	}
	if resp.Error {
		return model.LocationResult{}, fmt.Errorf("provider reported failure: %s", resp.Reason)
	}

	return model.LocationResult{
		City:        orUnknown(resp.City),
		Region:      orUnknown(resp.Region),
		Country:     orUnknown(resp.CountryName),
		CountryCode: orCode(resp.CountryCode),
		Latitude:    resp.Latitude,
		Longitude:   resp.Longitude,
		Timezone:    orUTC(resp.Timezone),
		ISP:         orUnknown(resp.Org),
		Source:      model.GeoSourceSecondary,
	}, nil
}

// getJSON performs a bounded GET and decodes the JSON body into out.
func (r *Resolver) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("lookup returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orCode(s string) string {
	if s == "" {
		return "XX"
	}
	return s
}

func orUTC(s string) string {
	if s == "" {
		return "UTC"
	}
	return s
}
