package geo

import (
	"strings"
	"time"

	"github.com/madarat/beacon/internal/model"
)

// Timestamps holds a lookup-time snapshot in UTC and in the resolved
// timezone.
type Timestamps struct {
	UTC       string `json:"utc"`
	Local     string `json:"local"`
	Timezone  string `json:"timezone"`
	UnixMilli int64  `json:"timestamp"`
}

// TimestampsFor formats the current time in the location's timezone,
// degrading to UTC when the zone name cannot be loaded.
func TimestampsFor(loc model.LocationResult, now time.Time) Timestamps {
	ts := Timestamps{
		UTC:       now.UTC().Format(time.RFC3339),
		Local:     now.UTC().Format(time.RFC3339),
		Timezone:  "UTC",
		UnixMilli: now.UnixMilli(),
	}

	if loc.Timezone == "" || loc.Timezone == "UTC" {
		return ts
	}
	zone, err := time.LoadLocation(loc.Timezone)
	if err != nil {
		return ts
	}

	ts.Local = now.In(zone).Format(time.RFC3339)
	ts.Timezone = loc.Timezone
	return ts
}

// DisplayString joins the usable location parts for human-facing output.
func DisplayString(loc model.LocationResult) string {
	if !loc.Valid() {
		return "Unknown location"
	}

	parts := make([]string, 0, 3)
	if loc.City != "" && loc.City != "Unknown" {
		parts = append(parts, loc.City)
	}
	if loc.Region != "" && loc.Region != "Unknown" && loc.Region != loc.City {
		parts = append(parts, loc.Region)
	}
	if loc.Country != "" && loc.Country != "Unknown" {
		parts = append(parts, loc.Country)
	}
	if len(parts) == 0 {
		return "Unknown location"
	}
	return strings.Join(parts, ", ")
}
