package model

// Location sources. "development" and "fallback" are sentinels: no
// provider produced usable data.
const (
	GeoSourcePrimary     = "primary"
	GeoSourceSecondary   = "secondary"
	GeoSourceDevelopment = "development"
	GeoSourceFallback    = "fallback"
)

// LocationResult is the outcome of a geolocation lookup. Resolvers
// always return one of these, never an error.
type LocationResult struct {
	City        string   `json:"city"`
	Region      string   `json:"region"`
	Country     string   `json:"country"`
	CountryCode string   `json:"country_code"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Timezone    string   `json:"timezone"`
	ISP         string   `json:"isp"`
	Source      string   `json:"source"`
}

// Valid reports whether the lookup produced real geo data. It is always
// derived, never asserted by a resolver directly.
func (l LocationResult) Valid() bool {
	return l.Source != GeoSourceFallback &&
		l.Source != GeoSourceDevelopment &&
		l.City != "" && l.City != "Unknown" &&
		l.Country != "" && l.Country != "Unknown"
}

// FallbackLocation is the terminal sentinel returned when every
// provider failed.
func FallbackLocation() LocationResult {
	return LocationResult{
		City:        "Unknown",
		Region:      "Unknown",
		Country:     "Unknown",
		CountryCode: "XX",
		Timezone:    "UTC",
		ISP:         "Unknown",
		Source:      GeoSourceFallback,
	}
}

// DevelopmentLocation is returned for loopback and development IPs
// without any network call.
func DevelopmentLocation() LocationResult {
	return LocationResult{
		City:        "Development",
		Region:      "Development",
		Country:     "Unknown",
		CountryCode: "XX",
		Timezone:    "UTC",
		ISP:         "Development",
		Source:      GeoSourceDevelopment,
	}
}
