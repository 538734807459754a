package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/madarat/beacon/internal/geo"
	"github.com/madarat/beacon/internal/handler/dto"
)

// LocationHandler exposes the geolocation resolver to the website, for
// prefilling country and timezone fields in booking forms.
type LocationHandler struct {
	resolver *geo.Resolver
	logger   *slog.Logger
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(resolver *geo.Resolver, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{
		resolver: resolver,
		logger:   logger.With("component", "handler.location"),
	}
}

// Lookup resolves the caller's location. An explicit ?ip= overrides the
// request address, mainly for diagnostics.
//
// GET /v1/location
func (h *LocationHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	ip := r.URL.Query().Get("ip")
	if ip == "" {
		ip = clientIP(r)
	}

	loc := h.resolver.Resolve(r.Context(), ip)
	ts := geo.TimestampsFor(loc, time.Now())

	writeJSON(w, http.StatusOK, dto.LocationResponse{
		IP:          ip,
		City:        loc.City,
		Region:      loc.Region,
		Country:     loc.Country,
		CountryCode: loc.CountryCode,
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		Timezone:    loc.Timezone,
		ISP:         loc.ISP,
		Source:      loc.Source,
		LocalTime:   ts.Local,
		UTCTime:     ts.UTC,
	})
}
