package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/madarat/beacon/internal/dispatch"
	"github.com/madarat/beacon/internal/handler/dto"
	"github.com/madarat/beacon/internal/model"
)

// EventHandler receives conversion reports and runs them through the
// dispatch pipeline.
type EventHandler struct {
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(dispatcher *dispatch.Dispatcher, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		dispatcher: dispatcher,
		logger:     logger.With("component", "handler.event"),
	}
}

// Track receives a website conversion event and fans it out to every
// configured channel.
//
// POST /v1/events
func (h *EventHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req dto.TrackEventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	event := req.ToModel()
	h.fillRequestContext(&event, r)
	h.dispatch(w, r, event)
}

// TrackOffline receives a phone-call conversion reported after the
// fact by back-office staff.
//
// POST /v1/events/offline
func (h *EventHandler) TrackOffline(w http.ResponseWriter, r *http.Request) {
	var req dto.OfflineEventRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required", "validation_failed")
		return
	}

	// Offline calls carry no browser context; the caller's network
	// address is the operator's, so it is deliberately left empty.
	event := req.ToModel()
	h.dispatch(w, r, event)
}

// fillRequestContext supplements the report with what the HTTP request
// itself knows: client address and user agent.
func (h *EventHandler) fillRequestContext(event *model.ConversionEvent, r *http.Request) {
	if event.User.ClientIP == "" {
		event.User.ClientIP = clientIP(r)
	}
	if event.User.UserAgent == "" {
		event.User.UserAgent = r.UserAgent()
	}
}

func (h *EventHandler) dispatch(w http.ResponseWriter, r *http.Request, event model.ConversionEvent) {
	outcome, err := h.dispatcher.Dispatch(r.Context(), event)
	if err != nil {
		var verr *dispatch.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error(), "validation_failed")
			return
		}
		h.logger.Error("dispatch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "internal_error")
		return
	}

	resp := dto.TrackEventResponse{
		ReportID:  outcome.ReportID,
		EventID:   outcome.EventID,
		Duplicate: outcome.Duplicate,
		Results:   dto.ToResults(outcome.Results),
	}

	// An accepted report is acknowledged with 200 no matter how the
	// channels fared; per-adapter failures are carried in the results.
	writeJSON(w, http.StatusOK, resp)
}

// decodeBody decodes a JSON request body, translating size and syntax
// failures into the right status codes. Returns false when a response
// has already been written.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "body_too_large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body", "invalid_json")
		return false
	}
	return true
}
