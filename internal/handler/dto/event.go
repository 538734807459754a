// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"github.com/madarat/beacon/internal/model"
)

// UserData carries the visitor identity and click identifiers of a
// conversion report. Contact fields arrive raw; hashing happens
// server-side before anything leaves for an ad platform.
type UserData struct {
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Name       string `json:"name,omitempty"`
	ExternalID string `json:"external_id,omitempty"`

	// Platform click/browser identifiers, forwarded as-is.
	FBP       string `json:"fbp,omitempty"`
	FBC       string `json:"fbc,omitempty"`
	ScClickID string `json:"sc_click_id,omitempty"`
	ScCookie  string `json:"sc_cookie1,omitempty"`
	TTClid    string `json:"ttclid,omitempty"`
	TTP       string `json:"ttp,omitempty"`
}

// CustomData carries the business payload of a conversion report.
type CustomData struct {
	Destination     string            `json:"destination,omitempty"`
	Nationality     string            `json:"nationality,omitempty"`
	Value           float64           `json:"value,omitempty"`
	Currency        string            `json:"currency,omitempty"`
	ContentName     string            `json:"content_name,omitempty"`
	ContentCategory string            `json:"content_category,omitempty"`
	FormName        string            `json:"form_name,omitempty"`
	PageURL         string            `json:"page_url,omitempty"`
	OrderID         string            `json:"order_id,omitempty"`
	UTM             model.UTMParams   `json:"utm,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// TrackEventRequest represents the request body for reporting a
// conversion event.
type TrackEventRequest struct {
	EventName    string     `json:"event_name"`
	EventID      string     `json:"event_id,omitempty"`
	OccurredAt   int64      `json:"occurred_at,omitempty"`
	ActionSource string     `json:"action_source,omitempty"`
	TestMode     bool       `json:"test_mode,omitempty"`
	UserData     UserData   `json:"user_data"`
	CustomData   CustomData `json:"custom_data"`
}

// ToModel converts the request into the canonical event.
func (r *TrackEventRequest) ToModel() model.ConversionEvent {
	return model.ConversionEvent{
		Name:         r.EventName,
		ID:           r.EventID,
		OccurredAt:   r.OccurredAt,
		ActionSource: model.ActionSource(r.ActionSource),
		TestMode:     r.TestMode,
		User: model.RawUserData{
			Email:      r.UserData.Email,
			Phone:      r.UserData.Phone,
			FirstName:  r.UserData.FirstName,
			LastName:   r.UserData.LastName,
			Name:       r.UserData.Name,
			ExternalID: r.UserData.ExternalID,
			FBP:        r.UserData.FBP,
			FBC:        r.UserData.FBC,
			ScClickID:  r.UserData.ScClickID,
			ScCookie:   r.UserData.ScCookie,
			TTClid:     r.UserData.TTClid,
			TTP:        r.UserData.TTP,
		},
		Custom: model.CustomData{
			Destination:     r.CustomData.Destination,
			Nationality:     r.CustomData.Nationality,
			Value:           r.CustomData.Value,
			Currency:        r.CustomData.Currency,
			ContentName:     r.CustomData.ContentName,
			ContentCategory: r.CustomData.ContentCategory,
			FormName:        r.CustomData.FormName,
			PageURL:         r.CustomData.PageURL,
			OrderID:         r.CustomData.OrderID,
			UTM:             r.CustomData.UTM,
			Extra:           r.CustomData.Extra,
		},
	}
}

// OfflineEventRequest represents a phone-call conversion reported by
// back-office staff after the fact.
type OfflineEventRequest struct {
	Phone       string  `json:"phone"`
	Name        string  `json:"name,omitempty"`
	Email       string  `json:"email,omitempty"`
	ExternalID  string  `json:"external_id,omitempty"`
	Destination string  `json:"destination,omitempty"`
	Value       float64 `json:"value,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	OccurredAt  int64   `json:"occurred_at,omitempty"`
	TestMode    bool    `json:"test_mode,omitempty"`
}

// ToModel converts the offline report into the canonical event.
func (r *OfflineEventRequest) ToModel() model.ConversionEvent {
	return model.ConversionEvent{
		Name:         model.EventOfflinePhoneCall,
		OccurredAt:   r.OccurredAt,
		ActionSource: model.ActionSourcePhoneCall,
		TestMode:     r.TestMode,
		User: model.RawUserData{
			Phone:      r.Phone,
			Name:       r.Name,
			Email:      r.Email,
			ExternalID: r.ExternalID,
		},
		Custom: model.CustomData{
			Destination: r.Destination,
			Value:       r.Value,
			Currency:    r.Currency,
		},
	}
}

// DispatchResultResponse is one provider's outcome in the aggregate.
type DispatchResultResponse struct {
	Provider   string `json:"provider"`
	Success    bool   `json:"success"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// TrackEventResponse represents the aggregate dispatch outcome.
type TrackEventResponse struct {
	ReportID  string                   `json:"report_id"`
	EventID   string                   `json:"event_id"`
	Duplicate bool                     `json:"duplicate,omitempty"`
	Results   []DispatchResultResponse `json:"results"`
}

// LocationResponse represents a geolocation lookup result.
type LocationResponse struct {
	IP          string   `json:"ip"`
	City        string   `json:"city"`
	Region      string   `json:"region"`
	Country     string   `json:"country"`
	CountryCode string   `json:"country_code"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Timezone    string   `json:"timezone"`
	ISP         string   `json:"isp,omitempty"`
	Source      string   `json:"source"`
	LocalTime   string   `json:"local_time,omitempty"`
	UTCTime     string   `json:"utc_time,omitempty"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToResults converts dispatch results into their response form.
func ToResults(results []model.DispatchResult) []DispatchResultResponse {
	out := make([]DispatchResultResponse, len(results))
	for i, r := range results {
		out[i] = DispatchResultResponse{
			Provider:   r.Provider,
			Success:    r.Success,
			HTTPStatus: r.HTTPStatus,
			Error:      r.Error,
			DurationMs: r.DurationMs,
		}
	}
	return out
}
