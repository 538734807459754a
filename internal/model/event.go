// Package model defines the canonical types flowing through the
// conversion pipeline.
package model

import "time"

// ActionSource describes where a conversion physically happened.
type ActionSource string

const (
	ActionSourceWebsite         ActionSource = "website"
	ActionSourcePhoneCall       ActionSource = "phone_call"
	ActionSourceSystemGenerated ActionSource = "system_generated"
)

// Common event names accepted on the inbound API. Adapters map these to
// each platform's own vocabulary.
const (
	EventLead             = "Lead"
	EventViewContent      = "ViewContent"
	EventPageView         = "PageView"
	EventSignUp           = "SignUp"
	EventPurchase         = "Purchase"
	EventOfflinePhoneCall = "OfflinePhoneCall"
)

// RawUserData holds contact and identity fields exactly as captured from
// the user. Nothing in here is safe to send to an advertising platform
// without hashing first.
type RawUserData struct {
	Name       string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	ExternalID string

	// Advertising click/browser identifiers. Sent as-is, never hashed.
	FBP       string // Meta browser id (_fbp cookie)
	FBC       string // Meta click id (_fbc cookie)
	ScClickID string // Snapchat click id
	ScCookie  string // Snapchat cookie (uuid_c1)
	TTClid    string // TikTok click id
	TTP       string // TikTok pixel cookie (_ttp)

	ClientIP  string
	UserAgent string
}

// NormalizedUserData is the cleaned view of RawUserData produced by the
// PII normalizer: lower-cased trimmed email, digits-only phone, split
// name. Empty string means the field is absent. Treat as immutable once
// constructed.
type NormalizedUserData struct {
	Email      string
	Phone      string
	FirstName  string
	LastName   string
	ExternalID string
}

// HashedUserData mirrors NormalizedUserData field by field with hex
// SHA-256 digests. A field absent from the input stays absent (empty
// string) here; callers must never emit a hash of the empty string.
type HashedUserData struct {
	Email      string
	Phone      string
	FirstName  string
	LastName   string
	ExternalID string
}

// UTMParams carries the campaign attribution parameters forwarded from
// the page layer.
type UTMParams struct {
	Source   string `json:"utm_source,omitempty"`
	Medium   string `json:"utm_medium,omitempty"`
	Campaign string `json:"utm_campaign,omitempty"`
	Term     string `json:"utm_term,omitempty"`
	Content  string `json:"utm_content,omitempty"`
}

// CustomData holds the business attributes attached to a conversion.
type CustomData struct {
	Destination     string
	Nationality     string
	Value           float64
	Currency        string
	ContentName     string
	ContentCategory string
	FormName        string
	PageURL         string
	OrderID         string
	UTM             UTMParams

	// Extra carries any additional free-form attributes the form layer
	// reports. Only the automation webhook forwards these.
	Extra map[string]string
}

// ConversionEvent is the canonical internal representation of one
// business-meaningful user action. It is created per inbound request,
// enriched synchronously, dispatched and discarded.
type ConversionEvent struct {
	Name         string
	ID           string // dedup key; caller-supplied or derived, never changed after
	OccurredAt   int64  // epoch seconds of the real-world action
	ActionSource ActionSource
	User         RawUserData
	Custom       CustomData
	TestMode     bool
}

// DeviceInfo is derived from the raw user agent for webhook and email
// enrichment.
type DeviceInfo struct {
	Type    string `json:"type,omitempty"`
	OS      string `json:"os,omitempty"`
	Browser string `json:"browser,omitempty"`
}

// DispatchResult is the per-adapter outcome of one dispatch. Adapters
// never return errors; everything that went wrong is folded in here.
type DispatchResult struct {
	Provider   string        `json:"provider"`
	Success    bool          `json:"success"`
	HTTPStatus int           `json:"http_status,omitempty"`
	Response   string        `json:"response,omitempty"` // raw provider body, truncated
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration_ms"`
}

// Failure builds a failed DispatchResult for the given provider.
func Failure(provider string, d time.Duration, errMsg string) DispatchResult {
	return DispatchResult{
		Provider:   provider,
		Success:    false,
		Error:      errMsg,
		Duration:   d,
		DurationMs: d.Milliseconds(),
	}
}
