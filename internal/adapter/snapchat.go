package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/madarat/beacon/internal/model"
	"github.com/madarat/beacon/internal/pii"
)

// DefaultSnapchatBaseURL is the Snapchat Conversions API root.
const DefaultSnapchatBaseURL = "https://tr.snapchat.com/v3"

// snapchatEventNames maps inbound event names (upper-cased, separators
// removed) to Snapchat's allowed vocabulary.
var snapchatEventNames = map[string]string{
	"PAGEVIEW":             "PAGE_VIEW",
	"VIEWCONTENT":          "VIEW_CONTENT",
	"ADDCART":              "ADD_CART",
	"ADDTOCART":            "ADD_CART",
	"PURCHASE":             "PURCHASE",
	"SIGNUP":               "SIGN_UP",
	"COMPLETEREGISTRATION": "COMPLETE_REGISTRATION",
	"REGISTRATION":         "COMPLETE_REGISTRATION",
	"LEAD":                 "SIGN_UP",
	"CONTACT":              "SIGN_UP",
	"SUBSCRIBE":            "SIGN_UP",
	"CONVERSION":           "PURCHASE",
	"BOOKING":              "PURCHASE",
	"RESERVATION":          "PURCHASE",
	"OFFLINEPHONECALL":     "SIGN_UP",
	"DOWNLOAD":             "VIEW_CONTENT",
}

// mapSnapchatEventName returns the Snapchat event name for an inbound
// name, or "" when the name has no mapping.
func mapSnapchatEventName(name string) string {
	key := strings.ToUpper(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "_", "")
	key = strings.ReplaceAll(key, " ", "")
	return snapchatEventNames[key]
}

// formatSaudiPhone prefixes the 966 country code to local Saudi mobile
// numbers (9 digits starting with 5, or 10 starting with 05) so the
// hash matches Snapchat's phone matching spec. Other numbers pass
// through unchanged.
func formatSaudiPhone(digits string) string {
	switch {
	case len(digits) == 9 && strings.HasPrefix(digits, "5"):
		return "966" + digits
	case len(digits) == 10 && strings.HasPrefix(digits, "05"):
		return "966" + digits[1:]
	default:
		return digits
	}
}

// SnapchatConfig configures the Snapchat Conversions API adapter.
type SnapchatConfig struct {
	PixelID     string
	AccessToken string
	BaseURL     string // overridable for tests
}

// Snapchat reports events to the Snapchat Conversions API.
type Snapchat struct {
	cfg    SnapchatConfig
	client *http.Client
	logger *slog.Logger
}

// NewSnapchat creates the Snapchat adapter.
func NewSnapchat(cfg SnapchatConfig, client *http.Client, logger *slog.Logger) *Snapchat {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSnapchatBaseURL
	}
	if client == nil {
		client = NewHTTPClient(SendTimeout)
	}
	return &Snapchat{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "adapter.snapchat"),
	}
}

func (s *Snapchat) Name() string { return ProviderSnapchat }

type snapchatUserData struct {
	Em              []string `json:"em,omitempty"`
	Ph              []string `json:"ph,omitempty"`
	Fn              []string `json:"fn,omitempty"`
	Ln              []string `json:"ln,omitempty"`
	UserAgent       string   `json:"user_agent,omitempty"`
	ClientIPAddress string   `json:"client_ip_address,omitempty"`
	ScClickID       string   `json:"sc_click_id,omitempty"`
	ScCookie1       string   `json:"sc_cookie1,omitempty"`

	// Geo fields are hashed per Snapchat's matching spec.
	Ct      string `json:"ct,omitempty"`
	St      string `json:"st,omitempty"`
	Country string `json:"country,omitempty"`
}

type snapchatCustomData struct {
	Value           string   `json:"value,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	ContentCategory []string `json:"content_category,omitempty"`
	ContentName     string   `json:"content_name,omitempty"`
	OrderID         string   `json:"order_id,omitempty"`
}

type snapchatEvent struct {
	EventName      string             `json:"event_name"`
	ActionSource   string             `json:"action_source"`
	EventTime      int64              `json:"event_time"`
	UserData       snapchatUserData   `json:"user_data"`
	CustomData     snapchatCustomData `json:"custom_data"`
	EventID        string             `json:"event_id"`
	EventSourceURL string             `json:"event_source_url,omitempty"`
}

type snapchatRequest struct {
	Data []snapchatEvent `json:"data"`
}

// Send maps the canonical event into Snapchat's schema and posts it.
// Events outside Snapchat's vocabulary are reported as skipped, not
// sent.
func (s *Snapchat) Send(ctx context.Context, in Input) model.DispatchResult {
	start := time.Now()

	eventName := mapSnapchatEventName(in.Event.Name)
	if eventName == "" {
		return skipped(ProviderSnapchat, fmt.Sprintf("event name %q has no Snapchat mapping", in.Event.Name))
	}

	userData := snapchatUserData{
		UserAgent:       in.Event.User.UserAgent,
		ClientIPAddress: in.Event.User.ClientIP,
		ScClickID:       in.Event.User.ScClickID,
		ScCookie1:       in.Event.User.ScCookie,
	}
	if in.Hashed.Email != "" {
		userData.Em = []string{in.Hashed.Email}
	}
	if in.User.Phone != "" {
		// Snapchat matches on the country-code-qualified number, so the
		// hash is recomputed from the formatted normalized phone.
		userData.Ph = []string{pii.Hash(formatSaudiPhone(in.User.Phone))}
	}
	if in.Hashed.FirstName != "" {
		userData.Fn = []string{in.Hashed.FirstName}
	}
	if in.Hashed.LastName != "" {
		userData.Ln = []string{in.Hashed.LastName}
	}
	if in.Location.Valid() {
		userData.Ct = pii.HashLower(in.Location.City)
		userData.St = pii.HashLower(in.Location.Region)
		userData.Country = pii.HashLower(in.Location.Country)
	}

	customData := snapchatCustomData{
		ContentName: in.Event.Custom.ContentName,
		OrderID:     in.Event.Custom.OrderID,
	}
	if in.Event.Custom.Value != 0 {
		customData.Value = strconv.FormatFloat(in.Event.Custom.Value, 'f', -1, 64)
	}
	if in.Event.Custom.Currency != "" {
		customData.Currency = strings.ToUpper(in.Event.Custom.Currency)
	}
	if in.Event.Custom.ContentCategory != "" {
		customData.ContentCategory = []string{in.Event.Custom.ContentCategory}
	}

	body := snapchatRequest{Data: []snapchatEvent{{
		EventName:      eventName,
		ActionSource:   string(in.Event.ActionSource),
		EventTime:      in.Event.OccurredAt,
		UserData:       userData,
		CustomData:     customData,
		EventID:        in.Event.ID,
		EventSourceURL: in.Event.Custom.PageURL,
	}}}

	url := fmt.Sprintf("%s/%s/events?access_token=%s", s.cfg.BaseURL, s.cfg.PixelID, s.cfg.AccessToken)
	status, respBody, err := postJSON(ctx, s.client, url, nil, body)
	res := result(ProviderSnapchat, start, status, respBody, err)

	s.logger.Debug("snapchat conversion sent",
		"event_id", in.Event.ID,
		"event_name", eventName,
		"success", res.Success,
		"http_status", res.HTTPStatus,
	)
	return res
}
