package adapter

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/madarat/beacon/internal/model"
)

// DefaultTikTokEndpoint is the TikTok Events API track endpoint.
const DefaultTikTokEndpoint = "https://business-api.tiktok.com/open_api/v1.3/event/track/"

// tiktokEventNames maps inbound event names (upper-cased, separators
// removed) to TikTok's allowed vocabulary.
var tiktokEventNames = map[string]string{
	"VIEWCONTENT":          "ViewContent",
	"PAGEVIEW":             "ViewContent",
	"SEARCH":               "Search",
	"CLICKBUTTON":          "ClickButton",
	"ADDTOCART":            "ClickButton",
	"ADDCART":              "ClickButton",
	"DOWNLOAD":             "ClickButton",
	"LEAD":                 "Lead",
	"CONTACT":              "Lead",
	"SUBSCRIBE":            "Lead",
	"OFFLINEPHONECALL":     "Lead",
	"PURCHASE":             "Purchase",
	"BOOKING":              "Purchase",
	"RESERVATION":          "Purchase",
	"CONVERSION":           "Purchase",
	"SIGNUP":               "CompleteRegistration",
	"COMPLETEREGISTRATION": "CompleteRegistration",
	"REGISTRATION":         "CompleteRegistration",
}

// mapTikTokEventName returns the TikTok event name for an inbound name,
// or "" when the name has no mapping.
func mapTikTokEventName(name string) string {
	key := strings.ToUpper(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "_", "")
	key = strings.ReplaceAll(key, " ", "")
	return tiktokEventNames[key]
}

// TikTokConfig configures the TikTok Events API adapter.
type TikTokConfig struct {
	PixelID       string
	AccessToken   string
	TestEventCode string
	Endpoint      string // overridable for tests
}

// TikTok reports events to the TikTok Events API.
type TikTok struct {
	cfg    TikTokConfig
	client *http.Client
	logger *slog.Logger
}

// NewTikTok creates the TikTok adapter.
func NewTikTok(cfg TikTokConfig, client *http.Client, logger *slog.Logger) *TikTok {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultTikTokEndpoint
	}
	if client == nil {
		client = NewHTTPClient(SendTimeout)
	}
	return &TikTok{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "adapter.tiktok"),
	}
}

func (t *TikTok) Name() string { return ProviderTikTok }

type tiktokUser struct {
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	TTClid     string `json:"ttclid,omitempty"`
	TTP        string `json:"ttp,omitempty"`
}

type tiktokPage struct {
	URL      string `json:"url,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

type tiktokContext struct {
	User      tiktokUser `json:"user"`
	Page      tiktokPage `json:"page"`
	UserAgent string     `json:"user_agent,omitempty"`
	IP        string     `json:"ip,omitempty"`
}

type tiktokProperties struct {
	Value           float64 `json:"value,omitempty"`
	Currency        string  `json:"currency,omitempty"`
	ContentName     string  `json:"content_name,omitempty"`
	ContentCategory string  `json:"content_category,omitempty"`
	OrderID         string  `json:"order_id,omitempty"`
	Description     string  `json:"description,omitempty"`
}

type tiktokEvent struct {
	Event         string           `json:"event"`
	EventID       string           `json:"event_id"`
	Timestamp     string           `json:"timestamp"`
	Context       tiktokContext    `json:"context"`
	Properties    tiktokProperties `json:"properties"`
	TestEventCode string           `json:"test_event_code,omitempty"`
}

type tiktokRequest struct {
	PixelCode string        `json:"pixel_code"`
	Data      []tiktokEvent `json:"data"`
}

// Send maps the canonical event into TikTok's schema and posts it.
// TikTok matches on hashed email/phone/external id; click identifiers
// travel unhashed. Loopback IPs are omitted entirely.
func (t *TikTok) Send(ctx context.Context, in Input) model.DispatchResult {
	start := time.Now()

	eventName := mapTikTokEventName(in.Event.Name)
	if eventName == "" {
		return skipped(ProviderTikTok, "event name "+in.Event.Name+" has no TikTok mapping")
	}

	ip := in.Event.User.ClientIP
	if parsed := net.ParseIP(ip); parsed != nil && parsed.IsLoopback() {
		ip = ""
	}

	event := tiktokEvent{
		Event:     eventName,
		EventID:   in.Event.ID,
		Timestamp: time.Unix(in.Event.OccurredAt, 0).UTC().Format(time.RFC3339),
		Context: tiktokContext{
			User: tiktokUser{
				Email:      in.Hashed.Email,
				Phone:      in.Hashed.Phone,
				ExternalID: in.Hashed.ExternalID,
				TTClid:     in.Event.User.TTClid,
				TTP:        in.Event.User.TTP,
			},
			Page:      tiktokPage{URL: in.Event.Custom.PageURL},
			UserAgent: in.Event.User.UserAgent,
			IP:        ip,
		},
		Properties: tiktokProperties{
			Value:           in.Event.Custom.Value,
			Currency:        in.Event.Custom.Currency,
			ContentName:     in.Event.Custom.ContentName,
			ContentCategory: in.Event.Custom.ContentCategory,
			OrderID:         in.Event.Custom.OrderID,
		},
	}
	if in.Event.TestMode && t.cfg.TestEventCode != "" {
		event.TestEventCode = t.cfg.TestEventCode
	}

	body := tiktokRequest{PixelCode: t.cfg.PixelID, Data: []tiktokEvent{event}}
	headers := map[string]string{"Access-Token": t.cfg.AccessToken}

	status, respBody, err := postJSON(ctx, t.client, t.cfg.Endpoint, headers, body)
	res := result(ProviderTikTok, start, status, respBody, err)

	t.logger.Debug("tiktok conversion sent",
		"event_id", in.Event.ID,
		"event_name", eventName,
		"success", res.Success,
		"http_status", res.HTTPStatus,
	)
	return res
}
