package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/madarat/beacon/internal/model"
)

// DefaultMetaBaseURL is the Meta Graph API events endpoint root.
const DefaultMetaBaseURL = "https://graph.facebook.com/v17.0"

// MetaConfig configures the Meta Conversions API adapter.
type MetaConfig struct {
	PixelID       string
	AccessToken   string
	TestEventCode string
	BaseURL       string // overridable for tests
}

// Meta reports events to the Meta Conversions API.
type Meta struct {
	cfg    MetaConfig
	client *http.Client
	logger *slog.Logger
}

// NewMeta creates the Meta adapter.
func NewMeta(cfg MetaConfig, client *http.Client, logger *slog.Logger) *Meta {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultMetaBaseURL
	}
	if client == nil {
		client = NewHTTPClient(SendTimeout)
	}
	return &Meta{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "adapter.meta"),
	}
}

func (m *Meta) Name() string { return ProviderMeta }

type metaUserData struct {
	Em              string `json:"em,omitempty"`
	Ph              string `json:"ph,omitempty"`
	Fn              string `json:"fn,omitempty"`
	Ln              string `json:"ln,omitempty"`
	ExternalID      string `json:"external_id,omitempty"`
	ClientIPAddress string `json:"client_ip_address,omitempty"`
	ClientUserAgent string `json:"client_user_agent,omitempty"`
	FBP             string `json:"fbp,omitempty"`
	FBC             string `json:"fbc,omitempty"`
}

type metaCustomData struct {
	Value           float64 `json:"value"`
	Currency        string  `json:"currency"`
	ContentName     string  `json:"content_name,omitempty"`
	ContentCategory string  `json:"content_category,omitempty"`
	Nationality     string  `json:"nationality,omitempty"`
	FormID          string  `json:"form_id,omitempty"`
	PageLocation    string  `json:"page_location,omitempty"`
	OrderID         string  `json:"order_id,omitempty"`
}

type metaEvent struct {
	EventName      string         `json:"event_name"`
	EventTime      int64          `json:"event_time"`
	EventSourceURL string         `json:"event_source_url,omitempty"`
	ActionSource   string         `json:"action_source"`
	EventID        string         `json:"event_id"`
	UserData       metaUserData   `json:"user_data"`
	CustomData     metaCustomData `json:"custom_data"`

	// GDPR / data regulation fields, always carried.
	OptOut                       bool     `json:"opt_out"`
	DataProcessingOptions        []string `json:"data_processing_options"`
	DataProcessingOptionsCountry int      `json:"data_processing_options_country"`
	DataProcessingOptionsState   int      `json:"data_processing_options_state"`
}

type metaRequest struct {
	Data          []metaEvent `json:"data"`
	TestEventCode string      `json:"test_event_code,omitempty"`
}

// Send maps the canonical event into Meta's schema and posts it. Meta
// accepts custom event names, so no vocabulary mapping is applied.
func (m *Meta) Send(ctx context.Context, in Input) model.DispatchResult {
	start := time.Now()

	currency := in.Event.Custom.Currency
	if currency == "" {
		currency = "SAR"
	}

	event := metaEvent{
		EventName:      in.Event.Name,
		EventTime:      in.Event.OccurredAt,
		EventSourceURL: in.Event.Custom.PageURL,
		ActionSource:   string(in.Event.ActionSource),
		EventID:        in.Event.ID,
		UserData: metaUserData{
			Em:              in.Hashed.Email,
			Ph:              in.Hashed.Phone,
			Fn:              in.Hashed.FirstName,
			Ln:              in.Hashed.LastName,
			ExternalID:      in.User.ExternalID,
			ClientIPAddress: in.Event.User.ClientIP,
			ClientUserAgent: in.Event.User.UserAgent,
			FBP:             in.Event.User.FBP,
			FBC:             in.Event.User.FBC,
		},
		CustomData: metaCustomData{
			Value:           in.Event.Custom.Value,
			Currency:        currency,
			ContentName:     in.Event.Custom.ContentName,
			ContentCategory: in.Event.Custom.ContentCategory,
			Nationality:     in.Event.Custom.Nationality,
			FormID:          in.Event.Custom.FormName,
			PageLocation:    in.Event.Custom.PageURL,
			OrderID:         in.Event.Custom.OrderID,
		},
		DataProcessingOptions: []string{},
	}

	body := metaRequest{Data: []metaEvent{event}}
	if in.Event.TestMode && m.cfg.TestEventCode != "" {
		body.TestEventCode = m.cfg.TestEventCode
	}

	url := fmt.Sprintf("%s/%s/events?access_token=%s", m.cfg.BaseURL, m.cfg.PixelID, m.cfg.AccessToken)
	status, respBody, err := postJSON(ctx, m.client, url, nil, body)
	res := result(ProviderMeta, start, status, respBody, err)

	m.logger.Debug("meta conversion sent",
		"event_id", in.Event.ID,
		"event_name", event.EventName,
		"success", res.Success,
		"http_status", res.HTTPStatus,
	)
	return res
}
