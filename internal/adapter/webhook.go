package adapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/madarat/beacon/internal/metrics"
	"github.com/madarat/beacon/internal/model"
	"github.com/madarat/beacon/internal/sign"
)

// Webhook headers understood by the receiving automation system.
const (
	HeaderSignature     = "X-Signature"
	HeaderSignatureMode = "X-Signature-Mode"
	HeaderRequestID     = "X-Request-Id"
)

// WebhookConfig configures the automation webhook adapter.
type WebhookConfig struct {
	URL    string
	Secret string // empty degrades signing to a checksum
}

// Webhook forwards the canonical event, enrichment included, to the
// automation system (CRM intake). Unlike the advertising adapters it is
// authenticated by payload signature, and it is the one channel allowed
// to carry raw contact fields.
type Webhook struct {
	cfg     WebhookConfig
	client  *http.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewWebhook creates the automation webhook adapter.
func NewWebhook(cfg WebhookConfig, client *http.Client, logger *slog.Logger, recorder metrics.Recorder) *Webhook {
	if client == nil {
		client = NewHTTPClient(SendTimeout)
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Webhook{
		cfg:     cfg,
		client:  client,
		logger:  logger.With("component", "adapter.webhook"),
		metrics: recorder,
	}
}

func (w *Webhook) Name() string { return ProviderWebhook }

type webhookContact struct {
	Name        string `json:"name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	ExternalID  string `json:"external_id,omitempty"`
	Nationality string `json:"nationality,omitempty"`
}

type webhookPayload struct {
	EventName    string               `json:"event_name"`
	EventID      string               `json:"event_id"`
	OccurredAt   int64                `json:"occurred_at"`
	ActionSource string               `json:"action_source"`
	TestMode     bool                 `json:"test_mode,omitempty"`
	Contact      webhookContact       `json:"contact"`
	Destination  string               `json:"destination,omitempty"`
	Value        float64              `json:"value,omitempty"`
	Currency     string               `json:"currency,omitempty"`
	FormName     string               `json:"form_name,omitempty"`
	PageURL      string               `json:"page_url,omitempty"`
	UTM          model.UTMParams      `json:"utm,omitempty"`
	Extra        map[string]string    `json:"extra,omitempty"`
	Location     model.LocationResult `json:"location"`
	Device       model.DeviceInfo     `json:"device,omitempty"`
	IPAddress    string               `json:"ip_address,omitempty"`
	UserAgent    string               `json:"user_agent,omitempty"`
	RequestID    string               `json:"request_id"`
	ServerTime   int64                `json:"server_timestamp"`
}

// Send serializes the canonical event and posts it with an integrity
// signature. A missing secret degrades to checksum mode instead of
// dropping the delivery.
func (w *Webhook) Send(ctx context.Context, in Input) model.DispatchResult {
	start := time.Now()

	p := webhookPayload{
		EventName:    in.Event.Name,
		EventID:      in.Event.ID,
		OccurredAt:   in.Event.OccurredAt,
		ActionSource: string(in.Event.ActionSource),
		TestMode:     in.Event.TestMode,
		Contact: webhookContact{
			Name:        in.Event.User.Name,
			FirstName:   in.User.FirstName,
			LastName:    in.User.LastName,
			Email:       in.User.Email,
			Phone:       in.User.Phone,
			ExternalID:  in.User.ExternalID,
			Nationality: in.Event.Custom.Nationality,
		},
		Destination: in.Event.Custom.Destination,
		Value:       in.Event.Custom.Value,
		Currency:    in.Event.Custom.Currency,
		FormName:    in.Event.Custom.FormName,
		PageURL:     in.Event.Custom.PageURL,
		UTM:         in.Event.Custom.UTM,
		Extra:       in.Event.Custom.Extra,
		Location:    in.Location,
		Device:      in.Device,
		IPAddress:   in.Event.User.ClientIP,
		UserAgent:   in.Event.User.UserAgent,
		RequestID:   in.ReportID,
		ServerTime:  time.Now().Unix(),
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return model.Failure(ProviderWebhook, time.Since(start), "marshal payload: "+err.Error())
	}

	signature, mode := sign.Sign(payload, w.cfg.Secret)
	if mode == sign.ModeChecksum {
		w.metrics.IncDegradedSignature()
		w.logger.Warn("webhook secret not configured, signing degraded to checksum",
			"event_id", in.Event.ID,
		)
	}

	headers := map[string]string{
		HeaderSignature:     signature,
		HeaderSignatureMode: string(mode),
		HeaderRequestID:     in.ReportID,
	}

	status, respBody, err := postJSON(ctx, w.client, w.cfg.URL, headers, json.RawMessage(payload))
	res := result(ProviderWebhook, start, status, respBody, err)

	w.logger.Debug("automation webhook sent",
		"event_id", in.Event.ID,
		"signature_mode", string(mode),
		"success", res.Success,
		"http_status", res.HTTPStatus,
	)
	return res
}
