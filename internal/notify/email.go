// Package notify delivers lead notifications over SMTP. It is wired
// into the dispatch fan-out as one more adapter: a mail failure is
// isolated exactly like a failed provider call.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/madarat/beacon/internal/adapter"
	"github.com/madarat/beacon/internal/geo"
	"github.com/madarat/beacon/internal/model"
)

// DialTimeout bounds the SMTP connection setup.
const DialTimeout = 4 * time.Second

// EmailConfig configures the lead email channel.
type EmailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	SenderName string
	Recipients []string
}

// Email sends a plain-text lead summary to the configured recipients.
type Email struct {
	cfg    EmailConfig
	logger *slog.Logger

	// send is swappable in tests; defaults to SMTP over implicit TLS.
	send func(ctx context.Context, subject, body string) error
}

// NewEmail creates the email channel.
func NewEmail(cfg EmailConfig, logger *slog.Logger) *Email {
	e := &Email{
		cfg:    cfg,
		logger: logger.With("component", "notify.email"),
	}
	e.send = e.sendSMTP
	return e
}

func (e *Email) Name() string { return adapter.ProviderEmail }

// leadEvents are the event names that produce a notification email.
var leadEvents = map[string]bool{
	model.EventLead:             true,
	model.EventSignUp:           true,
	model.EventOfflinePhoneCall: true,
}

// Send builds and delivers the lead summary. Non-lead events are
// reported as skipped so the aggregate still carries one result per
// adapter.
func (e *Email) Send(ctx context.Context, in adapter.Input) model.DispatchResult {
	start := time.Now()

	if !leadEvents[in.Event.Name] && in.Event.Custom.FormName == "" {
		return model.DispatchResult{
			Provider: adapter.ProviderEmail,
			Success:  false,
			Error:    "event is not a lead, no email sent",
		}
	}

	subject := fmt.Sprintf("New Lead: %s (%s)",
		orNA(in.Event.Custom.FormName, "Website Form"),
		orNA(in.Event.Custom.Destination, "N/A"),
	)
	body := buildBody(in)

	if err := e.send(ctx, subject, body); err != nil {
		e.logger.Warn("lead email delivery failed", "event_id", in.Event.ID, "error", err)
		return model.Failure(adapter.ProviderEmail, time.Since(start), err.Error())
	}

	elapsed := time.Since(start)
	e.logger.Info("lead email sent",
		"event_id", in.Event.ID,
		"recipients", len(e.cfg.Recipients),
		"duration_ms", elapsed.Milliseconds(),
	)
	return model.DispatchResult{
		Provider:   adapter.ProviderEmail,
		Success:    true,
		Duration:   elapsed,
		DurationMs: elapsed.Milliseconds(),
	}
}

// buildBody renders the plain-text lead summary. Only present fields
// are emitted.
func buildBody(in adapter.Input) string {
	var b strings.Builder

	section := func(title string) {
		b.WriteString("------------------------------------\n")
		b.WriteString(title)
		b.WriteString("\n")
	}
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}

	b.WriteString("New Lead Submission\n")
	section("Form & Page")
	field("Form Name", in.Event.Custom.FormName)
	field("Page URL", in.Event.Custom.PageURL)
	field("Destination", in.Event.Custom.Destination)

	section("Contact Info")
	field("Name", strings.TrimSpace(in.User.FirstName+" "+in.User.LastName))
	field("Phone", in.User.Phone)
	field("Email", in.User.Email)
	field("Nationality", in.Event.Custom.Nationality)

	section("Campaign Info (UTM)")
	field("Source", in.Event.Custom.UTM.Source)
	field("Medium", in.Event.Custom.UTM.Medium)
	field("Campaign", in.Event.Custom.UTM.Campaign)
	field("Term", in.Event.Custom.UTM.Term)
	field("Content", in.Event.Custom.UTM.Content)

	section("Client Info")
	field("IP Address", in.Event.User.ClientIP)
	field("Location", geo.DisplayString(in.Location))
	field("Timezone", in.Location.Timezone)
	field("Device Type", in.Device.Type)
	field("Operating System", in.Device.OS)
	field("Browser", in.Device.Browser)

	section("Tracking")
	field("Event ID", in.Event.ID)
	field("Request ID", in.ReportID)
	field("Occurred At", time.Unix(in.Event.OccurredAt, 0).UTC().Format(time.RFC3339))

	return b.String()
}

// sendSMTP delivers the message over implicit TLS.
func (e *Email) sendSMTP(ctx context.Context, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)

	dialer := &net.Dialer{Timeout: DialTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: e.cfg.Host})
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		return fmt.Errorf("create SMTP client: %w", err)
	}
	defer client.Quit()

	return e.submit(client, subject, body)
}

// submit runs the SMTP conversation on an established client.
func (e *Email) submit(client *smtp.Client, subject, body string) error {
	from := mail.Address{Name: e.cfg.SenderName, Address: e.cfg.Username}

	auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}

	if err := client.Mail(from.Address); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	for _, rcpt := range e.cfg.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("set recipient %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("open data writer: %w", err)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from.String())
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(e.cfg.Recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if _, err := writer.Write([]byte(msg.String())); err != nil {
		writer.Close()
		return fmt.Errorf("write message: %w", err)
	}
	// The server's accept/reject verdict for the message arrives only
	// after end-of-data and is surfaced by Close.
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close data writer: %w", err)
	}
	return nil
}

func orNA(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
