package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/enigma119/uqam-kafka-event-driven-poc/core/config"
)

// Mailer sends a delivery confirmation to the customer.
type Mailer interface {
	SendDeliveryConfirmation(ctx context.Context, msg ConfirmationMessage) error
}

type ConfirmationMessage struct {
	RecipientName  string
	RecipientEmail string
	DeliveryID     string
	OrderStatus    string
}

const brevoSendEndpoint = "https://api.brevo.com/v3/smtp/email"

type brevoMailer struct {
	cfg    config.BrevoConfig
	http   *http.Client
	logger *slog.Logger
}

// NewBrevoMailer sends templated transactional email through the Brevo REST
// API. Callers should check cfg.Enabled() first and fall back to the mock
// mailer when no credentials are configured.
func NewBrevoMailer(cfg config.BrevoConfig, log *slog.Logger) Mailer {
	if log == nil {
		log = slog.Default()
	}
	return &brevoMailer{
		cfg:    cfg,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: log,
	}
}

type brevoSendRequest struct {
	To         []brevoRecipient `json:"to"`
	TemplateID int              `json:"templateId"`
	Params     map[string]any   `json:"params"`
}

type brevoRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (m *brevoMailer) SendDeliveryConfirmation(ctx context.Context, msg ConfirmationMessage) error {
	payload := brevoSendRequest{
		To:         []brevoRecipient{{Email: msg.RecipientEmail, Name: msg.RecipientName}},
		TemplateID: m.cfg.TemplateID,
		Params: map[string]any{
			"customerName": msg.RecipientName,
			"deliveryId":   msg.DeliveryID,
			"orderStatus":  msg.OrderStatus,
			"trackingUrl":  fmt.Sprintf("%s/tracking/%s", m.cfg.TrackingPublicURL, msg.DeliveryID),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding brevo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoSendEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building brevo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.cfg.APIKey)

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling brevo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("brevo returned %d: %s", resp.StatusCode, detail)
	}

	m.logger.InfoContext(ctx, "confirmation email sent",
		"delivery_id", msg.DeliveryID, "recipient", msg.RecipientEmail)
	return nil
}

type mockMailer struct {
	logger *slog.Logger
}

// NewMockMailer logs the confirmation instead of sending it. Active when no
// Brevo credentials are configured, so the pipeline runs end to end without
// an email account.
func NewMockMailer(log *slog.Logger) Mailer {
	if log == nil {
		log = slog.Default()
	}
	return &mockMailer{logger: log}
}

func (m *mockMailer) SendDeliveryConfirmation(ctx context.Context, msg ConfirmationMessage) error {
	m.logger.InfoContext(ctx, "mock email: delivery confirmation",
		"recipient", msg.RecipientEmail,
		"customer", msg.RecipientName,
		"delivery_id", msg.DeliveryID,
		"status", msg.OrderStatus,
	)
	return nil
}
