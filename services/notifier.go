package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"uptimeworker/config"
)

// Sender is the outbound email transport. One attempt, no retry.
type Sender interface {
	Send(ctx context.Context, from, to, subject, htmlBody string) error
}

// NewSender picks the transport from config: SendGrid when its key is set,
// otherwise Resend. Returns nil when no transport is configured.
func NewSender(cfg config.Config) Sender {
	switch {
	case cfg.SendGridAPIKey != "":
		return &SendGridSender{client: sendgrid.NewSendClient(cfg.SendGridAPIKey)}
	case cfg.ResendAPIKey != "":
		return NewResendSender(cfg.ResendAPIKey, "")
	default:
		return nil
	}
}

type SendGridSender struct {
	client *sendgrid.Client
}

func (s *SendGridSender) Send(ctx context.Context, from, to, subject, htmlBody string) error {
	message := mail.NewSingleEmail(
		mail.NewEmail("Uptime Monitor", from),
		subject,
		mail.NewEmail("", to),
		"",
		htmlBody,
	)
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

const resendEndpoint = "https://api.resend.com/emails"

type ResendSender struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewResendSender talks to the Resend HTTP API; endpoint overrides the
// default URL (tests point it at an httptest server).
func NewResendSender(apiKey, endpoint string) *ResendSender {
	if endpoint == "" {
		endpoint = resendEndpoint
	}
	return &ResendSender{apiKey: apiKey, endpoint: endpoint, client: &http.Client{}}
}

type resendPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (r *ResendSender) Send(ctx context.Context, from, to, subject, htmlBody string) error {
	body, err := json.Marshal(resendPayload{From: from, To: to, Subject: subject, HTML: htmlBody})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend: status %d", resp.StatusCode)
	}
	return nil
}
