package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/monocle-dev/statuswatch/internal/logger"
	"github.com/resend/resend-go/v2"
)

type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Mailer sends one provider batch of individual emails.
type Mailer interface {
	SendBatch(ctx context.Context, emails []Email) error
}

// ResendMailer sends each batch with one Resend batch call.
type ResendMailer struct {
	client *resend.Client
}

func NewResendMailer(apiKey string, httpClient *http.Client) *ResendMailer {
	return &ResendMailer{client: resend.NewCustomClient(httpClient, apiKey)}
}

func (m *ResendMailer) SendBatch(ctx context.Context, emails []Email) error {
	if len(emails) == 0 {
		return nil
	}

	batch := make([]*resend.SendEmailRequest, 0, len(emails))
	for _, e := range emails {
		batch = append(batch, &resend.SendEmailRequest{
			From:    e.From,
			To:      e.To,
			Subject: e.Subject,
			Html:    e.HTML,
		})
	}

	if _, err := m.client.Batch.SendWithContext(ctx, batch); err != nil {
		return fmt.Errorf("failed to send email batch: %w", err)
	}
	return nil
}

// LogMailer only logs what would have been sent. Used when no provider key is configured.
type LogMailer struct {
	log logger.Logger
}

func NewLogMailer(log logger.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendBatch(ctx context.Context, emails []Email) error {
	for _, e := range emails {
		m.log.Info("email not sent, no provider configured", "to", e.To, "subject", e.Subject)
	}
	return nil
}
