package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/httpretry"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/logger"
)

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
}

// NewResendSender creates a sender for the given API key. Rate-limited and
// 5xx responses are retried.
func NewResendSender(apiKey string) *ResendSender {
	httpClient := httpretry.NewClient(30*time.Second, 3)
	return &ResendSender{client: resend.NewCustomClient(httpClient, apiKey)}
}

// Name implements sending.Sender.
func (s *ResendSender) Name() string { return "resend" }

// Send delivers one message.
func (s *ResendSender) Send(ctx context.Context, msg *domain.EmailMessage) (*domain.SendResult, error) {
	params := &resend.SendEmailRequest{
		From:    formatFrom(msg.FromName, msg.FromEmail),
		To:      []string{msg.Email},
		Subject: msg.Subject,
		Html:    msg.HTMLContent,
		Text:    msg.TextContent,
		Headers: msg.Headers,
		Tags: []resend.Tag{
			{Name: "campaign_id", Value: msg.CampaignID},
		},
	}
	if msg.ReplyTo != "" {
		params.ReplyTo = msg.ReplyTo
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		logger.Error("resend send failed", "email", msg.Email, "campaign_id", msg.CampaignID, "error", err.Error())
		return nil, fmt.Errorf("resend send: %w", err)
	}
	return &domain.SendResult{MessageID: sent.Id, Provider: "resend", SentAt: time.Now().UTC()}, nil
}
