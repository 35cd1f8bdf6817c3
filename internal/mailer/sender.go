package mailer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/config"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/logger"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/sending"
)

// NewSender picks the provider named in the email config.
func NewSender(ctx context.Context, cfg config.EmailConfig) (sending.Sender, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ses":
		return NewSESSender(ctx, cfg.SES)
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("resend: api key is required")
		}
		return NewResendSender(cfg.ResendAPIKey), nil
	case "", "log":
		return &LogSender{}, nil
	}
	return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
}

// LogSender writes messages to the log instead of delivering them.
// It is the default in development.
type LogSender struct{}

// Name implements sending.Sender.
func (*LogSender) Name() string { return "log" }

// Send implements sending.Sender.
func (*LogSender) Send(_ context.Context, msg *domain.EmailMessage) (*domain.SendResult, error) {
	id := uuid.NewString()
	log.Printf("[mailer.Log] campaign=%s to=%s subject=%q id=%s",
		msg.CampaignID, logger.RedactEmail(msg.Email), msg.Subject, id)
	return &domain.SendResult{MessageID: id, Provider: "log", SentAt: time.Now().UTC()}, nil
}

func formatFrom(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}
