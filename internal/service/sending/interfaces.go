// Package sending defines the interfaces the newsletter dispatcher uses to
// deliver campaign email.
//
// Each provider (SES, Resend, the development log sender) implements the
// Sender interface in internal/mailer. The dispatcher stays provider
// agnostic and only sees these contracts.
package sending

import (
	"context"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
)

// Sender sends a single email through a provider. Implementations must be
// safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg *domain.EmailMessage) (*domain.SendResult, error)
	Name() string
}

// Personalizer renders a campaign's subject and body for one subscriber.
type Personalizer interface {
	Personalize(c *domain.Campaign, sub *domain.Subscriber, unsubscribeURL string) (subject, html string, err error)
}

// TrackingInjector modifies email HTML to add open pixels, click redirects,
// and unsubscribe links. Called by the dispatcher before delivery.
type TrackingInjector interface {
	InjectTracking(html, companyID, campaignID, subscriberID string) string
	UnsubscribeURL(companyID, campaignID, unsubscribeToken string) string
	Headers(unsubscribeURL string) map[string]string
}
