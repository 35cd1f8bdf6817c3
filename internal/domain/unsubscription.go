package domain

import "time"

// UnsubscribeReason is the reason code given when leaving a newsletter.
type UnsubscribeReason string

const (
	ReasonTooFrequent     UnsubscribeReason = "too_frequent"
	ReasonNotRelevant     UnsubscribeReason = "not_relevant"
	ReasonNeverSubscribed UnsubscribeReason = "never_subscribed"
	ReasonSpam            UnsubscribeReason = "spam"
	ReasonOther           UnsubscribeReason = "other"
)

// Valid reports whether r is a known reason code.
func (r UnsubscribeReason) Valid() bool {
	switch r {
	case ReasonTooFrequent, ReasonNotRelevant, ReasonNeverSubscribed, ReasonSpam, ReasonOther:
		return true
	}
	return false
}

// Unsubscription is the audit record written each time an address leaves.
type Unsubscription struct {
	ID               string            `json:"id" db:"id"`
	Email            string            `json:"email" db:"email"`
	SubscriberID     *string           `json:"subscriberId,omitempty" db:"subscriber_id"`
	CampaignID       *string           `json:"campaignId,omitempty" db:"campaign_id"`
	CompanyID        *string           `json:"companyId,omitempty" db:"company_id"`
	Reason           UnsubscribeReason `json:"reason" db:"reason"`
	Feedback         string            `json:"feedback,omitempty" db:"feedback"`
	CanResubscribe   bool              `json:"canResubscribe" db:"can_resubscribe"`
	ResubscribeToken string            `json:"-" db:"resubscribe_token"`
	UnsubscribedAt   time.Time         `json:"unsubscribedAt" db:"unsubscribed_at"`
	ResubscribedAt   *time.Time        `json:"resubscribedAt,omitempty" db:"resubscribed_at"`
	IPAddress        string            `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent        string            `json:"userAgent,omitempty" db:"user_agent"`
}
