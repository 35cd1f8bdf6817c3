package domain

import "time"

// EmailMessage is the fully-resolved message ready for a sender.
// By the time a message reaches this struct, all template substitution
// and tracking injection is complete.
type EmailMessage struct {
	CampaignID   string            `json:"campaignId"`
	SubscriberID string            `json:"subscriberId"`
	Email        string            `json:"email"`
	FromName     string            `json:"fromName"`
	FromEmail    string            `json:"fromEmail"`
	ReplyTo      string            `json:"replyTo,omitempty"`
	Subject      string            `json:"subject"`
	HTMLContent  string            `json:"htmlContent"`
	TextContent  string            `json:"textContent,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Variant      string            `json:"variant,omitempty"`
}

// SendResult is returned by a sender after attempting delivery.
type SendResult struct {
	MessageID string    `json:"messageId"`
	Provider  string    `json:"provider"`
	SentAt    time.Time `json:"sentAt"`
}
