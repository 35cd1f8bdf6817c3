package domain

import "time"

// TrackingEvent represents a single engagement event from a newsletter
// recipient, decoded from a signed tracking link.
type TrackingEvent struct {
	CompanyID    string         `json:"companyId"`
	CampaignID   string         `json:"campaignId"`
	SubscriberID string         `json:"subscriberId,omitempty"`
	Event        AnalyticsEvent `json:"event"`
	URL          string         `json:"url,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}
