package domain

import (
	"fmt"
	"time"
)

// CampaignAnalytics is the analytics snapshot embedded in a campaign.
// Counts are raw integers; rates are percentages on a 0-100 scale.
type CampaignAnalytics struct {
	TotalRecipients   int       `json:"totalRecipients"`
	TotalSent         int       `json:"totalSent"`
	TotalDelivered    int       `json:"totalDelivered"`
	TotalOpened       int       `json:"totalOpened"`
	TotalClicked      int       `json:"totalClicked"`
	TotalBounced      int       `json:"totalBounced"`
	TotalUnsubscribed int       `json:"totalUnsubscribed"`
	OpenRate          float64   `json:"openRate"`
	ClickRate         float64   `json:"clickRate"`
	BounceRate        float64   `json:"bounceRate"`
	UnsubscribeRate   float64   `json:"unsubscribeRate"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

// RecomputeAnalytics derives the rate fields from the counts.
//
// When TotalSent is zero the previous rates are kept as they are; a count
// update that momentarily zeroes TotalSent must not wipe historical rates.
// LastUpdated is stamped in both cases. Callers invoke this only when the
// analytics block itself changed.
func RecomputeAnalytics(a CampaignAnalytics, now time.Time) CampaignAnalytics {
	if a.TotalSent > 0 {
		sent := float64(a.TotalSent)
		a.OpenRate = float64(a.TotalOpened) / sent * 100
		a.ClickRate = float64(a.TotalClicked) / sent * 100
		a.BounceRate = float64(a.TotalBounced) / sent * 100
		a.UnsubscribeRate = float64(a.TotalUnsubscribed) / sent * 100
	}
	a.LastUpdated = now
	return a
}

// Counts returns the snapshot with the derived fields zeroed, for comparing
// two snapshots by their counters only.
func (a CampaignAnalytics) Counts() CampaignAnalytics {
	return CampaignAnalytics{
		TotalRecipients:   a.TotalRecipients,
		TotalSent:         a.TotalSent,
		TotalDelivered:    a.TotalDelivered,
		TotalOpened:       a.TotalOpened,
		TotalClicked:      a.TotalClicked,
		TotalBounced:      a.TotalBounced,
		TotalUnsubscribed: a.TotalUnsubscribed,
	}
}

// ValidateCounts rejects negative counters.
func (a CampaignAnalytics) ValidateCounts() error {
	counts := []struct {
		name string
		n    int
	}{
		{"totalRecipients", a.TotalRecipients},
		{"totalSent", a.TotalSent},
		{"totalDelivered", a.TotalDelivered},
		{"totalOpened", a.TotalOpened},
		{"totalClicked", a.TotalClicked},
		{"totalBounced", a.TotalBounced},
		{"totalUnsubscribed", a.TotalUnsubscribed},
	}
	for _, c := range counts {
		if c.n < 0 {
			return fmt.Errorf("%s cannot be negative", c.name)
		}
	}
	return nil
}

// AnalyticsEvent names a countable delivery event.
type AnalyticsEvent string

const (
	EventRecipient   AnalyticsEvent = "recipient"
	EventSent        AnalyticsEvent = "sent"
	EventDelivered   AnalyticsEvent = "delivered"
	EventOpened      AnalyticsEvent = "open"
	EventClicked     AnalyticsEvent = "click"
	EventBounced     AnalyticsEvent = "bounce"
	EventUnsubscribe AnalyticsEvent = "unsubscribe"
)

// Apply adds n occurrences of the event to the matching counter. It
// returns false for an unknown event, leaving the snapshot untouched.
func (a *CampaignAnalytics) Apply(ev AnalyticsEvent, n int) bool {
	switch ev {
	case EventRecipient:
		a.TotalRecipients += n
	case EventSent:
		a.TotalSent += n
	case EventDelivered:
		a.TotalDelivered += n
	case EventOpened:
		a.TotalOpened += n
	case EventClicked:
		a.TotalClicked += n
	case EventBounced:
		a.TotalBounced += n
	case EventUnsubscribe:
		a.TotalUnsubscribed += n
	default:
		return false
	}
	return true
}
