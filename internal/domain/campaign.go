package domain

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// CampaignStatus enumerates the lifecycle states of a newsletter campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
	CampaignCancelled CampaignStatus = "cancelled"
	CampaignFailed    CampaignStatus = "failed"
)

// campaignTransitions lists, for every state, the states it may move to.
// Terminal states map to an empty set.
var campaignTransitions = map[CampaignStatus]map[CampaignStatus]bool{
	CampaignDraft: {
		CampaignScheduled: true,
		CampaignSending:   true,
		CampaignCancelled: true,
	},
	CampaignScheduled: {
		CampaignDraft:     true,
		CampaignSending:   true,
		CampaignCancelled: true,
	},
	CampaignSending: {
		CampaignSent:      true,
		CampaignFailed:    true,
		CampaignCancelled: true,
	},
	CampaignSent:      {},
	CampaignCancelled: {},
	CampaignFailed:    {},
}

// Valid reports whether s is one of the known campaign states.
func (s CampaignStatus) Valid() bool {
	_, ok := campaignTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	return campaignTransitions[s][next]
}

// AllowedTransitions returns the states reachable from s in a stable order.
func (s CampaignStatus) AllowedTransitions() []CampaignStatus {
	order := []CampaignStatus{
		CampaignDraft, CampaignScheduled, CampaignSending,
		CampaignSent, CampaignCancelled, CampaignFailed,
	}
	var out []CampaignStatus
	for _, st := range order {
		if campaignTransitions[s][st] {
			out = append(out, st)
		}
	}
	return out
}

// ValidateTransition returns an error wrapping ErrInvalidTransition when the
// move from -> to is not in the transition table.
func ValidateTransition(from, to CampaignStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !from.CanTransitionTo(to) {
		allowed := from.AllowedTransitions()
		names := make([]string, len(allowed))
		for i, a := range allowed {
			names[i] = string(a)
		}
		if len(names) == 0 {
			return fmt.Errorf("%w: campaign in %s state cannot change status (attempted %s)",
				ErrInvalidTransition, from, to)
		}
		return fmt.Errorf("%w: cannot move campaign from %s to %s (allowed: %s)",
			ErrInvalidTransition, from, to, strings.Join(names, ", "))
	}
	return nil
}

// Segment narrows the audience of a campaign.
type Segment struct {
	Tags        []string `json:"tags,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Frequency   string   `json:"frequency,omitempty"`
	ExcludeTags []string `json:"excludeTags,omitempty"`
}

// Matches reports whether a subscriber falls inside the segment.
// Empty filters match everyone.
func (sg Segment) Matches(sub *Subscriber) bool {
	if len(sg.Tags) > 0 && !overlaps(sg.Tags, sub.Tags) {
		return false
	}
	if len(sg.Categories) > 0 && !overlaps(sg.Categories, sub.Preferences.Categories) {
		return false
	}
	if sg.Frequency != "" && sg.Frequency != sub.Preferences.Frequency {
		return false
	}
	if len(sg.ExcludeTags) > 0 && overlaps(sg.ExcludeTags, sub.Tags) {
		return false
	}
	return true
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// WinnerMetric selects how an A/B test winner is chosen.
type WinnerMetric string

const (
	WinnerOpenRate  WinnerMetric = "open_rate"
	WinnerClickRate WinnerMetric = "click_rate"
)

// ABVariant is one arm of an A/B test.
type ABVariant struct {
	Name        string `json:"name"`
	Subject     string `json:"subject,omitempty"`
	HTMLContent string `json:"htmlContent,omitempty"`
	Percentage  int    `json:"percentage"`
}

// ABTest holds the optional split-test configuration of a campaign.
type ABTest struct {
	Enabled           bool         `json:"enabled"`
	Variants          []ABVariant  `json:"variants"`
	WinnerMetric      WinnerMetric `json:"winnerMetric"`
	TestDurationHours int          `json:"testDurationHours,omitempty"`
}

// Validate checks an enabled test has at least two variants whose
// percentages add up to 100 and a known winner metric.
func (t *ABTest) Validate() error {
	if t == nil || !t.Enabled {
		return nil
	}
	if len(t.Variants) < 2 {
		return fmt.Errorf("%w: at least two variants are required", ErrInvalidABTest)
	}
	sum := 0
	seen := make(map[string]bool, len(t.Variants))
	for _, v := range t.Variants {
		if v.Name == "" {
			return fmt.Errorf("%w: variant name is required", ErrInvalidABTest)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: duplicate variant %q", ErrInvalidABTest, v.Name)
		}
		seen[v.Name] = true
		if v.Percentage <= 0 {
			return fmt.Errorf("%w: variant %q must have a positive percentage", ErrInvalidABTest, v.Name)
		}
		sum += v.Percentage
	}
	if sum != 100 {
		return fmt.Errorf("%w: variant percentages sum to %d, expected 100", ErrInvalidABTest, sum)
	}
	if t.WinnerMetric != WinnerOpenRate && t.WinnerMetric != WinnerClickRate {
		return fmt.Errorf("%w: unknown winner metric %q", ErrInvalidABTest, t.WinnerMetric)
	}
	return nil
}

// VariantFor deterministically assigns an email to a variant. The same
// address always lands in the same arm for a given configuration.
func (t *ABTest) VariantFor(email string) *ABVariant {
	if t == nil || !t.Enabled || len(t.Variants) == 0 {
		return nil
	}
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(email)))
	bucket := int(h.Sum32() % 100)
	acc := 0
	for i := range t.Variants {
		acc += t.Variants[i].Percentage
		if bucket < acc {
			return &t.Variants[i]
		}
	}
	return &t.Variants[len(t.Variants)-1]
}

// Campaign is a newsletter campaign owned by one company and created by one user.
type Campaign struct {
	ID          string            `json:"id" db:"id"`
	CompanyID   string            `json:"companyId" db:"company_id"`
	CreatedBy   string            `json:"createdBy" db:"created_by"`
	Name        string            `json:"name" db:"name"`
	Subject     string            `json:"subject" db:"subject"`
	PreviewText string            `json:"previewText,omitempty" db:"preview_text"`
	HTMLContent string            `json:"htmlContent" db:"html_content"`
	TextContent string            `json:"textContent,omitempty" db:"text_content"`
	TemplateID  *string           `json:"templateId,omitempty" db:"template_id"`
	Status      CampaignStatus    `json:"status" db:"status"`
	ScheduledAt *time.Time        `json:"scheduledAt,omitempty" db:"scheduled_at"`
	SentAt      *time.Time        `json:"sentAt,omitempty" db:"sent_at"`
	Segment     Segment           `json:"segment" db:"segment"`
	ABTest      *ABTest           `json:"abTest,omitempty" db:"ab_test"`
	Analytics   CampaignAnalytics `json:"analytics" db:"analytics"`
	CreatedAt   time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time         `json:"updatedAt" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignSent || c.Status == CampaignFailed || c.Status == CampaignCancelled
}

// IsEditable reports whether content fields may still change.
func (c *Campaign) IsEditable() bool {
	return c.Status == CampaignDraft || c.Status == CampaignScheduled
}
