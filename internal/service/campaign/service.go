package campaign

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/notification"
)

// Service implements campaign business logic. It coordinates between the
// repository layer and realtime notifications. All public methods are safe
// for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo   Repository
	events notification.Publisher
	now    func() time.Time
}

// NewService creates a campaign service backed by the given repository.
// A nil publisher discards events.
func NewService(repo Repository, events notification.Publisher) *Service {
	if events == nil {
		events = notification.Discard
	}
	return &Service{repo: repo, events: events, now: time.Now}
}

// SetClock overrides the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, companyID, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, companyID, id)
}

// List returns campaigns matching the filter.
func (s *Service) List(ctx context.Context, companyID string, f ListFilter) ([]domain.Campaign, int, error) {
	if f.Status != "" && !domain.CampaignStatus(f.Status).Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	return s.repo.List(ctx, companyID, f)
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	Name        string         `json:"name"`
	Subject     string         `json:"subject"`
	PreviewText string         `json:"previewText"`
	HTMLContent string         `json:"htmlContent"`
	TextContent string         `json:"textContent"`
	TemplateID  string         `json:"templateId"`
	ScheduledAt *time.Time     `json:"scheduledAt"`
	Segment     domain.Segment `json:"segment"`
	ABTest      *domain.ABTest `json:"abTest"`
}

// Create validates and persists a new campaign in draft status with
// zeroed analytics.
func (s *Service) Create(ctx context.Context, companyID, userID string, input CreateInput) (*domain.Campaign, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Subject) == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.HTMLContent) == "" && input.TemplateID == "" {
		return nil, fmt.Errorf("%w: htmlContent or templateId is required", ErrInvalidInput)
	}
	if err := input.ABTest.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now().UTC()
	c := &domain.Campaign{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		CreatedBy:   userID,
		Name:        strings.TrimSpace(input.Name),
		Subject:     input.Subject,
		PreviewText: input.PreviewText,
		HTMLContent: input.HTMLContent,
		TextContent: input.TextContent,
		Status:      domain.CampaignDraft,
		ScheduledAt: input.ScheduledAt,
		Segment:     input.Segment,
		ABTest:      input.ABTest,
		Analytics:   domain.CampaignAnalytics{LastUpdated: now},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.TemplateID != "" {
		c.TemplateID = &input.TemplateID
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	log.Printf("[campaign.Service] Created campaign %s for company %s", c.ID, companyID)
	return c, nil
}

// Update modifies mutable campaign fields. Content can only change while
// the campaign is draft or scheduled. When the update carries analytics,
// only the counts are taken and the rates are recomputed from them; negative
// counts are rejected and unchanged counts are not written.
func (s *Service) Update(ctx context.Context, companyID, id string, u UpdateFields) (*domain.Campaign, error) {
	c, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if u.Analytics != nil {
		if err := u.Analytics.ValidateCounts(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	if u.hasContent() {
		if !c.IsEditable() {
			return nil, fmt.Errorf("%w: status is %s", ErrNotEditable, c.Status)
		}
		if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		if u.Subject != nil && strings.TrimSpace(*u.Subject) == "" {
			return nil, fmt.Errorf("%w: subject cannot be empty", ErrInvalidInput)
		}
		if err := u.ABTest.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if u.ScheduledAt != nil && c.Status == domain.CampaignScheduled && !u.ScheduledAt.After(s.now()) {
			return nil, fmt.Errorf("%w: scheduledAt must be in the future", ErrInvalidInput)
		}
		if err := s.repo.Update(ctx, companyID, id, u); err != nil {
			return nil, err
		}
	}

	// Identical counts leave the snapshot and its LastUpdated alone.
	if u.Analytics != nil && u.Analytics.Counts() != c.Analytics.Counts() {
		counts := *u.Analytics
		now := s.now().UTC()
		_, err := s.repo.UpdateAnalytics(ctx, companyID, id, func(cur domain.CampaignAnalytics) domain.CampaignAnalytics {
			if cur.Counts() == counts.Counts() {
				return cur
			}
			cur.TotalRecipients = counts.TotalRecipients
			cur.TotalSent = counts.TotalSent
			cur.TotalDelivered = counts.TotalDelivered
			cur.TotalOpened = counts.TotalOpened
			cur.TotalClicked = counts.TotalClicked
			cur.TotalBounced = counts.TotalBounced
			cur.TotalUnsubscribed = counts.TotalUnsubscribed
			return domain.RecomputeAnalytics(cur, now)
		})
		if err != nil {
			return nil, err
		}
	}

	return s.repo.Get(ctx, companyID, id)
}

// Delete removes a campaign (only draft/cancelled).
func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	c, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return err
	}
	if c.Status != domain.CampaignDraft && c.Status != domain.CampaignCancelled {
		return fmt.Errorf("%w: only draft or cancelled campaigns can be deleted", ErrNotEditable)
	}
	return s.repo.Delete(ctx, companyID, id)
}

// Transition moves a campaign to a new status after checking the
// transition table. The write is conditional on the status read, so two
// racing transitions cannot both succeed.
func (s *Service) Transition(ctx context.Context, companyID, id string, to domain.CampaignStatus) (*domain.Campaign, error) {
	c, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, c, to, StatusChange{})
}

func (s *Service) transition(ctx context.Context, c *domain.Campaign, to domain.CampaignStatus, change StatusChange) (*domain.Campaign, error) {
	from := c.Status
	if err := domain.ValidateTransition(from, to); err != nil {
		return nil, err
	}

	if to == domain.CampaignScheduled && change.ScheduledAt == nil && c.ScheduledAt == nil {
		return nil, fmt.Errorf("%w: scheduledAt is required to schedule a campaign", ErrInvalidInput)
	}

	now := s.now().UTC()
	if to == domain.CampaignSent && change.SentAt == nil {
		change.SentAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, c.CompanyID, c.ID, from, to, change); err != nil {
		return nil, err
	}

	c.Status = to
	if change.ScheduledAt != nil {
		c.ScheduledAt = change.ScheduledAt
	}
	if change.SentAt != nil {
		c.SentAt = change.SentAt
	}
	c.UpdatedAt = now

	log.Printf("[campaign.Service] Campaign %s: %s -> %s", c.ID, from, to)
	ev := notification.NewEvent(notification.TypeCampaignStatusChanged, c.CompanyID, map[string]any{
		"campaignId": c.ID,
		"from":       from,
		"to":         to,
	})
	ev.UserID = c.CreatedBy
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("[campaign.Service] publish status change for %s: %v", c.ID, err)
	}
	return c, nil
}

// Schedule moves a draft campaign to scheduled for the given time, which
// must be in the future.
func (s *Service) Schedule(ctx context.Context, companyID, id string, at time.Time) (*domain.Campaign, error) {
	if !at.After(s.now()) {
		return nil, fmt.Errorf("%w: scheduledAt must be in the future", ErrInvalidInput)
	}
	c, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	at = at.UTC()
	return s.transition(ctx, c, domain.CampaignScheduled, StatusChange{ScheduledAt: &at})
}

// Cancel moves a campaign to cancelled.
func (s *Service) Cancel(ctx context.Context, companyID, id string) (*domain.Campaign, error) {
	return s.Transition(ctx, companyID, id, domain.CampaignCancelled)
}

// MarkSending moves a campaign to sending.
func (s *Service) MarkSending(ctx context.Context, companyID, id string) (*domain.Campaign, error) {
	return s.Transition(ctx, companyID, id, domain.CampaignSending)
}

// MarkSent moves a sending campaign to sent and stamps sentAt.
func (s *Service) MarkSent(ctx context.Context, companyID, id string) (*domain.Campaign, error) {
	return s.Transition(ctx, companyID, id, domain.CampaignSent)
}

// MarkFailed moves a sending campaign to failed.
func (s *Service) MarkFailed(ctx context.Context, companyID, id string) (*domain.Campaign, error) {
	return s.Transition(ctx, companyID, id, domain.CampaignFailed)
}

// RecordEvent adds n occurrences of a delivery event to the campaign's
// analytics and recomputes the rates in the same write.
func (s *Service) RecordEvent(ctx context.Context, companyID, id string, ev domain.AnalyticsEvent, n int) (domain.CampaignAnalytics, error) {
	if n <= 0 {
		return domain.CampaignAnalytics{}, fmt.Errorf("%w: count must be positive", ErrInvalidInput)
	}
	var check domain.CampaignAnalytics
	if !check.Apply(ev, n) {
		return domain.CampaignAnalytics{}, fmt.Errorf("%w: unknown event %q", ErrInvalidInput, ev)
	}

	now := s.now().UTC()
	a, err := s.repo.UpdateAnalytics(ctx, companyID, id, func(cur domain.CampaignAnalytics) domain.CampaignAnalytics {
		cur.Apply(ev, n)
		return domain.RecomputeAnalytics(cur, now)
	})
	if err != nil {
		return domain.CampaignAnalytics{}, err
	}

	if err := s.events.Publish(ctx, notification.NewEvent(notification.TypeCampaignAnalytics, companyID, map[string]any{
		"campaignId": id,
		"analytics":  a,
	})); err != nil {
		log.Printf("[campaign.Service] publish analytics for %s: %v", id, err)
	}
	return a, nil
}

// DueScheduled returns scheduled campaigns whose send time has passed.
func (s *Service) DueScheduled(ctx context.Context, limit int) ([]domain.Campaign, error) {
	return s.repo.DueScheduled(ctx, s.now(), limit)
}
