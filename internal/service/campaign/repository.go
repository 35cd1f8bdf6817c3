package campaign

import (
	"context"
	"time"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
)

// Repository defines the data access contract for campaigns.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't exist
	// or belongs to another company.
	Get(ctx context.Context, companyID, id string) (*domain.Campaign, error)

	// List returns campaigns matching the filter, ordered by created_at DESC,
	// plus the total number of matches ignoring Limit/Offset.
	List(ctx context.Context, companyID string, filter ListFilter) ([]domain.Campaign, int, error)

	// Create inserts a new campaign.
	Create(ctx context.Context, c *domain.Campaign) error

	// Update applies the non-nil content fields. Analytics is ignored here;
	// analytics writes go through UpdateAnalytics.
	Update(ctx context.Context, companyID, id string, u UpdateFields) error

	// UpdateStatus moves a campaign from one status to another. It returns
	// ErrStatusConflict if the stored status is no longer `from`.
	UpdateStatus(ctx context.Context, companyID, id string, from, to domain.CampaignStatus, change StatusChange) error

	// UpdateAnalytics loads the analytics snapshot under a row lock, passes it
	// through fn and stores the result.
	UpdateAnalytics(ctx context.Context, companyID, id string, fn func(domain.CampaignAnalytics) domain.CampaignAnalytics) (domain.CampaignAnalytics, error)

	// Delete removes a campaign. Only draft/cancelled campaigns can be deleted.
	Delete(ctx context.Context, companyID, id string) error

	// DueScheduled returns scheduled campaigns of every company whose
	// scheduled_at is at or before now, oldest first.
	DueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.Campaign, error)
}

// ListFilter controls pagination and filtering for campaign lists.
type ListFilter struct {
	Status    string
	Search    string
	CreatedBy string
	Limit     int
	Offset    int
}

// UpdateFields holds the mutable fields for a campaign update.
// Nil fields are not applied.
type UpdateFields struct {
	Name        *string
	Subject     *string
	PreviewText *string
	HTMLContent *string
	TextContent *string
	TemplateID  *string
	ScheduledAt *time.Time
	Segment     *domain.Segment
	ABTest      *domain.ABTest

	// Analytics carries new counts. Rates in it are ignored and re-derived.
	Analytics *domain.CampaignAnalytics
}

func (u UpdateFields) hasContent() bool {
	return u.Name != nil || u.Subject != nil || u.PreviewText != nil ||
		u.HTMLContent != nil || u.TextContent != nil || u.TemplateID != nil ||
		u.ScheduledAt != nil || u.Segment != nil || u.ABTest != nil
}

// StatusChange carries the timestamps written together with a status move.
type StatusChange struct {
	ScheduledAt *time.Time
	SentAt      *time.Time
}
