package subscriber

import (
	"context"
	"time"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
)

// Repository defines the data access contract for subscribers.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a subscriber of the company. Returns ErrNotFound if it
	// doesn't exist.
	Get(ctx context.Context, companyID, id string) (*domain.Subscriber, error)

	// FindByEmail looks an address up inside a uniqueness scope (see
	// domain.ScopeKey). Returns ErrNotFound if there is no match.
	FindByEmail(ctx context.Context, scopeKey, email string) (*domain.Subscriber, error)

	// FindByToken returns the subscriber owning an unsubscribe token.
	FindByToken(ctx context.Context, token string) (*domain.Subscriber, error)

	// Create inserts a subscriber under the scope key. Returns
	// ErrDuplicateEmail or ErrDuplicateToken on a uniqueness violation.
	Create(ctx context.Context, s *domain.Subscriber, scopeKey string) error

	// Save writes the mutable fields of an existing subscriber. The
	// unsubscribe token is never rewritten.
	Save(ctx context.Context, s *domain.Subscriber) error

	// Delete removes a subscriber.
	Delete(ctx context.Context, companyID, id string) error

	// List returns subscribers matching the filter ordered by subscribed_at
	// DESC, plus the total number of matches.
	List(ctx context.Context, companyID string, filter ListFilter) ([]domain.Subscriber, int, error)

	// Audience returns the active subscribers of a company that match a
	// campaign segment.
	Audience(ctx context.Context, companyID string, seg domain.Segment) ([]domain.Subscriber, error)

	// TouchLastEmail stamps last_email_at for a subscriber.
	TouchLastEmail(ctx context.Context, id string, at time.Time) error
}

// UnsubscriptionRepository stores the unsubscribe audit trail.
type UnsubscriptionRepository interface {
	// Create inserts a record. Returns ErrDuplicateToken if the resubscribe
	// token collides.
	Create(ctx context.Context, u *domain.Unsubscription) error

	// LatestByToken returns the newest record for email carrying the given
	// resubscribe token that has not been used yet.
	LatestByToken(ctx context.Context, email, token string) (*domain.Unsubscription, error)

	// MarkResubscribed stamps resubscribed_at on a record.
	MarkResubscribed(ctx context.Context, id string, at time.Time) error

	// List returns records of a company ordered by unsubscribed_at DESC.
	List(ctx context.Context, companyID string, filter UnsubscriptionFilter) ([]domain.Unsubscription, int, error)

	// CountByReason aggregates the records of a company by reason code.
	CountByReason(ctx context.Context, companyID string) (map[domain.UnsubscribeReason]int, error)
}

// ListFilter controls pagination and filtering for subscriber lists.
type ListFilter struct {
	Active    *bool
	Tag       string
	Frequency string
	Search    string
	Limit     int
	Offset    int
}

// UnsubscriptionFilter controls pagination and filtering for the audit trail.
type UnsubscriptionFilter struct {
	Reason     string
	CampaignID string
	Email      string
	Limit      int
	Offset     int
}
