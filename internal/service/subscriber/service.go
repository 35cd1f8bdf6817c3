package subscriber

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/notification"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/logger"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/token"
)

// CampaignRecorder is the slice of the campaign service used to count
// unsubscribes against the campaign that triggered them.
type CampaignRecorder interface {
	RecordEvent(ctx context.Context, companyID, id string, ev domain.AnalyticsEvent, n int) (domain.CampaignAnalytics, error)
}

// Service implements subscriber business logic. It is safe for concurrent use.
type Service struct {
	repo      Repository
	unsubs    UnsubscriptionRepository
	campaigns CampaignRecorder
	events    notification.Publisher
	scope     domain.SubscriberScope
	newToken  token.Generator
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithScope sets the email uniqueness scope. Defaults to global.
func WithScope(scope domain.SubscriberScope) Option {
	return func(s *Service) { s.scope = scope }
}

// WithCampaignRecorder enables unsubscribe counting on campaigns.
func WithCampaignRecorder(c CampaignRecorder) Option {
	return func(s *Service) { s.campaigns = c }
}

// WithPublisher sets where realtime events go.
func WithPublisher(p notification.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithTokenGenerator replaces the token factory. Used by tests.
func WithTokenGenerator(g token.Generator) Option {
	return func(s *Service) { s.newToken = g }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a subscriber service.
func NewService(repo Repository, unsubs UnsubscriptionRepository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		unsubs:   unsubs,
		events:   notification.Discard,
		scope:    domain.ScopeGlobal,
		newToken: token.New,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scope returns the configured uniqueness scope.
func (s *Service) Scope() domain.SubscriberScope { return s.scope }

// SubscribeInput holds the fields accepted on sign-up.
type SubscribeInput struct {
	Email       string                  `json:"email"`
	FirstName   string                  `json:"firstName"`
	LastName    string                  `json:"lastName"`
	Source      domain.SubscriberSource `json:"source"`
	Tags        []string                `json:"tags"`
	Preferences *domain.Preferences     `json:"preferences"`
}

// Subscribe registers an address. An address that unsubscribed earlier in
// the same scope is reactivated and keeps its unsubscribe token; an
// address that is already active yields ErrDuplicateEmail.
func (s *Service) Subscribe(ctx context.Context, companyID string, in SubscribeInput) (*domain.Subscriber, error) {
	email := domain.NormalizeEmail(in.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.Source == "" {
		in.Source = domain.SourceWebsite
	}
	if !in.Source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, in.Source)
	}
	prefs := domain.DefaultPreferences()
	if in.Preferences != nil {
		prefs = mergePreferences(prefs, *in.Preferences)
		if err := prefs.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	scopeKey := domain.ScopeKey(s.scope, companyID)
	now := s.now().UTC()

	existing, err := s.repo.FindByEmail(ctx, scopeKey, email)
	switch {
	case err == nil:
		if existing.IsActive {
			return nil, ErrDuplicateEmail
		}
		existing.IsActive = true
		existing.UnsubscribedAt = nil
		existing.SubscribedAt = now
		existing.UpdatedAt = now
		if in.FirstName != "" {
			existing.FirstName = in.FirstName
		}
		if in.LastName != "" {
			existing.LastName = in.LastName
		}
		if in.Preferences != nil {
			existing.Preferences = prefs
		}
		existing.Tags = mergeTags(existing.Tags, in.Tags)
		if err := token.EnsureSubscriberToken(existing, s.newToken); err != nil {
			return nil, err
		}
		if err := s.repo.Save(ctx, existing); err != nil {
			return nil, err
		}
		logger.Info("subscriber reactivated", "email", email, "company_id", companyID)
		s.publish(ctx, notification.TypeSubscriberJoined, existing)
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("lookup subscriber: %w", err)
	}

	sub := &domain.Subscriber{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsActive:     true,
		Source:       in.Source,
		Tags:         mergeTags(nil, in.Tags),
		Preferences:  prefs,
		SubscribedAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := token.EnsureSubscriberToken(sub, s.newToken); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sub, scopeKey); err != nil {
		return nil, err
	}
	logger.Info("subscriber created", "email", email, "company_id", companyID, "source", string(in.Source))
	s.publish(ctx, notification.TypeSubscriberJoined, sub)
	return sub, nil
}

// Get returns a single subscriber.
func (s *Service) Get(ctx context.Context, companyID, id string) (*domain.Subscriber, error) {
	return s.repo.Get(ctx, companyID, id)
}

// List returns subscribers matching the filter.
func (s *Service) List(ctx context.Context, companyID string, f ListFilter) ([]domain.Subscriber, int, error) {
	return s.repo.List(ctx, companyID, f)
}

// UpdateInput holds the mutable subscriber fields. Nil fields are not applied.
type UpdateInput struct {
	FirstName   *string             `json:"firstName"`
	LastName    *string             `json:"lastName"`
	Tags        []string            `json:"tags"`
	Preferences *domain.Preferences `json:"preferences"`
}

// Update changes names, tags or preferences.
func (s *Service) Update(ctx context.Context, companyID, id string, in UpdateInput) (*domain.Subscriber, error) {
	sub, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		sub.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		sub.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Tags != nil {
		sub.Tags = mergeTags(nil, in.Tags)
	}
	if in.Preferences != nil {
		prefs := mergePreferences(sub.Preferences, *in.Preferences)
		if err := prefs.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		sub.Preferences = prefs
	}
	sub.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Delete removes a subscriber.
func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	return s.repo.Delete(ctx, companyID, id)
}

// UnsubscribeInput identifies the subscriber by Email (inside CompanyID's
// scope) or by Token and carries the audit details.
type UnsubscribeInput struct {
	Email          string                   `json:"email"`
	Token          string                   `json:"token"`
	CompanyID      string                   `json:"companyId"`
	CampaignID     string                   `json:"campaignId"`
	Reason         domain.UnsubscribeReason `json:"reason"`
	Feedback       string                   `json:"feedback"`
	CanResubscribe *bool                    `json:"canResubscribe"`
	IPAddress      string                   `json:"-"`
	UserAgent      string                   `json:"-"`
}

// Result is the {success, message} contract of the public newsletter
// endpoints.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// ResubscribeToken is handed to the caller so it can offer a
	// resubscribe link. It is not part of the JSON body.
	ResubscribeToken string `json:"-"`
}

// Unsubscribe deactivates a subscriber and writes the audit record.
func (s *Service) Unsubscribe(ctx context.Context, in UnsubscribeInput) (*Result, error) {
	sub, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}
	if !sub.IsActive {
		return &Result{Success: true, Message: "Email is already unsubscribed"}, nil
	}

	reason := in.Reason
	if reason == "" {
		reason = domain.ReasonOther
	}
	if !reason.Valid() {
		return nil, fmt.Errorf("%w: unknown reason %q", ErrInvalidInput, reason)
	}
	canResubscribe := true
	if in.CanResubscribe != nil {
		canResubscribe = *in.CanResubscribe
	}

	now := s.now().UTC()
	prev := *sub
	sub.IsActive = false
	sub.UnsubscribedAt = &now
	sub.UpdatedAt = now
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}
	// restore reactivates the subscriber when the audit record cannot be
	// written, so a retry is not answered with "already unsubscribed".
	restore := func() {
		if err := s.repo.Save(context.WithoutCancel(ctx), &prev); err != nil {
			logger.Error("restore subscriber after failed unsubscribe", "subscriber_id", sub.ID, "error", err.Error())
		}
	}

	companyID := sub.CompanyID
	rec := &domain.Unsubscription{
		ID:             uuid.New().String(),
		Email:          sub.Email,
		SubscriberID:   &sub.ID,
		CompanyID:      &companyID,
		Reason:         reason,
		Feedback:       strings.TrimSpace(in.Feedback),
		CanResubscribe: canResubscribe,
		UnsubscribedAt: now,
		IPAddress:      in.IPAddress,
		UserAgent:      in.UserAgent,
	}
	if in.CampaignID != "" {
		campaignID := in.CampaignID
		rec.CampaignID = &campaignID
	}
	if err := token.EnsureResubscribeToken(rec, s.newToken); err != nil {
		restore()
		return nil, err
	}
	if err := s.unsubs.Create(ctx, rec); err != nil {
		restore()
		return nil, fmt.Errorf("record unsubscription: %w", err)
	}

	if rec.CampaignID != nil && s.campaigns != nil {
		if _, err := s.campaigns.RecordEvent(ctx, companyID, *rec.CampaignID, domain.EventUnsubscribe, 1); err != nil {
			logger.Warn("count campaign unsubscribe failed", "campaign_id", *rec.CampaignID, "error", err.Error())
		}
	}

	logger.Info("subscriber unsubscribed", "email", sub.Email, "reason", string(reason))
	s.publish(ctx, notification.TypeSubscriberLeft, sub)
	return &Result{
		Success:          true,
		Message:          "Successfully unsubscribed from newsletter",
		ResubscribeToken: rec.ResubscribeToken,
	}, nil
}

func (s *Service) resolve(ctx context.Context, in UnsubscribeInput) (*domain.Subscriber, error) {
	if in.Token != "" {
		return s.repo.FindByToken(ctx, in.Token)
	}
	email := domain.NormalizeEmail(in.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.repo.FindByEmail(ctx, domain.ScopeKey(s.scope, in.CompanyID), email)
}

// Resubscribe reactivates an address using the token of its latest
// unsubscription. The token is consumed and never regenerated.
func (s *Service) Resubscribe(ctx context.Context, email, tok string) (*Result, error) {
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if tok == "" {
		return nil, ErrInvalidToken
	}

	rec, err := s.unsubs.LatestByToken(ctx, email, tok)
	if err != nil {
		return nil, err
	}
	if !rec.CanResubscribe || rec.ResubscribedAt != nil {
		return nil, ErrInvalidToken
	}

	var sub *domain.Subscriber
	if rec.SubscriberID != nil && rec.CompanyID != nil {
		sub, err = s.repo.Get(ctx, *rec.CompanyID, *rec.SubscriberID)
	} else {
		companyID := ""
		if rec.CompanyID != nil {
			companyID = *rec.CompanyID
		}
		sub, err = s.repo.FindByEmail(ctx, domain.ScopeKey(s.scope, companyID), email)
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if !sub.IsActive {
		sub.IsActive = true
		sub.UnsubscribedAt = nil
		sub.SubscribedAt = now
		sub.UpdatedAt = now
		if err := s.repo.Save(ctx, sub); err != nil {
			return nil, err
		}
	}
	if err := s.unsubs.MarkResubscribed(ctx, rec.ID, now); err != nil {
		return nil, err
	}

	logger.Info("subscriber resubscribed", "email", email)
	s.publish(ctx, notification.TypeSubscriberResubscribed, sub)
	return &Result{Success: true, Message: "Successfully resubscribed to newsletter"}, nil
}

// ListUnsubscriptions returns the unsubscribe audit trail of a company.
func (s *Service) ListUnsubscriptions(ctx context.Context, companyID string, f UnsubscriptionFilter) ([]domain.Unsubscription, int, error) {
	if f.Reason != "" && !domain.UnsubscribeReason(f.Reason).Valid() {
		return nil, 0, fmt.Errorf("%w: unknown reason %q", ErrInvalidInput, f.Reason)
	}
	return s.unsubs.List(ctx, companyID, f)
}

// Stats aggregates unsubscribe reasons for a company.
type Stats struct {
	Total    int                              `json:"total"`
	ByReason map[domain.UnsubscribeReason]int `json:"byReason"`
}

// UnsubscriptionStats returns reason counts for a company.
func (s *Service) UnsubscriptionStats(ctx context.Context, companyID string) (*Stats, error) {
	counts, err := s.unsubs.CountByReason(ctx, companyID)
	if err != nil {
		return nil, err
	}
	st := &Stats{ByReason: counts}
	for _, n := range counts {
		st.Total += n
	}
	return st, nil
}

// Audience returns the active subscribers matching a campaign segment.
func (s *Service) Audience(ctx context.Context, companyID string, seg domain.Segment) ([]domain.Subscriber, error) {
	return s.repo.Audience(ctx, companyID, seg)
}

// MarkEmailed stamps the time of the last delivered email.
func (s *Service) MarkEmailed(ctx context.Context, id string) error {
	return s.repo.TouchLastEmail(ctx, id, s.now().UTC())
}

func (s *Service) publish(ctx context.Context, typ string, sub *domain.Subscriber) {
	ev := notification.NewEvent(typ, sub.CompanyID, map[string]any{
		"subscriberId": sub.ID,
		"isActive":     sub.IsActive,
	})
	if err := s.events.Publish(ctx, ev); err != nil {
		logger.Warn("publish subscriber event failed", "type", typ, "error", err.Error())
	}
}

func mergePreferences(base, in domain.Preferences) domain.Preferences {
	if in.Frequency != "" {
		base.Frequency = in.Frequency
	}
	if in.Format != "" {
		base.Format = in.Format
	}
	if in.Categories != nil {
		base.Categories = in.Categories
	}
	return base
}

func mergeTags(existing, add []string) []string {
	out := make([]string, 0, len(existing)+len(add))
	seen := make(map[string]bool, len(existing)+len(add))
	for _, list := range [][]string{existing, add} {
		for _, t := range list {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
