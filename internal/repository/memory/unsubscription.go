package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/subscriber"
)

// UnsubscriptionRepo implements subscriber.UnsubscriptionRepository in memory.
type UnsubscriptionRepo struct {
	mu      sync.Mutex
	records []*domain.Unsubscription
}

// NewUnsubscriptionRepo creates an empty repository.
func NewUnsubscriptionRepo() *UnsubscriptionRepo {
	return &UnsubscriptionRepo{}
}

func (m *UnsubscriptionRepo) Create(_ context.Context, u *domain.Unsubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ResubscribeToken != "" {
		for _, r := range m.records {
			if r.ResubscribeToken == u.ResubscribeToken {
				return subscriber.ErrDuplicateToken
			}
		}
	}
	cp := *u
	m.records = append(m.records, &cp)
	return nil
}

func (m *UnsubscriptionRepo) LatestByToken(_ context.Context, email, token string) (*domain.Unsubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.Unsubscription
	for _, r := range m.records {
		if r.Email != email || r.ResubscribeToken != token || r.ResubscribedAt != nil {
			continue
		}
		if latest == nil || r.UnsubscribedAt.After(latest.UnsubscribedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, subscriber.ErrInvalidToken
	}
	cp := *latest
	return &cp, nil
}

func (m *UnsubscriptionRepo) MarkResubscribed(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			r.ResubscribedAt = &at
			return nil
		}
	}
	return subscriber.ErrNotFound
}

func (m *UnsubscriptionRepo) List(_ context.Context, companyID string, f subscriber.UnsubscriptionFilter) ([]domain.Unsubscription, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Unsubscription
	for _, r := range m.records {
		if r.CompanyID == nil || *r.CompanyID != companyID {
			continue
		}
		if f.Reason != "" && string(r.Reason) != f.Reason {
			continue
		}
		if f.CampaignID != "" && (r.CampaignID == nil || *r.CampaignID != f.CampaignID) {
			continue
		}
		if f.Email != "" && r.Email != f.Email {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnsubscribedAt.After(out[j].UnsubscribedAt) })
	return page(out, f.Offset, f.Limit), len(out), nil
}

func (m *UnsubscriptionRepo) CountByReason(_ context.Context, companyID string) (map[domain.UnsubscribeReason]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.UnsubscribeReason]int)
	for _, r := range m.records {
		if r.CompanyID != nil && *r.CompanyID == companyID {
			counts[r.Reason]++
		}
	}
	return counts, nil
}
