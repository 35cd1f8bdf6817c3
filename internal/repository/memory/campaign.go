package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository in memory.
type CampaignRepo struct {
	mu        sync.Mutex
	campaigns map[string]*domain.Campaign // keyed by id
}

// NewCampaignRepo creates an empty repository.
func NewCampaignRepo() *CampaignRepo {
	return &CampaignRepo{campaigns: make(map[string]*domain.Campaign)}
}

func cloneCampaign(c *domain.Campaign) *domain.Campaign {
	cp := *c
	if c.ABTest != nil {
		ab := *c.ABTest
		ab.Variants = append([]domain.ABVariant(nil), c.ABTest.Variants...)
		cp.ABTest = &ab
	}
	cp.Segment.Tags = append([]string(nil), c.Segment.Tags...)
	cp.Segment.Categories = append([]string(nil), c.Segment.Categories...)
	cp.Segment.ExcludeTags = append([]string(nil), c.Segment.ExcludeTags...)
	return &cp
}

func (m *CampaignRepo) Get(_ context.Context, companyID, id string) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.CompanyID != companyID {
		return nil, campaign.ErrNotFound
	}
	return cloneCampaign(c), nil
}

func (m *CampaignRepo) List(_ context.Context, companyID string, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	search := strings.ToLower(f.Search)
	for _, c := range m.campaigns {
		if c.CompanyID != companyID {
			continue
		}
		if f.Status != "" && string(c.Status) != f.Status {
			continue
		}
		if f.CreatedBy != "" && c.CreatedBy != f.CreatedBy {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Subject), search) {
			continue
		}
		out = append(out, *cloneCampaign(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Offset, f.Limit), len(out), nil
}

func (m *CampaignRepo) Create(_ context.Context, c *domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = cloneCampaign(c)
	return nil
}

func (m *CampaignRepo) Update(_ context.Context, companyID, id string, u campaign.UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.CompanyID != companyID {
		return campaign.ErrNotFound
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Subject != nil {
		c.Subject = *u.Subject
	}
	if u.PreviewText != nil {
		c.PreviewText = *u.PreviewText
	}
	if u.HTMLContent != nil {
		c.HTMLContent = *u.HTMLContent
	}
	if u.TextContent != nil {
		c.TextContent = *u.TextContent
	}
	if u.TemplateID != nil {
		tid := *u.TemplateID
		c.TemplateID = &tid
	}
	if u.ScheduledAt != nil {
		at := *u.ScheduledAt
		c.ScheduledAt = &at
	}
	if u.Segment != nil {
		c.Segment = *u.Segment
	}
	if u.ABTest != nil {
		ab := *u.ABTest
		c.ABTest = &ab
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *CampaignRepo) UpdateStatus(_ context.Context, companyID, id string, from, to domain.CampaignStatus, change campaign.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.CompanyID != companyID {
		return campaign.ErrNotFound
	}
	if c.Status != from {
		return campaign.ErrStatusConflict
	}
	c.Status = to
	if change.ScheduledAt != nil {
		at := *change.ScheduledAt
		c.ScheduledAt = &at
	}
	if change.SentAt != nil {
		at := *change.SentAt
		c.SentAt = &at
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *CampaignRepo) UpdateAnalytics(_ context.Context, companyID, id string, fn func(domain.CampaignAnalytics) domain.CampaignAnalytics) (domain.CampaignAnalytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.CompanyID != companyID {
		return domain.CampaignAnalytics{}, campaign.ErrNotFound
	}
	c.Analytics = fn(c.Analytics)
	return c.Analytics, nil
}

func (m *CampaignRepo) Delete(_ context.Context, companyID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.CompanyID != companyID ||
		(c.Status != domain.CampaignDraft && c.Status != domain.CampaignCancelled) {
		return campaign.ErrNotFound
	}
	delete(m.campaigns, id)
	return nil
}

func (m *CampaignRepo) DueScheduled(_ context.Context, now time.Time, limit int) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.Status == domain.CampaignScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now) {
			out = append(out, *cloneCampaign(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(*out[j].ScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// page applies offset/limit to an already filtered slice.
func page[T any](items []T, offset, limit int) []T {
	offset = max(offset, 0)
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return items[offset:end]
}
