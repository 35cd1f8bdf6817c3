package memory

import (
	"context"
	"sync"
	"time"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
)

// TrackingRepo keeps tracking events in a slice.
type TrackingRepo struct {
	mu     sync.Mutex
	events []domain.TrackingEvent
}

func NewTrackingRepo() *TrackingRepo {
	return &TrackingRepo{}
}

func (m *TrackingRepo) InsertTrackingEvent(_ context.Context, ev *domain.TrackingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	m.events = append(m.events, *ev)
	return nil
}

func (m *TrackingRepo) CountEvents(_ context.Context, companyID, campaignID string) (map[domain.AnalyticsEvent]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.AnalyticsEvent]int)
	for _, ev := range m.events {
		if ev.CompanyID == companyID && ev.CampaignID == campaignID {
			out[ev.Event]++
		}
	}
	return out, nil
}
