package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
)

// TrackingRepo stores raw open/click events next to the campaign counters.
type TrackingRepo struct{ db *sql.DB }

// NewTrackingRepo creates a Postgres-backed tracking event store.
func NewTrackingRepo(db *sql.DB) *TrackingRepo { return &TrackingRepo{db: db} }

func (r *TrackingRepo) InsertTrackingEvent(ctx context.Context, ev *domain.TrackingEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO newsletter_tracking_events
			(company_id, campaign_id, subscriber_id, event, url, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ev.CompanyID, ev.CampaignID, ev.SubscriberID, ev.Event, ev.URL,
		ev.IPAddress, ev.UserAgent, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tracking event: %w", err)
	}
	return nil
}

// CountEvents returns per-event totals for a campaign.
func (r *TrackingRepo) CountEvents(ctx context.Context, companyID, campaignID string) (map[domain.AnalyticsEvent]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event, COUNT(*) FROM newsletter_tracking_events
		WHERE company_id = $1 AND campaign_id = $2
		GROUP BY event
	`, companyID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("count tracking events: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.AnalyticsEvent]int)
	for rows.Next() {
		var (
			ev domain.AnalyticsEvent
			n  int
		)
		if err := rows.Scan(&ev, &n); err != nil {
			return nil, fmt.Errorf("scan tracking count: %w", err)
		}
		out[ev] = n
	}
	return out, rows.Err()
}
