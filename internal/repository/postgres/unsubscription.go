package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/subscriber"
)

const unsubscriptionColumns = `id, email, subscriber_id, campaign_id, company_id, reason, feedback,
		       can_resubscribe, resubscribe_token, unsubscribed_at, resubscribed_at,
		       ip_address, user_agent`

// UnsubscriptionRepo implements subscriber.UnsubscriptionRepository against PostgreSQL.
type UnsubscriptionRepo struct{ db *sql.DB }

// NewUnsubscriptionRepo creates a Postgres-backed unsubscribe audit trail.
func NewUnsubscriptionRepo(db *sql.DB) *UnsubscriptionRepo { return &UnsubscriptionRepo{db: db} }

func scanUnsubscription(row rowScanner) (*domain.Unsubscription, error) {
	var (
		u     domain.Unsubscription
		token sql.NullString
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.SubscriberID, &u.CampaignID, &u.CompanyID, &u.Reason, &u.Feedback,
		&u.CanResubscribe, &token, &u.UnsubscribedAt, &u.ResubscribedAt,
		&u.IPAddress, &u.UserAgent,
	)
	if err != nil {
		return nil, err
	}
	u.ResubscribeToken = token.String
	return &u, nil
}

func (r *UnsubscriptionRepo) Create(ctx context.Context, u *domain.Unsubscription) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	var token interface{}
	if u.ResubscribeToken != "" {
		token = u.ResubscribeToken
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO newsletter_unsubscriptions
			(id, email, subscriber_id, campaign_id, company_id, reason, feedback,
			 can_resubscribe, resubscribe_token, unsubscribed_at, resubscribed_at,
			 ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, u.ID, u.Email, u.SubscriberID, u.CampaignID, u.CompanyID, u.Reason, u.Feedback,
		u.CanResubscribe, token, u.UnsubscribedAt, u.ResubscribedAt,
		u.IPAddress, u.UserAgent)
	if constraint, ok := uniqueViolation(err); ok && constraint == resubscribeKey {
		return subscriber.ErrDuplicateToken
	}
	if err != nil {
		return fmt.Errorf("create unsubscription: %w", err)
	}
	return nil
}

func (r *UnsubscriptionRepo) LatestByToken(ctx context.Context, email, token string) (*domain.Unsubscription, error) {
	u, err := scanUnsubscription(r.db.QueryRowContext(ctx, `
		SELECT `+unsubscriptionColumns+`
		FROM newsletter_unsubscriptions
		WHERE email = $1 AND resubscribe_token = $2 AND resubscribed_at IS NULL
		ORDER BY unsubscribed_at DESC
		LIMIT 1
	`, email, token))
	if err == sql.ErrNoRows {
		return nil, subscriber.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("find unsubscription: %w", err)
	}
	return u, nil
}

func (r *UnsubscriptionRepo) MarkResubscribed(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE newsletter_unsubscriptions SET resubscribed_at = $1 WHERE id = $2
	`, at, id)
	if err != nil {
		return fmt.Errorf("mark resubscribed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return subscriber.ErrNotFound
	}
	return nil
}

func (r *UnsubscriptionRepo) List(ctx context.Context, companyID string, f subscriber.UnsubscriptionFilter) ([]domain.Unsubscription, int, error) {
	w := &conds{}
	w.add("company_id = $%d", companyID)
	if f.Reason != "" {
		w.add("reason = $%d", f.Reason)
	}
	if f.CampaignID != "" {
		w.add("campaign_id = $%d", f.CampaignID)
	}
	if f.Email != "" {
		w.add("email = $%d", f.Email)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM newsletter_unsubscriptions"+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count unsubscriptions: %w", err)
	}

	suffix, args := w.page(f.Limit, f.Offset)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+unsubscriptionColumns+" FROM newsletter_unsubscriptions"+w.where()+
			" ORDER BY unsubscribed_at DESC"+suffix, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list unsubscriptions: %w", err)
	}
	defer rows.Close()

	out := []domain.Unsubscription{}
	for rows.Next() {
		u, err := scanUnsubscription(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan unsubscription: %w", err)
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

func (r *UnsubscriptionRepo) CountByReason(ctx context.Context, companyID string) (map[domain.UnsubscribeReason]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT reason, COUNT(*)
		FROM newsletter_unsubscriptions
		WHERE company_id = $1
		GROUP BY reason
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("count by reason: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.UnsubscribeReason]int)
	for rows.Next() {
		var (
			reason domain.UnsubscribeReason
			n      int
		)
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("scan reason count: %w", err)
		}
		counts[reason] = n
	}
	return counts, rows.Err()
}
