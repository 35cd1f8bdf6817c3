package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/subscriber"
)

const subscriberColumns = `id, company_id, email, first_name, last_name, is_active, source,
		       tags, preferences, unsubscribe_token, subscribed_at, unsubscribed_at,
		       last_email_at, created_at, updated_at`

// SubscriberRepo implements subscriber.Repository against PostgreSQL.
type SubscriberRepo struct{ db *sql.DB }

// NewSubscriberRepo creates a Postgres-backed subscriber repository.
func NewSubscriberRepo(db *sql.DB) *SubscriberRepo { return &SubscriberRepo{db: db} }

func scanSubscriber(row rowScanner) (*domain.Subscriber, error) {
	var (
		s     domain.Subscriber
		prefs []byte
	)
	err := row.Scan(
		&s.ID, &s.CompanyID, &s.Email, &s.FirstName, &s.LastName, &s.IsActive, &s.Source,
		pq.Array(&s.Tags), &prefs, &s.UnsubscribeToken, &s.SubscribedAt, &s.UnsubscribedAt,
		&s.LastEmailAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Preferences = domain.DefaultPreferences()
	if err := decodeJSON(prefs, &s.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	return &s, nil
}

func (r *SubscriberRepo) getOne(ctx context.Context, op, where string, args ...interface{}) (*domain.Subscriber, error) {
	s, err := scanSubscriber(r.db.QueryRowContext(ctx,
		"SELECT "+subscriberColumns+" FROM newsletter_subscribers WHERE "+where, args...))
	if err == sql.ErrNoRows {
		return nil, subscriber.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (r *SubscriberRepo) Get(ctx context.Context, companyID, id string) (*domain.Subscriber, error) {
	return r.getOne(ctx, "get subscriber", "id = $1 AND company_id = $2", id, companyID)
}

func (r *SubscriberRepo) FindByEmail(ctx context.Context, scopeKey, email string) (*domain.Subscriber, error) {
	return r.getOne(ctx, "find subscriber by email", "scope_key = $1 AND email = $2", scopeKey, email)
}

func (r *SubscriberRepo) FindByToken(ctx context.Context, token string) (*domain.Subscriber, error) {
	return r.getOne(ctx, "find subscriber by token", "unsubscribe_token = $1", token)
}

func (r *SubscriberRepo) Create(ctx context.Context, s *domain.Subscriber, scopeKey string) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	prefs, err := jsonArg(s.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO newsletter_subscribers
			(id, company_id, scope_key, email, first_name, last_name, is_active, source,
			 tags, preferences, unsubscribe_token, subscribed_at, unsubscribed_at,
			 last_email_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, s.ID, s.CompanyID, scopeKey, s.Email, s.FirstName, s.LastName, s.IsActive, s.Source,
		pq.Array(s.Tags), prefs, s.UnsubscribeToken, s.SubscribedAt, s.UnsubscribedAt,
		s.LastEmailAt, s.CreatedAt, s.UpdatedAt)
	if constraint, ok := uniqueViolation(err); ok {
		switch constraint {
		case subscriberEmailKey:
			return subscriber.ErrDuplicateEmail
		case subscriberTokenKey:
			return subscriber.ErrDuplicateToken
		}
	}
	if err != nil {
		return fmt.Errorf("create subscriber: %w", err)
	}
	return nil
}

func (r *SubscriberRepo) Save(ctx context.Context, s *domain.Subscriber) error {
	prefs, err := jsonArg(s.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE newsletter_subscribers
		SET first_name = $1, last_name = $2, is_active = $3, source = $4, tags = $5,
		    preferences = $6, subscribed_at = $7, unsubscribed_at = $8, last_email_at = $9,
		    updated_at = NOW()
		WHERE id = $10
	`, s.FirstName, s.LastName, s.IsActive, s.Source, pq.Array(s.Tags),
		prefs, s.SubscribedAt, s.UnsubscribedAt, s.LastEmailAt, s.ID)
	if err != nil {
		return fmt.Errorf("save subscriber: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return subscriber.ErrNotFound
	}
	return nil
}

func (r *SubscriberRepo) Delete(ctx context.Context, companyID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM newsletter_subscribers WHERE id = $1 AND company_id = $2
	`, id, companyID)
	if err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return subscriber.ErrNotFound
	}
	return nil
}

func (r *SubscriberRepo) List(ctx context.Context, companyID string, f subscriber.ListFilter) ([]domain.Subscriber, int, error) {
	w := &conds{}
	w.add("company_id = $%d", companyID)
	if f.Active != nil {
		w.add("is_active = $%d", *f.Active)
	}
	if f.Tag != "" {
		w.add("$%d = ANY(tags)", f.Tag)
	}
	if f.Frequency != "" {
		w.add("preferences->>'frequency' = $%d", f.Frequency)
	}
	if f.Search != "" {
		w.add("(email ILIKE $%[1]d OR (first_name || ' ' || last_name) ILIKE $%[1]d)", likePattern(f.Search))
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM newsletter_subscribers"+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count subscribers: %w", err)
	}

	suffix, args := w.page(f.Limit, f.Offset)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+subscriberColumns+" FROM newsletter_subscribers"+w.where()+
			" ORDER BY subscribed_at DESC"+suffix, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	out := []domain.Subscriber{}
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

// Audience resolves a segment in SQL: tag and category overlap through the
// array operators, frequency through the preferences expression index.
func (r *SubscriberRepo) Audience(ctx context.Context, companyID string, seg domain.Segment) ([]domain.Subscriber, error) {
	w := &conds{}
	w.add("company_id = $%d", companyID)
	w.clauses = append(w.clauses, "is_active")
	if len(seg.Tags) > 0 {
		w.add("tags && $%d", pq.Array(seg.Tags))
	}
	if len(seg.ExcludeTags) > 0 {
		w.add("NOT (tags && $%d)", pq.Array(seg.ExcludeTags))
	}
	if len(seg.Categories) > 0 {
		w.add("ARRAY(SELECT jsonb_array_elements_text(preferences->'categories')) && $%d", pq.Array(seg.Categories))
	}
	if seg.Frequency != "" {
		w.add("preferences->>'frequency' = $%d", seg.Frequency)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+subscriberColumns+" FROM newsletter_subscribers"+w.where()+" ORDER BY email", w.args...)
	if err != nil {
		return nil, fmt.Errorf("audience: %w", err)
	}
	defer rows.Close()

	var out []domain.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SubscriberRepo) TouchLastEmail(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE newsletter_subscribers SET last_email_at = $1 WHERE id = $2
	`, at, id)
	if err != nil {
		return fmt.Errorf("touch subscriber: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return subscriber.ErrNotFound
	}
	return nil
}
