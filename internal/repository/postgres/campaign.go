package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/campaign"
)

const campaignColumns = `id, company_id, created_by, name, subject, preview_text, html_content,
		       text_content, template_id, status, scheduled_at, sent_at,
		       segment, ab_test, analytics, created_at, updated_at`

// CampaignRepo implements campaign.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	var (
		c                          domain.Campaign
		segment, abTest, analytics []byte
	)
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.CreatedBy, &c.Name, &c.Subject, &c.PreviewText, &c.HTMLContent,
		&c.TextContent, &c.TemplateID, &c.Status, &c.ScheduledAt, &c.SentAt,
		&segment, &abTest, &analytics, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(segment, &c.Segment); err != nil {
		return nil, fmt.Errorf("decode segment: %w", err)
	}
	if len(abTest) > 0 && string(abTest) != "null" {
		c.ABTest = &domain.ABTest{}
		if err := decodeJSON(abTest, c.ABTest); err != nil {
			return nil, fmt.Errorf("decode ab_test: %w", err)
		}
	}
	if err := decodeJSON(analytics, &c.Analytics); err != nil {
		return nil, fmt.Errorf("decode analytics: %w", err)
	}
	return &c, nil
}

func (r *CampaignRepo) Get(ctx context.Context, companyID, id string) (*domain.Campaign, error) {
	c, err := scanCampaign(r.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM newsletter_campaigns
		WHERE id = $1 AND company_id = $2
	`, id, companyID))
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) List(ctx context.Context, companyID string, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	w := &conds{}
	w.add("company_id = $%d", companyID)
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	if f.CreatedBy != "" {
		w.add("created_by = $%d", f.CreatedBy)
	}
	if f.Search != "" {
		w.add("(name ILIKE $%[1]d OR subject ILIKE $%[1]d)", likePattern(f.Search))
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM newsletter_campaigns"+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	suffix, args := w.page(f.Limit, f.Offset)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+campaignColumns+" FROM newsletter_campaigns"+w.where()+
			" ORDER BY created_at DESC"+suffix, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	out := []domain.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	segment, err := jsonArg(c.Segment)
	if err != nil {
		return fmt.Errorf("encode segment: %w", err)
	}
	var abTest interface{}
	if c.ABTest != nil {
		if abTest, err = jsonArg(c.ABTest); err != nil {
			return fmt.Errorf("encode ab_test: %w", err)
		}
	}
	analytics, err := jsonArg(c.Analytics)
	if err != nil {
		return fmt.Errorf("encode analytics: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO newsletter_campaigns
			(id, company_id, created_by, name, subject, preview_text, html_content,
			 text_content, template_id, status, scheduled_at, sent_at,
			 segment, ab_test, analytics, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, c.ID, c.CompanyID, c.CreatedBy, c.Name, c.Subject, c.PreviewText, c.HTMLContent,
		c.TextContent, c.TemplateID, c.Status, c.ScheduledAt, c.SentAt,
		segment, abTest, analytics, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) Update(ctx context.Context, companyID, id string, u campaign.UpdateFields) error {
	sets := []string{}
	args := []interface{}{}
	idx := 1
	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Subject != nil {
		add("subject", *u.Subject)
	}
	if u.PreviewText != nil {
		add("preview_text", *u.PreviewText)
	}
	if u.HTMLContent != nil {
		add("html_content", *u.HTMLContent)
	}
	if u.TextContent != nil {
		add("text_content", *u.TextContent)
	}
	if u.TemplateID != nil {
		add("template_id", *u.TemplateID)
	}
	if u.ScheduledAt != nil {
		add("scheduled_at", *u.ScheduledAt)
	}
	if u.Segment != nil {
		seg, err := jsonArg(u.Segment)
		if err != nil {
			return fmt.Errorf("encode segment: %w", err)
		}
		add("segment", seg)
	}
	if u.ABTest != nil {
		ab, err := jsonArg(u.ABTest)
		if err != nil {
			return fmt.Errorf("encode ab_test: %w", err)
		}
		add("ab_test", ab)
	}

	if len(sets) == 0 {
		return nil
	}

	q := fmt.Sprintf("UPDATE newsletter_campaigns SET %s, updated_at = NOW() WHERE id = $%d AND company_id = $%d",
		strings.Join(sets, ", "), idx, idx+1)
	args = append(args, id, companyID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

// UpdateStatus is a compare-and-set on the status column. When no row
// matches it checks whether the campaign exists at all to tell a missing
// campaign from a concurrent status change.
func (r *CampaignRepo) UpdateStatus(ctx context.Context, companyID, id string, from, to domain.CampaignStatus, change campaign.StatusChange) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE newsletter_campaigns
		SET status = $1,
		    scheduled_at = COALESCE($2, scheduled_at),
		    sent_at = COALESCE($3, sent_at),
		    updated_at = NOW()
		WHERE id = $4 AND company_id = $5 AND status = $6
	`, to, change.ScheduledAt, change.SentAt, id, companyID, from)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM newsletter_campaigns WHERE id = $1 AND company_id = $2)
	`, id, companyID).Scan(&exists); err != nil {
		return fmt.Errorf("check campaign: %w", err)
	}
	if !exists {
		return campaign.ErrNotFound
	}
	return campaign.ErrStatusConflict
}

// UpdateAnalytics serialises concurrent counter updates with SELECT ... FOR UPDATE.
func (r *CampaignRepo) UpdateAnalytics(ctx context.Context, companyID, id string, fn func(domain.CampaignAnalytics) domain.CampaignAnalytics) (domain.CampaignAnalytics, error) {
	var a domain.CampaignAnalytics
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return a, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx, `
		SELECT analytics FROM newsletter_campaigns
		WHERE id = $1 AND company_id = $2
		FOR UPDATE
	`, id, companyID).Scan(&raw)
	if err == sql.ErrNoRows {
		return a, campaign.ErrNotFound
	}
	if err != nil {
		return a, fmt.Errorf("lock analytics: %w", err)
	}
	if err := decodeJSON(raw, &a); err != nil {
		return a, fmt.Errorf("decode analytics: %w", err)
	}

	a = fn(a)
	doc, err := jsonArg(a)
	if err != nil {
		return a, fmt.Errorf("encode analytics: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE newsletter_campaigns SET analytics = $1, updated_at = NOW()
		WHERE id = $2 AND company_id = $3
	`, doc, id, companyID); err != nil {
		return a, fmt.Errorf("update analytics: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return a, fmt.Errorf("commit analytics: %w", err)
	}
	return a, nil
}

func (r *CampaignRepo) Delete(ctx context.Context, companyID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM newsletter_campaigns
		WHERE id = $1 AND company_id = $2 AND status IN ('draft','cancelled')
	`, id, companyID)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) DueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.Campaign, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campaignColumns+`
		FROM newsletter_campaigns
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("due campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
