package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	tmpl "github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/template"
)

const templateColumns = `id, company_id, is_global, name, description, category, format,
		       content, variables, is_active, usage_count, created_by, created_at, updated_at`

// TemplateRepo implements template.Repository against PostgreSQL.
type TemplateRepo struct{ db *sql.DB }

// NewTemplateRepo creates a Postgres-backed template repository.
func NewTemplateRepo(db *sql.DB) *TemplateRepo { return &TemplateRepo{db: db} }

func scanTemplate(row rowScanner) (*domain.Template, error) {
	var (
		t    domain.Template
		vars []byte
	)
	err := row.Scan(
		&t.ID, &t.CompanyID, &t.IsGlobal, &t.Name, &t.Description, &t.Category, &t.Format,
		&t.Content, &vars, &t.IsActive, &t.UsageCount, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(vars, &t.Variables); err != nil {
		return nil, fmt.Errorf("decode variables: %w", err)
	}
	if t.Variables == nil {
		t.Variables = []domain.TemplateVariable{}
	}
	return &t, nil
}

func (r *TemplateRepo) Get(ctx context.Context, id string) (*domain.Template, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+` FROM newsletter_templates WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, tmpl.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (r *TemplateRepo) List(ctx context.Context, companyID string, f tmpl.ListFilter) ([]domain.Template, int, error) {
	w := &conds{}
	if f.IncludeGlobal {
		w.add("(company_id = $%d OR is_global)", companyID)
	} else {
		w.add("company_id = $%d", companyID)
	}
	if f.Category != "" {
		w.add("category = $%d", f.Category)
	}
	if f.ActiveOnly {
		w.clauses = append(w.clauses, "is_active")
	}
	if f.Search != "" {
		w.add("name ILIKE $%d", likePattern(f.Search))
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM newsletter_templates"+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count templates: %w", err)
	}

	suffix, args := w.page(f.Limit, f.Offset)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+templateColumns+" FROM newsletter_templates"+w.where()+" ORDER BY name"+suffix, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	out := []domain.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

func (r *TemplateRepo) Create(ctx context.Context, t *domain.Template) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	vars, err := jsonArg(t.Variables)
	if err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO newsletter_templates
			(id, company_id, is_global, name, description, category, format,
			 content, variables, is_active, usage_count, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, t.ID, t.CompanyID, t.IsGlobal, t.Name, t.Description, t.Category, t.Format,
		t.Content, vars, t.IsActive, t.UsageCount, t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (r *TemplateRepo) Save(ctx context.Context, t *domain.Template) error {
	vars, err := jsonArg(t.Variables)
	if err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE newsletter_templates
		SET company_id = $1, is_global = $2, name = $3, description = $4, category = $5,
		    format = $6, content = $7, variables = $8, is_active = $9, updated_at = NOW()
		WHERE id = $10
	`, t.CompanyID, t.IsGlobal, t.Name, t.Description, t.Category,
		t.Format, t.Content, vars, t.IsActive, t.ID)
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return tmpl.ErrNotFound
	}
	return nil
}

func (r *TemplateRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM newsletter_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return tmpl.ErrNotFound
	}
	return nil
}

func (r *TemplateRepo) IncrementUsage(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE newsletter_templates SET usage_count = usage_count + 1 WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return tmpl.ErrNotFound
	}
	return nil
}
